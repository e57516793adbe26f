package engine

import "github.com/praetorian-inc/almanac/pkg/types"

// LookupResult pairs each input value with its final location.
type LookupResult struct {
	Values []uint64 `json:"values"`
	Mapped []uint64 `json:"mapped"`
	Lowest uint64   `json:"lowest"`
}

// ResolveResult holds the ranges a set of input ranges resolves to.
type ResolveResult struct {
	Ranges []types.Interval `json:"ranges"`
	Lowest uint64           `json:"lowest"`
}
