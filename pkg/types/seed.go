package types

import "fmt"

// SeedRanges turns flat (start, length) pairs into inclusive intervals with
// High = start + length - 1. Zero lengths describe no values and are skipped.
func SeedRanges(pairs []uint64) ([]Interval, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("%d values: %w", len(pairs), ErrOddSeeds)
	}

	ranges := make([]Interval, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		start, length := pairs[i], pairs[i+1]
		if length == 0 {
			continue
		}
		end, err := addChecked(start, length-1)
		if err != nil {
			return nil, fmt.Errorf("seed range %d: %w", i/2, err)
		}
		ranges = append(ranges, Interval{Low: start, High: end})
	}
	return ranges, nil
}
