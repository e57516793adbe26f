package types

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// Stage is a named table, e.g. "seed-to-soil".
type Stage struct {
	Name  string `json:"name"`
	Table Table  `json:"rules"`
}

// Almanac is a parsed puzzle input: seed values and the ordered stages
// they are mapped through.
type Almanac struct {
	Name   string   `json:"name,omitempty"`
	Seeds  []uint64 `json:"seeds"`
	Stages []Stage  `json:"stages"`
}

// Pipeline returns the stages' tables as a pipeline.
func (a *Almanac) Pipeline() Pipeline {
	tables := make([]Table, len(a.Stages))
	for i, s := range a.Stages {
		tables[i] = s.Table
	}
	return NewPipeline(tables...)
}

// SeedRanges reads the seeds as (start, length) pairs.
func (a *Almanac) SeedRanges() ([]Interval, error) {
	return SeedRanges(a.Seeds)
}

// StageNames returns stage names in pipeline order.
func (a *Almanac) StageNames() []string {
	names := make([]string, len(a.Stages))
	for i, s := range a.Stages {
		names[i] = s.Name
	}
	return names
}

// LowestScalar maps each seed as a single value and returns the lowest result.
func (a *Almanac) LowestScalar() (uint64, error) {
	if len(a.Seeds) == 0 {
		return 0, ErrNoSeeds
	}
	p := a.Pipeline()
	lowest := p.Lookup(a.Seeds[0])
	for _, seed := range a.Seeds[1:] {
		if v := p.Lookup(seed); v < lowest {
			lowest = v
		}
	}
	return lowest, nil
}

// LowestRange maps the seed ranges and returns the lowest value reached
// along with the final intervals.
func (a *Almanac) LowestRange() (uint64, []Interval, error) {
	ranges, err := a.SeedRanges()
	if err != nil {
		return 0, nil, err
	}
	resolved := a.Pipeline().Resolve(ranges)
	lowest, ok := MinLow(resolved)
	if !ok {
		return 0, nil, ErrNoSeeds
	}
	return lowest, resolved, nil
}

// Digest is a SHA-1 over seeds, stage names and rules. Two almanacs with the
// same digest produce the same answers.
func (a *Almanac) Digest() string {
	h := sha1.New()
	var buf [8]byte
	writeU64 := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	writeU64(uint64(len(a.Seeds)))
	for _, s := range a.Seeds {
		writeU64(s)
	}
	for _, st := range a.Stages {
		h.Write([]byte(st.Name))
		h.Write([]byte{0})
		writeU64(uint64(st.Table.Len()))
		for _, r := range st.Table.rules {
			writeU64(r.SourceStart)
			writeU64(r.DestStart)
			writeU64(r.Span)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (a *Almanac) String() string {
	return fmt.Sprintf("almanac %q: %d seeds, %d stages", a.Name, len(a.Seeds), len(a.Stages))
}

// Answer is a solved almanac.
type Answer struct {
	ID       int64      `json:"id,omitempty"`
	Almanac  string     `json:"almanac"`
	Digest   string     `json:"digest"`
	Stages   int        `json:"stages"`
	Scalar   uint64     `json:"lowest_scalar"`
	Range    uint64     `json:"lowest_range"`
	Ranges   []Interval `json:"ranges,omitempty"`
	SolvedAt time.Time  `json:"solved_at"`
	Workers  int        `json:"workers,omitempty"`
}
