package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Table is one stage of a pipeline: an ordered set of rules with
// non-overlapping source domains. A Table is immutable after NewTable.
type Table struct {
	rules []Rule
}

// NewTable validates and copies rules into a Table.
func NewTable(rules ...Rule) (Table, error) {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return Table{}, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	if err := checkOverlap(rules); err != nil {
		return Table{}, err
	}
	return Table{rules: append([]Rule(nil), rules...)}, nil
}

// Rules returns a copy of the table's rules in lookup order.
func (t Table) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// Len returns the number of rules.
func (t Table) Len() int {
	return len(t.rules)
}

// Lookup maps v through the first covering rule, or returns v unchanged.
func (t Table) Lookup(v uint64) uint64 {
	for _, r := range t.rules {
		if mapped, ok := r.Lookup(v); ok {
			return mapped
		}
	}
	return v
}

// pending is a not yet resolved sub-interval and the index of the next rule
// it must be tried against.
type pending struct {
	iv   Interval
	next int
}

// Resolve maps every input interval through the table. Each sub-interval is
// tried against each rule at most once, in rule order; whatever no rule
// covers passes through unchanged. The output covers the image of every
// input value, in no particular order.
func (t Table) Resolve(intervals []Interval) []Interval {
	out := make([]Interval, 0, len(intervals))
	var stack []pending

	for _, iv := range intervals {
		mustValid("table resolve", iv)
		stack = append(stack[:0], pending{iv: iv})

		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if p.next == len(t.rules) {
				out = append(out, p.iv)
				continue
			}

			s := t.rules[p.next].Split(p.iv)
			if s.Resolved != nil {
				out = append(out, *s.Resolved)
			}
			for _, u := range s.Unresolved {
				stack = append(stack, pending{iv: u, next: p.next + 1})
			}
		}
	}

	return out
}

// MarshalJSON encodes the table as its rule list.
func (t Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Rules())
}

// UnmarshalJSON decodes and validates a rule list.
func (t *Table) UnmarshalJSON(data []byte) error {
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return err
	}
	table, err := NewTable(rules...)
	if err != nil {
		return err
	}
	*t = table
	return nil
}

// checkOverlap rejects rules whose count-width domains [source, source+span-1]
// intersect. The extra value the inclusive upper bound adds is not counted,
// so rules written back to back are accepted.
func checkOverlap(rules []Rule) error {
	type claim struct {
		idx    int
		lo, hi uint64
	}

	claims := make([]claim, len(rules))
	for i, r := range rules {
		hi := r.SourceStart
		if r.Span > 0 {
			hi = r.SourceStart + r.Span - 1
		}
		claims[i] = claim{idx: i, lo: r.SourceStart, hi: hi}
	}
	sort.Slice(claims, func(a, b int) bool {
		return claims[a].lo < claims[b].lo
	})

	for i := 1; i < len(claims); i++ {
		prev, cur := claims[i-1], claims[i]
		if cur.lo <= prev.hi {
			return fmt.Errorf("rules %d and %d claim %d: %w",
				prev.idx, cur.idx, cur.lo, ErrOverlappingRules)
		}
	}
	return nil
}
