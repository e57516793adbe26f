package types

import "fmt"

// Rule maps the source values it covers onto a destination domain with a
// fixed offset.
//
// A rule covers every v with SourceStart <= v <= SourceStart+Span, so its
// source domain is Span+1 values wide. Two rules written as contiguous
// (one's SourceStart equal to the other's SourceStart+Span) share one value;
// inside a Table the earlier rule wins it.
type Rule struct {
	SourceStart uint64 `json:"source" yaml:"source"`
	DestStart   uint64 `json:"dest" yaml:"dest"`
	Span        uint64 `json:"span" yaml:"span"`
}

// NewRule returns a rule whose source and destination ends fit in 64 bits.
func NewRule(sourceStart, destStart, span uint64) (Rule, error) {
	r := Rule{SourceStart: sourceStart, DestStart: destStart, Span: span}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate checks that both ends of the rule are representable.
func (r Rule) Validate() error {
	if _, err := addChecked(r.SourceStart, r.Span); err != nil {
		return fmt.Errorf("rule source end: %w", err)
	}
	if _, err := addChecked(r.DestStart, r.Span); err != nil {
		return fmt.Errorf("rule dest end: %w", err)
	}
	return nil
}

// SourceEnd is the last source value the rule covers (inclusive).
func (r Rule) SourceEnd() uint64 {
	return mustAdd("rule source end", r.SourceStart, r.Span)
}

// DestEnd is the image of SourceEnd.
func (r Rule) DestEnd() uint64 {
	return mustAdd("rule dest end", r.DestStart, r.Span)
}

// SourceInterval is the rule's effective source domain.
func (r Rule) SourceInterval() Interval {
	return Interval{Low: r.SourceStart, High: r.SourceEnd()}
}

// Covers reports whether v falls in the rule's source domain.
func (r Rule) Covers(v uint64) bool {
	return v >= r.SourceStart && v <= r.SourceEnd()
}

// Lookup maps v. ok is false when the rule does not cover v; that is not an
// error, callers fall through to the next rule.
func (r Rule) Lookup(v uint64) (mapped uint64, ok bool) {
	if !r.Covers(v) {
		return 0, false
	}
	return r.translate(v), true
}

// translate maps a covered source value; callers guarantee coverage.
func (r Rule) translate(v uint64) uint64 {
	return mustAdd("rule translate", r.DestStart, mustSub("rule translate", v, r.SourceStart))
}

func (r Rule) String() string {
	return fmt.Sprintf("%d..%d -> %d..%d", r.SourceStart, r.SourceEnd(), r.DestStart, r.DestEnd())
}
