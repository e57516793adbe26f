package types

import "fmt"

// Interval is the inclusive integer range [Low, High].
type Interval struct {
	Low  uint64 `json:"low" yaml:"low"`
	High uint64 `json:"high" yaml:"high"`
}

// NewInterval returns [low, high] or ErrInvalidInterval when low > high.
func NewInterval(low, high uint64) (Interval, error) {
	iv := Interval{Low: low, High: high}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate reports whether the interval is well formed.
func (iv Interval) Validate() error {
	if iv.Low > iv.High {
		return fmt.Errorf("[%d, %d]: %w", iv.Low, iv.High, ErrInvalidInterval)
	}
	return nil
}

// Len returns the number of integers in the interval. The full 64-bit
// domain has 2^64 members and reports ok=false.
func (iv Interval) Len() (n uint64, ok bool) {
	n, err := addChecked(iv.High-iv.Low, 1)
	return n, err == nil
}

// Contains reports whether v lies in the interval.
func (iv Interval) Contains(v uint64) bool {
	return v >= iv.Low && v <= iv.High
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d, %d]", iv.Low, iv.High)
}

// MinLow returns the smallest Low across intervals. ok is false for an
// empty slice.
func MinLow(intervals []Interval) (min uint64, ok bool) {
	for i, iv := range intervals {
		if i == 0 || iv.Low < min {
			min = iv.Low
		}
	}
	return min, len(intervals) > 0
}

func mustValid(op string, iv Interval) {
	if err := iv.Validate(); err != nil {
		invariant(op, err)
	}
}
