package types

import (
	"fmt"
	"math/bits"
)

// addChecked returns a+b or ErrOverflow.
func addChecked(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%d + %d: %w", a, b, ErrOverflow)
	}
	return sum, nil
}

// subChecked returns a-b or ErrOverflow.
func subChecked(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%d - %d: %w", a, b, ErrOverflow)
	}
	return diff, nil
}

func mustAdd(op string, a, b uint64) uint64 {
	sum, err := addChecked(a, b)
	if err != nil {
		invariant(op, err)
	}
	return sum
}

func mustSub(op string, a, b uint64) uint64 {
	diff, err := subChecked(a, b)
	if err != nil {
		invariant(op, err)
	}
	return diff
}
