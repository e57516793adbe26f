package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval is returned when an interval has Low > High.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrOverlappingRules is returned when two rules in one table claim the
	// same source values.
	ErrOverlappingRules = errors.New("overlapping rules")

	// ErrOverflow is returned when a rule or interval does not fit in 64 bits.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrNoSeeds is returned when an answer is requested for an almanac
	// without seeds.
	ErrNoSeeds = errors.New("no seeds")

	// ErrOddSeeds is returned when seed values cannot be paired into ranges.
	ErrOddSeeds = errors.New("odd number of seed values")
)

// InvariantError is the panic value used when an operation receives a value
// that breaks a precondition its constructor would have rejected.
type InvariantError struct {
	Op  string
	Err error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: invariant violated: %v", e.Op, e.Err)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

func invariant(op string, err error) {
	panic(&InvariantError{Op: op, Err: err})
}
