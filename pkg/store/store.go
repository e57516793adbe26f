package store

import (
	"errors"
	"fmt"

	"github.com/praetorian-inc/almanac/pkg/types"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Store provides persistence for almanacs and their solved runs.
// This interface abstracts the underlying storage implementation,
// allowing for different backends (SQLite, in-memory).
type Store interface {
	// AddAlmanac stores an almanac keyed by its digest. Idempotent.
	AddAlmanac(a *types.Almanac) error

	// GetAlmanac retrieves an almanac by digest.
	GetAlmanac(digest string) (*types.Almanac, error)

	// AddRun stores a solved answer with its final ranges and sets its ID.
	AddRun(ans *types.Answer) error

	// GetRuns retrieves all runs, oldest first, without their ranges.
	GetRuns() ([]*types.Answer, error)

	// GetRanges retrieves the final ranges of a run.
	GetRanges(runID int64) ([]types.Interval, error)

	// LatestRun retrieves the most recent run for an almanac digest.
	LatestRun(digest string) (*types.Answer, error)

	// RunExists checks if an almanac digest has already been solved.
	RunExists(digest string) (bool, error)

	// Close closes the database connection.
	Close() error
}

// Config for store initialization.
type Config struct {
	// Path is the database file path.
	// Use ":memory:" for an in-process store (useful for testing).
	Path string
}

// New creates a new Store: MemoryStore for ":memory:", SQLite otherwise.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if cfg.Path == ":memory:" {
		return NewMemory(), nil
	}

	return NewSQLite(cfg.Path)
}
