package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/praetorian-inc/almanac"
	"github.com/praetorian-inc/almanac/pkg/rule"
	"github.com/praetorian-inc/almanac/pkg/store"
	"github.com/praetorian-inc/almanac/pkg/types"
	"go.uber.org/zap"
)

// DefaultBuiltin is the builtin almanac loaded for "" or "builtin".
const DefaultBuiltin = "example"

var (
	// cachedBuiltin holds the builtin almanac loaded once per process
	cachedBuiltin    *types.Almanac
	cachedBuiltinErr error
	cacheOnce        sync.Once
)

// loadBuiltinCached loads the builtin almanac once and caches it
func loadBuiltinCached() (*types.Almanac, error) {
	cacheOnce.Do(func() {
		cachedBuiltin, cachedBuiltinErr = rule.NewLoader().LoadBuiltinAlmanac(DefaultBuiltin)
	})
	return cachedBuiltin, cachedBuiltinErr
}

// Core wraps a solver and a run store for streaming clients.
type Core struct {
	solver *almanac.Solver
	store  store.Store
	logger *zap.Logger
}

// NewCore creates a Core for an almanac.
// almanacJSON can be:
// - "" or "builtin" to load the builtin example (cached)
// - a JSON encoded almanac
func NewCore(almanacJSON string, logger *zap.Logger, opts ...almanac.Option) (*Core, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var a *types.Almanac
	if almanacJSON == "" || almanacJSON == "builtin" {
		logger.Debug("loading builtin almanac", zap.String("name", DefaultBuiltin))
		var err error
		a, err = loadBuiltinCached()
		if err != nil {
			return nil, fmt.Errorf("loading builtin almanac: %w", err)
		}
	} else {
		a = &types.Almanac{}
		if err := json.Unmarshal([]byte(almanacJSON), a); err != nil {
			return nil, fmt.Errorf("parsing almanac JSON: %w", err)
		}
	}

	return NewCoreFromAlmanac(a, logger, opts...)
}

// NewCoreFromAlmanac creates a Core for an already loaded almanac.
func NewCoreFromAlmanac(a *types.Almanac, logger *zap.Logger, opts ...almanac.Option) (*Core, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	solver, err := almanac.NewSolver(a, append([]almanac.Option{almanac.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}

	s, err := store.New(store.Config{Path: ":memory:"})
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	if err := s.AddAlmanac(solver.Almanac()); err != nil {
		s.Close()
		return nil, fmt.Errorf("storing almanac: %w", err)
	}

	logger.Debug("core ready", zap.String("almanac", a.Name), zap.Int("stages", solver.Pipeline().Len()))
	return &Core{
		solver: solver,
		store:  s,
		logger: logger,
	}, nil
}

// Almanac returns the almanac the core serves.
func (c *Core) Almanac() *types.Almanac {
	return c.solver.Almanac()
}

// Lookup maps each value through the pipeline.
func (c *Core) Lookup(values []uint64) (*LookupResult, error) {
	if len(values) == 0 {
		return nil, errors.New("no values given")
	}
	mapped := c.solver.LookupScalars(values)
	lowest := mapped[0]
	for _, v := range mapped[1:] {
		lowest = min(lowest, v)
	}
	return &LookupResult{
		Values: values,
		Mapped: mapped,
		Lowest: lowest,
	}, nil
}

// Resolve maps inclusive ranges through the pipeline.
func (c *Core) Resolve(ctx context.Context, ranges []types.Interval) (*ResolveResult, error) {
	if len(ranges) == 0 {
		return nil, errors.New("no ranges given")
	}
	resolved, err := c.solver.ResolveParallel(ctx, ranges)
	if err != nil {
		return nil, err
	}
	lowest, _ := types.MinLow(resolved)
	return &ResolveResult{
		Ranges: resolved,
		Lowest: lowest,
	}, nil
}

// Solve computes both answers for the almanac and records the run.
func (c *Core) Solve(ctx context.Context) (*types.Answer, error) {
	ans, err := c.solver.Solve(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store.AddRun(ans); err != nil {
		// Two solves within the clock's resolution collide; the answer is still good.
		c.logger.Warn("run not recorded", zap.Error(err))
	}
	return ans, nil
}

// Runs returns the runs solved by this core, oldest first.
func (c *Core) Runs() ([]*types.Answer, error) {
	return c.store.GetRuns()
}

// Close releases core resources
func (c *Core) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// GetBuiltinAlmanac returns the builtin almanac (cached)
func GetBuiltinAlmanac() (*types.Almanac, error) {
	return loadBuiltinCached()
}
