// Package almanac maps integer values and integer ranges through ordered
// stages of piecewise translation tables.
//
// Each stage is a table of rules; a rule moves the source values it covers
// to a destination domain by a fixed offset and leaves the rest untouched.
// Single values take the first covering rule of each stage. Ranges are cut
// against every rule, so one input range can leave a stage as several.
//
// # Basic Usage
//
// Load an almanac and compute both answers:
//
//	a, err := almanac.LoadAlmanacFile("input.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	solver, err := almanac.NewSolver(a)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	answer, err := solver.Solve(ctx)
//	fmt.Println(answer.Scalar, answer.Range)
//
// # Ranges
//
// Resolve explicit inclusive ranges, fanning out over workers:
//
//	solver, _ := almanac.NewSolver(a, almanac.WithWorkers(8))
//	out, err := solver.ResolveParallel(ctx, []almanac.Interval{{Low: 79, High: 92}})
package almanac

import (
	"context"
	"fmt"
	"time"

	"github.com/praetorian-inc/almanac/pkg/rule"
	"github.com/praetorian-inc/almanac/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Re-export commonly used types for convenience.
// Users can import just "github.com/praetorian-inc/almanac" without subpackages.
type (
	// Interval is an inclusive integer range.
	Interval = types.Interval

	// Rule maps a contiguous source range to a destination range.
	Rule = types.Rule

	// Table is one stage's ordered rules.
	Table = types.Table

	// Pipeline is an ordered sequence of tables.
	Pipeline = types.Pipeline

	// Stage is a named table.
	Stage = types.Stage

	// Almanac is a parsed input: seeds plus stages.
	Almanac = types.Almanac

	// Answer holds both lowest locations for an almanac.
	Answer = types.Answer
)

// Solver runs values and ranges through an almanac's pipeline. It holds no
// mutable state and is safe for concurrent use.
type Solver struct {
	almanac  *types.Almanac
	pipeline types.Pipeline
	config   *solverConfig
}

// solverConfig holds solver configuration.
type solverConfig struct {
	workers int
	logger  *zap.Logger
	filter  rule.FilterConfig
}

// Option configures a Solver.
type Option func(*solverConfig)

// WithWorkers sets how many goroutines ResolveParallel uses. Default is 1.
func WithWorkers(workers int) Option {
	return func(c *solverConfig) {
		c.workers = workers
	}
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *solverConfig) {
		c.logger = logger
	}
}

// WithStageFilter restricts the pipeline to stages whose names match
// include (all when empty) and do not match exclude.
func WithStageFilter(include, exclude []string) Option {
	return func(c *solverConfig) {
		c.filter = rule.FilterConfig{Include: include, Exclude: exclude}
	}
}

// NewSolver validates the almanac and builds its pipeline.
func NewSolver(a *Almanac, opts ...Option) (*Solver, error) {
	config := &solverConfig{
		workers: 1,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.workers < 1 {
		config.workers = 1
	}
	if config.logger == nil {
		config.logger = zap.NewNop()
	}

	if err := rule.ValidateAlmanac(a); err != nil {
		return nil, fmt.Errorf("validating almanac: %w", err)
	}

	filtered, err := rule.FilterAlmanac(a, config.filter)
	if err != nil {
		return nil, fmt.Errorf("filtering stages: %w", err)
	}

	config.logger.Debug("solver ready",
		zap.String("almanac", a.Name),
		zap.Strings("stages", filtered.StageNames()),
		zap.Int("workers", config.workers))

	return &Solver{
		almanac:  filtered,
		pipeline: filtered.Pipeline(),
		config:   config,
	}, nil
}

// Almanac returns the almanac the solver runs, after stage filtering.
func (s *Solver) Almanac() *Almanac {
	return s.almanac
}

// Pipeline returns the solver's pipeline.
func (s *Solver) Pipeline() Pipeline {
	return s.pipeline
}

// LookupScalar maps a single value through every stage.
func (s *Solver) LookupScalar(value uint64) uint64 {
	return s.pipeline.Lookup(value)
}

// LookupScalars maps each value independently.
func (s *Solver) LookupScalars(values []uint64) []uint64 {
	out := make([]uint64, len(values))
	for i, v := range values {
		out[i] = s.pipeline.Lookup(v)
	}
	return out
}

// ResolveRanges maps ranges through every stage on the calling goroutine.
// Malformed ranges are reported as an error instead of reaching the pipeline.
func (s *Solver) ResolveRanges(ranges []Interval) ([]Interval, error) {
	if err := validateRanges(ranges); err != nil {
		return nil, err
	}
	return s.pipeline.Resolve(ranges), nil
}

// ResolveParallel maps each input range through the pipeline on its own
// task, bounded by the configured workers. Output is grouped by input range
// in input order.
func (s *Solver) ResolveParallel(ctx context.Context, ranges []Interval) ([]Interval, error) {
	if err := validateRanges(ranges); err != nil {
		return nil, err
	}
	if s.config.workers == 1 || len(ranges) < 2 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s.pipeline.Resolve(ranges), nil
	}

	results := make([][]Interval, len(ranges))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.workers)

	for i, r := range ranges {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.pipeline.Resolve([]Interval{r})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Interval
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// Solve computes the lowest location reached by the seeds taken as single
// values, and by the seeds taken as (start, length) ranges.
func (s *Solver) Solve(ctx context.Context) (*Answer, error) {
	start := time.Now()
	log := s.config.logger.With(zap.String("almanac", s.almanac.Name))

	scalar, err := s.almanac.LowestScalar()
	if err != nil {
		return nil, fmt.Errorf("mapping seeds: %w", err)
	}
	log.Debug("scalar seeds mapped", zap.Uint64("lowest", scalar))

	seedRanges, err := s.almanac.SeedRanges()
	if err != nil {
		return nil, fmt.Errorf("deriving seed ranges: %w", err)
	}
	resolved, err := s.ResolveParallel(ctx, seedRanges)
	if err != nil {
		return nil, fmt.Errorf("resolving seed ranges: %w", err)
	}
	lowest, ok := types.MinLow(resolved)
	if !ok {
		return nil, fmt.Errorf("resolving seed ranges: %w", types.ErrNoSeeds)
	}
	log.Debug("seed ranges resolved",
		zap.Int("inputs", len(seedRanges)),
		zap.Int("outputs", len(resolved)),
		zap.Uint64("lowest", lowest))

	answer := &Answer{
		Almanac:  s.almanac.Name,
		Digest:   s.almanac.Digest(),
		Stages:   s.pipeline.Len(),
		Scalar:   scalar,
		Range:    lowest,
		Ranges:   resolved,
		SolvedAt: time.Now().UTC(),
		Workers:  s.config.workers,
	}
	log.Info("almanac solved",
		zap.Uint64("lowest_scalar", scalar),
		zap.Uint64("lowest_range", lowest),
		zap.Duration("elapsed", time.Since(start)))
	return answer, nil
}

// LoadAlmanacFile loads an almanac from a text or YAML file.
//
// Example:
//
//	a, err := almanac.LoadAlmanacFile("/path/to/input.txt")
//	if err != nil {
//	    return err
//	}
//	solver, err := almanac.NewSolver(a)
func LoadAlmanacFile(path string) (*Almanac, error) {
	return rule.NewLoader().LoadAlmanacFile(path)
}

// LoadBuiltinAlmanac returns a builtin almanac by name ("example" or
// "boundary").
func LoadBuiltinAlmanac(name string) (*Almanac, error) {
	return rule.NewLoader().LoadBuiltinAlmanac(name)
}

func validateRanges(ranges []Interval) error {
	for i, r := range ranges {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("range %d: %w", i, err)
		}
	}
	return nil
}
