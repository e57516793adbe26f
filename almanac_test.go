package almanac

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func exampleSolver(t *testing.T, opts ...Option) *Solver {
	t.Helper()
	a, err := LoadBuiltinAlmanac("example")
	require.NoError(t, err)
	solver, err := NewSolver(a, opts...)
	require.NoError(t, err)
	return solver
}

func sortIntervals(in []Interval) []Interval {
	out := append([]Interval(nil), in...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Low != out[j].Low {
			return out[i].Low < out[j].Low
		}
		return out[i].High < out[j].High
	})
	return out
}

func TestNewSolver(t *testing.T) {
	solver := exampleSolver(t)
	assert.Equal(t, 7, solver.Pipeline().Len())
	assert.Equal(t, "example", solver.Almanac().Name)
}

func TestNewSolver_InvalidAlmanac(t *testing.T) {
	_, err := NewSolver(&Almanac{Name: "empty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating almanac")
}

func TestNewSolver_InvalidFilter(t *testing.T) {
	a, err := LoadBuiltinAlmanac("example")
	require.NoError(t, err)

	_, err = NewSolver(a, WithStageFilter([]string{"[bad"}, nil))
	assert.Error(t, err)
}

func TestSolver_LookupScalars(t *testing.T) {
	solver := exampleSolver(t)

	assert.Equal(t, uint64(82), solver.LookupScalar(79))
	assert.Equal(t, []uint64{82, 43, 86, 35}, solver.LookupScalars([]uint64{79, 14, 55, 13}))
}

func TestSolver_ResolveRanges(t *testing.T) {
	solver := exampleSolver(t)

	out, err := solver.ResolveRanges([]Interval{{Low: 79, High: 92}, {Low: 55, High: 67}})
	require.NoError(t, err)
	assert.Equal(t, []Interval{
		{Low: 46, High: 55},
		{Low: 57, High: 60},
		{Low: 60, High: 60},
		{Low: 82, High: 84},
		{Low: 86, High: 90},
		{Low: 95, High: 97},
		{Low: 98, High: 98},
	}, sortIntervals(out))

	_, err = solver.ResolveRanges([]Interval{{Low: 9, High: 3}})
	assert.Error(t, err)
}

func TestSolver_ResolveParallelMatchesSequential(t *testing.T) {
	defer goleak.VerifyNone(t)

	solver := exampleSolver(t, WithWorkers(4))
	in := []Interval{
		{Low: 79, High: 92}, {Low: 55, High: 67}, {Low: 0, High: 100},
		{Low: 14, High: 14}, {Low: 90, High: 200},
	}

	sequential, err := solver.ResolveRanges(in)
	require.NoError(t, err)
	parallel, err := solver.ResolveParallel(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, sortIntervals(sequential), sortIntervals(parallel))
}

func TestSolver_ResolveParallelCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	solver := exampleSolver(t, WithWorkers(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := solver.ResolveParallel(ctx, []Interval{{Low: 1, High: 2}, {Low: 3, High: 4}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolver_Solve(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zap.InfoLevel)
	solver := exampleSolver(t, WithWorkers(3), WithLogger(zap.New(core)))

	answer, err := solver.Solve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(35), answer.Scalar)
	assert.Equal(t, uint64(46), answer.Range)
	assert.Equal(t, "example", answer.Almanac)
	assert.Equal(t, solver.Almanac().Digest(), answer.Digest)
	assert.Equal(t, 7, answer.Stages)
	assert.Equal(t, 3, answer.Workers)
	assert.False(t, answer.SolvedAt.IsZero())

	entries := logs.FilterMessage("almanac solved").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "example", entries[0].ContextMap()["almanac"])
}

func TestSolver_SolveFilteredStages(t *testing.T) {
	solver := exampleSolver(t, WithStageFilter([]string{"^seed-to-soil$"}, nil))

	answer, err := solver.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, answer.Stages)
	assert.Equal(t, uint64(13), answer.Scalar)
	assert.Equal(t, uint64(57), answer.Range)
}

func TestSolver_SolveOddSeeds(t *testing.T) {
	a, err := LoadBuiltinAlmanac("example")
	require.NoError(t, err)
	a.Seeds = []uint64{79, 14, 55}

	solver, err := NewSolver(a)
	require.NoError(t, err)

	_, err = solver.Solve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deriving seed ranges")
}

func TestLoadBuiltinAlmanac_Boundary(t *testing.T) {
	a, err := LoadBuiltinAlmanac("boundary")
	require.NoError(t, err)

	solver, err := NewSolver(a)
	require.NoError(t, err)

	answer, err := solver.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), answer.Scalar)
	assert.Equal(t, uint64(5), answer.Range)
}
