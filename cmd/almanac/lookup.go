package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/praetorian-inc/almanac"
	"github.com/praetorian-inc/almanac/pkg/types"
	"github.com/spf13/cobra"
)

var (
	lookupFormat string
	lookupTrace  bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <almanac|builtin[:name]> <value> [value...]",
	Short: "Map single values through every stage",
	Long:  "Map each value through the almanac's stages, first matching rule per stage, identity otherwise",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runLookup,
}

var (
	resolveFormat  string
	resolveWorkers int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <almanac|builtin[:name]> <low-high> [low-high...]",
	Short: "Map inclusive ranges through every stage",
	Long: `Map each inclusive range through the almanac's stages. Ranges are split at
rule boundaries, so the output may hold more ranges than the input.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runResolve,
}

func init() {
	lookupCmd.Flags().StringVar(&lookupFormat, "format", "human", "Output format: json, human")
	lookupCmd.Flags().BoolVar(&lookupTrace, "trace", false, "Show the value after each stage")

	resolveCmd.Flags().StringVar(&resolveFormat, "format", "human", "Output format: json, human")
	resolveCmd.Flags().IntVar(&resolveWorkers, "workers", 4, "Number of goroutines resolving ranges")
}

// lookupEntry is one value's path through the pipeline.
type lookupEntry struct {
	Value    uint64   `json:"value"`
	Location uint64   `json:"location"`
	Trace    []uint64 `json:"trace,omitempty"`
}

func runLookup(cmd *cobra.Command, args []string) error {
	a, err := loadAlmanacArg(args[0])
	if err != nil {
		return fmt.Errorf("loading almanac: %w", err)
	}
	values, err := parseValues(args[1:])
	if err != nil {
		return err
	}

	solver, err := almanac.NewSolver(a, almanac.WithLogger(logger))
	if err != nil {
		return err
	}

	entries := make([]lookupEntry, len(values))
	for i, v := range values {
		entries[i] = lookupEntry{Value: v, Location: solver.LookupScalar(v)}
		if lookupTrace {
			entries[i].Trace = traceValue(solver.Pipeline(), v)
		}
	}

	switch lookupFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	case "human":
		out := cmd.OutOrStdout()
		lowest := entries[0].Location
		for _, e := range entries {
			lowest = min(lowest, e.Location)
			if lookupTrace {
				fmt.Fprintf(out, "%d: %s\n", e.Value, joinValues(e.Trace))
				continue
			}
			fmt.Fprintf(out, "%d -> %d\n", e.Value, e.Location)
		}
		fmt.Fprintf(out, "Lowest: %d\n", lowest)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", lookupFormat)
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := loadAlmanacArg(args[0])
	if err != nil {
		return fmt.Errorf("loading almanac: %w", err)
	}
	ranges, err := parseRanges(args[1:])
	if err != nil {
		return err
	}

	solver, err := almanac.NewSolver(a, almanac.WithLogger(logger), almanac.WithWorkers(resolveWorkers))
	if err != nil {
		return err
	}
	resolved, err := solver.ResolveParallel(commandContext(cmd), ranges)
	if err != nil {
		return err
	}
	lowest, _ := types.MinLow(resolved)

	switch resolveFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(struct {
			Ranges []types.Interval `json:"ranges"`
			Lowest uint64           `json:"lowest"`
		}{resolved, lowest})
	case "human":
		out := cmd.OutOrStdout()
		for _, r := range resolved {
			fmt.Fprintf(out, "%s\n", r)
		}
		fmt.Fprintf(out, "Lowest: %d\n", lowest)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", resolveFormat)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// traceValue returns v followed by its value after each stage.
func traceValue(p types.Pipeline, v uint64) []uint64 {
	trace := []uint64{v}
	for _, t := range p.Tables() {
		v = t.Lookup(v)
		trace = append(trace, v)
	}
	return trace
}

func joinValues(values []uint64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, " -> ")
}

func parseValues(args []string) ([]uint64, error) {
	values := make([]uint64, len(args))
	for i, arg := range args {
		v, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", arg, err)
		}
		values[i] = v
	}
	return values, nil
}

// parseRanges reads "low-high" arguments into validated intervals.
func parseRanges(args []string) ([]types.Interval, error) {
	ranges := make([]types.Interval, len(args))
	for i, arg := range args {
		lowStr, highStr, ok := strings.Cut(arg, "-")
		if !ok {
			return nil, fmt.Errorf("invalid range %q: expected low-high", arg)
		}
		bounds, err := parseValues([]string{lowStr, highStr})
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", arg, err)
		}
		ranges[i], err = types.NewInterval(bounds[0], bounds[1])
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", arg, err)
		}
	}
	return ranges, nil
}
