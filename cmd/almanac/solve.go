package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/praetorian-inc/almanac"
	"github.com/praetorian-inc/almanac/pkg/rule"
	"github.com/praetorian-inc/almanac/pkg/store"
	"github.com/praetorian-inc/almanac/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	solveDatastore     string
	solveFormat        string
	solveIncremental   bool
	solveWorkers       int
	solveStagesInclude string
	solveStagesExclude string
	solveShowRanges    bool
	solveColor         string
)

var solveCmd = &cobra.Command{
	Use:   "solve <almanac|builtin[:name]>",
	Short: "Compute the lowest locations for an almanac",
	Long: `Map every seed through the almanac's stages and report the lowest
location, then read the seeds as (start, length) pairs and report the lowest
location any seed range reaches.

The almanac may be a text or YAML file, or "builtin" for the bundled example.`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&solveDatastore, "datastore", "almanac.db", "Database to record runs in (empty to disable)")
	solveCmd.Flags().StringVar(&solveFormat, "format", "human", "Output format: json, human")
	solveCmd.Flags().BoolVar(&solveIncremental, "incremental", false, "Reuse the stored answer when this almanac was already solved")
	solveCmd.Flags().IntVar(&solveWorkers, "workers", 4, "Number of goroutines resolving seed ranges")
	solveCmd.Flags().StringVar(&solveStagesInclude, "stages-include", "", "Include stages matching regex pattern (comma-separated)")
	solveCmd.Flags().StringVar(&solveStagesExclude, "stages-exclude", "", "Exclude stages matching regex pattern (comma-separated)")
	solveCmd.Flags().BoolVar(&solveShowRanges, "ranges", false, "List the final seed ranges")
	solveCmd.Flags().StringVar(&solveColor, "color", "auto", "Color output: auto, always, never")
}

func runSolve(cmd *cobra.Command, args []string) error {
	if solveFormat != "json" && solveFormat != "human" {
		return fmt.Errorf("unknown output format: %s", solveFormat)
	}

	a, err := loadAlmanacArg(args[0])
	if err != nil {
		return fmt.Errorf("loading almanac: %w", err)
	}

	solver, err := almanac.NewSolver(a,
		almanac.WithWorkers(solveWorkers),
		almanac.WithLogger(logger),
		almanac.WithStageFilter(rule.ParsePatterns(solveStagesInclude), rule.ParsePatterns(solveStagesExclude)),
	)
	if err != nil {
		return err
	}

	// Open store unless disabled
	var s store.Store
	if solveDatastore != "" {
		s, err = store.New(store.Config{Path: solveDatastore})
		if err != nil {
			return fmt.Errorf("creating store: %w", err)
		}
		defer s.Close()
	}

	ans, reused, err := solveOrReuse(commandContext(cmd), solver, s)
	if err != nil {
		return err
	}

	// Status goes to stderr when using json format to keep stdout pure JSON
	status := cmd.OutOrStdout()
	if solveFormat == "json" {
		status = cmd.ErrOrStderr()
	}
	if reused {
		fmt.Fprintf(status, "Almanac %s already solved (run %d)\n", shortDigest(ans.Digest), ans.ID)
	}

	if solveFormat == "json" {
		if err := outputAnswerJSON(cmd.OutOrStdout(), ans); err != nil {
			return err
		}
	} else {
		st := newStyles(colorEnabled(solveColor, cmd.OutOrStdout()))
		outputAnswerHuman(cmd.OutOrStdout(), st, solver.Almanac(), ans, solveShowRanges)
	}

	if solveDatastore != "" {
		fmt.Fprintf(status, "Results stored in: %s\n", solveDatastore)
	}
	return nil
}

// solveOrReuse solves the almanac, or with --incremental returns the stored
// answer for an almanac already in s. New answers are recorded in s.
func solveOrReuse(ctx context.Context, solver *almanac.Solver, s store.Store) (*types.Answer, bool, error) {
	a := solver.Almanac()
	digest := a.Digest()

	if s != nil && solveIncremental {
		exists, err := s.RunExists(digest)
		if err != nil {
			return nil, false, fmt.Errorf("checking run: %w", err)
		}
		if exists {
			ans, err := s.LatestRun(digest)
			if err != nil {
				return nil, false, fmt.Errorf("retrieving run: %w", err)
			}
			ans.Ranges, err = s.GetRanges(ans.ID)
			if err != nil {
				return nil, false, fmt.Errorf("retrieving ranges: %w", err)
			}
			logger.Debug("reusing stored run", zap.String("digest", digest), zap.Int64("run", ans.ID))
			return ans, true, nil
		}
	}

	ans, err := solver.Solve(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("solving: %w", err)
	}

	if s != nil {
		if err := s.AddAlmanac(a); err != nil {
			return nil, false, fmt.Errorf("storing almanac: %w", err)
		}
		if err := s.AddRun(ans); err != nil {
			return nil, false, fmt.Errorf("storing run: %w", err)
		}
	}
	return ans, false, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// loadAlmanacArg loads a file, or a builtin almanac for "builtin" and
// "builtin:<name>".
func loadAlmanacArg(arg string) (*types.Almanac, error) {
	loader := rule.NewLoader()

	if name, ok := strings.CutPrefix(arg, "builtin"); ok && (name == "" || name[0] == ':') {
		name = strings.TrimPrefix(name, ":")
		if name == "" {
			name = "example"
		}
		return loader.LoadBuiltinAlmanac(name)
	}
	return loader.LoadAlmanacFile(arg)
}

// commandContext returns the command's context, which is nil when a RunE is
// called directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func outputAnswerJSON(out io.Writer, ans *types.Answer) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ans)
}

func outputAnswerHuman(out io.Writer, st *styles, a *types.Almanac, ans *types.Answer, showRanges bool) {
	fmt.Fprintf(out, "%s %s (%s %s)\n",
		st.heading.Sprint("Almanac:"),
		st.name.Sprint(a.Name),
		st.heading.Sprint("digest"),
		st.id.Sprint(shortDigest(ans.Digest)))
	fmt.Fprintf(out, "%s %s\n", st.heading.Sprint("Stages:"), st.metadata.Sprint(strings.Join(a.StageNames(), " -> ")))
	fmt.Fprintf(out, "%s %s\n", st.heading.Sprint("Lowest location (seeds):"), st.value.Sprint(ans.Scalar))
	fmt.Fprintf(out, "%s %s\n", st.heading.Sprint("Lowest location (seed ranges):"), st.value.Sprint(ans.Range))
	fmt.Fprintf(out, "%s %d\n", st.heading.Sprint("Final ranges:"), len(ans.Ranges))

	if showRanges {
		for _, r := range ans.Ranges {
			fmt.Fprintf(out, "    %s\n", st.metadata.Sprint(r.String()))
		}
	}
}
