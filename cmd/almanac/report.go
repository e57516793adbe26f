package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/praetorian-inc/almanac/pkg/store"
	"github.com/praetorian-inc/almanac/pkg/types"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	reportDatastore string
	reportFormat    string
	reportColor     string
	reportDigest    string
	reportMaxRanges int
)

// styles holds color formatters for human output
type styles struct {
	runHeading *color.Color
	id         *color.Color
	name       *color.Color
	heading    *color.Color
	value      *color.Color
	metadata   *color.Color
}

// newStyles creates color formatters for human output
// enabled=false respects --color=never and the NO_COLOR env var
func newStyles(enabled bool) *styles {
	s := &styles{
		runHeading: color.New(color.Bold, color.FgHiWhite),
		id:         color.New(color.FgHiGreen),
		name:       color.New(color.Bold, color.FgHiBlue),
		heading:    color.New(color.Bold),
		value:      color.New(color.FgYellow),
		metadata:   color.New(color.FgHiBlue),
	}

	if !enabled {
		// Disable colors on all formatters
		s.runHeading.DisableColor()
		s.id.DisableColor()
		s.name.DisableColor()
		s.heading.DisableColor()
		s.value.DisableColor()
		s.metadata.DisableColor()
	} else {
		s.runHeading.EnableColor()
		s.id.EnableColor()
		s.name.EnableColor()
		s.heading.EnableColor()
		s.value.EnableColor()
		s.metadata.EnableColor()
	}

	return s
}

// colorEnabled resolves an auto, always or never mode against the output.
func colorEnabled(mode string, out io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default: // "auto"
		// Color only a terminal, and only when NO_COLOR is not set
		f, ok := out.(*os.File)
		if !ok || os.Getenv("NO_COLOR") != "" {
			return false
		}
		return term.IsTerminal(int(f.Fd()))
	}
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a report from recorded runs",
	Long:  "Read solved runs from a datastore and output a summary report",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDatastore, "datastore", "almanac.db", "Path to datastore file")
	reportCmd.Flags().StringVar(&reportFormat, "format", "human", "Output format: human, json")
	reportCmd.Flags().StringVar(&reportColor, "color", "auto", "Color output: auto, always, never")
	reportCmd.Flags().StringVar(&reportDigest, "digest", "", "Only report runs whose almanac digest starts with this prefix")
	reportCmd.Flags().IntVar(&reportMaxRanges, "max-ranges", 3, "Final ranges shown per run in human output (0 for all)")
}

func runReport(cmd *cobra.Command, args []string) error {
	storePath := reportDatastore

	// Check if it's :memory: (invalid for report)
	if storePath == ":memory:" {
		return fmt.Errorf("cannot report from in-memory store")
	}
	if _, err := os.Stat(storePath); err != nil {
		return fmt.Errorf("datastore not found: %s", storePath)
	}

	// Open store
	s, err := store.New(store.Config{
		Path: storePath,
	})
	if err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer s.Close()

	runs, err := s.GetRuns()
	if err != nil {
		return fmt.Errorf("retrieving runs: %w", err)
	}
	runs = filterRuns(runs, reportDigest)

	// Attach ranges to their runs
	for _, r := range runs {
		r.Ranges, err = s.GetRanges(r.ID)
		if err != nil {
			return fmt.Errorf("retrieving ranges for run %d: %w", r.ID, err)
		}
	}

	// Output based on format
	switch reportFormat {
	case "json":
		return outputReportJSON(cmd, runs)
	case "human":
		return outputReportHuman(cmd, runs, storePath)
	default:
		return fmt.Errorf("unknown output format: %s", reportFormat)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func filterRuns(runs []*types.Answer, digestPrefix string) []*types.Answer {
	if digestPrefix == "" {
		return runs
	}
	var kept []*types.Answer
	for _, r := range runs {
		if strings.HasPrefix(r.Digest, digestPrefix) {
			kept = append(kept, r)
		}
	}
	return kept
}

func outputReportJSON(cmd *cobra.Command, runs []*types.Answer) error {
	if runs == nil {
		runs = []*types.Answer{}
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(runs)
}

func outputReportHuman(cmd *cobra.Command, runs []*types.Answer, datastorePath string) error {
	out := cmd.OutOrStdout()
	s := newStyles(colorEnabled(reportColor, out))

	fmt.Fprintf(out, "%s\n", s.runHeading.Sprint("=== Almanac Report ==="))
	fmt.Fprintf(out, "%s %s\n", s.heading.Sprint("Datastore:"), datastorePath)
	fmt.Fprintf(out, "%s %d\n\n", s.heading.Sprint("Total runs:"), len(runs))

	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs.\n")
		return nil
	}

	for i, r := range runs {
		// Run header - "Run N/M" in runHeading style, "(id N)" with ID in id style
		fmt.Fprintf(out, "%s (%s %s)\n",
			s.runHeading.Sprintf("Run %d/%d", i+1, len(runs)),
			s.heading.Sprint("id"),
			s.id.Sprint(r.ID))

		fmt.Fprintf(out, "%s %s (%s %s)\n",
			s.heading.Sprint("Almanac:"),
			s.name.Sprint(r.Almanac),
			s.heading.Sprint("digest"),
			s.id.Sprint(shortDigest(r.Digest)))
		fmt.Fprintf(out, "%s %d, %s %d\n",
			s.heading.Sprint("Stages:"), r.Stages,
			s.heading.Sprint("Workers:"), r.Workers)
		fmt.Fprintf(out, "%s %s\n", s.heading.Sprint("Lowest location (seeds):"), s.value.Sprint(r.Scalar))
		fmt.Fprintf(out, "%s %s\n", s.heading.Sprint("Lowest location (seed ranges):"), s.value.Sprint(r.Range))
		fmt.Fprintf(out, "%s %s\n", s.heading.Sprint("Solved:"), s.metadata.Sprint(r.SolvedAt.Format(time.RFC3339)))

		shown := r.Ranges
		if reportMaxRanges > 0 && len(shown) > reportMaxRanges {
			fmt.Fprintf(out, "Showing %d/%d ranges:\n", reportMaxRanges, len(shown))
			shown = shown[:reportMaxRanges]
		}
		for _, iv := range shown {
			fmt.Fprintf(out, "    %s\n", s.metadata.Sprint(iv.String()))
		}

		fmt.Fprintf(out, "\n")
	}

	return nil
}
