package rule

import (
	"fmt"
	"strings"

	"github.com/praetorian-inc/almanac/pkg/types"
)

// ValidateStage checks the stage name and re-checks its rules.
// Returns error if stage is invalid.
func ValidateStage(s types.Stage) error {
	if s.Name == "" {
		return fmt.Errorf("stage name is required")
	}
	if _, err := types.NewTable(s.Table.Rules()...); err != nil {
		return fmt.Errorf("stage %s: %w", s.Name, err)
	}
	return nil
}

// ValidateAlmanac checks almanac consistency.
// Stage names must be unique, and stages named "<from>-to-<to>" must chain:
// each stage's source category is the previous stage's destination.
func ValidateAlmanac(a *types.Almanac) error {
	if a == nil {
		return fmt.Errorf("almanac is nil")
	}
	if len(a.Stages) == 0 {
		return fmt.Errorf("almanac %s has no stages", a.Name)
	}

	seen := make(map[string]bool)
	for _, s := range a.Stages {
		if err := ValidateStage(s); err != nil {
			return err
		}
		if seen[s.Name] {
			return fmt.Errorf("almanac %s contains duplicate stage: %s", a.Name, s.Name)
		}
		seen[s.Name] = true
	}

	for i := 1; i < len(a.Stages); i++ {
		_, prevTo, ok1 := SplitStageName(a.Stages[i-1].Name)
		from, _, ok2 := SplitStageName(a.Stages[i].Name)
		if ok1 && ok2 && prevTo != from {
			return fmt.Errorf("stage %s does not follow %s: expected source %q",
				a.Stages[i].Name, a.Stages[i-1].Name, prevTo)
		}
	}

	return nil
}

// SplitStageName splits "seed-to-soil" into "seed" and "soil".
func SplitStageName(name string) (from, to string, ok bool) {
	from, to, ok = strings.Cut(name, "-to-")
	if !ok || from == "" || to == "" {
		return "", "", false
	}
	return from, to, true
}
