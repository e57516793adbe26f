package rule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/praetorian-inc/almanac/pkg/types"
)

// FilterConfig specifies include and exclude patterns for stage filtering.
type FilterConfig struct {
	Include []string // Regex patterns - only matching stages included
	Exclude []string // Regex patterns - matching stages excluded
}

// ParsePatterns splits a comma-separated string into individual patterns.
// Patterns are trimmed of whitespace.
func ParsePatterns(patterns string) []string {
	if patterns == "" {
		return []string{}
	}

	parts := strings.Split(patterns, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Filter applies include and exclude patterns to stage names, keeping
// pipeline order. Include is applied first, then exclude.
// Empty include means "include all".
// Returns error if any pattern is invalid regex.
func Filter(stages []types.Stage, config FilterConfig) ([]types.Stage, error) {
	if len(stages) == 0 {
		return stages, nil
	}

	includeRegexes, err := compileAll(config.Include)
	if err != nil {
		return nil, err
	}
	excludeRegexes, err := compileAll(config.Exclude)
	if err != nil {
		return nil, err
	}

	filtered := stages
	if len(includeRegexes) > 0 {
		filtered = keep(filtered, includeRegexes, true)
	}
	if len(excludeRegexes) > 0 {
		filtered = keep(filtered, excludeRegexes, false)
	}

	return filtered, nil
}

// FilterAlmanac returns a copy of a with its stages filtered.
func FilterAlmanac(a *types.Almanac, config FilterConfig) (*types.Almanac, error) {
	stages, err := Filter(a.Stages, config)
	if err != nil {
		return nil, err
	}
	out := *a
	out.Stages = stages
	return &out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	var regexes []*regexp.Regexp
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		regexes = append(regexes, re)
	}
	return regexes, nil
}

func keep(stages []types.Stage, regexes []*regexp.Regexp, match bool) []types.Stage {
	result := make([]types.Stage, 0, len(stages))
	for _, s := range stages {
		if matchesAny(s.Name, regexes) == match {
			result = append(result, s)
		}
	}
	return result
}

func matchesAny(name string, regexes []*regexp.Regexp) bool {
	for _, re := range regexes {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
