package rule

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/almanac/pkg/types"
	"gopkg.in/yaml.v3"
)

// Format identifies an almanac encoding.
type Format string

const (
	// FormatText is the puzzle's plain text layout.
	FormatText Format = "text"
	// FormatYAML is the structured layout in yaml.go.
	FormatYAML Format = "yaml"
)

// Loader handles loading almanacs from text and YAML files.
type Loader struct {
	fs fs.FS // embedded filesystem for built-in almanacs
}

// NewLoader creates a loader with built-in almanacs from embedded filesystem.
func NewLoader() *Loader {
	return &Loader{
		fs: builtinAlmanacsFS,
	}
}

// NewLoaderWithFS creates a loader with a custom filesystem. Almanacs are
// read from its "almanacs" directory.
func NewLoaderWithFS(fsys fs.FS) *Loader {
	return &Loader{
		fs: fsys,
	}
}

// DetectFormat picks a format from the file extension, falling back to the
// content: text almanacs start with "seeds:" followed by a bare number.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yml", ".yaml":
		return FormatYAML
	case ".txt":
		return FormatText
	}
	rest, ok := bytes.CutPrefix(bytes.TrimSpace(data), []byte(seedsPrefix))
	if ok {
		rest = bytes.TrimLeft(rest, " \t")
		if len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
			return FormatText
		}
	}
	return FormatYAML
}

// LoadAlmanac parses an almanac in the given format.
func (l *Loader) LoadAlmanac(data []byte, format Format) (*types.Almanac, error) {
	switch format {
	case FormatText:
		return ParseText(data)
	case FormatYAML:
		return parseYAML(data)
	default:
		return nil, fmt.Errorf("unknown almanac format: %s", format)
	}
}

// LoadAlmanacFile loads an almanac from a file path. The almanac is named
// after the file unless the file names it.
func (l *Loader) LoadAlmanacFile(p string) (*types.Almanac, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", p, err)
	}
	a, err := l.LoadAlmanac(data, DetectFormat(p, data))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", p, err)
	}
	if a.Name == "" {
		a.Name = baseName(p)
	}
	return a, nil
}

// LoadBuiltinAlmanacs loads all built-in almanacs from the embedded filesystem.
func (l *Loader) LoadBuiltinAlmanacs() ([]*types.Almanac, error) {
	var almanacs []*types.Almanac

	err := fs.WalkDir(l.fs, "almanacs", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch path.Ext(p) {
		case ".txt", ".yml", ".yaml":
		default:
			return nil
		}

		data, err := fs.ReadFile(l.fs, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		a, err := l.LoadAlmanac(data, DetectFormat(p, data))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", p, err)
		}
		if a.Name == "" {
			a.Name = baseName(p)
		}
		almanacs = append(almanacs, a)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return almanacs, nil
}

// LoadBuiltinAlmanac returns the built-in almanac with the given name.
func (l *Loader) LoadBuiltinAlmanac(name string) (*types.Almanac, error) {
	almanacs, err := l.LoadBuiltinAlmanacs()
	if err != nil {
		return nil, err
	}
	for _, a := range almanacs {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no builtin almanac named %q", name)
}

func parseYAML(data []byte) (*types.Almanac, error) {
	var yamlFile yamlAlmanacFile
	if err := yaml.Unmarshal(data, &yamlFile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(yamlFile.Stages) == 0 {
		return nil, fmt.Errorf("no stages found in YAML")
	}
	return convertYAMLAlmanac(yamlFile)
}

// convertYAMLAlmanac converts yamlAlmanacFile to types.Almanac, validating
// each stage's table.
func convertYAMLAlmanac(yf yamlAlmanacFile) (*types.Almanac, error) {
	a := &types.Almanac{
		Name:   yf.Name,
		Seeds:  yf.Seeds,
		Stages: make([]types.Stage, 0, len(yf.Stages)),
	}
	for _, ys := range yf.Stages {
		rules := make([]types.Rule, len(ys.Rules))
		for i, yr := range ys.Rules {
			rules[i] = types.Rule{SourceStart: yr.Source, DestStart: yr.Dest, Span: yr.Span}
		}
		table, err := types.NewTable(rules...)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", ys.Name, err)
		}
		a.Stages = append(a.Stages, types.Stage{Name: ys.Name, Table: table})
	}
	return a, nil
}

func baseName(p string) string {
	return strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
}
