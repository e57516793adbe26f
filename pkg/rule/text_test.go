package rule

import (
	"errors"
	"testing"

	"github.com/praetorian-inc/almanac/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseText(t *testing.T) {
	input := "seeds: 79 14 55 13\r\n\r\nseed-to-soil map:\r\n50 98 2\r\n52 50 48\r\n\r\nsoil-to-fertilizer map:\r\n0 15 37\r\n"

	a, err := ParseText([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, []uint64{79, 14, 55, 13}, a.Seeds)
	require.Len(t, a.Stages, 2)
	assert.Equal(t, "seed-to-soil", a.Stages[0].Name)
	assert.Equal(t, 2, a.Stages[0].Table.Len())
	assert.Equal(t, "soil-to-fertilizer", a.Stages[1].Name)
	assert.Equal(t, uint64(81), a.Pipeline().Lookup(79))
}

func TestParseText_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"missing seeds", "a-to-b map:\n1 2 3\n", 1},
		{"bad seed", "seeds: 1 x\n", 1},
		{"duplicate seeds", "seeds: 1\nseeds: 2\n", 2},
		{"rule outside block", "seeds: 1\n\n1 2 3\n", 3},
		{"short rule", "seeds: 1\n\na-to-b map:\n1 2\n", 4},
		{"negative number", "seeds: 1\n\na-to-b map:\n1 -2 3\n", 4},
		{"overlapping rules", "seeds: 1\n\na-to-b map:\n0 0 10\n50 5 10\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseText([]byte(tt.input))
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected ParseError, got %T", err)
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestParseText_WrapsTableErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"overlapping rules", "seeds: 1\n\na-to-b map:\n0 0 10\n50 5 10\n", types.ErrOverlappingRules},
		{"overflowing rule", "seeds: 1\n\na-to-b map:\n0 18446744073709551615 1\n", types.ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseText([]byte(tt.input))
			require.ErrorIs(t, err, tt.want)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, 3, perr.Line)
		})
	}
}

// Text and YAML loaders report the same sentinel for the same defect.
func TestLoadAlmanac_OverlapSentinelAcrossFormats(t *testing.T) {
	text := "seeds: 1\n\na-to-b map:\n0 0 10\n50 5 10\n"
	yml := "seeds: [1]\nstages:\n  - name: a-to-b\n    rules:\n      - {dest: 0, source: 0, span: 10}\n      - {dest: 50, source: 5, span: 10}\n"

	loader := NewLoader()
	_, err := loader.LoadAlmanac([]byte(text), FormatText)
	assert.ErrorIs(t, err, types.ErrOverlappingRules)

	_, err = loader.LoadAlmanac([]byte(yml), FormatYAML)
	assert.ErrorIs(t, err, types.ErrOverlappingRules)
}

func TestEncodeText_RoundTrip(t *testing.T) {
	a, err := NewLoader().LoadBuiltinAlmanac("example")
	require.NoError(t, err)

	b, err := ParseText(EncodeText(a))
	require.NoError(t, err)

	assert.Equal(t, a.Digest(), b.Digest())
}

// The same almanac in both layouts has the same digest.
func TestParseText_MatchesYAML(t *testing.T) {
	text, err := ParseText([]byte("seeds: 79 14 55 13\n\nseed-to-soil map:\n50 98 2\n52 50 48\n"))
	require.NoError(t, err)

	yml, err := NewLoader().LoadAlmanac([]byte(exampleYAML), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, text.Digest(), yml.Digest())
}
