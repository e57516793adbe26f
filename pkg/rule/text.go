package rule

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/praetorian-inc/almanac/pkg/types"
)

const (
	seedsPrefix = "seeds:"
	mapSuffix   = " map:"
)

// ParseError locates a problem in a text almanac.
type ParseError struct {
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseText reads the puzzle's text layout: a "seeds:" line followed by
// blank-line separated "<name> map:" blocks of "dest source span" lines.
func ParseText(data []byte) (*types.Almanac, error) {
	a := &types.Almanac{}
	scanner := bufio.NewScanner(bytes.NewReader(data))

	var (
		lineNo    int
		seenSeeds bool
		stage     *stageBuilder
	)

	flush := func() error {
		if stage == nil {
			return nil
		}
		table, err := types.NewTable(stage.rules...)
		if err != nil {
			return &ParseError{Line: stage.line, Msg: fmt.Sprintf("stage %q: %v", stage.name, err), Err: err}
		}
		a.Stages = append(a.Stages, types.Stage{Name: stage.name, Table: table})
		stage = nil
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			if err := flush(); err != nil {
				return nil, err
			}

		case strings.HasPrefix(line, seedsPrefix):
			if seenSeeds {
				return nil, &ParseError{Line: lineNo, Msg: "duplicate seeds line"}
			}
			seeds, err := parseNumbers(strings.TrimPrefix(line, seedsPrefix))
			if err != nil {
				return nil, &ParseError{Line: lineNo, Msg: err.Error(), Err: err}
			}
			a.Seeds = seeds
			seenSeeds = true

		case strings.HasSuffix(line, mapSuffix):
			if err := flush(); err != nil {
				return nil, err
			}
			stage = &stageBuilder{name: strings.TrimSuffix(line, mapSuffix), line: lineNo}

		default:
			if stage == nil {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("unexpected line %q outside a map block", line)}
			}
			nums, err := parseNumbers(line)
			if err != nil {
				return nil, &ParseError{Line: lineNo, Msg: err.Error(), Err: err}
			}
			if len(nums) != 3 {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("expected dest source span, got %d numbers", len(nums))}
			}
			stage.rules = append(stage.rules, types.Rule{DestStart: nums[0], SourceStart: nums[1], Span: nums[2]})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading almanac: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if !seenSeeds {
		return nil, &ParseError{Line: 1, Msg: "missing seeds line"}
	}
	return a, nil
}

// EncodeText writes an almanac in the text layout ParseText reads.
func EncodeText(a *types.Almanac) []byte {
	var buf bytes.Buffer

	buf.WriteString(seedsPrefix)
	for _, s := range a.Seeds {
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatUint(s, 10))
	}
	buf.WriteByte('\n')

	for _, st := range a.Stages {
		fmt.Fprintf(&buf, "\n%s%s\n", st.Name, mapSuffix)
		for _, r := range st.Table.Rules() {
			fmt.Fprintf(&buf, "%d %d %d\n", r.DestStart, r.SourceStart, r.Span)
		}
	}
	return buf.Bytes()
}

type stageBuilder struct {
	name  string
	line  int
	rules []types.Rule
}

func parseNumbers(s string) ([]uint64, error) {
	fields := strings.Fields(s)
	nums := make([]uint64, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", f, err)
		}
		nums = append(nums, n)
	}
	return nums, nil
}
