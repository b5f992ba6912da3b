package parser

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jdelgadillo/msh/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	p := New(config.Default().Limits)
	// Deterministic globbing so tests never touch the real filesystem.
	p.Glob = func(pattern string) ([]string, error) {
		switch pattern {
		case "*.txt":
			return []string{"a.txt", "b.txt"}, nil
		case "[":
			return nil, errors.New("syntax error in pattern")
		default:
			return nil, nil
		}
	}
	return p
}

func TestParse_singleStage(t *testing.T) {
	p := newTestParser()

	pipe, err := p.Parse("echo hello world")
	require.Nil(t, err)

	require.Len(t, pipe.Stages, 1)
	assert.Equal(t, []string{"echo", "hello", "world"}, pipe.Stages[0].Argv)
	assert.False(t, pipe.Background)
	assert.Equal(t, Redirect{}, pipe.Stages[0].Redirect)
}

func TestParse_multiStage(t *testing.T) {
	p := newTestParser()

	pipe, err := p.Parse("cat notes.txt | grep foo | wc -l")
	require.Nil(t, err)

	require.Len(t, pipe.Stages, 3)
	assert.Equal(t, []string{"cat", "notes.txt"}, pipe.Stages[0].Argv)
	assert.Equal(t, []string{"grep", "foo"}, pipe.Stages[1].Argv)
	assert.Equal(t, []string{"wc", "-l"}, pipe.Stages[2].Argv)
}

func TestParse_redirections(t *testing.T) {
	p := newTestParser()

	cases := map[string]struct {
		line string
		want Redirect
	}{
		"input":    {"wc -l < in.txt", Redirect{In: "in.txt"}},
		"truncate": {"echo hi > out.txt", Redirect{Out: "out.txt"}},
		"append":   {"echo hi >> out.txt", Redirect{Out: "out.txt", Append: true}},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			pipe, err := p.Parse(tc.line)
			require.Nil(t, err)
			require.Len(t, pipe.Stages, 1)
			assert.Equal(t, tc.want, pipe.Stages[0].Redirect)
		})
	}
}

func TestParse_perStageRedirections(t *testing.T) {
	p := newTestParser()

	pipe, err := p.Parse("grep foo < in.txt | sort > out.txt")
	require.Nil(t, err)

	require.Len(t, pipe.Stages, 2)
	assert.Equal(t, "in.txt", pipe.Stages[0].Redirect.In)
	assert.Equal(t, "out.txt", pipe.Stages[1].Redirect.Out)
}

func TestParse_background(t *testing.T) {
	p := newTestParser()

	pipe, err := p.Parse("sleep 10 &")
	require.Nil(t, err)
	assert.True(t, pipe.Background)
	assert.Equal(t, []string{"sleep", "10"}, pipe.Stages[0].Argv)

	pipe, err = p.Parse("cat big.log | gzip > big.gz &")
	require.Nil(t, err)
	assert.True(t, pipe.Background)
	require.Len(t, pipe.Stages, 2)
	assert.Equal(t, "big.gz", pipe.Stages[1].Redirect.Out)
}

func TestParse_glob(t *testing.T) {
	p := newTestParser()

	pipe, err := p.Parse("cat *.txt")
	require.Nil(t, err)
	assert.Equal(t, []string{"cat", "a.txt", "b.txt"}, pipe.Stages[0].Argv)
}

func TestParse_globNoMatchIsLiteral(t *testing.T) {
	p := newTestParser()

	pipe, err := p.Parse("cat *.bin")
	require.Nil(t, err)
	assert.Equal(t, []string{"cat", "*.bin"}, pipe.Stages[0].Argv)
}

func TestParse_globBadPatternIsLiteral(t *testing.T) {
	p := newTestParser()

	pipe, err := p.Parse("echo [")
	require.Nil(t, err)
	assert.Equal(t, []string{"echo", "["}, pipe.Stages[0].Argv)
}

func TestParse_errors(t *testing.T) {
	p := newTestParser()

	cases := map[string]string{
		"empty":                   "",
		"blank":                   "   ",
		"empty-middle-segment":    "echo hi | | wc -l",
		"empty-trailing-segment":  "echo hi |",
		"missing-redirect-target": "echo hi >",
		"missing-input-target":    "wc <",
		"token-after-redirect":    "echo hi > out.txt extra",
		"redirect-then-redirect":  "cat < in.txt > out.txt",
		"amp-mid-line":            "sleep 10 & echo hi",
		"amp-mid-pipeline":        "sleep 10 & | wc -l",
		"missing-command":         "> out.txt",
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			_, err := p.Parse(tc)
			require.NotNil(t, err)

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr), "want ParseError, got %v", err)
		})
	}
}

func TestParse_stageLimit(t *testing.T) {
	p := newTestParser()
	p.Limits.MaxStages = 3

	_, err := p.Parse("a | b | c")
	assert.Nil(t, err)

	_, err = p.Parse("a | b | c | d")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "too many pipeline stages")
}

func TestParse_argLimit(t *testing.T) {
	p := newTestParser()
	p.Limits.MaxArgs = 4

	_, err := p.Parse("echo a b c")
	assert.Nil(t, err)

	_, err = p.Parse("echo a b c d")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "too many arguments")
}

func TestParse_argLimitCountsExpansion(t *testing.T) {
	p := newTestParser()
	p.Limits.MaxArgs = 2

	// cat + two expanded matches exceeds the limit of two.
	_, err := p.Parse("cat *.txt")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "too many arguments")
}

func TestParse_wideArgvStaysOrdered(t *testing.T) {
	p := newTestParser()

	var words []string
	for i := 0; i < 20; i++ {
		words = append(words, fmt.Sprintf("w%02d", i))
	}
	pipe, err := p.Parse("echo " + strings.Join(words, " "))
	require.Nil(t, err)
	assert.Equal(t, append([]string{"echo"}, words...), pipe.Stages[0].Argv)
}
