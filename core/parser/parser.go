// Package parser turns a raw command line into a structured pipeline
// description: stages with argument lists and redirections, plus a
// pipeline-wide background flag.
//
// The grammar is deliberately small:
//
//	line       := pipeline
//	pipeline   := segment ('|' segment)* ['&']
//	segment    := word* [redirect]
//	redirect   := '>' word | '>>' word | '<' word
//
// Words are split on whitespace; there is no quoting or escaping. Words
// containing glob metacharacters are expanded against the filesystem in
// sorted order, keeping the literal word when nothing matches.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jdelgadillo/msh/core/config"
)

// Redirect describes a stage's optional file redirections. Empty paths mean
// "inherit or pipe-connected".
type Redirect struct {
	// In is the input file path, if any.
	In string
	// Out is the output file path, if any.
	Out string
	// Append selects append rather than truncate semantics for Out.
	Append bool
}

// Stage is one command within a pipeline.
type Stage struct {
	// Argv holds the command's arguments, including the program as Argv[0].
	// Never empty after a successful parse.
	Argv []string

	Redirect Redirect
}

// Pipeline is a non-empty ordered sequence of stages plus a background flag.
type Pipeline struct {
	Stages     []Stage
	Background bool
}

// ParseError reports malformed pipe or redirection syntax. Nothing downstream
// of the parser ever sees a partially built pipeline.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return "parse error: " + e.Message
}

func parseErrorf(format string, a ...interface{}) error {
	return &ParseError{Message: fmt.Sprintf(format, a...)}
}

// GlobFunc expands a wildcard pattern against a filesystem, returning matches
// in sorted order.
type GlobFunc func(pattern string) ([]string, error)

// Parser parses raw lines within configured capacity limits.
type Parser struct {
	Limits config.Limits

	// Glob is the wildcard expansion hook, filepath.Glob unless overridden.
	Glob GlobFunc
}

func New(limits config.Limits) *Parser {
	return &Parser{
		Limits: limits,
		Glob:   filepath.Glob,
	}
}

// Parse parses a raw line into a pipeline. Any error discards the whole line.
func (p *Parser) Parse(line string) (*Pipeline, error) {
	segments := strings.Split(strings.TrimSpace(line), "|")
	if len(segments) > p.Limits.MaxStages {
		return nil, parseErrorf("too many pipeline stages (limit %d)", p.Limits.MaxStages)
	}

	out := &Pipeline{}
	for i, segment := range segments {
		stage, err := p.parseSegment(segment, i == len(segments)-1, out)
		if err != nil {
			return nil, err
		}
		out.Stages = append(out.Stages, *stage)
	}

	if len(out.Stages) == 0 {
		return nil, parseErrorf("empty command")
	}
	return out, nil
}

// parseSegment parses a single pipeline segment. The background flag is set
// directly on the enclosing pipeline because '&' terminates the whole line.
func (p *Parser) parseSegment(segment string, last bool, pipe *Pipeline) (*Stage, error) {
	tokens := strings.Fields(segment)
	if len(tokens) == 0 {
		return nil, parseErrorf("empty command near '|'")
	}

	stage := &Stage{}
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		switch token {
		case ">", ">>", "<":
			if i+1 >= len(tokens) {
				return nil, parseErrorf("missing file name after %q", token)
			}
			switch token {
			case "<":
				stage.Redirect.In = tokens[i+1]
			default:
				stage.Redirect.Out = tokens[i+1]
				stage.Redirect.Append = token == ">>"
			}
			// A redirection must be the final clause of its segment.
			if rest := tokens[i+2:]; len(rest) > 0 && !(last && len(rest) == 1 && rest[0] == "&") {
				return nil, parseErrorf("unexpected token %q after redirection", rest[0])
			}
			if last && i+2 < len(tokens) {
				pipe.Background = true
			}
			i = len(tokens)

		case "&":
			if !last || i != len(tokens)-1 {
				return nil, parseErrorf("unexpected token '&'")
			}
			pipe.Background = true

		default:
			expanded := p.expand(token)
			if len(stage.Argv)+len(expanded) > p.Limits.MaxArgs {
				return nil, parseErrorf("too many arguments (limit %d)", p.Limits.MaxArgs)
			}
			stage.Argv = append(stage.Argv, expanded...)
		}
	}

	if len(stage.Argv) == 0 {
		return nil, parseErrorf("missing command")
	}
	return stage, nil
}

// expand performs wildcard expansion on a single token. Tokens that match
// nothing (or fail to parse as a pattern) are kept literally.
func (p *Parser) expand(token string) []string {
	if !strings.ContainsAny(token, "*?[") {
		return []string{token}
	}

	matches, err := p.Glob(token)
	if err != nil || len(matches) == 0 {
		return []string{token}
	}
	return matches
}
