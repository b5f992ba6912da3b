// Package pipeline realizes a parsed pipeline as a graph of OS processes
// wired together with pipes and file redirections, and tracks asynchronous
// completion of background processes.
package pipeline

import (
	"github.com/jdelgadillo/msh/core/parser"
)

// StreamKind says where a stage's standard stream comes from or goes to.
type StreamKind int

const (
	// StreamInherit connects the stream to the shell's own stream.
	StreamInherit StreamKind = iota
	// StreamFile connects the stream to a redirection file.
	StreamFile
	// StreamPipe connects the stream to a pipe boundary.
	StreamPipe
)

// StreamPlan describes one endpoint of a stage's standard I/O.
type StreamPlan struct {
	Kind StreamKind

	// Path is the redirection file for StreamFile endpoints.
	Path string
	// Append selects append rather than truncate semantics for output files.
	Append bool

	// Pipe is the boundary index for StreamPipe endpoints. Boundary i sits
	// between stage i and stage i+1.
	Pipe int
}

// StagePlan is the descriptor-wiring plan for a single stage.
type StagePlan struct {
	Argv   []string
	Stdin  StreamPlan
	Stdout StreamPlan
}

// Plan is the full descriptor-wiring plan for a pipeline, built before any
// process is spawned so the wiring logic is testable on its own.
type Plan struct {
	Stages []StagePlan
	// Pipes is the number of pipe boundaries, always len(Stages)-1.
	Pipes      int
	Background bool
}

// BuildPlan computes the wiring plan for a pipeline. A stage's own
// redirection always takes precedence over pipe linkage to an adjacent
// stage.
func BuildPlan(pipe *parser.Pipeline) *Plan {
	n := len(pipe.Stages)
	plan := &Plan{
		Pipes:      n - 1,
		Background: pipe.Background,
	}

	for i, stage := range pipe.Stages {
		sp := StagePlan{Argv: stage.Argv}

		switch {
		case stage.Redirect.In != "":
			sp.Stdin = StreamPlan{Kind: StreamFile, Path: stage.Redirect.In}
		case i > 0:
			sp.Stdin = StreamPlan{Kind: StreamPipe, Pipe: i - 1}
		}

		switch {
		case stage.Redirect.Out != "":
			sp.Stdout = StreamPlan{Kind: StreamFile, Path: stage.Redirect.Out, Append: stage.Redirect.Append}
		case i < n-1:
			sp.Stdout = StreamPlan{Kind: StreamPipe, Pipe: i}
		}

		plan.Stages = append(plan.Stages, sp)
	}

	return plan
}
