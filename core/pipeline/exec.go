package pipeline

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"syscall"

	"github.com/jdelgadillo/msh/core/logger"
	"github.com/jdelgadillo/msh/core/parser"
)

// StageError reports a stage that couldn't be launched: program not found or
// not executable, or a redirection target that couldn't be opened. It is
// fatal to that one stage only; sibling stages are unaffected.
type StageError struct {
	Stage int
	Argv0 string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Stage, e.Argv0, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ResourceError reports a pipe or process creation failure partway through a
// launch. Launching of further stages is aborted; stages already running are
// left alone.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource error: %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// StageStatus reports the outcome of one stage of a launch.
type StageStatus struct {
	Argv []string
	// PID of the stage's process, zero when it never started.
	PID int
	// ExitCode of the stage, -1 until collected by a foreground wait.
	ExitCode int
	// Err is the stage's launch failure, if any.
	Err error
}

// Result reports the outcome of a pipeline launch, one entry per stage.
type Result struct {
	Stages     []StageStatus
	Background bool
}

// ExitCode returns the exit code of the last stage, the shell's notion of
// the pipeline's overall status.
func (r *Result) ExitCode() int {
	if len(r.Stages) == 0 {
		return 0
	}
	return r.Stages[len(r.Stages)-1].ExitCode
}

// Executor launches pipelines as real OS processes.
type Executor struct {
	// Stdin, Stdout and Stderr are the streams inherited by stages without
	// redirections or pipe linkage.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Reaper tracks background stage completions. Required for background
	// pipelines.
	Reaper *Reaper

	Log *logger.Logger

	// start spawns a stage's process, exec.Cmd.Start unless overridden in
	// tests.
	start func(*exec.Cmd) error
}

func NewExecutor(reaper *Reaper, log *logger.Logger) *Executor {
	return &Executor{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Reaper: reaper,
		Log:    log,
	}
}

type pipePair struct {
	r *os.File
	w *os.File
}

// Launch builds the wiring plan for the pipeline, spawns its stages and
// either waits for them (foreground) or hands their PIDs to the reaper and
// returns immediately (background).
//
// Per-stage launch failures land in the result; an error return means a
// resource failure aborted the launch partway.
func (e *Executor) Launch(pipe *parser.Pipeline) (*Result, error) {
	plan := BuildPlan(pipe)
	e.Log.LogPipelineLaunch(len(plan.Stages), plan.Background)

	// Allocate every pipe boundary up front. The closers list holds every
	// descriptor the parent owns; all of them are closed exactly once no
	// matter how the launch goes, otherwise a surviving write end would keep
	// downstream stages from ever seeing EOF.
	var closers []*os.File
	closeAll := func() {
		for _, f := range closers {
			f.Close()
		}
	}

	pipes := make([]pipePair, plan.Pipes)
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			closeAll()
			return nil, &ResourceError{Op: "pipe", Err: err}
		}
		pipes[i] = pipePair{r: r, w: w}
		closers = append(closers, r, w)
	}

	result := &Result{
		Background: plan.Background,
		Stages:     make([]StageStatus, len(plan.Stages)),
	}
	cmds := make([]*exec.Cmd, len(plan.Stages))

	for i, sp := range plan.Stages {
		st := &result.Stages[i]
		st.Argv = sp.Argv
		st.ExitCode = -1

		stdin, err := e.stdinFor(sp, pipes, &closers, plan.Background)
		if err == nil {
			var stdout io.Writer
			stdout, err = e.stdoutFor(sp, pipes, &closers, plan.Background)
			if err == nil {
				cmd := exec.Command(sp.Argv[0], sp.Argv[1:]...)
				cmd.Stdin = stdin
				cmd.Stdout = stdout
				cmd.Stderr = e.stderrFor(plan)
				if plan.Background {
					// Detach into a new session so background stages aren't
					// tied to the controlling terminal.
					cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
				}
				err = e.startStage(cmd)
				if err == nil {
					st.PID = cmd.Process.Pid
					cmds[i] = cmd
					continue
				}
				if !isLaunchFailure(err) {
					// Process creation itself failed; abort launching the
					// remaining stages but leave running ones alone. They
					// can't be waited for here anymore, so the reaper
					// collects their exits instead.
					closeAll()
					e.trackStarted(result)
					return result, &ResourceError{Op: "start " + sp.Argv[0], Err: err}
				}
			}
		}

		st.Err = &StageError{Stage: i, Argv0: sp.Argv[0], Err: err}
		e.Log.LogStageFailure(i, sp.Argv[0], err)
	}

	// The parent uses none of the pipe or redirection descriptors itself;
	// close them all so EOF propagates once the true writers exit.
	closeAll()

	if plan.Background {
		e.trackStarted(result)
		return result, nil
	}

	for i, cmd := range cmds {
		if cmd == nil {
			continue
		}
		st := &result.Stages[i]
		if err := cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				st.ExitCode = exitErr.ExitCode()
			} else {
				st.Err = &StageError{Stage: i, Argv0: st.Argv[0], Err: err}
			}
			continue
		}
		st.ExitCode = cmd.ProcessState.ExitCode()
	}

	return result, nil
}

// startStage spawns one stage's process.
func (e *Executor) startStage(cmd *exec.Cmd) error {
	if e.start != nil {
		return e.start(cmd)
	}
	return cmd.Start()
}

// trackStarted hands every started stage to the reaper so no child's exit
// goes uncollected.
func (e *Executor) trackStarted(result *Result) {
	for _, st := range result.Stages {
		if st.PID != 0 {
			e.Reaper.Track(st.PID)
		}
	}
	// Cover terminations that raced ahead of tracking.
	e.Reaper.Kick()
}

func (e *Executor) stdinFor(sp StagePlan, pipes []pipePair, closers *[]*os.File, background bool) (io.Reader, error) {
	switch sp.Stdin.Kind {
	case StreamFile:
		fd, err := os.Open(sp.Stdin.Path)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, fd)
		return fd, nil
	case StreamPipe:
		return pipes[sp.Stdin.Pipe].r, nil
	default:
		if background {
			return detachedReader(e.Stdin), nil
		}
		return e.Stdin, nil
	}
}

func (e *Executor) stdoutFor(sp StagePlan, pipes []pipePair, closers *[]*os.File, background bool) (io.Writer, error) {
	switch sp.Stdout.Kind {
	case StreamFile:
		flags := os.O_WRONLY | os.O_CREATE
		if sp.Stdout.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		fd, err := os.OpenFile(sp.Stdout.Path, flags, 0644)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, fd)
		return fd, nil
	case StreamPipe:
		return pipes[sp.Stdout.Pipe].w, nil
	default:
		if background {
			return detachedWriter(e.Stdout), nil
		}
		return e.Stdout, nil
	}
}

func (e *Executor) stderrFor(plan *Plan) io.Writer {
	if plan.Background {
		return detachedWriter(e.Stderr)
	}
	return e.Stderr
}

// Detached stages only get streams the OS can hold onto after the shell
// moves on; anything else would need a wait that background pipelines never
// perform. Non-file streams become /dev/null.
func detachedWriter(w io.Writer) io.Writer {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}

func detachedReader(r io.Reader) io.Reader {
	if f, ok := r.(*os.File); ok {
		return f
	}
	return nil
}

// isLaunchFailure reports whether err is the child's own fault (missing or
// non-executable target, bad redirection) rather than a resource failure in
// the launcher.
func isLaunchFailure(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}
