// Package shell is the interactive driver: it acquires lines, hands them to
// the parser, dispatches builtins, launches pipelines and reports background
// completions between prompts.
package shell

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/jdelgadillo/msh/core/config"
	"github.com/jdelgadillo/msh/core/logger"
	"github.com/jdelgadillo/msh/core/parser"
	"github.com/jdelgadillo/msh/core/pipeline"
	"github.com/jdelgadillo/msh/core/treeops"
)

const EnvHome = "HOME"

var promptColor = color.New(color.FgYellow, color.Bold)

type Shell struct {
	Config   *config.Configuration
	Parser   *parser.Parser
	Executor *pipeline.Executor
	Reaper   *pipeline.Reaper
	Tree     *treeops.Ops
	Fs       afero.Fs
	Log      *logger.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Readline *readline.Instance

	history []string
	lastRet int

	// Set to true to quit the shell.
	Quit bool
}

// New builds a shell over the real OS: real filesystem, real processes,
// standard streams. Call InitReadline before RunInteractive.
func New(cfg *config.Configuration, log *logger.Logger) *Shell {
	reaper := pipeline.NewReaper()
	reaper.Start()

	fsys := afero.NewOsFs()
	s := &Shell{
		Config:   cfg,
		Parser:   parser.New(cfg.Limits),
		Executor: pipeline.NewExecutor(reaper, log),
		Reaper:   reaper,
		Fs:       fsys,
		Tree: treeops.New(fsys, treeops.Options{
			MaxDepth:   cfg.Limits.MaxDepth,
			MaxPathLen: cfg.Limits.MaxPathLen,
		}, log),
		Log:    log,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	return s
}

// InitReadline attaches line editing, in-memory history and builtin name
// completion to the shell.
func (s *Shell) InitReadline() error {
	rl, err := readline.NewEx(&readline.Config{
		HistoryLimit: s.Config.Limits.HistorySize,
		AutoComplete: builtinCompleter(),
	})
	if err != nil {
		return err
	}
	s.Readline = rl
	return nil
}

// builtinCompleter offers every registered builtin name for tab completion.
func builtinCompleter() *readline.PrefixCompleter {
	var names []string
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)

	var items []readline.PrefixCompleterInterface
	for _, name := range names {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

// Close releases the reaper and line editor. Background processes that are
// still running stay running.
func (s *Shell) Close() error {
	s.Reaper.Stop()
	if s.Readline != nil {
		return s.Readline.Close()
	}
	return nil
}

func (s *Shell) shouldColor() bool {
	switch s.Config.Color {
	case config.ColorNever:
		return false
	case config.ColorAlways:
		return true
	default:
		return s.Readline != nil
	}
}

func (s *Shell) colorize(c *color.Color, format string, a ...interface{}) string {
	if s.shouldColor() {
		return c.Sprintf(format, a...)
	}
	return fmt.Sprintf(format, a...)
}

func (s *Shell) prompt() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "?"
	}
	return s.colorize(promptColor, "%s->$ ", cwd)
}

// RunInteractive reads and executes lines until exit or EOF.
func (s *Shell) RunInteractive() int {
	for !s.Quit {
		s.reportReaped()

		s.Readline.SetPrompt(s.prompt())
		line, err := s.Readline.Readline()
		switch {
		case err == io.EOF:
			return s.lastRet
		case err == readline.ErrInterrupt:
			// Interrupt clears the line.
			continue
		case err != nil:
			log.Printf("Error readline: %v", err)
			continue
		case strings.TrimSpace(line) == "":
			continue
		default:
			s.remember(line)
			s.RunLine(line)
		}
	}
	return s.lastRet
}

// RunLine parses and executes one raw line. Errors never end the driver;
// they're reported and control returns for the next line.
func (s *Shell) RunLine(line string) int {
	pipe, err := s.Parser.Parse(line)
	if err != nil {
		fmt.Fprintf(s.Stderr, "msh: %v\n", err)
		s.lastRet = 1
		return s.lastRet
	}

	// Builtins run in the shell's own process and never join a pipe chain.
	if len(pipe.Stages) == 1 {
		if builtin, ok := AllBuiltins[pipe.Stages[0].Argv[0]]; ok {
			s.lastRet = builtin.Main(s, pipe.Stages[0].Argv)
			return s.lastRet
		}
	}

	result, err := s.Executor.Launch(pipe)
	if err != nil {
		fmt.Fprintf(s.Stderr, "msh: %v\n", err)
		s.lastRet = 1
		return s.lastRet
	}

	for _, st := range result.Stages {
		if st.Err != nil {
			fmt.Fprintf(s.Stderr, "msh: %v\n", st.Err)
		}
	}

	if result.Background {
		for _, st := range result.Stages {
			if st.PID != 0 {
				fmt.Fprintf(s.Stdout, "[%d] running\n", st.PID)
			}
		}
		s.lastRet = 0
		return s.lastRet
	}

	s.lastRet = result.ExitCode()
	return s.lastRet
}

// reportReaped drains background completions collected since the last
// prompt. Reporting happens here, on the driver's schedule, never in the
// reaper itself.
func (s *Shell) reportReaped() {
	for {
		select {
		case pid := <-s.Reaper.Done():
			fmt.Fprintf(s.Stdout, "[%d] done\n", pid)
			s.Log.LogProcessReaped(pid)
		default:
			return
		}
	}
}

func (s *Shell) remember(line string) {
	s.history = append(s.history, line)
	if max := s.Config.Limits.HistorySize; len(s.history) > max {
		s.history = s.history[len(s.history)-max:]
	}
}
