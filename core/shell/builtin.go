package shell

import (
	"fmt"
	"io"

	getopt "github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins.
var AllBuiltins = make(map[string]Builtin)

type Builtin interface {
	Main(s *Shell, args []string) int
}

type BuiltinFunc func(s *Shell, args []string) int

func (f BuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ Builtin = (BuiltinFunc)(nil)

// SimpleBuiltin handles flag parsing and help for a builtin. Construct one
// per invocation; getopt sets are stateful.
type SimpleBuiltin struct {
	// Use holds a one line usage string.
	Use string
	// Short holds a one line description of the builtin.
	Short string

	flags *getopt.Set
}

// Flags gets the builtin's flag set.
func (b *SimpleBuiltin) Flags() *getopt.Set {
	if b.flags == nil {
		b.flags = getopt.New()
	}

	return b.flags
}

// PrintHelp writes help for the builtin to the given writer.
func (b *SimpleBuiltin) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, b.Use)
	fmt.Fprintln(w, b.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	b.Flags().PrintOptions(w)
}

// Run the builtin, calling the callback if flag parsing succeeded.
func (b *SimpleBuiltin) Run(s *Shell, args []string, callback func() int) int {
	opts := b.Flags()
	showHelp := opts.BoolLong("help", 'h', "show this help and exit")

	if err := opts.Getopt(args, nil); err != nil {
		fmt.Fprintf(s.Stderr, "error: %s\n\n", err)
		b.PrintHelp(s.Stdout)
		return 1
	}

	if *showHelp {
		b.PrintHelp(s.Stdout)
		return 0
	}

	return callback()
}
