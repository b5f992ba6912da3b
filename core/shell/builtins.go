package shell

import (
	"bufio"
	"fmt"
	"os"
	"sort"
)

// Cd changes the shell's working directory. The change is process-wide and
// inherited by every pipeline launched afterwards, never by ones already
// running.
func Cd(s *Shell, args []string) int {
	switch len(args) {
	case 1:
		args = append(args, os.Getenv(EnvHome))
		fallthrough
	case 2:
		if err := os.Chdir(args[1]); err != nil {
			fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
			return 1
		}
	default:
		fmt.Fprintf(s.Stderr, "%s: too many arguments\n", args[0])
		return 1
	}
	return 0
}

// Exit quits the shell.
func Exit(s *Shell, args []string) int {
	s.Quit = true
	return 0
}

func Help(s *Shell, args []string) int {
	w := s.Stdout
	fmt.Fprintln(w, "These shell commands are defined internally; everything else runs as a program.")
	fmt.Fprintln(w, "Pipelines (|), redirection (<, >, >>), wildcards and background (&) are supported.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)

	var builtins []string
	for k := range AllBuiltins {
		builtins = append(builtins, k)
	}
	sort.Strings(builtins)

	for _, name := range builtins {
		fmt.Fprintln(w, name)
	}
	return 0
}

func History(s *Shell, args []string) int {
	cmd := &SimpleBuiltin{
		Use:   "history [-c]",
		Short: "Display or manipulate the input history list.",
	}
	clear := cmd.Flags().Bool('c', "clear the history by deleting all entries")

	return cmd.Run(s, args, func() int {
		if *clear {
			if s.Readline != nil {
				s.Readline.Operation.ResetHistory()
			}
			s.history = nil
			return 0
		}

		for i, line := range s.history {
			fmt.Fprintf(s.Stdout, "% 5d  %s\n", i+1, line)
		}
		return 0
	})
}

func Mkdir(s *Shell, args []string) int {
	cmd := &SimpleBuiltin{
		Use:   "mkdir DIRECTORY...",
		Short: "Create directories if they don't exist.",
	}

	return cmd.Run(s, args, func() int {
		directories := cmd.Flags().Args()
		if len(directories) == 0 {
			fmt.Fprintln(s.Stderr, "mkdir: missing operand")
			return 1
		}

		anyFailed := false
		for _, dir := range directories {
			if err := s.Fs.Mkdir(dir, 0755); err != nil {
				fmt.Fprintf(s.Stderr, "mkdir: cannot create directory %q: %v\n", dir, err)
				anyFailed = true
			}
		}

		if anyFailed {
			return 1
		}
		return 0
	})
}

func Rmdir(s *Shell, args []string) int {
	cmd := &SimpleBuiltin{
		Use:   "rmdir DIRECTORY...",
		Short: "Remove empty directories.",
	}

	return cmd.Run(s, args, func() int {
		directories := cmd.Flags().Args()
		if len(directories) == 0 {
			fmt.Fprintln(s.Stderr, "rmdir: missing operand")
			return 1
		}

		anyFailed := false
		for _, dir := range directories {
			if err := s.Fs.Remove(dir); err != nil {
				fmt.Fprintf(s.Stderr, "rmdir: can't remove %q: %v\n", dir, err)
				anyFailed = true
			}
		}

		if anyFailed {
			return 1
		}
		return 0
	})
}

func Touch(s *Shell, args []string) int {
	cmd := &SimpleBuiltin{
		Use:   "touch FILE...",
		Short: "Create files if they don't exist.",
	}

	return cmd.Run(s, args, func() int {
		files := cmd.Flags().Args()
		if len(files) == 0 {
			fmt.Fprintln(s.Stderr, "touch: missing operand")
			return 1
		}

		anyFailed := false
		for _, file := range files {
			fd, err := s.Fs.OpenFile(file, os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				fmt.Fprintf(s.Stderr, "touch: %v\n", err)
				anyFailed = true
				continue
			}
			fd.Close()
		}

		if anyFailed {
			return 1
		}
		return 0
	})
}

func Rm(s *Shell, args []string) int {
	cmd := &SimpleBuiltin{
		Use:   "rm [-r] FILE...",
		Short: "Remove files, or directories with their contents when -r is given.",
	}
	recursive := cmd.Flags().BoolLong("recursive", 'r', "remove directories and their contents recursively")

	return cmd.Run(s, args, func() int {
		files := cmd.Flags().Args()
		if len(files) == 0 {
			fmt.Fprintln(s.Stderr, "rm: missing operand")
			return 1
		}

		anyFailed := false
		for _, file := range files {
			var err error
			if *recursive {
				err = s.Tree.Delete(file, 0)
			} else {
				err = s.Fs.Remove(file)
			}
			if err != nil {
				fmt.Fprintf(s.Stderr, "rm: %v\n", err)
				s.Log.LogTreeOpFailure("delete", file, err)
				anyFailed = true
			}
		}

		if anyFailed {
			return 1
		}
		return 0
	})
}

func Cp(s *Shell, args []string) int {
	cmd := &SimpleBuiltin{
		Use:   "cp [-r] SOURCE DEST",
		Short: "Copy a file, or a directory tree when -r is given.",
	}
	recursive := cmd.Flags().BoolLong("recursive", 'r', "copy directories recursively")

	return cmd.Run(s, args, func() int {
		operands := cmd.Flags().Args()
		if len(operands) != 2 {
			fmt.Fprintln(s.Stderr, "usage: cp [-r] SOURCE DEST")
			return 1
		}

		var err error
		if *recursive {
			err = s.Tree.Copy(operands[0], operands[1], 0)
		} else {
			err = s.Tree.CopyFile(operands[0], operands[1])
		}
		if err != nil {
			fmt.Fprintf(s.Stderr, "cp: %v\n", err)
			s.Log.LogTreeOpFailure("copy", operands[0], err)
			return 1
		}
		return 0
	})
}

func Mv(s *Shell, args []string) int {
	cmd := &SimpleBuiltin{
		Use:   "mv [-r] SOURCE DEST",
		Short: "Move or rename a file, or a directory tree when -r is given.",
	}
	recursive := cmd.Flags().BoolLong("recursive", 'r', "move directories recursively")

	return cmd.Run(s, args, func() int {
		operands := cmd.Flags().Args()
		if len(operands) != 2 {
			fmt.Fprintln(s.Stderr, "usage: mv [-r] SOURCE DEST")
			return 1
		}
		src, dest := operands[0], operands[1]

		if *recursive {
			if err := s.Tree.Copy(src, dest, 0); err != nil {
				fmt.Fprintf(s.Stderr, "mv: %v\n", err)
				return 1
			}
			if err := s.Tree.Delete(src, 0); err != nil {
				fmt.Fprintf(s.Stderr, "mv: %v\n", err)
				return 1
			}
			return 0
		}

		effective, err := s.Tree.ResolveDest(src, dest)
		if err == nil {
			err = s.Fs.Rename(src, effective)
		}
		if err != nil {
			fmt.Fprintf(s.Stderr, "mv: %v\n", err)
			return 1
		}
		return 0
	})
}

// WriteFile reads the shell's input until EOF and writes it to a file.
func WriteFile(s *Shell, args []string) int {
	cmd := &SimpleBuiltin{
		Use:   "writefile FILE",
		Short: "Write text from the input to a file, ending at EOF.",
	}

	return cmd.Run(s, args, func() int {
		operands := cmd.Flags().Args()
		if len(operands) != 1 {
			fmt.Fprintln(s.Stderr, "usage: writefile FILE")
			return 1
		}

		fd, err := s.Fs.Create(operands[0])
		if err != nil {
			fmt.Fprintf(s.Stderr, "writefile: %v\n", err)
			return 1
		}

		scanner := bufio.NewScanner(s.Stdin)
		for scanner.Scan() {
			fmt.Fprintln(fd, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			fd.Close()
			fmt.Fprintf(s.Stderr, "writefile: %v\n", err)
			return 1
		}
		if err := fd.Close(); err != nil {
			fmt.Fprintf(s.Stderr, "writefile: %v\n", err)
			return 1
		}

		fmt.Fprintf(s.Stdout, "Written to %s\n", operands[0])
		return 0
	})
}

func init() {
	AllBuiltins["cd"] = BuiltinFunc(Cd)
	AllBuiltins["exit"] = BuiltinFunc(Exit)
	AllBuiltins["help"] = BuiltinFunc(Help)
	AllBuiltins["history"] = BuiltinFunc(History)
	AllBuiltins["mkdir"] = BuiltinFunc(Mkdir)
	AllBuiltins["rmdir"] = BuiltinFunc(Rmdir)
	AllBuiltins["touch"] = BuiltinFunc(Touch)
	AllBuiltins["rm"] = BuiltinFunc(Rm)
	AllBuiltins["cp"] = BuiltinFunc(Cp)
	AllBuiltins["mv"] = BuiltinFunc(Mv)
	AllBuiltins["writefile"] = BuiltinFunc(WriteFile)
}
