package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jdelgadillo/msh/core/shell"
)

// builtinsCmd represents the builtins command
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the commands the shell runs internally.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var builtins []string

		for name := range shell.AllBuiltins {
			builtins = append(builtins, name)
		}

		sort.Strings(builtins)

		for _, v := range builtins {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
