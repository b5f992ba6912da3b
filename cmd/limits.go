package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// limitsCmd represents the limits command
var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the effective shell limits.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "max_stages\t%d\n", configuration.Limits.MaxStages)
		fmt.Fprintf(w, "max_args\t%d\n", configuration.Limits.MaxArgs)
		fmt.Fprintf(w, "max_path_len\t%d\n", configuration.Limits.MaxPathLen)
		fmt.Fprintf(w, "max_depth\t%d\n", configuration.Limits.MaxDepth)
		fmt.Fprintf(w, "history_size\t%d\n", configuration.Limits.HistorySize)
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(limitsCmd)
}
