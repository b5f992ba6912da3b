package cmd

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jdelgadillo/msh/core/config"
)

var cfgPath string

func loadConfig() (*config.Configuration, error) {
	return config.Load(afero.NewOsFs(), cfgPath)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "msh",
	Short: "A small interactive command shell",
	Long: `An interactive shell with pipelines, redirection, globbing,
background jobs and a set of filesystem builtins.`,
	// Run: func(cmd *cobra.Command, args []string) { },
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
}
