package cmd

import (
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jdelgadillo/msh/core/config"
	"github.com/jdelgadillo/msh/core/logger"
	"github.com/jdelgadillo/msh/core/shell"
)

var oneShot string

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive shell.",
	Long:  ``,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		eventLog, err := openEventLog()
		if err != nil {
			return err
		}
		defer eventLog.Close()

		s := shell.New(configuration, logger.NewJSONLinesRecorder(eventLog))

		if oneShot != "" {
			ret := s.RunLine(oneShot)
			s.Close()
			if ret != 0 {
				os.Exit(ret)
			}
			return nil
		}

		if err := s.InitReadline(); err != nil {
			s.Close()
			return err
		}

		ret := s.RunInteractive()
		if err := s.Close(); err != nil {
			log.Printf("Error closing shell: %v", err)
		}
		if ret != 0 {
			os.Exit(ret)
		}
		return nil
	},
}

// openEventLog opens the append-only JSON-lines event log next to the
// configuration file.
func openEventLog() (*os.File, error) {
	dir := cfgPath
	if filepath.Base(dir) == config.ConfigurationName {
		dir = filepath.Dir(dir)
	}
	return os.OpenFile(
		filepath.Join(dir, config.AppLogName),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0600,
	)
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&oneShot, "command", "c", "", "run a single command line and exit")
}
