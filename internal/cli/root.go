package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/niuniu-server/niuniu-load/internal/logging"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "niuniu-load",
		Short:   "Load generator for the Niuniu game servers",
		Version: version,
		Long: `niuniu-load simulates players against the Niuniu game, login and hall
servers. Each user profile is a weighted task table with think time between
requests, run either by the built-in engine or as a Locust worker.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// If no subcommand is provided, print help
			return cmd.Help()
		},
	}

	root.PersistentFlags().String("log-level", logging.DefaultLevel, "Log level (trace, debug, info, warn, error)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newProfilesCmd())
	root.AddCommand(newWorkerCmd())
	return root
}

// Execute runs the root command. Errors are printed to stderr, except a run
// that finished with failed requests, whose report already says so.
func Execute() error {
	if err := RootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrRequestsFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}
