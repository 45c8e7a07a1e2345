// Package cli implements the procd command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tessro/procd/internal/paths"
)

// procdDir is the global --procd-dir flag value.
var procdDir string

var rootCmd = &cobra.Command{
	Use:   "procd",
	Short: "Long-running process supervisor",
	Long:  "procd supervises named long-running processes: it launches them in their own process groups, captures their output in bounded buffers, and exposes start/stop/list/logs over a local socket.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set PROCD_DIR environment variable if --procd-dir is provided.
		// This allows all path helpers to use the override.
		if procdDir != "" {
			if err := os.Setenv(paths.EnvProcdDir, procdDir); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&procdDir, "procd-dir", "", "base directory for procd data (overrides ~/.procd)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
