package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessro/procd/internal/tui"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Live process monitor",
	Long:  "Open an interactive terminal view of all managed processes with a live tail of the selected process's output.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := MustConnect()
		defer client.Close()

		if err := tui.Run(client); err != nil {
			return fmt.Errorf("run monitor: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(topCmd)
}
