package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Stop the procd daemon",
	Long:  "Stop the running procd daemon. All managed processes are stopped with it.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := MustConnect()
		defer client.Close()

		if err := client.Shutdown(); err != nil {
			return fmt.Errorf("shutdown daemon: %w", err)
		}

		fmt.Println("procd daemon stopping")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shutdownCmd)
}
