package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  "Display whether the procd daemon is running, its PID, version, and uptime.",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := ConnectClient()
	if err != nil {
		if errors.Is(err, ErrDaemonNotRunning) {
			fmt.Println("procd daemon is not running")
			return nil
		}
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer client.Close()

	ping, err := client.Ping()
	if err != nil {
		return fmt.Errorf("ping daemon: %w", err)
	}

	fmt.Printf("procd daemon running (pid %d, version %s, uptime %s)\n", ping.PID, ping.Version, ping.Uptime)
	return nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
