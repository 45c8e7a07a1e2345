package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessro/procd/internal/daemon"
)

var reloadServices string

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-run the services bootstrap pass",
	Long:  "Ask the daemon to re-read its services file and start any declared services that are not already running. Running services are left untouched.",
	Args:  cobra.NoArgs,
	RunE:  runReload,
}

func runReload(cmd *cobra.Command, args []string) error {
	client := MustConnect()
	defer client.Close()

	resp, err := client.Reload(reloadServices)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if resp.Status == daemon.StatusError {
		return fmt.Errorf("reload: %s", resp.Error)
	}

	fmt.Println("Services reloaded")
	return nil
}

func init() {
	reloadCmd.Flags().StringVar(&reloadServices, "services", "", "services file to load (defaults to the daemon's)")
	rootCmd.AddCommand(reloadCmd)
}
