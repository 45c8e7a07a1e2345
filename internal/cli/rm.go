package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessro/procd/internal/daemon"
)

var rmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a stopped process from the registry",
	Long:  "Remove a stopped or failed process record from the registry. Running processes must be stopped first.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRM,
}

func runRM(cmd *cobra.Command, args []string) error {
	client := MustConnect()
	defer client.Close()

	resp, err := client.RemoveProcess(args[0])
	if err != nil {
		return fmt.Errorf("remove process: %w", err)
	}
	switch resp.Status {
	case daemon.StatusNotFound:
		return fmt.Errorf("no such process: %s", resp.Name)
	case daemon.StatusError:
		return fmt.Errorf("remove %s: %s", resp.Name, resp.Error)
	}

	fmt.Printf("Removed %s\n", resp.Name)
	return nil
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
