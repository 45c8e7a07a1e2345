package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessro/procd/internal/daemon"
)

var stopForce bool

var stopCmd = &cobra.Command{
	Use:   "stop <name>",
	Short: "Stop a managed process",
	Long:  "Stop a managed process. Sends SIGTERM to its process group and escalates to SIGKILL if it does not exit within the grace period.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	client := MustConnect()
	defer client.Close()

	resp, err := client.StopProcess(args[0], stopForce)
	if err != nil {
		return fmt.Errorf("stop process: %w", err)
	}
	switch resp.Status {
	case daemon.StatusNotFound:
		return fmt.Errorf("no such process: %s", resp.Name)
	case daemon.StatusError:
		return fmt.Errorf("stop %s: %s", resp.Name, resp.Error)
	}

	if resp.ExitCode != nil {
		fmt.Printf("Stopped %s (exit code %d)\n", resp.Name, *resp.ExitCode)
	} else {
		fmt.Printf("Stopped %s\n", resp.Name)
	}
	return nil
}

func init() {
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "SIGKILL immediately instead of SIGTERM")
	rootCmd.AddCommand(stopCmd)
}
