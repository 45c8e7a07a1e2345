package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessro/procd/internal/daemon"
)

var (
	startCwd string
	startEnv map[string]string
)

var startCmd = &cobra.Command{
	Use:   "start <name> <command> [args...]",
	Short: "Start a named long-running process",
	Long:  "Start a named long-running process under the daemon. Starting a name that is already running returns the existing process instead of spawning a duplicate.",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	client := MustConnect()
	defer client.Close()

	resp, err := client.StartProcess(daemon.StartProcessRequest{
		Name:    args[0],
		Command: args[1],
		Args:    args[2:],
		Cwd:     startCwd,
		Env:     startEnv,
	})
	if err != nil {
		return fmt.Errorf("start process: %w", err)
	}
	if resp.Status == daemon.StatusError {
		return fmt.Errorf("start %s: %s", resp.Name, resp.Error)
	}

	pid := 0
	if resp.PID != nil {
		pid = *resp.PID
	}
	fmt.Printf("Started %s (pid %d): %s\n", resp.Name, pid, resp.Command)
	return nil
}

func init() {
	startCmd.Flags().StringVar(&startCwd, "cwd", "", "working directory for the process")
	startCmd.Flags().StringToStringVar(&startEnv, "env", nil, "extra environment variables (KEY=VALUE)")
	rootCmd.AddCommand(startCmd)
}
