package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tessro/procd/internal/daemon"
)

var (
	logsStream string
	logsTail   int
)

var logsCmd = &cobra.Command{
	Use:   "logs <name>",
	Short: "Show buffered output from a process",
	Long:  "Show the most recent buffered stdout/stderr from a managed process's ring buffers.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

func runLogs(cmd *cobra.Command, args []string) error {
	client := MustConnect()
	defer client.Close()

	resp, err := client.GetOutput(args[0], logsStream, logsTail)
	if err != nil {
		return fmt.Errorf("get output: %w", err)
	}
	if resp.Status == daemon.StatusNotFound {
		return fmt.Errorf("no such process: %s", resp.Name)
	}

	if resp.Stdout != nil && *resp.Stdout != "" {
		fmt.Print(*resp.Stdout)
		if !hasTrailingNewline(*resp.Stdout) {
			fmt.Println()
		}
	}
	if resp.Stderr != nil && *resp.Stderr != "" {
		fmt.Fprint(os.Stderr, *resp.Stderr)
		if !hasTrailingNewline(*resp.Stderr) {
			fmt.Fprintln(os.Stderr)
		}
	}
	return nil
}

func hasTrailingNewline(s string) bool {
	return len(s) > 0 && s[len(s)-1] == '\n'
}

func init() {
	logsCmd.Flags().StringVar(&logsStream, "stream", "all", `stream to show: "stdout", "stderr", or "all"`)
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", daemon.DefaultOutputTail, "characters from the end of the buffer")
	rootCmd.AddCommand(logsCmd)
}
