package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List managed processes",
	Long:  "List every managed process in the registry (running, stopped, or failed) with its status, PID, exit code, and uptime.",
	Args:  cobra.NoArgs,
	RunE:  runPS,
}

func runPS(cmd *cobra.Command, args []string) error {
	client := MustConnect()
	defer client.Close()

	resp, err := client.ListProcesses()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	if resp.Count == 0 {
		fmt.Println("No managed processes.")
		fmt.Println("Start one with: procd start <name> <command> [args...]")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSTATUS\tPID\tEXIT\tUPTIME\tCOMMAND")
	for _, p := range resp.Processes {
		pid := "-"
		if p.PID != nil {
			pid = fmt.Sprintf("%d", *p.PID)
		}
		exit := "-"
		if p.ExitCode != nil {
			exit = fmt.Sprintf("%d", *p.ExitCode)
		}
		uptime := "-"
		if p.UptimeSeconds != nil {
			uptime = (time.Duration(*p.UptimeSeconds * float64(time.Second))).Truncate(time.Second).String()
		}
		command := p.Command
		for _, a := range p.Args {
			command += " " + a
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", p.Name, p.Status, pid, exit, uptime, command)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(psCmd)
}
