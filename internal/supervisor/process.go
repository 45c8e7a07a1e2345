package supervisor

import (
	"os/exec"
	"time"
)

// Status is the lifecycle state of a managed process.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusStopped  Status = "stopped"
	StatusFailed   Status = "failed"
)

// ManagedProcess is the registry record for one supervised OS process.
// The exec.Cmd handle and exit channel are owned exclusively by the
// Supervisor and never leave this package; callers only see Info
// snapshots. All mutable fields are guarded by the Supervisor's mutex.
type ManagedProcess struct {
	name    string
	command string
	args    []string
	cwd     string
	env     map[string]string

	// +checklocks:Supervisor.mu
	status Status
	// +checklocks:Supervisor.mu
	pid *int
	// +checklocks:Supervisor.mu
	exitCode *int
	// +checklocks:Supervisor.mu
	startTime time.Time
	// +checklocks:Supervisor.mu
	stopTime time.Time

	stdoutBuf *RingBuffer
	stderrBuf *RingBuffer

	cmd  *exec.Cmd
	done chan struct{} // Closed by the exit waiter once Wait has returned
}

// Info is a point-in-time snapshot of a managed process.
type Info struct {
	Name          string
	Command       string
	Args          []string
	Cwd           string
	PID           *int
	Status        Status
	ExitCode      *int
	StartTime     time.Time
	UptimeSeconds *float64
}

// info builds a snapshot. Caller must hold the Supervisor's mutex.
//
// +checklocks:Supervisor.mu
func (p *ManagedProcess) info() Info {
	var uptime *float64
	if p.status == StatusRunning {
		u := roundTenth(time.Since(p.startTime).Seconds())
		uptime = &u
	} else if !p.stopTime.IsZero() {
		u := roundTenth(p.stopTime.Sub(p.startTime).Seconds())
		uptime = &u
	}

	var pid, exitCode *int
	if p.pid != nil {
		v := *p.pid
		pid = &v
	}
	if p.exitCode != nil {
		v := *p.exitCode
		exitCode = &v
	}

	return Info{
		Name:          p.name,
		Command:       p.command,
		Args:          append([]string(nil), p.args...),
		Cwd:           p.cwd,
		PID:           pid,
		Status:        p.status,
		ExitCode:      exitCode,
		StartTime:     p.startTime,
		UptimeSeconds: uptime,
	}
}

func roundTenth(f float64) float64 {
	if f < 0 {
		f = 0
	}
	return float64(int64(f*10+0.5)) / 10
}

// Output is a point-in-time snapshot of a process's buffered output.
// Stdout/Stderr are nil when the corresponding stream was not requested.
type Output struct {
	Name      string
	Status    Status
	PID       *int
	Stdout    *string
	StdoutSeq *int64
	Stderr    *string
	StderrSeq *int64
}
