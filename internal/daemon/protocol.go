// Package daemon provides the procd daemon server and IPC protocol.
package daemon

import "time"

// MessageType identifies the type of IPC message.
type MessageType string

const (
	// Server management
	MsgPing     MessageType = "ping"
	MsgShutdown MessageType = "shutdown"

	// Process management
	MsgProcStart  MessageType = "proc.start"  // Start a named process
	MsgProcStop   MessageType = "proc.stop"   // Stop a managed process
	MsgProcList   MessageType = "proc.list"   // List all managed processes
	MsgProcOutput MessageType = "proc.output" // Get buffered output from a process
	MsgProcRemove MessageType = "proc.remove" // Remove a stopped process from the registry
	MsgProcReload MessageType = "proc.reload" // Re-run the services bootstrap pass
)

// Request is the envelope for all IPC requests.
type Request struct {
	Type    MessageType `json:"type"`
	ID      string      `json:"id,omitempty"`      // Optional request ID for correlation
	Payload any         `json:"payload,omitempty"` // Type-specific payload
}

// Response is the envelope for all IPC responses.
// Success refers to the transport-level dispatch; operation-level failures
// (unknown process, spawn errors) are reported inside the payload's Status
// field so callers can distinguish "no such process" from broken requests.
type Response struct {
	Type    MessageType `json:"type"`
	ID      string      `json:"id,omitempty"` // Correlates with request ID
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Payload any         `json:"payload,omitempty"` // Type-specific payload
}

// Operation-level status values carried in response payloads.
const (
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// PingResponse is the payload for ping responses.
type PingResponse struct {
	Version   string    `json:"version"`
	PID       int       `json:"pid"`
	Uptime    string    `json:"uptime"`
	StartedAt time.Time `json:"started_at"`
}

// StartProcessRequest is the payload for proc.start requests.
type StartProcessRequest struct {
	Name    string            `json:"name"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// StartProcessResponse is the payload for proc.start responses.
type StartProcessResponse struct {
	Name    string `json:"name"`
	PID     *int   `json:"pid,omitempty"`
	Status  string `json:"status"`
	Command string `json:"command,omitempty"` // Command plus args, space-joined
	Cwd     string `json:"cwd,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StopProcessRequest is the payload for proc.stop requests.
type StopProcessRequest struct {
	Name  string `json:"name"`
	Force bool   `json:"force,omitempty"` // SIGKILL immediately instead of SIGTERM
}

// StopProcessResponse is the payload for proc.stop responses.
type StopProcessResponse struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ListProcessesResponse is the payload for proc.list responses.
type ListProcessesResponse struct {
	Count     int              `json:"count"`
	Processes []ProcessSummary `json:"processes"`
}

// ProcessSummary contains per-process status info for listing.
type ProcessSummary struct {
	Name          string    `json:"name"`
	Command       string    `json:"command"`
	Args          []string  `json:"args,omitempty"`
	Cwd           string    `json:"cwd"`
	PID           *int      `json:"pid,omitempty"`
	Status        string    `json:"status"`
	ExitCode      *int      `json:"exit_code,omitempty"`
	StartTime     time.Time `json:"start_time"`
	UptimeSeconds *float64  `json:"uptime_seconds,omitempty"`
}

// DefaultOutputTail is the default number of characters returned by proc.output.
const DefaultOutputTail = 2000

// GetOutputRequest is the payload for proc.output requests.
type GetOutputRequest struct {
	Name   string `json:"name"`
	Stream string `json:"stream,omitempty"` // "stdout", "stderr", or "all" (default)
	Tail   int    `json:"tail,omitempty"`   // Characters from the end; default 2000
}

// GetOutputResponse is the payload for proc.output responses.
type GetOutputResponse struct {
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	PID       *int    `json:"pid,omitempty"`
	Stdout    *string `json:"stdout,omitempty"`
	StdoutSeq *int64  `json:"stdout_seq,omitempty"`
	Stderr    *string `json:"stderr,omitempty"`
	StderrSeq *int64  `json:"stderr_seq,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// RemoveProcessRequest is the payload for proc.remove requests.
type RemoveProcessRequest struct {
	Name string `json:"name"`
}

// RemoveProcessResponse is the payload for proc.remove responses.
type RemoveProcessResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "removed", "not_found", or "error"
	Error  string `json:"error,omitempty"`
}

// ReloadRequest is the payload for proc.reload requests.
type ReloadRequest struct {
	Path string `json:"path,omitempty"` // Services file override; empty uses the daemon's
}

// ReloadResponse is the payload for proc.reload responses.
type ReloadResponse struct {
	Status string `json:"status"` // "ok" or "error"
	Error  string `json:"error,omitempty"`
}
