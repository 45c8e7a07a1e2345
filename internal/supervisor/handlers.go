package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tessro/procd/internal/daemon"
	"github.com/tessro/procd/internal/version"
)

// Handle processes IPC requests and returns responses.
// Implements daemon.Handler. Operation-level failures (unknown process,
// spawn errors) are reported inside the payload so callers can render
// "no such process" distinctly from a broken request; envelope-level
// failure is reserved for malformed payloads and unknown message types.
func (s *Supervisor) Handle(ctx context.Context, req *daemon.Request) *daemon.Response {
	slog.Debug("supervisor handling request", "type", req.Type)
	switch req.Type {
	case daemon.MsgPing:
		return s.handlePing(req)
	case daemon.MsgShutdown:
		return s.handleShutdown(req)
	case daemon.MsgProcStart:
		return s.handleProcStart(req)
	case daemon.MsgProcStop:
		return s.handleProcStop(req)
	case daemon.MsgProcList:
		return s.handleProcList(req)
	case daemon.MsgProcOutput:
		return s.handleProcOutput(req)
	case daemon.MsgProcRemove:
		return s.handleProcRemove(req)
	case daemon.MsgProcReload:
		return s.handleProcReload(req)
	default:
		return errorResponse(req, fmt.Sprintf("unknown message type: %s", req.Type))
	}
}

func (s *Supervisor) handlePing(req *daemon.Request) *daemon.Response {
	return successResponse(req, daemon.PingResponse{
		Version:   version.Version,
		PID:       os.Getpid(),
		Uptime:    time.Since(s.startedAt).Truncate(time.Second).String(),
		StartedAt: s.startedAt,
	})
}

func (s *Supervisor) handleShutdown(req *daemon.Request) *daemon.Response {
	s.RequestShutdown()
	return successResponse(req, nil)
}

func (s *Supervisor) handleProcStart(req *daemon.Request) *daemon.Response {
	var payload daemon.StartProcessRequest
	if err := unmarshalPayload(req.Payload, &payload); err != nil {
		return errorResponse(req, fmt.Sprintf("decode payload: %v", err))
	}
	if payload.Name == "" || payload.Command == "" {
		return errorResponse(req, "name and command are required")
	}

	info, err := s.Start(payload.Name, payload.Command, payload.Args, payload.Cwd, payload.Env)
	if err != nil {
		return successResponse(req, daemon.StartProcessResponse{
			Name:   payload.Name,
			Status: daemon.StatusError,
			Error:  err.Error(),
		})
	}

	return successResponse(req, daemon.StartProcessResponse{
		Name:    info.Name,
		PID:     info.PID,
		Status:  string(info.Status),
		Command: strings.TrimSpace(info.Command + " " + strings.Join(info.Args, " ")),
		Cwd:     info.Cwd,
	})
}

func (s *Supervisor) handleProcStop(req *daemon.Request) *daemon.Response {
	var payload daemon.StopProcessRequest
	if err := unmarshalPayload(req.Payload, &payload); err != nil {
		return errorResponse(req, fmt.Sprintf("decode payload: %v", err))
	}

	info, err := s.Stop(payload.Name, payload.Force)
	if err != nil {
		status := daemon.StatusError
		if errors.Is(err, ErrNotFound) {
			status = daemon.StatusNotFound
		}
		return successResponse(req, daemon.StopProcessResponse{
			Name:   payload.Name,
			Status: status,
			Error:  err.Error(),
		})
	}

	return successResponse(req, daemon.StopProcessResponse{
		Name:     info.Name,
		Status:   string(info.Status),
		ExitCode: info.ExitCode,
	})
}

func (s *Supervisor) handleProcList(req *daemon.Request) *daemon.Response {
	infos := s.List()
	processes := make([]daemon.ProcessSummary, 0, len(infos))
	for _, info := range infos {
		processes = append(processes, daemon.ProcessSummary{
			Name:          info.Name,
			Command:       info.Command,
			Args:          info.Args,
			Cwd:           info.Cwd,
			PID:           info.PID,
			Status:        string(info.Status),
			ExitCode:      info.ExitCode,
			StartTime:     info.StartTime,
			UptimeSeconds: info.UptimeSeconds,
		})
	}
	return successResponse(req, daemon.ListProcessesResponse{
		Count:     len(processes),
		Processes: processes,
	})
}

func (s *Supervisor) handleProcOutput(req *daemon.Request) *daemon.Response {
	var payload daemon.GetOutputRequest
	if err := unmarshalPayload(req.Payload, &payload); err != nil {
		return errorResponse(req, fmt.Sprintf("decode payload: %v", err))
	}
	if payload.Stream == "" {
		payload.Stream = "all"
	}
	if payload.Tail <= 0 {
		payload.Tail = daemon.DefaultOutputTail
	}

	out, err := s.GetOutput(payload.Name, payload.Stream, payload.Tail)
	if err != nil {
		return successResponse(req, daemon.GetOutputResponse{
			Name:   payload.Name,
			Status: daemon.StatusNotFound,
			Error:  err.Error(),
		})
	}

	return successResponse(req, daemon.GetOutputResponse{
		Name:      out.Name,
		Status:    string(out.Status),
		PID:       out.PID,
		Stdout:    out.Stdout,
		StdoutSeq: out.StdoutSeq,
		Stderr:    out.Stderr,
		StderrSeq: out.StderrSeq,
	})
}

func (s *Supervisor) handleProcRemove(req *daemon.Request) *daemon.Response {
	var payload daemon.RemoveProcessRequest
	if err := unmarshalPayload(req.Payload, &payload); err != nil {
		return errorResponse(req, fmt.Sprintf("decode payload: %v", err))
	}

	if err := s.Remove(payload.Name); err != nil {
		status := daemon.StatusError
		if errors.Is(err, ErrNotFound) {
			status = daemon.StatusNotFound
		}
		return successResponse(req, daemon.RemoveProcessResponse{
			Name:   payload.Name,
			Status: status,
			Error:  err.Error(),
		})
	}

	return successResponse(req, daemon.RemoveProcessResponse{
		Name:   payload.Name,
		Status: "removed",
	})
}

func (s *Supervisor) handleProcReload(req *daemon.Request) *daemon.Response {
	var payload daemon.ReloadRequest
	if err := unmarshalPayload(req.Payload, &payload); err != nil {
		return errorResponse(req, fmt.Sprintf("decode payload: %v", err))
	}

	path := payload.Path
	if path == "" {
		path = s.servicesPath
	}
	if path == "" {
		return successResponse(req, daemon.ReloadResponse{
			Status: daemon.StatusError,
			Error:  "no services file configured",
		})
	}

	if err := s.Bootstrap(path); err != nil {
		return successResponse(req, daemon.ReloadResponse{
			Status: daemon.StatusError,
			Error:  err.Error(),
		})
	}
	return successResponse(req, daemon.ReloadResponse{Status: "ok"})
}

// successResponse creates a successful response.
func successResponse(req *daemon.Request, payload any) *daemon.Response {
	return &daemon.Response{
		Type:    req.Type,
		ID:      req.ID,
		Success: true,
		Payload: payload,
	}
}

// errorResponse creates an error response.
func errorResponse(req *daemon.Request, msg string) *daemon.Response {
	return &daemon.Response{
		Type:    req.Type,
		ID:      req.ID,
		Success: false,
		Error:   msg,
	}
}

// unmarshalPayload converts an any payload to a specific type.
func unmarshalPayload(payload any, dst any) error {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
