package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// startTestServer starts a server on a temp socket and returns a connected
// client. Both are torn down with the test.
func startTestServer(t *testing.T, handler Handler) *Client {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "procd.sock")
	server := NewServer(socketPath, handler)
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { server.Stop() })

	client := NewClient(socketPath)
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func echoHandler() Handler {
	return HandlerFunc(func(ctx context.Context, req *Request) *Response {
		return &Response{
			Type:    req.Type,
			ID:      req.ID,
			Success: true,
			Payload: req.Payload,
		}
	})
}

func TestServerClient_RoundTrip(t *testing.T) {
	client := startTestServer(t, echoHandler())

	resp, err := client.Send(&Request{Type: MsgPing})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !resp.Success {
		t.Errorf("Success = false, want true")
	}
	if resp.Type != MsgPing {
		t.Errorf("Type = %s, want %s", resp.Type, MsgPing)
	}
	if resp.ID == "" {
		t.Error("ID is empty, want generated request ID")
	}
}

func TestServerClient_MultipleRequests(t *testing.T) {
	client := startTestServer(t, echoHandler())

	// Requests on one connection get distinct correlated IDs.
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		resp, err := client.Send(&Request{Type: MsgProcList})
		if err != nil {
			t.Fatalf("Send() #%d error = %v", i, err)
		}
		if seen[resp.ID] {
			t.Errorf("duplicate response ID %q", resp.ID)
		}
		seen[resp.ID] = true
	}
}

func TestServerClient_HandlerError(t *testing.T) {
	client := startTestServer(t, HandlerFunc(func(ctx context.Context, req *Request) *Response {
		return &Response{Success: false, Error: "boom"}
	}))

	_, err := client.Ping()
	if err == nil {
		t.Fatal("Ping() error = nil, want server error")
	}
	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("error type = %T, want *ServerError", err)
	}
	if serverErr.Message != "boom" {
		t.Errorf("Message = %q, want %q", serverErr.Message, "boom")
	}
}

func TestServerClient_NilHandlerResponse(t *testing.T) {
	client := startTestServer(t, HandlerFunc(func(ctx context.Context, req *Request) *Response {
		return nil
	}))

	resp, err := client.Send(&Request{Type: MsgPing})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Success {
		t.Error("Success = true for nil handler response")
	}
}

func TestServer_StaleSocketRemoved(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "procd.sock")
	if err := os.WriteFile(socketPath, []byte("stale"), 0o600); err != nil {
		t.Fatalf("write stale socket: %v", err)
	}

	server := NewServer(socketPath, echoHandler())
	if err := server.Start(); err != nil {
		t.Fatalf("Start() with stale socket error = %v", err)
	}
	defer server.Stop()
}

func TestServer_StopRemovesSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "procd.sock")
	server := NewServer(socketPath, echoHandler())
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Errorf("socket file still exists after Stop")
	}
}

func TestServer_DoubleStart(t *testing.T) {
	server := NewServer(filepath.Join(t.TempDir(), "procd.sock"), echoHandler())
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer server.Stop()

	if err := server.Start(); err == nil {
		t.Error("second Start() error = nil, want already-started error")
	}
}

func TestClient_NotConnected(t *testing.T) {
	client := NewClient(filepath.Join(t.TempDir(), "procd.sock"))
	if _, err := client.Send(&Request{Type: MsgPing}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
}

func TestClient_TypedMethods(t *testing.T) {
	pid := 1234
	client := startTestServer(t, HandlerFunc(func(ctx context.Context, req *Request) *Response {
		var payload any
		switch req.Type {
		case MsgProcStart:
			payload = StartProcessResponse{Name: "svc", PID: &pid, Status: "running"}
		case MsgProcStop:
			payload = StopProcessResponse{Name: "svc", Status: "stopped"}
		case MsgProcList:
			payload = ListProcessesResponse{Count: 1, Processes: []ProcessSummary{{Name: "svc"}}}
		case MsgProcRemove:
			payload = RemoveProcessResponse{Name: "svc", Status: "removed"}
		case MsgProcReload:
			payload = ReloadResponse{Status: "ok"}
		}
		return &Response{Type: req.Type, ID: req.ID, Success: true, Payload: payload}
	}))

	t.Run("start", func(t *testing.T) {
		resp, err := client.StartProcess(StartProcessRequest{Name: "svc", Command: "sleep"})
		if err != nil {
			t.Fatalf("StartProcess() error = %v", err)
		}
		if resp.PID == nil || *resp.PID != pid {
			t.Errorf("PID = %v, want %d", resp.PID, pid)
		}
	})

	t.Run("stop", func(t *testing.T) {
		resp, err := client.StopProcess("svc", false)
		if err != nil {
			t.Fatalf("StopProcess() error = %v", err)
		}
		if resp.Status != "stopped" {
			t.Errorf("Status = %q, want %q", resp.Status, "stopped")
		}
	})

	t.Run("list", func(t *testing.T) {
		resp, err := client.ListProcesses()
		if err != nil {
			t.Fatalf("ListProcesses() error = %v", err)
		}
		if resp.Count != 1 {
			t.Errorf("Count = %d, want 1", resp.Count)
		}
	})

	t.Run("remove", func(t *testing.T) {
		resp, err := client.RemoveProcess("svc")
		if err != nil {
			t.Fatalf("RemoveProcess() error = %v", err)
		}
		if resp.Status != "removed" {
			t.Errorf("Status = %q, want %q", resp.Status, "removed")
		}
	})

	t.Run("reload", func(t *testing.T) {
		resp, err := client.Reload("")
		if err != nil {
			t.Fatalf("Reload() error = %v", err)
		}
		if resp.Status != "ok" {
			t.Errorf("Status = %q, want %q", resp.Status, "ok")
		}
	})
}
