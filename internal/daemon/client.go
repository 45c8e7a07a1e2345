package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Client connects to the procd daemon over Unix socket.
type Client struct {
	socketPath string

	mu sync.Mutex
	// +checklocks:mu
	conn net.Conn
	// +checklocks:mu
	encoder *json.Encoder
	// +checklocks:mu
	decoder *json.Decoder

	// ioMu serializes all I/O operations (encode/decode).
	// Must be acquired AFTER mu if both are needed.
	ioMu sync.Mutex

	reqID atomic.Uint64
}

// NewClient creates a new daemon client.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}
	return &Client{
		socketPath: socketPath,
	}
}

// ConnectTimeout is the default timeout for connecting to the daemon.
const ConnectTimeout = 5 * time.Second

// RequestTimeout is the default timeout for request/response operations.
// Stop requests can legitimately take the full SIGTERM grace period plus
// the SIGKILL wait, so this must stay comfortably above those.
const RequestTimeout = 30 * time.Second

// Connect establishes a connection to the daemon.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil // Already connected
	}

	conn, err := net.DialTimeout("unix", c.socketPath, ConnectTimeout)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, c.socketPath, err)
	}

	c.conn = conn
	c.encoder = json.NewEncoder(conn)
	c.decoder = json.NewDecoder(conn)
	return nil
}

// Close closes the connection to the daemon.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	c.encoder = nil
	c.decoder = nil
	return err
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SocketPath returns the socket path this client connects to.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// nextID generates the next request ID.
func (c *Client) nextID() string {
	return fmt.Sprintf("req-%d", c.reqID.Add(1))
}

// decodePayload decodes the response payload into the given type.
// Returns a pointer to the decoded value, or an error if decoding fails.
// If payload is nil, returns a pointer to the zero value of T.
func decodePayload[T any](payload any) (*T, error) {
	var result T
	if payload == nil {
		return &result, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &result, nil
}

// Send sends a request and waits for the response.
// This blocks until the response is received or an error occurs.
// On connection errors, the connection is closed so that IsConnected() returns false.
func (c *Client) Send(req *Request) (*Response, error) {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := c.conn
	encoder := c.encoder
	decoder := c.decoder
	c.mu.Unlock()

	// Assign request ID if not set
	if req.ID == "" {
		req.ID = c.nextID()
	}

	// Serialize all I/O operations
	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	// Set deadline for this request/response cycle
	if err := conn.SetDeadline(time.Now().Add(RequestTimeout)); err != nil {
		c.closeConn()
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	defer func() { _ = conn.SetDeadline(time.Time{}) }() // Always clear deadline on exit

	if err := encoder.Encode(req); err != nil {
		c.closeConn()
		return nil, wrapIOError("encode request", err)
	}

	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		c.closeConn()
		return nil, wrapIOError("decode response", err)
	}

	return &resp, nil
}

// wrapIOError tags deadline expiries with ErrRequestTimeout so callers
// can tell a slow daemon apart from a broken connection.
func wrapIOError(op string, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrRequestTimeout, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// closeConn closes the main connection and clears connection state.
// Caller must NOT hold c.mu (this method acquires it).
func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.encoder = nil
		c.decoder = nil
	}
}

// Ping sends a ping request to check daemon connectivity.
func (c *Client) Ping() (*PingResponse, error) {
	resp, err := c.Send(&Request{Type: MsgPing})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError("ping", resp.Error)
	}
	return decodePayload[PingResponse](resp.Payload)
}

// Shutdown requests the daemon to shut down.
func (c *Client) Shutdown() error {
	resp, err := c.Send(&Request{Type: MsgShutdown})
	if err != nil {
		return err
	}
	if !resp.Success {
		return NewServerError("shutdown", resp.Error)
	}
	return nil
}

// StartProcess starts a named long-running process.
func (c *Client) StartProcess(req StartProcessRequest) (*StartProcessResponse, error) {
	resp, err := c.Send(&Request{Type: MsgProcStart, Payload: req})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError("start process", resp.Error)
	}
	return decodePayload[StartProcessResponse](resp.Payload)
}

// StopProcess stops a managed process.
func (c *Client) StopProcess(name string, force bool) (*StopProcessResponse, error) {
	resp, err := c.Send(&Request{
		Type:    MsgProcStop,
		Payload: StopProcessRequest{Name: name, Force: force},
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError("stop process", resp.Error)
	}
	return decodePayload[StopProcessResponse](resp.Payload)
}

// ListProcesses lists all managed processes.
func (c *Client) ListProcesses() (*ListProcessesResponse, error) {
	resp, err := c.Send(&Request{Type: MsgProcList})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError("list processes", resp.Error)
	}
	return decodePayload[ListProcessesResponse](resp.Payload)
}

// GetOutput retrieves buffered output from a process.
func (c *Client) GetOutput(name, stream string, tail int) (*GetOutputResponse, error) {
	resp, err := c.Send(&Request{
		Type:    MsgProcOutput,
		Payload: GetOutputRequest{Name: name, Stream: stream, Tail: tail},
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError("get output", resp.Error)
	}
	return decodePayload[GetOutputResponse](resp.Payload)
}

// RemoveProcess removes a stopped process from the registry.
func (c *Client) RemoveProcess(name string) (*RemoveProcessResponse, error) {
	resp, err := c.Send(&Request{
		Type:    MsgProcRemove,
		Payload: RemoveProcessRequest{Name: name},
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError("remove process", resp.Error)
	}
	return decodePayload[RemoveProcessResponse](resp.Payload)
}

// Reload re-runs the services bootstrap pass on the daemon.
func (c *Client) Reload(path string) (*ReloadResponse, error) {
	resp, err := c.Send(&Request{
		Type:    MsgProcReload,
		Payload: ReloadRequest{Path: path},
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError("reload", resp.Error)
	}
	return decodePayload[ReloadResponse](resp.Payload)
}
