package supervisor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/tessro/procd/internal/config"
	"github.com/tessro/procd/internal/logging"
)

// Errors returned by supervisor operations.
var (
	// ErrNotFound indicates no managed process has the given name.
	ErrNotFound = errors.New("no such process")

	// ErrStillRunning is returned by Remove for a running process.
	ErrStillRunning = errors.New("process is still running")

	// ErrBadWorkDir indicates the requested working directory does not exist.
	ErrBadWorkDir = errors.New("working directory does not exist")
)

// KillTimeout is how long stop waits for exit after escalating to SIGKILL.
// A process that survives even this is considered gone regardless.
const KillTimeout = 5 * time.Second

// Config configures a Supervisor.
type Config struct {
	// BufferChars is the per-stream output buffer budget.
	// Zero means DefaultBufferChars.
	BufferChars int

	// StopTimeout is the SIGTERM grace period before SIGKILL escalation.
	// Zero means config.DefaultStopTimeout.
	StopTimeout time.Duration

	// ServicesPath is the declarative services file used by Reload when
	// no explicit path is given.
	ServicesPath string
}

// Supervisor manages a registry of named long-running processes.
// One Supervisor instance exclusively owns its registry; a single mutex
// guards the registry map and all record lifecycle state, which gives
// racing operations the same atomicity the registry needs for idempotent
// starts (a record is inserted before its spawn can be observed).
type Supervisor struct {
	mu sync.Mutex
	// +checklocks:mu
	procs map[string]*ManagedProcess

	bufferChars  int
	stopTimeout  time.Duration
	servicesPath string
	startedAt    time.Time

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// New creates a Supervisor with the given configuration.
func New(cfg Config) *Supervisor {
	if cfg.BufferChars <= 0 {
		cfg.BufferChars = DefaultBufferChars
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = config.DefaultStopTimeout
	}
	return &Supervisor{
		procs:        make(map[string]*ManagedProcess),
		bufferChars:  cfg.BufferChars,
		stopTimeout:  cfg.StopTimeout,
		servicesPath: cfg.ServicesPath,
		startedAt:    time.Now(),
		shutdownCh:   make(chan struct{}),
	}
}

// StartedAt returns when the supervisor was created.
func (s *Supervisor) StartedAt() time.Time {
	return s.startedAt
}

// ShutdownRequested returns a channel closed when a shutdown request
// arrives over IPC.
func (s *Supervisor) ShutdownRequested() <-chan struct{} {
	return s.shutdownCh
}

// RequestShutdown signals the serve loop to exit. Safe to call repeatedly.
func (s *Supervisor) RequestShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// Start launches a named process. Idempotent with respect to a live
// process: if a record with this name is starting or running, it is
// returned unchanged and nothing is spawned. A stopped or failed record
// with the same name is discarded and a fresh spawn is attempted.
//
// The child is spawned as the leader of a new process group so Stop can
// signal its whole subtree. On spawn failure the record is kept in the
// registry with status failed (the failure text lands in its stderr
// buffer) and the error is returned.
func (s *Supervisor) Start(name, command string, args []string, cwd string, env map[string]string) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.procs[name]; ok {
		if existing.status == StatusRunning || existing.status == StatusStarting {
			slog.Debug("process already running", "name", name)
			return existing.info(), nil
		}
		// Dead record with the same name: discard, never reuse.
		delete(s.procs, name)
	}

	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Info{}, fmt.Errorf("resolve working directory: %w", err)
		}
		cwd = wd
	}
	if fi, err := os.Stat(cwd); err != nil || !fi.IsDir() {
		return Info{}, fmt.Errorf("%w: %s", ErrBadWorkDir, cwd)
	}

	p := &ManagedProcess{
		name:      name,
		command:   command,
		args:      append([]string(nil), args...),
		cwd:       cwd,
		env:       env,
		status:    StatusStarting,
		startTime: time.Now(),
		stdoutBuf: NewRingBuffer(s.bufferChars),
		stderrBuf: NewRingBuffer(s.bufferChars),
		done:      make(chan struct{}),
	}
	s.procs[name] = p

	cmd := exec.Command(command, args...)
	cmd.Dir = cwd
	// exec uses the last value for duplicate keys, so caller entries win.
	cmd.Env = append(os.Environ(), flattenEnv(env)...)
	// New process group so Stop can signal the whole subtree as a unit.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Write ends are handed to the child as raw descriptors so Wait
	// returns on process exit even while a forked grandchild keeps the
	// streams open.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return Info{}, s.failSpawn(p, fmt.Errorf("stdout pipe: %w", err))
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return Info{}, s.failSpawn(p, fmt.Errorf("stderr pipe: %w", err))
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return Info{}, s.failSpawn(p, fmt.Errorf("start process: %w", err))
	}
	// The child tree now holds its own copies of the write ends; release
	// ours so the drains see EOF once the last holder is gone.
	stdoutW.Close()
	stderrW.Close()

	pid := cmd.Process.Pid
	p.cmd = cmd
	p.pid = &pid
	p.status = StatusRunning

	go s.drainStream(name+"-stdout", stdoutR, p.stdoutBuf)
	go s.drainStream(name+"-stderr", stderrR, p.stderrBuf)
	go s.waitForExit(p)

	slog.Info("process started", "name", name, "pid", pid, "command", command)
	return p.info(), nil
}

// failSpawn marks a record failed and records the failure in its stderr
// buffer. Caller must hold s.mu.
//
// +checklocks:s.mu
func (s *Supervisor) failSpawn(p *ManagedProcess, err error) error {
	p.status = StatusFailed
	p.stopTime = time.Now()
	p.stderrBuf.Append(fmt.Sprintf("Failed to start: %v\n", err))
	close(p.done)
	slog.Error("process spawn failed", "name", p.name, "error", err)
	return err
}

// flattenEnv converts an override map to KEY=VALUE form, sorted for
// deterministic spawns.
func flattenEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// drainStream reads chunks from a pipe into a ring buffer until every
// holder of the write end is gone. A forked child that inherits the
// stream keeps the drain alive past its parent's terminal state; output
// it writes is still captured.
func (s *Supervisor) drainStream(name string, r io.ReadCloser, buf *RingBuffer) {
	defer logging.LogPanic(name+"-drain", nil)
	defer r.Close()

	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Append(string(chunk[:n]))
		}
		if err != nil {
			return
		}
	}
}

// waitForExit reaps the process and finalizes terminal state, unless an
// in-flight Stop owns the terminal transition. The wait is on the
// process alone, not on stream EOF, so exit is detected immediately
// even when a grandchild still holds the stdio pipes.
func (s *Supervisor) waitForExit(p *ManagedProcess) {
	defer logging.LogPanic(p.name+"-waiter", nil)

	err := p.cmd.Wait()
	code := exitCode(p.cmd, err)

	s.mu.Lock()
	p.exitCode = &code
	if p.status != StatusStopping {
		// A caller-initiated stop finalizes status itself; only settle
		// terminal state here when the process exited on its own.
		p.stopTime = time.Now()
		if code == 0 {
			p.status = StatusStopped
		} else {
			p.status = StatusFailed
		}
	}
	s.mu.Unlock()
	close(p.done)

	slog.Info("process exited", "name", p.name, "exit_code", code)
}

// exitCode extracts the recorded exit code after Wait. A signaled child
// reports -1.
func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// Stop terminates a managed process with the default grace period.
func (s *Supervisor) Stop(name string, force bool) (Info, error) {
	return s.StopWithTimeout(name, force, s.stopTimeout)
}

// StopWithTimeout terminates a managed process. SIGTERM is sent to the
// process group (SIGKILL immediately when force is set); if the process
// has not exited after timeout the supervisor escalates to SIGKILL and
// waits a further bounded interval, tolerating a final timeout. A process
// that is not running is returned unchanged. OS-level "already gone"
// signal errors count as a successful stop.
func (s *Supervisor) StopWithTimeout(name string, force bool, timeout time.Duration) (Info, error) {
	s.mu.Lock()
	p, ok := s.procs[name]
	if !ok {
		s.mu.Unlock()
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if p.status != StatusRunning && p.status != StatusStarting {
		info := p.info()
		s.mu.Unlock()
		return info, nil
	}
	if p.cmd == nil || p.cmd.Process == nil {
		p.status = StatusStopped
		p.stopTime = time.Now()
		info := p.info()
		s.mu.Unlock()
		return info, nil
	}
	p.status = StatusStopping
	pid := p.cmd.Process.Pid
	s.mu.Unlock()

	slog.Info("stopping process", "name", name, "pid", pid, "force", force)

	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		// Group already gone; the exit waiter reaps momentarily.
		waitExit(p, KillTimeout)
		return s.finalizeStop(p), nil
	}

	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	if err := syscall.Kill(-pgid, sig); err != nil {
		waitExit(p, KillTimeout)
		return s.finalizeStop(p), nil
	}

	if force {
		waitExit(p, KillTimeout)
		return s.finalizeStop(p), nil
	}

	if !waitExit(p, timeout) {
		slog.Warn("process did not exit after SIGTERM, escalating", "name", name, "timeout", timeout)
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		if !waitExit(p, KillTimeout) {
			slog.Error("process survived SIGKILL wait, marking stopped", "name", name)
		}
	}

	return s.finalizeStop(p), nil
}

// waitExit blocks until the exit waiter has reaped the process or the
// timeout elapses. Returns true once the process is reaped.
func waitExit(p *ManagedProcess, timeout time.Duration) bool {
	select {
	case <-p.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// finalizeStop settles the terminal state for a caller-initiated stop.
func (s *Supervisor) finalizeStop(p *ManagedProcess) Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.status = StatusStopped
	if p.stopTime.IsZero() {
		p.stopTime = time.Now()
	}
	if p.exitCode != nil {
		slog.Info("process stopped", "name", p.name, "exit_code", *p.exitCode)
	} else {
		slog.Info("process stopped", "name", p.name)
	}
	return p.info()
}

// StopAll stops every running or starting process, isolating per-entry
// failures so one slow or broken shutdown cannot block the others.
// Used at daemon teardown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	names := make([]string, 0, len(s.procs))
	for name := range s.procs {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names)

	for _, name := range names {
		s.mu.Lock()
		p, ok := s.procs[name]
		running := ok && (p.status == StatusRunning || p.status == StatusStarting)
		s.mu.Unlock()
		if !running {
			continue
		}
		if _, err := s.Stop(name, false); err != nil {
			slog.Warn("stop during shutdown failed", "name", name, "error", err)
		}
	}
}

// List returns a snapshot of every managed process, sorted by name.
func (s *Supervisor) List() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]Info, 0, len(s.procs))
	for _, p := range s.procs {
		infos = append(infos, p.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// GetOutput returns buffered output for a process. stream selects
// "stdout", "stderr", or "all"; tail is the number of characters from the
// end of each buffer. The call never blocks on the process and does not
// mutate buffer state.
func (s *Supervisor) GetOutput(name, stream string, tail int) (Output, error) {
	s.mu.Lock()
	p, ok := s.procs[name]
	if !ok {
		s.mu.Unlock()
		return Output{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	out := Output{
		Name:   name,
		Status: p.status,
	}
	if p.pid != nil {
		v := *p.pid
		out.PID = &v
	}
	s.mu.Unlock()

	if stream == "stdout" || stream == "all" {
		text := p.stdoutBuf.Tail(tail)
		seq := p.stdoutBuf.Seq()
		out.Stdout = &text
		out.StdoutSeq = &seq
	}
	if stream == "stderr" || stream == "all" {
		text := p.stderrBuf.Tail(tail)
		seq := p.stderrBuf.Seq()
		out.Stderr = &text
		out.StderrSeq = &seq
	}
	return out, nil
}

// Remove deletes a non-running process from the registry.
func (s *Supervisor) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.procs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if p.status == StatusRunning || p.status == StatusStarting || p.status == StatusStopping {
		return fmt.Errorf("%w: %s (stop it first)", ErrStillRunning, name)
	}
	delete(s.procs, name)
	slog.Info("process removed", "name", name)
	return nil
}
