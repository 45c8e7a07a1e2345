package supervisor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/tessro/procd/internal/logging"
)

func newTestSupervisor() *Supervisor {
	return New(Config{
		BufferChars: 10_000,
		StopTimeout: 2 * time.Second,
	})
}

// waitStatus polls until the named process reaches the wanted status.
func waitStatus(t *testing.T, s *Supervisor, name string, want Status) Info {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, info := range s.List() {
			if info.Name == name && info.Status == want {
				return info
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("process %s never reached status %s", name, want)
	return Info{}
}

func findInfo(t *testing.T, s *Supervisor, name string) Info {
	t.Helper()
	for _, info := range s.List() {
		if info.Name == name {
			return info
		}
	}
	t.Fatalf("process %s not in registry", name)
	return Info{}
}

func TestSupervisor_StartAndExit(t *testing.T) {
	s := newTestSupervisor()

	info, err := s.Start("echoer", "sh", []string{"-c", "echo hi"}, "", nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if info.PID == nil {
		t.Fatal("Start() returned nil PID")
	}
	if info.Status != StatusRunning {
		t.Errorf("Start() status = %s, want %s", info.Status, StatusRunning)
	}

	final := waitStatus(t, s, "echoer", StatusStopped)
	if final.ExitCode == nil || *final.ExitCode != 0 {
		t.Errorf("ExitCode = %v, want 0", final.ExitCode)
	}
	if final.UptimeSeconds == nil {
		t.Error("UptimeSeconds = nil, want recorded duration")
	}

	out, err := s.GetOutput("echoer", "stdout", 1000)
	if err != nil {
		t.Fatalf("GetOutput() error = %v", err)
	}
	if out.Stdout == nil || *out.Stdout != "hi\n" {
		t.Errorf("Stdout = %v, want %q", out.Stdout, "hi\n")
	}
}

func TestSupervisor_NonZeroExitIsFailed(t *testing.T) {
	s := newTestSupervisor()

	if _, err := s.Start("failer", "sh", []string{"-c", "echo oops >&2; exit 3"}, "", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	final := waitStatus(t, s, "failer", StatusFailed)
	if final.ExitCode == nil || *final.ExitCode != 3 {
		t.Errorf("ExitCode = %v, want 3", final.ExitCode)
	}

	out, err := s.GetOutput("failer", "stderr", 1000)
	if err != nil {
		t.Fatalf("GetOutput() error = %v", err)
	}
	if out.Stderr == nil || *out.Stderr != "oops\n" {
		t.Errorf("Stderr = %v, want %q", out.Stderr, "oops\n")
	}
}

func TestSupervisor_IdempotentStart(t *testing.T) {
	s := newTestSupervisor()

	first, err := s.Start("sleeper", "sleep", []string{"60"}, "", nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop("sleeper", true)

	second, err := s.Start("sleeper", "sleep", []string{"60"}, "", nil)
	if err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if second.PID == nil || first.PID == nil || *second.PID != *first.PID {
		t.Errorf("second Start() PID = %v, want %v (no respawn)", second.PID, first.PID)
	}
	if len(s.List()) != 1 {
		t.Errorf("List() has %d entries, want 1", len(s.List()))
	}
}

func TestSupervisor_RestartAfterExit(t *testing.T) {
	s := newTestSupervisor()

	if _, err := s.Start("job", "sh", []string{"-c", "echo one"}, "", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitStatus(t, s, "job", StatusStopped)

	// Same name, dead record: the record is replaced and a fresh process
	// spawned with empty buffers.
	if _, err := s.Start("job", "sh", []string{"-c", "echo two"}, "", nil); err != nil {
		t.Fatalf("restart Start() error = %v", err)
	}
	waitStatus(t, s, "job", StatusStopped)

	out, err := s.GetOutput("job", "stdout", 1000)
	if err != nil {
		t.Fatalf("GetOutput() error = %v", err)
	}
	if out.Stdout == nil || *out.Stdout != "two\n" {
		t.Errorf("Stdout after restart = %v, want %q", out.Stdout, "two\n")
	}
}

func TestSupervisor_Stop(t *testing.T) {
	t.Run("graceful", func(t *testing.T) {
		s := newTestSupervisor()
		if _, err := s.Start("sleeper", "sleep", []string{"60"}, "", nil); err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		info, err := s.Stop("sleeper", false)
		if err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		if info.Status != StatusStopped {
			t.Errorf("Stop() status = %s, want %s", info.Status, StatusStopped)
		}
	})

	t.Run("force", func(t *testing.T) {
		s := newTestSupervisor()
		if _, err := s.Start("sleeper", "sleep", []string{"60"}, "", nil); err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		info, err := s.Stop("sleeper", true)
		if err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		if info.Status != StatusStopped {
			t.Errorf("Stop() status = %s, want %s", info.Status, StatusStopped)
		}
		if info.ExitCode == nil || *info.ExitCode != -1 {
			t.Errorf("ExitCode = %v, want -1 for a killed process", info.ExitCode)
		}
	})

	t.Run("escalates to SIGKILL", func(t *testing.T) {
		s := newTestSupervisor()
		script := `trap "" TERM; while :; do sleep 0.1; done`
		if _, err := s.Start("stubborn", "sh", []string{"-c", script}, "", nil); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		// Give the shell a moment to install its trap.
		time.Sleep(100 * time.Millisecond)

		start := time.Now()
		info, err := s.StopWithTimeout("stubborn", false, 300*time.Millisecond)
		if err != nil {
			t.Fatalf("StopWithTimeout() error = %v", err)
		}
		if info.Status != StatusStopped {
			t.Errorf("status = %s, want %s", info.Status, StatusStopped)
		}
		if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
			t.Errorf("stop returned in %v, before the grace period elapsed", elapsed)
		}
	})

	t.Run("not found", func(t *testing.T) {
		s := newTestSupervisor()
		if _, err := s.Stop("ghost", false); !errors.Is(err, ErrNotFound) {
			t.Errorf("Stop() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("already stopped is a no-op", func(t *testing.T) {
		s := newTestSupervisor()
		if _, err := s.Start("quick", "sh", []string{"-c", "true"}, "", nil); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		waitStatus(t, s, "quick", StatusStopped)

		info, err := s.Stop("quick", false)
		if err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		if info.Status != StatusStopped {
			t.Errorf("status = %s, want %s", info.Status, StatusStopped)
		}
		if info.ExitCode == nil || *info.ExitCode != 0 {
			t.Errorf("ExitCode = %v, want 0 (unchanged)", info.ExitCode)
		}
	})
}

func TestSupervisor_ExitDetectedWithLingeringChild(t *testing.T) {
	s := newTestSupervisor()

	// The background child inherits stdout/stderr and keeps them open
	// long after the shell itself exits. Exit detection must not wait
	// for stream EOF.
	info, err := s.Start("forker", "sh", []string{"-c", "echo spawned; sleep 30 & exit 3"}, "", nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	pid := *info.PID
	t.Cleanup(func() { _ = syscall.Kill(-pid, syscall.SIGKILL) })

	final := waitStatus(t, s, "forker", StatusFailed)
	if final.ExitCode == nil || *final.ExitCode != 3 {
		t.Errorf("ExitCode = %v, want 3", final.ExitCode)
	}

	// Output written before the exit is still captured.
	out, err := s.GetOutput("forker", "stdout", 1000)
	if err != nil {
		t.Fatalf("GetOutput() error = %v", err)
	}
	if out.Stdout == nil || *out.Stdout != "spawned\n" {
		t.Errorf("Stdout = %v, want %q", out.Stdout, "spawned\n")
	}
}

func TestSupervisor_StopRacesSelfExit(t *testing.T) {
	s := newTestSupervisor()

	// A process that exits the instant it starts races the stop request.
	// Whichever side settles terminal state first, the outcome must be a
	// stable stopped record carrying the real exit code.
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("racer-%d", i)
		if _, err := s.Start(name, "sh", []string{"-c", "exit 0"}, "", nil); err != nil {
			t.Fatalf("Start(%s) error = %v", name, err)
		}
		if _, err := s.Stop(name, false); err != nil {
			t.Fatalf("Stop(%s) error = %v", name, err)
		}

		final := waitStatus(t, s, name, StatusStopped)
		if final.ExitCode == nil || *final.ExitCode != 0 {
			t.Errorf("%s ExitCode = %v, want 0", name, final.ExitCode)
		}

		// The exit waiter must not rewrite terminal state afterwards.
		time.Sleep(10 * time.Millisecond)
		if again := findInfo(t, s, name); again.Status != StatusStopped {
			t.Errorf("%s status drifted to %s after settling", name, again.Status)
		}
	}
}

func TestSupervisor_StopLogsExitCode(t *testing.T) {
	var buf bytes.Buffer
	logging.SetupTest(&buf)
	t.Cleanup(func() { logging.SetupTest(os.Stderr) })

	s := newTestSupervisor()
	if _, err := s.Start("sleeper", "sleep", []string{"60"}, "", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := s.Stop("sleeper", true); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// The recorded code appears as a scalar, not a pointer address.
	var stoppedLine string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "process stopped") {
			stoppedLine = line
			break
		}
	}
	if stoppedLine == "" {
		t.Fatalf("no stop log line:\n%s", buf.String())
	}
	if !strings.Contains(stoppedLine, "exit_code=-1") {
		t.Errorf("stop log exit code not scalar: %s", stoppedLine)
	}
}

func TestSupervisor_BadWorkDir(t *testing.T) {
	s := newTestSupervisor()

	_, err := s.Start("lost", "sleep", []string{"60"}, "/nonexistent/path", nil)
	if !errors.Is(err, ErrBadWorkDir) {
		t.Fatalf("Start() error = %v, want ErrBadWorkDir", err)
	}
	if len(s.List()) != 0 {
		t.Errorf("List() has %d entries after rejected start, want 0", len(s.List()))
	}
}

func TestSupervisor_SpawnFailure(t *testing.T) {
	s := newTestSupervisor()

	_, err := s.Start("broken", "/nonexistent/binary", nil, "", nil)
	if err == nil {
		t.Fatal("Start() error = nil, want spawn failure")
	}

	// The failed record stays visible so the failure can be inspected.
	info := findInfo(t, s, "broken")
	if info.Status != StatusFailed {
		t.Errorf("status = %s, want %s", info.Status, StatusFailed)
	}

	out, err := s.GetOutput("broken", "stderr", 1000)
	if err != nil {
		t.Fatalf("GetOutput() error = %v", err)
	}
	if out.Stderr == nil || !strings.Contains(*out.Stderr, "Failed to start:") {
		t.Errorf("Stderr = %v, want spawn failure text", out.Stderr)
	}
}

func TestSupervisor_EnvAndCwd(t *testing.T) {
	s := newTestSupervisor()
	dir := t.TempDir()

	_, err := s.Start("envcheck", "sh", []string{"-c", "echo $PROCD_TEST_VALUE; pwd"}, dir,
		map[string]string{"PROCD_TEST_VALUE": "injected"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitStatus(t, s, "envcheck", StatusStopped)

	out, err := s.GetOutput("envcheck", "stdout", 1000)
	if err != nil {
		t.Fatalf("GetOutput() error = %v", err)
	}
	if out.Stdout == nil {
		t.Fatal("Stdout = nil")
	}
	if !strings.Contains(*out.Stdout, "injected") {
		t.Errorf("Stdout = %q, want injected env value", *out.Stdout)
	}
	if !strings.Contains(*out.Stdout, dir) {
		t.Errorf("Stdout = %q, want working directory %q", *out.Stdout, dir)
	}
}

func TestSupervisor_GetOutput(t *testing.T) {
	s := newTestSupervisor()

	if _, err := s.Start("talker", "sh", []string{"-c", "echo out; echo err >&2"}, "", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitStatus(t, s, "talker", StatusStopped)

	t.Run("stdout only", func(t *testing.T) {
		out, err := s.GetOutput("talker", "stdout", 1000)
		if err != nil {
			t.Fatalf("GetOutput() error = %v", err)
		}
		if out.Stdout == nil || *out.Stdout != "out\n" {
			t.Errorf("Stdout = %v, want %q", out.Stdout, "out\n")
		}
		if out.Stderr != nil {
			t.Errorf("Stderr = %v, want nil for stdout stream", out.Stderr)
		}
	})

	t.Run("stderr only", func(t *testing.T) {
		out, err := s.GetOutput("talker", "stderr", 1000)
		if err != nil {
			t.Fatalf("GetOutput() error = %v", err)
		}
		if out.Stderr == nil || *out.Stderr != "err\n" {
			t.Errorf("Stderr = %v, want %q", out.Stderr, "err\n")
		}
		if out.Stdout != nil {
			t.Errorf("Stdout = %v, want nil for stderr stream", out.Stdout)
		}
	})

	t.Run("all streams", func(t *testing.T) {
		out, err := s.GetOutput("talker", "all", 1000)
		if err != nil {
			t.Fatalf("GetOutput() error = %v", err)
		}
		if out.Stdout == nil || out.Stderr == nil {
			t.Fatal("want both streams populated")
		}
		if out.StdoutSeq == nil || *out.StdoutSeq == 0 {
			t.Errorf("StdoutSeq = %v, want positive", out.StdoutSeq)
		}
	})

	t.Run("tail truncates", func(t *testing.T) {
		out, err := s.GetOutput("talker", "stdout", 2)
		if err != nil {
			t.Fatalf("GetOutput() error = %v", err)
		}
		if out.Stdout == nil || *out.Stdout != "t\n" {
			t.Errorf("Stdout = %v, want %q", out.Stdout, "t\n")
		}
	})

	t.Run("unknown process", func(t *testing.T) {
		if _, err := s.GetOutput("ghost", "all", 1000); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetOutput() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSupervisor_Remove(t *testing.T) {
	s := newTestSupervisor()

	if _, err := s.Start("victim", "sleep", []string{"60"}, "", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := s.Remove("victim"); !errors.Is(err, ErrStillRunning) {
		t.Errorf("Remove() of running process error = %v, want ErrStillRunning", err)
	}

	if _, err := s.Stop("victim", true); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Remove("victim"); err != nil {
		t.Errorf("Remove() of stopped process error = %v", err)
	}
	if err := s.Remove("victim"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove() of removed process error = %v, want ErrNotFound", err)
	}
}

func TestSupervisor_ListSorted(t *testing.T) {
	s := newTestSupervisor()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := s.Start(name, "sh", []string{"-c", "true"}, "", nil); err != nil {
			t.Fatalf("Start(%s) error = %v", name, err)
		}
	}

	infos := s.List()
	if len(infos) != 3 {
		t.Fatalf("List() has %d entries, want 3", len(infos))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, info := range infos {
		if info.Name != want[i] {
			t.Errorf("List()[%d].Name = %s, want %s", i, info.Name, want[i])
		}
	}
}

func TestSupervisor_StopAll(t *testing.T) {
	s := newTestSupervisor()
	for _, name := range []string{"one", "two"} {
		if _, err := s.Start(name, "sleep", []string{"60"}, "", nil); err != nil {
			t.Fatalf("Start(%s) error = %v", name, err)
		}
	}

	s.StopAll()

	for _, info := range s.List() {
		if info.Status != StatusStopped {
			t.Errorf("process %s status = %s after StopAll, want %s", info.Name, info.Status, StatusStopped)
		}
	}
}
