package paths

import (
	"path/filepath"
	"testing"
)

func TestBaseDir(t *testing.T) {
	t.Run("default under home", func(t *testing.T) {
		t.Setenv(EnvProcdDir, "")
		dir, err := BaseDir()
		if err != nil {
			t.Fatalf("BaseDir() error = %v", err)
		}
		if filepath.Base(dir) != ".procd" {
			t.Errorf("BaseDir() = %q, want .procd suffix", dir)
		}
	})

	t.Run("PROCD_DIR override", func(t *testing.T) {
		t.Setenv(EnvProcdDir, "/tmp/procd-test")
		dir, err := BaseDir()
		if err != nil {
			t.Fatalf("BaseDir() error = %v", err)
		}
		if dir != "/tmp/procd-test" {
			t.Errorf("BaseDir() = %q, want %q", dir, "/tmp/procd-test")
		}
	})
}

func TestDerivedPaths(t *testing.T) {
	t.Setenv(EnvProcdDir, "/tmp/procd-test")
	t.Setenv(EnvSocketPath, "")
	t.Setenv(EnvPIDPath, "")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"socket", SocketPath(), "/tmp/procd-test/procd.sock"},
		{"pid", PIDPath(), "/tmp/procd-test/procd.pid"},
		{"log", LogPath(), "/tmp/procd-test/procd.log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	t.Run("config", func(t *testing.T) {
		path, err := ConfigPath()
		if err != nil {
			t.Fatalf("ConfigPath() error = %v", err)
		}
		if path != "/tmp/procd-test/config/config.toml" {
			t.Errorf("ConfigPath() = %q", path)
		}
	})

	t.Run("services", func(t *testing.T) {
		path, err := ServicesPath()
		if err != nil {
			t.Fatalf("ServicesPath() error = %v", err)
		}
		if path != "/tmp/procd-test/config/services.json" {
			t.Errorf("ServicesPath() = %q", path)
		}
	})
}

func TestDirectOverrides(t *testing.T) {
	t.Setenv(EnvProcdDir, "/tmp/procd-test")
	t.Setenv(EnvSocketPath, "/run/custom.sock")
	t.Setenv(EnvPIDPath, "/run/custom.pid")

	if got := SocketPath(); got != "/run/custom.sock" {
		t.Errorf("SocketPath() = %q, want direct override", got)
	}
	if got := PIDPath(); got != "/run/custom.pid" {
		t.Errorf("PIDPath() = %q, want direct override", got)
	}
}
