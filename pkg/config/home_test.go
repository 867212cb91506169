package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveHome(t *testing.T) {
	cwd, _ := os.Getwd()
	tests := []struct {
		name   string
		env    string
		binDir string
		want   string
	}{
		{"env wins", "/custom", "/opt/uitest/bin", "/custom"},
		{"binary in bin", "", "/opt/uitest/bin", "/opt/uitest"},
		{"binary elsewhere", "", "/usr/local/tools", cwd},
		{"no binary", "", "", cwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveHome(tt.env, tt.binDir); got != tt.want {
				t.Errorf("resolveHome(%q, %q) = %q, want %q", tt.env, tt.binDir, got, tt.want)
			}
		})
	}
}

func TestFindHomeCached(t *testing.T) {
	resetHome()
	t.Cleanup(resetHome)
	t.Setenv(envHome, "/first")

	first := FindHome()
	t.Setenv(envHome, "/second")
	if second := FindHome(); second != first {
		t.Errorf("FindHome() not cached: first=%q, second=%q", first, second)
	}
}

func TestHomePaths(t *testing.T) {
	h := Home("/opt/uitest")

	if got, want := h.Fixtures(), filepath.Join("/opt/uitest", "fixtures"); got != want {
		t.Errorf("Fixtures() = %q, want %q", got, want)
	}
	if got, want := h.ConfigFile(), filepath.Join("/opt/uitest", "config.yaml"); got != want {
		t.Errorf("ConfigFile() = %q, want %q", got, want)
	}
}

func TestLoadFromDirFallsBackToHome(t *testing.T) {
	resetHome()
	t.Cleanup(resetHome)
	homeDir := t.TempDir()
	t.Setenv(envHome, homeDir)
	if err := os.WriteFile(filepath.Join(homeDir, "config.yaml"), []byte("output: shared\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output != "shared" {
		t.Errorf("Output = %q, want shared", cfg.Output)
	}
}
