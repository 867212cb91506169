package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
)

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
scenario: 3
scenes: scenes/demo.yaml
headless: true
output: out
cancelPolicy: ignore
pacing: 250ms
timeouts:
  transition: 45
  grace: 5s
  watchdogTransition: 30s
scripts:
  - id: 10
    name: Login
    file: scripts/login.js
    timeout: 90s
    severity: critical
    tags: [smoke]
env:
  USER: test
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Scenario != 3 {
		t.Errorf("expected scenario 3, got %d", cfg.Scenario)
	}
	if want := filepath.Join(dir, "scenes", "demo.yaml"); cfg.Scenes != want {
		t.Errorf("expected scenes %s, got %s", want, cfg.Scenes)
	}
	if !cfg.IsHeadless() {
		t.Error("expected headless")
	}
	if cfg.Pacing.Duration != 250*time.Millisecond {
		t.Errorf("expected pacing 250ms, got %v", cfg.Pacing)
	}
	if cfg.Timeouts.Transition.Duration != 45*time.Second {
		t.Errorf("expected transition 45s, got %v", cfg.Timeouts.Transition)
	}
	if cfg.Timeouts.Grace.Duration != 5*time.Second {
		t.Errorf("expected grace 5s, got %v", cfg.Timeouts.Grace)
	}
	if cfg.Timeouts.WatchdogTransition.Duration != 30*time.Second {
		t.Errorf("expected watchdog transition 30s, got %v", cfg.Timeouts.WatchdogTransition)
	}
	if len(cfg.Scripts) != 1 {
		t.Fatalf("expected 1 script, got %d", len(cfg.Scripts))
	}
	s := cfg.Scripts[0]
	if s.ID != 10 || s.Name != "Login" || s.Timeout.Duration != 90*time.Second || s.Severity != "critical" {
		t.Errorf("unexpected script %+v", s)
	}
	if want := filepath.Join(dir, "scripts", "login.js"); s.File != want {
		t.Errorf("expected script file %s, got %s", want, s.File)
	}
	if cfg.Env["USER"] != "test" {
		t.Errorf("expected env USER=test, got %v", cfg.Env)
	}
	policy, err := cfg.Policy()
	if err != nil || policy != core.CancelIgnored {
		t.Errorf("Policy() = %v, %v; want ignore", policy, err)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `scripts: [invalid yaml`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("pacing: soon"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoadFromDir_ConfigYml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`output: yml`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output != "yml" {
		t.Errorf("expected output yml, got %s", cfg.Output)
	}
}

func TestLoadFromDir_NoConfig(t *testing.T) {
	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output != "" || len(cfg.Scripts) != 0 {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestLoadFromDir_PrefersYamlOverYml(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`output: yaml`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`output: yml`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output != "yaml" {
		t.Errorf("expected output yaml (from config.yaml), got %s", cfg.Output)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Output != "TestResults" {
		t.Errorf("Output = %q, want TestResults", cfg.Output)
	}
	if cfg.Timeouts.Transition.Duration != 30*time.Second {
		t.Errorf("Transition = %v, want 30s", cfg.Timeouts.Transition)
	}
	if cfg.Timeouts.Scenario.Duration != 180*time.Second {
		t.Errorf("Scenario = %v, want 180s", cfg.Timeouts.Scenario)
	}
	if cfg.IsHeadless() {
		t.Error("IsHeadless() = true, want false")
	}
	if policy, _ := cfg.Policy(); policy != core.CancelCountsAsFailure {
		t.Errorf("Policy() = %v, want fail", policy)
	}
}

func TestMerge(t *testing.T) {
	cfg := Defaults()
	headless := true
	cfg.Merge(&Config{
		Scenario: 2,
		Headless: &headless,
		Output:   "custom",
		Timeouts: Timeouts{Grace: Duration{time.Second}, WatchdogTransition: Duration{30 * time.Second}},
		Env:      map[string]string{"A": "1"},
		Scripts:  []Script{{ID: 1}},
	})
	cfg.Merge(nil)

	if cfg.Scenario != 2 || cfg.Output != "custom" || !cfg.IsHeadless() {
		t.Errorf("Merge() overrides not applied: %+v", cfg)
	}
	if cfg.Timeouts.Grace.Duration != time.Second {
		t.Errorf("Grace = %v, want 1s", cfg.Timeouts.Grace)
	}
	if cfg.Timeouts.Transition.Duration != 30*time.Second {
		t.Errorf("Transition = %v, want default 30s kept", cfg.Timeouts.Transition)
	}
	if cfg.Timeouts.WatchdogTransition.Duration != 30*time.Second {
		t.Errorf("WatchdogTransition = %v, want 30s", cfg.Timeouts.WatchdogTransition)
	}
	if cfg.Pacing.Duration != 500*time.Millisecond {
		t.Errorf("Pacing = %v, want default kept", cfg.Pacing)
	}
	if cfg.Env["A"] != "1" || len(cfg.Scripts) != 1 {
		t.Errorf("Env/Scripts not merged: %v %v", cfg.Env, cfg.Scripts)
	}
}
