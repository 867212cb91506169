package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAttach(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	detach := Attach(core)

	Info("hello %d", 1)
	L().Named("finder").Debug("structured", zap.String("k", "v"))
	detach()
	detach()
	Info("after detach")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("captured %d entries, want 2", len(entries))
	}
	if entries[0].Message != "hello 1" {
		t.Errorf("Message = %q, want %q", entries[0].Message, "hello 1")
	}
	if entries[1].LoggerName != "finder" {
		t.Errorf("LoggerName = %q, want finder", entries[1].LoggerName)
	}
	if got := entries[1].ContextMap()["k"]; got != "v" {
		t.Errorf("field k = %v, want v", got)
	}
}

func TestAttach_WithFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	scoped := L().With(zap.Int("scenario", 3))
	defer Attach(core)()

	scoped.Info("running")
	scoped.Debug("below level")

	if logs.Len() != 1 {
		t.Fatalf("captured %d entries, want 1", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["scenario"]; got != int64(3) {
		t.Errorf("scenario = %v, want 3", got)
	}
}

func TestErrorCarriesStack(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	defer Attach(core)()

	Error("boom")

	if logs.Len() != 1 {
		t.Fatalf("captured %d entries, want 1", logs.Len())
	}
	if logs.All()[0].Stack == "" {
		t.Error("error entry has no stack trace")
	}
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "runner.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Warn("disk %s", "full")
	Sync()
	if GetWriter() == nil {
		t.Error("GetWriter() = nil")
	}
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "[WARN] disk full") {
		t.Errorf("log file = %q, want [WARN] disk full", data)
	}
}

func TestInitBadPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Init(filepath.Join(blocker, "x.log")); err == nil {
		t.Error("Init() under a regular file succeeded, want error")
	}
}

func TestEnableConsole(t *testing.T) {
	var buf bytes.Buffer
	EnableConsole(&buf, false)
	Debug("hidden")
	Info("shown")
	EnableConsole(&bytes.Buffer{}, false)

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "[INFO] shown") {
		t.Errorf("console output = %q", out)
	}
}
