// Package logger is the process-wide log. Components take the *zap.Logger
// from L; the printf helpers write through the same cores. Extra cores can
// be attached at runtime to capture a window of output.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	hub    = &coreHub{}
	global = zap.New(&hubCore{hub: hub}, zap.AddStacktrace(zap.ErrorLevel))
	sugar  = global.Sugar()

	mu      sync.Mutex
	logFile *lumberjack.Logger
	fileID  int
	consID  int
)

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000")
	cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + l.CapitalString() + "]")
	}
	cfg.ConsoleSeparator = " "
	return cfg
}

// Init sends the log to a rotating file at logPath.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	closeFile()

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	// open once so an unwritable path fails here rather than on first write
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //#nosec G304 -- caller-provided log path
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	_ = f.Close()

	logFile = &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(logFile), zap.DebugLevel)
	fileID = hub.add(core)
	return nil
}

// EnableConsole mirrors the log to w. Debug entries are included when
// verbose is set.
func EnableConsole(w io.Writer, verbose bool) {
	mu.Lock()
	defer mu.Unlock()

	if consID != 0 {
		hub.remove(consID)
	}
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(zapcore.AddSync(w)), level)
	consID = hub.add(core)
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeFile()
}

func closeFile() {
	if logFile == nil {
		return
	}
	hub.remove(fileID)
	_ = logFile.Close()
	logFile = nil
	fileID = 0
}

// L returns the process logger.
func L() *zap.Logger { return global }

// Attach adds core to the process logger until the returned func is called.
func Attach(core zapcore.Core) (detach func()) {
	id := hub.add(core)
	var once sync.Once
	return func() { once.Do(func() { hub.remove(id) }) }
}

// Sync flushes every attached core.
func Sync() { _ = global.Sync() }

// Info logs an info message.
func Info(format string, v ...interface{}) { sugar.Infof(format, v...) }

// Debug logs a debug message.
func Debug(format string, v ...interface{}) { sugar.Debugf(format, v...) }

// Error logs an error message.
func Error(format string, v ...interface{}) { sugar.Errorf(format, v...) }

// Warn logs a warning message.
func Warn(format string, v ...interface{}) { sugar.Warnf(format, v...) }

// GetWriter returns the log file for tools that want raw output.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	return io.Discard
}
