package report

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/scenario"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/utils/clock"
)

// LogFile is the captured log's file name inside a scenario's assets dir.
const LogFile = "log.txt"

// Bundle collects the artifacts of one scenario run: its captured log,
// steps, parameters and attachments. It writes its detail file as it goes
// and is finalized exactly once with the scenario result.
type Bundle struct {
	mu        sync.Mutex
	detail    *ScenarioDetail
	path      string
	assetsDir string
	relAssets string
	index     *IndexWriter
	clock     clock.PassiveClock
	log       *zap.SugaredLogger

	captured  bytes.Buffer
	files     map[string]int
	finalized bool
}

var _ scenario.Sink = (*Bundle)(nil)

// NewBundle creates the bundle for detail. A nil clock uses the real
// clock.
func NewBundle(detail *ScenarioDetail, outputDir string, index *IndexWriter, clk clock.PassiveClock, log *zap.Logger) *Bundle {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	stem := ScenarioID(detail.ID)
	assetsDir := filepath.Join(outputDir, "assets", stem)
	if err := ensureDir(assetsDir); err != nil {
		log.Sugar().Warnf("create %s: %v", assetsDir, err)
	}
	return &Bundle{
		detail:    detail,
		path:      filepath.Join(outputDir, "scenarios", stem+".json"),
		assetsDir: assetsDir,
		relAssets: filepath.Join("assets", stem),
		index:     index,
		clock:     clk,
		log:       log.Sugar(),
		files:     map[string]int{LogFile: 1},
	}
}

// Detail returns the scenario detail (for reading).
func (b *Bundle) Detail() *ScenarioDetail {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.detail
}

// Start marks the scenario as running.
func (b *Bundle) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	b.detail.StartTime = now
	b.detail.Status = StatusRunning
	b.flushLocked()
	b.index.UpdateScenario(b.detail.ID, &ScenarioUpdate{
		Status:    StatusRunning,
		StartTime: &now,
		Steps:     b.stepSummaryLocked(),
	})
}

// ============================================================================
// LOG CAPTURE
// ============================================================================

func levelName(l zapcore.Level) string {
	switch l {
	case zapcore.DebugLevel:
		return "Debug"
	case zapcore.InfoLevel:
		return "Info"
	case zapcore.WarnLevel:
		return "Warning"
	default:
		return "Error"
	}
}

func captureEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "T",
		LevelKey:      "L",
		MessageKey:    "M",
		StacktraceKey: "S",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeTime:    zapcore.TimeEncoderOfLayout("[15:04:05.000]"),
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(levelName(l) + ":")
		},
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
}

// Write appends p to the captured log until the bundle is finalized.
func (b *Bundle) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.finalized {
		b.captured.Write(p)
	}
	return len(p), nil
}

// Core returns a zap core writing "[HH:mm:ss.fff] Level: message" lines
// into the captured log. Error entries carry the stack when the logger
// records one.
func (b *Bundle) Core() zapcore.Core {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(captureEncoderConfig()), zapcore.AddSync(b), zapcore.DebugLevel)
}

// Wrap returns log teed into the captured log, with stacks on errors.
func (b *Bundle) Wrap(log *zap.Logger) *zap.Logger {
	return log.WithOptions(
		zap.WrapCore(func(c zapcore.Core) zapcore.Core { return zapcore.NewTee(c, b.Core()) }),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

// Log returns the log captured so far.
func (b *Bundle) Log() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.captured.String()
}

// ============================================================================
// SINK
// ============================================================================

// StepStarted records the start of a named step.
func (b *Bundle) StepStarted(name string, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.detail.Steps = append(b.detail.Steps, Step{
		Index:     len(b.detail.Steps),
		Name:      name,
		Status:    StatusRunning,
		StartTime: at,
	})
	b.progressLocked()
}

// StepFinished completes the most recent running step called name.
func (b *Bundle) StepFinished(name string, d time.Duration, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := len(b.detail.Steps) - 1; i >= 0; i-- {
		s := &b.detail.Steps[i]
		if s.Name != name || s.Status != StatusRunning {
			continue
		}
		end := s.StartTime.Add(d)
		ms := d.Milliseconds()
		s.EndTime = &end
		s.Duration = &ms
		s.Status = StatusOf(core.StatusFor(err))
		s.Error = errorOf(err)
		break
	}
	b.progressLocked()
}

// Attach stores a. In-memory bodies are written to the assets dir and
// referenced by path.
func (b *Bundle) Attach(a core.Attachment) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(a.Body) > 0 {
		name := b.fileNameLocked(a.Name, a.ContentType)
		if err := atomicWriteFile(filepath.Join(b.assetsDir, name), a.Body); err != nil {
			b.log.Warnf("write attachment %s: %v", name, err)
			return
		}
		a.Path = filepath.Join(b.relAssets, name)
		a.Body = nil
	}
	if a.Path == "" {
		return
	}
	b.detail.Attachments = append(b.detail.Attachments, a)
	if a.ContentType == core.ContentTypePNG {
		b.detail.Artifacts.Screenshots = append(b.detail.Artifacts.Screenshots, a.Path)
	}
	b.flushLocked()
}

// Parameter records a name/value pair.
func (b *Bundle) Parameter(name, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.detail.Parameters = append(b.detail.Parameters, Parameter{Name: name, Value: value})
	b.flushLocked()
}

// SetVideo records the scenario's video path.
func (b *Bundle) SetVideo(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.detail.Artifacts.Video = path
	b.flushLocked()
}

// ============================================================================
// FINALIZE
// ============================================================================

// Finalize writes the captured log and the final detail, updates the index
// and releases the captured log. Later calls do nothing.
func (b *Bundle) Finalize(res core.ScenarioResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finalized {
		return nil
	}
	b.finalized = true

	var errs []error
	logPath := filepath.Join(b.assetsDir, LogFile)
	if err := atomicWriteFile(logPath, b.captured.Bytes()); err != nil {
		errs = append(errs, fmt.Errorf("write log: %w", err))
	} else {
		b.detail.Artifacts.Log = filepath.Join(b.relAssets, LogFile)
	}
	b.captured = bytes.Buffer{}

	d := b.detail
	if !res.StartTime.IsZero() {
		d.StartTime = res.StartTime
	}
	end := d.StartTime.Add(res.Duration)
	ms := res.Duration.Milliseconds()
	d.EndTime = &end
	d.Duration = &ms
	d.Status = StatusOf(res.Status)
	if res.Video != "" {
		d.Artifacts.Video = res.Video
	}
	for i := range d.Steps {
		if d.Steps[i].Status == StatusRunning {
			d.Steps[i].Status = d.Status
		}
	}

	start := d.StartTime
	update := &ScenarioUpdate{
		Status:    d.Status,
		StartTime: &start,
		EndTime:   &end,
		Duration:  &ms,
		Steps:     b.stepSummaryLocked(),
	}
	if res.Error != "" {
		d.Error = &Error{Type: res.Category.String(), Message: res.Error, Details: res.Trace}
		update.Category = res.Category.String()
		msg := res.Error
		update.Error = &msg
	}

	if err := atomicWriteJSON(b.path, d); err != nil {
		errs = append(errs, fmt.Errorf("write detail: %w", err))
	}
	b.index.UpdateScenario(d.ID, update)
	return errors.Join(errs...)
}

// Finalized reports whether Finalize has run.
func (b *Bundle) Finalized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finalized
}

func (b *Bundle) flushLocked() {
	if err := atomicWriteJSON(b.path, b.detail); err != nil {
		b.log.Warnf("write %s: %v", b.path, err)
	}
}

func (b *Bundle) progressLocked() {
	b.flushLocked()
	if b.finalized {
		return
	}
	b.index.UpdateScenario(b.detail.ID, &ScenarioUpdate{
		Status: StatusRunning,
		Steps:  b.stepSummaryLocked(),
	})
}

func (b *Bundle) stepSummaryLocked() StepSummary {
	s := StepSummary{Total: len(b.detail.Steps)}
	for i, st := range b.detail.Steps {
		switch st.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed, StatusCancelled:
			s.Failed++
		case StatusRunning:
			s.Running++
			name := b.detail.Steps[i].Name
			s.Current = &name
		}
	}
	return s
}

// fileNameLocked picks a unique file name for an attachment.
func (b *Bundle) fileNameLocked(name, contentType string) string {
	stem := sanitize(name)
	if stem == "" {
		stem = "attachment"
	}
	ext := extensionFor(contentType)
	file := stem + ext
	b.files[file]++
	if n := b.files[file]; n > 1 {
		file = fmt.Sprintf("%s-%d%s", stem, n, ext)
		b.files[file]++
	}
	return file
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
}

func extensionFor(contentType string) string {
	switch contentType {
	case core.ContentTypePNG:
		return ".png"
	case core.ContentTypeJSON:
		return ".json"
	case core.ContentTypeText:
		return ".txt"
	case core.ContentTypeMP4:
		return ".mp4"
	default:
		return ".bin"
	}
}

func errorOf(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Type: core.CategoryOf(err).String(), Message: err.Error()}
}
