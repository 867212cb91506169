// Package core provides the execution model types shared by the runner,
// the scenario runtime and the reports.
package core

// Attachment represents a debug artifact captured while a scenario runs
type Attachment struct {
	Name        string `json:"name"`        // Descriptive name: screenshot, log, video
	ContentType string `json:"contentType"` // MIME type: image/png, application/json, text/plain
	Path        string `json:"path"`        // File path relative to output directory
	Body        []byte `json:"-"`           // In-memory content (not serialized to JSON)
}

// Common attachment names
const (
	AttachmentScreenshot = "screenshot"
	AttachmentLog        = "log"
	AttachmentVideo      = "video"
)

// Common content types
const (
	ContentTypePNG  = "image/png"
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
	ContentTypeMP4  = "video/mp4"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(name string, data []byte) Attachment {
	if name == "" {
		name = AttachmentScreenshot
	}
	return Attachment{
		Name:        name,
		ContentType: ContentTypePNG,
		Body:        data,
	}
}

// NewTextAttachment creates a plain text attachment
func NewTextAttachment(name, text string) Attachment {
	return Attachment{
		Name:        name,
		ContentType: ContentTypeText,
		Body:        []byte(text),
	}
}

// ArtifactConfig controls when artifacts are captured
type ArtifactConfig struct {
	Video              bool `yaml:"video" json:"video"`                             // Record every scenario
	ScreenshotOnFail   bool `yaml:"screenshotOnFailure" json:"screenshotOnFailure"` // Default: true
	ScreenshotOnPass   bool `yaml:"screenshotOnSuccess" json:"screenshotOnSuccess"` // Default: false
	KeepVideoOnSuccess bool `yaml:"keepVideoOnSuccess" json:"keepVideoOnSuccess"`   // Default: false
}

// DefaultArtifactConfig returns sensible defaults for artifact capture
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		Video:            true,
		ScreenshotOnFail: true,
	}
}

// ShouldScreenshot returns true if a final screenshot should be taken for the status
func (c ArtifactConfig) ShouldScreenshot(status ScenarioStatus) bool {
	switch status {
	case StatusFailed, StatusCancelled:
		return c.ScreenshotOnFail
	case StatusPassed:
		return c.ScreenshotOnPass
	default:
		return false
	}
}

// Recorder captures a video of the host while a scenario runs.
// Implementations live outside this module (capture services).
type Recorder interface {
	// StartRecording begins writing video to path
	StartRecording(path string) error

	// StopRecording finishes the recording and returns the final file path
	StopRecording() (string, error)

	// CancelRecording aborts the recording and discards partial output
	CancelRecording()
}

// Screenshotter captures the current host frame as PNG
type Screenshotter interface {
	CaptureScreenshot() ([]byte, error)
}

// NullArtifactCollector is a no-op implementation for testing
type NullArtifactCollector struct{}

// StartRecording does nothing
func (NullArtifactCollector) StartRecording(string) error { return nil }

// StopRecording returns an empty path
func (NullArtifactCollector) StopRecording() (string, error) { return "", nil }

// CancelRecording does nothing
func (NullArtifactCollector) CancelRecording() {}

// CaptureScreenshot returns nil (no-op)
func (NullArtifactCollector) CaptureScreenshot() ([]byte, error) { return nil, nil }
