package core

import "testing"

func TestNewScreenshotAttachment(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4E, 0x47} // PNG header
	attachment := NewScreenshotAttachment("", data)

	if attachment.Name != AttachmentScreenshot {
		t.Errorf("Name = %s, want %s", attachment.Name, AttachmentScreenshot)
	}
	if attachment.ContentType != ContentTypePNG {
		t.Errorf("ContentType = %s, want %s", attachment.ContentType, ContentTypePNG)
	}
	if len(attachment.Body) != 4 {
		t.Errorf("Body length = %d, want 4", len(attachment.Body))
	}
}

func TestNewTextAttachment(t *testing.T) {
	attachment := NewTextAttachment("notes", "hello")

	if attachment.ContentType != ContentTypeText {
		t.Errorf("ContentType = %s, want %s", attachment.ContentType, ContentTypeText)
	}
	if string(attachment.Body) != "hello" {
		t.Errorf("Body = %q, want %q", attachment.Body, "hello")
	}
}

func TestArtifactConfig_ShouldScreenshot(t *testing.T) {
	cfg := DefaultArtifactConfig()

	tests := []struct {
		status ScenarioStatus
		want   bool
	}{
		{StatusFailed, true},
		{StatusCancelled, true},
		{StatusPassed, false},
		{StatusRunning, false},
	}

	for _, tt := range tests {
		if got := cfg.ShouldScreenshot(tt.status); got != tt.want {
			t.Errorf("ShouldScreenshot(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestNullArtifactCollector(t *testing.T) {
	var c NullArtifactCollector
	var _ Recorder = c
	var _ Screenshotter = c

	if err := c.StartRecording("video.mp4"); err != nil {
		t.Errorf("StartRecording() error = %v", err)
	}
	path, err := c.StopRecording()
	if err != nil || path != "" {
		t.Errorf("StopRecording() = %q, %v; want empty, nil", path, err)
	}
	data, err := c.CaptureScreenshot()
	if err != nil || data != nil {
		t.Errorf("CaptureScreenshot() = %v, %v; want nil, nil", data, err)
	}
}

func TestBounds(t *testing.T) {
	b := Bounds{X: 100, Y: 200, Width: 200, Height: 50}

	if got := b.Center(); got != (Point{X: 200, Y: 225}) {
		t.Errorf("Center() = %v, want (200,225)", got)
	}
	if !b.Contains(Point{X: 100, Y: 200}) {
		t.Error("Contains(top-left) = false, want true")
	}
	if b.Contains(Point{X: 300, Y: 225}) {
		t.Error("Contains(right edge) = true, want false")
	}
	if b.Empty() {
		t.Error("Empty() = true, want false")
	}
	if !(Bounds{Width: 10}).Empty() {
		t.Error("zero-height Empty() = false, want true")
	}
}

func TestPoint_Lerp(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 100, Y: -50}

	if got := a.Lerp(b, 0.5); got != (Point{X: 50, Y: -25}) {
		t.Errorf("Lerp(0.5) = %v, want (50,-25)", got)
	}
	if got := b.Sub(a); got != b {
		t.Errorf("Sub() = %v, want %v", got, b)
	}
}
