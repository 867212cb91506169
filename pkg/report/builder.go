package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/oddgames/ui-automation/pkg/scenario"
)

// BuilderConfig contains configuration for building the report skeleton.
type BuilderConfig struct {
	OutputDir     string    // Base output directory for reports
	RunID         string    // Run identifier
	RunnerVersion string    // Runner version
	HostName      string    // Host under test
	CancelPolicy  string    // fail or ignore
	StartTime     time.Time // Defaults to now
}

// ScenarioID returns the file stem used for scenario id.
func ScenarioID(id int) string {
	return fmt.Sprintf("scenario-%d", id)
}

// BuildSkeleton creates the initial report structure for the run queue.
// Every scenario starts out pending. Call it after validation, before the
// first scenario runs.
func BuildSkeleton(queue []scenario.Descriptor, cfg BuilderConfig) (*Index, []ScenarioDetail) {
	now := cfg.StartTime
	if now.IsZero() {
		now = time.Now()
	}

	index := &Index{
		Version:     Version,
		RunID:       cfg.RunID,
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Runner: RunnerInfo{
			Version: cfg.RunnerVersion,
			Host:    cfg.HostName,
			Policy:  cfg.CancelPolicy,
		},
		Summary: Summary{
			Total:   len(queue),
			Pending: len(queue),
		},
		Scenarios: make([]ScenarioEntry, len(queue)),
	}

	details := make([]ScenarioDetail, len(queue))
	for i, d := range queue {
		stem := ScenarioID(d.ID)
		index.Scenarios[i] = ScenarioEntry{
			Index:     i,
			ID:        d.ID,
			Name:      d.Name,
			DataFile:  filepath.Join("scenarios", stem+".json"),
			AssetsDir: filepath.Join("assets", stem),
			Severity:  d.Severity.String(),
			Tags:      d.Tags,
			Status:    StatusPending,
		}
		details[i] = ScenarioDetail{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Severity:    d.Severity.String(),
			Owner:       d.Owner,
			Feature:     d.Feature,
			Story:       d.Story,
			Tags:        d.Tags,
			DataMode:    d.DataMode.String(),
			Timeout:     d.EffectiveTimeout().Milliseconds(),
			Status:      StatusPending,
			Steps:       []Step{},
		}
	}
	return index, details
}

// WriteSkeleton writes the initial skeleton to disk: report.json, every
// scenario detail file and the assets directories.
func WriteSkeleton(outputDir string, index *Index, details []ScenarioDetail) error {
	if err := ensureDir(filepath.Join(outputDir, "scenarios")); err != nil {
		return fmt.Errorf("create scenarios dir: %w", err)
	}
	if err := ensureDir(filepath.Join(outputDir, "assets")); err != nil {
		return fmt.Errorf("create assets dir: %w", err)
	}

	for _, d := range details {
		stem := ScenarioID(d.ID)
		if err := atomicWriteJSON(filepath.Join(outputDir, "scenarios", stem+".json"), d); err != nil {
			return fmt.Errorf("write scenario %d: %w", d.ID, err)
		}
		if err := ensureDir(filepath.Join(outputDir, "assets", stem)); err != nil {
			return fmt.Errorf("create assets dir for %d: %w", d.ID, err)
		}
	}

	if err := atomicWriteJSON(filepath.Join(outputDir, "report.json"), index); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}
