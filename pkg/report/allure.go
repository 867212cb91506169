package report

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Allure result schema types.

// AllureResult represents a single test result in Allure format.
type AllureResult struct {
	UUID          string              `json:"uuid"`
	HistoryID     string              `json:"historyId"`
	TestCaseID    string              `json:"testCaseId"`
	FullName      string              `json:"fullName"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	Start         int64               `json:"start"`
	Stop          int64               `json:"stop"`
	Labels        []AllureLabel       `json:"labels"`
	Parameters    []AllureParameter   `json:"parameters"`
	StatusDetails AllureStatusDetails `json:"statusDetails"`
	Steps         []AllureStep        `json:"steps"`
	Attachments   []AllureAttachment  `json:"attachments"`
}

// AllureStep represents a step within a test result.
type AllureStep struct {
	Name          string              `json:"name"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	Start         int64               `json:"start"`
	Stop          int64               `json:"stop"`
	StatusDetails AllureStatusDetails `json:"statusDetails"`
	Steps         []AllureStep        `json:"steps"`
	Attachments   []AllureAttachment  `json:"attachments"`
}

// AllureAttachment represents a file attachment.
type AllureAttachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// AllureLabel represents a label on a test result.
type AllureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureParameter represents a test parameter.
type AllureParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureStatusDetails holds failure message and trace.
type AllureStatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

// AllureCategory defines a failure category with regex matching.
type AllureCategory struct {
	Name            string   `json:"name"`
	MatchedStatuses []string `json:"matchedStatuses"`
	MessageRegex    string   `json:"messageRegex"`
}

// AllureExecutor holds executor info.
type AllureExecutor struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	BuildName string `json:"buildName,omitempty"`
}

// GenerateAllure generates Allure-compatible result files in
// <reportDir>/allure-results/.
func GenerateAllure(reportDir string) error {
	index, details, err := ReadReport(reportDir)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	allureDir := filepath.Join(reportDir, "allure-results")
	if err := os.MkdirAll(allureDir, 0o755); err != nil {
		return fmt.Errorf("create allure-results dir: %w", err)
	}

	for i, entry := range index.Scenarios {
		if entry.Status == StatusPending {
			continue
		}
		var detail *ScenarioDetail
		if i < len(details) && details[i].ID == entry.ID {
			detail = &details[i]
		}

		result := buildAllureResult(&entry, detail)
		if detail != nil {
			result.Attachments = copyAllureAttachments(reportDir, allureDir, result.UUID, detail)
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal allure result for %d: %w", entry.ID, err)
		}
		resultPath := filepath.Join(allureDir, result.UUID+"-result.json")
		if err := os.WriteFile(resultPath, data, 0o644); err != nil {
			return fmt.Errorf("write allure result %d: %w", entry.ID, err)
		}
	}

	if err := writeAllureCategories(allureDir); err != nil {
		return err
	}
	if err := writeAllureEnvironment(allureDir, index); err != nil {
		return err
	}
	return writeAllureExecutor(allureDir, index)
}

// buildAllureResult builds an AllureResult from a scenario entry and its
// detail.
func buildAllureResult(entry *ScenarioEntry, detail *ScenarioDetail) AllureResult {
	var startMs, stopMs int64
	if entry.StartTime != nil {
		startMs = entry.StartTime.UnixMilli()
	}
	if entry.EndTime != nil {
		stopMs = entry.EndTime.UnixMilli()
	} else if entry.StartTime != nil && entry.Duration != nil {
		stopMs = startMs + *entry.Duration
	}

	id := strconv.Itoa(entry.ID)
	labels := []AllureLabel{
		{Name: "suite", Value: "ui-automation"},
		{Name: "framework", Value: "ui-automation"},
		{Name: "AS_ID", Value: id},
		{Name: "severity", Value: entry.Severity},
	}

	result := AllureResult{
		UUID:       uuid.NewString(),
		HistoryID:  fnv32aHash(id + ":" + entry.Name),
		TestCaseID: fnv32aHash(id),
		FullName:   fmt.Sprintf("%d %s", entry.ID, entry.Name),
		Name:       entry.Name,
		Status:     mapAllureStatus(entry.Status),
		Stage:      "finished",
		Start:      startMs,
		Stop:       stopMs,
		Parameters: []AllureParameter{},
		Steps:      []AllureStep{},
	}
	if entry.Error != nil {
		result.StatusDetails.Message = *entry.Error
	}

	tags := entry.Tags
	if detail != nil {
		result.Description = detail.Description
		if detail.Owner != "" {
			labels = append(labels, AllureLabel{Name: "owner", Value: detail.Owner})
		}
		if detail.Feature != "" {
			labels = append(labels, AllureLabel{Name: "feature", Value: detail.Feature})
		}
		if detail.Story != "" {
			labels = append(labels, AllureLabel{Name: "story", Value: detail.Story})
		}
		if len(detail.Tags) > 0 {
			tags = detail.Tags
		}
		for _, p := range detail.Parameters {
			result.Parameters = append(result.Parameters, AllureParameter{Name: p.Name, Value: p.Value})
		}
		result.Steps = buildAllureSteps(detail.Steps)
		if detail.Error != nil {
			result.StatusDetails.Message = detail.Error.Message
			result.StatusDetails.Trace = detail.Error.Details
		}
	}
	for _, tag := range tags {
		labels = append(labels, AllureLabel{Name: "tag", Value: tag})
	}
	result.Labels = labels
	return result
}

// buildAllureSteps builds Allure steps from scenario steps.
func buildAllureSteps(steps []Step) []AllureStep {
	out := make([]AllureStep, 0, len(steps))
	for _, s := range steps {
		step := AllureStep{
			Name:        s.Name,
			Status:      mapAllureStatus(s.Status),
			Stage:       "finished",
			Start:       s.StartTime.UnixMilli(),
			Steps:       []AllureStep{},
			Attachments: []AllureAttachment{},
		}
		if s.EndTime != nil {
			step.Stop = s.EndTime.UnixMilli()
		} else if s.Duration != nil {
			step.Stop = step.Start + *s.Duration
		}
		if s.Error != nil {
			step.StatusDetails.Message = s.Error.Message
		}
		out = append(out, step)
	}
	return out
}

// copyAllureAttachments copies the scenario's log and attachments into the
// flat allure-results dir and returns their references.
func copyAllureAttachments(reportDir, allureDir, resultID string, detail *ScenarioDetail) []AllureAttachment {
	type ref struct{ name, path, contentType string }
	var refs []ref
	if detail.Artifacts.Log != "" {
		refs = append(refs, ref{"Log", detail.Artifacts.Log, "text/plain"})
	}
	for _, a := range detail.Attachments {
		refs = append(refs, ref{a.Name, a.Path, a.ContentType})
	}
	if detail.Artifacts.Video != "" {
		refs = append(refs, ref{"Video", detail.Artifacts.Video, "video/mp4"})
	}

	out := []AllureAttachment{}
	for i, r := range refs {
		source := fmt.Sprintf("%s-attachment-%d%s", resultID, i, filepath.Ext(r.path))
		src := r.path
		if !filepath.IsAbs(src) {
			src = filepath.Join(reportDir, src)
		}
		if !copyFile(src, filepath.Join(allureDir, source)) {
			continue
		}
		out = append(out, AllureAttachment{Name: r.name, Source: source, Type: r.contentType})
	}
	return out
}

// copyFile copies src to dst and reports whether it succeeded. Missing
// artifacts are skipped.
func copyFile(src, dst string) bool {
	in, err := os.Open(src) //#nosec G304 -- artifact paths come from the report
	if err != nil {
		return false
	}
	defer in.Close()

	out, err := os.Create(dst) //#nosec G304 -- destination inside allure-results
	if err != nil {
		return false
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err == nil
}

// mapAllureStatus maps report Status to Allure status string.
func mapAllureStatus(s Status) string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusCancelled, StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// fnv32aHash returns a hex-encoded FNV-32a hash of the input string.
func fnv32aHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

// writeAllureCategories writes categories.json for failure categorization.
func writeAllureCategories(allureDir string) error {
	categories := []AllureCategory{
		{Name: "Element Not Found", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*could not find.*|.*not found.*"},
		{Name: "Timeout", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*within .*seconds.*|.*timeout.*|.*timed out.*"},
		{Name: "Host Frozen", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*frozen.*|.*transition exceeded.*"},
		{Name: "Cancelled", MatchedStatuses: []string{"skipped"}, MessageRegex: "(?i).*cancel.*"},
		{Name: "Scenario Fault", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*panic.*|.*fault.*"},
	}

	data, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	if err := os.WriteFile(filepath.Join(allureDir, "categories.json"), data, 0o644); err != nil {
		return fmt.Errorf("write categories.json: %w", err)
	}
	return nil
}

// writeAllureEnvironment writes environment.properties with run metadata.
func writeAllureEnvironment(allureDir string, index *Index) error {
	var b strings.Builder
	b.WriteString("framework=ui-automation\n")

	if index.RunID != "" {
		fmt.Fprintf(&b, "run.id=%s\n", index.RunID)
	}
	if index.Runner.Version != "" {
		fmt.Fprintf(&b, "runner.version=%s\n", index.Runner.Version)
	}
	if index.Runner.Host != "" {
		fmt.Fprintf(&b, "runner.host=%s\n", index.Runner.Host)
	}
	if index.Runner.Policy != "" {
		fmt.Fprintf(&b, "runner.cancelPolicy=%s\n", index.Runner.Policy)
	}

	path := filepath.Join(allureDir, "environment.properties")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write environment.properties: %w", err)
	}
	return nil
}

// writeAllureExecutor writes executor.json.
func writeAllureExecutor(allureDir string, index *Index) error {
	executor := AllureExecutor{
		Name:      "ui-automation",
		Type:      "local",
		BuildName: index.RunID,
	}

	data, err := json.MarshalIndent(executor, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal executor: %w", err)
	}
	if err := os.WriteFile(filepath.Join(allureDir, "executor.json"), data, 0o644); err != nil {
		return fmt.Errorf("write executor.json: %w", err)
	}
	return nil
}
