package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/scenario"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Scenarios running longer than this share of their limit are flagged slow.
const slowFraction = 0.8

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

func printBanner() {
	line := fmt.Sprintf("  uitest %s - UI automation runner", Version)
	width := 64
	if len(line) > width {
		width = len(line) + 2
	}

	fmt.Println()
	fmt.Println("╔" + strings.Repeat("═", width) + "╗")
	fmt.Printf("║%s%s%s%s║\n", color(colorBold), line, color(colorReset), strings.Repeat(" ", width-len(line)))
	fmt.Println("╚" + strings.Repeat("═", width) + "╝")
	fmt.Println()
}

// Live progress callbacks

// lastTimeout remembers the running scenario's limit for the slow marker.
var lastTimeout time.Duration

func onScenarioStart(idx, total int, desc scenario.Descriptor) {
	lastTimeout = desc.Timeout
	fmt.Printf("\n  %s[%d/%d]%s %s%s%s (id %d)\n",
		color(colorCyan), idx+1, total, color(colorReset),
		color(colorBold), desc.Name, color(colorReset), desc.ID)
	fmt.Println(strings.Repeat("─", 60))
}

func onScenarioEnd(_, _ int, res core.ScenarioResult) {
	durStr := formatDuration(res.Duration.Milliseconds())

	switch res.Status {
	case core.StatusPassed:
		symbol := "✓"
		symbolColor := color(colorGreen)
		durColor := color(colorGray)
		if lastTimeout > 0 && float64(res.Duration) >= slowFraction*float64(lastTimeout) {
			symbol = "⚠"
			symbolColor = color(colorYellow)
			durColor = color(colorYellow)
		}
		fmt.Printf("  %s%s%s %s %s(%s)%s\n",
			symbolColor, symbol, color(colorReset), res.Name, durColor, durStr, color(colorReset))
	case core.StatusCancelled:
		fmt.Printf("  %s⊘%s %s (%s)\n", color(colorYellow), color(colorReset), res.Name, durStr)
	default:
		fmt.Printf("  %s✗%s %s (%s)\n", color(colorRed), color(colorReset), res.Name, durStr)
	}
	if res.Error != "" && res.Status != core.StatusPassed {
		fmt.Printf("    %s╰─%s %s\n", color(colorGray), color(colorReset), res.Error)
	}
}

func printSummary(result *core.SuiteResult, policy core.CancelPolicy) {
	fmt.Println()
	if result.Passed > 0 {
		fmt.Printf("  %s%d passing%s (%s)\n", color(colorGreen), result.Passed, color(colorReset),
			formatDuration(result.Duration.Milliseconds()))
	}
	if result.Failed > 0 {
		fmt.Printf("  %s%d failing%s\n", color(colorRed), result.Failed, color(colorReset))
	}
	if result.Cancelled > 0 {
		note := "counted as failures"
		if policy == core.CancelIgnored {
			note = "ignored"
		}
		fmt.Printf("  %s%d cancelled%s (%s)\n", color(colorYellow), result.Cancelled, color(colorReset), note)
	}
	if result.Aborted {
		fmt.Printf("  %sRun aborted%s\n", color(colorRed), color(colorReset))
	}
	fmt.Println()

	tableWidth := 80
	fmt.Println(strings.Repeat("═", tableWidth))
	fmt.Printf("  %-6s %-44s %-8s %-10s %6s\n", "ID", "Scenario", "Status", "Category", "Time")
	fmt.Println(strings.Repeat("─", tableWidth))

	for _, sr := range result.Scenarios {
		var status, statusColor string
		switch sr.Status {
		case core.StatusPassed:
			status, statusColor = "✓ PASS", color(colorGreen)
		case core.StatusCancelled:
			status, statusColor = "⊘ CANC", color(colorYellow)
		default:
			status, statusColor = "✗ FAIL", color(colorRed)
		}

		name := sr.Name
		if len(name) > 44 {
			name = name[:41] + "..."
		}
		category := "-"
		if sr.Status != core.StatusPassed && sr.Category != core.ErrCategoryNone {
			category = sr.Category.String()
		}

		fmt.Printf("  %-6d %-44s %s%-8s%s %-10s %6s\n",
			sr.ID, name, statusColor, status, color(colorReset), category,
			formatDuration(sr.Duration.Milliseconds()))
	}

	fmt.Println(strings.Repeat("─", tableWidth))
	statusStr := fmt.Sprintf("%d/%d", result.Passed, result.Total)
	statusColor := color(colorGreen)
	if result.Failed > 0 || result.Aborted || (result.Cancelled > 0 && policy.Fails(core.StatusCancelled)) {
		statusColor = color(colorRed)
	}
	fmt.Printf("  %s%-51s%s %s%-8s%s %-10s %6s\n",
		color(colorBold), "TOTAL", color(colorReset),
		statusColor, statusStr, color(colorReset), "",
		formatDuration(result.Duration.Milliseconds()))
	fmt.Println(strings.Repeat("═", tableWidth))
}

// formatDuration formats milliseconds to a human-readable string.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
