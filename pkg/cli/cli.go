// Package cli provides the command-line interface for the UI test runner.
package cli

import (
	"fmt"
	"os"

	"github.com/oddgames/ui-automation/pkg/scenario"
	"github.com/oddgames/ui-automation/pkg/scene"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to config.yaml (default: ./config.yaml if present)",
		EnvVars: []string{"UITEST_CONFIG"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"UITEST_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Write the runner log to this file (default: <output>/runner.log)",
		EnvVars: []string{"UITEST_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// Suite is what a test binary hands to the CLI: its compiled-in
// scenarios and the scenes its host starts from.
type Suite struct {
	Registry *scenario.Registry
	Scenes   *scene.Library // used when neither --scenes nor config names one
}

// NewApp builds the command tree for suite.
func NewApp(suite Suite) *cli.App {
	if suite.Registry == nil {
		suite.Registry = scenario.NewRegistry()
	}
	return &cli.App{
		Name:    "uitest",
		Usage:   "Run UI automation scenarios against a host",
		Version: Version,
		Description: `uitest runs the registered UI scenarios one at a time, each in a fresh
interactive session of the host, and writes a JSON report, per-scenario
logs and screenshots, and optionally an Allure result set.

Examples:
  uitest run
  uitest run --scenario 3 --headless
  uitest run --include-tags smoke -e USER=qa
  uitest list
  uitest allure TestResults`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand(suite),
			listCommand(suite),
			allureCommand,
		},
	}
}

// Execute runs the CLI for suite and exits with the run's exit code.
func Execute(suite Suite) {
	app := NewApp(suite)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
