package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oddgames/ui-automation/pkg/report"
	"github.com/oddgames/ui-automation/pkg/scenario"
	"github.com/oddgames/ui-automation/pkg/validator"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func listCommand(suite Suite) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List registered scenarios and check their ids",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "include-tags",
				Usage: "Only list scenarios with these tags",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-tags",
				Usage: "Hide scenarios with these tags",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			reg, err := withScripts(suite.Registry, cfg, zap.NewNop())
			if err != nil {
				return err
			}
			res := validator.New(0, c.StringSlice("include-tags"), c.StringSlice("exclude-tags")).
				Validate(reg.Descriptors())
			printScenarios(os.Stdout, res)
			if !res.IsValid() {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func printScenarios(w io.Writer, res *validator.Result) {
	if !res.IsValid() {
		fmt.Fprintf(w, "%sInvalid scenario registry:%s\n", color(colorRed), color(colorReset))
		for _, err := range res.Errors {
			fmt.Fprintf(w, "  %s✗%s %v\n", color(colorRed), color(colorReset), err)
		}
		return
	}
	if len(res.Scenarios) == 0 {
		fmt.Fprintln(w, "No scenarios registered")
		return
	}

	fmt.Fprintf(w, "  %-6s %-40s %-9s %-8s %s\n", "ID", "Scenario", "Timeout", "Severity", "Tags")
	fmt.Fprintln(w, strings.Repeat("─", 80))
	for _, d := range res.Scenarios {
		timeout := d.Timeout
		if timeout <= 0 {
			timeout = scenario.DefaultTimeout
		}
		fmt.Fprintf(w, "  %-6d %-40s %-9s %-8s %s%s%s\n",
			d.ID, d.Name, timeout, d.Severity, color(colorGray), strings.Join(d.Tags, ", "), color(colorReset))
	}
}

var allureCommand = &cli.Command{
	Name:      "allure",
	Usage:     "Convert a report directory into an Allure result set",
	ArgsUsage: "<report-dir>",
	Action: func(c *cli.Context) error {
		dir := c.Args().First()
		if dir == "" {
			dir = "TestResults"
		}
		if err := report.GenerateAllure(dir); err != nil {
			return fmt.Errorf("allure export: %w", err)
		}
		fmt.Printf("  %s✓%s Allure results written to %s\n", color(colorGreen), color(colorReset), dir)
		return nil
	},
}
