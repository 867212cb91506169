package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/oddgames/ui-automation/pkg/config"
	"github.com/oddgames/ui-automation/pkg/executor"
	"github.com/oddgames/ui-automation/pkg/host/sim"
	"github.com/oddgames/ui-automation/pkg/jsengine"
	"github.com/oddgames/ui-automation/pkg/logger"
	"github.com/oddgames/ui-automation/pkg/metrics"
	"github.com/oddgames/ui-automation/pkg/report"
	"github.com/oddgames/ui-automation/pkg/scenario"
	"github.com/oddgames/ui-automation/pkg/scene"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// stopTimeout bounds how long an interrupted run may take to wind down.
const stopTimeout = 30 * time.Second

func runCommand(suite Suite) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the registered scenarios",
		Description: `Run every registered scenario, or the one selected with --scenario, in
ascending id order. Scenario ids must be unique and greater than zero; any
violation aborts the run before anything executes.

Reports are written to the output directory (default: ./TestResults):
  report.json                 run index, live while the run progresses
  scenarios/scenario-<id>.json  per-scenario detail
  assets/scenario-<id>/       log.txt, screenshots, video
  metrics.prom                Prometheus textfile

Examples:
  uitest run
  uitest run --scenario 3
  uitest run --headless --cancel-policy ignore
  uitest run --include-tags smoke --exclude-tags slow -e USER=qa`,
		Flags: []cli.Flag{
			// Selection
			&cli.IntFlag{
				Name:    "scenario",
				Aliases: []string{"s"},
				Usage:   "Run only the scenario with this id",
			},
			&cli.StringSliceFlag{
				Name:  "include-tags",
				Usage: "Only include scenarios with these tags",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-tags",
				Usage: "Exclude scenarios with these tags",
			},

			// Host
			&cli.StringFlag{
				Name:  "scenes",
				Usage: "Scene fixture file for the simulated host",
			},
			&cli.BoolFlag{
				Name:    "headless",
				Usage:   "Quit the host with the run's exit code when the run ends",
				EnvVars: []string{"UITEST_HEADLESS"},
			},

			// Output
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory for reports (default: ./TestResults)",
			},
			&cli.BoolFlag{
				Name:  "allure",
				Usage: "Also write an Allure result set to <output>/allure-results",
			},

			// Execution
			&cli.StringFlag{
				Name:  "cancel-policy",
				Usage: "Whether a cancelled scenario fails the run (fail, ignore)",
			},
			&cli.DurationFlag{
				Name:  "transition-timeout",
				Usage: "Limit for a host mode change",
			},
			&cli.StringSliceFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Variables exposed to scenarios (KEY=VALUE)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := buildConfig(c)
			if err != nil {
				return err
			}
			code, err := runScenarios(c.Context, cfg, suite, runOptions{allure: c.Bool("allure")})
			if err != nil {
				return err
			}
			if code != 0 {
				return cli.Exit("", code)
			}
			return nil
		},
	}
}

// loadConfig layers the config file over built-in defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Defaults()

	var file *config.Config
	var err error
	if path := c.String("config"); path != "" {
		file, err = config.Load(path)
	} else {
		file, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Merge(file)
	return cfg, nil
}

// buildConfig layers built-in defaults, the config file and flags.
func buildConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	flags := &config.Config{
		Scenario:    c.Int("scenario"),
		IncludeTags: c.StringSlice("include-tags"),
		ExcludeTags: c.StringSlice("exclude-tags"),
		Scenes:      c.String("scenes"),
		Output:      c.String("output"),
		Log: config.LogConfig{
			File:    c.String("log-file"),
			Verbose: c.Bool("verbose"),
		},
		CancelPolicy: c.String("cancel-policy"),
		Env:          parseEnvVars(c.StringSlice("env")),
	}
	if c.IsSet("headless") {
		headless := c.Bool("headless")
		flags.Headless = &headless
	}
	flags.Timeouts.Transition.Duration = c.Duration("transition-timeout")
	cfg.Merge(flags)

	if _, err := cfg.Policy(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runOptions are run settings with no config file counterpart.
type runOptions struct {
	allure bool
}

// runScenarios drives one run on a simulated host and returns its exit
// code. Errors are returned only when the run could not start.
func runScenarios(ctx context.Context, cfg *config.Config, suite Suite, opts runOptions) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logPath := cfg.Log.File
	if logPath == "" {
		logPath = filepath.Join(cfg.Output, "runner.log")
	}
	if err := logger.Init(logPath); err != nil {
		return 1, err
	}
	defer logger.Close()
	if cfg.Log.Verbose {
		logger.EnableConsole(os.Stderr, true)
	}
	log := logger.L()

	printBanner()

	reg, err := withScripts(suite.Registry, cfg, log)
	if err != nil {
		return 1, err
	}

	lib := suite.Scenes
	if cfg.Scenes != "" {
		if lib, err = scene.LoadFile(cfg.Scenes); err != nil {
			return 1, fmt.Errorf("failed to load scenes: %w", err)
		}
	}

	h := sim.New(sim.Config{
		Library:  lib,
		Headless: cfg.IsHeadless(),
		Logger:   log,
	})

	policy, _ := cfg.Policy()
	m := metrics.New(nil)
	o := executor.New(h, reg, executor.Config{
		OutputDir:         cfg.Output,
		Selected:          cfg.Scenario,
		IncludeTags:       cfg.IncludeTags,
		ExcludeTags:       cfg.ExcludeTags,
		TransitionTimeout: cfg.Timeouts.Transition.Duration,
		Grace:             cfg.Timeouts.Grace.Duration,

		BackgroundTransitionLimit: cfg.Timeouts.WatchdogTransition.Duration,

		WatchdogInterval: cfg.Timeouts.Watchdog.Duration,
		Pacing:           cfg.Pacing.Duration,
		CancelPolicy:     policy,
		Artifacts:        cfg.Artifacts,
		Terminate: func(code int) {
			logger.Sync()
			os.Exit(code)
		},
		Metrics:     m,
		Screenshots: h,
		Fixtures:    fixtures(cfg, log),
		Vars:        cfg.Env,
		Logger:      log,
		Capture:     logger.Attach,

		RunnerVersion: Version,
		HostName:      "sim",

		OnScenarioStart: onScenarioStart,
		OnScenarioEnd:   onScenarioEnd,
	})

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the host loop outlives the signal so Stop can still be processed
	g, loopCtx := errgroup.WithContext(context.Background())
	loopCtx, cancelLoop := context.WithCancel(loopCtx)
	defer cancelLoop()

	started := make(chan error, 1)
	h.Post(func() { started <- o.Start() })

	g.Go(func() error {
		err := h.Run(loopCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer cancelLoop()
		select {
		case err := <-started:
			if err != nil {
				return err
			}
		case <-loopCtx.Done():
			return nil
		}
		select {
		case <-o.Done():
		case <-loopCtx.Done():
			return nil
		case <-sigCtx.Done():
			logger.Warn("[UITestRunner] Interrupted - stopping run")
			o.Stop()
			select {
			case <-o.Done():
			case <-time.After(stopTimeout):
				return fmt.Errorf("run did not stop within %s", stopTimeout)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return 1, err
	}

	res := o.Result()
	if res == nil {
		return 1, errors.New("run ended without a result")
	}
	printSummary(res, policy)
	if opts.allure {
		if err := report.GenerateAllure(cfg.Output); err != nil {
			logger.Warn("[UITestRunner] allure export: %v", err)
		}
	}
	fmt.Printf("\n  Report: %s\n", filepath.Join(cfg.Output, "report.json"))
	return o.ExitCode(), nil
}

// withScripts returns a registry holding suite's scenarios plus the script
// scenarios declared in config.
func withScripts(base *scenario.Registry, cfg *config.Config, log *zap.Logger) (*scenario.Registry, error) {
	reg := base.Clone()

	var errs []error
	for _, s := range cfg.Scripts {
		desc, err := scriptDescriptor(s, cfg.Timeouts.Scenario.Duration)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		body, err := jsengine.LoadFile(s.File, log)
		if err != nil {
			errs = append(errs, fmt.Errorf("script %q: %w", s.Name, err))
			continue
		}
		if err := reg.Register(desc, body); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return reg, nil
}

func scriptDescriptor(s config.Script, defaultTimeout time.Duration) (scenario.Descriptor, error) {
	severity, err := scenario.ParseSeverity(s.Severity)
	if err != nil {
		return scenario.Descriptor{}, fmt.Errorf("script %q: %w", s.Name, err)
	}
	name := s.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(s.File), filepath.Ext(s.File))
	}
	timeout := s.Timeout.Duration
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return scenario.Descriptor{
		ID:          s.ID,
		Name:        name,
		Timeout:     timeout,
		Severity:    severity,
		Owner:       s.Owner,
		Feature:     s.Feature,
		Story:       s.Story,
		Description: s.Description,
		Tags:        s.Tags,
	}, nil
}

func fixtures(cfg *config.Config, log *zap.Logger) scenario.FixtureProvider {
	root := cfg.Fixtures
	if root == "" {
		root = config.FindHome().Fixtures()
	}
	if _, err := os.Stat(root); err != nil {
		return scenario.NopFixtures{}
	}
	return scenario.DirFixtures{Root: root, Target: cfg.DataDir, Logger: log}
}

func parseEnvVars(envs []string) map[string]string {
	result := make(map[string]string)
	for _, e := range envs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}
	return result
}
