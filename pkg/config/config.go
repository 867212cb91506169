// Package config handles configuration for the UI test runner.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"gopkg.in/yaml.v3"
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	// Scenario selection
	Scenario    int      `yaml:"scenario"`    // Run only this scenario id; 0 runs all
	IncludeTags []string `yaml:"includeTags"` // Run only scenarios with these tags
	ExcludeTags []string `yaml:"excludeTags"` // Skip scenarios with these tags

	// Host settings
	Scenes   string `yaml:"scenes"`   // Scene fixture file for the simulated host
	Headless *bool  `yaml:"headless"` // Quit the host when the run ends

	// Output
	Output    string              `yaml:"output"` // Output directory
	Artifacts core.ArtifactConfig `yaml:"artifacts"`
	Log       LogConfig           `yaml:"log"`

	// Execution settings
	CancelPolicy string            `yaml:"cancelPolicy"` // fail or ignore
	Pacing       Duration          `yaml:"pacing"`       // Minimum gap between simulated actions
	Timeouts     Timeouts          `yaml:"timeouts"`
	Fixtures     string            `yaml:"fixtures"` // Root of per-scenario fixture data
	DataDir      string            `yaml:"dataDir"`  // Where fixture data is unpacked
	Env          map[string]string `yaml:"env"`      // Variables exposed to script scenarios

	// Script scenarios
	Scripts []Script `yaml:"scripts"`
}

// LogConfig configures the process log.
type LogConfig struct {
	File    string `yaml:"file"`
	Verbose bool   `yaml:"verbose"`
}

// Timeouts groups the orchestrator's timing limits.
type Timeouts struct {
	Transition Duration `yaml:"transition"` // Mode change limit
	Grace      Duration `yaml:"grace"`      // Extra time before the background watchdog fires
	Watchdog   Duration `yaml:"watchdog"`   // Background watchdog poll interval
	Scenario   Duration `yaml:"scenario"`   // Default scenario timeout

	// WatchdogTransition is the background watchdog's limit for a mode
	// change. Zero means transition + grace.
	WatchdogTransition Duration `yaml:"watchdogTransition"`
}

// Script declares a scenario whose body is a JavaScript file.
type Script struct {
	ID          int      `yaml:"id"`
	Name        string   `yaml:"name"`
	File        string   `yaml:"file"`
	Timeout     Duration `yaml:"timeout"`
	Severity    string   `yaml:"severity"`
	Owner       string   `yaml:"owner"`
	Feature     string   `yaml:"feature"`
	Story       string   `yaml:"story"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

// Duration accepts "30s"-style strings or a plain number of seconds.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if secs, err := strconv.ParseFloat(node.Value, 64); err == nil {
		d.Duration = time.Duration(secs * float64(time.Second))
		return nil
	}
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, node.Value)
	}
	d.Duration = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	headless := false
	return &Config{
		Headless:     &headless,
		Output:       "TestResults",
		Artifacts:    core.DefaultArtifactConfig(),
		CancelPolicy: core.CancelCountsAsFailure.String(),
		Pacing:       Duration{500 * time.Millisecond},
		Timeouts: Timeouts{
			Transition: Duration{30 * time.Second},
			Grace:      Duration{10 * time.Second},
			Watchdog:   Duration{time.Second},
			Scenario:   Duration{180 * time.Second},
		},
		DataDir: "data",
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Resolve relative paths against the config file's directory
	base := filepath.Dir(path)
	cfg.Scenes = resolve(base, cfg.Scenes)
	cfg.Fixtures = resolve(base, cfg.Fixtures)
	for i := range cfg.Scripts {
		cfg.Scripts[i].File = resolve(base, cfg.Scripts[i].File)
	}

	return &cfg, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// LoadFromDir looks for config.yaml or config.yml in the directory, then
// for the home config.
func LoadFromDir(dir string) (*Config, error) {
	// Try config.yaml first
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try config.yml
	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	if configPath = FindHome().ConfigFile(); filepath.Dir(configPath) != filepath.Clean(dir) {
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found, return empty config
	return &Config{}, nil
}

// Merge overlays every non-zero field of o onto c.
func (c *Config) Merge(o *Config) {
	if o == nil {
		return
	}
	if o.Scenario != 0 {
		c.Scenario = o.Scenario
	}
	if len(o.IncludeTags) > 0 {
		c.IncludeTags = o.IncludeTags
	}
	if len(o.ExcludeTags) > 0 {
		c.ExcludeTags = o.ExcludeTags
	}
	if o.Scenes != "" {
		c.Scenes = o.Scenes
	}
	if o.Headless != nil {
		c.Headless = o.Headless
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Artifacts != (core.ArtifactConfig{}) {
		c.Artifacts = o.Artifacts
	}
	if o.Log.File != "" {
		c.Log.File = o.Log.File
	}
	c.Log.Verbose = c.Log.Verbose || o.Log.Verbose
	if o.CancelPolicy != "" {
		c.CancelPolicy = o.CancelPolicy
	}
	if o.Pacing.Duration > 0 {
		c.Pacing = o.Pacing
	}
	mergeDuration(&c.Timeouts.Transition, o.Timeouts.Transition)
	mergeDuration(&c.Timeouts.Grace, o.Timeouts.Grace)
	mergeDuration(&c.Timeouts.WatchdogTransition, o.Timeouts.WatchdogTransition)
	mergeDuration(&c.Timeouts.Watchdog, o.Timeouts.Watchdog)
	mergeDuration(&c.Timeouts.Scenario, o.Timeouts.Scenario)
	if o.Fixtures != "" {
		c.Fixtures = o.Fixtures
	}
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	for k, v := range o.Env {
		if c.Env == nil {
			c.Env = make(map[string]string)
		}
		c.Env[k] = v
	}
	c.Scripts = append(c.Scripts, o.Scripts...)
}

func mergeDuration(dst *Duration, src Duration) {
	if src.Duration > 0 {
		*dst = src
	}
}

// IsHeadless reports the headless setting, false when unset.
func (c *Config) IsHeadless() bool {
	return c.Headless != nil && *c.Headless
}

// Policy parses CancelPolicy.
func (c *Config) Policy() (core.CancelPolicy, error) {
	return core.ParseCancelPolicy(c.CancelPolicy)
}
