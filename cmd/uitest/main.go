// Command uitest runs a small demo suite against the simulated host.
package main

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/oddgames/ui-automation/pkg/cli"
	"github.com/oddgames/ui-automation/pkg/scenario"
	"github.com/oddgames/ui-automation/pkg/scene"
)

//go:embed scenes.yaml
var demoScenes []byte

func main() {
	lib, err := scene.Parse(demoScenes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: demo scenes: %v\n", err)
		os.Exit(1)
	}
	cli.Execute(cli.Suite{Registry: demoRegistry(), Scenes: lib})
}

func demoRegistry() *scenario.Registry {
	reg := scenario.NewRegistry()

	reg.MustRegister(scenario.Descriptor{
		ID:       1,
		Name:     "Start Game",
		Timeout:  time.Minute,
		Severity: scenario.SeverityCritical,
		Feature:  "Main Menu",
		Tags:     []string{"smoke"},
	}, func(t *scenario.T) error {
		if err := t.Click("PlayButton"); err != nil {
			return err
		}
		if err := t.SceneChange(5 * time.Second); err != nil {
			return err
		}
		_, err := t.Find("PauseButton")
		return err
	})

	reg.MustRegister(scenario.Descriptor{
		ID:      2,
		Name:    "Rename Player",
		Timeout: time.Minute,
		Feature: "Main Menu",
		Tags:    []string{"smoke"},
	}, func(t *scenario.T) error {
		name := t.Var("PLAYER")
		if name == "" {
			name = "Tester"
		}
		t.Parameter("player", name)
		return t.TextInput("PlayerName", name)
	})

	reg.MustRegister(scenario.Descriptor{
		ID:      3,
		Name:    "Toggle Music",
		Timeout: time.Minute,
		Feature: "Settings",
	}, func(t *scenario.T) error {
		if err := t.Step("open settings", func() error {
			if err := t.Click("SettingsButton"); err != nil {
				return err
			}
			return t.SceneChange(5 * time.Second)
		}); err != nil {
			return err
		}
		if err := t.Click("MusicToggle"); err != nil {
			return err
		}
		if err := t.Screenshot("settings"); err != nil {
			return err
		}
		return t.Click("Back*", scenario.SearchTime(2*time.Second))
	})

	return reg
}
