package config

import (
	"os"
	"path/filepath"
	"sync"
)

const envHome = "UITEST_HOME"

// Home is the runner's install directory. Shared fixtures and a
// machine-wide config live under it.
type Home string

var (
	homeOnce sync.Once
	home     Home
)

// FindHome returns the runner home, resolved once per process from
// $UITEST_HOME, then <home>/bin/uitest, then the working directory.
func FindHome() Home {
	homeOnce.Do(func() {
		home = Home(resolveHome(os.Getenv(envHome), executableDir()))
	})
	return home
}

// Fixtures returns <home>/fixtures, the default fixture data root.
func (h Home) Fixtures() string { return filepath.Join(string(h), "fixtures") }

// ConfigFile returns <home>/config.yaml, read when the working directory
// has no config of its own.
func (h Home) ConfigFile() string { return filepath.Join(string(h), "config.yaml") }

func executableDir() string {
	p, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	return filepath.Dir(p)
}

func resolveHome(env, binDir string) string {
	if env != "" {
		return env
	}
	if binDir != "" && filepath.Base(binDir) == "bin" {
		return filepath.Dir(binDir)
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

func resetHome() {
	homeOnce = sync.Once{}
	home = ""
}
