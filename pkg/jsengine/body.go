package jsengine

import (
	"context"
	"fmt"
	"os"

	"github.com/dop251/goja"
	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/scenario"
	"go.uber.org/zap"
)

// Body compiles script into a scenario body. Every run gets a fresh
// runtime with the ui object bound to its T; the script is interrupted
// when the scenario scope is cancelled.
func Body(name, script string, log *zap.Logger) (scenario.Body, error) {
	p, err := Compile(name, script)
	if err != nil {
		return nil, err
	}
	return program(p, log), nil
}

// LoadFile reads and compiles a script file.
func LoadFile(path string, log *zap.Logger) (scenario.Body, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Body(path, string(data), log)
}

func program(p *goja.Program, log *zap.Logger) scenario.Body {
	return func(t *scenario.T) error {
		e := New(log)
		e.Bind(t)

		ctx := t.Context()
		stop := context.AfterFunc(ctx, func() {
			e.Interrupt(core.Cancelled(ctx))
		})
		defer stop()

		return e.Run(p)
	}
}
