// Package jsengine runs scenario bodies written in JavaScript.
package jsengine

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/oddgames/ui-automation/pkg/core"
	"go.uber.org/zap"
)

// Engine wraps a goja runtime with console, json and variable helpers.
// An Engine must only be used from one goroutine at a time.
type Engine struct {
	runtime   *goja.Runtime
	log       *zap.SugaredLogger
	variables map[string]interface{}
	mu        sync.Mutex
}

// New creates a new JS engine instance. A nil log discards console output.
func New(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		runtime:   goja.New(),
		log:       log.Sugar(),
		variables: make(map[string]interface{}),
	}
	e.runtime.SetFieldNameMapper(goja.UncapFieldNameMapper())
	e.setupBuiltins()
	return e
}

// setupBuiltins registers all built-in functions and objects
func (e *Engine) setupBuiltins() {
	e.setupConsole()

	// JSON helper
	e.runtime.Set("json", e.jsonFunc())
}

// setupConsole routes console.log, console.error and console.warn to the
// scenario log.
func (e *Engine) setupConsole() {
	makeConsoleFunc := func(logf func(string, ...interface{})) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			logf("[UITEST] JS: %s", strings.Join(parts, " "))
			return goja.Undefined()
		}
	}

	console := e.runtime.NewObject()
	console.Set("log", makeConsoleFunc(e.log.Infof))
	console.Set("info", makeConsoleFunc(e.log.Infof))
	console.Set("debug", makeConsoleFunc(e.log.Debugf))
	console.Set("warn", makeConsoleFunc(e.log.Warnf))
	console.Set("error", makeConsoleFunc(e.log.Errorf))
	e.runtime.Set("console", console)
}

// jsonFunc returns the json() helper function
func (e *Engine) jsonFunc() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(e.runtime.NewTypeError("json requires 1 argument"))
		}

		str := call.Arguments[0].String()

		// Parse JSON string and return JS object
		result, err := e.runtime.RunString(fmt.Sprintf("JSON.parse(%q)", str))
		if err != nil {
			panic(e.runtime.NewTypeError(fmt.Sprintf("invalid JSON: %v", err)))
		}

		return result
	}
}

// SetVariable sets a variable accessible in JS as a global
func (e *Engine) SetVariable(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.variables[name] = value
	e.runtime.Set(name, value)
}

// SetVariables sets multiple variables
func (e *Engine) SetVariables(vars map[string]interface{}) {
	for k, v := range vars {
		e.SetVariable(k, v)
	}
}

// Eval evaluates a JavaScript expression and returns the result
func (e *Engine) Eval(script string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.runtime.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("JS eval error: %w", scriptError(err))
	}

	return result.Export(), nil
}

// EvalString evaluates a JavaScript expression and returns string result
func (e *Engine) EvalString(script string) (string, error) {
	result, err := e.Eval(script)
	if err != nil {
		return "", err
	}

	if result == nil {
		return "", nil
	}

	return fmt.Sprintf("%v", result), nil
}

// Run executes a compiled program. Errors thrown from Go bindings come
// back unwrapped, so their category survives the trip through JS.
func (e *Engine) Run(p *goja.Program) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.runtime.RunProgram(p); err != nil {
		return scriptError(err)
	}
	return nil
}

// RunScript compiles and runs a script.
func (e *Engine) RunScript(name, script string) error {
	p, err := Compile(name, script)
	if err != nil {
		return err
	}
	return e.Run(p)
}

// Interrupt stops the running script at its next instruction. It is safe
// to call from any goroutine.
func (e *Engine) Interrupt(err error) {
	e.runtime.Interrupt(err)
}

// Compile parses a script without running it.
func Compile(name, script string) (*goja.Program, error) {
	p, err := goja.Compile(name, script, false)
	if err != nil {
		return nil, core.ErrValidation.WithMessagef("script %s: %v", name, err).WithCause(err)
	}
	return p, nil
}

// scriptError maps a goja failure back to the error that caused it.
func scriptError(err error) error {
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		if cause, ok := ie.Value().(error); ok {
			return cause
		}
		return core.ErrCancelled.WithCause(err)
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		if cause := goError(ex.Value()); cause != nil {
			return cause
		}
		return core.ErrFault.WithMessage(ex.Error()).WithCause(err)
	}
	return err
}

// goError returns the Go error carried by a value created with NewGoError.
func goError(v goja.Value) error {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	inner := obj.Get("value")
	if inner == nil {
		return nil
	}
	if err, ok := inner.Export().(error); ok {
		return err
	}
	return nil
}
