package jsengine

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	engine := New(nil)

	if engine == nil {
		t.Fatal("expected engine to be created")
	}
	if engine.runtime == nil {
		t.Fatal("expected runtime to be initialized")
	}
}

func TestEval(t *testing.T) {
	engine := New(nil)

	tests := []struct {
		name     string
		script   string
		expected interface{}
	}{
		{"simple number", "1 + 2", int64(3)},
		{"string concat", "'hello' + ' ' + 'world'", "hello world"},
		{"boolean", "true && false", false},
		{"null coalescing", "null ?? 'default'", "default"},
		{"array length", "[1, 2, 3].length", int64(3)},
		{"object property", "({name: 'test'}).name", "test"},
		{"arrow function", "[1, 2, 3].map(x => x * 2).join(',')", "2,4,6"},
		{"template literal", "`${1 + 1} items`", "2 items"},
		{"destructuring", "(() => { const {a, b} = {a: 1, b: 2}; return a + b })()", int64(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Eval(tt.script)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %v (%T), got %v (%T)", tt.expected, tt.expected, result, result)
			}
		})
	}
}

func TestSetVariable(t *testing.T) {
	engine := New(nil)

	engine.SetVariable("username", "john")
	engine.SetVariables(map[string]interface{}{"count": 42})

	result, err := engine.EvalString("username + ':' + count")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "john:42" {
		t.Errorf("EvalString = %q, want %q", result, "john:42")
	}

	empty, err := engine.EvalString("undefined")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty != "" {
		t.Errorf("EvalString(undefined) = %q, want empty", empty)
	}
}

func TestConsoleGoesToLog(t *testing.T) {
	zc, logs := observer.New(zapcore.DebugLevel)
	engine := New(zap.New(zc))

	if err := engine.RunScript("console.js", `console.log("hello", 42); console.warn("careful"); console.error("bad")`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d log entries, want 3", len(entries))
	}
	if entries[0].Message != "[UITEST] JS: hello 42" {
		t.Errorf("log message = %q", entries[0].Message)
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("warn level = %v", entries[1].Level)
	}
	if entries[2].Level != zapcore.ErrorLevel {
		t.Errorf("error level = %v", entries[2].Level)
	}
}

func TestJSON(t *testing.T) {
	engine := New(nil)

	result, err := engine.Eval(`json('{"name": "ok", "n": 2}').name`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("json().name = %v, want ok", result)
	}

	if _, err := engine.Eval(`json('{not json')`); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := engine.Eval(`json()`); err == nil {
		t.Error("expected error for missing argument")
	}
}

func TestRunScriptError(t *testing.T) {
	engine := New(nil)

	err := engine.RunScript("throw.js", "throw new Error('boom')")
	if err == nil {
		t.Fatal("expected error")
	}
	if core.CategoryOf(err) != core.ErrCategoryFault {
		t.Errorf("category = %v, want fault", core.CategoryOf(err))
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q should mention boom", err)
	}
}

func TestEvalError(t *testing.T) {
	engine := New(nil)

	if _, err := engine.Eval("undefinedVariable.property"); err == nil {
		t.Error("expected error for undefined variable access")
	}
}

func TestCompileError(t *testing.T) {
	_, err := Compile("bad.js", "function (")
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("Compile error = %v, want validation", err)
	}
}

func TestGoErrorKeepsIdentity(t *testing.T) {
	engine := New(nil)
	engine.SetVariable("fail", func() {
		panic(engine.runtime.NewGoError(core.ErrNotFound.WithMessage("no such element")))
	})

	err := engine.RunScript("go.js", "fail()")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}

	// a caught error does not leak out
	if err := engine.RunScript("caught.js", "try { fail() } catch (e) {}"); err != nil {
		t.Errorf("caught error escaped: %v", err)
	}
}

func TestInterrupt(t *testing.T) {
	engine := New(nil)
	timer := time.AfterFunc(20*time.Millisecond, func() { engine.Interrupt(core.ErrCancelled) })
	defer timer.Stop()

	err := engine.RunScript("loop.js", "for (;;) {}")
	if !errors.Is(err, core.ErrCancelled) {
		t.Errorf("error = %v, want cancelled", err)
	}
}
