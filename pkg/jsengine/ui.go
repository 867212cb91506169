package jsengine

import (
	"time"

	"github.com/dop251/goja"
	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/finder"
	"github.com/oddgames/ui-automation/pkg/scenario"
	"github.com/oddgames/ui-automation/pkg/scene"
)

// binding exposes a scenario.T to scripts as the global ui object.
// Durations are seconds, points are {x, y} objects or [x, y] arrays, and
// an options object may carry searchTime, optional, index, repeat, parent,
// or and availability.
type binding struct {
	vm *goja.Runtime
	t  *scenario.T
}

// Bind installs the ui object for t.
func (e *Engine) Bind(t *scenario.T) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b := &binding{vm: e.runtime, t: t}
	ui := e.runtime.NewObject()

	// Actions
	ui.Set("click", b.click)
	ui.Set("clickAny", b.clickAny)
	ui.Set("clickAt", b.clickAt)
	ui.Set("clickCenter", b.clickCenter)
	ui.Set("hold", b.hold)
	ui.Set("drag", b.drag)
	ui.Set("dragElement", b.dragElement)
	ui.Set("dragFromTo", b.dragFromTo)
	ui.Set("textInput", b.textInput)

	// Queries
	ui.Set("find", b.find)
	ui.Set("findAll", b.findAll)
	ui.Set("exists", b.exists)

	// Waits
	ui.Set("wait", b.wait)
	ui.Set("waitFor", b.waitFor)
	ui.Set("sceneChange", b.sceneChange)
	ui.Set("waitFramerate", b.waitFramerate)

	// Reporting
	ui.Set("log", b.logf)
	ui.Set("step", b.step)
	ui.Set("screenshot", b.screenshot)
	ui.Set("parameter", b.parameter)
	ui.Set("attach", b.attach)
	ui.Set("var", b.variable)
	ui.Set("scene", func() string { return t.Graph().Name() })

	desc := t.Descriptor()
	scenarioObj := e.runtime.NewObject()
	scenarioObj.Set("id", desc.ID)
	scenarioObj.Set("name", desc.Name)
	scenarioObj.Set("tags", desc.Tags)
	ui.Set("scenario", scenarioObj)

	e.runtime.Set("ui", ui)
}

// throw raises err inside the script. A JS exception passes through as is
// so a rethrown error keeps its identity.
func (b *binding) throw(err error) {
	if ex, ok := err.(*goja.Exception); ok {
		panic(ex)
	}
	panic(b.vm.NewGoError(err))
}

func (b *binding) check(err error) {
	if err != nil {
		b.throw(err)
	}
}

// ============================================================================
// ARGUMENTS
// ============================================================================

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

func seconds(v goja.Value) time.Duration {
	if !present(v) {
		return 0
	}
	return time.Duration(v.ToFloat() * float64(time.Second))
}

func (b *binding) point(v goja.Value) core.Point {
	if !present(v) {
		panic(b.vm.NewTypeError("point required"))
	}
	var xy []float64
	if err := b.vm.ExportTo(v, &xy); err == nil && len(xy) == 2 {
		return core.Point{X: xy[0], Y: xy[1]}
	}
	obj := v.ToObject(b.vm)
	x, y := obj.Get("x"), obj.Get("y")
	if !present(x) || !present(y) {
		panic(b.vm.NewTypeError("point must be {x, y} or [x, y]"))
	}
	return core.Point{X: x.ToFloat(), Y: y.ToFloat()}
}

func (b *binding) options(v goja.Value) []scenario.Option {
	if !present(v) {
		return nil
	}
	obj := v.ToObject(b.vm)
	var opts []scenario.Option
	if o := obj.Get("optional"); present(o) && o.ToBoolean() {
		opts = append(opts, scenario.Optional())
	}
	if o := obj.Get("searchTime"); present(o) {
		opts = append(opts, scenario.SearchTime(seconds(o)))
	}
	if o := obj.Get("index"); present(o) {
		opts = append(opts, scenario.Index(int(o.ToInteger())))
	}
	if o := obj.Get("repeat"); present(o) {
		opts = append(opts, scenario.Repeat(int(o.ToInteger())))
	}
	if o := obj.Get("parent"); present(o) {
		opts = append(opts, scenario.Parent(o.String()))
	}
	if o := obj.Get("or"); present(o) {
		var alts []string
		if err := b.vm.ExportTo(o, &alts); err != nil {
			panic(b.vm.NewTypeError("or must be an array of patterns"))
		}
		opts = append(opts, scenario.Or(alts...))
	}
	if o := obj.Get("availability"); present(o) {
		opts = append(opts, scenario.Availability(availability(o.String())))
	}
	return opts
}

func availability(s string) finder.Availability {
	switch s {
	case "none", "any":
		return finder.None
	case "active":
		return finder.Active
	case "enabled":
		return finder.Active | finder.Enabled
	default:
		return finder.All
	}
}

func (b *binding) element(el *scene.Element) goja.Value {
	if el == nil {
		return goja.Null()
	}
	bounds := el.Node.Bounds
	return b.vm.ToValue(map[string]interface{}{
		"name":         el.Name,
		"path":         el.Path,
		"text":         el.Text,
		"parent":       el.Parent,
		"grandparent":  el.Grandparent,
		"siblingIndex": el.SiblingIndex,
		"siblingCount": el.SiblingCount,
		"x":            bounds.X,
		"y":            bounds.Y,
		"width":        bounds.Width,
		"height":       bounds.Height,
	})
}

// ============================================================================
// ACTIONS
// ============================================================================

func (b *binding) click(call goja.FunctionCall) goja.Value {
	b.check(b.t.Click(call.Argument(0).String(), b.options(call.Argument(1))...))
	return goja.Undefined()
}

func (b *binding) clickAny(call goja.FunctionCall) goja.Value {
	var patterns []string
	if err := b.vm.ExportTo(call.Argument(0), &patterns); err != nil {
		panic(b.vm.NewTypeError("clickAny requires an array of patterns"))
	}
	b.check(b.t.ClickAny(patterns, b.options(call.Argument(1))...))
	return goja.Undefined()
}

func (b *binding) clickAt(call goja.FunctionCall) goja.Value {
	b.check(b.t.ClickAt(b.point(call.Argument(0)), b.options(call.Argument(1))...))
	return goja.Undefined()
}

func (b *binding) clickCenter(call goja.FunctionCall) goja.Value {
	b.check(b.t.ClickCenter(b.options(call.Argument(0))...))
	return goja.Undefined()
}

func (b *binding) hold(call goja.FunctionCall) goja.Value {
	b.check(b.t.Hold(call.Argument(0).String(), seconds(call.Argument(1)), b.options(call.Argument(2))...))
	return goja.Undefined()
}

func (b *binding) drag(call goja.FunctionCall) goja.Value {
	b.check(b.t.Drag(b.point(call.Argument(0)), seconds(call.Argument(1))))
	return goja.Undefined()
}

func (b *binding) dragElement(call goja.FunctionCall) goja.Value {
	b.check(b.t.DragElement(call.Argument(0).String(), b.point(call.Argument(1)),
		seconds(call.Argument(2)), b.options(call.Argument(3))...))
	return goja.Undefined()
}

func (b *binding) dragFromTo(call goja.FunctionCall) goja.Value {
	b.check(b.t.DragFromTo(b.point(call.Argument(0)), b.point(call.Argument(1)), seconds(call.Argument(2))))
	return goja.Undefined()
}

func (b *binding) textInput(call goja.FunctionCall) goja.Value {
	b.check(b.t.TextInput(call.Argument(0).String(), call.Argument(1).String(), b.options(call.Argument(2))...))
	return goja.Undefined()
}

// ============================================================================
// QUERIES
// ============================================================================

func (b *binding) find(call goja.FunctionCall) goja.Value {
	el, err := b.t.Find(call.Argument(0).String(), b.options(call.Argument(1))...)
	b.check(err)
	return b.element(el)
}

func (b *binding) findAll(call goja.FunctionCall) goja.Value {
	search := ""
	if present(call.Argument(0)) {
		search = call.Argument(0).String()
	}
	els, err := b.t.FindAll(search, b.options(call.Argument(1))...)
	b.check(err)
	out := make([]interface{}, len(els))
	for i, el := range els {
		out[i] = b.element(el)
	}
	return b.vm.NewArray(out...)
}

// exists reports whether search resolves within searchTime, zero by
// default.
func (b *binding) exists(call goja.FunctionCall) goja.Value {
	opts := append([]scenario.Option{scenario.SearchTime(0)}, b.options(call.Argument(1))...)
	opts = append(opts, scenario.Optional())
	el, err := b.t.Find(call.Argument(0).String(), opts...)
	b.check(err)
	return b.vm.ToValue(el != nil)
}

// ============================================================================
// WAITS
// ============================================================================

func (b *binding) wait(call goja.FunctionCall) goja.Value {
	b.check(b.t.Wait(seconds(call.Argument(0))))
	return goja.Undefined()
}

func (b *binding) waitFor(call goja.FunctionCall) goja.Value {
	desc := call.Argument(0).String()
	cond, ok := goja.AssertFunction(call.Argument(1))
	if !ok {
		panic(b.vm.NewTypeError("waitFor requires a condition function"))
	}
	var condErr error
	err := b.t.WaitFor(desc, seconds(call.Argument(2)), func() bool {
		v, err := cond(goja.Undefined())
		if err != nil {
			condErr = err
			return true
		}
		return v.ToBoolean()
	})
	if condErr != nil {
		b.throw(condErr)
	}
	b.check(err)
	return goja.Undefined()
}

func (b *binding) sceneChange(call goja.FunctionCall) goja.Value {
	b.check(b.t.SceneChange(seconds(call.Argument(0))))
	return goja.Undefined()
}

func (b *binding) waitFramerate(call goja.FunctionCall) goja.Value {
	b.check(b.t.WaitFramerate(int(call.Argument(0).ToInteger()), seconds(call.Argument(1)), seconds(call.Argument(2))))
	return goja.Undefined()
}

// ============================================================================
// REPORTING
// ============================================================================

func (b *binding) logf(call goja.FunctionCall) goja.Value {
	b.t.Log("%s", call.Argument(0).String())
	return goja.Undefined()
}

func (b *binding) step(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	fn, ok := goja.AssertFunction(call.Argument(1))
	if !ok {
		panic(b.vm.NewTypeError("step requires a function"))
	}
	var result goja.Value
	err := b.t.Step(name, func() error {
		v, err := fn(goja.Undefined())
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	b.check(err)
	if result == nil {
		return goja.Undefined()
	}
	return result
}

func (b *binding) screenshot(call goja.FunctionCall) goja.Value {
	name := "screenshot"
	if present(call.Argument(0)) {
		name = call.Argument(0).String()
	}
	b.check(b.t.Screenshot(name))
	return goja.Undefined()
}

func (b *binding) parameter(call goja.FunctionCall) goja.Value {
	b.t.Parameter(call.Argument(0).String(), call.Argument(1).String())
	return goja.Undefined()
}

// attach stores strings as text and anything else as JSON.
func (b *binding) attach(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	v := call.Argument(1)
	if s, ok := v.Export().(string); ok {
		b.t.AttachText(name, s)
		return goja.Undefined()
	}
	b.check(b.t.AttachJSON(name, v.Export()))
	return goja.Undefined()
}

func (b *binding) variable(call goja.FunctionCall) goja.Value {
	return b.vm.ToValue(b.t.Var(call.Argument(0).String()))
}
