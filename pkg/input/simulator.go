// Package input synthesizes pointer and text input against scene nodes.
package input

import (
	"math"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/hittest"
	"github.com/oddgames/ui-automation/pkg/scene"
	"github.com/oddgames/ui-automation/pkg/task"
	"go.uber.org/zap"
)

const (
	// SettleDelay separates pointer-down from pointer-up in a click.
	SettleDelay = 20 * time.Millisecond

	minDragSteps = 10
	dragRate     = 60 // steps per second of drag duration
)

// Simulator dispatches synthetic input. Every action waits on the shared
// pacer first and stamps it on completion.
type Simulator struct {
	pacer   *Pacer
	arbiter *hittest.Arbiter
	screen  core.Bounds
	log     *zap.SugaredLogger
}

// NewSimulator creates a simulator for a screen of the given size.
func NewSimulator(pacer *Pacer, arb *hittest.Arbiter, screen core.Bounds, log *zap.Logger) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{pacer: pacer, arbiter: arb, screen: screen, log: log.Sugar()}
}

// Pacer returns the shared pacer.
func (s *Simulator) Pacer() *Pacer { return s.pacer }

// Screen returns the screen bounds.
func (s *Simulator) Screen() core.Bounds { return s.screen }

// Click sends pointer-down, waits SettleDelay, then pointer-up and click.
// Each event goes only to handlers the node implements.
func (s *Simulator) Click(co *task.Co, el *scene.Element) error {
	if err := s.pacer.Wait(co); err != nil {
		return err
	}
	s.log.Infof("[UITEST] CLICK executing - Name: '%s' Path: '%s' Text: '%s'", el.Name, el.Path, el.Text)

	caps := el.Caps()
	ev := pointerAt(hittest.Anchor(el.Node))
	if caps.Down != nil {
		caps.Down.OnPointerDown(ev)
	}
	if err := co.Sleep(SettleDelay); err != nil {
		return err
	}
	if caps.Up != nil {
		caps.Up.OnPointerUp(ev)
	}
	if caps.Click != nil {
		ev.ClickCount = 1
		caps.Click.OnPointerClick(ev)
	}
	s.pacer.Done()
	return nil
}

// Hold presses el for d before releasing it.
func (s *Simulator) Hold(co *task.Co, el *scene.Element, d time.Duration) error {
	if err := s.pacer.Wait(co); err != nil {
		return err
	}
	s.log.Infof("[UITEST] Hold %s for %s", el, d)

	caps := el.Caps()
	ev := pointerAt(hittest.Anchor(el.Node))
	if caps.Down != nil {
		caps.Down.OnPointerDown(ev)
	}
	if err := co.Sleep(d); err != nil {
		return err
	}
	if caps.Up != nil {
		caps.Up.OnPointerUp(ev)
	}
	s.pacer.Done()
	return nil
}

// DragSteps returns the number of interpolation steps for a drag lasting d.
func DragSteps(d time.Duration) int {
	n := int(d.Seconds() * dragRate)
	if n < minDragSteps {
		return minDragSteps
	}
	return n
}

// DragBetween drags from start to end over d. Events go to the front-most
// node under start; when there is none the motion still runs with no
// targeted events. It returns the drag target, possibly nil.
func (s *Simulator) DragBetween(co *task.Co, start, end core.Point, d time.Duration) (*scene.Node, error) {
	if err := s.pacer.Wait(co); err != nil {
		return nil, err
	}
	s.log.Infof("[UITEST] DragFromTo (%s) from %s to %s", d, start, end)

	target := s.arbiter.Front(start)
	var caps scene.Capabilities
	if target != nil {
		caps = target.Caps()
	}

	ev := pointerAt(start)
	ev.PressPosition = start
	if caps.Down != nil {
		caps.Down.OnPointerDown(ev)
	}
	if caps.BeginDrag != nil {
		caps.BeginDrag.OnBeginDrag(ev)
	}

	steps := DragSteps(d)
	delta := core.Point{X: (end.X - start.X) / float64(steps), Y: (end.Y - start.Y) / float64(steps)}
	pause := time.Duration(math.Round(float64(d) / float64(steps)))
	for i := 1; i <= steps; i++ {
		ev.Position = start.Lerp(end, float64(i)/float64(steps))
		ev.Delta = delta
		if caps.Drag != nil {
			caps.Drag.OnDrag(ev)
		}
		if err := co.Sleep(pause); err != nil {
			return target, err
		}
	}

	ev.Position = end
	if caps.EndDrag != nil {
		caps.EndDrag.OnEndDrag(ev)
	}
	if caps.Up != nil {
		caps.Up.OnPointerUp(ev)
	}
	s.pacer.Done()
	return target, nil
}

// TextInput replaces the content of a text-editable element.
func (s *Simulator) TextInput(co *task.Co, el *scene.Element, text string) error {
	if err := s.pacer.Wait(co); err != nil {
		return err
	}
	editor := el.Caps().Editor
	if editor == nil {
		return core.ErrFault.WithMessagef("%s is not text editable", el)
	}
	s.log.Infof("[UITEST] TextInput %s '%s'", el, text)
	editor.SetValue(text)
	s.pacer.Done()
	return nil
}

// ClickAt sends a click to the front-most node at p. It fails with
// core.ErrNotFound when nothing is there.
func (s *Simulator) ClickAt(co *task.Co, p core.Point) (*scene.Node, error) {
	if err := s.pacer.Wait(co); err != nil {
		return nil, err
	}
	target := s.arbiter.Front(p)
	if target == nil {
		return nil, core.ErrNotFound.WithMessagef("no click target at %s", p)
	}
	s.log.Infof("[UITEST] Click at %s on '%s'", p, target.Name)
	if h := target.Caps().Click; h != nil {
		ev := pointerAt(p)
		ev.ClickCount = 1
		h.OnPointerClick(ev)
	}
	s.pacer.Done()
	return target, nil
}

// ClickAtScreenCenter clicks whatever is at the centre of the screen.
func (s *Simulator) ClickAtScreenCenter(co *task.Co) (*scene.Node, error) {
	return s.ClickAt(co, s.screen.Center())
}

func pointerAt(p core.Point) *scene.PointerEvent {
	return &scene.PointerEvent{Position: p, PressPosition: p}
}
