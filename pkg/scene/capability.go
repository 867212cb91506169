package scene

import "github.com/oddgames/ui-automation/pkg/core"

// Capability is a bitmask of interaction traits a node supports.
type Capability uint8

const (
	Clickable Capability = 1 << iota
	Draggable
	TextEditable
	HitTestable

	// AnyCapability matches every node.
	AnyCapability Capability = 0
)

// Has reports whether c includes every bit of want.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

func (c Capability) String() string {
	if c == 0 {
		return "any"
	}
	var s string
	add := func(bit Capability, name string) {
		if c&bit == 0 {
			return
		}
		if s != "" {
			s += "|"
		}
		s += name
	}
	add(Clickable, "clickable")
	add(Draggable, "draggable")
	add(TextEditable, "text")
	add(HitTestable, "hittest")
	return s
}

// PointerEvent is delivered to pointer and drag handlers.
type PointerEvent struct {
	Position      core.Point
	PressPosition core.Point
	Delta         core.Point
	Button        int
	ClickCount    int
}

// PointerDownHandler receives pointer-down events.
type PointerDownHandler interface {
	OnPointerDown(*PointerEvent)
}

// PointerUpHandler receives pointer-up events.
type PointerUpHandler interface {
	OnPointerUp(*PointerEvent)
}

// PointerClickHandler receives click events.
type PointerClickHandler interface {
	OnPointerClick(*PointerEvent)
}

// BeginDragHandler receives the first event of a drag.
type BeginDragHandler interface {
	OnBeginDrag(*PointerEvent)
}

// DragHandler receives every drag step.
type DragHandler interface {
	OnDrag(*PointerEvent)
}

// EndDragHandler receives the last event of a drag.
type EndDragHandler interface {
	OnEndDrag(*PointerEvent)
}

// TextEditor is an editable text field.
type TextEditor interface {
	Value() string
	SetValue(string)
}

// Capabilities is the handler set of a node, resolved once on attach.
type Capabilities struct {
	Set       Capability
	Down      PointerDownHandler
	Up        PointerUpHandler
	Click     PointerClickHandler
	BeginDrag BeginDragHandler
	Drag      DragHandler
	EndDrag   EndDragHandler
	Editor    TextEditor
}

// Resolve probes component for the handler interfaces it implements.
func Resolve(component interface{}) Capabilities {
	var c Capabilities
	if component == nil {
		return c
	}
	c.Down, _ = component.(PointerDownHandler)
	c.Up, _ = component.(PointerUpHandler)
	c.Click, _ = component.(PointerClickHandler)
	c.BeginDrag, _ = component.(BeginDragHandler)
	c.Drag, _ = component.(DragHandler)
	c.EndDrag, _ = component.(EndDragHandler)
	c.Editor, _ = component.(TextEditor)

	if c.Down != nil || c.Up != nil || c.Click != nil {
		c.Set |= Clickable
	}
	if c.BeginDrag != nil || c.Drag != nil || c.EndDrag != nil {
		c.Set |= Draggable
	}
	if c.Editor != nil {
		c.Set |= TextEditable
	}
	return c
}
