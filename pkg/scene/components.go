package scene

import "github.com/oddgames/ui-automation/pkg/core"

// Button counts pointer events and runs OnClick on click.
type Button struct {
	OnClick func()

	Downs, Ups, Clicks int
}

func (b *Button) OnPointerDown(*PointerEvent) { b.Downs++ }
func (b *Button) OnPointerUp(*PointerEvent)   { b.Ups++ }

func (b *Button) OnPointerClick(*PointerEvent) {
	b.Clicks++
	if b.OnClick != nil {
		b.OnClick()
	}
}

// ClickOnly only implements the click handler.
type ClickOnly struct {
	Clicks int
}

func (c *ClickOnly) OnPointerClick(*PointerEvent) { c.Clicks++ }

// Toggle flips On on every click.
type Toggle struct {
	On bool
}

func (t *Toggle) OnPointerClick(*PointerEvent) { t.On = !t.On }

// Input is an editable text field.
type Input struct {
	Text     string
	OnChange func(string)
}

func (i *Input) Value() string { return i.Text }

func (i *Input) SetValue(v string) {
	i.Text = v
	if i.OnChange != nil {
		i.OnChange(v)
	}
}

// DragSurface records drags and pointer presses.
type DragSurface struct {
	Downs, Ups          int
	Begins, Drags, Ends int
	Moved               core.Point // sum of drag deltas
	Last                PointerEvent
}

func (d *DragSurface) OnPointerDown(*PointerEvent) { d.Downs++ }
func (d *DragSurface) OnPointerUp(*PointerEvent)   { d.Ups++ }

func (d *DragSurface) OnBeginDrag(e *PointerEvent) {
	d.Begins++
	d.Last = *e
}

func (d *DragSurface) OnDrag(e *PointerEvent) {
	d.Drags++
	d.Moved = d.Moved.Add(e.Delta)
	d.Last = *e
}

func (d *DragSurface) OnEndDrag(e *PointerEvent) {
	d.Ends++
	d.Last = *e
}
