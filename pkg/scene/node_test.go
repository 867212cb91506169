package scene

import (
	"testing"

	"github.com/oddgames/ui-automation/pkg/core"
)

func buildMenu() (*Node, *Node, *Node, *Node) {
	root := NewRoot("Menu")
	canvas := New("Canvas")
	panel := New("Panel")
	play := New("PlayButton")
	label := New("Label")
	label.Text = "Play"
	play.Add(label)
	panel.Add(play)
	canvas.Add(panel)
	root.Add(canvas)
	return root, canvas, play, label
}

func TestNode_Path(t *testing.T) {
	_, canvas, play, label := buildMenu()

	if got := canvas.Path(); got != "/Canvas" {
		t.Errorf("Path() = %q, want /Canvas", got)
	}
	if got := play.Path(); got != "/Canvas/Panel/PlayButton" {
		t.Errorf("Path() = %q, want /Canvas/Panel/PlayButton", got)
	}
	if got := label.Path(); got != "/Canvas/Panel/PlayButton/Label" {
		t.Errorf("Path() = %q", got)
	}
}

func TestNode_NearestText(t *testing.T) {
	_, canvas, play, label := buildMenu()

	if got := play.NearestText(); got != "Play" {
		t.Errorf("NearestText() = %q, want Play", got)
	}
	label.Text = ""
	play.Text = "Own"
	if got := play.NearestText(); got != "Own" {
		t.Errorf("NearestText() = %q, want Own", got)
	}
	play.Text = ""
	if got := canvas.NearestText(); got != "" {
		t.Errorf("NearestText() = %q, want empty", got)
	}
}

func TestNode_ActiveInHierarchy(t *testing.T) {
	_, canvas, play, _ := buildMenu()

	if !play.ActiveInHierarchy() {
		t.Fatal("ActiveInHierarchy() = false, want true")
	}
	canvas.Active = false
	if play.ActiveInHierarchy() {
		t.Error("ActiveInHierarchy() with inactive ancestor = true, want false")
	}
}

func TestNode_BlockingGroup(t *testing.T) {
	_, canvas, play, _ := buildMenu()

	if play.BlockingGroup() != nil {
		t.Fatal("BlockingGroup() without groups should be nil")
	}

	canvas.Group = &Group{Alpha: 0, Interactable: true}
	if play.BlockingGroup() == nil {
		t.Error("BlockingGroup() with alpha 0 ancestor = nil, want group")
	}

	canvas.Group = &Group{Alpha: 1, Interactable: false}
	if play.BlockingGroup() == nil {
		t.Error("BlockingGroup() with non-interactable ancestor = nil, want group")
	}

	// the nearest group wins
	play.Parent().Group = &Group{Alpha: 1, Interactable: true}
	if play.BlockingGroup() != nil {
		t.Error("BlockingGroup() should honour the nearest enabling group")
	}
}

func TestNode_IsDescendantOf(t *testing.T) {
	_, canvas, play, label := buildMenu()

	if !label.IsDescendantOf(canvas) {
		t.Error("label.IsDescendantOf(canvas) = false, want true")
	}
	if canvas.IsDescendantOf(label) {
		t.Error("canvas.IsDescendantOf(label) = true, want false")
	}
	if play.IsDescendantOf(play) {
		t.Error("IsDescendantOf(self) = true, want false")
	}
}

func TestWalk_PreOrder(t *testing.T) {
	root := NewRoot("r")
	a := New("A")
	b := New("B")
	a1 := New("A1")
	a.Add(a1)
	root.Add(a, b)

	var got []string
	Walk(root, func(n *Node) bool {
		got = append(got, n.Name)
		return true
	})

	want := []string{"r", "A", "A1", "B"}
	if len(got) != len(want) {
		t.Fatalf("Walk() visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Walk()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNode_AddReparents(t *testing.T) {
	a := New("A")
	b := New("B")
	c := New("C")
	a.Add(c)
	b.Add(c)

	if len(a.Children()) != 0 {
		t.Errorf("old parent still has %d children", len(a.Children()))
	}
	if c.Parent() != b {
		t.Error("Parent() not updated")
	}
}

func TestResolve_Capabilities(t *testing.T) {
	tests := []struct {
		name      string
		component interface{}
		want      Capability
	}{
		{"nil", nil, 0},
		{"button", &Button{}, Clickable},
		{"click only", &ClickOnly{}, Clickable},
		{"input", &Input{}, TextEditable},
		{"drag surface", &DragSurface{}, Clickable | Draggable},
		{"plain value", "label", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.component).Set; got != tt.want {
				t.Errorf("Resolve().Set = %s, want %s", got, tt.want)
			}
		})
	}

	caps := Resolve(&ClickOnly{})
	if caps.Down != nil || caps.Up != nil || caps.Click == nil {
		t.Error("ClickOnly should resolve only the click handler")
	}
}

func TestNode_CapsIncludesHitTestable(t *testing.T) {
	n := New("Button").Attach(&Button{})
	if n.Caps().Set.Has(HitTestable) {
		t.Error("HitTestable set without RaycastTarget")
	}
	n.RaycastTarget = true
	if !n.Caps().Set.Has(Clickable | HitTestable) {
		t.Errorf("Caps().Set = %s, want clickable|hittest", n.Caps().Set)
	}
}

func TestDescribe(t *testing.T) {
	root := NewRoot("Shop")
	list := New("List")
	items := []*Node{New("Item"), New("Item"), New("Other"), New("Item")}
	list.Add(items...)
	canvas := New("Canvas").Add(list)
	root.Add(canvas)

	e := Describe(items[3])
	if e.SiblingIndex != 2 || e.SiblingCount != 3 {
		t.Errorf("sibling = %d/%d, want 2/3", e.SiblingIndex, e.SiblingCount)
	}
	if e.Parent != "List" || e.Grandparent != "Canvas" {
		t.Errorf("parent = %q grandparent = %q", e.Parent, e.Grandparent)
	}
	if e.Path != "/Canvas/List/Item" {
		t.Errorf("Path = %q", e.Path)
	}

	top := Describe(canvas)
	if top.Parent != "" || top.Grandparent != "" {
		t.Errorf("top-level parent = %q, want empty", top.Parent)
	}

	s := Describe(items[2]).Strings()
	if s.Name != "Other" {
		t.Errorf("Strings().Name = %q", s.Name)
	}
}

func TestGraph_LoadNotifies(t *testing.T) {
	g := NewGraph()
	var loaded []string
	off := g.OnLoad(func(name string) { loaded = append(loaded, name) })

	root := NewRoot("Game")
	root.Add(New("Player"))
	g.Load("Game", root)
	g.Load("Game", nil)
	off()
	g.Load("Menu", nil)

	if len(loaded) != 2 {
		t.Fatalf("listener called %d times, want 2", len(loaded))
	}
	if g.Name() != "Menu" || g.Generation() != 3 {
		t.Errorf("Name() = %q Generation() = %d", g.Name(), g.Generation())
	}
	if !g.Root().IsRoot() {
		t.Error("loaded root not marked as container")
	}
}

func TestGraph_Find(t *testing.T) {
	g := NewGraph()
	root := NewRoot("Game")
	root.Add(New("HUD").Add(New("Score")))
	g.Load("Game", root)

	if n := g.Find("Score"); n == nil || n.Path() != "/HUD/Score" {
		t.Errorf("Find(Score) = %v", n)
	}
	if g.Find("Missing") != nil {
		t.Error("Find(Missing) should be nil")
	}
}

func TestDragSurface_AccumulatesDelta(t *testing.T) {
	d := &DragSurface{}
	d.OnBeginDrag(&PointerEvent{})
	d.OnDrag(&PointerEvent{Delta: core.Point{X: 3, Y: 1}})
	d.OnDrag(&PointerEvent{Delta: core.Point{X: 2, Y: -1}})
	d.OnEndDrag(&PointerEvent{})

	if d.Moved != (core.Point{X: 5, Y: 0}) {
		t.Errorf("Moved = %v, want (5,0)", d.Moved)
	}
	if d.Begins != 1 || d.Drags != 2 || d.Ends != 1 {
		t.Errorf("events = %d/%d/%d", d.Begins, d.Drags, d.Ends)
	}
}
