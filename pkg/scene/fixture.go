package scene

import (
	"fmt"
	"os"
	"sort"

	"github.com/oddgames/ui-automation/pkg/core"
	"gopkg.in/yaml.v3"
)

// File is a YAML scene fixture:
//
//	screen: {width: 1280, height: 720}
//	start: MainMenu
//	scenes:
//	  MainMenu:
//	    - name: Canvas
//	      bounds: {x: 0, y: 0, width: 1280, height: 720}
//	      children:
//	        - name: PlayButton
//	          text: Play
//	          component: button
//	          loads: Game
type File struct {
	Screen core.Bounds           `yaml:"screen"`
	Start  string                `yaml:"start"`
	Scenes map[string][]NodeSpec `yaml:"scenes"`
}

// NodeSpec describes one node of a fixture scene.
type NodeSpec struct {
	Name      string      `yaml:"name"`
	Text      string      `yaml:"text,omitempty"`
	Bounds    core.Bounds `yaml:"bounds,omitempty"`
	Layer     int         `yaml:"layer,omitempty"`
	Active    *bool       `yaml:"active,omitempty"`
	Enabled   *bool       `yaml:"enabled,omitempty"`
	Raycast   *bool       `yaml:"raycast,omitempty"` // defaults to true when a component is attached
	Group     *GroupSpec  `yaml:"group,omitempty"`
	Component string      `yaml:"component,omitempty"` // button, click, toggle, input, drag
	Value     string      `yaml:"value,omitempty"`     // initial input value
	Loads     string      `yaml:"loads,omitempty"`     // scene loaded when clicked
	Children  []NodeSpec  `yaml:"children,omitempty"`
}

// GroupSpec configures a disabling group.
type GroupSpec struct {
	Alpha        *float64 `yaml:"alpha"`
	Interactable *bool    `yaml:"interactable"`
}

// Library builds fresh scene instances from a fixture.
type Library struct {
	file File
}

// LoadFile reads a fixture from disk.
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided fixture
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses and validates fixture YAML.
func Parse(data []byte) (*Library, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scene fixture: %w", err)
	}
	if len(f.Scenes) == 0 {
		return nil, fmt.Errorf("scene fixture defines no scenes")
	}
	if f.Start == "" {
		names := make([]string, 0, len(f.Scenes))
		for name := range f.Scenes {
			names = append(names, name)
		}
		sort.Strings(names)
		f.Start = names[0]
	}
	if _, ok := f.Scenes[f.Start]; !ok {
		return nil, fmt.Errorf("start scene %q is not defined", f.Start)
	}
	for name, nodes := range f.Scenes {
		if err := validateSpecs(f, name, nodes); err != nil {
			return nil, err
		}
	}
	return &Library{file: f}, nil
}

func validateSpecs(f File, scene string, specs []NodeSpec) error {
	for _, s := range specs {
		if s.Name == "" {
			return fmt.Errorf("scene %q: node without a name", scene)
		}
		switch s.Component {
		case "", "button", "click", "toggle", "input", "drag":
		default:
			return fmt.Errorf("scene %q: node %q: unknown component %q", scene, s.Name, s.Component)
		}
		if s.Loads != "" {
			if _, ok := f.Scenes[s.Loads]; !ok {
				return fmt.Errorf("scene %q: node %q loads undefined scene %q", scene, s.Name, s.Loads)
			}
		}
		if err := validateSpecs(f, scene, s.Children); err != nil {
			return err
		}
	}
	return nil
}

// Start returns the scene loaded when the host enters interactive mode.
func (l *Library) Start() string { return l.file.Start }

// Screen returns the fixture's screen rectangle.
func (l *Library) Screen() core.Bounds { return l.file.Screen }

// Has reports whether the fixture defines scene name.
func (l *Library) Has(name string) bool {
	_, ok := l.file.Scenes[name]
	return ok
}

// LoadInto builds a fresh instance of scene name and loads it into g.
// Buttons with a "loads" target load their scene into the same graph.
func (l *Library) LoadInto(g *Graph, name string) error {
	specs, ok := l.file.Scenes[name]
	if !ok {
		return fmt.Errorf("scene %q is not defined", name)
	}
	root := NewRoot(name)
	for _, s := range specs {
		root.Add(l.build(g, s))
	}
	g.Load(name, root)
	return nil
}

func (l *Library) build(g *Graph, s NodeSpec) *Node {
	n := New(s.Name)
	n.Text = s.Text
	n.Bounds = s.Bounds
	n.Layer = s.Layer
	if s.Active != nil {
		n.Active = *s.Active
	}
	if s.Enabled != nil {
		n.Enabled = *s.Enabled
	}
	if s.Group != nil {
		grp := &Group{Alpha: 1, Interactable: true}
		if s.Group.Alpha != nil {
			grp.Alpha = *s.Group.Alpha
		}
		if s.Group.Interactable != nil {
			grp.Interactable = *s.Group.Interactable
		}
		n.Group = grp
	}

	var onClick func()
	if s.Loads != "" {
		target := s.Loads
		onClick = func() { _ = l.LoadInto(g, target) }
	}
	switch s.Component {
	case "button":
		n.Attach(&Button{OnClick: onClick})
	case "click":
		n.Attach(&ClickOnly{})
	case "toggle":
		n.Attach(&Toggle{})
	case "input":
		n.Attach(&Input{Text: s.Value})
	case "drag":
		n.Attach(&DragSurface{})
	}
	n.RaycastTarget = s.Component != ""
	if s.Raycast != nil {
		n.RaycastTarget = *s.Raycast
	}

	for _, c := range s.Children {
		n.Add(l.build(g, c))
	}
	return n
}
