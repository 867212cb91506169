package scene

import (
	"fmt"

	"github.com/oddgames/ui-automation/pkg/pattern"
)

// Element is a candidate for interaction: a node plus the attributes the
// resolver matches against. Elements are recomputed on every search.
type Element struct {
	Node         *Node
	Name         string
	Path         string
	Text         string
	Parent       string
	Grandparent  string
	SiblingIndex int // index among siblings with the same name
	SiblingCount int // number of siblings with the same name, including this one
}

// Describe derives an Element from n.
func Describe(n *Node) *Element {
	e := &Element{
		Node: n,
		Name: n.Name,
		Path: n.Path(),
		Text: n.NearestText(),
	}

	p := n.parent
	if p != nil && !p.root {
		e.Parent = p.Name
		if gp := p.parent; gp != nil && !gp.root {
			e.Grandparent = gp.Name
		}
	}

	if p == nil {
		e.SiblingCount = 1
		return e
	}
	for _, c := range p.children {
		if c.Name != n.Name {
			continue
		}
		if c == n {
			e.SiblingIndex = e.SiblingCount
		}
		e.SiblingCount++
	}
	return e
}

// Strings returns the values patterns are matched against.
func (e *Element) Strings() pattern.Strings {
	return pattern.Strings{Name: e.Name, Path: e.Path, Text: e.Text}
}

// Caps returns the capability set of the underlying node.
func (e *Element) Caps() Capabilities {
	return e.Node.Caps()
}

func (e *Element) String() string {
	if e.SiblingCount > 1 {
		return fmt.Sprintf("'%s' [%d/%d] Path: '%s'", e.Name, e.SiblingIndex+1, e.SiblingCount, e.Path)
	}
	return fmt.Sprintf("'%s' Path: '%s'", e.Name, e.Path)
}
