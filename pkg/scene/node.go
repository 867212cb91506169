// Package scene models the live scene graph the runner drives: nodes with
// bounds, activation state, disabling groups and attached interactive
// components.
package scene

import (
	"strings"

	"github.com/oddgames/ui-automation/pkg/core"
)

// Group disables input for a whole subtree when fully transparent or not
// interactable.
type Group struct {
	Alpha        float64
	Interactable bool
}

// Blocks reports whether the group disables its subtree.
func (g *Group) Blocks() bool {
	return g != nil && (g.Alpha <= 0 || !g.Interactable)
}

// Node is one element of the scene graph.
type Node struct {
	Name          string
	Text          string // visible label content, may be empty
	Active        bool
	Enabled       bool // attached component enabled
	Group         *Group
	Bounds        core.Bounds
	Layer         int  // sort order; higher layers draw in front
	RaycastTarget bool // receives pointer hits

	parent    *Node
	children  []*Node
	component interface{}
	caps      Capabilities
	root      bool
}

// New returns an active, enabled node.
func New(name string) *Node {
	return &Node{Name: name, Active: true, Enabled: true}
}

// NewRoot returns the container node holding a scene's top-level nodes.
// It is excluded from hierarchy paths.
func NewRoot(name string) *Node {
	n := New(name)
	n.root = true
	return n
}

// Add appends children and returns n.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c.parent != nil {
			c.parent.Remove(c)
		}
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

// Remove detaches child from n.
func (n *Node) Remove(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// Parent returns the parent node, nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child nodes in insertion order.
func (n *Node) Children() []*Node { return n.children }

// IsRoot reports whether n is a scene container.
func (n *Node) IsRoot() bool { return n.root }

// Attach attaches component to the node and resolves its capabilities.
func (n *Node) Attach(component interface{}) *Node {
	n.component = component
	n.caps = Resolve(component)
	return n
}

// Component returns the attached component, if any.
func (n *Node) Component() interface{} { return n.component }

// Caps returns the node's resolved capability set.
func (n *Node) Caps() Capabilities {
	c := n.caps
	if n.RaycastTarget {
		c.Set |= HitTestable
	}
	return c
}

// ActiveInHierarchy reports whether the node and all its ancestors are active.
func (n *Node) ActiveInHierarchy() bool {
	for p := n; p != nil; p = p.parent {
		if !p.Active {
			return false
		}
	}
	return true
}

// BlockingGroup returns the nearest group on n or its ancestors that
// disables input, or nil.
func (n *Node) BlockingGroup() *Group {
	for p := n; p != nil; p = p.parent {
		if p.Group != nil {
			// the nearest group decides
			if p.Group.Blocks() {
				return p.Group
			}
			return nil
		}
	}
	return nil
}

// IsDescendantOf reports whether n lies strictly below ancestor.
func (n *Node) IsDescendantOf(ancestor *Node) bool {
	if ancestor == nil {
		return false
	}
	for p := n.parent; p != nil; p = p.parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Path returns the hierarchy path "/A/B/C" excluding the scene container.
func (n *Node) Path() string {
	var names []string
	for p := n; p != nil && !p.root; p = p.parent {
		names = append(names, p.Name)
	}
	var b strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(names[i])
	}
	return b.String()
}

// NearestText returns the node's own text or that of its first descendant
// with text, in depth-first order.
func (n *Node) NearestText() string {
	var text string
	Walk(n, func(c *Node) bool {
		if c.Text != "" {
			text = c.Text
			return false
		}
		return true
	})
	return text
}

// Find returns the first node named name below n in depth-first order.
func (n *Node) Find(name string) *Node {
	var found *Node
	Walk(n, func(c *Node) bool {
		if c != n && c.Name == name {
			found = c
			return false
		}
		return true
	})
	return found
}

// Walk visits n and its subtree depth-first in pre-order, children in
// insertion order. It stops as soon as fn returns false.
func Walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}
