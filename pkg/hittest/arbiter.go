// Package hittest answers which scene nodes are under a screen point, front
// to back, across every registered hit-test surface.
package hittest

import (
	"sort"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/scene"
)

// Hit is one node under a point. Higher depth is closer to the viewer.
type Hit struct {
	Node  *scene.Node
	Depth float64
}

// Surface returns the nodes it renders at a point.
type Surface interface {
	Active() bool
	Raycast(p core.Point) []Hit
}

// Arbiter merges hits from all registered surfaces. It belongs to the host
// update loop and is not safe for concurrent use.
type Arbiter struct {
	fallback Surface
	surfaces []Surface
}

// NewArbiter creates an arbiter that uses fallback when no surface is
// registered.
func NewArbiter(fallback Surface) *Arbiter {
	return &Arbiter{fallback: fallback}
}

// Register adds a surface. Surfaces registered earlier win depth ties.
func (a *Arbiter) Register(s Surface) {
	a.surfaces = append(a.surfaces, s)
}

// Unregister removes a surface.
func (a *Arbiter) Unregister(s Surface) {
	for i, cur := range a.surfaces {
		if cur == s {
			a.surfaces = append(a.surfaces[:i], a.surfaces[i+1:]...)
			return
		}
	}
}

// Surfaces returns the surfaces queried by TopmostAt.
func (a *Arbiter) Surfaces() []Surface {
	if len(a.surfaces) == 0 {
		if a.fallback == nil {
			return nil
		}
		return []Surface{a.fallback}
	}
	return a.surfaces
}

// TopmostAt returns every hit at p, front-most first.
func (a *Arbiter) TopmostAt(p core.Point) []Hit {
	var hits []Hit
	for _, s := range a.Surfaces() {
		if !s.Active() {
			continue
		}
		hits = append(hits, s.Raycast(p)...)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Depth > hits[j].Depth
	})
	return hits
}

// Front returns the front-most node at p, or nil.
func (a *Arbiter) Front(p core.Point) *scene.Node {
	hits := a.TopmostAt(p)
	if len(hits) == 0 {
		return nil
	}
	return hits[0].Node
}

// IsTopmost reports whether n is visible at its own anchor point: the
// front-most hit is n, one of its descendants, or one of its ancestors.
// The second result is the front-most node, nil if nothing was hit.
func (a *Arbiter) IsTopmost(n *scene.Node) (bool, *scene.Node) {
	front := a.Front(Anchor(n))
	if front == nil {
		return false, nil
	}
	ok := front == n || front.IsDescendantOf(n) || n.IsDescendantOf(front)
	return ok, front
}

// Raycastable reports whether any hit at n's anchor is n or a descendant.
func (a *Arbiter) Raycastable(n *scene.Node) bool {
	for _, h := range a.TopmostAt(Anchor(n)) {
		if h.Node == n || h.Node.IsDescendantOf(n) {
			return true
		}
	}
	return false
}

// Anchor is the screen point used to hit-test n.
func Anchor(n *scene.Node) core.Point {
	return n.Bounds.Center()
}
