package hittest

import (
	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/scene"
)

// LayerStride separates layers so draw order only breaks ties inside a layer.
const LayerStride = 1e6

// GraphSurface hit-tests the active scene of a graph. Later nodes in
// depth-first order draw on top of earlier ones within the same layer.
type GraphSurface struct {
	Graph    *scene.Graph
	Disabled bool
}

// NewGraphSurface returns the default surface for g.
func NewGraphSurface(g *scene.Graph) *GraphSurface {
	return &GraphSurface{Graph: g}
}

// Active reports whether the surface takes part in hit-testing.
func (s *GraphSurface) Active() bool { return !s.Disabled && s.Graph != nil }

// Raycast returns the raycast targets containing p, in draw order.
func (s *GraphSurface) Raycast(p core.Point) []Hit {
	var hits []Hit
	order := 0
	s.Graph.Walk(func(n *scene.Node) bool {
		order++
		if !n.RaycastTarget || n.Bounds.Empty() || !n.ActiveInHierarchy() {
			return true
		}
		if n.Bounds.Contains(p) {
			hits = append(hits, Hit{Node: n, Depth: float64(n.Layer)*LayerStride + float64(order)})
		}
		return true
	})
	return hits
}

// StaticSurface returns a fixed hit list; it models overlays outside the
// scene graph.
type StaticSurface struct {
	Hits    []Hit
	Enabled bool
}

// Active reports whether the surface is enabled.
func (s *StaticSurface) Active() bool { return s.Enabled }

// Raycast returns the hits whose node bounds contain p.
func (s *StaticSurface) Raycast(p core.Point) []Hit {
	var out []Hit
	for _, h := range s.Hits {
		if h.Node.Bounds.Contains(p) {
			out = append(out, h)
		}
	}
	return out
}
