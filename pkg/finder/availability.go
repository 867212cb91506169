package finder

import (
	"github.com/oddgames/ui-automation/pkg/hittest"
	"github.com/oddgames/ui-automation/pkg/scene"
)

// Availability selects which liveness checks a candidate must pass.
type Availability uint8

const (
	// Active requires the node and all its ancestors to be active.
	Active Availability = 1 << iota
	// Enabled requires an enabled component and no disabling ancestor group.
	Enabled
	// Raycastable requires a hit at the node's anchor to land on the node
	// or one of its descendants.
	Raycastable

	None                Availability = 0
	All                              = Active | Enabled | Raycastable
	DefaultAvailability              = Active | Enabled
)

func (a Availability) String() string {
	switch a {
	case None:
		return "none"
	case All:
		return "all"
	}
	var s string
	for _, f := range []struct {
		bit  Availability
		name string
	}{{Active, "active"}, {Enabled, "enabled"}, {Raycastable, "raycastable"}} {
		if a&f.bit == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += f.name
	}
	return s
}

// Check evaluates want against n right now. The result is never cached.
func Check(n *scene.Node, arb *hittest.Arbiter, want Availability) bool {
	if want == None {
		return true
	}
	if n == nil {
		return false
	}
	if want&Active != 0 && !n.ActiveInHierarchy() {
		return false
	}
	if want&Enabled != 0 {
		if !n.Enabled || n.BlockingGroup() != nil {
			return false
		}
	}
	if want&Raycastable != 0 {
		if arb == nil || !arb.Raycastable(n) {
			return false
		}
	}
	return true
}
