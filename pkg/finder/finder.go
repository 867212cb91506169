// Package finder resolves scene elements by name, path or text pattern.
//
// Every search re-enumerates the live scene in depth-first pre-order, so two
// searches with no scene mutation in between return the same element.
// Searches suspend cooperatively between polls and stop at once when the
// scenario scope is cancelled.
package finder

import (
	"strings"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/hittest"
	"github.com/oddgames/ui-automation/pkg/pattern"
	"github.com/oddgames/ui-automation/pkg/scene"
	"github.com/oddgames/ui-automation/pkg/task"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Poll cadences. Scanning the whole scene every frame is too expensive.
const (
	DefaultPollInterval        = 500 * time.Millisecond
	DefaultFindAllPollInterval = 100 * time.Millisecond
)

// Query describes what to search for.
type Query struct {
	Patterns     []string         // empty matches any candidate
	Capability   scene.Capability // required capability bits
	Availability Availability
	Timeout      time.Duration // zero polls exactly once
	Parent       string        // optional pattern an ancestor must match
}

func (q Query) describe() string {
	if len(q.Patterns) == 0 {
		return q.Capability.String()
	}
	return q.Capability.String() + " '" + strings.Join(q.Patterns, ",") + "'"
}

// Finder searches one scene graph.
type Finder struct {
	graph   *scene.Graph
	arbiter *hittest.Arbiter
	log     *zap.SugaredLogger

	PollInterval        time.Duration
	FindAllPollInterval time.Duration
}

// New creates a finder over g, hit-testing through arb.
func New(g *scene.Graph, arb *hittest.Arbiter, log *zap.Logger) *Finder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Finder{
		graph:               g,
		arbiter:             arb,
		log:                 log.Sugar(),
		PollInterval:        DefaultPollInterval,
		FindAllPollInterval: DefaultFindAllPollInterval,
	}
}

// Arbiter returns the hit-test arbiter used for disambiguation.
func (f *Finder) Arbiter() *hittest.Arbiter { return f.arbiter }

// Find returns the first available, unoccluded element matching q.
// It fails with core.ErrNotFound once q.Timeout has elapsed.
func (f *Finder) Find(co *task.Co, q Query) (*scene.Element, error) {
	f.log.Debugf("[UITEST] Find (%s) %s", q.Timeout, q.describe())

	var found *scene.Element
	err := f.poll(co, q.Timeout, f.PollInterval, func() bool {
		found = f.Snapshot(q)
		return found != nil
	})
	if err != nil {
		return nil, f.wrap(err, q)
	}
	return found, nil
}

// FindAll returns every available element matching q, without hit-test
// disambiguation. With no patterns it returns at once, possibly empty.
func (f *Finder) FindAll(co *task.Co, q Query) ([]*scene.Element, error) {
	f.log.Debugf("[UITEST] FindAll (%s) %s", q.Timeout, q.describe())

	if len(q.Patterns) == 0 {
		if err := co.Err(); err != nil {
			return nil, err
		}
		return f.SnapshotAll(q), nil
	}

	var found []*scene.Element
	err := f.poll(co, q.Timeout, f.FindAllPollInterval, func() bool {
		found = f.SnapshotAll(q)
		return len(found) > 0
	})
	if err != nil {
		return nil, f.wrap(err, q)
	}
	return found, nil
}

// poll runs check at most once per interval until it succeeds, the timeout
// elapses or the scope is cancelled.
func (f *Finder) poll(co *task.Co, timeout, interval time.Duration, check func() bool) error {
	start := co.Now()
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	for {
		if err := co.Err(); err != nil {
			return err
		}
		if limiter.AllowN(co.Now(), 1) && check() {
			return nil
		}
		if co.Since(start) >= timeout {
			return core.ErrNotFound
		}
		if err := co.Yield(); err != nil {
			return err
		}
	}
}

func (f *Finder) wrap(err error, q Query) error {
	if core.CategoryOf(err) != core.ErrCategoryNotFound {
		return err
	}
	return core.ErrNotFound.
		WithMessagef("unable to locate %s in %.1f seconds", q.describe(), q.Timeout.Seconds()).
		WithDetails(map[string]interface{}{"patterns": q.Patterns})
}

// Snapshot runs one search pass without suspending.
func (f *Finder) Snapshot(q Query) *scene.Element {
	if len(q.Patterns) == 0 {
		var first *scene.Element
		f.candidates(q, func(n *scene.Node) bool {
			if Check(n, f.arbiter, q.Availability) {
				first = scene.Describe(n)
				return false
			}
			return true
		})
		return first
	}

	for _, el := range f.matches(q) {
		if !Check(el.Node, f.arbiter, q.Availability) {
			continue
		}
		top, front := f.arbiter.IsTopmost(el.Node)
		if top {
			f.log.Debugf("[UITEST] Match (top): %s", el)
			return el
		}
		blocker := "none"
		if front != nil {
			blocker = front.Name
		}
		f.log.Debugf("[UITEST] Match (blocked by '%s'): %s", blocker, el)
	}
	return nil
}

// SnapshotAll returns every available match in one pass.
func (f *Finder) SnapshotAll(q Query) []*scene.Element {
	var out []*scene.Element
	if len(q.Patterns) == 0 {
		f.candidates(q, func(n *scene.Node) bool {
			if Check(n, f.arbiter, q.Availability) {
				out = append(out, scene.Describe(n))
			}
			return true
		})
		return out
	}
	for _, el := range f.matches(q) {
		if Check(el.Node, f.arbiter, q.Availability) {
			out = append(out, el)
		}
	}
	return out
}

// matches returns candidates matching any pattern. Name matches come
// first, then path matches, then text matches, each in enumeration order,
// so a container borrowing a child's text never outranks the child.
func (f *Finder) matches(q Query) []*scene.Element {
	var byField [pattern.FieldText + 1][]*scene.Element
	f.candidates(q, func(n *scene.Node) bool {
		el := scene.Describe(n)
		if field, ok := bestField(el.Strings(), q.Patterns); ok {
			byField[field] = append(byField[field], el)
		}
		return true
	})
	out := byField[pattern.FieldName]
	out = append(out, byField[pattern.FieldPath]...)
	return append(out, byField[pattern.FieldText]...)
}

// bestField returns the strongest field any pattern matches.
func bestField(s pattern.Strings, patterns []string) (pattern.Field, bool) {
	best := pattern.FieldNone
	for _, p := range patterns {
		if field, ok := pattern.Match(s, p); ok && (best == pattern.FieldNone || field < best) {
			best = field
		}
	}
	return best, best != pattern.FieldNone
}

// candidates visits nodes with the requested capability that satisfy the
// parent restriction.
func (f *Finder) candidates(q Query, fn func(*scene.Node) bool) {
	f.graph.Walk(func(n *scene.Node) bool {
		if !n.Caps().Set.Has(q.Capability) {
			return true
		}
		if q.Parent != "" && !underParent(n, q.Parent) {
			return true
		}
		return fn(n)
	})
}

func underParent(n *scene.Node, p string) bool {
	for a := n.Parent(); a != nil && !a.IsRoot(); a = a.Parent() {
		if pattern.Matches(scene.Describe(a).Strings(), p) {
			return true
		}
	}
	return false
}
