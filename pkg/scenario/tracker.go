package scenario

import (
	"time"

	"github.com/oddgames/ui-automation/pkg/scene"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// SceneTracker remembers the last scene change of a graph. Reloading the
// scene that is already active is not a change.
type SceneTracker struct {
	clock clock.PassiveClock
	log   *zap.SugaredLogger

	last      string
	previous  string
	changedAt time.Time
	changed   bool

	unsubscribe func()
}

// NewSceneTracker starts tracking g.
func NewSceneTracker(g *scene.Graph, clk clock.PassiveClock, log *zap.Logger) *SceneTracker {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &SceneTracker{clock: clk, log: log.Sugar(), last: g.Name()}
	s.unsubscribe = g.OnLoad(s.loaded)
	return s
}

func (s *SceneTracker) loaded(name string) {
	if name == s.last {
		return
	}
	s.log.Infof("[UITEST] Scene changed: %s -> %s", s.last, name)
	s.previous = s.last
	s.last = name
	s.changedAt = s.clock.Now()
	s.changed = true
}

// Last returns the name of the most recently loaded scene.
func (s *SceneTracker) Last() string { return s.last }

// Previous returns the scene that was active before the last change.
func (s *SceneTracker) Previous() string { return s.previous }

// LastChange returns when the last change happened, if any.
func (s *SceneTracker) LastChange() (time.Time, bool) {
	return s.changedAt, s.changed
}

// ChangedWithin reports whether the last change happened less than d ago.
func (s *SceneTracker) ChangedWithin(d time.Duration) bool {
	return s.changed && s.clock.Since(s.changedAt) < d
}

// Close stops tracking.
func (s *SceneTracker) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}
