package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/finder"
	"github.com/oddgames/ui-automation/pkg/hittest"
	"github.com/oddgames/ui-automation/pkg/scene"
	"github.com/oddgames/ui-automation/pkg/task"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// T is the handle a scenario body drives the host with. Every primitive
// suspends cooperatively and returns core.ErrCancelled as soon as the
// scenario scope is cancelled. A T must only be used from its own body.
type T struct {
	rt  *Runtime
	co  *task.Co
	log *zap.SugaredLogger
}

// Context returns the scenario scope.
func (t *T) Context() context.Context { return t.co.Context() }

// Descriptor returns the running scenario's descriptor.
func (t *T) Descriptor() Descriptor { return t.rt.desc }

// Now returns the session clock's time.
func (t *T) Now() time.Time { return t.co.Now() }

// Var returns a configured variable, or "" when unset.
func (t *T) Var(name string) string { return t.rt.env.Vars[name] }

// Graph returns the live scene graph.
func (t *T) Graph() *scene.Graph { return t.rt.env.Host.Graph() }

func (t *T) finder() *finder.Finder { return t.rt.env.Finder }

func (t *T) pollInterval() time.Duration { return t.finder().PollInterval }

func (t *T) waitPacer() error { return t.rt.env.Input.Pacer().Wait(t.co) }

func (t *T) actionDone() { t.rt.env.Input.Pacer().Done() }

// poll runs check at most once per interval until it succeeds, the timeout
// elapses or the scope is cancelled. Expiry returns core.ErrTimeout.
func (t *T) poll(timeout, interval time.Duration, check func() bool) error {
	start := t.co.Now()
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	for {
		if err := t.co.Err(); err != nil {
			return err
		}
		if limiter.AllowN(t.co.Now(), 1) && check() {
			return nil
		}
		if t.co.Since(start) >= timeout {
			return core.ErrTimeout
		}
		if err := t.co.Yield(); err != nil {
			return err
		}
	}
}

func missing(err error) bool {
	c := core.CategoryOf(err)
	return c == core.ErrCategoryNotFound || c == core.ErrCategoryTimeout
}

func notFound(patterns []string, format string, args ...interface{}) error {
	return core.ErrNotFound.
		WithMessagef(format, args...).
		WithDetails(map[string]interface{}{"patterns": patterns})
}

func (t *T) query(patterns []string, capability scene.Capability, o options) finder.Query {
	return finder.Query{
		Patterns:     patterns,
		Capability:   capability,
		Availability: o.availability,
		Timeout:      o.searchTime,
		Parent:       o.parent,
	}
}

// Wait suspends the body for d.
func (t *T) Wait(d time.Duration) error {
	return t.co.Sleep(d)
}

// Find returns the first available, unoccluded element matching search.
// With Optional a missing element yields (nil, nil).
func (t *T) Find(search string, opts ...Option) (*scene.Element, error) {
	o := collect(DefaultSearchTime, opts)
	patterns := o.patterns(search)
	t.log.Infof("[UITEST] Find (%s) [%s]", o.searchTime, strings.Join(patterns, ","))

	el, err := t.finder().Find(t.co, t.query(patterns, scene.AnyCapability, o))
	if err != nil {
		if o.optional && missing(err) {
			return nil, nil
		}
		return nil, err
	}
	return el, nil
}

// FindAll returns every available element matching search. With no
// pattern it returns whatever is available at once.
func (t *T) FindAll(search string, opts ...Option) ([]*scene.Element, error) {
	o := collect(DefaultSearchTime, opts)
	patterns := o.patterns(search)
	t.log.Infof("[UITEST] FindAll (%s) [%s]", o.searchTime, strings.Join(patterns, ","))

	els, err := t.finder().FindAll(t.co, t.query(patterns, scene.AnyCapability, o))
	if err != nil {
		if o.optional && missing(err) {
			return nil, nil
		}
		return nil, err
	}
	return els, nil
}

// Click clicks the element matching search. Index selects among all
// matches; Repeat clicks again, searching afresh every time.
func (t *T) Click(search string, opts ...Option) error {
	o := collect(DefaultSearchTime, opts)
	patterns := o.patterns(search)
	if err := t.waitPacer(); err != nil {
		return err
	}

	for remaining := o.repeat; ; {
		indexInfo := ""
		if o.index > 0 {
			indexInfo = fmt.Sprintf(" index=%d", o.index)
		}
		t.log.Infof("[UITEST] Click (%s) [%s]%s", o.searchTime, strings.Join(patterns, ", "), indexInfo)

		el, err := t.resolveClickable(patterns, o)
		switch {
		case err == nil:
			if err := t.rt.env.Input.Click(t.co, el); err != nil {
				return err
			}
		case o.optional && missing(err):
		default:
			return err
		}

		if remaining--; remaining <= 0 {
			return nil
		}
	}
}

func (t *T) resolveClickable(patterns []string, o options) (*scene.Element, error) {
	q := t.query(patterns, scene.Clickable, o)
	joined := strings.Join(patterns, ", ")

	if o.index <= 0 {
		el, err := t.finder().Find(t.co, q)
		if missing(err) {
			return nil, notFound(patterns, "Click on '%s' could not find any matching target within %.1fs", joined, o.searchTime.Seconds())
		}
		return el, err
	}

	var el *scene.Element
	err := t.poll(o.searchTime, t.finder().FindAllPollInterval, func() bool {
		all := t.finder().SnapshotAll(q)
		if o.index < len(all) {
			el = all[o.index]
			return true
		}
		return false
	})
	if missing(err) {
		return nil, notFound(patterns, "Click on '%s' at index %d could not find any matching target within %.1fs", joined, o.index, o.searchTime.Seconds())
	}
	return el, err
}

// ClickAny clicks one element chosen at random among every clickable
// match of patterns.
func (t *T) ClickAny(patterns []string, opts ...Option) error {
	o := collect(DefaultClickAnyTime, opts)
	patterns = append(append([]string(nil), patterns...), o.alternatives...)
	if err := t.waitPacer(); err != nil {
		return err
	}
	joined := strings.Join(patterns, ", ")
	t.log.Infof("[UITEST] ClickAny (%s) [%s]", o.searchTime, joined)

	q := t.query(patterns, scene.Clickable, o)
	var all []*scene.Element
	err := t.poll(o.searchTime, t.finder().FindAllPollInterval, func() bool {
		all = t.finder().SnapshotAll(q)
		return len(all) > 0
	})
	if err != nil {
		if !missing(err) {
			return err
		}
		if o.optional {
			return nil
		}
		return notFound(patterns, "ClickAny on '%s' could not find any matching target within %.1fs", joined, o.searchTime.Seconds())
	}

	pick := all[t.rt.env.Rand.IntN(len(all))]
	return t.rt.env.Input.Click(t.co, pick)
}

// ClickAt clicks whatever is front-most at p.
func (t *T) ClickAt(p core.Point, opts ...Option) error {
	o := collect(0, opts)
	t.log.Infof("[UITEST] Click at %s", p)
	_, err := t.rt.env.Input.ClickAt(t.co, p)
	if err != nil && o.optional && missing(err) {
		return nil
	}
	return err
}

// ClickCenter clicks whatever is front-most at the centre of the screen.
func (t *T) ClickCenter(opts ...Option) error {
	o := collect(0, opts)
	t.log.Infof("[UITEST] Click (screen center)")
	_, err := t.rt.env.Input.ClickAtScreenCenter(t.co)
	if missing(err) {
		if o.optional {
			return nil
		}
		return core.ErrNotFound.WithMessage("Click (screen center) could not find any target at screen center")
	}
	return err
}

// Hold presses the element matching search for d.
func (t *T) Hold(search string, d time.Duration, opts ...Option) error {
	o := collect(DefaultSearchTime, opts)
	patterns := o.patterns(search)
	if err := t.waitPacer(); err != nil {
		return err
	}
	joined := strings.Join(patterns, ", ")
	t.log.Infof("[UITEST] Hold (%s) [%s] for %s", o.searchTime, joined, d)

	el, err := t.finder().Find(t.co, t.query(patterns, scene.Clickable, o))
	if err != nil {
		if !missing(err) {
			return err
		}
		if o.optional {
			return nil
		}
		return notFound(patterns, "Hold on '%s' could not find any matching target within %.1fs", joined, o.searchTime.Seconds())
	}
	return t.rt.env.Input.Hold(t.co, el, d)
}

// Drag drags from the centre of the screen by direction over d.
func (t *T) Drag(direction core.Point, d time.Duration) error {
	start := t.rt.env.Input.Screen().Center()
	return t.DragFromTo(start, start.Add(direction), d)
}

// DragElement drags from the centre of the element matching search by
// direction over d.
func (t *T) DragElement(search string, direction core.Point, d time.Duration, opts ...Option) error {
	o := collect(DefaultSearchTime, opts)
	patterns := o.patterns(search)
	if err := t.waitPacer(); err != nil {
		return err
	}
	t.log.Infof("[UITEST] Drag (%s) [%s] delta=(%.0f,%.0f)", d, strings.Join(patterns, ", "), direction.X, direction.Y)

	el, err := t.finder().Find(t.co, t.query(patterns, scene.AnyCapability, o))
	if err != nil {
		if o.optional && missing(err) {
			return nil
		}
		return err
	}
	start := hittest.Anchor(el.Node)
	return t.DragFromTo(start, start.Add(direction), d)
}

// DragFromTo drags between two screen points over d.
func (t *T) DragFromTo(start, end core.Point, d time.Duration) error {
	if d <= 0 {
		d = DefaultDragDuration
	}
	_, err := t.rt.env.Input.DragBetween(t.co, start, end, d)
	return err
}

// TextInput replaces the content of the text field matching search.
func (t *T) TextInput(search, text string, opts ...Option) error {
	o := collect(DefaultSearchTime, opts)
	patterns := o.patterns(search)
	if err := t.waitPacer(); err != nil {
		return err
	}
	t.log.Infof("[UITEST] TextInput (%s) [%s] %s", o.searchTime, strings.Join(patterns, ", "), text)

	el, err := t.finder().Find(t.co, t.query(patterns, scene.TextEditable, o))
	if err != nil {
		if o.optional && missing(err) {
			return nil
		}
		return err
	}
	return t.rt.env.Input.TextInput(t.co, el, text)
}

// WaitFor polls cond at the shared poll cadence until it holds. It fails
// with core.ErrTimeout after timeout, zero meaning DefaultWaitForTimeout.
func (t *T) WaitFor(description string, timeout time.Duration, cond func() bool) error {
	if timeout <= 0 {
		timeout = DefaultWaitForTimeout
	}
	t.log.Infof("[UITEST] WaitFor (%s) [%s]", timeout, description)

	err := t.poll(timeout, t.pollInterval(), cond)
	if core.CategoryOf(err) == core.ErrCategoryTimeout {
		return core.ErrTimeout.WithMessagef("Condition '%s' not met within %v seconds", description, timeout.Seconds())
	}
	return err
}

// SceneChange waits until the active scene differs from the one active at
// the call. A change completed less than SceneChangeRecentWindow before
// the call counts.
func (t *T) SceneChange(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultSceneChangeTime
	}
	if err := t.waitPacer(); err != nil {
		return err
	}

	g := t.Graph()
	startScene := g.Name()
	t.log.Infof("[UITEST] SceneChange - waiting for scene change from '%s' (timeout: %s)", startScene, timeout)

	tr := t.rt.tracker
	if tr.ChangedWithin(SceneChangeRecentWindow) && tr.Last() == startScene {
		at, _ := tr.LastChange()
		t.log.Infof("[UITEST] SceneChange - scene recently changed (%.2fs ago) to '%s'", t.co.Since(at).Seconds(), startScene)
		t.actionDone()
		return nil
	}

	err := t.poll(timeout, t.pollInterval(), func() bool { return g.Name() != startScene })
	if err != nil {
		if core.CategoryOf(err) == core.ErrCategoryTimeout {
			return core.ErrTimeout.WithMessagef("Scene did not change from '%s' within %v seconds", startScene, timeout.Seconds())
		}
		return err
	}
	t.log.Infof("[UITEST] SceneChange - scene changed to '%s'", g.Name())
	t.actionDone()
	return nil
}

// WaitFramerate samples frames over sample windows until the measured rate
// reaches fps.
func (t *T) WaitFramerate(fps int, sample, timeout time.Duration) error {
	if sample <= 0 {
		sample = DefaultFramerateSample
	}
	if timeout <= 0 {
		timeout = DefaultFramerateTimeout
	}
	t.log.Infof("[UITEST] WaitFramerate - waiting for %d FPS (sample: %s, timeout: %s)", fps, sample, timeout)

	start := t.co.Now()
	for t.co.Since(start) < timeout {
		sampleStart := t.co.Now()
		frames := 0
		for t.co.Since(sampleStart) < sample {
			if err := t.co.Yield(); err != nil {
				return err
			}
			frames++
		}
		elapsed := t.co.Since(sampleStart).Seconds()
		current := float64(frames) / elapsed
		if current >= float64(fps) {
			t.log.Infof("[UITEST] WaitFramerate - achieved %.1f FPS (target: %d)", current, fps)
			return nil
		}
		t.log.Infof("[UITEST] WaitFramerate - current %.1f FPS, waiting for %d...", current, fps)
	}
	if err := t.co.Err(); err != nil {
		return err
	}
	return core.ErrTimeout.WithMessagef("Framerate did not reach %d FPS within %v seconds", fps, timeout.Seconds())
}

// Log writes a message to the scenario log.
func (t *T) Log(format string, args ...interface{}) {
	t.log.Infof("[UITEST] Step: "+format, args...)
}

// Step runs fn as a named step reported to the artifact bundle.
func (t *T) Step(name string, fn func() error) error {
	sink := t.rt.env.Sink
	start := t.co.Now()
	t.log.Infof("[UITEST] Step Start: %s", name)
	sink.StepStarted(name, start)

	err := fn()

	d := t.co.Since(start)
	t.log.Infof("[UITEST] Step End: %s (%.2fs)", name, d.Seconds())
	sink.StepFinished(name, d, err)
	return err
}

// Screenshot captures the host frame and attaches it.
func (t *T) Screenshot(name string) error {
	shots := t.rt.env.Screenshots
	if shots == nil {
		t.log.Warnf("[UITEST] Screenshot '%s' skipped: no capture available", name)
		return nil
	}
	data, err := shots.CaptureScreenshot()
	if err != nil {
		return fmt.Errorf("screenshot %q: %w", name, err)
	}
	att := core.NewScreenshotAttachment(name, data)
	t.rt.env.Sink.Attach(att)
	t.log.Infof("[UITEST] Screenshot: %s", att.Name)
	return nil
}

// AttachText attaches a text document.
func (t *T) AttachText(name, content string) {
	t.log.Infof("[UITEST] Attach Text '%s': %s", name, content)
	t.rt.env.Sink.Attach(core.NewTextAttachment(name, content))
}

// AttachJSON attaches v encoded as indented JSON.
func (t *T) AttachJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("attach %q: %w", name, err)
	}
	t.log.Infof("[UITEST] Attach JSON '%s': %s", name, data)
	t.rt.env.Sink.Attach(core.Attachment{Name: name, ContentType: core.ContentTypeJSON, Body: data})
	return nil
}

// Parameter records a named run parameter.
func (t *T) Parameter(name, value string) {
	t.log.Infof("[UITEST] Parameter: %s=%s", name, value)
	t.rt.env.Sink.Parameter(name, value)
}
