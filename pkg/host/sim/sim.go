// Package sim is an in-process host: a fixed-rate update loop over a scene
// graph loaded from a scene library, with authoring and interactive modes.
// It drives the runner in tests and in the demo binary.
package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/hittest"
	"github.com/oddgames/ui-automation/pkg/host"
	"github.com/oddgames/ui-automation/pkg/scene"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// Defaults for Config.
const (
	DefaultFrameInterval    = 16 * time.Millisecond
	DefaultTransitionFrames = 2
)

var defaultScreen = core.Bounds{Width: 1280, Height: 720}

// Config configures a simulated host.
type Config struct {
	Library          *scene.Library // scenes; nil runs an empty scene
	Screen           core.Bounds    // defaults to the library screen, then 1280x720
	Headless         bool
	Clock            clock.WithTicker
	FrameInterval    time.Duration
	TransitionFrames int // frames a mode change takes to complete
	Logger           *zap.Logger
}

type pending struct {
	target    host.Mode
	handshake *host.Handshake
	frames    int
}

type listener[T any] struct {
	id int
	fn T
}

// Host is a simulated application under test.
type Host struct {
	cfg     Config
	log     *zap.SugaredLogger
	graph   *scene.Graph
	arbiter *hittest.Arbiter

	mode    host.Mode
	pending *pending
	frame   uint64

	nextID      int
	transitions []listener[func(host.Transition)]
	updates     []listener[func()]

	postMu sync.Mutex
	posted []func()

	frozen atomic.Bool
	stuck  atomic.Bool

	quitOnce sync.Once
	quit     chan struct{}
	exitCode atomic.Int32
}

var _ host.Host = (*Host)(nil)

// New creates a host in authoring mode.
func New(cfg Config) *Host {
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.TransitionFrames <= 0 {
		cfg.TransitionFrames = DefaultTransitionFrames
	}
	if cfg.Screen.Empty() && cfg.Library != nil {
		cfg.Screen = cfg.Library.Screen()
	}
	if cfg.Screen.Empty() {
		cfg.Screen = defaultScreen
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	g := scene.NewGraph()
	return &Host{
		cfg:     cfg,
		log:     cfg.Logger.Sugar(),
		graph:   g,
		arbiter: hittest.NewArbiter(hittest.NewGraphSurface(g)),
		quit:    make(chan struct{}),
	}
}

func (h *Host) Mode() host.Mode { return h.mode }

func (h *Host) Graph() *scene.Graph { return h.graph }

func (h *Host) Arbiter() *hittest.Arbiter { return h.arbiter }

func (h *Host) Screen() core.Bounds { return h.cfg.Screen }

func (h *Host) Headless() bool { return h.cfg.Headless }

// Clock returns the clock Run ticks on.
func (h *Host) Clock() clock.WithTicker { return h.cfg.Clock }

// Frame returns the number of completed ticks.
func (h *Host) Frame() uint64 { return h.frame }

// Transitioning reports whether a mode change is in flight.
func (h *Host) Transitioning() bool { return h.pending != nil }

// Quitted is closed once Quit has been called.
func (h *Host) Quitted() <-chan struct{} { return h.quit }

// ExitCode returns the code passed to Quit.
func (h *Host) ExitCode() int { return int(h.exitCode.Load()) }

// EnterInteractive requests interactive mode. The transition completes
// after TransitionFrames ticks.
func (h *Host) EnterInteractive(hs host.Handshake) error {
	if h.mode != host.Authoring || h.pending != nil {
		return host.ErrBusy
	}
	h.log.Debugf("[sim] EnterInteractive scenario=%d", hs.ScenarioID)
	h.pending = &pending{target: host.Interactive, handshake: &hs, frames: h.cfg.TransitionFrames}
	h.emit(host.Transition{Kind: host.ExitingAuthoring})
	return nil
}

// ExitInteractive requests authoring mode. It is ignored outside
// interactive mode.
func (h *Host) ExitInteractive() {
	if h.mode != host.Interactive || h.pending != nil {
		return
	}
	h.log.Debugf("[sim] ExitInteractive")
	h.pending = &pending{target: host.Authoring, frames: h.cfg.TransitionFrames}
	h.emit(host.Transition{Kind: host.ExitingInteractive})
}

// OnTransition registers fn for every mode transition.
func (h *Host) OnTransition(fn func(host.Transition)) func() {
	h.nextID++
	id := h.nextID
	h.transitions = append(h.transitions, listener[func(host.Transition)]{id: id, fn: fn})
	return func() { h.transitions = remove(h.transitions, id) }
}

// OnUpdate registers fn to run every tick.
func (h *Host) OnUpdate(fn func()) func() {
	h.nextID++
	id := h.nextID
	h.updates = append(h.updates, listener[func()]{id: id, fn: fn})
	return func() { h.updates = remove(h.updates, id) }
}

func remove[T any](ls []listener[T], id int) []listener[T] {
	for i, l := range ls {
		if l.id == id {
			return append(ls[:i:i], ls[i+1:]...)
		}
	}
	return ls
}

// Post queues fn for the next tick. Safe from any goroutine.
func (h *Host) Post(fn func()) {
	h.postMu.Lock()
	h.posted = append(h.posted, fn)
	h.postMu.Unlock()
}

// Quit records code and stops Run.
func (h *Host) Quit(code int) {
	h.quitOnce.Do(func() {
		h.log.Infof("[sim] Quit(%d)", code)
		h.exitCode.Store(int32(code))
		close(h.quit)
	})
}

// Freeze stops the update loop entirely, as a hung host would.
func (h *Host) Freeze() { h.frozen.Store(true) }

// Thaw resumes a frozen loop.
func (h *Host) Thaw() { h.frozen.Store(false) }

// StickTransitions keeps the loop ticking but never completes mode changes.
func (h *Host) StickTransitions(stuck bool) { h.stuck.Store(stuck) }

// Step runs one update tick: posted funcs, transition progress, then
// update listeners.
func (h *Host) Step() {
	if h.frozen.Load() {
		return
	}
	h.frame++

	h.postMu.Lock()
	posted := h.posted
	h.posted = nil
	h.postMu.Unlock()
	for _, fn := range posted {
		fn()
	}

	h.advance()

	ls := make([]listener[func()], len(h.updates))
	copy(ls, h.updates)
	for _, l := range ls {
		l.fn()
	}
}

func (h *Host) advance() {
	p := h.pending
	if p == nil || h.stuck.Load() {
		return
	}
	if p.frames--; p.frames > 0 {
		return
	}
	h.pending = nil
	h.mode = p.target

	if p.target == host.Interactive {
		h.loadStart()
		h.emit(host.Transition{Kind: host.EnteredInteractive, Handshake: p.handshake})
		return
	}
	h.graph.Load("", nil)
	h.emit(host.Transition{Kind: host.EnteredAuthoring})
}

// loadStart loads a fresh copy of the library's start scene.
func (h *Host) loadStart() {
	lib := h.cfg.Library
	if lib == nil {
		h.graph.Load("Main", nil)
		return
	}
	if err := lib.LoadInto(h.graph, lib.Start()); err != nil {
		h.log.Errorf("[sim] load start scene: %v", err)
	}
}

func (h *Host) emit(t host.Transition) {
	h.log.Debugf("[sim] transition %s", t.Kind)
	ls := make([]listener[func(host.Transition)], len(h.transitions))
	copy(ls, h.transitions)
	for _, l := range ls {
		l.fn(t)
	}
}

// Run ticks the host every FrameInterval until ctx is done or Quit is
// called. A frozen host keeps Run alive without ticking.
func (h *Host) Run(ctx context.Context) error {
	ticker := h.cfg.Clock.NewTicker(h.cfg.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.quit:
			return nil
		case <-ticker.C():
			h.Step()
		}
	}
}
