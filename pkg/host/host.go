// Package host defines the contract between the runner and the application
// under test: two run modes, transitions between them, an update loop and
// the live scene.
package host

import (
	"errors"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/hittest"
	"github.com/oddgames/ui-automation/pkg/scene"
)

// Mode is the host's run mode.
type Mode int

const (
	Authoring Mode = iota
	Interactive
)

func (m Mode) String() string {
	if m == Interactive {
		return "interactive"
	}
	return "authoring"
}

// TransitionKind identifies a step of a mode change.
type TransitionKind int

const (
	ExitingAuthoring TransitionKind = iota
	EnteredInteractive
	ExitingInteractive
	EnteredAuthoring
)

func (k TransitionKind) String() string {
	switch k {
	case ExitingAuthoring:
		return "ExitingAuthoring"
	case EnteredInteractive:
		return "EnteredInteractive"
	case ExitingInteractive:
		return "ExitingInteractive"
	case EnteredAuthoring:
		return "EnteredAuthoring"
	default:
		return "Unknown"
	}
}

// Handshake is written by the runner before entering interactive mode and
// handed to the scenario runtime with the EnteredInteractive transition.
type Handshake struct {
	Managed      bool // launched by the run orchestrator
	ScenarioID   int
	ScenarioName string
	RunID        string
}

// Transition is delivered to transition listeners.
type Transition struct {
	Kind      TransitionKind
	Handshake *Handshake // set on EnteredInteractive, nil otherwise
}

// ErrBusy is returned when a mode change is requested while another one is
// in flight or the host is already in the requested mode.
var ErrBusy = errors.New("host: mode transition not possible in current state")

// Host is the application under test. Every method except Post must be
// called from the host's update loop; listeners run on that loop.
type Host interface {
	Mode() Mode

	// EnterInteractive starts a transition to interactive mode carrying h.
	EnterInteractive(h Handshake) error
	// ExitInteractive starts a transition back to authoring mode.
	ExitInteractive()

	// OnTransition registers fn for mode transitions.
	OnTransition(fn func(Transition)) (unsubscribe func())
	// OnUpdate registers fn to run once per update tick.
	OnUpdate(fn func()) (unsubscribe func())

	Graph() *scene.Graph
	Arbiter() *hittest.Arbiter
	Screen() core.Bounds

	// Headless reports a batch run with no operator attached.
	Headless() bool
	// Quit stops the host process with code.
	Quit(code int)
	// Post schedules fn on the update loop. Safe from any goroutine.
	Post(fn func())
}
