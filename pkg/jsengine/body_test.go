package jsengine

import (
	"context"
	"testing"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/finder"
	"github.com/oddgames/ui-automation/pkg/host"
	"github.com/oddgames/ui-automation/pkg/host/sim"
	"github.com/oddgames/ui-automation/pkg/input"
	"github.com/oddgames/ui-automation/pkg/scenario"
	"github.com/oddgames/ui-automation/pkg/scene"
	"github.com/oddgames/ui-automation/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	testingclock "k8s.io/utils/clock/testing"
)

const frame = 16 * time.Millisecond

const testScenes = `
screen: {width: 320, height: 240}
start: Menu
scenes:
  Menu:
    - name: Canvas
      bounds: {x: 0, y: 0, width: 320, height: 240}
      children:
        - name: Play
          text: Play
          bounds: {x: 110, y: 100, width: 100, height: 40}
          component: button
          loads: Game
        - name: NameField
          bounds: {x: 0, y: 200, width: 200, height: 30}
          component: input
          value: old
  Game:
    - name: HUD
      bounds: {x: 0, y: 0, width: 320, height: 20}
`

type sink struct {
	steps  []string
	params map[string]string
	attach []core.Attachment
}

func (s *sink) StepStarted(string, time.Time) {}

func (s *sink) StepFinished(name string, _ time.Duration, _ error) { s.steps = append(s.steps, name) }

func (s *sink) Attach(a core.Attachment) { s.attach = append(s.attach, a) }

func (s *sink) Parameter(name, value string) {
	if s.params == nil {
		s.params = map[string]string{}
	}
	s.params[name] = value
}

// runScript runs script as scenario 1 in a simulated host until it
// finishes.
func runScript(t *testing.T, script string) (*scenario.Runtime, *sink) {
	t.Helper()
	log := zaptest.NewLogger(t)
	body, err := Body("test.js", script, log)
	require.NoError(t, err)

	lib, err := scene.Parse([]byte(testScenes))
	require.NoError(t, err)
	clk := testingclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	h := sim.New(sim.Config{Library: lib, Clock: clk})
	s := &sink{}
	desc := scenario.Descriptor{ID: 1, Name: "Script", Timeout: time.Minute, Tags: []string{"smoke"}}
	rt := scenario.NewRuntime(desc, body, scenario.Env{
		Host:      h,
		Scheduler: task.NewScheduler(clk),
		Clock:     clk,
		Finder:    finder.New(h.Graph(), h.Arbiter(), log),
		Input:     input.NewSimulator(input.NewPacer(clk, input.DefaultInterval), h.Arbiter(), h.Screen(), log),
		Sink:      s,
		Logger:    log,
		Vars:      map[string]string{"USER": "qa"},
	})
	h.OnTransition(func(tr host.Transition) {
		if tr.Kind == host.EnteredInteractive {
			rt.Start(context.Background(), *tr.Handshake)
		}
	})
	require.NoError(t, h.EnterInteractive(host.Handshake{Managed: true, ScenarioID: 1, ScenarioName: desc.Name}))

	for i := 0; i < 10000 && !rt.Finished(); i++ {
		h.Step()
		clk.Step(frame)
	}
	require.True(t, rt.Finished(), "script did not finish")
	return rt, s
}

func TestScriptPasses(t *testing.T) {
	rt, s := runScript(t, `
		const play = ui.find("Play");
		if (play.text !== "Play" || play.width !== 100) throw new Error("bad element " + JSON.stringify(play));
		ui.textInput("NameField", ui.var("USER"));
		ui.parameter("user", ui.var("USER"));
		ui.step("start game", () => {
			ui.click("Play");
			ui.sceneChange(5);
		});
		if (ui.scene() !== "Game") throw new Error("still in " + ui.scene());
		ui.attach("info", {id: ui.scenario.id, tags: ui.scenario.tags});
	`)

	assert.Equal(t, core.StatusPassed, rt.Status(), "err: %v", rt.Err())
	assert.Equal(t, []string{"start game"}, s.steps)
	assert.Equal(t, map[string]string{"user": "qa"}, s.params)
	require.Len(t, s.attach, 1)
	assert.Equal(t, core.ContentTypeJSON, s.attach[0].ContentType)
}

func TestScriptNotFoundKeepsCategory(t *testing.T) {
	rt, _ := runScript(t, `ui.click("Nothing", {searchTime: 1})`)

	assert.Equal(t, core.StatusFailed, rt.Status())
	assert.ErrorIs(t, rt.Err(), core.ErrNotFound)
	assert.GreaterOrEqual(t, rt.Result().Duration, time.Second)
}

func TestScriptCatchesAndContinues(t *testing.T) {
	rt, s := runScript(t, `
		try {
			ui.click("Nothing", {searchTime: 0.5});
		} catch (e) {
			ui.log("caught " + e);
		}
		ui.click("Missing", {searchTime: 0.2, optional: true});
		if (ui.exists("Nothing")) throw new Error("phantom element");
		if (!ui.exists("Play")) throw new Error("Play missing");
		ui.parameter("done", "yes");
	`)

	assert.Equal(t, core.StatusPassed, rt.Status(), "err: %v", rt.Err())
	assert.Equal(t, "yes", s.params["done"])
}

func TestScriptThrowIsFault(t *testing.T) {
	rt, _ := runScript(t, `throw new Error("boom")`)

	assert.Equal(t, core.StatusFailed, rt.Status())
	assert.Equal(t, core.ErrCategoryFault, core.CategoryOf(rt.Err()))
	assert.Contains(t, rt.Err().Error(), "boom")
}

func TestScriptWaitFor(t *testing.T) {
	rt, _ := runScript(t, `
		let n = 0;
		ui.waitFor("third poll", () => ++n >= 3, 10);
		ui.waitFor("never", () => false, 1);
	`)

	assert.Equal(t, core.StatusFailed, rt.Status())
	assert.ErrorIs(t, rt.Err(), core.ErrTimeout)
	assert.Contains(t, rt.Err().Error(), "never")
}

func TestScriptStepFailurePropagates(t *testing.T) {
	rt, s := runScript(t, `ui.step("explode", () => { throw new Error("inside step") })`)

	assert.Equal(t, core.StatusFailed, rt.Status())
	assert.Contains(t, rt.Err().Error(), "inside step")
	assert.Equal(t, []string{"explode"}, s.steps)
}

func TestBodyRejectsSyntaxErrors(t *testing.T) {
	_, err := Body("broken.js", "ui.click(", nil)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestLoadFile(t *testing.T) {
	_, err := LoadFile("does-not-exist.js", nil)
	assert.Error(t, err)
}
