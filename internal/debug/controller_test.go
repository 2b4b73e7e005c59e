package debug

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"idebridge/internal/errors"
	"idebridge/internal/host"
	"idebridge/pkg/types"
)

// fakeDebugHost is an in-memory stand-in for the host's session APIs. It
// hands out sequential session ids and records the last control call.
type fakeDebugHost struct {
	nextID     int
	startErr   error
	stopErr    error
	stepErr    error
	threadsErr error

	lastBody   map[string]interface{}
	stopped    []string
	lastOp     string
	lastThread int
	// onStep runs inside StepControl, before it returns, to simulate a
	// host event racing the HTTP response.
	onStep func()

	threads   []types.ThreadInfo
	frames    map[int][]types.StackFrame
	scopes    map[int][]types.Scope
	variables map[int][]types.Variable
	eval      *types.EvaluateResult
	lastExpr  string
	lastFrame int
}

func (f *fakeDebugHost) StartDebug(ctx context.Context, configuration map[string]interface{}) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.nextID++
	f.lastBody = configuration
	return fmt.Sprintf("sess-%d", f.nextID), nil
}

func (f *fakeDebugHost) StopDebug(ctx context.Context, sessionID string) error {
	f.stopped = append(f.stopped, sessionID)
	return f.stopErr
}

func (f *fakeDebugHost) StepControl(ctx context.Context, sessionID, op string, threadID int) error {
	if f.stepErr != nil {
		return f.stepErr
	}
	f.lastOp = op
	f.lastThread = threadID
	if f.onStep != nil {
		f.onStep()
	}
	return nil
}

func (f *fakeDebugHost) Threads(ctx context.Context, sessionID string) ([]types.ThreadInfo, error) {
	if f.threadsErr != nil {
		return nil, f.threadsErr
	}
	return f.threads, nil
}

func (f *fakeDebugHost) StackTrace(ctx context.Context, sessionID string, threadID int) ([]types.StackFrame, error) {
	return f.frames[threadID], nil
}

func (f *fakeDebugHost) Scopes(ctx context.Context, sessionID string, frameID int) ([]types.Scope, error) {
	return f.scopes[frameID], nil
}

func (f *fakeDebugHost) Variables(ctx context.Context, sessionID string, variablesReference int) ([]types.Variable, error) {
	return f.variables[variablesReference], nil
}

func (f *fakeDebugHost) Evaluate(ctx context.Context, sessionID string, frameID int, expression string) (*types.EvaluateResult, error) {
	f.lastExpr = expression
	f.lastFrame = frameID
	return f.eval, nil
}

type fakeConfigSource struct {
	configs []types.ConfigurationInfo
	bodyErr error
}

func (f *fakeConfigSource) Configurations() ([]types.ConfigurationInfo, error) {
	return f.configs, nil
}

func (f *fakeConfigSource) StartBody(name string) (map[string]interface{}, types.ConfigurationInfo, bool, error) {
	if f.bodyErr != nil {
		return nil, types.ConfigurationInfo{}, false, f.bodyErr
	}
	if name == "" {
		cfg := f.configs[0]
		return map[string]interface{}{"name": cfg.Name, "request": cfg.Request}, cfg, true, nil
	}
	for _, cfg := range f.configs {
		if cfg.Name == name {
			return map[string]interface{}{"name": cfg.Name, "request": cfg.Request}, cfg, false, nil
		}
	}
	names := make([]string, len(f.configs))
	for i, cfg := range f.configs {
		names[i] = cfg.Name
	}
	return nil, types.ConfigurationInfo{}, false, errors.ConfigNotFound(name, names)
}

func newTestController() (*Controller, *fakeDebugHost) {
	h := &fakeDebugHost{
		threads: []types.ThreadInfo{{ID: 1, Name: "MainThread"}, {ID: 7, Name: "worker-1"}},
		frames: map[int][]types.StackFrame{
			7: {
				{ID: 100, Name: "sum", File: "src/calculator.py", Line: 12},
				{ID: 101, Name: "main", File: "src/main.py", Line: 30},
			},
		},
		scopes: map[int][]types.Scope{
			100: {
				{Name: "Locals", VariablesReference: 200},
				{Name: "Globals", VariablesReference: 201, Expensive: true},
			},
			101: {{Name: "Locals", VariablesReference: 210}},
		},
		variables: map[int][]types.Variable{
			200: {
				{Name: "a", Value: "2", Type: "int"},
				{Name: "b", Value: "3", Type: "int"},
			},
			201: {{Name: "PI", Value: "3.14159", Type: "float"}},
			210: {{Name: "calc", Value: "<BasicCalculator>", VariablesReference: 300}},
		},
		eval: &types.EvaluateResult{Result: "5", Type: "int"},
	}
	configs := &fakeConfigSource{configs: []types.ConfigurationInfo{
		{Name: "Run API Server", Type: "debugpy", Request: "launch"},
		{Name: "Run Worker", Type: "debugpy", Request: "launch"},
	}}
	return NewController(h, configs), h
}

// startPaused starts a named session and delivers a stopped event for
// thread 7, the shape most control tests need.
func startPaused(t *testing.T, c *Controller, h *fakeDebugHost) string {
	t.Helper()
	res, err := c.Start(context.Background(), "Run API Server")
	require.NoError(t, err)
	c.HandleStopped(res.Info.SessionID, 7, "breakpoint", true)
	return res.Info.SessionID
}

// TestStart verifies the Idle to Running transition and the resolved body
// reaching the host.
func TestStart(t *testing.T) {
	c, h := newTestController()

	res, err := c.Start(context.Background(), "Run API Server")
	require.NoError(t, err)
	require.Equal(t, types.SessionStateRunning, res.Info.State)
	require.Equal(t, "sess-1", res.Info.SessionID)
	require.Equal(t, "Run API Server", res.Info.Configuration)
	require.False(t, res.DefaultedConfiguration)
	require.False(t, res.Info.StartedAt.IsZero())
	require.Equal(t, "Run API Server", h.lastBody["name"])
}

// TestStart_DefaultsConfiguration verifies the defaulted flag surfaces.
func TestStart_DefaultsConfiguration(t *testing.T) {
	c, _ := newTestController()

	res, err := c.Start(context.Background(), "")
	require.NoError(t, err)
	require.True(t, res.DefaultedConfiguration)
}

// TestStart_AlreadyActive verifies a live session is never silently
// replaced.
func TestStart_AlreadyActive(t *testing.T) {
	c, h := newTestController()

	_, err := c.Start(context.Background(), "Run API Server")
	require.NoError(t, err)
	_, err = c.Start(context.Background(), "Run Worker")
	require.Equal(t, errors.CodeSessionAlreadyActive, errors.CodeOf(err))
	require.Len(t, h.stopped, 0)
}

// TestStart_FailureResets verifies both failure legs land back in Idle so
// a corrected start can follow.
func TestStart_FailureResets(t *testing.T) {
	t.Run("configuration error", func(t *testing.T) {
		c, _ := newTestController()
		_, err := c.Start(context.Background(), "No Such Config")
		require.Equal(t, errors.CodeConfigNotFound, errors.CodeOf(err))
		require.Equal(t, types.SessionStateIdle, c.Status().State)
	})

	t.Run("host error", func(t *testing.T) {
		c, h := newTestController()
		h.startErr = errors.HostUnavailable("http://127.0.0.1:8991", fmt.Errorf("connection refused"))
		_, err := c.Start(context.Background(), "Run API Server")
		require.Equal(t, errors.CodeHostUnavailable, errors.CodeOf(err))
		require.Equal(t, types.SessionStateIdle, c.Status().State)

		h.startErr = nil
		_, err = c.Start(context.Background(), "Run API Server")
		require.NoError(t, err)
	})
}

// TestStop verifies teardown reaches the host and always ends Idle.
func TestStop(t *testing.T) {
	c, h := newTestController()
	sid := startPaused(t, c, h)

	info, err := c.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.SessionStateIdle, info.State)
	require.Empty(t, info.SessionID)
	require.True(t, info.StartedAt.IsZero())
	require.Equal(t, []string{sid}, h.stopped)
}

// TestStop_NoSession verifies stopping from Idle is an error.
func TestStop_NoSession(t *testing.T) {
	c, _ := newTestController()

	_, err := c.Stop(context.Background())
	require.Equal(t, errors.CodeNoActiveSession, errors.CodeOf(err))
}

// TestStop_HostErrorStillResets verifies a teardown failure cannot wedge
// the controller in a dead session.
func TestStop_HostErrorStillResets(t *testing.T) {
	c, h := newTestController()
	startPaused(t, c, h)
	h.stopErr = fmt.Errorf("host went away")

	info, err := c.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.SessionStateIdle, info.State)
}

// TestRestart verifies stop-then-start with the same configuration.
func TestRestart(t *testing.T) {
	c, h := newTestController()
	old := startPaused(t, c, h)

	res, err := c.Restart(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.SessionStateRunning, res.Info.State)
	require.NotEqual(t, old, res.Info.SessionID)
	require.Equal(t, "Run API Server", res.Info.Configuration)
	require.False(t, res.DefaultedConfiguration)
	require.Empty(t, res.Info.StoppedReason)
	require.Contains(t, h.stopped, old)
}

// TestRestart_NoSession verifies restarting from Idle is an error.
func TestRestart_NoSession(t *testing.T) {
	c, _ := newTestController()

	_, err := c.Restart(context.Background())
	require.Equal(t, errors.CodeNoActiveSession, errors.CodeOf(err))
}

// TestControl_RequiresSession verifies control verbs against Idle and
// against a session whose debuggee already exited.
func TestControl_RequiresSession(t *testing.T) {
	c, h := newTestController()

	_, err := c.Continue(context.Background(), 0)
	require.Equal(t, errors.CodeNoActiveSession, errors.CodeOf(err))

	sid := startPaused(t, c, h)
	c.HandleExited(sid, 0)
	_, err = c.Continue(context.Background(), 0)
	require.Equal(t, errors.CodeNoActiveSession, errors.CodeOf(err))
}

// TestSteps verifies each step verb maps to its host operation and
// defaults to the stopped thread.
func TestSteps(t *testing.T) {
	tests := []struct {
		name   string
		call   func(c *Controller) (*ControlResult, error)
		wantOp string
	}{
		{"stepOver", func(c *Controller) (*ControlResult, error) { return c.StepOver(context.Background(), 0) }, host.OpNext},
		{"stepInto", func(c *Controller) (*ControlResult, error) { return c.StepInto(context.Background(), 0) }, host.OpStepIn},
		{"stepOut", func(c *Controller) (*ControlResult, error) { return c.StepOut(context.Background(), 0) }, host.OpStepOut},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, h := newTestController()
			startPaused(t, c, h)

			res, err := tc.call(c)
			require.NoError(t, err)
			require.Equal(t, tc.wantOp, h.lastOp)
			require.Equal(t, 7, res.ThreadID)
			require.True(t, res.DefaultedThread)
			require.Equal(t, types.SessionStateRunning, res.State)
		})
	}
}

// TestSteps_RequirePause verifies stepping a running session fails without
// a host call.
func TestSteps_RequirePause(t *testing.T) {
	c, h := newTestController()
	_, err := c.Start(context.Background(), "Run API Server")
	require.NoError(t, err)

	_, err = c.StepOver(context.Background(), 0)
	require.Equal(t, errors.CodeNotPaused, errors.CodeOf(err))
	require.Empty(t, h.lastOp)
}

// TestContinue verifies resuming a paused thread.
func TestContinue(t *testing.T) {
	c, h := newTestController()
	startPaused(t, c, h)

	res, err := c.Continue(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, host.OpContinue, h.lastOp)
	require.Equal(t, 7, h.lastThread)
	require.Equal(t, types.SessionStateRunning, res.State)
	require.Empty(t, c.Status().StoppedReason)
}

// TestContinue_EventWinsOverOptimism verifies a stopped event that lands
// before the control response keeps the session Paused.
func TestContinue_EventWinsOverOptimism(t *testing.T) {
	c, h := newTestController()
	sid := startPaused(t, c, h)
	h.onStep = func() { c.HandleStopped(sid, 7, "breakpoint", true) }

	res, err := c.Continue(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, types.SessionStatePaused, res.State)
	require.Equal(t, "breakpoint", c.Status().StoppedReason)
}

// TestPause verifies pause stays Running until the host's stopped event
// confirms it.
func TestPause(t *testing.T) {
	c, h := newTestController()
	res, err := c.Start(context.Background(), "Run API Server")
	require.NoError(t, err)
	sid := res.Info.SessionID

	ctl, err := c.Pause(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, host.OpPause, h.lastOp)
	require.Equal(t, 1, ctl.ThreadID, "no stopped thread yet, first live thread wins")
	require.True(t, ctl.DefaultedThread)
	require.Equal(t, types.SessionStateRunning, ctl.State)

	c.HandleStopped(sid, 1, "pause", false)
	st := c.Status()
	require.Equal(t, types.SessionStatePaused, st.State)
	require.Equal(t, "pause", st.StoppedReason)
	require.Equal(t, 1, st.ActiveThread)
}

// TestControl_UnknownThread verifies a stale thread id fails instead of
// being swapped for a live one.
func TestControl_UnknownThread(t *testing.T) {
	c, h := newTestController()
	startPaused(t, c, h)

	_, err := c.Continue(context.Background(), 99)
	require.Equal(t, errors.CodeInvalidThreadID, errors.CodeOf(err))
	require.ElementsMatch(t, []int{1, 7}, errors.FromError(err).Details["knownThreads"])
	require.Empty(t, h.lastOp)
}

// TestControl_ExplicitThread verifies a valid explicit id is used as
// given.
func TestControl_ExplicitThread(t *testing.T) {
	c, h := newTestController()
	startPaused(t, c, h)

	res, err := c.Continue(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, res.ThreadID)
	require.False(t, res.DefaultedThread)
	require.Equal(t, 1, h.lastThread)
}

// TestControl_NoThreads verifies defaulting with an empty thread list is a
// host error.
func TestControl_NoThreads(t *testing.T) {
	c, h := newTestController()
	_, err := c.Start(context.Background(), "Run API Server")
	require.NoError(t, err)
	h.threads = nil

	_, err = c.Pause(context.Background(), 0)
	require.Equal(t, errors.CodeHostError, errors.CodeOf(err))
}

// TestCallStack verifies frame fetching with a defaulted thread.
func TestCallStack(t *testing.T) {
	c, h := newTestController()
	startPaused(t, c, h)

	res, err := c.CallStack(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 7, res.ThreadID)
	require.True(t, res.DefaultedThread)
	require.Len(t, res.Frames, 2)
	require.Equal(t, "sum", res.Frames[0].Name)
}

// TestCallStack_StateGates verifies inspection is paused-only.
func TestCallStack_StateGates(t *testing.T) {
	c, _ := newTestController()
	_, err := c.CallStack(context.Background(), 0)
	require.Equal(t, errors.CodeNoActiveSession, errors.CodeOf(err))

	_, err = c.Start(context.Background(), "Run API Server")
	require.NoError(t, err)
	_, err = c.CallStack(context.Background(), 0)
	require.Equal(t, errors.CodeNotPaused, errors.CodeOf(err))
}

// TestVariables verifies the default walk: stopped thread, top frame, all
// scopes expanded.
func TestVariables(t *testing.T) {
	c, h := newTestController()
	startPaused(t, c, h)

	res, err := c.Variables(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Equal(t, 7, res.ThreadID)
	require.True(t, res.DefaultedThread)
	require.Equal(t, 100, res.FrameID)
	require.True(t, res.DefaultedFrame)
	require.Len(t, res.Scopes, 2)
	require.Equal(t, "Locals", res.Scopes[0].Scope.Name)
	require.Len(t, res.Scopes[0].Variables, 2)
	require.Equal(t, "PI", res.Scopes[1].Variables[0].Name)
}

// TestVariables_ExplicitFrame verifies a frame picked off the live stack is
// honored.
func TestVariables_ExplicitFrame(t *testing.T) {
	c, h := newTestController()
	startPaused(t, c, h)

	res, err := c.Variables(context.Background(), 0, 101)
	require.NoError(t, err)
	require.Equal(t, 101, res.FrameID)
	require.False(t, res.DefaultedFrame)
	require.Len(t, res.Scopes, 1)
	require.Equal(t, "calc", res.Scopes[0].Variables[0].Name)
}

// TestVariables_UnknownFrame verifies a frame id outside the current stack
// fails.
func TestVariables_UnknownFrame(t *testing.T) {
	c, h := newTestController()
	startPaused(t, c, h)

	_, err := c.Variables(context.Background(), 0, 999)
	require.Equal(t, errors.CodeInvalidFrameID, errors.CodeOf(err))
}

// TestEvaluate verifies expression evaluation in the defaulted frame.
func TestEvaluate(t *testing.T) {
	c, h := newTestController()
	startPaused(t, c, h)

	res, err := c.Evaluate(context.Background(), "a + b", 0, 0)
	require.NoError(t, err)
	require.Equal(t, "5", res.Value.Result)
	require.Equal(t, "a + b", h.lastExpr)
	require.Equal(t, 100, h.lastFrame)
	require.True(t, res.DefaultedThread)
	require.True(t, res.DefaultedFrame)
}

// TestHandleExited verifies the exit is held in Stopped until stopSession.
func TestHandleExited(t *testing.T) {
	c, h := newTestController()
	sid := startPaused(t, c, h)

	c.HandleExited(sid, 3)
	st := c.Status()
	require.Equal(t, types.SessionStateStopped, st.State)
	require.Equal(t, "exited (code 3)", st.StoppedReason)

	info, err := c.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.SessionStateIdle, info.State)
}

// TestHandleTerminated verifies termination marks Stopped without
// clobbering an earlier exit reason.
func TestHandleTerminated(t *testing.T) {
	c, h := newTestController()
	sid := startPaused(t, c, h)

	c.HandleExited(sid, 0)
	c.HandleTerminated(sid)
	require.Equal(t, "exited (code 0)", c.Status().StoppedReason)
}

// TestEvents_IgnoreForeignSession verifies events for other sessions never
// touch our state.
func TestEvents_IgnoreForeignSession(t *testing.T) {
	c, _ := newTestController()
	_, err := c.Start(context.Background(), "Run API Server")
	require.NoError(t, err)

	c.HandleStopped("ghost", 1, "breakpoint", true)
	c.HandleExited("ghost", 1)
	c.HandleOutput("ghost", "stdout", "noise")

	st := c.Status()
	require.Equal(t, types.SessionStateRunning, st.State)
	require.Empty(t, c.RecentOutput())
}

// TestHandleContinued verifies an externally observed resume.
func TestHandleContinued(t *testing.T) {
	c, h := newTestController()
	sid := startPaused(t, c, h)

	c.HandleContinued(sid, 7, true)
	st := c.Status()
	require.Equal(t, types.SessionStateRunning, st.State)
	require.Empty(t, st.StoppedReason)
}

// TestHandleOutput verifies category filtering and the bounded buffer.
func TestHandleOutput(t *testing.T) {
	c, _ := newTestController()
	res, err := c.Start(context.Background(), "Run API Server")
	require.NoError(t, err)
	sid := res.Info.SessionID

	c.HandleOutput(sid, "stdout", "out line")
	c.HandleOutput(sid, "stderr", "err line")
	c.HandleOutput(sid, "console", "console line")
	c.HandleOutput(sid, "telemetry", "dropped")
	require.Equal(t, []string{"out line", "err line", "console line"}, c.RecentOutput())

	for i := 0; i < 55; i++ {
		c.HandleOutput(sid, "stdout", fmt.Sprintf("line %d", i))
	}
	out := c.RecentOutput()
	require.Len(t, out, 50)
	require.Equal(t, "line 54", out[len(out)-1])

	// Mutating the returned slice must not reach the buffer.
	out[0] = "mutated"
	require.NotEqual(t, "mutated", c.RecentOutput()[0])
}

// TestOutputClearedOnStart verifies a new session starts with an empty
// buffer.
func TestOutputClearedOnStart(t *testing.T) {
	c, _ := newTestController()
	res, err := c.Start(context.Background(), "Run API Server")
	require.NoError(t, err)
	c.HandleOutput(res.Info.SessionID, "stdout", "old")

	_, err = c.Stop(context.Background())
	require.NoError(t, err)
	_, err = c.Start(context.Background(), "Run Worker")
	require.NoError(t, err)
	require.Empty(t, c.RecentOutput())
}

// TestConfigurations verifies the list passes through the source.
func TestConfigurations(t *testing.T) {
	c, _ := newTestController()

	configs, err := c.Configurations()
	require.NoError(t, err)
	require.Len(t, configs, 2)
	require.Equal(t, "Run API Server", configs[0].Name)
}
