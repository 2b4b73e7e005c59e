// Package debug manages the single active debug session as a state
// machine over the host's session APIs. The host owns execution; the
// controller validates transitions locally, keeps a durable state cache
// updated from host events, and never substitutes threads or frames the
// caller did not ask for.
package debug

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"idebridge/internal/errors"
	"idebridge/internal/host"
	"idebridge/pkg/types"
)

const outputBufferCap = 50

// Host is the slice of the capability provider the controller drives.
type Host interface {
	StartDebug(ctx context.Context, configuration map[string]interface{}) (string, error)
	StopDebug(ctx context.Context, sessionID string) error
	StepControl(ctx context.Context, sessionID, op string, threadID int) error
	Threads(ctx context.Context, sessionID string) ([]types.ThreadInfo, error)
	StackTrace(ctx context.Context, sessionID string, threadID int) ([]types.StackFrame, error)
	Scopes(ctx context.Context, sessionID string, frameID int) ([]types.Scope, error)
	Variables(ctx context.Context, sessionID string, variablesReference int) ([]types.Variable, error)
	Evaluate(ctx context.Context, sessionID string, frameID int, expression string) (*types.EvaluateResult, error)
}

// ConfigSource supplies launch configurations.
type ConfigSource interface {
	Configurations() ([]types.ConfigurationInfo, error)
	// StartBody returns the resolved start payload for the named
	// configuration. An empty name selects the sole configuration and
	// reports defaulted=true; several configurations with no name is a
	// validation error.
	StartBody(name string) (body map[string]interface{}, chosen types.ConfigurationInfo, defaulted bool, err error)
}

// Controller is the debug session state machine. Session mutations
// serialize behind op's write lock; read operations share its read lock so
// they never interleave with a mutation. Host events write the state
// snapshot through mu only, so an event arriving mid-mutation is never
// blocked or lost.
type Controller struct {
	host    Host
	configs ConfigSource

	op sync.RWMutex

	mu            sync.RWMutex
	seq           uint64
	sessionID     string
	state         types.SessionState
	configuration string
	startedAt     time.Time
	stoppedThread int
	stoppedReason string
	output        []string
}

// NewController creates a Controller in the Idle state.
func NewController(h Host, configs ConfigSource) *Controller {
	return &Controller{
		host:    h,
		configs: configs,
		state:   types.SessionStateIdle,
	}
}

// StartResult reports a started session and whether its configuration was
// chosen by the system rather than the caller.
type StartResult struct {
	Info                   types.SessionInfo
	DefaultedConfiguration bool
}

// ControlResult reports an execution-control operation.
type ControlResult struct {
	State           types.SessionState
	ThreadID        int
	DefaultedThread bool
}

// CallStackResult carries one thread's frames.
type CallStackResult struct {
	ThreadID        int
	DefaultedThread bool
	Frames          []types.StackFrame
}

// ScopeVariables groups one scope with its variables.
type ScopeVariables struct {
	Scope     types.Scope
	Variables []types.Variable
}

// VariablesResult carries the scopes of one frame.
type VariablesResult struct {
	ThreadID        int
	DefaultedThread bool
	FrameID         int
	DefaultedFrame  bool
	Scopes          []ScopeVariables
}

// EvalResult carries an expression evaluation.
type EvalResult struct {
	Value           types.EvaluateResult
	ThreadID        int
	DefaultedThread bool
	FrameID         int
	DefaultedFrame  bool
}

// Configurations lists the workspace's launch configurations.
func (c *Controller) Configurations() ([]types.ConfigurationInfo, error) {
	return c.configs.Configurations()
}

// Start launches a session. Legal only from Idle; any live session must be
// stopped first, never silently replaced.
func (c *Controller) Start(ctx context.Context, configName string) (*StartResult, error) {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	if c.state != types.SessionStateIdle {
		state := c.state
		c.mu.Unlock()
		return nil, errors.SessionAlreadyActive(string(state))
	}
	c.state = types.SessionStateStarting
	c.mu.Unlock()

	body, chosen, defaulted, err := c.configs.StartBody(configName)
	if err != nil {
		c.reset()
		return nil, err
	}

	sessionID, err := c.host.StartDebug(ctx, body)
	if err != nil {
		c.reset()
		return nil, err
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.state = types.SessionStateRunning
	c.configuration = chosen.Name
	c.startedAt = time.Now()
	c.stoppedThread = 0
	c.stoppedReason = ""
	c.output = nil
	info := c.infoLocked()
	c.mu.Unlock()

	return &StartResult{Info: info, DefaultedConfiguration: defaulted}, nil
}

// Stop tears the session down. Legal from any non-Idle state and always
// ends in Idle; a host error during teardown is logged, not surfaced, so
// the controller cannot get stuck holding a dead session.
func (c *Controller) Stop(ctx context.Context) (types.SessionInfo, error) {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.RLock()
	state, sessionID := c.state, c.sessionID
	c.mu.RUnlock()

	if state == types.SessionStateIdle {
		return types.SessionInfo{}, errors.NoActiveSession("stopSession")
	}
	if sessionID != "" {
		if err := c.host.StopDebug(ctx, sessionID); err != nil {
			slog.Warn("host error while stopping session, resetting anyway", "sessionId", sessionID, "error", err)
		}
	}
	c.reset()

	c.mu.RLock()
	info := c.infoLocked()
	c.mu.RUnlock()
	return info, nil
}

// Restart stops the current session and starts a new one from the same
// configuration.
func (c *Controller) Restart(ctx context.Context) (*StartResult, error) {
	c.op.Lock()

	c.mu.RLock()
	state, sessionID, configName := c.state, c.sessionID, c.configuration
	c.mu.RUnlock()

	if state == types.SessionStateIdle {
		c.op.Unlock()
		return nil, errors.NoActiveSession("restartSession")
	}
	if sessionID != "" {
		if err := c.host.StopDebug(ctx, sessionID); err != nil {
			slog.Warn("host error while stopping session for restart", "sessionId", sessionID, "error", err)
		}
	}
	c.reset()
	c.op.Unlock()

	return c.Start(ctx, configName)
}

// Status returns the current state snapshot. It waits for any in-flight
// mutation so callers observe settled state.
func (c *Controller) Status() types.SessionInfo {
	c.op.RLock()
	defer c.op.RUnlock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.infoLocked()
}

// RecentOutput returns the session's buffered program output, oldest
// first.
func (c *Controller) RecentOutput() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.output))
	copy(out, c.output)
	return out
}

// Continue resumes execution of one thread.
func (c *Controller) Continue(ctx context.Context, threadID int) (*ControlResult, error) {
	return c.control(ctx, "continueExecution", host.OpContinue, threadID, false)
}

// Pause interrupts a running thread.
func (c *Controller) Pause(ctx context.Context, threadID int) (*ControlResult, error) {
	return c.control(ctx, "pauseExecution", host.OpPause, threadID, false)
}

// StepOver executes the next line without entering calls.
func (c *Controller) StepOver(ctx context.Context, threadID int) (*ControlResult, error) {
	return c.control(ctx, "stepOver", host.OpNext, threadID, true)
}

// StepInto descends into the next call.
func (c *Controller) StepInto(ctx context.Context, threadID int) (*ControlResult, error) {
	return c.control(ctx, "stepInto", host.OpStepIn, threadID, true)
}

// StepOut runs until the current frame returns.
func (c *Controller) StepOut(ctx context.Context, threadID int) (*ControlResult, error) {
	return c.control(ctx, "stepOut", host.OpStepOut, threadID, true)
}

func (c *Controller) control(ctx context.Context, name, hostOp string, threadID int, needsPause bool) (*ControlResult, error) {
	c.op.Lock()
	defer c.op.Unlock()

	sessionID, state, err := c.requireActive(name)
	if err != nil {
		return nil, err
	}
	if needsPause && state != types.SessionStatePaused {
		return nil, errors.NotPaused(name, string(state))
	}

	thread, defaulted, err := c.resolveThread(ctx, sessionID, threadID)
	if err != nil {
		return nil, err
	}

	pre := c.snapshotSeq()
	if err := c.host.StepControl(ctx, sessionID, hostOp, thread); err != nil {
		return nil, err
	}

	// Pausing completes only when the host's stopped event lands; resume
	// verbs take effect immediately. Either way a host event that beat the
	// HTTP response wins over our optimistic transition.
	if hostOp != host.OpPause {
		c.advanceIfUnchanged(pre, types.SessionStateRunning)
	}

	c.mu.RLock()
	current := c.state
	c.mu.RUnlock()
	return &ControlResult{State: current, ThreadID: thread, DefaultedThread: defaulted}, nil
}

// CallStack fetches one thread's frames. Legal only while Paused; frames
// are never cached because any resume invalidates them.
func (c *Controller) CallStack(ctx context.Context, threadID int) (*CallStackResult, error) {
	c.op.RLock()
	defer c.op.RUnlock()

	sessionID, err := c.requirePaused("getCallStack")
	if err != nil {
		return nil, err
	}
	thread, defaulted, err := c.resolveThread(ctx, sessionID, threadID)
	if err != nil {
		return nil, err
	}
	frames, err := c.host.StackTrace(ctx, sessionID, thread)
	if err != nil {
		return nil, err
	}
	return &CallStackResult{ThreadID: thread, DefaultedThread: defaulted, Frames: frames}, nil
}

// Variables fetches the scoped variables of one frame, defaulting to the
// top frame of the most recently paused thread.
func (c *Controller) Variables(ctx context.Context, threadID, frameID int) (*VariablesResult, error) {
	c.op.RLock()
	defer c.op.RUnlock()

	sessionID, err := c.requirePaused("inspectVariables")
	if err != nil {
		return nil, err
	}
	thread, frame, threadDefaulted, frameDefaulted, err := c.resolveFrame(ctx, sessionID, threadID, frameID)
	if err != nil {
		return nil, err
	}

	scopes, err := c.host.Scopes(ctx, sessionID, frame)
	if err != nil {
		return nil, err
	}
	result := &VariablesResult{
		ThreadID:        thread,
		DefaultedThread: threadDefaulted,
		FrameID:         frame,
		DefaultedFrame:  frameDefaulted,
	}
	for _, scope := range scopes {
		vars, err := c.host.Variables(ctx, sessionID, scope.VariablesReference)
		if err != nil {
			return nil, err
		}
		result.Scopes = append(result.Scopes, ScopeVariables{Scope: scope, Variables: vars})
	}
	return result, nil
}

// Evaluate runs an expression in one frame's context, defaulting to the
// top frame of the most recently paused thread.
func (c *Controller) Evaluate(ctx context.Context, expression string, threadID, frameID int) (*EvalResult, error) {
	c.op.RLock()
	defer c.op.RUnlock()

	sessionID, err := c.requirePaused("evaluateExpression")
	if err != nil {
		return nil, err
	}
	thread, frame, threadDefaulted, frameDefaulted, err := c.resolveFrame(ctx, sessionID, threadID, frameID)
	if err != nil {
		return nil, err
	}
	value, err := c.host.Evaluate(ctx, sessionID, frame, expression)
	if err != nil {
		return nil, err
	}
	return &EvalResult{
		Value:           *value,
		ThreadID:        thread,
		DefaultedThread: threadDefaulted,
		FrameID:         frame,
		DefaultedFrame:  frameDefaulted,
	}, nil
}

// --- Host event handlers (wired to the event listener) ---

// HandleStopped records that a thread stopped (breakpoint, step, pause).
func (c *Controller) HandleStopped(sessionID string, threadID int, reason string, allThreads bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID != c.sessionID {
		return
	}
	c.seq++
	c.state = types.SessionStatePaused
	c.stoppedReason = reason
	if threadID > 0 {
		c.stoppedThread = threadID
	}
}

// HandleContinued records that execution resumed outside our own calls.
func (c *Controller) HandleContinued(sessionID string, threadID int, allThreads bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID != c.sessionID {
		return
	}
	c.seq++
	c.state = types.SessionStateRunning
	c.stoppedReason = ""
}

// HandleExited records the debuggee's exit. The session stays Stopped
// until stopSession so the exit is observable at the next tool call.
func (c *Controller) HandleExited(sessionID string, exitCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID != c.sessionID {
		return
	}
	c.seq++
	c.state = types.SessionStateStopped
	c.stoppedReason = fmt.Sprintf("exited (code %d)", exitCode)
}

// HandleTerminated records that the debug session ended host-side.
func (c *Controller) HandleTerminated(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID != c.sessionID {
		return
	}
	c.seq++
	if c.state != types.SessionStateStopped {
		c.state = types.SessionStateStopped
		c.stoppedReason = "terminated"
	}
}

// HandleOutput buffers debuggee output for sessionStatus.
func (c *Controller) HandleOutput(sessionID string, category, output string) {
	if category != "stdout" && category != "stderr" && category != "console" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID != c.sessionID {
		return
	}
	c.output = append(c.output, output)
	if len(c.output) > outputBufferCap {
		c.output = c.output[len(c.output)-outputBufferCap:]
	}
}

// --- internals ---

func (c *Controller) infoLocked() types.SessionInfo {
	return types.SessionInfo{
		SessionID:     c.sessionID,
		State:         c.state,
		Configuration: c.configuration,
		ActiveThread:  c.stoppedThread,
		StoppedReason: c.stoppedReason,
		StartedAt:     c.startedAt,
	}
}

func (c *Controller) reset() {
	c.mu.Lock()
	c.seq++
	c.sessionID = ""
	c.state = types.SessionStateIdle
	c.configuration = ""
	c.startedAt = time.Time{}
	c.stoppedThread = 0
	c.stoppedReason = ""
	c.output = nil
	c.mu.Unlock()
}

func (c *Controller) snapshotSeq() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seq
}

// advanceIfUnchanged applies an optimistic transition unless a host event
// already moved the state while the host call was in flight.
func (c *Controller) advanceIfUnchanged(pre uint64, state types.SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq != pre {
		return
	}
	c.state = state
	c.stoppedReason = ""
}

func (c *Controller) requireActive(op string) (string, types.SessionState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == types.SessionStateIdle || c.state == types.SessionStateStopped {
		return "", c.state, errors.NoActiveSession(op)
	}
	return c.sessionID, c.state, nil
}

func (c *Controller) requirePaused(op string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.state {
	case types.SessionStatePaused:
		return c.sessionID, nil
	case types.SessionStateIdle, types.SessionStateStopped:
		return "", errors.NoActiveSession(op)
	default:
		return "", errors.NotPaused(op, string(c.state))
	}
}

// resolveThread validates an explicit thread id against the host's live
// threads, or defaults to the most recently paused thread. A stale id
// fails rather than being swapped for another thread.
func (c *Controller) resolveThread(ctx context.Context, sessionID string, requested int) (int, bool, error) {
	if requested != 0 {
		threads, err := c.host.Threads(ctx, sessionID)
		if err != nil {
			return 0, false, err
		}
		known := make([]int, len(threads))
		for i, t := range threads {
			known[i] = t.ID
			if t.ID == requested {
				return requested, false, nil
			}
		}
		return 0, false, errors.InvalidThreadID(requested, known)
	}

	c.mu.RLock()
	last := c.stoppedThread
	c.mu.RUnlock()
	if last != 0 {
		return last, true, nil
	}

	threads, err := c.host.Threads(ctx, sessionID)
	if err != nil {
		return 0, false, err
	}
	if len(threads) == 0 {
		return 0, false, errors.Wrap(errors.CodeHostError, "the session reports no threads", "", nil)
	}
	return threads[0].ID, true, nil
}

// resolveFrame resolves thread and frame, defaulting to the paused
// thread's top frame. An explicit frame id must belong to the resolved
// thread's current stack.
func (c *Controller) resolveFrame(ctx context.Context, sessionID string, threadID, frameID int) (thread, frame int, threadDefaulted, frameDefaulted bool, err error) {
	thread, threadDefaulted, err = c.resolveThread(ctx, sessionID, threadID)
	if err != nil {
		return 0, 0, false, false, err
	}
	frames, err := c.host.StackTrace(ctx, sessionID, thread)
	if err != nil {
		return 0, 0, false, false, err
	}
	if frameID == 0 {
		if len(frames) == 0 {
			return 0, 0, false, false, errors.Wrap(errors.CodeHostError,
				fmt.Sprintf("thread %d has no stack frames", thread), "", nil)
		}
		return thread, frames[0].ID, threadDefaulted, true, nil
	}
	for _, f := range frames {
		if f.ID == frameID {
			return thread, frameID, threadDefaulted, false, nil
		}
	}
	return 0, 0, false, false, errors.InvalidFrameID(frameID)
}
