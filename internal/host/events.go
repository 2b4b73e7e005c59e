package host

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/go-dap"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"idebridge/pkg/types"
)

const (
	reconnectInitialDelay = 500 * time.Millisecond
	reconnectMaxDelay     = 10 * time.Second
)

// EventHandlers receives host-pushed session changes. Every field is
// optional; nil handlers are skipped. Each frame carries the host session
// id it belongs to, so consumers can ignore sessions they did not start.
type EventHandlers struct {
	OnStopped    func(sessionID string, threadID int, reason string, allThreads bool)
	OnContinued  func(sessionID string, threadID int, allThreads bool)
	OnExited     func(sessionID string, exitCode int)
	OnTerminated func(sessionID string)
	OnThread     func(sessionID string, threadID int, reason string)
	OnBreakpoint func(sessionID string, reason string, bp types.Breakpoint)
	OnOutput     func(sessionID string, category, output string)
}

// EventListener maintains a WebSocket subscription to the host's event
// endpoint. Frames are DAP event messages with a top-level sessionId added
// by the host.
type EventListener struct {
	url      string
	handlers EventHandlers
}

// NewEventListener creates a listener for the given ws:// endpoint.
func NewEventListener(url string, handlers EventHandlers) *EventListener {
	return &EventListener{url: url, handlers: handlers}
}

// Listen connects and dispatches events until ctx is cancelled. Connection
// loss triggers reconnection with doubling backoff; the host restarting
// must not kill the bridge.
func (l *EventListener) Listen(ctx context.Context) error {
	delay := reconnectInitialDelay
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, nil)
		if err != nil {
			slog.Debug("event stream dial failed", "url", l.url, "error", err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			if delay *= 2; delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		slog.Debug("event stream connected", "url", l.url)
		delay = reconnectInitialDelay
		l.readFrames(ctx, conn)
		conn.Close()
	}
}

// readFrames pumps frames from one connection until it breaks or ctx ends.
func (l *EventListener) readFrames(ctx context.Context, conn *websocket.Conn) {
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-closed:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Debug("event stream closed", "error", err)
			}
			return
		}
		l.dispatch(data)
	}
}

// dispatch decodes one frame and routes it to the matching handler.
// Non-event frames and unknown event kinds are ignored.
func (l *EventListener) dispatch(data []byte) {
	if gjson.GetBytes(data, "type").String() != "event" {
		return
	}
	sessionID := gjson.GetBytes(data, "sessionId").String()

	msg, err := dap.DecodeProtocolMessage(data)
	if err != nil {
		slog.Debug("undecodable event frame", "error", err)
		return
	}

	switch ev := msg.(type) {
	case *dap.StoppedEvent:
		if l.handlers.OnStopped != nil {
			l.handlers.OnStopped(sessionID, ev.Body.ThreadId, ev.Body.Reason, ev.Body.AllThreadsStopped)
		}
	case *dap.ContinuedEvent:
		if l.handlers.OnContinued != nil {
			l.handlers.OnContinued(sessionID, ev.Body.ThreadId, ev.Body.AllThreadsContinued)
		}
	case *dap.ExitedEvent:
		if l.handlers.OnExited != nil {
			l.handlers.OnExited(sessionID, ev.Body.ExitCode)
		}
	case *dap.TerminatedEvent:
		if l.handlers.OnTerminated != nil {
			l.handlers.OnTerminated(sessionID)
		}
	case *dap.ThreadEvent:
		if l.handlers.OnThread != nil {
			l.handlers.OnThread(sessionID, ev.Body.ThreadId, ev.Body.Reason)
		}
	case *dap.BreakpointEvent:
		if l.handlers.OnBreakpoint != nil {
			bp := types.Breakpoint{
				ID:       ev.Body.Breakpoint.Id,
				Line:     ev.Body.Breakpoint.Line,
				Verified: ev.Body.Breakpoint.Verified,
				// DAP breakpoint events carry no enabled flag.
				Enabled: true,
			}
			if ev.Body.Breakpoint.Source != nil {
				bp.File = ev.Body.Breakpoint.Source.Path
			}
			l.handlers.OnBreakpoint(sessionID, ev.Body.Reason, bp)
		}
	case *dap.OutputEvent:
		if l.handlers.OnOutput != nil {
			l.handlers.OnOutput(sessionID, ev.Body.Category, ev.Body.Output)
		}
	}
}
