// Package mcp provides the Model Context Protocol (MCP) server implementation.
//
// This package exposes the editor host's language intelligence and debugging
// capabilities as MCP tools for AI assistants and other MCP clients. Every
// tool accepts an optional format selector ('compact' positional arrays,
// the default, or 'detailed' named objects). The 25-tool API:
//
// Language intelligence (always available):
//   - hover, definition, references: position or symbol queries
//   - callHierarchy: incoming/outgoing calls of a symbol
//   - symbolSearch: resolve a name to unique/ambiguous/not-found
//   - workspaceSymbols: workspace-wide symbol scan with summary
//   - diagnostics: host-reported problems with severity counts
//
// Session inspection (always available):
//   - listConfigurations, sessionStatus, listBreakpoints
//   - getCallStack, inspectVariables
//
// Mutation and control (full mode only):
//   - refactor_rename
//   - setBreakpoint, toggleBreakpoint, clearBreakpoints
//   - startSession, stopSession, restartSession
//   - continueExecution, pauseExecution, stepOver, stepInto, stepOut
//   - evaluateExpression
package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"idebridge/internal/breakpoints"
	"idebridge/internal/config"
	"idebridge/internal/debug"
	"idebridge/internal/host"
	"idebridge/internal/launchconfig"
	"idebridge/internal/symbols"
	"idebridge/internal/version"
	"idebridge/pkg/types"
)

// languageHost is the slice of the capability provider the language tools
// query directly. Symbol lookups go through the resolver and its cache
// instead.
type languageHost interface {
	Hover(ctx context.Context, uri string, line, column int) (*types.HoverInfo, error)
	Definition(ctx context.Context, uri string, line, column int) ([]types.Location, error)
	References(ctx context.Context, uri string, line, column int, includeDeclaration bool) ([]types.Location, error)
	CallHierarchy(ctx context.Context, uri string, line, column int, direction string) ([]types.CallHierarchyItem, error)
	Diagnostics(ctx context.Context, uri string) ([]types.Diagnostic, error)
	Rename(ctx context.Context, uri string, line, column int, newName string) (*types.RenameResult, error)
}

// Server wraps the MCP server with the bridge's tool surface.
type Server struct {
	mcpServer   *server.MCPServer
	cfg         *config.Config
	lang        languageHost
	cache       *symbols.Cache
	resolver    *symbols.Resolver
	breakpoints *breakpoints.Manager
	controller  *debug.Controller
}

// NewServer wires the component stack against the configured host and
// registers the tools the configured mode allows.
func NewServer(cfg *config.Config) *Server {
	client := host.NewClient(
		cfg.Host.BaseURL(),
		cfg.Host.EventsURL(),
		host.WithTimeout(time.Duration(cfg.Host.TimeoutSeconds)*time.Second),
		host.WithDialRetries(cfg.Host.DialRetries, time.Duration(cfg.Host.DialRetryMs)*time.Millisecond),
	)

	guard := symbols.NewGuard(client,
		cfg.ColdStart.MaxAttempts,
		time.Duration(cfg.ColdStart.InitialDelayMs)*time.Millisecond,
		time.Duration(cfg.ColdStart.MaxDelayMs)*time.Millisecond,
	)
	cache := symbols.NewCache(guard, 0)
	resolver := symbols.NewResolver(cache)

	mcpServer := server.NewMCPServer(
		"idebridge",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s := &Server{
		mcpServer:   mcpServer,
		cfg:         cfg,
		lang:        client,
		cache:       cache,
		resolver:    resolver,
		breakpoints: breakpoints.NewManager(client, resolver),
		controller:  debug.NewController(client, launchconfig.NewSource(cfg.Workspace)),
	}

	s.registerTools()

	return s
}

// StartEventListener subscribes to the host's session-change stream and
// feeds it into the session state cache, so events arriving between two
// tool calls are visible at the next call. Returns after spawning the
// listener goroutine; the stream reconnects on its own until ctx ends.
func (s *Server) StartEventListener(ctx context.Context) {
	listener := host.NewEventListener(s.cfg.Host.EventsURL(), host.EventHandlers{
		OnStopped:    s.controller.HandleStopped,
		OnContinued:  s.controller.HandleContinued,
		OnExited:     s.controller.HandleExited,
		OnTerminated: s.controller.HandleTerminated,
		OnOutput:     s.controller.HandleOutput,
		// Threads and breakpoints can change through the editor UI behind
		// our back; the bridge re-reads the host on demand, so these only
		// leave a trace in the log.
		OnThread: func(sessionID string, threadID int, reason string) {
			slog.Debug("host thread event", "sessionId", sessionID, "threadId", threadID, "reason", reason)
		},
		OnBreakpoint: func(sessionID string, reason string, bp types.Breakpoint) {
			slog.Debug("host breakpoint change", "sessionId", sessionID, "reason", reason, "file", bp.File, "line", bp.Line)
		},
	})
	go func() {
		_ = listener.Listen(ctx)
	}()
}

// ServeStdio starts the server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Close stops any active debug session. Best effort; the host owns the
// session and tears it down on its own if the bridge dies first.
func (s *Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.controller.Stop(ctx); err != nil {
		slog.Debug("no session to stop on shutdown", "error", err)
	}
}
