// Package host implements the capability provider: the HTTP/WebSocket hop
// to the editor host process that owns language intelligence and debugging.
//
// The host is the single source of truth for symbols, breakpoints, and
// session state. This package only transports and converts; it caches
// nothing. Two wire conventions meet here: language endpoints follow LSP
// conventions (0-based lines and columns), debug endpoints follow DAP
// conventions (1-based). Everything leaving this package uses 1-based
// positions.
package host

import (
	"context"

	"idebridge/pkg/types"
)

// Provider is the narrow interface through which the bridge queries and
// mutates host state. Implemented by Client; faked in tests.
type Provider interface {
	// Language intelligence
	DocumentSymbols(ctx context.Context, uri string) ([]types.SymbolRecord, error)
	WorkspaceFiles(ctx context.Context, pattern string, maxFiles int, exclude []string) ([]string, error)
	Hover(ctx context.Context, uri string, line, column int) (*types.HoverInfo, error)
	Definition(ctx context.Context, uri string, line, column int) ([]types.Location, error)
	References(ctx context.Context, uri string, line, column int, includeDeclaration bool) ([]types.Location, error)
	CallHierarchy(ctx context.Context, uri string, line, column int, direction string) ([]types.CallHierarchyItem, error)
	Diagnostics(ctx context.Context, uri string) ([]types.Diagnostic, error)
	Rename(ctx context.Context, uri string, line, column int, newName string) (*types.RenameResult, error)

	// Breakpoints. SetBreakpoints replaces the full breakpoint set for one
	// file, mirroring the host's DAP semantics.
	SetBreakpoints(ctx context.Context, path string, specs []BreakpointSpec) ([]types.Breakpoint, error)
	ListBreakpoints(ctx context.Context) ([]types.Breakpoint, error)
	ClearBreakpoints(ctx context.Context, path string) (int, error)

	// Debug session control
	StartDebug(ctx context.Context, configuration map[string]interface{}) (string, error)
	StopDebug(ctx context.Context, sessionID string) error
	StepControl(ctx context.Context, sessionID, op string, threadID int) error
	Threads(ctx context.Context, sessionID string) ([]types.ThreadInfo, error)
	StackTrace(ctx context.Context, sessionID string, threadID int) ([]types.StackFrame, error)
	Scopes(ctx context.Context, sessionID string, frameID int) ([]types.Scope, error)
	Variables(ctx context.Context, sessionID string, variablesReference int) ([]types.Variable, error)
	Evaluate(ctx context.Context, sessionID string, frameID int, expression string) (*types.EvaluateResult, error)
}

// Step operations accepted by StepControl. These are the host's own verbs;
// the DAP names are kept rather than invented ones.
const (
	OpContinue = "continue"
	OpPause    = "pause"
	OpNext     = "next"
	OpStepIn   = "stepIn"
	OpStepOut  = "stepOut"
)

// Call hierarchy directions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// BreakpointSpec is one requested breakpoint within a file, in DAP source
// breakpoint form (1-based line).
type BreakpointSpec struct {
	Line         int    `json:"line"`
	Condition    string `json:"condition,omitempty"`
	HitCondition string `json:"hitCondition,omitempty"`
	LogMessage   string `json:"logMessage,omitempty"`
}
