package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"idebridge/internal/breakpoints"
	"idebridge/internal/debug"
	"idebridge/internal/errors"
	"idebridge/internal/format"
	"idebridge/internal/host"
	"idebridge/internal/symbols"
	"idebridge/pkg/types"
)

// Language Intelligence Handlers

func (s *Server) handleHover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	pos, amb, err := s.resolvePosition(ctx, request)
	if err != nil {
		return toolError(err)
	}
	if amb != nil {
		return ambiguousResult(amb.name, amb.candidates, mode)
	}

	info, err := s.lang.Hover(ctx, pos.uri, pos.line, pos.column)
	if err != nil {
		return toolError(err)
	}

	return jsonResult(map[string]interface{}{
		"hover": format.Hover(*info, mode),
	})
}

func (s *Server) handleDefinition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	pos, amb, err := s.resolvePosition(ctx, request)
	if err != nil {
		return toolError(err)
	}
	if amb != nil {
		return ambiguousResult(amb.name, amb.candidates, mode)
	}

	locs, err := s.lang.Definition(ctx, pos.uri, pos.line, pos.column)
	if err != nil {
		return toolError(err)
	}

	return jsonResult(map[string]interface{}{
		"definitions": format.Locations(locs, mode),
	})
}

func (s *Server) handleReferences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	pos, amb, err := s.resolvePosition(ctx, request)
	if err != nil {
		return toolError(err)
	}
	if amb != nil {
		return ambiguousResult(amb.name, amb.candidates, mode)
	}

	includeDeclaration := request.GetBool("includeDeclaration", true)
	locs, err := s.lang.References(ctx, pos.uri, pos.line, pos.column, includeDeclaration)
	if err != nil {
		return toolError(err)
	}

	return jsonResult(map[string]interface{}{
		"references": format.Locations(locs, mode),
		"count":      len(locs),
	})
}

func (s *Server) handleCallHierarchy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	symbol, err := request.RequireString("symbol")
	if err != nil {
		return toolError(errors.MissingParameter("symbol",
			"Name the function or method to analyze, e.g. 'process_order' or 'Calculator.add'."))
	}

	direction := host.DirectionIncoming
	if v, err := request.RequireString("direction"); err == nil && v != "" {
		if v != host.DirectionIncoming && v != host.DirectionOutgoing {
			return toolError(errors.InvalidParameter("direction", v, "'incoming' or 'outgoing'"))
		}
		direction = v
	}

	res, err := s.resolver.Resolve(ctx, symbol, symbols.ResolveOptions{})
	if err != nil {
		return toolError(err)
	}
	switch res.Kind {
	case types.ResolutionAmbiguous:
		return ambiguousResult(symbol, res.Candidates, mode)
	case types.ResolutionNotFound:
		return toolError(errors.SymbolNotFound(symbol, res.Suggestions))
	}

	loc := res.Symbol.Location
	items, err := s.lang.CallHierarchy(ctx, loc.URI, loc.StartLine, loc.StartCol, direction)
	if err != nil {
		return toolError(err)
	}

	return jsonResult(map[string]interface{}{
		"symbol":    res.Symbol.FullName,
		"direction": direction,
		"items":     format.CallItems(items, mode),
	})
}

func (s *Server) handleSymbolSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	query, err := request.RequireString("query")
	if err != nil {
		return toolError(errors.MissingParameter("query",
			"Name to resolve: a bare identifier like 'add' or a dotted path like 'Calculator.add'."))
	}

	opts := symbols.ResolveOptions{URI: stringArg(request, "uri")}
	if kindStr := stringArg(request, "kind"); kindStr != "" {
		kind, ok := types.ParseSymbolKind(kindStr)
		if !ok {
			return toolError(errors.InvalidParameter("kind", kindStr,
				"a symbol kind such as 'function', 'method', 'class', or 'variable'"))
		}
		opts.Kind = kind
	}

	res, err := s.resolver.Resolve(ctx, query, opts)
	if err != nil {
		return toolError(err)
	}

	switch res.Kind {
	case types.ResolutionUnique:
		return jsonResult(map[string]interface{}{
			"resolution": string(types.ResolutionUnique),
			"symbol":     format.Symbol(*res.Symbol, mode),
		})
	case types.ResolutionAmbiguous:
		return jsonResult(map[string]interface{}{
			"resolution": string(types.ResolutionAmbiguous),
			"candidates": format.Candidates(res.Candidates, mode),
		})
	default:
		return toolError(errors.SymbolNotFound(query, res.Suggestions))
	}
}

func (s *Server) handleWorkspaceSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}

	pattern := stringArg(request, "filePattern")
	maxFiles := intArg(request, "maxFiles", 50)
	if maxFiles < 1 {
		return toolError(errors.InvalidParameter("maxFiles", maxFiles, "a positive file count"))
	}

	var exclude []string
	if raw := stringArg(request, "exclude"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &exclude); err != nil {
			return toolError(errors.InvalidJSON("exclude", err, `["**/node_modules/**", "**/*_test.py"]`))
		}
	}

	snap, err := s.resolver.WorkspaceSnapshot(ctx, pattern, maxFiles, exclude)
	if err != nil {
		return toolError(err)
	}

	return jsonResult(format.Workspace(snap.Order, snap.Files, mode))
}

func (s *Server) handleDiagnostics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}

	diags, err := s.lang.Diagnostics(ctx, stringArg(request, "file"))
	if err != nil {
		return toolError(err)
	}

	byFile := make(map[string]interface{})
	counts := make(map[types.DiagnosticSeverity]int)
	for _, d := range diags {
		rows, _ := byFile[d.File].([]interface{})
		byFile[d.File] = append(rows, format.Diagnostic(d, mode))
		counts[d.Severity]++
	}

	return jsonResult(map[string]interface{}{
		"summary": map[string]interface{}{
			"total":   len(diags),
			"error":   counts[types.SeverityError],
			"warning": counts[types.SeverityWarning],
			"info":    counts[types.SeverityInfo],
			"hint":    counts[types.SeverityHint],
		},
		"files": byFile,
	})
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (s *Server) handleRefactorRename(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	symbol, err := request.RequireString("symbol")
	if err != nil {
		return toolError(errors.MissingParameter("symbol", "Name the symbol to rename."))
	}
	newName, err := request.RequireString("newName")
	if err != nil {
		return toolError(errors.MissingParameter("newName", "Provide the new identifier."))
	}
	if !identifierRe.MatchString(newName) {
		return toolError(errors.InvalidParameter("newName", newName,
			"a valid identifier (letters, digits, underscore, not starting with a digit)"))
	}

	res, err := s.resolver.Resolve(ctx, symbol, symbols.ResolveOptions{})
	if err != nil {
		return toolError(err)
	}
	switch res.Kind {
	case types.ResolutionAmbiguous:
		return ambiguousResult(symbol, res.Candidates, mode)
	case types.ResolutionNotFound:
		return toolError(errors.SymbolNotFound(symbol, res.Suggestions))
	}

	loc := res.Symbol.Location
	result, err := s.lang.Rename(ctx, loc.URI, loc.StartLine, loc.StartCol, newName)
	if err != nil {
		return toolError(err)
	}

	// Symbol locations moved; cached document snapshots are stale now.
	s.cache.Reset()

	return jsonResult(format.Rename(*result))
}

// Session Inspection Handlers

func (s *Server) handleListConfigurations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	configs, err := s.controller.Configurations()
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]interface{}{
		"configurations": format.Configurations(configs, mode),
	})
}

func (s *Server) handleSessionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	payload := map[string]interface{}{
		"session": format.Session(s.controller.Status(), mode),
	}
	if mode == format.Detailed {
		payload["recentOutput"] = s.controller.RecentOutput()
	}
	return jsonResult(payload)
}

func (s *Server) handleListBreakpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	bps, err := s.breakpoints.List(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]interface{}{
		"breakpoints": format.Breakpoints(bps, mode),
		"count":       len(bps),
	})
}

func (s *Server) handleGetCallStack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	maxDepth := intArg(request, "maxDepth", 20)
	if maxDepth < 1 {
		return toolError(errors.InvalidParameter("maxDepth", maxDepth, "a positive frame count"))
	}

	result, err := s.controller.CallStack(ctx, intArg(request, "threadId", 0))
	if err != nil {
		return toolError(err)
	}

	frames := result.Frames
	if len(frames) > maxDepth {
		frames = frames[:maxDepth]
	}

	return jsonResult(map[string]interface{}{
		"threadId":        result.ThreadID,
		"defaultedThread": result.DefaultedThread,
		"frames":          format.Frames(frames, mode),
		"totalFrames":     len(result.Frames),
	})
}

func (s *Server) handleInspectVariables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}

	result, err := s.controller.Variables(ctx, intArg(request, "threadId", 0), intArg(request, "frameId", 0))
	if err != nil {
		return toolError(err)
	}

	scopes := result.Scopes
	if filter := stringArg(request, "scope"); filter != "" {
		var kept []debug.ScopeVariables
		names := make([]string, len(scopes))
		for i, sv := range scopes {
			names[i] = sv.Scope.Name
			if strings.EqualFold(sv.Scope.Name, filter) {
				kept = append(kept, sv)
			}
		}
		if len(kept) == 0 {
			return toolError(errors.InvalidParameter("scope", filter,
				fmt.Sprintf("one of the frame's scopes: %s", strings.Join(names, ", "))))
		}
		scopes = kept
	}

	rows := make([]interface{}, len(scopes))
	for i, sv := range scopes {
		rows[i] = format.Scope(sv.Scope, sv.Variables, mode)
	}

	return jsonResult(map[string]interface{}{
		"threadId":        result.ThreadID,
		"defaultedThread": result.DefaultedThread,
		"frameId":         result.FrameID,
		"defaultedFrame":  result.DefaultedFrame,
		"scopes":          rows,
	})
}

// Session Control Handlers

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	result, err := s.controller.Start(ctx, stringArg(request, "configuration"))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]interface{}{
		"session":                format.Session(result.Info, mode),
		"defaultedConfiguration": result.DefaultedConfiguration,
	})
}

func (s *Server) handleStopSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	info, err := s.controller.Stop(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]interface{}{
		"stopped": true,
		"session": format.Session(info, mode),
	})
}

func (s *Server) handleRestartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	result, err := s.controller.Restart(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]interface{}{
		"restarted":              true,
		"session":                format.Session(result.Info, mode),
		"defaultedConfiguration": result.DefaultedConfiguration,
	})
}

// Breakpoint Handlers

func (s *Server) handleSetBreakpoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	loc, cond := breakpointArgs(request)
	result, err := s.breakpoints.Set(ctx, loc, cond)
	if err != nil {
		return toolError(err)
	}
	if len(result.Candidates) > 0 {
		return ambiguousResult(loc.Symbol, result.Candidates, mode)
	}
	return jsonResult(map[string]interface{}{
		"action":     string(result.Action),
		"breakpoint": format.Breakpoint(*result.Breakpoint, mode),
	})
}

func (s *Server) handleToggleBreakpoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	loc, cond := breakpointArgs(request)
	result, err := s.breakpoints.Toggle(ctx, loc, cond)
	if err != nil {
		return toolError(err)
	}
	if len(result.Candidates) > 0 {
		return ambiguousResult(loc.Symbol, result.Candidates, mode)
	}
	return jsonResult(map[string]interface{}{
		"action":     string(result.Action),
		"breakpoint": format.Breakpoint(*result.Breakpoint, mode),
	})
}

func (s *Server) handleClearBreakpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := modeFrom(request); err != nil {
		return toolError(err)
	}
	removed, err := s.breakpoints.Clear(ctx, stringArg(request, "file"))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]interface{}{
		"cleared": removed,
	})
}

// Execution Control Handlers

func (s *Server) handleContinueExecution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlCall(request, func(threadID int) (*debug.ControlResult, error) {
		return s.controller.Continue(ctx, threadID)
	})
}

func (s *Server) handlePauseExecution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlCall(request, func(threadID int) (*debug.ControlResult, error) {
		return s.controller.Pause(ctx, threadID)
	})
}

func (s *Server) handleStepOver(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlCall(request, func(threadID int) (*debug.ControlResult, error) {
		return s.controller.StepOver(ctx, threadID)
	})
}

func (s *Server) handleStepInto(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlCall(request, func(threadID int) (*debug.ControlResult, error) {
		return s.controller.StepInto(ctx, threadID)
	})
}

func (s *Server) handleStepOut(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlCall(request, func(threadID int) (*debug.ControlResult, error) {
		return s.controller.StepOut(ctx, threadID)
	})
}

func (s *Server) handleEvaluateExpression(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := modeFrom(request)
	if err != nil {
		return toolError(err)
	}
	expression, err := request.RequireString("expression")
	if err != nil {
		return toolError(errors.MissingParameter("expression",
			"Provide the expression to evaluate, e.g. 'len(items)' or 'calc.memory'."))
	}

	result, err := s.controller.Evaluate(ctx, expression,
		intArg(request, "threadId", 0), intArg(request, "frameId", 0))
	if err != nil {
		return toolError(err)
	}

	return jsonResult(map[string]interface{}{
		"result":          format.Evaluate(result.Value, mode),
		"threadId":        result.ThreadID,
		"defaultedThread": result.DefaultedThread,
		"frameId":         result.FrameID,
		"defaultedFrame":  result.DefaultedFrame,
	})
}

// --- Shared argument plumbing ---

// position is a resolved host query position, 1-based.
type position struct {
	uri    string
	line   int
	column int
}

// ambiguity carries an unresolved multi-candidate outcome up to the
// handler that has to render it.
type ambiguity struct {
	name       string
	candidates []types.ResolutionCandidate
}

// resolvePosition turns the shared locator arguments (symbol, or file with
// line and column) into a host query position. Exactly one locator form
// must be present.
func (s *Server) resolvePosition(ctx context.Context, request mcp.CallToolRequest) (position, *ambiguity, error) {
	symbol := stringArg(request, "symbol")
	file := stringArg(request, "file")

	switch {
	case symbol != "" && file != "":
		return position{}, nil, errors.Validation(
			"pass either a symbol or a file position, not both",
			"Use symbol to look up by name, or file with line and column for an exact position.").
			WithDetails("reason", "ConflictingParameters")

	case symbol != "":
		res, err := s.resolver.Resolve(ctx, symbol, symbols.ResolveOptions{})
		if err != nil {
			return position{}, nil, err
		}
		switch res.Kind {
		case types.ResolutionUnique:
			loc := res.Symbol.Location
			return position{uri: loc.URI, line: loc.StartLine, column: loc.StartCol}, nil, nil
		case types.ResolutionAmbiguous:
			return position{}, &ambiguity{name: symbol, candidates: res.Candidates}, nil
		default:
			return position{}, nil, errors.SymbolNotFound(symbol, res.Suggestions)
		}

	case file != "":
		line, err := request.RequireFloat("line")
		if err != nil {
			return position{}, nil, errors.MissingParameter("line",
				"A 1-based line number is required together with file.")
		}
		column, err := request.RequireFloat("column")
		if err != nil {
			return position{}, nil, errors.MissingParameter("column",
				"A 1-based column number is required together with file.")
		}
		if int(line) < 1 {
			return position{}, nil, errors.InvalidParameter("line", line, "a 1-based line number")
		}
		if int(column) < 1 {
			return position{}, nil, errors.InvalidParameter("column", column, "a 1-based column number")
		}
		return position{uri: file, line: int(line), column: int(column)}, nil, nil

	default:
		return position{}, nil, errors.Validation(
			"a locator is required: pass symbol, or file with line and column",
			"Use symbol for a name lookup, or file, line and column for an exact position.").
			WithDetails("reason", "MissingRequiredParameter")
	}
}

// breakpointArgs reads the shared breakpoint locator and condition
// arguments. Locator validation happens in the breakpoint manager.
func breakpointArgs(request mcp.CallToolRequest) (breakpoints.Locator, breakpoints.Conditions) {
	loc := breakpoints.Locator{
		Symbol: stringArg(request, "symbol"),
		File:   stringArg(request, "file"),
		Line:   intArg(request, "line", 0),
	}
	cond := breakpoints.Conditions{
		Condition:    stringArg(request, "condition"),
		HitCondition: stringArg(request, "hitCondition"),
		LogMessage:   stringArg(request, "logMessage"),
	}
	return loc, cond
}

// controlCall runs one execution-control operation with the shared
// threadId argument and response shape. The defaulted flag is always
// present so callers can tell their choice from the system's.
func (s *Server) controlCall(request mcp.CallToolRequest, op func(threadID int) (*debug.ControlResult, error)) (*mcp.CallToolResult, error) {
	if _, err := modeFrom(request); err != nil {
		return toolError(err)
	}
	result, err := op(intArg(request, "threadId", 0))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]interface{}{
		"state":           string(result.State),
		"threadId":        result.ThreadID,
		"defaultedThread": result.DefaultedThread,
	})
}

// modeFrom parses the optional format selector shared by every tool.
func modeFrom(request mcp.CallToolRequest) (format.Mode, error) {
	raw, _ := request.RequireString("format")
	return format.ParseMode(raw)
}

// stringArg reads an optional string argument, empty when absent.
func stringArg(request mcp.CallToolRequest, name string) string {
	v, _ := request.RequireString(name)
	return v
}

// intArg reads an optional numeric argument, def when absent.
func intArg(request mcp.CallToolRequest, name string, def int) int {
	if v, err := request.RequireFloat(name); err == nil {
		return int(v)
	}
	return def
}

// toolError renders a structured error as the tool's JSON error payload:
// {error, message, hint?, suggestions?}. The error field carries the
// taxonomy code so callers branch on it without parsing prose.
func toolError(err error) (*mcp.CallToolResult, error) {
	be := errors.FromError(err)
	payload := map[string]interface{}{
		"error":   string(be.Code),
		"message": be.Message,
	}
	if be.Hint != "" {
		payload["hint"] = be.Hint
	}
	if suggestions, ok := be.Details["suggestions"]; ok {
		payload["suggestions"] = suggestions
	}
	data, merr := json.Marshal(payload)
	if merr != nil {
		return mcp.NewToolResultError(be.Error()), nil
	}
	return mcp.NewToolResultError(string(data)), nil
}

// ambiguousResult reports an ambiguous symbol with its full candidate
// list. Nothing has been mutated when this is returned; the caller picks a
// candidate and retries with a qualified name.
func ambiguousResult(name string, cands []types.ResolutionCandidate, mode format.Mode) (*mcp.CallToolResult, error) {
	be := errors.AmbiguousSymbol(name, len(cands))
	payload := map[string]interface{}{
		"error":      string(be.Code),
		"message":    be.Message,
		"hint":       be.Hint,
		"candidates": format.Candidates(cands, mode),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(be.Error()), nil
	}
	return mcp.NewToolResultError(string(data)), nil
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
