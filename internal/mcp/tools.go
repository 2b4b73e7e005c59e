package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the bridge's 25-tool API
func (s *Server) registerTools() {
	// Language intelligence (7 tools - both modes)
	s.registerHover()
	s.registerDefinition()
	s.registerReferences()
	s.registerCallHierarchy()
	s.registerSymbolSearch()
	s.registerWorkspaceSymbols()
	s.registerDiagnostics()

	// Session inspection (5 tools - both modes)
	s.registerListConfigurations()
	s.registerSessionStatus()
	s.registerListBreakpoints()
	s.registerGetCallStack()
	s.registerInspectVariables()

	// Mutation and control (13 tools - full mode only)
	if s.cfg.CanUseControlTools() {
		s.registerRefactorRename()
		s.registerSetBreakpoint()
		s.registerToggleBreakpoint()
		s.registerClearBreakpoints()
		s.registerStartSession()
		s.registerStopSession()
		s.registerRestartSession()
		s.registerContinueExecution()
		s.registerPauseExecution()
		s.registerStepOver()
		s.registerStepInto()
		s.registerStepOut()
		s.registerEvaluateExpression()
	}
}

// formatOption is the shared format selector every tool carries.
func formatOption() mcp.ToolOption {
	return mcp.WithString("format",
		mcp.Description("Output format: 'compact' (positional arrays, default) or 'detailed' (named objects with full ranges)"),
	)
}

// Language Intelligence Tools

func (s *Server) registerHover() {
	tool := mcp.NewTool("hover",
		mcp.WithDescription("Get hover documentation (signature, docstring, type info) for a symbol. Pass either symbol (a name like 'Calculator.add', resolved workspace-wide) OR file + line + column for an exact position - not both."),
		mcp.WithString("symbol",
			mcp.Description("Symbol name to look up, e.g. 'calculate_average' or 'BasicCalculator.sum'. Ambiguous names return a candidate list to pick from."),
		),
		mcp.WithString("file",
			mcp.Description("Source file path for a positional lookup. Requires line and column."),
		),
		mcp.WithNumber("line",
			mcp.Description("1-based line number (with file)"),
		),
		mcp.WithNumber("column",
			mcp.Description("1-based column number (with file)"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleHover)
}

func (s *Server) registerDefinition() {
	tool := mcp.NewTool("definition",
		mcp.WithDescription("Find where a symbol is defined. Pass either symbol OR file + line + column - not both. Returns the definition locations with 1-based positions."),
		mcp.WithString("symbol",
			mcp.Description("Symbol name to look up. Ambiguous names return a candidate list."),
		),
		mcp.WithString("file",
			mcp.Description("Source file path for a positional lookup. Requires line and column."),
		),
		mcp.WithNumber("line",
			mcp.Description("1-based line number (with file)"),
		),
		mcp.WithNumber("column",
			mcp.Description("1-based column number (with file)"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleDefinition)
}

func (s *Server) registerReferences() {
	tool := mcp.NewTool("references",
		mcp.WithDescription("Find all references to a symbol across the workspace. Pass either symbol OR file + line + column - not both."),
		mcp.WithString("symbol",
			mcp.Description("Symbol name to look up. Ambiguous names return a candidate list."),
		),
		mcp.WithString("file",
			mcp.Description("Source file path for a positional lookup. Requires line and column."),
		),
		mcp.WithNumber("line",
			mcp.Description("1-based line number (with file)"),
		),
		mcp.WithNumber("column",
			mcp.Description("1-based column number (with file)"),
		),
		mcp.WithBoolean("includeDeclaration",
			mcp.Description("Include the declaration itself in the results (default: true)"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleReferences)
}

func (s *Server) registerCallHierarchy() {
	tool := mcp.NewTool("callHierarchy",
		mcp.WithDescription("List functions that call a symbol (incoming) or functions it calls (outgoing). The symbol is resolved workspace-wide first; ambiguous names return a candidate list."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("The function or method to analyze, e.g. 'process_order' or 'Calculator.add'"),
		),
		mcp.WithString("direction",
			mcp.Description("'incoming' for callers (default) or 'outgoing' for callees"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleCallHierarchy)
}

func (s *Server) registerSymbolSearch() {
	tool := mcp.NewTool("symbolSearch",
		mcp.WithDescription("Resolve a name to source locations. Returns resolution='unique' with the symbol, resolution='ambiguous' with all candidates (each carrying its container to tell them apart), or SymbolNotFound with nearest-name suggestions. Dotted names like 'ClassName.method' narrow the search."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Name to resolve: a bare identifier ('add') or a dotted path ('Calculator.add')"),
		),
		mcp.WithString("kind",
			mcp.Description("Restrict matches to one symbol kind: 'function', 'method', 'class', 'variable', ..."),
		),
		mcp.WithString("uri",
			mcp.Description("Restrict the exact-match tier to one document before falling back to the workspace"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleSymbolSearch)
}

func (s *Server) registerWorkspaceSymbols() {
	tool := mcp.NewTool("workspaceSymbols",
		mcp.WithDescription("Scan workspace files and list their symbols. Returns {summary: {totalFiles, totalSymbols}, files: {path: [symbols]}}. Useful to get an overview of an unfamiliar codebase before drilling in."),
		mcp.WithString("filePattern",
			mcp.Description("Glob to select files, e.g. 'src/**/*.py' (default: all files)"),
		),
		mcp.WithNumber("maxFiles",
			mcp.Description("Upper bound on files scanned (default: 50)"),
		),
		mcp.WithString("exclude",
			mcp.Description("JSON array of globs to skip, e.g. [\"**/node_modules/**\", \"**/*_test.py\"]"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleWorkspaceSymbols)
}

func (s *Server) registerDiagnostics() {
	tool := mcp.NewTool("diagnostics",
		mcp.WithDescription("Get current problems (errors, warnings) reported by the host. Returns per-file diagnostic lists plus a severity summary. Omit file to query the whole workspace."),
		mcp.WithString("file",
			mcp.Description("Restrict to one source file"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleDiagnostics)
}

func (s *Server) registerRefactorRename() {
	tool := mcp.NewTool("refactor_rename",
		mcp.WithDescription("Rename a symbol across the workspace. The symbol is resolved first; ambiguous names return a candidate list and nothing is changed. The host applies the edit and reports how many files and edits were touched."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("The symbol to rename, e.g. 'old_name' or 'Calculator.old_name'"),
		),
		mcp.WithString("newName",
			mcp.Required(),
			mcp.Description("The new identifier. Must be a valid identifier (letters, digits, underscore, not starting with a digit)."),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleRefactorRename)
}

// Session Inspection Tools

func (s *Server) registerListConfigurations() {
	tool := mcp.NewTool("listConfigurations",
		mcp.WithDescription("List the debug launch configurations found in the workspace's .vscode/launch.json. Use one of these names with startSession."),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleListConfigurations)
}

func (s *Server) registerSessionStatus() {
	tool := mcp.NewTool("sessionStatus",
		mcp.WithDescription("Get the debug session state: idle, starting, running, paused, or stopped, plus the active configuration, the most recently stopped thread, and the stop reason. Detailed format adds recent program output."),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleSessionStatus)
}

func (s *Server) registerListBreakpoints() {
	tool := mcp.NewTool("listBreakpoints",
		mcp.WithDescription("List all breakpoints as the host currently sees them (re-read, never cached - breakpoints set through the editor UI show up too). Compact rows are [file, line, enabled, condition?, hitCondition?, logMessage?]."),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleListBreakpoints)
}

func (s *Server) registerGetCallStack() {
	tool := mcp.NewTool("getCallStack",
		mcp.WithDescription("Get the call stack of a paused thread. Only legal while the session is paused. Omit threadId to use the most recently paused thread; the response flags when that default was applied."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread to inspect (default: the most recently paused thread)"),
		),
		mcp.WithNumber("maxDepth",
			mcp.Description("Maximum number of frames to return (default: 20)"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleGetCallStack)
}

func (s *Server) registerInspectVariables() {
	tool := mcp.NewTool("inspectVariables",
		mcp.WithDescription("Inspect the variables of a stack frame, grouped by scope (Locals, Globals, ...). Only legal while paused. Frame IDs come from getCallStack and go stale on every continue or step; omit frameId for the top frame."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread to inspect (default: the most recently paused thread)"),
		),
		mcp.WithNumber("frameId",
			mcp.Description("Stack frame to inspect (default: top frame)"),
		),
		mcp.WithString("scope",
			mcp.Description("Only return the scope with this name, e.g. 'Locals'"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleInspectVariables)
}

// Session Control Tools (full mode only)

func (s *Server) registerStartSession() {
	tool := mcp.NewTool("startSession",
		mcp.WithDescription("Start a debug session from a launch.json configuration. Only legal while no session is active. Omit configuration when exactly one exists; with several, the name is required and the error lists them."),
		mcp.WithString("configuration",
			mcp.Description("Name of the launch configuration (see listConfigurations)"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleStartSession)
}

func (s *Server) registerStopSession() {
	tool := mcp.NewTool("stopSession",
		mcp.WithDescription("Stop the active debug session. Always returns to idle, even if the host reports an error during teardown."),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleStopSession)
}

func (s *Server) registerRestartSession() {
	tool := mcp.NewTool("restartSession",
		mcp.WithDescription("Stop the active session and start a new one from the same configuration. Breakpoints survive; they live in the host, not the session."),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleRestartSession)
}

// Breakpoint Tools (full mode only)

func (s *Server) registerSetBreakpoint() {
	tool := mcp.NewTool("setBreakpoint",
		mcp.WithDescription("Set a breakpoint. Pass either symbol (resolved to its declaration line) OR file + line - not both. Ambiguous symbols return a candidate list and nothing is set. The breakpoint is verified against the host after the call."),
		mcp.WithString("symbol",
			mcp.Description("Symbol to break on, e.g. 'main' or 'BasicCalculator.sum'"),
		),
		mcp.WithString("file",
			mcp.Description("Source file path (with line)"),
		),
		mcp.WithNumber("line",
			mcp.Description("1-based line number (with file)"),
		),
		mcp.WithString("condition",
			mcp.Description("Only break when this expression is true, e.g. 'count > 10'"),
		),
		mcp.WithString("hitCondition",
			mcp.Description("Only break on the Nth hit, e.g. '3' or '>=5'"),
		),
		mcp.WithString("logMessage",
			mcp.Description("Log this message instead of breaking (a logpoint). {expressions} are interpolated."),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleSetBreakpoint)
}

func (s *Server) registerToggleBreakpoint() {
	tool := mcp.NewTool("toggleBreakpoint",
		mcp.WithDescription("Toggle a breakpoint: removes it if one occupies the exact location, sets it otherwise. The response's action field says which happened ('added' or 'removed'). Same locator rules as setBreakpoint."),
		mcp.WithString("symbol",
			mcp.Description("Symbol to toggle on, e.g. 'main' or 'BasicCalculator.sum'"),
		),
		mcp.WithString("file",
			mcp.Description("Source file path (with line)"),
		),
		mcp.WithNumber("line",
			mcp.Description("1-based line number (with file)"),
		),
		mcp.WithString("condition",
			mcp.Description("Condition applied when the toggle adds a breakpoint"),
		),
		mcp.WithString("hitCondition",
			mcp.Description("Hit condition applied when the toggle adds a breakpoint"),
		),
		mcp.WithString("logMessage",
			mcp.Description("Log message applied when the toggle adds a breakpoint"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleToggleBreakpoint)
}

func (s *Server) registerClearBreakpoints() {
	tool := mcp.NewTool("clearBreakpoints",
		mcp.WithDescription("Remove breakpoints and report how many were removed. Pass file to clear one file, omit it to clear the whole workspace."),
		mcp.WithString("file",
			mcp.Description("Only clear breakpoints in this file"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleClearBreakpoints)
}

// Execution Control Tools (full mode only)

func (s *Server) registerContinueExecution() {
	tool := mcp.NewTool("continueExecution",
		mcp.WithDescription("Resume execution until the next breakpoint or program end. Fails with NoActiveSession when no session is running. Use sessionStatus afterwards to see where execution stopped."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread to resume (default: the most recently paused thread)"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleContinueExecution)
}

func (s *Server) registerPauseExecution() {
	tool := mcp.NewTool("pauseExecution",
		mcp.WithDescription("Interrupt a running program so it can be inspected. The pause completes when the host's stopped event arrives; check sessionStatus for the paused state."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread to pause (default: the most recently paused thread)"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handlePauseExecution)
}

func (s *Server) registerStepOver() {
	tool := mcp.NewTool("stepOver",
		mcp.WithDescription("Execute the next line without entering function calls. Only legal while paused."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread to step (default: the most recently paused thread)"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleStepOver)
}

func (s *Server) registerStepInto() {
	tool := mcp.NewTool("stepInto",
		mcp.WithDescription("Step into the next function call. Only legal while paused."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread to step (default: the most recently paused thread)"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleStepInto)
}

func (s *Server) registerStepOut() {
	tool := mcp.NewTool("stepOut",
		mcp.WithDescription("Run until the current function returns. Only legal while paused."),
		mcp.WithNumber("threadId",
			mcp.Description("Thread to step (default: the most recently paused thread)"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleStepOut)
}

func (s *Server) registerEvaluateExpression() {
	tool := mcp.NewTool("evaluateExpression",
		mcp.WithDescription("Evaluate an expression in a paused frame's context, e.g. 'len(items)' or 'calc.memory'. Expressions can have side effects, so this is a full-mode tool. Omit threadId/frameId for the paused thread's top frame."),
		mcp.WithString("expression",
			mcp.Required(),
			mcp.Description("The expression to evaluate"),
		),
		mcp.WithNumber("threadId",
			mcp.Description("Thread context (default: the most recently paused thread)"),
		),
		mcp.WithNumber("frameId",
			mcp.Description("Frame context from getCallStack (default: top frame)"),
		),
		formatOption(),
	)
	s.mcpServer.AddTool(tool, s.handleEvaluateExpression)
}
