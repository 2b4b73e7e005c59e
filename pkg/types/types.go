// Package types defines shared data types used across the idebridge server.
//
// This package provides type definitions for:
//   - SymbolRecord: a named, located program entity reported by the host
//   - Resolution: the outcome of resolving a name (unique, ambiguous, not found)
//   - SessionState: debug session states (idle, starting, running, paused, stopped)
//   - Breakpoint: the bridge's view of a host breakpoint
//   - Info types: SessionInfo, ThreadInfo, StackFrame, Scope, Variable, Diagnostic
//
// These types are used throughout the codebase to maintain type safety
// and provide clear contracts between components. All line and column
// numbers carried by these types are 1-based; conversion from the host's
// 0-based wire representation happens at the provider boundary.
package types

import "time"

// SymbolKind classifies a symbol reported by the host.
type SymbolKind string

const (
	SymbolKindFile          SymbolKind = "file"
	SymbolKindModule        SymbolKind = "module"
	SymbolKindNamespace     SymbolKind = "namespace"
	SymbolKindPackage       SymbolKind = "package"
	SymbolKindClass         SymbolKind = "class"
	SymbolKindMethod        SymbolKind = "method"
	SymbolKindProperty      SymbolKind = "property"
	SymbolKindField         SymbolKind = "field"
	SymbolKindConstructor   SymbolKind = "constructor"
	SymbolKindEnum          SymbolKind = "enum"
	SymbolKindInterface     SymbolKind = "interface"
	SymbolKindFunction      SymbolKind = "function"
	SymbolKindVariable      SymbolKind = "variable"
	SymbolKindConstant      SymbolKind = "constant"
	SymbolKindString        SymbolKind = "string"
	SymbolKindNumber        SymbolKind = "number"
	SymbolKindBoolean       SymbolKind = "boolean"
	SymbolKindArray         SymbolKind = "array"
	SymbolKindObject        SymbolKind = "object"
	SymbolKindKey           SymbolKind = "key"
	SymbolKindNull          SymbolKind = "null"
	SymbolKindEnumMember    SymbolKind = "enumMember"
	SymbolKindStruct        SymbolKind = "struct"
	SymbolKindEvent         SymbolKind = "event"
	SymbolKindOperator      SymbolKind = "operator"
	SymbolKindTypeParameter SymbolKind = "typeParameter"
)

// lspSymbolKinds maps the numeric kinds used on the host wire (LSP encoding)
// to their string form. Index 0 is unused.
var lspSymbolKinds = [...]SymbolKind{
	1:  SymbolKindFile,
	2:  SymbolKindModule,
	3:  SymbolKindNamespace,
	4:  SymbolKindPackage,
	5:  SymbolKindClass,
	6:  SymbolKindMethod,
	7:  SymbolKindProperty,
	8:  SymbolKindField,
	9:  SymbolKindConstructor,
	10: SymbolKindEnum,
	11: SymbolKindInterface,
	12: SymbolKindFunction,
	13: SymbolKindVariable,
	14: SymbolKindConstant,
	15: SymbolKindString,
	16: SymbolKindNumber,
	17: SymbolKindBoolean,
	18: SymbolKindArray,
	19: SymbolKindObject,
	20: SymbolKindKey,
	21: SymbolKindNull,
	22: SymbolKindEnumMember,
	23: SymbolKindStruct,
	24: SymbolKindEvent,
	25: SymbolKindOperator,
	26: SymbolKindTypeParameter,
}

// SymbolKindFromLSP converts a numeric LSP symbol kind to its string form.
// Unknown values map to "variable" rather than failing, since hosts may emit
// kinds from newer protocol revisions.
func SymbolKindFromLSP(kind int) SymbolKind {
	if kind > 0 && kind < len(lspSymbolKinds) {
		return lspSymbolKinds[kind]
	}
	return SymbolKindVariable
}

// ParseSymbolKind validates a kind filter supplied by a caller. The bool is
// false for strings that are not a known symbol kind.
func ParseSymbolKind(s string) (SymbolKind, bool) {
	for _, k := range lspSymbolKinds[1:] {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Location identifies a source range. Lines and columns are 1-based.
type Location struct {
	URI       string `json:"uri"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// SymbolRecord is a named, located program entity reported by the host.
// FullName is the dot-joined path from the document's root symbol down to
// this one. It is unique within a single document's symbol tree but NOT
// unique workspace-wide; collisions across files are expected and surfaced.
type SymbolRecord struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Container string     `json:"container,omitempty"`
	FullName  string     `json:"fullName"`
	Location  Location   `json:"location"`
	Detail    string     `json:"detail,omitempty"`
}

// ResolutionCandidate pairs a symbol with a match-confidence score.
// Candidates at the same score are ties and must be surfaced together.
type ResolutionCandidate struct {
	Symbol SymbolRecord `json:"symbol"`
	Score  float64      `json:"score"`
}

// ResolutionKind discriminates the Resolution variant.
type ResolutionKind string

const (
	ResolutionUnique    ResolutionKind = "unique"
	ResolutionAmbiguous ResolutionKind = "ambiguous"
	ResolutionNotFound  ResolutionKind = "notFound"
)

// Resolution is the outcome of resolving a name against the symbol index.
// Exactly one of Symbol, Candidates, or Suggestions is populated depending
// on Kind. Callers must branch on Kind; there is no exception path for
// ambiguity.
type Resolution struct {
	Kind        ResolutionKind        `json:"kind"`
	Symbol      *SymbolRecord         `json:"symbol,omitempty"`
	Candidates  []ResolutionCandidate `json:"candidates,omitempty"`
	Suggestions []string              `json:"suggestions,omitempty"`
}

// SessionState represents the lifecycle state of the debug session.
type SessionState string

const (
	SessionStateIdle     SessionState = "idle"
	SessionStateStarting SessionState = "starting"
	SessionStateRunning  SessionState = "running"
	SessionStatePaused   SessionState = "paused"
	SessionStateStopped  SessionState = "stopped"
)

// SessionInfo describes the active debug session, if any.
type SessionInfo struct {
	SessionID     string       `json:"sessionId,omitempty"`
	State         SessionState `json:"state"`
	Configuration string       `json:"configuration,omitempty"`
	ActiveThread  int          `json:"activeThreadId,omitempty"`
	StoppedReason string       `json:"stoppedReason,omitempty"`
	StartedAt     time.Time    `json:"startedAt,omitzero"`
}

// ThreadInfo represents information about a thread.
type ThreadInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StackFrame represents a stack frame. Line and column are 1-based.
type StackFrame struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

// Scope represents a variable scope within a stack frame.
type Scope struct {
	Name               string `json:"name"`
	VariablesReference int    `json:"variablesReference"`
	Expensive          bool   `json:"expensive,omitempty"`
}

// Variable represents a variable or structured value member.
type Variable struct {
	Name               string `json:"name"`
	Value              string `json:"value"`
	Type               string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference"`
}

// EvaluateResult represents the result of evaluating an expression.
type EvaluateResult struct {
	Result             string `json:"result"`
	Type               string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference"`
}

// Breakpoint is the bridge's view of a host breakpoint. File is
// workspace-relative and Line is 1-based. The host remains authoritative;
// instances of this type are advisory snapshots, never durable state.
type Breakpoint struct {
	ID           int    `json:"id,omitempty"`
	File         string `json:"file"`
	Line         int    `json:"line"`
	Enabled      bool   `json:"enabled"`
	Verified     bool   `json:"verified,omitempty"`
	Condition    string `json:"condition,omitempty"`
	HitCondition string `json:"hitCondition,omitempty"`
	LogMessage   string `json:"logMessage,omitempty"`
	SourceSymbol string `json:"sourceSymbol,omitempty"`
}

// DiagnosticSeverity classifies a diagnostic.
type DiagnosticSeverity string

const (
	SeverityError   DiagnosticSeverity = "error"
	SeverityWarning DiagnosticSeverity = "warning"
	SeverityInfo    DiagnosticSeverity = "info"
	SeverityHint    DiagnosticSeverity = "hint"
)

// diagnosticSeverities maps the numeric severities used on the host wire
// (LSP encoding) to their string form. Index 0 is unused.
var diagnosticSeverities = [...]DiagnosticSeverity{
	1: SeverityError,
	2: SeverityWarning,
	3: SeverityInfo,
	4: SeverityHint,
}

// SeverityFromLSP converts a numeric LSP severity to its string form.
func SeverityFromLSP(severity int) DiagnosticSeverity {
	if severity > 0 && severity < len(diagnosticSeverities) {
		return diagnosticSeverities[severity]
	}
	return SeverityInfo
}

// Diagnostic represents a single host-reported problem. Line and column
// are 1-based.
type Diagnostic struct {
	File     string             `json:"file"`
	Line     int                `json:"line"`
	Column   int                `json:"column,omitempty"`
	Severity DiagnosticSeverity `json:"severity"`
	Message  string             `json:"message"`
	Source   string             `json:"source,omitempty"`
	Code     string             `json:"code,omitempty"`
}

// ConfigurationInfo summarizes a debug launch configuration.
type ConfigurationInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Request string `json:"request"`
}

// HoverInfo is the host's hover content for a location.
type HoverInfo struct {
	Contents string    `json:"contents"`
	Range    *Location `json:"range,omitempty"`
}

// CallHierarchyItem is one entry in a call hierarchy traversal.
type CallHierarchyItem struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Container string     `json:"container,omitempty"`
	Location  Location   `json:"location"`
	FromLines []int      `json:"fromLines,omitempty"`
}

// RenameResult summarizes a workspace rename edit applied by the host.
type RenameResult struct {
	Renamed      bool `json:"renamed"`
	FilesChanged int  `json:"filesChanged"`
	EditCount    int  `json:"editCount"`
}
