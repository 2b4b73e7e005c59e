// Package format renders tool results in two representationally
// equivalent shapes: compact positional arrays for token-tight callers and
// detailed named objects carrying ranges and full metadata. Both project
// the same canonical values; nothing here talks to the host.
//
// Compact rows have a documented fixed order per entity. Optional string
// fields at the tail of a row are truncated when absent; optional fields
// before a present one stay as "" placeholders so positions never shift.
package format

import (
	"idebridge/internal/errors"
	"idebridge/pkg/types"
)

// Mode selects a projection.
type Mode string

const (
	Compact  Mode = "compact"
	Detailed Mode = "detailed"
)

// ParseMode maps the wire-level format selector to a Mode. Empty input
// means Compact.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", string(Compact):
		return Compact, nil
	case string(Detailed):
		return Detailed, nil
	default:
		return "", errors.InvalidParameter("format", s, "\"compact\" or \"detailed\"")
	}
}

// trimTail drops trailing absent optionals (empty strings, nils) from a
// compact row. Non-string values such as a false bool are never dropped.
func trimTail(row []interface{}) []interface{} {
	for len(row) > 0 {
		switch v := row[len(row)-1].(type) {
		case string:
			if v != "" {
				return row
			}
		case nil:
		default:
			return row
		}
		row = row[:len(row)-1]
	}
	return row
}

// Breakpoint projects one breakpoint.
// Compact order: [file, line, enabled, condition?, hitCondition?, logMessage?].
func Breakpoint(bp types.Breakpoint, mode Mode) interface{} {
	if mode == Compact {
		return trimTail([]interface{}{
			bp.File, bp.Line, bp.Enabled, bp.Condition, bp.HitCondition, bp.LogMessage,
		})
	}
	out := map[string]interface{}{
		"id":       bp.ID,
		"file":     bp.File,
		"line":     bp.Line,
		"enabled":  bp.Enabled,
		"verified": bp.Verified,
	}
	putString(out, "condition", bp.Condition)
	putString(out, "hitCondition", bp.HitCondition)
	putString(out, "logMessage", bp.LogMessage)
	putString(out, "sourceSymbol", bp.SourceSymbol)
	return out
}

// Breakpoints projects a breakpoint list.
func Breakpoints(bps []types.Breakpoint, mode Mode) []interface{} {
	out := make([]interface{}, len(bps))
	for i, bp := range bps {
		out[i] = Breakpoint(bp, mode)
	}
	return out
}

// Symbol projects one symbol record.
// Compact order: [fullName, kind, file, line].
func Symbol(sym types.SymbolRecord, mode Mode) interface{} {
	if mode == Compact {
		return []interface{}{sym.FullName, string(sym.Kind), sym.Location.URI, sym.Location.StartLine}
	}
	out := map[string]interface{}{
		"name":     sym.Name,
		"kind":     string(sym.Kind),
		"fullName": sym.FullName,
		"location": locationObject(sym.Location),
	}
	putString(out, "container", sym.Container)
	putString(out, "detail", sym.Detail)
	return out
}

// Symbols projects a symbol list.
func Symbols(syms []types.SymbolRecord, mode Mode) []interface{} {
	out := make([]interface{}, len(syms))
	for i, sym := range syms {
		out[i] = Symbol(sym, mode)
	}
	return out
}

// Candidates projects resolution candidates. The container stays in both
// modes, it is what tells two same-named candidates apart.
// Compact order: [fullName, kind, container, file, line].
func Candidates(cands []types.ResolutionCandidate, mode Mode) []interface{} {
	out := make([]interface{}, len(cands))
	for i, cand := range cands {
		sym := cand.Symbol
		if mode == Compact {
			out[i] = []interface{}{
				sym.FullName, string(sym.Kind), sym.Container, sym.Location.URI, sym.Location.StartLine,
			}
			continue
		}
		out[i] = map[string]interface{}{
			"symbol":    Symbol(sym, Detailed),
			"container": sym.Container,
			"kind":      string(sym.Kind),
			"file":      sym.Location.URI,
			"score":     cand.Score,
		}
	}
	return out
}

// Location projects one source location.
// Compact order: [file, line, col].
func Location(loc types.Location, mode Mode) interface{} {
	if mode == Compact {
		return []interface{}{loc.URI, loc.StartLine, loc.StartCol}
	}
	return locationObject(loc)
}

// Locations projects a location list.
func Locations(locs []types.Location, mode Mode) []interface{} {
	out := make([]interface{}, len(locs))
	for i, loc := range locs {
		out[i] = Location(loc, mode)
	}
	return out
}

// Frame projects one stack frame.
// Compact order: [id, name, file, line].
func Frame(f types.StackFrame, mode Mode) interface{} {
	if mode == Compact {
		return []interface{}{f.ID, f.Name, f.File, f.Line}
	}
	return map[string]interface{}{
		"id":     f.ID,
		"name":   f.Name,
		"file":   f.File,
		"line":   f.Line,
		"column": f.Column,
	}
}

// Frames projects a call stack.
func Frames(frames []types.StackFrame, mode Mode) []interface{} {
	out := make([]interface{}, len(frames))
	for i, f := range frames {
		out[i] = Frame(f, mode)
	}
	return out
}

// Variable projects one variable.
// Compact order: [name, value, type, variablesReference].
func Variable(v types.Variable, mode Mode) interface{} {
	if mode == Compact {
		return trimTail([]interface{}{v.Name, v.Value, v.Type, variablesRef(v.VariablesReference)})
	}
	return map[string]interface{}{
		"name":               v.Name,
		"value":              v.Value,
		"type":               v.Type,
		"variablesReference": v.VariablesReference,
	}
}

// Scope projects one scope together with its variables.
// Compact shape: [scopeName, [variable rows]].
func Scope(s types.Scope, vars []types.Variable, mode Mode) interface{} {
	rows := make([]interface{}, len(vars))
	for i, v := range vars {
		rows[i] = Variable(v, mode)
	}
	if mode == Compact {
		return []interface{}{s.Name, rows}
	}
	return map[string]interface{}{
		"scope": map[string]interface{}{
			"name":               s.Name,
			"variablesReference": s.VariablesReference,
			"expensive":          s.Expensive,
		},
		"variables": rows,
	}
}

// Thread projects one thread.
// Compact order: [id, name].
func Thread(t types.ThreadInfo, mode Mode) interface{} {
	if mode == Compact {
		return []interface{}{t.ID, t.Name}
	}
	return map[string]interface{}{"id": t.ID, "name": t.Name}
}

// Diagnostic projects one diagnostic.
// Compact order: [file, line, severity, message, source?, code?].
func Diagnostic(d types.Diagnostic, mode Mode) interface{} {
	if mode == Compact {
		return trimTail([]interface{}{
			d.File, d.Line, string(d.Severity), d.Message, d.Source, d.Code,
		})
	}
	out := map[string]interface{}{
		"file":     d.File,
		"line":     d.Line,
		"column":   d.Column,
		"severity": string(d.Severity),
		"message":  d.Message,
	}
	putString(out, "source", d.Source)
	putString(out, "code", d.Code)
	return out
}

// Diagnostics projects a diagnostic list.
func Diagnostics(diags []types.Diagnostic, mode Mode) []interface{} {
	out := make([]interface{}, len(diags))
	for i, d := range diags {
		out[i] = Diagnostic(d, mode)
	}
	return out
}

// CallItem projects one call-hierarchy entry.
// Compact order: [name, kind, container, file, line].
func CallItem(it types.CallHierarchyItem, mode Mode) interface{} {
	if mode == Compact {
		return []interface{}{
			it.Name, string(it.Kind), it.Container, it.Location.URI, it.Location.StartLine,
		}
	}
	out := map[string]interface{}{
		"name":     it.Name,
		"kind":     string(it.Kind),
		"location": locationObject(it.Location),
	}
	putString(out, "container", it.Container)
	if len(it.FromLines) > 0 {
		out["fromLines"] = it.FromLines
	}
	return out
}

// CallItems projects a call-hierarchy listing.
func CallItems(items []types.CallHierarchyItem, mode Mode) []interface{} {
	out := make([]interface{}, len(items))
	for i, it := range items {
		out[i] = CallItem(it, mode)
	}
	return out
}

// Hover projects hover contents.
// Compact shape: [contents].
func Hover(h types.HoverInfo, mode Mode) interface{} {
	if mode == Compact {
		return []interface{}{h.Contents}
	}
	out := map[string]interface{}{"contents": h.Contents}
	if h.Range != nil {
		out["range"] = locationObject(*h.Range)
	}
	return out
}

// Session projects session status.
// Compact order: [state, configuration, activeThread, stoppedReason?].
func Session(info types.SessionInfo, mode Mode) interface{} {
	if mode == Compact {
		return trimTail([]interface{}{
			string(info.State), info.Configuration, info.ActiveThread, info.StoppedReason,
		})
	}
	out := map[string]interface{}{
		"state":        string(info.State),
		"activeThread": info.ActiveThread,
	}
	putString(out, "sessionId", info.SessionID)
	putString(out, "configuration", info.Configuration)
	putString(out, "stoppedReason", info.StoppedReason)
	if !info.StartedAt.IsZero() {
		out["startedAt"] = info.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return out
}

// Configuration projects one launch configuration.
// Compact order: [name, type, request].
func Configuration(c types.ConfigurationInfo, mode Mode) interface{} {
	if mode == Compact {
		return []interface{}{c.Name, c.Type, c.Request}
	}
	return map[string]interface{}{
		"name":    c.Name,
		"type":    c.Type,
		"request": c.Request,
	}
}

// Configurations projects a configuration list.
func Configurations(configs []types.ConfigurationInfo, mode Mode) []interface{} {
	out := make([]interface{}, len(configs))
	for i, c := range configs {
		out[i] = Configuration(c, mode)
	}
	return out
}

// Evaluate projects an expression result.
// Compact order: [result, type, variablesReference].
func Evaluate(v types.EvaluateResult, mode Mode) interface{} {
	if mode == Compact {
		return trimTail([]interface{}{v.Result, v.Type, variablesRef(v.VariablesReference)})
	}
	return map[string]interface{}{
		"result":             v.Result,
		"type":               v.Type,
		"variablesReference": v.VariablesReference,
	}
}

// Rename projects a rename outcome; it is small enough that both modes
// share one shape.
func Rename(r types.RenameResult) interface{} {
	return map[string]interface{}{
		"renamed":      r.Renamed,
		"filesChanged": r.FilesChanged,
		"editCount":    r.EditCount,
	}
}

// Workspace projects a workspace symbol scan as {summary, files}. Order
// carries the deterministic file iteration.
func Workspace(order []string, files map[string][]types.SymbolRecord, mode Mode) map[string]interface{} {
	total := 0
	fileMap := make(map[string]interface{}, len(order))
	for _, uri := range order {
		syms := files[uri]
		total += len(syms)
		fileMap[uri] = Symbols(syms, mode)
	}
	return map[string]interface{}{
		"summary": map[string]interface{}{
			"totalFiles":   len(order),
			"totalSymbols": total,
		},
		"files": fileMap,
	}
}

func locationObject(loc types.Location) map[string]interface{} {
	return map[string]interface{}{
		"uri": loc.URI,
		"range": map[string]interface{}{
			"startLine": loc.StartLine,
			"startCol":  loc.StartCol,
			"endLine":   loc.EndLine,
			"endCol":    loc.EndCol,
		},
	}
}

func putString(out map[string]interface{}, key, value string) {
	if value != "" {
		out[key] = value
	}
}

// variablesRef keeps a zero reference trimmable in compact rows.
func variablesRef(ref int) interface{} {
	if ref == 0 {
		return nil
	}
	return ref
}
