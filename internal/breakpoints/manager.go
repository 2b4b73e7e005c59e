// Package breakpoints maps resolved symbols or explicit file/line
// locators onto the host's breakpoint set. The host owns that set and can
// mutate it through channels we never see, so every mutation is verified
// by re-reading it and list/clear never consult a local mirror.
package breakpoints

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"idebridge/internal/errors"
	"idebridge/internal/host"
	"idebridge/internal/symbols"
	"idebridge/pkg/types"
)

// Host is the slice of the capability provider the manager mutates.
type Host interface {
	SetBreakpoints(ctx context.Context, path string, specs []host.BreakpointSpec) ([]types.Breakpoint, error)
	ListBreakpoints(ctx context.Context) ([]types.Breakpoint, error)
	ClearBreakpoints(ctx context.Context, path string) (int, error)
}

// SymbolResolver resolves a symbol name to source locations.
type SymbolResolver interface {
	Resolve(ctx context.Context, name string, opts symbols.ResolveOptions) (types.Resolution, error)
}

// Locator designates where a breakpoint goes: a symbol name, or an
// explicit file plus 1-based line. Exactly one form must be used.
type Locator struct {
	Symbol string
	File   string
	Line   int
}

// Conditions carries the optional breakpoint qualifiers.
type Conditions struct {
	Condition    string
	HitCondition string
	LogMessage   string
}

// Action describes what a mutation did.
type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
)

// Result is the outcome of Set or Toggle. When Candidates is populated the
// locator's symbol was ambiguous and nothing was mutated; the caller picks
// a candidate and retries.
type Result struct {
	Action     Action
	Breakpoint *types.Breakpoint
	Candidates []types.ResolutionCandidate
}

// Manager drives breakpoint mutations against the host. Its only local
// state is an advisory annotation recording which symbol a breakpoint was
// created from; existence, lines and conditions always come from the host.
type Manager struct {
	host     Host
	resolver SymbolResolver

	mu           sync.Mutex
	sourceSymbol map[string]string
}

// NewManager creates a Manager on top of the given host and resolver.
func NewManager(h Host, resolver SymbolResolver) *Manager {
	return &Manager{
		host:         h,
		resolver:     resolver,
		sourceSymbol: make(map[string]string),
	}
}

// target is a fully resolved breakpoint position.
type target struct {
	file   string
	line   int
	symbol string
}

// Set places a breakpoint at the locator's position and verifies the host
// accepted it. Setting a line that already has a breakpoint re-applies the
// conditions.
func (m *Manager) Set(ctx context.Context, loc Locator, cond Conditions) (*Result, error) {
	t, candidates, err := m.resolveLocator(ctx, loc)
	if err != nil {
		return nil, err
	}
	if candidates != nil {
		return &Result{Candidates: candidates}, nil
	}
	bp, err := m.add(ctx, t, cond)
	if err != nil {
		return nil, err
	}
	return &Result{Action: ActionAdded, Breakpoint: bp}, nil
}

// Toggle removes the breakpoint at the locator's position if one exists,
// otherwise sets one. Two identical calls in a row therefore cancel out.
func (m *Manager) Toggle(ctx context.Context, loc Locator, cond Conditions) (*Result, error) {
	t, candidates, err := m.resolveLocator(ctx, loc)
	if err != nil {
		return nil, err
	}
	if candidates != nil {
		return &Result{Candidates: candidates}, nil
	}

	existing, err := m.host.ListBreakpoints(ctx)
	if err != nil {
		return nil, err
	}
	current := findAt(existing, t.file, t.line)
	if current == nil {
		bp, err := m.add(ctx, t, cond)
		if err != nil {
			return nil, err
		}
		return &Result{Action: ActionAdded, Breakpoint: bp}, nil
	}

	specs := fileSpecs(existing, t.file, t.line)
	if _, err := m.host.SetBreakpoints(ctx, current.File, specs); err != nil {
		return nil, err
	}
	if err := m.verifyAbsent(ctx, t.file, t.line); err != nil {
		return nil, err
	}

	removed := *current
	m.decorate(&removed)
	m.forget(removed.File, removed.Line)
	return &Result{Action: ActionRemoved, Breakpoint: &removed}, nil
}

// List re-reads the host's full breakpoint set, sorted by file then line.
func (m *Manager) List(ctx context.Context) ([]types.Breakpoint, error) {
	bps, err := m.host.ListBreakpoints(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(bps, func(i, j int) bool {
		if bps[i].File != bps[j].File {
			return bps[i].File < bps[j].File
		}
		return bps[i].Line < bps[j].Line
	})
	for i := range bps {
		m.decorate(&bps[i])
	}
	return bps, nil
}

// Clear removes every breakpoint, or every breakpoint in one file when
// file is non-empty. Returns the host's count of removed breakpoints.
func (m *Manager) Clear(ctx context.Context, file string) (int, error) {
	removed, err := m.host.ClearBreakpoints(ctx, file)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	if file == "" {
		m.sourceSymbol = make(map[string]string)
	} else {
		for key := range m.sourceSymbol {
			if samePath(keyFile(key), file) {
				delete(m.sourceSymbol, key)
			}
		}
	}
	m.mu.Unlock()
	return removed, nil
}

// resolveLocator validates the locator and turns it into a concrete
// position. Validation happens before any host mutation; an ambiguous
// symbol comes back as candidates with nothing touched.
func (m *Manager) resolveLocator(ctx context.Context, loc Locator) (target, []types.ResolutionCandidate, error) {
	hasSymbol := loc.Symbol != ""
	hasFileLine := loc.File != "" || loc.Line != 0

	switch {
	case hasSymbol && hasFileLine:
		return target{}, nil, errors.Validation(
			"pass either a symbol or a file and line, not both",
			"Use symbol to target a named function or method, or file plus line for an explicit position.",
		).WithDetails("reason", "ConflictingParameters")
	case !hasSymbol && !hasFileLine:
		return target{}, nil, errors.Validation(
			"a breakpoint locator needs a symbol, or a file and line",
			"Pass symbol, or both file and line.",
		).WithDetails("reason", "MissingRequiredParameter")
	}

	if hasFileLine {
		if loc.File == "" || loc.Line == 0 {
			return target{}, nil, errors.Validation(
				"file and line must be given together",
				"Pass both file and line for an explicit position.",
			).WithDetails("reason", "MissingRequiredParameter")
		}
		if loc.Line < 1 {
			return target{}, nil, errors.InvalidParameter("line", loc.Line, "a 1-based line number")
		}
		return target{file: path.Clean(loc.File), line: loc.Line}, nil, nil
	}

	res, err := m.resolver.Resolve(ctx, loc.Symbol, symbols.ResolveOptions{})
	if err != nil {
		return target{}, nil, err
	}
	switch res.Kind {
	case types.ResolutionUnique:
		sym := res.Symbol
		return target{
			file:   pathFromURI(sym.Location.URI),
			line:   sym.Location.StartLine,
			symbol: sym.FullName,
		}, nil, nil
	case types.ResolutionAmbiguous:
		return target{}, res.Candidates, nil
	default:
		return target{}, nil, errors.SymbolNotFound(loc.Symbol, res.Suggestions)
	}
}

// add pushes the file's full breakpoint set including the new position,
// then re-reads to confirm the host registered it.
func (m *Manager) add(ctx context.Context, t target, cond Conditions) (*types.Breakpoint, error) {
	existing, err := m.host.ListBreakpoints(ctx)
	if err != nil {
		return nil, err
	}

	specs := fileSpecs(existing, t.file, t.line)
	specs = append(specs, host.BreakpointSpec{
		Line:         t.line,
		Condition:    cond.Condition,
		HitCondition: cond.HitCondition,
		LogMessage:   cond.LogMessage,
	})
	if _, err := m.host.SetBreakpoints(ctx, t.file, specs); err != nil {
		return nil, err
	}

	after, err := m.host.ListBreakpoints(ctx)
	if err != nil {
		return nil, err
	}
	bp := findAt(after, t.file, t.line)
	if bp == nil {
		return nil, errors.Wrap(errors.CodeHostError,
			fmt.Sprintf("the host did not register the breakpoint at %s:%d", t.file, t.line),
			"The file may not exist in the workspace, or the line may not be breakable.", nil)
	}

	if t.symbol != "" {
		m.annotate(bp.File, bp.Line, t.symbol)
	}
	result := *bp
	m.decorate(&result)
	return &result, nil
}

// verifyAbsent re-reads the host set and fails if the position survived
// the removal.
func (m *Manager) verifyAbsent(ctx context.Context, file string, line int) error {
	after, err := m.host.ListBreakpoints(ctx)
	if err != nil {
		return err
	}
	if findAt(after, file, line) != nil {
		return errors.Wrap(errors.CodeHostError,
			fmt.Sprintf("the host still reports a breakpoint at %s:%d after removal", file, line),
			"Another client may have re-added it.", nil)
	}
	return nil
}

// fileSpecs collects the file's surviving breakpoints as source specs,
// excluding the position being replaced or removed, ordered by line.
func fileSpecs(bps []types.Breakpoint, file string, dropLine int) []host.BreakpointSpec {
	var specs []host.BreakpointSpec
	for _, bp := range bps {
		if !samePath(bp.File, file) || bp.Line == dropLine {
			continue
		}
		specs = append(specs, host.BreakpointSpec{
			Line:         bp.Line,
			Condition:    bp.Condition,
			HitCondition: bp.HitCondition,
			LogMessage:   bp.LogMessage,
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Line < specs[j].Line })
	return specs
}

func findAt(bps []types.Breakpoint, file string, line int) *types.Breakpoint {
	for i := range bps {
		if bps[i].Line == line && samePath(bps[i].File, file) {
			return &bps[i]
		}
	}
	return nil
}

// samePath compares a workspace-relative and a possibly absolute spelling
// of the same file.
func samePath(a, b string) bool {
	a, b = path.Clean(a), path.Clean(b)
	if a == b {
		return true
	}
	return strings.HasSuffix(a, "/"+b) || strings.HasSuffix(b, "/"+a)
}

func pathFromURI(uri string) string {
	return path.Clean(strings.TrimPrefix(uri, "file://"))
}

func locatorKey(file string, line int) string {
	return fmt.Sprintf("%s:%d", file, line)
}

func keyFile(key string) string {
	if i := strings.LastIndex(key, ":"); i >= 0 {
		return key[:i]
	}
	return key
}

func (m *Manager) annotate(file string, line int, symbol string) {
	m.mu.Lock()
	m.sourceSymbol[locatorKey(file, line)] = symbol
	m.mu.Unlock()
}

func (m *Manager) forget(file string, line int) {
	m.mu.Lock()
	delete(m.sourceSymbol, locatorKey(file, line))
	m.mu.Unlock()
}

// decorate fills in the advisory source-symbol annotation, when we have
// one, on a host-read breakpoint.
func (m *Manager) decorate(bp *types.Breakpoint) {
	m.mu.Lock()
	if symbol, ok := m.sourceSymbol[locatorKey(bp.File, bp.Line)]; ok {
		bp.SourceSymbol = symbol
	}
	m.mu.Unlock()
}
