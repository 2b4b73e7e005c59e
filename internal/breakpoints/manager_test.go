package breakpoints

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"idebridge/internal/errors"
	"idebridge/internal/host"
	"idebridge/internal/symbols"
	"idebridge/pkg/types"
)

// fakeHost mirrors the host's breakpoint behavior: the set posted for a
// file replaces that file's breakpoints wholesale, and unbreakable lines
// are silently dropped.
type fakeHost struct {
	byFile      map[string][]types.Breakpoint
	rejectLines map[int]bool
	nextID      int
	setCalls    int
	setErr      error
}

func newFakeHost() *fakeHost {
	return &fakeHost{byFile: make(map[string][]types.Breakpoint)}
}

func (f *fakeHost) SetBreakpoints(ctx context.Context, file string, specs []host.BreakpointSpec) ([]types.Breakpoint, error) {
	f.setCalls++
	if f.setErr != nil {
		return nil, f.setErr
	}
	var set []types.Breakpoint
	for _, spec := range specs {
		if f.rejectLines[spec.Line] {
			continue
		}
		f.nextID++
		set = append(set, types.Breakpoint{
			ID: f.nextID, File: file, Line: spec.Line,
			Enabled: true, Verified: true,
			Condition: spec.Condition, HitCondition: spec.HitCondition, LogMessage: spec.LogMessage,
		})
	}
	f.byFile[file] = set
	return set, nil
}

func (f *fakeHost) ListBreakpoints(ctx context.Context) ([]types.Breakpoint, error) {
	var out []types.Breakpoint
	for _, set := range f.byFile {
		out = append(out, set...)
	}
	return out, nil
}

func (f *fakeHost) ClearBreakpoints(ctx context.Context, file string) (int, error) {
	if file == "" {
		n := 0
		for _, set := range f.byFile {
			n += len(set)
		}
		f.byFile = make(map[string][]types.Breakpoint)
		return n, nil
	}
	n := len(f.byFile[file])
	delete(f.byFile, file)
	return n, nil
}

// fakeResolver maps names to canned resolutions; unknown names resolve to
// not-found with a fixed suggestion.
type fakeResolver struct {
	resolutions map[string]types.Resolution
}

func (f *fakeResolver) Resolve(ctx context.Context, name string, opts symbols.ResolveOptions) (types.Resolution, error) {
	if res, ok := f.resolutions[name]; ok {
		return res, nil
	}
	return types.Resolution{Kind: types.ResolutionNotFound, Suggestions: []string{"calculate_average"}}, nil
}

func uniqueResolution(fullName, uri string, line int) types.Resolution {
	return types.Resolution{
		Kind: types.ResolutionUnique,
		Symbol: &types.SymbolRecord{
			Name: fullName, FullName: fullName, Kind: types.SymbolKindMethod,
			Location: types.Location{URI: uri, StartLine: line, StartCol: 5},
		},
	}
}

func newTestManager() (*Manager, *fakeHost, *fakeResolver) {
	h := newFakeHost()
	r := &fakeResolver{resolutions: map[string]types.Resolution{
		"BasicCalculator.sum": uniqueResolution("BasicCalculator.sum", "src/calculator.py", 10),
	}}
	return NewManager(h, r), h, r
}

// TestSet_ByFileLine verifies the explicit locator path end to end.
func TestSet_ByFileLine(t *testing.T) {
	m, h, _ := newTestManager()

	res, err := m.Set(context.Background(), Locator{File: "src/api.py", Line: 12}, Conditions{Condition: "x > 3"})
	require.NoError(t, err)
	require.Equal(t, ActionAdded, res.Action)
	require.Equal(t, "src/api.py", res.Breakpoint.File)
	require.Equal(t, 12, res.Breakpoint.Line)
	require.Equal(t, "x > 3", res.Breakpoint.Condition)
	require.True(t, res.Breakpoint.Verified)
	require.Len(t, h.byFile["src/api.py"], 1)
}

// TestSet_BySymbol verifies resolution plus the advisory source-symbol
// annotation on the result and on later listings.
func TestSet_BySymbol(t *testing.T) {
	m, h, _ := newTestManager()

	res, err := m.Set(context.Background(), Locator{Symbol: "BasicCalculator.sum"}, Conditions{})
	require.NoError(t, err)
	require.Equal(t, ActionAdded, res.Action)
	require.Equal(t, "src/calculator.py", res.Breakpoint.File)
	require.Equal(t, 10, res.Breakpoint.Line)
	require.Equal(t, "BasicCalculator.sum", res.Breakpoint.SourceSymbol)
	require.Len(t, h.byFile["src/calculator.py"], 1)

	listed, err := m.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, "BasicCalculator.sum", listed[0].SourceSymbol)
}

// TestSet_AmbiguousSymbol verifies candidates come back with nothing
// mutated.
func TestSet_AmbiguousSymbol(t *testing.T) {
	m, h, r := newTestManager()
	r.resolutions["sum"] = types.Resolution{
		Kind: types.ResolutionAmbiguous,
		Candidates: []types.ResolutionCandidate{
			{Symbol: *uniqueResolution("BasicCalculator.sum", "src/calculator.py", 10).Symbol, Score: 0.9},
			{Symbol: *uniqueResolution("sum", "src/utils.py", 3).Symbol, Score: 0.9},
		},
	}

	res, err := m.Set(context.Background(), Locator{Symbol: "sum"}, Conditions{})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	require.Nil(t, res.Breakpoint)
	require.Zero(t, h.setCalls, "ambiguity must not mutate the host")
}

// TestSet_SymbolNotFound verifies the not-found error carries suggestions
// and nothing is mutated.
func TestSet_SymbolNotFound(t *testing.T) {
	m, h, _ := newTestManager()

	_, err := m.Set(context.Background(), Locator{Symbol: "claculate"}, Conditions{})
	require.Error(t, err)
	require.Equal(t, errors.CodeSymbolNotFound, errors.CodeOf(err))
	require.Contains(t, errors.FromError(err).Details["suggestions"], "calculate_average")
	require.Zero(t, h.setCalls)
}

// TestSet_LocatorValidation verifies malformed locators fail before any
// host traffic.
func TestSet_LocatorValidation(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
	}{
		{"both forms", Locator{Symbol: "sum", File: "src/api.py", Line: 3}},
		{"neither form", Locator{}},
		{"file without line", Locator{File: "src/api.py"}},
		{"line without file", Locator{Line: 12}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, h, _ := newTestManager()
			_, err := m.Set(context.Background(), tc.loc, Conditions{})
			require.Error(t, err)
			require.Equal(t, errors.CodeValidation, errors.CodeOf(err))
			require.Zero(t, h.setCalls)
		})
	}
}

// TestSet_PreservesFileSet verifies adding a breakpoint re-posts the file's
// existing breakpoints alongside the new one.
func TestSet_PreservesFileSet(t *testing.T) {
	m, h, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Set(ctx, Locator{File: "src/api.py", Line: 5}, Conditions{})
	require.NoError(t, err)
	_, err = m.Set(ctx, Locator{File: "src/api.py", Line: 9}, Conditions{})
	require.NoError(t, err)

	require.Len(t, h.byFile["src/api.py"], 2)
}

// TestSet_SameLineReappliesConditions verifies setting an occupied line
// replaces its conditions instead of stacking a duplicate.
func TestSet_SameLineReappliesConditions(t *testing.T) {
	m, h, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Set(ctx, Locator{File: "src/api.py", Line: 5}, Conditions{Condition: "old"})
	require.NoError(t, err)
	res, err := m.Set(ctx, Locator{File: "src/api.py", Line: 5}, Conditions{Condition: "new"})
	require.NoError(t, err)

	require.Equal(t, ActionAdded, res.Action)
	require.Equal(t, "new", res.Breakpoint.Condition)
	require.Len(t, h.byFile["src/api.py"], 1)
}

// TestSet_HostDropsPosition verifies the verify-after-mutation read catches
// a host that silently refused the position.
func TestSet_HostDropsPosition(t *testing.T) {
	m, h, _ := newTestManager()
	h.rejectLines = map[int]bool{999: true}

	_, err := m.Set(context.Background(), Locator{File: "src/api.py", Line: 999}, Conditions{})
	require.Error(t, err)
	require.Equal(t, errors.CodeHostError, errors.CodeOf(err))
}

// TestToggle verifies add/remove alternation at one position.
func TestToggle(t *testing.T) {
	m, h, _ := newTestManager()
	ctx := context.Background()
	loc := Locator{File: "src/api.py", Line: 12}

	res, err := m.Toggle(ctx, loc, Conditions{})
	require.NoError(t, err)
	require.Equal(t, ActionAdded, res.Action)
	require.Len(t, h.byFile["src/api.py"], 1)

	res, err = m.Toggle(ctx, loc, Conditions{})
	require.NoError(t, err)
	require.Equal(t, ActionRemoved, res.Action)
	require.Equal(t, 12, res.Breakpoint.Line)
	require.Empty(t, h.byFile["src/api.py"])
}

// TestToggle_RemoveKeepsNeighbors verifies removal rewrites the file set
// without the dropped line only.
func TestToggle_RemoveKeepsNeighbors(t *testing.T) {
	m, h, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Set(ctx, Locator{File: "src/api.py", Line: 5}, Conditions{})
	require.NoError(t, err)
	_, err = m.Set(ctx, Locator{File: "src/api.py", Line: 9}, Conditions{})
	require.NoError(t, err)

	res, err := m.Toggle(ctx, Locator{File: "src/api.py", Line: 5}, Conditions{})
	require.NoError(t, err)
	require.Equal(t, ActionRemoved, res.Action)

	require.Len(t, h.byFile["src/api.py"], 1)
	require.Equal(t, 9, h.byFile["src/api.py"][0].Line)
}

// TestList_Sorted verifies listings are ordered by file then line no matter
// how the host returns them.
func TestList_Sorted(t *testing.T) {
	m, h, _ := newTestManager()
	h.byFile["src/b.py"] = []types.Breakpoint{{ID: 1, File: "src/b.py", Line: 20}}
	h.byFile["src/a.py"] = []types.Breakpoint{
		{ID: 2, File: "src/a.py", Line: 30},
		{ID: 3, File: "src/a.py", Line: 7},
	}

	bps, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, bps, 3)
	require.Equal(t, "src/a.py", bps[0].File)
	require.Equal(t, 7, bps[0].Line)
	require.Equal(t, 30, bps[1].Line)
	require.Equal(t, "src/b.py", bps[2].File)
}

// TestClear verifies full and per-file clearing, and that the advisory
// annotations do not survive a clear.
func TestClear(t *testing.T) {
	m, h, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Set(ctx, Locator{Symbol: "BasicCalculator.sum"}, Conditions{})
	require.NoError(t, err)
	_, err = m.Set(ctx, Locator{File: "src/api.py", Line: 12}, Conditions{})
	require.NoError(t, err)

	removed, err := m.Clear(ctx, "src/calculator.py")
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Len(t, h.byFile["src/api.py"], 1)

	// The editor re-creates a breakpoint at the same position; the old
	// symbol annotation must not reattach.
	h.byFile["src/calculator.py"] = []types.Breakpoint{{ID: 50, File: "src/calculator.py", Line: 10}}
	bps, err := m.List(ctx)
	require.NoError(t, err)
	for _, bp := range bps {
		if bp.File == "src/calculator.py" {
			require.Empty(t, bp.SourceSymbol)
		}
	}

	removed, err = m.Clear(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, removed)
}
