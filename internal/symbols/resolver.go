// Package symbols turns human-readable names into precise source
// locations using the host's symbol indices. Resolution walks fixed
// priority tiers and stops at the first tier with candidates; a tier with
// several candidates is reported as ambiguous for the caller to settle,
// never auto-picked.
package symbols

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"idebridge/internal/errors"
	"idebridge/pkg/types"
)

const (
	defaultScanPattern  = "**/*"
	defaultScanMaxFiles = 200

	maxSuggestions        = 5
	maxSuggestionDistance = 3
)

// Match confidence per tier. Candidates within one tier share a score, so
// an ambiguous result is a genuine tie.
const (
	scoreExactInDocument = 1.0
	scoreExactWorkspace  = 0.9
	scoreDottedSuffix    = 0.75
	scoreCaseInsensitive = 0.6
)

// ResolveOptions narrows a resolution. URI restricts the first tier to one
// document; Kind drops candidates of other kinds within each tier.
type ResolveOptions struct {
	URI  string
	Kind types.SymbolKind
}

// Resolver is the symbol resolution engine. It reads through the given
// Source (normally a Cache over a Guard over the host client).
type Resolver struct {
	source   Source
	pattern  string
	maxFiles int
}

// NewResolver creates a Resolver scanning the workspace with the default
// pattern and file cap.
func NewResolver(source Source) *Resolver {
	return &Resolver{
		source:   source,
		pattern:  defaultScanPattern,
		maxFiles: defaultScanMaxFiles,
	}
}

// Resolve matches name against the workspace's symbols.
//
// Tiers, in priority order: exact match inside opts.URI, exact match
// workspace-wide, dotted-path suffix match, case-insensitive match. The
// first non-empty tier decides the outcome; tiers are never merged. A bare
// identifier matches exactly when it equals a symbol's name, so a free
// function and a method sharing one name tie rather than the free function
// shadowing the method. When nothing matches, the result carries up to
// five near-miss suggestions.
func (r *Resolver) Resolve(ctx context.Context, name string, opts ResolveOptions) (types.Resolution, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Resolution{}, errors.Validation("symbol name must not be empty", "")
	}

	if opts.URI != "" {
		docSyms, err := r.source.DocumentSymbols(ctx, opts.URI)
		if err != nil {
			return types.Resolution{}, err
		}
		if cands := r.collect(docSyms, opts.Kind, func(s types.SymbolRecord) bool {
			return exactMatch(name, s)
		}); len(cands) > 0 {
			return resolutionFor(cands, scoreExactInDocument), nil
		}
	}

	all, err := r.workspaceSymbols(ctx)
	if err != nil {
		return types.Resolution{}, err
	}

	tiers := []struct {
		score float64
		match func(types.SymbolRecord) bool
	}{
		{scoreExactWorkspace, func(s types.SymbolRecord) bool { return exactMatch(name, s) }},
		{scoreDottedSuffix, func(s types.SymbolRecord) bool { return suffixMatch(name, s) }},
		{scoreCaseInsensitive, func(s types.SymbolRecord) bool { return foldMatch(name, s) }},
	}
	for _, tier := range tiers {
		if cands := r.collect(all, opts.Kind, tier.match); len(cands) > 0 {
			return resolutionFor(cands, tier.score), nil
		}
	}

	return types.Resolution{
		Kind:        types.ResolutionNotFound,
		Suggestions: suggestionsFor(all, name),
	}, nil
}

// workspaceSymbols flattens every scanned document's symbols into one
// slice. Documents the host cannot extract are skipped rather than failing
// the whole resolution, except a still-warming index which propagates.
func (r *Resolver) workspaceSymbols(ctx context.Context) ([]types.SymbolRecord, error) {
	files, err := r.source.WorkspaceFiles(ctx, r.pattern, r.maxFiles, nil)
	if err != nil {
		return nil, err
	}
	var all []types.SymbolRecord
	for _, uri := range files {
		records, err := r.source.DocumentSymbols(ctx, uri)
		if err != nil {
			if errors.IsNotReady(err) {
				return nil, err
			}
			slog.Debug("skipping document during symbol scan", "uri", uri, "error", err)
			continue
		}
		all = append(all, records...)
	}
	return all, nil
}

func (r *Resolver) collect(records []types.SymbolRecord, kind types.SymbolKind, match func(types.SymbolRecord) bool) []types.SymbolRecord {
	var out []types.SymbolRecord
	for _, rec := range records {
		if !match(rec) {
			continue
		}
		if kind != "" && rec.Kind != kind {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// exactMatch reports a full-strength match: the query equals the symbol's
// fullName, or a bare query equals the symbol's own name.
func exactMatch(query string, sym types.SymbolRecord) bool {
	if sym.FullName == query {
		return true
	}
	return !strings.Contains(query, ".") && sym.Name == query
}

// suffixMatch reports that the query names a complete trailing segment
// path of the symbol's fullName ("Calculator.add" against
// "module.Calculator.add").
func suffixMatch(query string, sym types.SymbolRecord) bool {
	return strings.HasSuffix(sym.FullName, "."+query)
}

// foldMatch is exactMatch or suffixMatch ignoring case.
func foldMatch(query string, sym types.SymbolRecord) bool {
	if strings.EqualFold(sym.FullName, query) {
		return true
	}
	if !strings.Contains(query, ".") && strings.EqualFold(sym.Name, query) {
		return true
	}
	return hasSuffixFold(sym.FullName, "."+query)
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// resolutionFor orders candidates deterministically and tags the result as
// unique or ambiguous.
func resolutionFor(cands []types.SymbolRecord, score float64) types.Resolution {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Location.URI != b.Location.URI {
			return a.Location.URI < b.Location.URI
		}
		if a.Location.StartLine != b.Location.StartLine {
			return a.Location.StartLine < b.Location.StartLine
		}
		return a.FullName < b.FullName
	})

	if len(cands) == 1 {
		sym := cands[0]
		return types.Resolution{Kind: types.ResolutionUnique, Symbol: &sym}
	}
	out := make([]types.ResolutionCandidate, len(cands))
	for i, sym := range cands {
		out[i] = types.ResolutionCandidate{Symbol: sym, Score: score}
	}
	return types.Resolution{Kind: types.ResolutionAmbiguous, Candidates: out}
}

// suggestionsFor ranks near-miss names for a failed resolution: small edit
// distance first, then case-insensitive containment either way.
func suggestionsFor(records []types.SymbolRecord, query string) []string {
	type scored struct {
		name string
		dist int
	}
	q := strings.ToLower(query)
	seen := make(map[string]bool)
	var matches []scored
	for _, rec := range records {
		for _, cand := range []string{rec.Name, rec.FullName} {
			if cand == "" || seen[cand] {
				continue
			}
			seen[cand] = true
			lc := strings.ToLower(cand)
			dist := levenshtein.Distance(q, lc, nil)
			if dist > maxSuggestionDistance && !strings.Contains(lc, q) && !strings.Contains(q, lc) {
				continue
			}
			matches = append(matches, scored{name: cand, dist: dist})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.name
	}
	return names
}

// Snapshot is one workspace-wide symbol scan. Files holds only documents
// that yielded at least one symbol; Order lists their URIs sorted.
type Snapshot struct {
	Files        map[string][]types.SymbolRecord
	Order        []string
	TotalFiles   int
	TotalSymbols int
}

// WorkspaceSnapshot scans matching files and groups their symbols per
// document. Zero matching files is a legal, empty snapshot.
func (r *Resolver) WorkspaceSnapshot(ctx context.Context, pattern string, maxFiles int, exclude []string) (*Snapshot, error) {
	if pattern == "" {
		pattern = r.pattern
	}
	if maxFiles <= 0 {
		maxFiles = r.maxFiles
	}
	files, err := r.source.WorkspaceFiles(ctx, pattern, maxFiles, exclude)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Files: make(map[string][]types.SymbolRecord)}
	for _, uri := range files {
		records, err := r.source.DocumentSymbols(ctx, uri)
		if err != nil {
			if errors.IsNotReady(err) {
				return nil, err
			}
			slog.Debug("skipping document during workspace scan", "uri", uri, "error", err)
			continue
		}
		if len(records) == 0 {
			continue
		}
		snap.Files[uri] = records
		snap.Order = append(snap.Order, uri)
		snap.TotalSymbols += len(records)
	}
	sort.Strings(snap.Order)
	snap.TotalFiles = len(snap.Order)
	return snap, nil
}
