package types

import (
	"testing"
)

// TestSymbolKindFromLSP verifies the numeric wire mapping and its fallback.
func TestSymbolKindFromLSP(t *testing.T) {
	tests := []struct {
		kind int
		want SymbolKind
	}{
		{1, SymbolKindFile},
		{5, SymbolKindClass},
		{6, SymbolKindMethod},
		{12, SymbolKindFunction},
		{13, SymbolKindVariable},
		{26, SymbolKindTypeParameter},
		// Out-of-range values fall back instead of failing.
		{0, SymbolKindVariable},
		{27, SymbolKindVariable},
		{-3, SymbolKindVariable},
	}

	for _, tc := range tests {
		if got := SymbolKindFromLSP(tc.kind); got != tc.want {
			t.Errorf("SymbolKindFromLSP(%d) = %s, want %s", tc.kind, got, tc.want)
		}
	}
}

// TestParseSymbolKind verifies caller-facing kind validation.
func TestParseSymbolKind(t *testing.T) {
	kind, ok := ParseSymbolKind("method")
	if !ok || kind != SymbolKindMethod {
		t.Errorf("ParseSymbolKind(method) = %s, %v", kind, ok)
	}

	if _, ok := ParseSymbolKind("Method"); ok {
		t.Error("kind matching is exact, 'Method' should not parse")
	}
	if _, ok := ParseSymbolKind("gadget"); ok {
		t.Error("unknown kind should not parse")
	}
	if _, ok := ParseSymbolKind(""); ok {
		t.Error("empty kind should not parse")
	}
}

// TestSeverityFromLSP verifies severity mapping with its info fallback.
func TestSeverityFromLSP(t *testing.T) {
	tests := []struct {
		severity int
		want     DiagnosticSeverity
	}{
		{1, SeverityError},
		{2, SeverityWarning},
		{3, SeverityInfo},
		{4, SeverityHint},
		{0, SeverityInfo},
		{9, SeverityInfo},
	}

	for _, tc := range tests {
		if got := SeverityFromLSP(tc.severity); got != tc.want {
			t.Errorf("SeverityFromLSP(%d) = %s, want %s", tc.severity, got, tc.want)
		}
	}
}
