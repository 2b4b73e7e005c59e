package symbols

import (
	"context"
	"time"

	"idebridge/internal/errors"
	"idebridge/pkg/types"
)

// Source is the slice of the capability provider the symbol layer consumes.
type Source interface {
	DocumentSymbols(ctx context.Context, uri string) ([]types.SymbolRecord, error)
	WorkspaceFiles(ctx context.Context, pattern string, maxFiles int, exclude []string) ([]string, error)
}

// Guard wraps a Source with bounded retry so that a host whose index is
// still warming is distinguished from a host that genuinely has no
// symbols. Only not-ready responses are retried; every other error is
// surfaced on the first attempt.
type Guard struct {
	source       Source
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// NewGuard creates a Guard retrying up to maxAttempts with doubling
// backoff between initialDelay and maxDelay.
func NewGuard(source Source, maxAttempts int, initialDelay, maxDelay time.Duration) *Guard {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Guard{
		source:       source,
		maxAttempts:  maxAttempts,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
	}
}

func (g *Guard) DocumentSymbols(ctx context.Context, uri string) ([]types.SymbolRecord, error) {
	var records []types.SymbolRecord
	err := g.run(ctx, "documentSymbols", func(ctx context.Context) error {
		var err error
		records, err = g.source.DocumentSymbols(ctx, uri)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (g *Guard) WorkspaceFiles(ctx context.Context, pattern string, maxFiles int, exclude []string) ([]string, error) {
	var files []string
	err := g.run(ctx, "workspaceFiles", func(ctx context.Context) error {
		var err error
		files, err = g.source.WorkspaceFiles(ctx, pattern, maxFiles, exclude)
		return err
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (g *Guard) run(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := g.initialDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || !errors.IsNotReady(err) {
			return err
		}
		if attempt >= g.maxAttempts {
			return errors.NotReady(op, attempt)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return errors.Wrap(errors.CodeNotReady, "interrupted while waiting for the host index", "", ctx.Err())
		}
		if delay *= 2; delay > g.maxDelay {
			delay = g.maxDelay
		}
	}
}
