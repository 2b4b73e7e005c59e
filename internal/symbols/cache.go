package symbols

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"idebridge/pkg/types"
)

const defaultCacheSize = 256

// Cache is a read-through LRU over per-document symbol fetches. The host
// remains the source of truth; cached entries are advisory and evicted by
// capacity or explicit invalidation after a document is known to have
// changed. Workspace file listings are never cached, they are cheap and
// mutate outside our view.
type Cache struct {
	source Source
	docs   *lru.Cache[string, []types.SymbolRecord]
}

// NewCache creates a Cache holding up to size documents. A size of zero or
// less falls back to the default capacity.
func NewCache(source Source, size int) *Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	docs, _ := lru.New[string, []types.SymbolRecord](size)
	return &Cache{source: source, docs: docs}
}

func (c *Cache) DocumentSymbols(ctx context.Context, uri string) ([]types.SymbolRecord, error) {
	if records, ok := c.docs.Get(uri); ok {
		return records, nil
	}
	records, err := c.source.DocumentSymbols(ctx, uri)
	if err != nil {
		return nil, err
	}
	c.docs.Add(uri, records)
	return records, nil
}

func (c *Cache) WorkspaceFiles(ctx context.Context, pattern string, maxFiles int, exclude []string) ([]string, error) {
	return c.source.WorkspaceFiles(ctx, pattern, maxFiles, exclude)
}

// Invalidate drops one document's cached symbols.
func (c *Cache) Invalidate(uri string) {
	c.docs.Remove(uri)
}

// Reset drops every cached document.
func (c *Cache) Reset() {
	c.docs.Purge()
}
