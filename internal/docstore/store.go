// Package docstore resolves documents, the document list and card data from
// the static origin. Lookups never fail: any fetch or decode error is logged
// and answered with fallback data.
package docstore

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/dgallion1/docview/internal/metrics"
)

// DocPath is the origin path of a document's AST.
func DocPath(pk string) string { return "/docs/" + url.PathEscape(pk) + "/doc.json" }

// ListPath is the origin path of the document list.
const ListPath = "/docs/docs-db.json"

// Store caches fetched documents by primary key for the life of the process.
// The cache is unbounded and never evicted. Concurrent lookups of the same
// uncached key each fetch; the last one to finish wins.
type Store struct {
	client  *Client
	log     *slog.Logger
	metrics *metrics.Collector

	mu    sync.RWMutex
	cache map[string]*ast.DocInfo
}

func NewStore(client *Client, m *metrics.Collector, log *slog.Logger) *Store {
	return &Store{
		client:  client,
		log:     log.With("component", "docstore"),
		metrics: m,
		cache:   make(map[string]*ast.DocInfo),
	}
}

// Document returns the document for pk, or the Not Found document. Fallbacks
// are not cached, so a later lookup retries the origin.
func (s *Store) Document(ctx context.Context, pk string) *ast.DocInfo {
	if doc, ok := s.Cached(pk); ok {
		s.metrics.DocFetch("hit")
		return doc
	}
	if pk == "" {
		s.metrics.DocFetch("fallback")
		return ast.NotFound()
	}

	var root ast.Node
	if err := s.client.GetJSON(ctx, DocPath(pk), &root); err != nil {
		s.log.Warn("document fetch failed", "pk", pk, "error", err)
		s.metrics.DocFetch("fallback")
		return ast.NotFound()
	}
	doc, err := ast.InfoOf(&root)
	if err != nil {
		s.log.Warn("document rejected", "pk", pk, "type", string(root.Type), "error", err)
		s.metrics.DocFetch("fallback")
		return ast.NotFound()
	}

	s.mu.Lock()
	s.cache[pk] = doc
	s.mu.Unlock()
	s.metrics.DocFetch("miss")
	return doc
}

// Cached returns a document only if it is already cached.
func (s *Store) Cached(pk string) (*ast.DocInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.cache[pk]
	return doc, ok
}

// List returns the document rows, or an empty list on failure. The list is
// not cached.
func (s *Store) List(ctx context.Context) []ast.DocRow {
	var rows []ast.DocRow
	if err := s.client.GetJSON(ctx, ListPath, &rows); err != nil {
		s.log.Error("document list fetch failed", "error", err)
		s.metrics.ListFetch("fallback")
		return []ast.DocRow{}
	}
	if rows == nil {
		rows = []ast.DocRow{}
	}
	s.metrics.ListFetch("ok")
	return rows
}
