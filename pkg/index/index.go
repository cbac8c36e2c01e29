// Package index builds the title-keyed lookup of a collection's documents.
//
// An Index is built once per run from a single listing pass and is never
// refreshed or mutated afterwards. When two remote documents share a title,
// the one listed last wins; such duplicates are counted, not rejected.
package index

import (
	"context"
	"iter"
	"slices"

	"github.com/rs/zerolog"

	"github.com/agentstation/docsync/pkg/logging"
	"github.com/agentstation/docsync/pkg/outline"
)

// Lister yields the documents of a collection page by page.
type Lister interface {
	Pages(ctx context.Context, collectionID string) iter.Seq2[[]outline.Document, error]
}

// Index maps document titles to documents.
type Index struct {
	docs       map[string]outline.Document
	duplicates int
}

// Build lists the collection once and folds every page into an Index.
func Build(ctx context.Context, lister Lister, collectionID string) (*Index, error) {
	logger := logging.FromContext(ctx)

	idx := &Index{docs: make(map[string]outline.Document)}
	pages := 0
	for page, err := range lister.Pages(ctx, collectionID) {
		if err != nil {
			return nil, err
		}
		pages++
		idx.add(page...)
	}

	logIndex(logger, idx, collectionID, pages)
	return idx, nil
}

// New builds an Index from documents already in memory, in listing order.
func New(docs ...outline.Document) *Index {
	idx := &Index{docs: make(map[string]outline.Document, len(docs))}
	idx.add(docs...)
	return idx
}

func (idx *Index) add(docs ...outline.Document) {
	for _, doc := range docs {
		if _, exists := idx.docs[doc.Title]; exists {
			idx.duplicates++
		}
		idx.docs[doc.Title] = doc
	}
}

// Get returns the document stored under title.
func (idx *Index) Get(title string) (outline.Document, bool) {
	if idx == nil {
		return outline.Document{}, false
	}
	doc, ok := idx.docs[title]
	return doc, ok
}

// Len returns the number of distinct titles.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.docs)
}

// Duplicates returns how many listed documents were shadowed by a later
// document with the same title.
func (idx *Index) Duplicates() int {
	if idx == nil {
		return 0
	}
	return idx.duplicates
}

// Titles returns the indexed titles in sorted order.
func (idx *Index) Titles() []string {
	if idx == nil {
		return nil
	}
	titles := make([]string, 0, len(idx.docs))
	for title := range idx.docs {
		titles = append(titles, title)
	}
	slices.Sort(titles)
	return titles
}

// Documents returns the indexed documents sorted by title.
func (idx *Index) Documents() []outline.Document {
	titles := idx.Titles()
	docs := make([]outline.Document, len(titles))
	for i, title := range titles {
		docs[i] = idx.docs[title]
	}
	return docs
}

func logIndex(logger *zerolog.Logger, idx *Index, collectionID string, pages int) {
	logger.Info().
		Str("collection_id", collectionID).
		Int("documents", idx.Len()).
		Int("pages", pages).
		Msg("Built document index")

	if idx.duplicates > 0 {
		logger.Warn().
			Str("collection_id", collectionID).
			Int("duplicates", idx.duplicates).
			Msg("Duplicate document titles in collection; the last listed document wins")
	}
}
