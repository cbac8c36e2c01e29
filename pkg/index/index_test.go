package index_test

import (
	"context"
	"fmt"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/index"
	"github.com/agentstation/docsync/pkg/logging"
	"github.com/agentstation/docsync/pkg/outline"
	"github.com/agentstation/docsync/pkg/outline/outlinetest"
)

// pageLister serves fixed pages and counts how often it is consumed.
type pageLister struct {
	pages    [][]outline.Document
	err      error
	consumed int
}

func (l *pageLister) Pages(context.Context, string) iter.Seq2[[]outline.Document, error] {
	return func(yield func([]outline.Document, error) bool) {
		l.consumed++
		for _, p := range l.pages {
			if !yield(p, nil) {
				return
			}
		}
		if l.err != nil {
			yield(nil, l.err)
		}
	}
}

func TestNew(t *testing.T) {
	idx := index.New(
		outline.Document{ID: "1", Title: "b.md"},
		outline.Document{ID: "2", Title: "a.md"},
	)

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, []string{"a.md", "b.md"}, idx.Titles())

	doc, ok := idx.Get("b.md")
	require.True(t, ok)
	assert.Equal(t, "1", doc.ID)

	_, ok = idx.Get("c.md")
	assert.False(t, ok)
}

func TestDuplicateTitlesLastWins(t *testing.T) {
	idx := index.New(
		outline.Document{ID: "first", Title: "dup.md"},
		outline.Document{ID: "other", Title: "x.md"},
		outline.Document{ID: "second", Title: "dup.md"},
	)

	doc, ok := idx.Get("dup.md")
	require.True(t, ok)
	assert.Equal(t, "second", doc.ID)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 1, idx.Duplicates())
}

func TestNilIndex(t *testing.T) {
	var idx *index.Index

	_, ok := idx.Get("a.md")
	assert.False(t, ok)
	assert.Zero(t, idx.Len())
	assert.Zero(t, idx.Duplicates())
	assert.Nil(t, idx.Titles())
}

func TestBuild(t *testing.T) {
	t.Run("folds every page once", func(t *testing.T) {
		lister := &pageLister{pages: [][]outline.Document{
			{{ID: "1", Title: "a.md"}, {ID: "2", Title: "b.md"}},
			{{ID: "3", Title: "a.md"}},
		}}

		idx, err := index.Build(context.Background(), lister, "col")

		require.NoError(t, err)
		assert.Equal(t, 1, lister.consumed)
		assert.Equal(t, 2, idx.Len())
		doc, _ := idx.Get("a.md")
		assert.Equal(t, "3", doc.ID)
	})

	t.Run("empty collection", func(t *testing.T) {
		idx, err := index.Build(context.Background(), &pageLister{}, "col")

		require.NoError(t, err)
		assert.Zero(t, idx.Len())
	})

	t.Run("listing failure aborts", func(t *testing.T) {
		lister := &pageLister{
			pages: [][]outline.Document{{{ID: "1", Title: "a.md"}}},
			err:   errors.NewNetworkError("documents.list", 3, fmt.Errorf("connection reset")),
		}

		idx, err := index.Build(context.Background(), lister, "col")

		assert.Nil(t, idx)
		assert.True(t, errors.IsNetwork(err))
	})

	t.Run("warns about duplicates", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		lister := &pageLister{pages: [][]outline.Document{
			{{ID: "1", Title: "a.md"}, {ID: "2", Title: "a.md"}},
		}}

		_, err := index.Build(ctx, lister, "col")

		require.NoError(t, err)
		tl.AssertContains(t, "Built document index")
		tl.AssertContains(t, "Duplicate document titles")
	})
}

func TestBuildAgainstServer(t *testing.T) {
	docs := make([]outline.Document, 0, 205)
	for i := range 205 {
		docs = append(docs, outline.Document{ID: fmt.Sprint(i), Title: fmt.Sprintf("p%03d.md", i), CollectionID: "col"})
	}
	srv := outlinetest.NewServer(t, docs...)

	idx, err := index.Build(context.Background(), srv.Client(), "col")

	require.NoError(t, err)
	assert.Equal(t, 205, idx.Len())
	assert.Equal(t, 3, srv.CallsTo(outline.EndpointList))
	assert.Len(t, idx.Documents(), 205)
}
