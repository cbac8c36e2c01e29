// Package outline provides typed document operations against an
// Outline-compatible document service.
//
// Every operation is a single JSON call through a Caller (normally
// *transport.Client), so rate limiting and transport failures are already
// retried by the time an error reaches this package.
package outline

import (
	"context"
	"iter"

	"github.com/agentstation/docsync/internal/transport"
	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
)

// API endpoints.
const (
	EndpointList         = "documents.list"
	EndpointSearchTitles = "documents.search_titles"
	EndpointCreate       = "documents.create"
	EndpointUpdate       = "documents.update"
	EndpointDelete       = "documents.delete"
)

// Caller performs one API call, decoding the response body into out.
type Caller interface {
	Call(ctx context.Context, endpoint string, payload, out any) error
}

// Client implements the document operations used by a sync run.
type Client struct {
	caller   Caller
	pageSize int
	publish  bool
}

// Option configures a Client.
type Option func(*Client)

// WithPageSize sets the documents.list page size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithPublish controls whether created documents are published immediately.
func WithPublish(publish bool) Option {
	return func(c *Client) {
		c.publish = publish
	}
}

// NewClient creates a client on top of an existing Caller.
func NewClient(caller Caller, opts ...Option) *Client {
	c := &Client{
		caller:   caller,
		pageSize: constants.DefaultPageSize,
		publish:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New creates a client talking to baseURL with the given API key.
func New(baseURL, apiKey string, transportOpts []transport.Option, opts ...Option) *Client {
	return NewClient(transport.New(baseURL, apiKey, transportOpts...), opts...)
}

// Pages returns the documents of a collection as a lazy sequence of pages.
// Iteration stops after an empty page or a page shorter than the page size;
// a failed call is yielded once and ends the sequence.
func (c *Client) Pages(ctx context.Context, collectionID string) iter.Seq2[[]Document, error] {
	return func(yield func([]Document, error) bool) {
		offset := 0
		for {
			var resp envelope[[]Document]
			req := listRequest{CollectionID: collectionID, Limit: c.pageSize, Offset: offset}
			if err := c.caller.Call(ctx, EndpointList, req, &resp); err != nil {
				yield(nil, errors.WrapResource("list", "documents", collectionID, err))
				return
			}

			if len(resp.Data) == 0 {
				return
			}
			if !yield(resp.Data, nil) {
				return
			}
			if len(resp.Data) < c.pageSize {
				return
			}
			offset += c.pageSize
		}
	}
}

// ListDocuments returns every document of a collection in listing order.
func (c *Client) ListDocuments(ctx context.Context, collectionID string) ([]Document, error) {
	var docs []Document
	for page, err := range c.Pages(ctx, collectionID) {
		if err != nil {
			return nil, err
		}
		docs = append(docs, page...)
	}
	return docs, nil
}

// SearchTitles returns documents whose title matches query.
func (c *Client) SearchTitles(ctx context.Context, query, collectionID string) ([]Document, error) {
	var resp envelope[[]Document]
	req := searchTitlesRequest{Query: query, CollectionID: collectionID}
	if err := c.caller.Call(ctx, EndpointSearchTitles, req, &resp); err != nil {
		return nil, errors.WrapResource("search", "documents", query, err)
	}
	return resp.Data, nil
}

// FindByExactTitle returns the first search result whose title equals title
// exactly, or nil when there is none.
func (c *Client) FindByExactTitle(ctx context.Context, title, collectionID string) (*Document, error) {
	results, err := c.SearchTitles(ctx, title, collectionID)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if results[i].Title == title {
			doc := results[i]
			return &doc, nil
		}
	}
	return nil, nil
}

// CreateDocument creates a document in the collection.
func (c *Client) CreateDocument(ctx context.Context, title, text, collectionID string) (*Document, error) {
	var resp envelope[Document]
	req := createRequest{Title: title, Text: text, CollectionID: collectionID, Publish: c.publish}
	if err := c.caller.Call(ctx, EndpointCreate, req, &resp); err != nil {
		return nil, errors.WrapResource("create", "document", title, err)
	}
	return &resp.Data, nil
}

// UpdateDocument replaces the title and text of an existing document.
func (c *Client) UpdateDocument(ctx context.Context, id, title, text string) (*Document, error) {
	var resp envelope[Document]
	req := updateRequest{ID: id, Title: title, Text: text}
	if err := c.caller.Call(ctx, EndpointUpdate, req, &resp); err != nil {
		return nil, errors.WrapResource("update", "document", id, err)
	}
	return &resp.Data, nil
}

// DeleteDocument deletes a document by id.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if err := c.caller.Call(ctx, EndpointDelete, deleteRequest{ID: id}, nil); err != nil {
		return errors.WrapResource("delete", "document", id, err)
	}
	return nil
}
