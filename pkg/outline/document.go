package outline

import "time"

// Document is a read-only snapshot of a remote document.
// Title is the identity key used when reconciling local files.
type Document struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Text         string    `json:"text,omitempty" yaml:"text,omitempty"`
	CollectionID string    `json:"collectionId,omitempty" yaml:"collection_id,omitempty"`
	URLID        string    `json:"urlId,omitempty" yaml:"url_id,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero" yaml:"updated_at,omitempty"`
}

// envelope is the `{"data": ...}` wrapper around every API response.
type envelope[T any] struct {
	Data T `json:"data"`
}

type listRequest struct {
	CollectionID string `json:"collectionId"`
	Limit        int    `json:"limit"`
	Offset       int    `json:"offset"`
}

type searchTitlesRequest struct {
	Query        string `json:"query"`
	CollectionID string `json:"collectionId,omitempty"`
}

type createRequest struct {
	Title        string `json:"title"`
	Text         string `json:"text"`
	CollectionID string `json:"collectionId"`
	Publish      bool   `json:"publish"`
}

type updateRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type deleteRequest struct {
	ID string `json:"id"`
}
