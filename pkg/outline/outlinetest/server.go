// Package outlinetest provides an in-memory Outline API server for tests.
package outlinetest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agentstation/docsync/internal/transport"
	"github.com/agentstation/docsync/pkg/logging"
	"github.com/agentstation/docsync/pkg/outline"
)

// APIKey is the bearer token the server accepts.
const APIKey = "test-api-key"

// Call is one request received by the server.
type Call struct {
	Endpoint string
	Payload  map[string]any
}

// Server is a fake document service holding documents in listing order.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	authHeader string
	docs       []outline.Document
	nextID   int
	calls    []Call
	failures map[string]int
}

// NewServer starts a server seeded with docs. It is closed when the test ends.
func NewServer(t testing.TB, docs ...outline.Document) *Server {
	t.Helper()

	s := &Server{
		docs:     append([]outline.Document(nil), docs...),
		failures: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Client returns an outline client wired to this server. Retries do not sleep.
func (s *Server) Client(opts ...outline.Option) *outline.Client {
	return outline.New(s.URL, APIKey, []transport.Option{
		transport.WithHTTPClient(s.Server.Client()),
		transport.WithSleeper(func(context.Context, time.Duration) error { return nil }),
		transport.WithLogger(logging.NewNopLogger()),
	}, opts...)
}

// RequireHeader makes the server expect the raw API key in header instead of
// a bearer Authorization header.
func (s *Server) RequireHeader(header string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authHeader = header
}

func (s *Server) authorized(r *http.Request) bool {
	s.mu.Lock()
	header := s.authHeader
	s.mu.Unlock()
	if header != "" {
		return r.Header.Get(header) == APIKey
	}
	return r.Header.Get("Authorization") == "Bearer "+APIKey
}

// FailOn makes calls to endpoint whose title or id equals key answer with status.
func (s *Server) FailOn(endpoint, key string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[endpoint+"\x00"+key] = status
}

// Documents returns a copy of the stored documents.
func (s *Server) Documents() []outline.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outline.Document(nil), s.docs...)
}

// Titles returns the stored titles in listing order.
func (s *Server) Titles() []string {
	docs := s.Documents()
	titles := make([]string, len(docs))
	for i, d := range docs {
		titles[i] = d.Title
	}
	return titles
}

// Calls returns every request received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo counts requests to endpoint.
func (s *Server) CallsTo(endpoint string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Endpoint == endpoint {
			n++
		}
	}
	return n
}

// WriteCalls counts create, update and delete requests.
func (s *Server) WriteCalls() int {
	return s.CallsTo(outline.EndpointCreate) + s.CallsTo(outline.EndpointUpdate) + s.CallsTo(outline.EndpointDelete)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	endpoint := strings.TrimPrefix(r.URL.Path, "/api/")
	payload := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Endpoint: endpoint, Payload: payload})

	for _, key := range []string{str(payload, "title"), str(payload, "id")} {
		if status, ok := s.failures[endpoint+"\x00"+key]; ok && key != "" {
			writeError(w, status, "injected failure")
			return
		}
	}

	switch endpoint {
	case outline.EndpointList:
		s.list(w, payload)
	case outline.EndpointSearchTitles:
		s.search(w, payload)
	case outline.EndpointCreate:
		s.create(w, payload)
	case outline.EndpointUpdate:
		s.update(w, payload)
	case outline.EndpointDelete:
		s.delete(w, payload)
	default:
		writeError(w, http.StatusNotFound, "unknown endpoint "+endpoint)
	}
}

func (s *Server) list(w http.ResponseWriter, p map[string]any) {
	collection := str(p, "collectionId")
	var matched []outline.Document
	for _, d := range s.docs {
		if collection == "" || d.CollectionID == collection {
			matched = append(matched, d)
		}
	}

	offset, limit := num(p, "offset"), num(p, "limit")
	if offset > len(matched) {
		offset = len(matched)
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	writeData(w, append([]outline.Document{}, matched[offset:end]...))
}

func (s *Server) search(w http.ResponseWriter, p map[string]any) {
	query := strings.ToLower(str(p, "query"))
	collection := str(p, "collectionId")
	results := []outline.Document{}
	for _, d := range s.docs {
		if collection != "" && d.CollectionID != collection {
			continue
		}
		if strings.Contains(strings.ToLower(d.Title), query) {
			results = append(results, d)
		}
	}
	writeData(w, results)
}

func (s *Server) create(w http.ResponseWriter, p map[string]any) {
	title := str(p, "title")
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	s.nextID++
	doc := outline.Document{
		ID:           fmt.Sprintf("doc-%d", s.nextID),
		Title:        title,
		Text:         str(p, "text"),
		CollectionID: str(p, "collectionId"),
		UpdatedAt:    time.Now().UTC(),
	}
	s.docs = append(s.docs, doc)
	writeData(w, doc)
}

func (s *Server) update(w http.ResponseWriter, p map[string]any) {
	i := s.indexOf(str(p, "id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	s.docs[i].Title = str(p, "title")
	s.docs[i].Text = str(p, "text")
	s.docs[i].UpdatedAt = time.Now().UTC()
	writeData(w, s.docs[i])
}

func (s *Server) delete(w http.ResponseWriter, p map[string]any) {
	i := s.indexOf(str(p, "id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	s.docs = append(s.docs[:i], s.docs[i+1:]...)
	writeData(w, true)
}

func (s *Server) indexOf(id string) int {
	for i, d := range s.docs {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func str(p map[string]any, key string) string {
	v, _ := p[key].(string)
	return v
}

func num(p map[string]any, key string) int {
	v, _ := p[key].(float64)
	return int(v)
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": message})
}
