package transport

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerAuth(t *testing.T) {
	t.Run("sets authorization header", func(t *testing.T) {
		req := &http.Request{Header: make(http.Header)}
		(&BearerAuth{}).Apply(req, "test-api-key")
		assert.Equal(t, "Bearer test-api-key", req.Header.Get("Authorization"))
	})

	t.Run("empty key leaves request untouched", func(t *testing.T) {
		req := &http.Request{Header: make(http.Header)}
		(&BearerAuth{}).Apply(req, "")
		assert.Empty(t, req.Header.Get("Authorization"))
	})
}

func TestHeaderAuth(t *testing.T) {
	t.Run("sets the named header", func(t *testing.T) {
		req := &http.Request{Header: make(http.Header)}
		(&HeaderAuth{Header: "x-api-key"}).Apply(req, "test-api-key")
		assert.Equal(t, "test-api-key", req.Header.Get("x-api-key"))
		assert.Empty(t, req.Header.Get("Authorization"))
	})

	t.Run("empty header or key leaves request untouched", func(t *testing.T) {
		req := &http.Request{Header: make(http.Header)}
		(&HeaderAuth{}).Apply(req, "test-api-key")
		(&HeaderAuth{Header: "x-api-key"}).Apply(req, "")
		assert.Empty(t, req.Header)
	})
}
