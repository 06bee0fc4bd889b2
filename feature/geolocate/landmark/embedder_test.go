package landmark

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		assert.Equal(t, "fake-image-bytes", string(body))
		assert.Equal(t, "application/octet-stream", req.Header.Get("Content-Type"))
		fmt.Fprint(w, `{"embedding":[0.1,0.2,0.3]}`)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, srv.Client())
	vec, err := e.Embed(context.Background(), []byte("fake-image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestHTTPEmbedder_Errors(t *testing.T) {
	t.Run("Non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		e := NewHTTPEmbedder(srv.URL, srv.Client())
		_, err := e.Embed(context.Background(), []byte("img"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("Empty embedding", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"embedding":[]}`)
		}))
		defer srv.Close()

		e := NewHTTPEmbedder(srv.URL, srv.Client())
		_, err := e.Embed(context.Background(), []byte("img"))
		assert.Error(t, err)
	})
}
