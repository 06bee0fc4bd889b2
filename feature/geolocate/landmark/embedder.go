package landmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPEmbedder calls a remote embedding service: POST the raw image,
// receive {"embedding": [...]}. The model itself (CLIP or similar)
// lives behind that service; this client knows nothing about it beyond
// the wire shape.
type HTTPEmbedder struct {
	url    string
	client *http.Client
}

// NewHTTPEmbedder creates an embedder client for the given endpoint.
// A nil httpClient uses http.DefaultClient; callers pass one with
// timeouts set for production use.
func NewHTTPEmbedder(url string, httpClient *http.Client) *HTTPEmbedder {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPEmbedder{url: url, client: httpClient}
}

// Embed posts the image and decodes the embedding vector.
func (e *HTTPEmbedder) Embed(ctx context.Context, image []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedder returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embedder returned empty embedding")
	}
	return out.Embedding, nil
}
