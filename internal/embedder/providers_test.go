package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllamaTestServer(t *testing.T, dim int, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/api/embeddings", r.URL.Path)

		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Prompt)

		vec := make([]float32, dim)
		vec[0] = float32(len(req.Prompt))
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
	}))
}

func TestOllamaProvider_EmbedBatch(t *testing.T) {
	var calls atomic.Int64
	srv := newOllamaTestServer(t, 8, &calls)
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", 8, nil)
	defer p.Close()

	vectors, err := p.EmbedBatch(context.Background(), []string{"one", "pair"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(3), vectors[0][0])
	assert.Equal(t, float32(4), vectors[1][0])
	assert.Equal(t, int64(2), calls.Load())
}

func TestOllamaProvider_CacheSkipsNetwork(t *testing.T) {
	var calls atomic.Int64
	srv := newOllamaTestServer(t, 8, &calls)
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", 8, NewCache(10))
	defer p.Close()

	_, err := p.EmbedBatch(context.Background(), []string{"same text"})
	require.NoError(t, err)
	_, err = p.EmbedBatch(context.Background(), []string{"same text"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
}

func TestOllamaProvider_DimensionMismatch(t *testing.T) {
	var calls atomic.Int64
	srv := newOllamaTestServer(t, 8, &calls)
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", 16, nil)
	defer p.Close()

	_, err := p.EmbedBatch(context.Background(), []string{"text"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestOllamaProvider_ServerErrorRetriesThenFails(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "missing", 8, nil)
	defer p.Close()

	_, err := p.EmbedBatch(context.Background(), []string{"text"})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, int64(MaxRetries), calls.Load())
}

func TestOpenAIProvider_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		// respond out of order to exercise index-based reassembly
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, 4)
			vec[0] = float32(i)
			data[len(req.Input)-1-i] = map[string]any{"embedding": vec, "index": i}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("test-key", "text-embedding-3-small", 4, nil)
	require.NoError(t, err)
	p.baseURL = srv.URL
	defer p.Close()

	vectors, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0])
	}
}

func TestOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider("", "", 0, nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}
