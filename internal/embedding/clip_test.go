// Package embedding_test contains tests for the CLIP sidecar client.
package embedding_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/raphaelgruber/vidtalk/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSidecar serves the CLIP sidecar API with deterministic vectors.
func fakeSidecar(t *testing.T, dimension int) *httptest.Server {
	t.Helper()

	vector := func() []float32 {
		v := make([]float32, dimension)
		for i := range v {
			v[i] = 0.5
		}
		return v
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/embed/text", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Texts []string `json:"texts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		embeddings := make([][]float32, len(req.Texts))
		for i := range req.Texts {
			embeddings[i] = vector()
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	})
	mux.HandleFunc("/embed/image", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := base64.StdEncoding.DecodeString(req.Image); err != nil {
			http.Error(w, "bad base64", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{vector()}})
	})
	mux.HandleFunc("/tokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]int{"count": len(strings.Fields(req.Text))})
	})

	return httptest.NewServer(mux)
}

func TestNewClipClientDefaults(t *testing.T) {
	client := embedding.NewClipClient("", "", 0)
	assert.Equal(t, embedding.DefaultClipModel, client.Model())
	assert.Equal(t, embedding.DefaultClipDimension, client.Dimension())
}

func TestNewClipClientCustom(t *testing.T) {
	client := embedding.NewClipClient("http://example.test", "clip-vit-large-patch14", 768)
	assert.Equal(t, "clip-vit-large-patch14", client.Model())
	assert.Equal(t, 768, client.Dimension())
}

func TestEmbedText(t *testing.T) {
	server := fakeSidecar(t, 8)
	defer server.Close()

	client := embedding.NewClipClient(server.URL, "", 8)

	emb, err := client.EmbedText(context.Background(), "a cat on a mat")
	require.NoError(t, err, "should generate embedding")
	assert.Len(t, emb, 8, "embedding must match configured dimension")
}

func TestEmbedTextBatch(t *testing.T) {
	server := fakeSidecar(t, 8)
	defer server.Close()

	client := embedding.NewClipClient(server.URL, "", 8)

	texts := []string{"first chunk", "second chunk", "third chunk"}
	embeddings, err := client.EmbedTextBatch(context.Background(), texts)
	require.NoError(t, err, "should generate batch embeddings")
	assert.Len(t, embeddings, len(texts), "should return one embedding per text")
	for i, emb := range embeddings {
		assert.Len(t, emb, 8, "embedding %d must match configured dimension", i)
	}
}

func TestEmbedTextBatchEmpty(t *testing.T) {
	client := embedding.NewClipClient("http://unreachable.test", "", 8)

	embeddings, err := client.EmbedTextBatch(context.Background(), []string{})
	require.NoError(t, err, "should handle empty batch without a request")
	assert.Len(t, embeddings, 0)
}

func TestEmbedImage(t *testing.T) {
	server := fakeSidecar(t, 8)
	defer server.Close()

	client := embedding.NewClipClient(server.URL, "", 8)

	emb, err := client.EmbedImage(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0})
	require.NoError(t, err, "should embed image bytes")
	assert.Len(t, emb, 8)
}

func TestEmbedImageEmpty(t *testing.T) {
	client := embedding.NewClipClient("http://unreachable.test", "", 8)

	_, err := client.EmbedImage(context.Background(), nil)
	require.Error(t, err, "empty image must be rejected before any request")
}

func TestEmbedTextDimensionMismatch(t *testing.T) {
	server := fakeSidecar(t, 8)
	defer server.Close()

	// Client expects 512, sidecar serves 8-dimensional vectors.
	client := embedding.NewClipClient(server.URL, "", 512)

	_, err := client.EmbedText(context.Background(), "mismatched")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestCountTokens(t *testing.T) {
	server := fakeSidecar(t, 8)
	defer server.Close()

	client := embedding.NewClipClient(server.URL, "", 8)

	count, err := client.CountTokens(context.Background(), "five words in this text")
	require.NoError(t, err, "should count tokens")
	assert.Equal(t, 5, count)
}

func TestSidecarErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := embedding.NewClipClient(server.URL, "", 8)

	_, err := client.EmbedText(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "model not loaded")
}
