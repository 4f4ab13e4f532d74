package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultClipModel is the CLIP variant served by the sidecar.
	DefaultClipModel = "clip-vit-base-patch32"

	// DefaultClipDimension is the dimension for clip-vit-base-patch32.
	// CRITICAL: This MUST match the HNSW index dimension in SurrealDB schema.
	DefaultClipDimension = 512

	// DefaultClipHost is the sidecar address when none is configured.
	DefaultClipHost = "http://localhost:8093"
)

// ClipClient implements Embedder against a CLIP embedding sidecar that
// exposes /embed/text, /embed/image and /tokenize over HTTP.
type ClipClient struct {
	host      string
	model     string
	dimension int
	http      *http.Client
}

// Compile-time check that ClipClient implements Embedder.
var _ Embedder = (*ClipClient)(nil)

// NewClipClient creates a new CLIP sidecar client.
// If host is empty, uses DefaultClipHost. If model is empty, uses
// DefaultClipModel. If expectedDimension is 0, uses DefaultClipDimension.
func NewClipClient(host, model string, expectedDimension int) *ClipClient {
	if host == "" {
		host = DefaultClipHost
	}
	if model == "" {
		model = DefaultClipModel
	}
	if expectedDimension == 0 {
		expectedDimension = DefaultClipDimension
	}

	return &ClipClient{
		host:      host,
		model:     model,
		dimension: expectedDimension,
		http:      &http.Client{Timeout: 120 * time.Second},
	}
}

// Model returns the configured embedding model name.
func (c *ClipClient) Model() string {
	return c.model
}

// Dimension returns the expected embedding dimension.
func (c *ClipClient) Dimension() int {
	return c.dimension
}

type embedTextRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type embedImageRequest struct {
	Model string `json:"model"`
	Image string `json:"image"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type tokenizeRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

type tokenizeResponse struct {
	Count int `json:"count"`
}

// EmbedText generates an embedding vector for the given text.
// Returns exactly dimension-sized float32 vector or error if dimension mismatch.
func (c *ClipClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedTextBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return embeddings[0], nil
}

// EmbedTextBatch generates embeddings for multiple texts in a single request.
// All embeddings are verified to match the expected dimension.
func (c *ClipClient) EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var resp embedResponse
	err := c.post(ctx, "/embed/text", embedTextRequest{Model: c.model, Texts: texts}, &resp)
	if err != nil {
		return nil, fmt.Errorf("embed text batch: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d",
			len(resp.Embeddings), len(texts))
	}

	for i, emb := range resp.Embeddings {
		if len(emb) != c.dimension {
			return nil, fmt.Errorf("embedding %d dimension mismatch: got %d, want %d",
				i, len(emb), c.dimension)
		}
	}

	return resp.Embeddings, nil
}

// EmbedImage generates an embedding vector for raw image bytes.
// The image is sent base64-encoded; dimension is verified on the result.
func (c *ClipClient) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	req := embedImageRequest{
		Model: c.model,
		Image: base64.StdEncoding.EncodeToString(image),
	}

	var resp embedResponse
	if err := c.post(ctx, "/embed/image", req, &resp); err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	emb := resp.Embeddings[0]
	if len(emb) != c.dimension {
		return nil, fmt.Errorf("dimension mismatch: got %d, want %d (model: %s)",
			len(emb), c.dimension, c.model)
	}

	return emb, nil
}

// CountTokens reports how many CLIP tokenizer tokens the text consumes.
func (c *ClipClient) CountTokens(ctx context.Context, text string) (int, error) {
	var resp tokenizeResponse
	err := c.post(ctx, "/tokenize", tokenizeRequest{Model: c.model, Text: text}, &resp)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	if resp.Count < 0 {
		return 0, fmt.Errorf("negative token count: %d", resp.Count)
	}
	return resp.Count, nil
}

func (c *ClipClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request %s: status %d: %s", path, resp.StatusCode, string(tail))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
