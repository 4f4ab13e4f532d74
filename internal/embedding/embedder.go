// Package embedding provides multimodal embedding generation backed by a
// CLIP model server.
package embedding

import "context"

// Embedder defines the interface for multimodal embedding providers.
// Text and image embeddings share the same vector space so that a text
// query can retrieve visually relevant frames.
type Embedder interface {
	// EmbedText generates an embedding vector for a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTextBatch generates embeddings for multiple texts.
	// More efficient than multiple EmbedText calls for bulk operations.
	EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedImage generates an embedding vector for raw image bytes.
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)

	// CountTokens reports how many model tokens a text consumes.
	// This tokenizer is authoritative for transcript chunk sizing.
	CountTokens(ctx context.Context, text string) (int, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	// CRITICAL: Must match HNSW index dimension in SurrealDB schema.
	Dimension() int
}
