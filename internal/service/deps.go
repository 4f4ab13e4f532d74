package service

import (
	"context"

	"github.com/raphaelgruber/vidtalk/internal/index"
)

// Extractor downloads a video and turns it into audio and frame files.
type Extractor interface {
	Download(ctx context.Context, url, dir string) (string, error)
	HasAudioStream(ctx context.Context, videoPath string) (bool, error)
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
	ExtractFrames(ctx context.Context, videoPath, framesDir string, intervalSeconds float64) ([]string, error)
}

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Embedder produces text and image embeddings in a shared vector space.
// CountTokens is authoritative for transcript chunk sizing.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
	CountTokens(ctx context.Context, text string) (int, error)
}

// Index stores and retrieves per-session embedding segments.
type Index interface {
	BulkInsert(ctx context.Context, segments []index.SegmentInput) error
	SearchKind(ctx context.Context, session, kind string, embedding []float32, limit int) ([]index.Match, error)
	DropSession(ctx context.Context, session string) error
}

// Answerer generates answers from prompts, optionally with images.
type Answerer interface {
	AnswerMultimodal(ctx context.Context, prompt string, images [][]byte) (string, error)
	AnswerText(ctx context.Context, prompt string) (string, error)
}
