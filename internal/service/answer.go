package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raphaelgruber/vidtalk/internal/index"
	"github.com/raphaelgruber/vidtalk/internal/llm"
	"github.com/raphaelgruber/vidtalk/internal/metrics"
)

// answerPrompt is the generation prompt. The context block carries the
// retrieved transcript chunks; retrieved frames ride along as images.
const answerPrompt = "Based on the following context (text and images) from a video, answer the user's query.\n\nText Context: \"%s\"\n\nQuery: \"%s\"\n\nAnswer:"

// NoContextPlaceholder stands in for the context block when no relevant
// transcript chunks were retrieved.
const NoContextPlaceholder = "No relevant text context found in the video for this query."

// VisionFallbackPrefix marks answers produced by the text-only fallback
// after the vision model failed.
const VisionFallbackPrefix = "(Vision model failed, using text only): "

// GenerationErrorAnswer is returned when both generation attempts fail.
const GenerationErrorAnswer = "Error generating answer from Gemini."

// AnswerEngine retrieves session context and generates answers.
type AnswerEngine struct {
	sessions *SessionStore
	index    Index
	embedder Embedder
	answerer Answerer
	metrics  *metrics.Collector

	textTopK  int
	imageTopK int

	// Model names used for token usage estimates.
	visionModel string
	textModel   string
}

// NewAnswerEngine creates an answer engine. answerer may be nil when no
// generation credential is configured; Answer then reports
// ErrNotConfigured. The metrics collector may be nil.
func NewAnswerEngine(
	sessions *SessionStore,
	idx Index,
	embedder Embedder,
	answerer Answerer,
	collector *metrics.Collector,
	textTopK, imageTopK int,
) *AnswerEngine {
	if textTopK <= 0 {
		textTopK = 3
	}
	if imageTopK <= 0 {
		imageTopK = 2
	}
	return &AnswerEngine{
		sessions:    sessions,
		index:       idx,
		embedder:    embedder,
		answerer:    answerer,
		metrics:     collector,
		textTopK:    textTopK,
		imageTopK:   imageTopK,
		visionModel: llm.DefaultVisionModel,
		textModel:   llm.DefaultTextModel,
	}
}

// WithModels sets the model names used for token usage estimates.
func (e *AnswerEngine) WithModels(visionModel, textModel string) *AnswerEngine {
	if visionModel != "" {
		e.visionModel = visionModel
	}
	if textModel != "" {
		e.textModel = textModel
	}
	return e
}

// Answer runs retrieval and generation for one query against a session.
// The session's idle clock is reset on every query. Upstream generation
// failures degrade (text-only fallback, then a fixed error answer)
// rather than surface as errors.
func (e *AnswerEngine) Answer(ctx context.Context, sessionID, query string) (string, error) {
	session, err := e.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}
	if err := e.sessions.Touch(sessionID); err != nil {
		return "", err
	}

	if e.answerer == nil {
		return "", ErrNotConfigured
	}

	queryEmbedding, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	searchStart := time.Now()
	textMatches, err := e.index.SearchKind(ctx, sessionID, index.KindText, queryEmbedding, e.textTopK)
	if err != nil {
		return "", fmt.Errorf("search text segments: %w", err)
	}
	imageMatches, err := e.index.SearchKind(ctx, sessionID, index.KindImage, queryEmbedding, e.imageTopK)
	if err != nil {
		return "", fmt.Errorf("search image segments: %w", err)
	}
	e.recordTiming(metrics.OpIndexSearch, searchStart)

	contextText := assembleContext(textMatches)
	images := e.loadFrames(session, imageMatches)
	prompt := fmt.Sprintf(answerPrompt, contextText, query)

	return e.generate(ctx, sessionID, prompt, images), nil
}

// generate tries multimodal generation first, then degrades to text-only
// with a marker prefix, then to the fixed error answer.
func (e *AnswerEngine) generate(ctx context.Context, sessionID, prompt string, images [][]byte) string {
	generateStart := time.Now()
	answer, err := e.answerer.AnswerMultimodal(ctx, prompt, images)
	if err == nil {
		e.recordLLMUsage(metrics.OpLLMGenerate, e.visionModel, generateStart, prompt, answer)
		return answer
	}
	slog.Warn("vision generation failed, falling back to text-only",
		"session_id", sessionID, "error", err)

	fallbackStart := time.Now()
	answer, err = e.answerer.AnswerText(ctx, prompt)
	if err == nil {
		e.recordLLMUsage(metrics.OpLLMFallback, e.textModel, fallbackStart, prompt, answer)
		return VisionFallbackPrefix + answer
	}
	slog.Error("text fallback generation failed", "session_id", sessionID, "error", err)

	return GenerationErrorAnswer
}

// assembleContext joins retrieved chunks in rank order, or substitutes
// the placeholder when nothing relevant was found.
func assembleContext(matches []index.Match) string {
	if len(matches) == 0 {
		return NoContextPlaceholder
	}

	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Payload
	}
	return strings.Join(parts, "\n\n")
}

// loadFrames resolves image matches to frame file bytes. Frames that
// went missing from disk are skipped so one lost file does not sink the
// whole query.
func (e *AnswerEngine) loadFrames(session Session, matches []index.Match) [][]byte {
	var images [][]byte
	for _, m := range matches {
		path := filepath.Join(session.Dir, "frames", m.Payload)
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable frame", "session_id", session.ID, "frame", m.Payload, "error", err)
			continue
		}
		images = append(images, data)
	}
	return images
}

func (e *AnswerEngine) recordTiming(op string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordTiming(op, time.Since(start))
	}
}

func (e *AnswerEngine) recordLLMUsage(op, model string, start time.Time, prompt, answer string) {
	if e.metrics != nil {
		e.metrics.RecordLLMUsage(op, time.Since(start),
			int64(llm.EstimateTokens(model, prompt)),
			int64(llm.EstimateTokens(model, answer)))
	}
}
