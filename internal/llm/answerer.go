// Package llm wraps the Gemini models used for answer generation.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// Default model names. The vision model handles multimodal prompts; the
// text model is the cheaper fallback when vision generation fails.
const (
	DefaultVisionModel = "gemini-1.5-flash"
	DefaultTextModel   = "gemini-1.5-flash-8b"
)

// GeminiAnswerer generates answers via the Gemini API through langchaingo.
type GeminiAnswerer struct {
	llm         llms.Model
	visionModel string
	textModel   string
}

// NewGeminiAnswerer creates an answerer for the given API key.
func NewGeminiAnswerer(ctx context.Context, apiKey, visionModel, textModel string) (*GeminiAnswerer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key required")
	}
	if visionModel == "" {
		visionModel = DefaultVisionModel
	}
	if textModel == "" {
		textModel = DefaultTextModel
	}

	model, err := googleai.New(ctx, googleai.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create googleai model: %w", err)
	}

	return &GeminiAnswerer{
		llm:         model,
		visionModel: visionModel,
		textModel:   textModel,
	}, nil
}

// VisionModel returns the multimodal model name.
func (a *GeminiAnswerer) VisionModel() string {
	return a.visionModel
}

// TextModel returns the text fallback model name.
func (a *GeminiAnswerer) TextModel() string {
	return a.textModel
}

// AnswerMultimodal generates an answer from a text prompt plus JPEG frames.
func (a *GeminiAnswerer) AnswerMultimodal(ctx context.Context, prompt string, images [][]byte) (string, error) {
	parts := make([]llms.ContentPart, 0, len(images)+1)
	parts = append(parts, llms.TextPart(prompt))
	for _, image := range images {
		parts = append(parts, llms.BinaryPart("image/jpeg", image))
	}

	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	response, err := a.llm.GenerateContent(ctx, messages, llms.WithModel(a.visionModel))
	if err != nil {
		return "", fmt.Errorf("multimodal generate: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return response.Choices[0].Content, nil
}

// AnswerText generates an answer from a plain text prompt.
func (a *GeminiAnswerer) AnswerText(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, a.llm, prompt, llms.WithModel(a.textModel))
	if err != nil {
		return "", fmt.Errorf("text generate: %w", err)
	}
	return response, nil
}

// EstimateTokens estimates the token count of text for usage metrics.
func EstimateTokens(model, text string) int {
	return llms.CountTokens(model, text)
}
