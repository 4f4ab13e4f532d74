package media

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultWhisperModel is the transcription model used when none is configured.
const DefaultWhisperModel = "whisper-1"

// WhisperTranscriber transcribes audio files through an OpenAI-compatible
// Whisper endpoint.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

// NewWhisperTranscriber creates a transcriber for the given credentials.
// baseURL overrides the API endpoint for self-hosted Whisper deployments;
// leave it empty for the OpenAI API.
func NewWhisperTranscriber(apiKey, baseURL, model string) *WhisperTranscriber {
	if model == "" {
		model = DefaultWhisperModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Transcribe converts the audio file at audioPath into text.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", audioPath, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("empty transcription result")
	}
	return text, nil
}
