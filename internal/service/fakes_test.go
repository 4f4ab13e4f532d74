package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/raphaelgruber/vidtalk/internal/index"
)

// fakeExtractor writes placeholder media artifacts instead of calling
// external tools.
type fakeExtractor struct {
	hasAudio    bool
	frames      []string
	downloadErr error
	extractErr  error
}

func (f *fakeExtractor) Download(_ context.Context, _, dir string) (string, error) {
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	path := filepath.Join(dir, "source.mp4")
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeExtractor) HasAudioStream(context.Context, string) (bool, error) {
	return f.hasAudio, nil
}

func (f *fakeExtractor) ExtractAudio(_ context.Context, _, audioPath string) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(audioPath, []byte("audio"), 0644)
}

func (f *fakeExtractor) ExtractFrames(_ context.Context, _, framesDir string, _ float64) ([]string, error) {
	for _, name := range f.frames {
		if err := os.WriteFile(filepath.Join(framesDir, name), []byte("jpeg:"+name), 0644); err != nil {
			return nil, err
		}
	}
	return f.frames, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// fakeEmbedder counts one token per word and returns constant vectors.
type fakeEmbedder struct {
	dim int
	err error
}

func (f *fakeEmbedder) vector() []float32 {
	v := make([]float32, f.dim)
	for i := range v {
		v[i] = 1
	}
	return v
}

func (f *fakeEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(), nil
}

func (f *fakeEmbedder) EmbedTextBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector()
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedImage(context.Context, []byte) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(), nil
}

func (f *fakeEmbedder) CountTokens(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// fakeIndex records inserts in memory and serves searches from them.
type fakeIndex struct {
	mu        sync.Mutex
	segments  []index.SegmentInput
	inserts   int
	dropped   []string
	insertErr error
	searchErr error
}

func (f *fakeIndex) BulkInsert(_ context.Context, segments []index.SegmentInput) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.segments = append(f.segments, segments...)
	f.inserts++
	return nil
}

func (f *fakeIndex) SearchKind(_ context.Context, session, kind string, _ []float32, limit int) ([]index.Match, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []index.Match
	for _, seg := range f.segments {
		if seg.Session == session && seg.Kind == kind && len(matches) < limit {
			matches = append(matches, index.Match{Payload: seg.Payload, Kind: seg.Kind})
		}
	}
	return matches, nil
}

func (f *fakeIndex) DropSession(_ context.Context, session string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dropped = append(f.dropped, session)
	kept := f.segments[:0]
	for _, seg := range f.segments {
		if seg.Session != session {
			kept = append(kept, seg)
		}
	}
	f.segments = kept
	return nil
}

func (f *fakeIndex) sessionSegments(session string) []index.SegmentInput {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []index.SegmentInput
	for _, seg := range f.segments {
		if seg.Session == session {
			out = append(out, seg)
		}
	}
	return out
}

type fakeAnswerer struct {
	mu            sync.Mutex
	multimodalErr error
	textErr       error
	lastPrompt    string
	lastImages    int
}

func (f *fakeAnswerer) AnswerMultimodal(_ context.Context, prompt string, images [][]byte) (string, error) {
	f.mu.Lock()
	f.lastPrompt = prompt
	f.lastImages = len(images)
	f.mu.Unlock()
	if f.multimodalErr != nil {
		return "", f.multimodalErr
	}
	return fmt.Sprintf("vision answer with %d images", len(images)), nil
}

func (f *fakeAnswerer) AnswerText(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.lastPrompt = prompt
	f.mu.Unlock()
	if f.textErr != nil {
		return "", f.textErr
	}
	return "text answer", nil
}
