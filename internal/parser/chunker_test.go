package parser

import (
	"errors"
	"strings"
	"testing"
)

// wordCounter counts one token per whitespace-separated word, which keeps
// test expectations easy to reason about.
func wordCounter(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func TestChunkTranscript_Empty(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "completely empty", content: ""},
		{name: "whitespace only", content: "   \n\n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := ChunkTranscript(tt.content, DefaultChunkConfig(), wordCounter)
			if err != nil {
				t.Fatalf("ChunkTranscript() error = %v", err)
			}
			if len(chunks) != 0 {
				t.Errorf("ChunkTranscript() got %d chunks, want 0", len(chunks))
			}
		})
	}
}

func TestChunkTranscript_ShortTranscriptSingleChunk(t *testing.T) {
	chunks, err := ChunkTranscript("Hello there. This is a short transcript.", DefaultChunkConfig(), wordCounter)
	if err != nil {
		t.Fatalf("ChunkTranscript() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("ChunkTranscript() got %d chunks, want 1", len(chunks))
	}
	if !strings.Contains(chunks[0], "short transcript") {
		t.Errorf("chunk missing content: %q", chunks[0])
	}
}

func TestChunkTranscript_RespectsTokenBudget(t *testing.T) {
	// 40 sentences of 5 words each, budget of 12 tokens per chunk.
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("one two three four five. ")
	}

	config := ChunkConfig{MaxTokens: 12, OverlapTokens: 0}
	chunks, err := ChunkTranscript(sb.String(), config, wordCounter)
	if err != nil {
		t.Fatalf("ChunkTranscript() error = %v", err)
	}

	if len(chunks) < 10 {
		t.Fatalf("expected many chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n, _ := wordCounter(chunk); n > config.MaxTokens {
			t.Errorf("chunk[%d] has %d tokens, budget %d: %q", i, n, config.MaxTokens, chunk)
		}
	}
}

func TestChunkTranscript_OverlapCarriesTrailingSentence(t *testing.T) {
	transcript := "First sentence has five words. Second sentence has five words. Third sentence has five words. Fourth sentence has five words."

	config := ChunkConfig{MaxTokens: 10, OverlapTokens: 5}
	chunks, err := ChunkTranscript(transcript, config, wordCounter)
	if err != nil {
		t.Fatalf("ChunkTranscript() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}

	// Each chunk after the first must start with the previous chunk's
	// trailing sentence.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		lastStart := strings.LastIndex(prev, ". ")
		if lastStart < 0 {
			continue
		}
		tail := strings.TrimSpace(prev[lastStart+1:])
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk[%d] does not start with previous tail %q: %q", i, tail, chunks[i])
		}
	}
}

func TestChunkTranscript_ZeroOverlap(t *testing.T) {
	transcript := "Alpha beta gamma delta one. Epsilon zeta eta theta two. Iota kappa lambda mu three."

	config := ChunkConfig{MaxTokens: 5, OverlapTokens: 0}
	chunks, err := ChunkTranscript(transcript, config, wordCounter)
	if err != nil {
		t.Fatalf("ChunkTranscript() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3: %v", len(chunks), chunks)
	}

	// No word should repeat across chunks when overlap is zero.
	seen := map[string]int{}
	for i, chunk := range chunks {
		for _, w := range strings.Fields(chunk) {
			if at, ok := seen[w]; ok {
				t.Errorf("word %q appears in chunk %d and %d", w, at, i)
			}
			seen[w] = i
		}
	}
}

func TestChunkTranscript_LongSentenceHardSplit(t *testing.T) {
	// One run-on sentence far over budget, no sentence boundaries.
	transcript := strings.Repeat("word ", 100)

	config := ChunkConfig{MaxTokens: 10, OverlapTokens: 2}
	chunks, err := ChunkTranscript(transcript, config, wordCounter)
	if err != nil {
		t.Fatalf("ChunkTranscript() error = %v", err)
	}
	if len(chunks) < 5 {
		t.Fatalf("expected hard-split chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n, _ := wordCounter(chunk); n > config.MaxTokens {
			t.Errorf("chunk[%d] has %d tokens, budget %d", i, n, config.MaxTokens)
		}
	}
}

func TestChunkTranscript_CounterErrorPropagates(t *testing.T) {
	wantErr := errors.New("tokenizer unavailable")
	failing := func(string) (int, error) { return 0, wantErr }

	_, err := ChunkTranscript("Some sentence.", DefaultChunkConfig(), failing)
	if !errors.Is(err, wantErr) {
		t.Errorf("ChunkTranscript() error = %v, want %v", err, wantErr)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "three sentences", text: "One here. Two here! Three here?", want: 3},
		{name: "no terminator", text: "trailing text without punctuation", want: 1},
		{name: "abbreviation not split", text: "The U.S. economy grew. Then it slowed.", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			if len(got) != tt.want {
				t.Errorf("splitSentences() got %d sentences %q, want %d", len(got), got, tt.want)
			}
		})
	}
}
