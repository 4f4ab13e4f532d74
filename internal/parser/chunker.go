// Package parser splits transcripts into embedding-sized chunks.
package parser

import (
	"strings"
	"unicode"
)

// TokenCounter reports how many embedding-model tokens a text consumes.
// The embedder's tokenizer is authoritative; chunk sizes are measured in
// its tokens, not characters.
type TokenCounter func(text string) (int, error)

// ChunkConfig defines chunking parameters, both measured in tokens.
type ChunkConfig struct {
	// MaxTokens is the chunk budget.
	MaxTokens int
	// OverlapTokens is carried over from the end of one chunk into the
	// start of the next, so local context survives chunk boundaries.
	OverlapTokens int
}

// DefaultChunkConfig returns the defaults used for video transcripts.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxTokens:     70,
		OverlapTokens: 10,
	}
}

// ChunkTranscript splits a transcript into token-bounded chunks at sentence
// boundaries, with sentence-level overlap between adjacent chunks.
func ChunkTranscript(transcript string, config ChunkConfig, count TokenCounter) ([]string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, nil
	}

	sentences := splitSentences(transcript)

	type counted struct {
		text   string
		tokens int
	}

	var pieces []counted
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		tokens, err := count(sentence)
		if err != nil {
			return nil, err
		}

		// A single sentence over budget is hard-split on word boundaries.
		if tokens > config.MaxTokens {
			parts, err := splitLongSentence(sentence, config.MaxTokens, count)
			if err != nil {
				return nil, err
			}
			for _, p := range parts {
				pieces = append(pieces, counted{text: p.text, tokens: p.tokens})
			}
			continue
		}

		pieces = append(pieces, counted{text: sentence, tokens: tokens})
	}

	var chunks []string
	var current []counted
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		parts := make([]string, len(current))
		for i, p := range current {
			parts[i] = p.text
		}
		chunks = append(chunks, strings.Join(parts, " "))

		// Seed the next chunk with trailing sentences within the overlap
		// budget, oldest first.
		var overlap []counted
		overlapTokens := 0
		for i := len(current) - 1; i >= 0; i-- {
			if overlapTokens+current[i].tokens > config.OverlapTokens {
				break
			}
			overlapTokens += current[i].tokens
			overlap = append([]counted{current[i]}, overlap...)
		}
		current = overlap
		currentTokens = overlapTokens
	}

	for _, piece := range pieces {
		if currentTokens+piece.tokens > config.MaxTokens && currentTokens > 0 {
			flush()
		}
		current = append(current, piece)
		currentTokens += piece.tokens
	}
	if currentTokens > 0 {
		flush()
	}

	return chunks, nil
}

type countedPart struct {
	text   string
	tokens int
}

// splitLongSentence breaks an over-budget sentence into word groups that
// each fit the token budget.
func splitLongSentence(sentence string, maxTokens int, count TokenCounter) ([]countedPart, error) {
	words := strings.Fields(sentence)

	var parts []countedPart
	var current []string
	currentTokens := 0

	for _, word := range words {
		tokens, err := count(word)
		if err != nil {
			return nil, err
		}
		if currentTokens+tokens > maxTokens && len(current) > 0 {
			parts = append(parts, countedPart{text: strings.Join(current, " "), tokens: currentTokens})
			current = nil
			currentTokens = 0
		}
		current = append(current, word)
		currentTokens += tokens
	}
	if len(current) > 0 {
		parts = append(parts, countedPart{text: strings.Join(current, " "), tokens: currentTokens})
	}

	return parts, nil
}

// splitSentences splits text into sentences.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Look ahead for space or end
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				// Not an abbreviation (simple heuristic)
				if i > 1 && unicode.IsUpper(runes[i-1]) {
					continue // Likely abbreviation like "Dr."
				}
				sentences = append(sentences, current.String())
				current.Reset()
			}
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}
