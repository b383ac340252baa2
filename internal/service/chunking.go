package service

import (
	"regexp"
	"strings"
)

// DefaultChunkSize is the chunk size used when none is configured.
const DefaultChunkSize = 1000

// sentencePattern matches a run of text ending in terminal punctuation.
var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// ChunkText splits text into chunks of at most maxChunkSize characters,
// breaking only at sentence boundaries. A sentence longer than the limit
// becomes its own chunk. Returned chunks are trimmed and never empty.
func ChunkText(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}

	if len(text) <= maxChunkSize {
		clean := strings.TrimSpace(text)
		if clean == "" {
			return nil
		}
		return []string{clean}
	}

	sentences := splitSentences(text)
	chunks := make([]string, 0, len(text)/maxChunkSize+1)
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+len(sentence) > maxChunkSize {
			flush()
		}
		current.WriteString(sentence)
	}
	flush()

	return chunks
}

// splitSentences returns the sentence runs of text in order. Text after the
// last terminal mark is kept as a final sentence; text with no terminal
// marks is a single sentence.
func splitSentences(text string) []string {
	locs := sentencePattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	sentences := make([]string, 0, len(locs)+1)
	end := 0
	for _, loc := range locs {
		sentences = append(sentences, text[loc[0]:loc[1]])
		end = loc[1]
	}
	if rest := text[end:]; strings.TrimSpace(rest) != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
