package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/notewise/internal/domain"
)

// DefaultMaxContextLength caps the retrieved text handed to the model.
const DefaultMaxContextLength = 3000

const contextIntro = "Here is relevant information from your notes:\n\n"

// BuildContext renders ranked results as a prompt section. Blocks are added
// in rank order until the next one would push the block total past
// maxContextLength; a block is never cut short. The intro line does not count
// toward the limit, so the output is at most len(intro) + maxContextLength
// runes. It returns "" when there are no results or not even the first block
// fits.
func BuildContext(results []domain.RetrievalResult, maxContextLength int) string {
	out, _ := buildContext(results, maxContextLength)
	return out
}

// buildContext also reports how many leading results made it in.
func buildContext(results []domain.RetrievalResult, maxContextLength int) (string, int) {
	if len(results) == 0 {
		return "", 0
	}
	if maxContextLength <= 0 {
		maxContextLength = DefaultMaxContextLength
	}

	var b strings.Builder
	b.WriteString(contextIntro)

	used, included := 0, 0
	for _, r := range results {
		block := contextBlock(r)
		n := utf8.RuneCountInString(block)
		if used+n > maxContextLength {
			break
		}
		b.WriteString(block)
		used += n
		included++
	}

	if included == 0 {
		return "", 0
	}
	return b.String(), included
}

func contextBlock(r domain.RetrievalResult) string {
	return fmt.Sprintf("[From your notes - Similarity: %.1f%%]\n%s\n\n", r.Similarity*100, r.Chunk.Text)
}
