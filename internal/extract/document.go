// Package extract flattens note documents and uploaded files into plain text
// for chunking and embedding.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/cloo-solutions/notewise/internal/domain"
)

// blockTypes end with a line break so adjacent blocks stay separated.
var blockTypes = map[string]bool{
	"paragraph":      true,
	"heading":        true,
	"blockquote":     true,
	"listItem":       true,
	"codeBlock":      true,
	"taskItem":       true,
	"tableRow":       true,
	"horizontalRule": true,
}

// Text flattens a document tree depth-first, in document order. A nil root
// yields "".
func Text(root *domain.Node) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	walk(&b, root)
	return strings.TrimSpace(b.String())
}

func walk(b *strings.Builder, n *domain.Node) {
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
	case "hardBreak":
		b.WriteByte('\n')
	}

	for i := range n.Content {
		walk(b, &n.Content[i])
	}

	if blockTypes[n.Type] {
		b.WriteByte('\n')
	}
}

// FromJSON decodes a stored document and flattens it. Input that is empty or
// not a JSON object yields "", which callers treat as nothing to index.
// Malformed nodes below the root are skipped and the rest is kept.
func FromJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var root domain.Node
	if err := json.Unmarshal(raw, &root); err != nil {
		return ""
	}
	return Text(&root)
}
