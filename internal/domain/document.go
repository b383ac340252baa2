package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Node is one element of a rich-text document tree. Leaf text nodes carry
// Text; container nodes carry Content.
type Node struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Content []Node          `json:"content,omitempty"`
	Attrs   json.RawMessage `json:"attrs,omitempty"`
}

// UnmarshalJSON decodes leniently: a non-string type or text and a non-array
// content are dropped, and content entries that are not objects are skipped.
// Only input that is not a JSON object fails, so one malformed child cannot
// discard the rest of a note.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    json.RawMessage `json:"type"`
		Text    json.RawMessage `json:"text"`
		Content json.RawMessage `json:"content"`
		Attrs   json.RawMessage `json:"attrs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = Node{Attrs: raw.Attrs}
	_ = json.Unmarshal(raw.Type, &n.Type)
	_ = json.Unmarshal(raw.Text, &n.Text)

	var children []json.RawMessage
	if err := json.Unmarshal(raw.Content, &children); err != nil {
		return nil
	}
	for _, c := range children {
		var child Node
		if json.Unmarshal(c, &child) != nil {
			continue
		}
		n.Content = append(n.Content, child)
	}
	return nil
}

// Document is a note as seen by the indexing pipeline.
type Document struct {
	ID      string
	OwnerID string
	Title   string
	Content json.RawMessage
	// Source is copied into chunk metadata, e.g. SourceUpload.
	Source    string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateDocument checks the fields required to store a document.
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.OwnerID == "" {
		return fmt.Errorf("document OwnerID is required")
	}

	if len(d.Content) > 0 && !json.Valid(d.Content) {
		return fmt.Errorf("document Content must be valid JSON")
	}

	return nil
}

// NewTextDocument wraps plain text in a single-paragraph document, the shape
// the editor uses for imported files.
func NewTextDocument(text string) Node {
	return Node{
		Type: "doc",
		Content: []Node{
			{
				Type:    "paragraph",
				Content: []Node{{Type: "text", Text: text}},
			},
		},
	}
}
