package extract

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// Markdown parses src as GitHub-flavoured markdown and returns the readable
// text with markup removed. Block elements end with a line break.
func Markdown(src []byte) (string, error) {
	doc := markdownParser.Parse(text.NewReader(src))

	var out []byte
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				out = append(bytes.TrimRight(out, " \t"), '\n')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			out = append(out, node.Segment.Value(src)...)
			if node.HardLineBreak() {
				out = append(out, '\n')
			} else if node.SoftLineBreak() {
				out = append(out, ' ')
			}
		case *ast.String:
			out = append(out, node.Value...)
		case *ast.AutoLink:
			out = append(out, node.Label(src)...)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				out = append(out, seg.Value(src)...)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(out)), nil
}
