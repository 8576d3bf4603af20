// Package markdown inspects markdown documents through the gomarkdown AST.
package markdown

import (
	"bytes"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Heading is a heading node in document order.
type Heading struct {
	Level int
	Text  string
}

// Outline is the structural skeleton of a document: its headings and the
// number of fenced code blocks.
type Outline struct {
	Headings []Heading
	Fences   int
}

// Levels returns the heading levels in document order.
func (o Outline) Levels() []int {
	levels := make([]int, len(o.Headings))
	for i, h := range o.Headings {
		levels[i] = h.Level
	}
	return levels
}

func newParser() *parser.Parser {
	return parser.NewWithExtensions(parser.CommonExtensions | parser.Attributes)
}

// Inspect parses md and returns its outline.
func Inspect(md []byte) Outline {
	doc := newParser().Parse(md)

	var out Outline
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch n := node.(type) {
		case *ast.Heading:
			out.Headings = append(out.Headings, Heading{Level: n.Level, Text: nodeText(n)})
			return ast.SkipChildren
		case *ast.CodeBlock:
			if n.IsFenced {
				out.Fences++
			}
		}
		return ast.GoToNext
	})
	return out
}

func nodeText(n ast.Node) string {
	var buf bytes.Buffer
	ast.WalkFunc(n, func(node ast.Node, entering bool) ast.WalkStatus {
		if entering {
			if leaf := node.AsLeaf(); leaf != nil {
				buf.Write(leaf.Literal)
			}
		}
		return ast.GoToNext
	})
	return buf.String()
}

func ToHTML(md []byte) string {
	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	}
	renderer := html.NewRenderer(opts)
	doc := newParser().Parse(md)
	return string(markdown.Render(doc, renderer))
}

// ToPlainText renders md and strips the markup, leaving prose suitable for
// language detection.
func ToPlainText(md []byte) string {
	return StripHTMLTags(ToHTML(md))
}

func StripHTMLTags(htmlContent string) string {
	var result bytes.Buffer
	inTag := false

	for _, ch := range htmlContent {
		switch ch {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				result.WriteRune(ch)
			}
		}
	}

	return result.String()
}
