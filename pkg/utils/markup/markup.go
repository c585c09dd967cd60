// Package markup converts chat text between the plain text typed by users,
// the markdown returned by the webhook and the HTML kept in transcripts.
package markup

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.Linkify),
		goldmark.WithRendererOptions(
			ghtml.WithHardWraps(),
			renderer.WithNodeRenderers(util.Prioritized(&literalHTML{}, 100)),
		),
	)
	strict = bluemonday.StrictPolicy()
)

// Escape renders user input as HTML text
func Escape(text string) string {
	return html.EscapeString(text)
}

// ToHTML converts assistant markdown into HTML. Raw HTML in the source is kept as visible text.
func ToHTML(text string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return Escape(text)
	}
	return strings.TrimSpace(buf.String())
}

// PlainText strips tags from stored HTML for terminal output
func PlainText(content string) string {
	s := strings.ReplaceAll(content, "<br>\n", "\n")
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strict.Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(s))
}

// literalHTML renders raw HTML found in markdown as escaped text
type literalHTML struct{}

func (x *literalHTML) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindRawHTML, x.renderRawHTML)
	reg.Register(ast.KindHTMLBlock, x.renderHTMLBlock)
}

func (x *literalHTML) renderRawHTML(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*ast.RawHTML)
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		_, _ = w.Write(util.EscapeHTML(seg.Value(source)))
	}
	return ast.WalkSkipChildren, nil
}

func (x *literalHTML) renderHTMLBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.HTMLBlock)
	if !entering {
		_, _ = w.WriteString("</p>\n")
		return ast.WalkContinue, nil
	}

	var block []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		block = append(block, line.Value(source)...)
	}
	if n.HasClosure() {
		block = append(block, n.ClosureLine.Value(source)...)
	}

	_, _ = w.WriteString("<p>")
	_, _ = w.Write(util.EscapeHTML(bytes.TrimRight(block, "\n")))
	return ast.WalkContinue, nil
}
