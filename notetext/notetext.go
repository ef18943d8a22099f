// Package notetext flattens a text note's source into plain lines for the
// overlay renderer and the export pipeline. Notes may be written as plain
// text, Markdown, or HTML; block structure becomes line breaks and all
// inline styling is discarded.
package notetext

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pagemark/pagemark/annotation"
)

// Flatten converts src to plain text lines according to its format. Plain
// text splits on newlines; Markdown and HTML flatten each block element to
// one line. Malformed Markdown or HTML never fails: the parsers always
// produce a tree, worst case a single text blob.
func Flatten(src string, format annotation.Format) []string {
	switch format {
	case annotation.FormatMarkdown:
		return flattenMarkdown(src)
	case annotation.FormatHTML:
		return flattenHTML(src)
	}
	return strings.Split(src, "\n")
}

func flattenMarkdown(src string) []string {
	md := goldmark.New()
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))

	var lines []string
	walkMarkdown(doc, source, &lines)
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

func walkMarkdown(node ast.Node, source []byte, lines *[]string) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Heading, *ast.Paragraph:
			*lines = append(*lines, markdownText(child, source))
		case *ast.List:
			walkMarkdown(n, source, lines)
		case *ast.ListItem:
			*lines = append(*lines, "- "+markdownText(n, source))
		default:
			walkMarkdown(child, source, lines)
		}
	}
}

func markdownText(node ast.Node, source []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				sb.Write(t.Segment.Value(source))
				if t.SoftLineBreak() || t.HardLineBreak() {
					sb.WriteByte(' ')
				}
				continue
			}
			walk(c)
		}
	}
	walk(node)
	return strings.TrimSpace(sb.String())
}

func flattenHTML(src string) []string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		// html.Parse only fails on reader errors; a string reader never does.
		return []string{src}
	}
	var lines []string
	walkHTML(doc, &lines)
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

func walkHTML(n *html.Node, lines *[]string) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.P, atom.Div:
			if t := htmlText(n); t != "" {
				*lines = append(*lines, t)
			}
			return
		case atom.Li:
			*lines = append(*lines, "- "+htmlText(n))
			return
		case atom.Br:
			*lines = append(*lines, "")
			return
		case atom.Script, atom.Style:
			return
		}
	}
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*lines = append(*lines, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, lines)
	}
}

func htmlText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for g := c.FirstChild; g != nil; g = g.NextSibling {
			walk(g)
		}
	}
	walk(n)
	return strings.TrimSpace(strings.Join(strings.Fields(sb.String()), " "))
}
