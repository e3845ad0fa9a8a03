// Package description turns the HTML product descriptions of collected batches
// into plain text and lifts embedded image URLs into the product image list.
package description

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blankLines matches a line break followed by whitespace-only lines.
var blankLines = regexp.MustCompile(`\n[\s\p{Zs}]*\n`)

// Clean converts an HTML description to text. Paragraphs and line breaks become
// newlines, list items become "- " lines, all other markup is dropped and
// entities are decoded. It also returns the src of every <img>, in document order.
func Clean(description string) (string, []string, error) {
	if strings.TrimSpace(description) == "" {
		return "", nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return "", nil, fmt.Errorf("parse description: %w", err)
	}

	var images []string
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && strings.TrimSpace(src) != "" {
			images = append(images, strings.TrimSpace(src))
		}
	})

	var b strings.Builder
	for _, n := range doc.Find("body").Nodes {
		render(&b, n)
	}

	text := blankLines.ReplaceAllString(b.String(), "\n")
	return strings.TrimSpace(text), images, nil
}

func render(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		renderChildren(b, n)
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head:
		return
	case atom.Br:
		b.WriteString("\n")
	case atom.P:
		b.WriteString("\n\n")
		renderChildren(b, n)
		b.WriteString("\n\n")
	case atom.Li:
		b.WriteString("- ")
		renderChildren(b, n)
		b.WriteString("\n")
	default:
		renderChildren(b, n)
	}
}

func renderChildren(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		render(b, c)
	}
}

// MergeImages appends found to existing, dropping duplicates while keeping the
// first occurrence of each URL. The result is never nil.
func MergeImages(existing, found []string) []string {
	merged := make([]string, 0, len(existing)+len(found))
	seen := make(map[string]struct{}, len(existing)+len(found))

	for _, list := range [][]string{existing, found} {
		for _, u := range list {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			merged = append(merged, u)
		}
	}
	return merged
}
