package fetcher

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Subtrees that never carry tool copy.
var strippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// StripExtractor drops boilerplate subtrees and joins the remaining text
// nodes with single spaces in document order.
type StripExtractor struct{}

func (StripExtractor) Extract(body io.Reader, _ *url.URL) (string, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strippedElements[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, " "), nil
}

// ReadabilityExtractor keeps only the main article content of the page.
type ReadabilityExtractor struct{}

func (ReadabilityExtractor) Extract(body io.Reader, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(body, pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		text = strings.TrimSpace(article.Title)
	}
	return text, nil
}
