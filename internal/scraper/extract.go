package scraper

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// DefaultClassPattern matches the paragraph classes used by documentation pages
const DefaultClassPattern = `page-width|text-start|page-api-block`

// TextExtractor pulls article prose out of HTML pages
type TextExtractor struct {
	classPattern *regexp.Regexp
}

// NewTextExtractor creates an extractor keeping <p> elements whose class matches pattern
func NewTextExtractor(pattern string) (*TextExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &TextExtractor{classPattern: re}, nil
}

// Extract returns the text of every matching paragraph, one per line.
// Text nodes inside a paragraph are trimmed and joined by a single space.
func (e *TextExtractor) Extract(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var paragraphs []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" && e.matches(n) {
			if text := paragraphText(n); text != "" {
				paragraphs = append(paragraphs, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return strings.Join(paragraphs, "\n"), nil
}

func (e *TextExtractor) matches(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, class := range strings.Fields(attr.Val) {
			if e.classPattern.MatchString(class) {
				return true
			}
		}
	}
	return false
}

// paragraphText collects the visible text under n, skipping scripts and styles
func paragraphText(n *html.Node) string {
	var parts []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.Join(parts, " ")
}
