package scraper

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
)

// ParseSitemap returns the text of every <loc> element in document order.
// Sitemap index files are not followed; their child sitemap URLs are returned as-is.
func ParseSitemap(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var (
		urls  []string
		inLoc bool
		buf   strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse sitemap: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "loc" {
				inLoc = true
				buf.Reset()
			}
		case xml.CharData:
			if inLoc {
				buf.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "loc" && inLoc {
				inLoc = false
				if loc := strings.TrimSpace(buf.String()); loc != "" {
					urls = append(urls, loc)
				}
			}
		}
	}

	return urls, nil
}

// Category is the first non-empty path segment of a URL, or "" if there is none
func Category(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, part := range strings.Split(parsed.Path, "/") {
		if part != "" {
			return part
		}
	}
	return ""
}

// TopSections keeps the URLs whose category is among the n most frequent.
// Ties keep first-seen order; URLs without a category are dropped. A
// non-positive n keeps every categorized URL. It also returns the chosen
// categories, most frequent first.
func TopSections(urls []string, n int) ([]string, []string) {
	counts := make(map[string]int)
	var order []string
	categories := make([]string, len(urls))

	for i, u := range urls {
		cat := Category(u)
		categories[i] = cat
		if cat == "" {
			continue
		}
		if counts[cat] == 0 {
			order = append(order, cat)
		}
		counts[cat]++
	}

	ranked := append([]string(nil), order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}

	keep := make(map[string]bool, len(ranked))
	for _, cat := range ranked {
		keep[cat] = true
	}

	var filtered []string
	for i, u := range urls {
		if keep[categories[i]] {
			filtered = append(filtered, u)
		}
	}
	return filtered, ranked
}
