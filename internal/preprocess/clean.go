package preprocess

import (
	"regexp"
	"strings"
	"unicode"
)

// fallbackTitle is used when the URL has a malformed host and no path can be split off
const fallbackTitle = "Web Content"

var (
	newlineRuns    = regexp.MustCompile(`\n+`)
	horizontalRuns = regexp.MustCompile(`[\t\v\f\r\x{85}\p{Z}]+`)
	spaceBeforeP   = regexp.MustCompile(`[\s\v\x{85}\p{Z}]+([.,!?;:])`)
	slugSeparators = regexp.MustCompile(`[-_]`)
	nonAlnum       = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

// Clean normalizes scraped prose. It is idempotent: Clean(Clean(x)) == Clean(x).
func Clean(content string) string {
	if content == "" {
		return ""
	}

	cleaned := strings.ReplaceAll(content, "\r\n", "\n")
	cleaned = newlineRuns.ReplaceAllString(cleaned, "\n")
	cleaned = horizontalRuns.ReplaceAllString(cleaned, " ")
	cleaned = spaceBeforeP.ReplaceAllString(cleaned, "$1")
	cleaned = collapsePunctuation(cleaned)

	return strings.TrimSpace(cleaned)
}

// collapsePunctuation squeezes runs of the same punctuation mark ("!!!" -> "!").
// RE2 has no backreferences, so this is done by hand.
func collapsePunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var prev rune = -1
	for _, r := range s {
		if r == prev && strings.ContainsRune(".,!?;:", r) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// Title derives a section title from the URL path. The first segment is a
// category/locale prefix and is dropped: https://x/docs/integration-guides
// becomes "Integration Guides". An empty result is not an error.
func Title(rawURL string) string {
	path, ok := rawPath(rawURL)
	if !ok {
		return fallbackTitle
	}

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return ""
	}

	title := strings.Join(segments[1:], " ")
	title = slugSeparators.ReplaceAllString(title, " ")
	title = nonAlnum.ReplaceAllString(title, "")

	words := strings.Fields(title)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// rawPath returns the still-escaped path of rawURL. Unlike url.Parse it
// never decodes percent escapes and accepts malformed ones, so
// "/a/hello%20world" keeps its "%20". Parameters after a ';' in the last
// segment are dropped. ok is false only for an unbalanced IPv6 host.
func rawPath(rawURL string) (path string, ok bool) {
	s := rawURL
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ":"); i > 0 && isScheme(s[:i]) {
		s = s[i+1:]
	}
	if rest, found := strings.CutPrefix(s, "//"); found {
		host := rest
		s = ""
		if i := strings.Index(rest, "/"); i >= 0 {
			host, s = rest[:i], rest[i:]
		}
		if strings.Contains(host, "[") != strings.Contains(host, "]") {
			return "", false
		}
	}
	last := s[strings.LastIndex(s, "/")+1:]
	if j := strings.Index(last, ";"); j >= 0 {
		s = s[:len(s)-len(last)+j]
	}
	return s, true
}

func isScheme(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// capitalize upper-cases the first letter and lower-cases the rest
func capitalize(word string) string {
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
