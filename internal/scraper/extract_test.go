package scraper

import "testing"

func TestTextExtractor_Extract(t *testing.T) {
	extractor, err := NewTextExtractor(DefaultClassPattern)
	if err != nil {
		t.Fatalf("NewTextExtractor() error = %v", err)
	}

	page := `<html><head><title>Docs</title><style>p { color: red }</style></head><body>
<nav><p class="menu">Navigation</p></nav>
<p class="page-width">Oxylabs proxies are <b>compatible</b> with
   many platforms.</p>
<p>No class here.</p>
<div><p class="mb-2 text-start">Use <code>curl</code>.<script>track()</script></p></div>
<p class="page-api-block">   </p>
<p class="page-width-wide extra">Second block.</p>
</body></html>`

	got, err := extractor.Extract(page)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := "Oxylabs proxies are compatible with\n   many platforms.\nUse curl .\nSecond block."
	if got != want {
		t.Errorf("Extract() = %q, want %q", got, want)
	}
}

func TestTextExtractor_NoMatches(t *testing.T) {
	extractor, err := NewTextExtractor(DefaultClassPattern)
	if err != nil {
		t.Fatalf("NewTextExtractor() error = %v", err)
	}

	got, err := extractor.Extract("<html><body><p>plain</p></body></html>")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "" {
		t.Errorf("Extract() = %q, want empty", got)
	}
}

func TestNewTextExtractor_InvalidPattern(t *testing.T) {
	if _, err := NewTextExtractor("("); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}
