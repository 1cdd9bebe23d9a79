package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func robotsServer(t *testing.T, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if hits != nil {
			hits.Add(1)
		}
		if body == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRobotsChecker_CanFetch(t *testing.T) {
	var hits atomic.Int32
	server := robotsServer(t, "User-agent: QnA-Bot\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n", &hits)

	checker := NewRobotsChecker(http.DefaultClient, "QnA-Bot/0.1")
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/docs/page")
	if err != nil {
		t.Fatalf("CanFetch() error = %v", err)
	}
	if !allowed {
		t.Error("Expected /docs/page to be allowed for QnA-Bot")
	}
	if delay != 2*time.Second {
		t.Errorf("crawl delay = %v, want 2s", delay)
	}

	allowed, _, err = checker.CanFetch(ctx, server.URL+"/private/x")
	if err != nil {
		t.Fatalf("CanFetch() error = %v", err)
	}
	if allowed {
		t.Error("Expected /private/x to be disallowed")
	}

	if hits.Load() != 1 {
		t.Errorf("robots.txt fetched %d times, want 1 (cached)", hits.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllowsAll(t *testing.T) {
	server := robotsServer(t, "", nil)

	checker := NewRobotsChecker(http.DefaultClient, "QnA-Bot/0.1")
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/anything")
	if err != nil {
		t.Fatalf("CanFetch() error = %v", err)
	}
	if !allowed {
		t.Error("Expected everything to be allowed without robots.txt")
	}
}

func TestRobotsChecker_UnreachableAllowsAll(t *testing.T) {
	server := robotsServer(t, "", nil)
	url := server.URL
	server.Close()

	checker := NewRobotsChecker(&http.Client{Timeout: time.Second}, "QnA-Bot/0.1")
	allowed, _, err := checker.CanFetch(context.Background(), url+"/page")
	if err != nil {
		t.Fatalf("CanFetch() error = %v", err)
	}
	if !allowed {
		t.Error("Expected unreachable robots.txt to allow fetching")
	}
}

func TestRobotsChecker_RelativeURL(t *testing.T) {
	checker := NewRobotsChecker(http.DefaultClient, "QnA-Bot/0.1")
	if _, _, err := checker.CanFetch(context.Background(), "/relative/path"); err == nil {
		t.Error("Expected error for relative URL")
	}
}

func TestFetchRobots(t *testing.T) {
	server := robotsServer(t, "User-agent: *\nAllow: /\n", nil)

	file, err := FetchRobots(context.Background(), http.DefaultClient, "QnA-Bot/0.1", server.URL+"/deep/path?q=1")
	if err != nil {
		t.Fatalf("FetchRobots() error = %v", err)
	}
	if file.URL != server.URL+"/robots.txt" {
		t.Errorf("URL = %q", file.URL)
	}
	if file.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", file.StatusCode)
	}
	if file.Body != "User-agent: *\nAllow: /\n" {
		t.Errorf("Body = %q", file.Body)
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"QnA-Bot/0.1", "QnA-Bot"},
		{"Mozilla/5.0 (X11; Linux)", "Mozilla"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeUserAgent(tt.in); got != tt.want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
