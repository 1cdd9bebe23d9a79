// Package scraper builds the corpus file: it reads a sitemap, keeps the most
// populated sections, fetches each page politely and saves the extracted
// prose as a JSON array of {url, content} records.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/logging"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/worker"
)

// ErrDisallowed marks a page excluded by robots.txt
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Config controls a scrape run
type Config struct {
	UserAgent    string
	Delay        time.Duration // Politeness delay per request
	Timeout      time.Duration
	MaxBytes     int64
	BatchSize    int
	Sections     int
	Workers      int
	Insecure     bool
	IgnoreRobots bool

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ConfigFromModel maps the scraper section of the runtime config
func ConfigFromModel(cfg model.ScraperConfig) Config {
	return Config{
		UserAgent: cfg.UserAgent,
		Delay:     cfg.Delay,
		Timeout:   cfg.Timeout,
		MaxBytes:  cfg.MaxBytes,
		BatchSize: cfg.BatchSize,
		Sections:  cfg.Sections,
		Workers:   cfg.Workers,
	}
}

// Stats summarizes a scrape run
type Stats struct {
	Discovered int      // URLs listed in the sitemap
	Selected   int      // URLs in the chosen sections
	Saved      int      // Records written
	Empty      int      // Pages without matching paragraphs
	Skipped    int      // Pages disallowed by robots.txt
	Failed     int      // Pages that could not be fetched
	Sections   []string // Chosen sections, most populated first
}

// Scraper fetches pages and writes corpus records
type Scraper struct {
	cfg       Config
	fetcher   *Fetcher
	robots    *RobotsChecker
	limiter   *worker.Limiter
	extractor *TextExtractor
	log       *slog.Logger

	mu      sync.Mutex
	delayed map[string]bool // Hosts whose rate follows a robots.txt crawl delay
}

// New creates a Scraper
func New(cfg Config, log *slog.Logger) (*Scraper, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 2_000_000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	extractor, err := NewTextExtractor(DefaultClassPattern)
	if err != nil {
		return nil, err
	}

	fetcher := NewFetcher(cfg.Timeout, cfg.UserAgent, cfg.MaxBytes, cfg.Insecure, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	return &Scraper{
		cfg:       cfg,
		fetcher:   fetcher,
		robots:    NewRobotsChecker(fetcher.Client(), cfg.UserAgent),
		limiter:   worker.NewLimiter(0, 1),
		extractor: extractor,
		log:       logging.OrDiscard(log).With("component", "scraper"),
		delayed:   make(map[string]bool),
	}, nil
}

// SitemapURLs fetches a sitemap and returns its <loc> entries
func (s *Scraper) SitemapURLs(ctx context.Context, sitemapURL string) ([]string, error) {
	s.log.Info("fetching sitemap", "url", sitemapURL)

	result, err := s.fetcher.FetchWithRetry(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	return ParseSitemap(strings.NewReader(result.HTML))
}

// Run scrapes the top sections of a sitemap into outputPath
func (s *Scraper) Run(ctx context.Context, sitemapURL, outputPath string) (*Stats, error) {
	urls, err := s.SitemapURLs(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	selected, sections := TopSections(urls, s.cfg.Sections)
	s.log.Info("selected sections", "urls", len(selected), "sections", sections)

	stats, err := s.ScrapePages(ctx, selected, outputPath)
	if stats != nil {
		stats.Discovered = len(urls)
		stats.Sections = sections
	}
	return stats, err
}

type pageJob struct {
	s   *Scraper
	url string
}

type pageResult struct {
	record *model.RawRecord
	err    error
}

func (r *pageResult) GetError() error { return r.err }

func (j *pageJob) Execute(ctx context.Context) worker.Result {
	record, err := j.s.scrapePage(ctx, j.url)
	return &pageResult{record: record, err: err}
}

// scrapePage returns nil without error for a page with no matching text
func (s *Scraper) scrapePage(ctx context.Context, rawURL string) (*model.RawRecord, error) {
	if !s.cfg.IgnoreRobots {
		allowed, crawlDelay, err := s.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrDisallowed
		}
		s.applyCrawlDelay(rawURL, crawlDelay)
	}

	if err := s.limiter.WaitWithDelay(ctx, rawURL, s.cfg.Delay); err != nil {
		return nil, err
	}

	result, err := s.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	text, err := s.extractor.Extract(result.HTML)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	return &model.RawRecord{URL: rawURL, Content: text}, nil
}

func (s *Scraper) applyCrawlDelay(rawURL string, crawlDelay time.Duration) {
	if crawlDelay <= 0 {
		return
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return
	}
	host := parsed.Host

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delayed[host] {
		return
	}
	s.delayed[host] = true
	s.limiter.SetRate(host, 1/crawlDelay.Seconds(), 1)
}

// ScrapePages fetches urls with the configured concurrency and saves the
// records every BatchSize results; the first save overwrites outputPath and
// later saves append. Individual page failures are logged and skipped.
func (s *Scraper) ScrapePages(ctx context.Context, urls []string, outputPath string) (*Stats, error) {
	stats := &Stats{Selected: len(urls)}
	batchSize := s.cfg.BatchSize
	totalBatches := (len(urls) + batchSize - 1) / batchSize

	s.log.Info("starting scrape", "pages", len(urls), "batch_size", batchSize)

	var pending []model.RawRecord
	first := true
	batch := 1

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		s.log.Info("saving batch", "batch", batch, "of", totalBatches, "records", len(pending))
		if err := SaveBatch(outputPath, pending, first); err != nil {
			return err
		}
		stats.Saved += len(pending)
		first = false
		pending = nil
		batch++
		return nil
	}

	for start := 0; start < len(urls); start += batchSize {
		end := min(start+batchSize, len(urls))

		jobs := make([]worker.Job, 0, end-start)
		for _, u := range urls[start:end] {
			jobs = append(jobs, &pageJob{s: s, url: u})
		}

		for i, r := range worker.RunOrdered(ctx, s.cfg.Workers, jobs) {
			pr, ok := r.(*pageResult)
			switch {
			case !ok:
				// Never started because ctx was cancelled
			case errors.Is(pr.err, ErrDisallowed):
				stats.Skipped++
				s.log.Info("skipping page", "url", urls[start+i], "reason", pr.err)
			case pr.err != nil:
				stats.Failed++
				s.log.Warn("failed to fetch page", "url", urls[start+i], "err", pr.err)
			case pr.record == nil:
				stats.Empty++
			default:
				pending = append(pending, *pr.record)
			}

			if len(pending) >= batchSize {
				if err := flush(); err != nil {
					return stats, err
				}
			}
		}

		if err := ctx.Err(); err != nil {
			if ferr := flush(); ferr != nil {
				return stats, ferr
			}
			return stats, err
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}

	s.log.Info("scraping completed", "saved", stats.Saved, "failed", stats.Failed, "empty", stats.Empty, "skipped", stats.Skipped)
	return stats, nil
}

// SaveBatch writes records as a JSON array. When overwrite is false the
// records are appended to the array already in path; a missing or
// unreadable file is treated as empty.
func SaveBatch(path string, records []model.RawRecord, overwrite bool) error {
	if len(records) == 0 {
		return nil
	}

	var all []model.RawRecord
	if !overwrite {
		if data, err := os.ReadFile(path); err == nil {
			if err := json.Unmarshal(data, &all); err != nil {
				all = nil
			}
		}
	}
	all = append(all, records...)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(all); err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}
