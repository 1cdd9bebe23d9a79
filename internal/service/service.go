// Package service is the retrieval service: it ingests the corpus once at
// startup and answers questions by retrieval, prompt assembly and
// structured generation.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/llm"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/logging"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/prompt"
)

// Index is the vector index used for ingestion and retrieval
type Index interface {
	IsInitialized() bool
	Add(ctx context.Context, units []model.ContextUnit) error
	Query(ctx context.Context, text string, k int) ([]model.ContextUnit, error)
}

// Generator is the generation client
type Generator interface {
	SetSystemMessage(msg string)
	AskChat(ctx context.Context, user string) (*model.ChatResponse, error)
	ProviderName() string
}

// CorpusLoader turns the corpus file into context units
type CorpusLoader interface {
	ProcessFile(path string) ([]model.ContextUnit, error)
}

// Config configures the service
type Config struct {
	CorpusPath    string
	TopK          int
	StrictSources bool // Reject answers citing URLs outside the retrieved context
	WarmupEnabled bool
	WarmupQuery   string
}

// ConfigFromModel extracts the service settings from the runtime config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		CorpusPath:    cfg.ResolvedCorpusPath(),
		TopK:          cfg.Index.TopK,
		StrictSources: cfg.LLM.StrictSources,
		WarmupEnabled: cfg.Warmup.Enabled,
		WarmupQuery:   cfg.Warmup.Query,
	}
}

// Service orchestrates startup, warm-up and question answering
type Service struct {
	cfg    Config
	index  Index
	gen    Generator
	corpus CorpusLoader
	log    *slog.Logger

	startMu sync.Mutex
	ready   atomic.Bool
	warmup  chan struct{} // closed when warm-up has finished or was skipped
}

// New creates a service. It does nothing until Start is called.
func New(cfg Config, index Index, gen Generator, corpus CorpusLoader, log *slog.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Service{
		cfg:    cfg,
		index:  index,
		gen:    gen,
		corpus: corpus,
		log:    logging.OrDiscard(log).With("component", "service"),
		warmup: make(chan struct{}),
	}
}

// Start runs startup and then launches warm-up in the background. Startup
// ingests the corpus when the index is uninitialized and installs the
// system instructions; a failure means the service must not serve.
// Calling Start again after success is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.ready.Load() {
		return nil
	}

	start := time.Now()

	// 1. Ingest once
	if s.index.IsInitialized() {
		s.log.Info("index already initialized, skipping ingestion")
	} else {
		units, err := s.corpus.ProcessFile(s.cfg.CorpusPath)
		if err != nil {
			return fmt.Errorf("load corpus: %w", err)
		}
		if err := s.index.Add(ctx, units); err != nil {
			return fmt.Errorf("ingest corpus: %w", err)
		}
	}

	// 2. Static instructions
	s.gen.SetSystemMessage(prompt.SystemMessage)

	s.ready.Store(true)
	s.log.Info("startup complete", "duration", time.Since(start).Round(time.Millisecond))

	// 3. Warm-up, detached from the caller's cancellation
	if s.cfg.WarmupEnabled && s.cfg.WarmupQuery != "" {
		go s.runWarmup(context.WithoutCancel(ctx))
	} else {
		close(s.warmup)
	}

	return nil
}

func (s *Service) runWarmup(ctx context.Context) {
	defer close(s.warmup)

	start := time.Now()
	if _, err := s.Chat(ctx, s.cfg.WarmupQuery); err != nil {
		s.log.Warn("warm-up failed", "query", s.cfg.WarmupQuery, "err", err)
		return
	}
	s.log.Info("warm-up complete", "duration", time.Since(start).Round(time.Millisecond))
}

// Ready reports whether startup has completed
func (s *Service) Ready() bool {
	return s.ready.Load()
}

// WarmupDone is closed once the warm-up query has finished
func (s *Service) WarmupDone() <-chan struct{} {
	return s.warmup
}

// Chat answers a question from the top-k retrieved units. Index and
// generation errors are returned unchanged; there is no fallback answer.
func (s *Service) Chat(ctx context.Context, question string) (*model.ChatResponse, error) {
	if !s.ready.Load() {
		return nil, model.ErrNotReady
	}
	if strings.TrimSpace(question) == "" {
		return nil, model.ErrEmptyQuestion
	}

	units, err := s.index.Query(ctx, question, s.cfg.TopK)
	if err != nil {
		return nil, err
	}

	resp, err := s.gen.AskChat(ctx, prompt.Build(question, units))
	if err != nil {
		return nil, err
	}

	if s.cfg.StrictSources {
		if err := llm.VerifyCitations(resp, prompt.SourceURLs(units)); err != nil {
			return nil, &model.GenerationError{Provider: s.gen.ProviderName(), Err: err}
		}
	}

	s.log.Debug("answered question", "context_units", len(units), "sources", len(resp.Sources))
	return resp, nil
}
