package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/embedding"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/index"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/llm"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/logging"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/preprocess"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/service"
)

// app holds the components of a running retrieval service
type app struct {
	cfg     *model.Config
	log     *slog.Logger
	index   *index.Index
	llm     *llm.Client
	service *service.Service
}

func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		a.log.Warn("close index", "err", err)
	}
}

// mustConfig loads the effective configuration and a logger for it
func mustConfig() (*model.Config, *slog.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr), nil
}

// buildIndex opens the persisted index with the configured embedder
func buildIndex(cfg *model.Config, log *slog.Logger) (*index.Index, error) {
	if err := cfg.ValidateIndex(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	embedder, err := embedding.New(cfg.Embedding, log)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return index.New(index.Config{
		Dir:          cfg.ResolvedIndexDir(),
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		Timeout:      cfg.Index.Timeout,
	}, embedder, log), nil
}

// buildApp wires the index, generation client and orchestrator
func buildApp(cfg *model.Config, log *slog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	idx, err := buildIndex(cfg, log)
	if err != nil {
		return nil, err
	}

	llmConfig := llm.ConfigFromModel(cfg.LLM)
	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	client := llm.NewClient(provider, llmConfig, log)

	svc := service.New(service.ConfigFromModel(cfg), idx, client, preprocess.New(log), log)

	return &app{
		cfg:     cfg,
		log:     log,
		index:   idx,
		llm:     client,
		service: svc,
	}, nil
}
