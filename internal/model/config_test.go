package model_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
)

func validConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "sk-test"
	cfg.Embedding.APIKey = "sk-test"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := model.DefaultConfig()

	require.Equal(t, "v1", cfg.APIVersion)
	require.Equal(t, model.BuildDev, cfg.Build)
	require.Equal(t, 1000, cfg.Index.ChunkSize)
	require.Equal(t, 200, cfg.Index.ChunkOverlap)
	require.Equal(t, 3, cfg.Index.TopK)
	require.Equal(t, "Proxy China", cfg.Warmup.Query)
	require.True(t, cfg.Warmup.Enabled)
	require.False(t, cfg.LLM.StrictSources)
}

func TestResolvedPaths(t *testing.T) {
	cfg := model.DefaultConfig()
	require.Equal(t, filepath.Join("data", "raw_data.json"), cfg.ResolvedCorpusPath())
	require.Equal(t, filepath.Join("data", "vector_store"), cfg.ResolvedIndexDir())
	require.Equal(t, ".env", cfg.EnvFile())

	cfg.Build = model.BuildTest
	require.Equal(t, filepath.Join("data", "test", "raw_data.json"), cfg.ResolvedCorpusPath())
	require.Equal(t, filepath.Join("data", "test", "vector_store"), cfg.ResolvedIndexDir())
	require.Equal(t, ".env.test", cfg.EnvFile())

	cfg.CorpusPath = "/tmp/corpus.json"
	cfg.IndexDir = "/tmp/idx"
	require.Equal(t, "/tmp/corpus.json", cfg.ResolvedCorpusPath())
	require.Equal(t, "/tmp/idx", cfg.ResolvedIndexDir())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*model.Config) {}},
		{name: "unknown build", mutate: func(c *model.Config) { c.Build = "staging" }, wantErr: true},
		{name: "overlap too large", mutate: func(c *model.Config) { c.Index.ChunkOverlap = 1000 }, wantErr: true},
		{name: "zero top k", mutate: func(c *model.Config) { c.Index.TopK = 0 }, wantErr: true},
		{name: "openai without key", mutate: func(c *model.Config) { c.LLM.APIKey = "" }, wantErr: true},
		{name: "ollama without key", mutate: func(c *model.Config) { c.LLM.Provider = "ollama"; c.LLM.APIKey = "" }},
		{name: "unknown llm provider", mutate: func(c *model.Config) { c.LLM.Provider = "bard" }, wantErr: true},
		{name: "hash embedder without key", mutate: func(c *model.Config) { c.Embedding.Provider = "hash"; c.Embedding.APIKey = "" }},
		{name: "hash embedder zero dimension", mutate: func(c *model.Config) { c.Embedding.Provider = "hash"; c.Embedding.Dimension = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMasked(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.APIKey = "sk-1234567890abcdef"

	masked := cfg.Masked()
	require.Equal(t, "sk-1****cdef", masked.LLM.APIKey)
	require.Equal(t, "****", masked.Embedding.APIKey)
	require.Equal(t, "sk-1234567890abcdef", cfg.LLM.APIKey, "original must be untouched")
}

func TestValidateIndex_IgnoresLLM(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Embedding.Provider = "hash"
	cfg.LLM.APIKey = ""

	require.NoError(t, cfg.ValidateIndex())
	require.Error(t, cfg.Validate())
}
