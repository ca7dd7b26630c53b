package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.NotEmpty(t, cfg.EmbeddingModel)
		assert.False(t, cfg.RerankEnabled())
	})

	t.Run("options applied", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed.local"),
			WithEmbeddingModel("text-embedding-3-small"),
			WithRerankHost("http://rerank.local/"),
			WithRerankModel("ms-marco"),
			WithRequestTimeout(2*time.Second),
		)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://embed.local/v1", cfg.EmbeddingHost, "normalize adds /v1")
		assert.Equal(t, "http://rerank.local", cfg.RerankHost, "normalize trims trailing slash")
		assert.True(t, cfg.RerankEnabled())
		assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("missing embedding host", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing embedding model", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingModel(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("rerank host without model", func(t *testing.T) {
		cfg := NewConfig(WithRerankHost("http://rerank.local"), WithRerankModel(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero timeout normalized", func(t *testing.T) {
		cfg := NewConfig(WithRequestTimeout(0))
		require.NoError(t, cfg.Validate())
		assert.Positive(t, cfg.RequestTimeout)
	})
}
