package embedder

import (
	"fmt"
	"strings"

	"github.com/filescope/filescope/internal/config"
)

const defaultCacheSize = 10000

// New creates an embedder from application configuration. An unset
// provider defaults to Ollama since it needs no credentials.
func New(cfg *config.Config) (Embedder, error) {
	cache := NewCache(defaultCacheSize)

	switch strings.ToLower(cfg.EmbedProvider) {
	case ProviderOllama, "":
		return NewOllamaProvider(cfg.EmbedBaseURL, cfg.EmbedModel, cfg.EmbedDim, cache), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.EmbedAPIKey, cfg.EmbedModel, cfg.EmbedDim, cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProviderEnabled, cfg.EmbedProvider)
	}
}
