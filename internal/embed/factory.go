package embed

import (
	"fmt"
	"strings"
	"time"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderOpenAI uses the OpenAI embeddings API or a compatible endpoint.
	ProviderOpenAI ProviderType = "openai"

	// ProviderNone disables the semantic leg; searches must be lexical.
	ProviderNone ProviderType = "none"
)

// Config selects and configures the query embedder.
type Config struct {
	Provider   string
	Model      string
	Dimensions int
	BaseURL    string
	APIKey     string
	CacheSize  int // 0 uses DefaultCacheSize, negative disables caching
	Timeout    time.Duration
}

// NewFromConfig builds the configured embedder, wrapped in a query cache
// unless caching is disabled. ProviderNone returns (nil, nil).
func NewFromConfig(cfg Config, observer CacheObserver) (Embedder, error) {
	switch ProviderType(strings.ToLower(strings.TrimSpace(cfg.Provider))) {
	case ProviderNone:
		return nil, nil
	case ProviderOpenAI, "":
	default:
		return nil, slerrors.ConfigError(fmt.Sprintf("unknown embedding provider %q", cfg.Provider), nil).
			WithSuggestion("Use embeddings.provider: openai or none.")
	}

	inner, err := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Timeout:    cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize < 0 {
		return inner, nil
	}
	return NewCachedEmbedder(inner, cfg.CacheSize, observer), nil
}
