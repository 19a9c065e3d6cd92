package embed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
)

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // optional, for OpenAI-compatible providers
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// embeddingsClient is the part of *openai.Client the embedder uses.
type embeddingsClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// OpenAIEmbedder embeds text through the OpenAI embeddings API or any
// compatible endpoint.
type OpenAIEmbedder struct {
	client     embeddingsClient
	model      string
	dimensions int
	timeout    time.Duration
}

// NewOpenAIEmbedder creates an embedder. It does not contact the provider.
// The API key may be empty only for a compatible endpoint at BaseURL.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" && cfg.BaseURL == "" {
		return nil, slerrors.New(slerrors.ErrCodeConfigNotFound, "embedding api key is not configured", nil).
			WithSuggestion("Set OPENAI_API_KEY or embeddings.api_key, or search with --semantic-weight 0.")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newOpenAIEmbedder(openai.NewClientWithConfig(clientCfg), cfg), nil
}

func newOpenAIEmbedder(client embeddingsClient, cfg OpenAIConfig) *OpenAIEmbedder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OpenAIEmbedder{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    cfg.Timeout,
	}
}

// Embed generates the embedding for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for texts, in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, slerrors.EmbeddingError("create embeddings", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, slerrors.EmbeddingError(
			fmt.Sprintf("provider returned %d embeddings for %d inputs", len(resp.Data), len(texts)), nil)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, slerrors.EmbeddingError(fmt.Sprintf("provider returned out of range index %d", d.Index), nil)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, slerrors.EmbeddingError(
				fmt.Sprintf("dimension mismatch: got %d, want %d", len(d.Embedding), e.dimensions), nil).
				WithSuggestion("embeddings.dimensions must match the stored embedding column.")
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string { return e.model }

// Available reports whether the provider answers a model listing.
func (e *OpenAIEmbedder) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	_, err := e.client.ListModels(ctx)
	return err == nil
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (e *OpenAIEmbedder) Close() error { return nil }
