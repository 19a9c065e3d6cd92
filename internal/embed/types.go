// Package embed turns search queries into vectors comparable with the
// embeddings stored alongside each message.
//
// Stored embeddings are produced by the ingest side; this package only
// embeds query text, with the same model.
package embed

import (
	"context"
	"time"
)

// Common embedding constants
const (
	// DefaultModel matches the model used when messages were embedded.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimensions is the width of slack.message.embedding.
	DefaultDimensions = 1536

	// DefaultTimeout bounds one embedding request.
	DefaultTimeout = 15 * time.Second
)

// Embedder generates vector embeddings for text
type Embedder interface {
	// Embed generates embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	// Close releases resources
	Close() error
}
