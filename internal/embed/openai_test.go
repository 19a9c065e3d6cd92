package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
)

// fakeClient stands in for *openai.Client.
type fakeClient struct {
	CreateFn func(ctx context.Context, req openai.EmbeddingRequest) (openai.EmbeddingResponse, error)
	ListErr  error
	lastReq  openai.EmbeddingRequest
}

var _ embeddingsClient = (*fakeClient)(nil)

func (f *fakeClient) CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	req := conv.Convert()
	f.lastReq = req
	return f.CreateFn(ctx, req)
}

func (f *fakeClient) ListModels(context.Context) (openai.ModelsList, error) {
	return openai.ModelsList{}, f.ListErr
}

// echoResponse returns one vector per input, indexes reversed to check
// that results are placed by index rather than arrival order.
func echoResponse(dims int) func(context.Context, openai.EmbeddingRequest) (openai.EmbeddingResponse, error) {
	return func(_ context.Context, req openai.EmbeddingRequest) (openai.EmbeddingResponse, error) {
		inputs := req.Input.([]string)
		var resp openai.EmbeddingResponse
		for i := len(inputs) - 1; i >= 0; i-- {
			vec := make([]float32, dims)
			vec[0] = float32(i)
			resp.Data = append(resp.Data, openai.Embedding{Index: i, Embedding: vec})
		}
		return resp, nil
	}
}

func TestNewOpenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{})

	require.Error(t, err)
	assert.Equal(t, slerrors.ErrCodeConfigNotFound, slerrors.GetCode(err))
}

func TestOpenAIEmbedder_Defaults(t *testing.T) {
	e := newOpenAIEmbedder(&fakeClient{}, OpenAIConfig{})

	assert.Equal(t, DefaultModel, e.ModelName())
	assert.Equal(t, DefaultDimensions, e.Dimensions())
	assert.Equal(t, DefaultTimeout, e.timeout)
}

func TestOpenAIEmbedder_EmbedBatch_OrdersByIndex(t *testing.T) {
	client := &fakeClient{CreateFn: echoResponse(4)}
	e := newOpenAIEmbedder(client, OpenAIConfig{Dimensions: 4})

	got, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, vec := range got {
		assert.Equal(t, float32(i), vec[0])
	}
	assert.Equal(t, openai.EmbeddingModel(DefaultModel), client.lastReq.Model)
	assert.Equal(t, 4, client.lastReq.Dimensions)
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	e := newOpenAIEmbedder(&fakeClient{CreateFn: echoResponse(4)}, OpenAIConfig{Dimensions: 4})

	vec, err := e.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestOpenAIEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		create func(context.Context, openai.EmbeddingRequest) (openai.EmbeddingResponse, error)
	}{
		{
			name: "provider error",
			create: func(context.Context, openai.EmbeddingRequest) (openai.EmbeddingResponse, error) {
				return openai.EmbeddingResponse{}, errors.New("429 rate limited")
			},
		},
		{
			name: "short response",
			create: func(context.Context, openai.EmbeddingRequest) (openai.EmbeddingResponse, error) {
				return openai.EmbeddingResponse{}, nil
			},
		},
		{
			name:   "dimension mismatch",
			create: echoResponse(3),
		},
		{
			name: "bad index",
			create: func(context.Context, openai.EmbeddingRequest) (openai.EmbeddingResponse, error) {
				return openai.EmbeddingResponse{Data: []openai.Embedding{{Index: 5, Embedding: make([]float32, 4)}}}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newOpenAIEmbedder(&fakeClient{CreateFn: tt.create}, OpenAIConfig{Dimensions: 4})

			_, err := e.Embed(context.Background(), "q")

			require.Error(t, err)
			assert.Equal(t, slerrors.ErrCodeEmbeddingFailed, slerrors.GetCode(err))
		})
	}
}

func TestOpenAIEmbedder_Available(t *testing.T) {
	up := newOpenAIEmbedder(&fakeClient{}, OpenAIConfig{})
	down := newOpenAIEmbedder(&fakeClient{ListErr: errors.New("401")}, OpenAIConfig{})

	assert.True(t, up.Available(context.Background()))
	assert.False(t, down.Available(context.Background()))
}

func TestNewFromConfig(t *testing.T) {
	t.Run("none disables", func(t *testing.T) {
		e, err := NewFromConfig(Config{Provider: "none"}, nil)
		require.NoError(t, err)
		assert.Nil(t, e)
	})

	t.Run("openai is cached by default", func(t *testing.T) {
		e, err := NewFromConfig(Config{Provider: "openai", APIKey: "sk-test"}, nil)
		require.NoError(t, err)
		_, ok := e.(*CachedEmbedder)
		assert.True(t, ok)
	})

	t.Run("negative cache size disables cache", func(t *testing.T) {
		e, err := NewFromConfig(Config{APIKey: "sk-test", CacheSize: -1}, nil)
		require.NoError(t, err)
		_, ok := e.(*OpenAIEmbedder)
		assert.True(t, ok)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewFromConfig(Config{Provider: "ollama"}, nil)
		assert.Equal(t, slerrors.ErrCodeConfigInvalid, slerrors.GetCode(err))
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewFromConfig(Config{Provider: "openai"}, nil)
		assert.Equal(t, slerrors.ErrCodeConfigNotFound, slerrors.GetCode(err))
	})

	t.Run("compatible endpoint needs no key", func(t *testing.T) {
		e, err := NewFromConfig(Config{Provider: "openai", BaseURL: "http://localhost:11434/v1"}, nil)
		require.NoError(t, err)
		assert.NotNil(t, e)
	})
}
