package adapter

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "graphspace/backend/pkg/errors"
)

// Match is one ranked hit of a vector search.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TextEmbedder turns text into a vector.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores vectors by id and ranks them against a query vector.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, limit int, filter map[string]any) ([]Match, error)
	Store(ctx context.Context, id string, vector []float32, metadata map[string]any) error
	Update(ctx context.Context, id string, vector []float32, metadata map[string]any) error
	Delete(ctx context.Context, id string) error
}

// Embedder is the full embedding provider contract consumed by services
// that combine graph queries with similarity search.
type Embedder interface {
	TextEmbedder
	VectorIndex
}

var _ TextEmbedder = (*LLMAdapter)(nil)

// SetEmbeddingModel changes the model used by Embed.
func (a *LLMAdapter) SetEmbeddingModel(model string) {
	if model != "" {
		a.mu.Lock()
		a.embeddingModel = model
		a.mu.Unlock()
	}
}

// EmbeddingModel returns the model used by Embed.
func (a *LLMAdapter) EmbeddingModel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.embeddingModel
}

// Embed returns the embedding of text from the configured endpoint.
func (a *LLMAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	currentModel := a.EmbeddingModel()

	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(currentModel),
	})
	if err != nil {
		a.logger.Error("Embedding request failed", zap.Error(err), zap.String("model", currentModel))
		return nil, apperrors.NewProviderFailed(currentModel, 1, retryable(err), err)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.ErrProviderNoResponse
	}
	return resp.Data[0].Embedding, nil
}
