package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"graphspace/backend/internal/constants"
	apperrors "graphspace/backend/pkg/errors"
	"graphspace/backend/pkg/logger"
)

// LanguageModel is the text service the note and task services consume. The
// graph engine itself never calls it.
type LanguageModel interface {
	GenerateTitle(ctx context.Context, text string) (string, error)
	ExtractTags(ctx context.Context, text string) ([]string, error)
	Summarize(ctx context.Context, text string) (string, error)
}

const (
	titlePrompt = "Generate a short, descriptive title for the following content. " +
		"Return only the title without any explanations or additional text."
	tagsPrompt = "Extract relevant tags from the following text. " +
		"Return only the tags as a JSON array of strings without explanations or additional text."
	summaryPrompt = "Summarize the following text concisely while preserving the key information."

	maxPromptChars  = 4000
	maxSummaryChars = 6000
)

// LLMAdapter talks to an OpenAI-compatible chat completion endpoint.
type LLMAdapter struct {
	client         *openai.Client
	model          string
	embeddingModel string
	mu             sync.RWMutex // Protects model and embeddingModel
	backoff        time.Duration
	logger         *zap.Logger
}

var _ LanguageModel = (*LLMAdapter)(nil)

// NewLLMAdapter creates a new LLM adapter. baseURL is the server root; the
// OpenAI "/v1" prefix is appended.
func NewLLMAdapter(baseURL, apiKey, modelID string) *LLMAdapter {
	// OpenAI-compatible gateways often accept any key
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"

	return &LLMAdapter{
		client:         openai.NewClientWithConfig(config),
		model:          modelID,
		embeddingModel: string(openai.SmallEmbedding3),
		backoff:        time.Second,
		logger:         logger.Get(),
	}
}

// GetModel returns the current model
func (a *LLMAdapter) GetModel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// GenerateTitle asks for a short title, capped at the derived title length.
func (a *LLMAdapter) GenerateTitle(ctx context.Context, text string) (string, error) {
	content, err := a.complete(ctx, titlePrompt, "Content: "+truncate(text, maxPromptChars)+"\n\nTitle:", 50, 0.5)
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(content), `"`))
	if utf8.RuneCountInString(title) > constants.MaxDerivedTitleLength {
		title = Truncate(title, constants.MaxDerivedTitleLength-len(constants.DerivedTitleSuffix), constants.DerivedTitleSuffix)
	}
	return title, nil
}

// ExtractTags asks for tags and parses whatever list format comes back.
func (a *LLMAdapter) ExtractTags(ctx context.Context, text string) ([]string, error) {
	content, err := a.complete(ctx, tagsPrompt, "Text: "+truncate(text, maxPromptChars)+"\n\nTags:", 100, 0.3)
	if err != nil {
		return nil, err
	}
	return ParseTags(content, constants.LLMMaxTags), nil
}

// Summarize asks for a concise summary.
func (a *LLMAdapter) Summarize(ctx context.Context, text string) (string, error) {
	content, err := a.complete(ctx, summaryPrompt, "Text: "+truncate(text, maxSummaryChars)+"\n\nSummary:", constants.LLMSummaryMaxTokens, 0.5)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// complete sends one chat completion with retry and linear backoff.
func (a *LLMAdapter) complete(ctx context.Context, systemPrompt, userMsg string, maxTokens int, temperature float32) (string, error) {
	currentModel := a.GetModel()
	req := openai.ChatCompletionRequest{
		Model: currentModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var resp openai.ChatCompletionResponse
	var err error
	attempts := 0
	for attempt := 0; attempt < constants.LLMMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * a.backoff
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return "", apperrors.NewProviderFailed(currentModel, attempts, false, ctx.Err())
			case <-time.After(backoff):
			}
		}

		attempts++
		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", currentModel),
		)
		if !retryable(err) {
			break
		}
	}

	if err != nil {
		return "", apperrors.NewProviderFailed(currentModel, attempts, retryable(err), err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.ErrProviderNoResponse
	}

	content := resp.Choices[0].Message.Content
	a.logger.Debug("LLM response generated",
		zap.String("model", currentModel),
		zap.Int("chars", len(content)),
	)
	return content, nil
}

// retryable reports whether a failed request is worth another attempt:
// transport errors, rate limits and server errors.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}

// ParseTags reads a tag list from model output: a JSON array, a JSON array
// mangled enough to need repair, or a comma-separated list. Tags are trimmed
// and deduplicated case-insensitively; at most limit are kept.
func ParseTags(content string, limit int) []string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw []string
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &raw); err != nil {
			raw = nil
			if repaired, rerr := jsonrepair.JSONRepair(content); rerr == nil {
				_ = json.Unmarshal([]byte(repaired), &raw)
			}
		}
	}
	if raw == nil {
		cleaned := strings.NewReplacer("[", "", "]", "", `"`, "", "'", "", "\n", ",").Replace(content)
		raw = strings.Split(cleaned, ",")
	}

	tags := make([]string, 0, limit)
	seen := make(map[string]bool)
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
		if len(tags) >= limit {
			break
		}
	}
	return tags
}

func truncate(text string, limit int) string {
	return Truncate(text, limit, "...")
}

// Truncate cuts text to its first limit runes and appends suffix when
// anything was cut.
func Truncate(text string, limit int, suffix string) string {
	if limit < 0 {
		limit = 0
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i] + suffix
		}
		n++
	}
	return text
}
