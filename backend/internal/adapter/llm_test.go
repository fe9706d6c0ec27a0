package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "graphspace/backend/pkg/errors"
)

func chatReply(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

// fakeServer answers chat completions with content, failing the first
// failures calls with a 503.
func fakeServer(t *testing.T, content string, failures int32) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		switch r.URL.Path {
		case "/v1/chat/completions":
			_ = json.NewEncoder(w).Encode(chatReply(content))
		case "/v1/embeddings":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"model":  "embed",
				"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": []float32{0.5, -0.25}}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestAdapter(url string) *LLMAdapter {
	a := NewLLMAdapter(url, "", "test-model")
	a.backoff = time.Millisecond
	return a
}

func TestLLMAdapter_GenerateTitle(t *testing.T) {
	srv, _ := fakeServer(t, `  "Weekly planning notes"  `, 0)
	title, err := newTestAdapter(srv.URL).GenerateTitle(context.Background(), "lots of text")
	require.NoError(t, err)
	assert.Equal(t, "Weekly planning notes", title)
}

func TestLLMAdapter_GenerateTitleTruncates(t *testing.T) {
	long := "A title that keeps going well past the fifty character limit"
	srv, _ := fakeServer(t, long, 0)
	title, err := newTestAdapter(srv.URL).GenerateTitle(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, title, 50)
	assert.Equal(t, long[:47]+"...", title)
}

func TestLLMAdapter_GenerateTitleTruncatesOnRunes(t *testing.T) {
	srv, _ := fakeServer(t, "a"+strings.Repeat("é", 60), 0)
	title, err := newTestAdapter(srv.URL).GenerateTitle(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, 50, utf8.RuneCountInString(title))
	assert.Equal(t, "a"+strings.Repeat("é", 46)+"...", title)
}

func TestTruncate(t *testing.T) {
	cases := map[string]struct {
		in    string
		limit int
		want  string
	}{
		"short":       {in: "abc", limit: 5, want: "abc"},
		"exact":       {in: "abcde", limit: 5, want: "abcde"},
		"ascii":       {in: "abcdef", limit: 3, want: "abc..."},
		"multibyte":   {in: "aéééé", limit: 2, want: "aé..."},
		"exact runes": {in: "éééé", limit: 4, want: "éééé"},
		"zero limit":  {in: "é", limit: 0, want: "..."},
		"empty":       {in: "", limit: 0, want: ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := Truncate(tc.in, tc.limit, "...")
			assert.Equal(t, tc.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestLLMAdapter_ExtractTagsRetries(t *testing.T) {
	srv, calls := fakeServer(t, `["go", "graphs", "Go"]`, 2)
	tags, err := newTestAdapter(srv.URL).ExtractTags(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "graphs"}, tags)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestLLMAdapter_GivesUpAfterRetries(t *testing.T) {
	srv, calls := fakeServer(t, "unused", 10)
	_, err := newTestAdapter(srv.URL).Summarize(context.Background(), "text")
	require.Error(t, err)

	var failed *apperrors.ErrProviderFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 3, failed.Attempts)
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestLLMAdapter_Summarize(t *testing.T) {
	srv, _ := fakeServer(t, "\nShort summary.\n", 0)
	summary, err := newTestAdapter(srv.URL).Summarize(context.Background(), "long text")
	require.NoError(t, err)
	assert.Equal(t, "Short summary.", summary)
}

func TestLLMAdapter_Embed(t *testing.T) {
	srv, _ := fakeServer(t, "", 0)
	vec, err := newTestAdapter(srv.URL).Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25}, vec)
}

func TestLLMAdapter_EmbeddingModel(t *testing.T) {
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		requested = body.Model
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": []float32{1}}},
		})
	}))
	t.Cleanup(srv.Close)

	a := newTestAdapter(srv.URL)
	assert.Equal(t, "text-embedding-3-small", a.EmbeddingModel())

	a.SetEmbeddingModel("nomic-embed-text")
	a.SetEmbeddingModel("")
	assert.Equal(t, "nomic-embed-text", a.EmbeddingModel())

	_, err := a.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", requested)
}

func TestParseTags(t *testing.T) {
	cases := map[string]struct {
		in   string
		want []string
	}{
		"json array":    {in: `["ai", "ml"]`, want: []string{"ai", "ml"}},
		"fenced":        {in: "```json\n[\"ai\"]\n```", want: []string{"ai"}},
		"repairable":    {in: `["ai", "ml",`, want: []string{"ai", "ml"}},
		"comma list":    {in: `ai, ml , "deep learning"`, want: []string{"ai", "ml", "deep learning"}},
		"newline list":  {in: "ai\nml", want: []string{"ai", "ml"}},
		"dedup":         {in: `AI, ai, Ai`, want: []string{"AI"}},
		"empty":         {in: ``, want: []string{}},
		"capped at max": {in: `a,b,c,d,e,f,g`, want: []string{"a", "b", "c", "d", "e"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseTags(tc.in, 5))
		})
	}
}

// TestLLMAdapter_Live requires an OpenAI-compatible server at LLM_BASE_URL
func TestLLMAdapter_Live(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	baseURL := os.Getenv("LLM_BASE_URL")
	if baseURL == "" {
		t.Skip("LLM_BASE_URL not set")
	}

	a := NewLLMAdapter(baseURL, os.Getenv("LLM_API_KEY"), os.Getenv("LLM_MODEL"))
	tags, err := a.ExtractTags(context.Background(), "Go is a language for building reliable services.")
	if err != nil {
		t.Fatalf("ExtractTags failed: %v", err)
	}
	if len(tags) == 0 {
		t.Error("Expected at least one tag")
	}
}
