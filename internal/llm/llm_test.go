package llm

import (
	"context"
	"encoding/json"
	"feedbacklens/internal/config"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *OpenAIBackend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIBackend(config.ProviderConfig{APIKey: "test", BaseURL: srv.URL}, "embed-small")
}

func TestOpenAIBackend_Generate(t *testing.T) {
	var got map[string]any
	b := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"ok\":true}"}}]}`)
	})

	out, err := b.Generate(context.Background(), Request{
		Model:       "meta-llama/Llama-3.1-8B-Instruct",
		Prompt:      "hello",
		MaxTokens:   64,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, "meta-llama/Llama-3.1-8B-Instruct", got["model"])
	assert.EqualValues(t, 64, got["max_completion_tokens"])
	assert.InDelta(t, 0.2, got["temperature"], 1e-9)
	assert.NotContains(t, got, "response_format")
}

func TestOpenAIBackend_JSONMode(t *testing.T) {
	var got map[string]any
	b := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{}"}}]}`)
	})

	_, err := b.Generate(context.Background(), Request{Model: "m", Prompt: "hello", JSON: true})
	require.NoError(t, err)

	format, ok := got["response_format"].(map[string]any)
	require.True(t, ok, "response_format missing: %v", got["response_format"])
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAIBackend_NoChoices(t *testing.T) {
	b := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	})

	_, err := b.Generate(context.Background(), Request{Model: "m", Prompt: "p"})
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIBackend_Embed(t *testing.T) {
	b := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// out of order on purpose
		io.WriteString(w, `{"object":"list","model":"embed-small",
			"data":[{"object":"embedding","index":1,"embedding":[0,1]},{"object":"embedding","index":0,"embedding":[1,0]}],
			"usage":{"prompt_tokens":2,"total_tokens":2}}`)
	})

	vecs, err := b.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, vecs)
}

type fakeGenerator struct {
	model  string
	config *genai.GenerateContentConfig
	text   string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, _ []*genai.Content,
	cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = cfg
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(f.text, genai.RoleModel),
		}},
	}, nil
}

func TestGeminiBackend_Generate(t *testing.T) {
	fake := &fakeGenerator{text: `{"score": 80}`}
	b := &GeminiBackend{models: fake}

	out, err := b.Generate(context.Background(), Request{
		Model: "gemini-2.0-flash", Prompt: "p", MaxTokens: 100, Temperature: 0.5, JSON: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 80}`, out)
	assert.Equal(t, "gemini-2.0-flash", fake.model)
	assert.Equal(t, int32(100), fake.config.MaxOutputTokens)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
}

func TestGeminiBackend_Empty(t *testing.T) {
	b := &GeminiBackend{models: &fakeGenerator{}}
	_, err := b.Generate(context.Background(), Request{Model: "g", Prompt: "p"})
	require.ErrorIs(t, err, ErrEmptyResponse)
}

type slowBackend struct {
	inflight, peak int32
}

func (s *slowBackend) Generate(ctx context.Context, req Request) (string, error) {
	n := atomic.AddInt32(&s.inflight, 1)
	for {
		p := atomic.LoadInt32(&s.peak)
		if n <= p || atomic.CompareAndSwapInt32(&s.peak, p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	atomic.AddInt32(&s.inflight, -1)
	return "ok", nil
}

func TestLimitedBackend_SerializesPerModel(t *testing.T) {
	inner := &slowBackend{}
	b := &limitedBackend{inner: inner, limits: newLimiter(1)}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Generate(context.Background(), Request{Model: "same"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.peak))
}

func TestLimiter_RespectsContext(t *testing.T) {
	l := newLimiter(1)
	release, err := l.acquire(context.Background(), "m")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.acquire(ctx, "m")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// other models are not blocked
	r2, err := l.acquire(context.Background(), "other")
	require.NoError(t, err)
	r2()
}

func TestClients_DisabledProvider(t *testing.T) {
	cfg := config.DefaultAIConfig()
	cfg.Gemini.APIKey = ""
	c := NewClients(cfg, zap.NewNop())

	_, err := c.Backend(config.ProviderGemini)
	require.ErrorIs(t, err, ErrProviderDisabled)
}

func TestClients_SharesBackend(t *testing.T) {
	cfg := config.DefaultAIConfig()
	cfg.OpenAI.APIKey = "k"
	c := NewClients(cfg, zap.NewNop())

	a, err := c.Backend(config.ProviderOpenAI)
	require.NoError(t, err)
	b, err := c.Backend(config.ProviderOpenAI)
	require.NoError(t, err)
	assert.Same(t, a, b)
}
