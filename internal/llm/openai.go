package llm

import (
	"context"
	"feedbacklens/internal/config"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIBackend talks to any OpenAI-compatible endpoint: OpenAI itself, the
// Hugging Face router, vLLM or Ollama.
type OpenAIBackend struct {
	client         openai.Client
	embeddingModel string
}

// NewOpenAIBackend creates a chat/embeddings client. Retries are disabled.
func NewOpenAIBackend(cfg config.ProviderConfig, embeddingModel string) *OpenAIBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIBackend{
		client:         openai.NewClient(opts...),
		embeddingModel: embeddingModel,
	}
}

// Generate sends the prompt as a single user message
func (b *OpenAIBackend) Generate(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion %s: %w", req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion %s: %w", req.Model, ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns one vector per input text, in input order
func (b *OpenAIBackend) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := b.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          b.embeddingModel,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings %s: %w", b.embeddingModel, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings %s: got %d vectors for %d texts", b.embeddingModel, len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("embeddings %s: index %d out of range", b.embeddingModel, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
