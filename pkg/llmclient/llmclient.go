// Package llmclient wraps a chat-completion and embedding provider behind
// two operations: structured chat completion validated against a
// caller-supplied Go type, and text embedding. Schemas are derived from Go
// struct tags via invopop/jsonschema rather than hand-written as JSON,
// mirroring how function-call schemas are generated elsewhere in this
// codebase's ecosystem.
package llmclient

import (
	"context"
	"encoding/json"
	"time"

	"github.com/invopop/jsonschema"
	openai "github.com/sashabaranov/go-openai"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
	"github.com/lzrong0203/newsspark/pkg/observability"
)

// Client is a thin, provider-agnostic facade over an OpenAI-compatible
// chat + embeddings API. Model selection and credentials are injected at
// construction; callers never see the underlying SDK type.
type Client struct {
	raw            *openai.Client
	providerName   string
	chatModel      string
	embeddingModel string
	temperature    float32
	maxTokens      int
	metrics        *observability.Metrics
}

// Option customizes a Client at construction.
type Option func(*Client)

func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = float32(t) }
}

func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithMetrics records call counts/durations/errors for every ChatStructured
// call made through this Client.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a Client. baseURL may be empty to use the provider's default
// endpoint, or set to point at an OpenAI-compatible gateway.
func New(providerName, apiKey, baseURL, chatModel, embeddingModel string, opts ...Option) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	c := &Client{
		raw:            openai.NewClientWithConfig(cfg),
		providerName:   providerName,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		temperature:    0.7,
		maxTokens:      2000,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// schemaReflector mirrors the function-tool schema generator's reflector
// settings: inline everything, no $ref/$schema/$id noise, required fields
// driven by jsonschema struct tags.
var schemaReflector = &jsonschema.Reflector{
	RequiredFromJSONSchemaTags: true,
	ExpandedStruct:             true,
	DoNotReference:             true,
}

func schemaFor(v any) (*jsonschema.Schema, string) {
	schema := schemaReflector.Reflect(v)
	name := "result"
	if schema.Title != "" {
		name = schema.Title
	}
	return schema, name
}

// ChatStructured sends prompt as a single user message and asks the model
// to return JSON matching T's shape. The response is decoded into a new
// T and returned; a non-conforming response surfaces as LlmSchemaError
// rather than being silently patched or retried.
func ChatStructured[T any](ctx context.Context, c *Client, systemPrompt, prompt string) (*T, error) {
	var zero T
	schema, schemaName := schemaFor(zero)

	req := openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
				Strict: true,
			},
		},
	}

	start := time.Now()
	resp, err := c.raw.CreateChatCompletion(ctx, req)
	c.metrics.RecordLLMCall(c.chatModel, time.Since(start))
	if err != nil {
		c.metrics.RecordLLMError(c.chatModel)
		return nil, newssparkerrors.NewLlmTransportError(c.providerName, "chat_structured", "chat completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		c.metrics.RecordLLMError(c.chatModel)
		return nil, newssparkerrors.NewLlmTransportError(c.providerName, "chat_structured", "no choices returned", nil)
	}

	raw := resp.Choices[0].Message.Content
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		c.metrics.RecordLLMError(c.chatModel)
		return nil, newssparkerrors.NewLlmSchemaError(c.providerName, schemaName, "response did not match requested schema", raw, err)
	}
	return &out, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.raw.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, newssparkerrors.NewLlmTransportError(c.providerName, "embed", "embedding request failed", err)
	}
	if len(resp.Data) == 0 {
		return nil, newssparkerrors.NewLlmTransportError(c.providerName, "embed", "no embedding data returned", nil)
	}
	return resp.Data[0].Embedding, nil
}

// ProviderName reports the configured provider label, used in logs and in
// LearnedCorrection bookkeeping.
func (c *Client) ProviderName() string { return c.providerName }
