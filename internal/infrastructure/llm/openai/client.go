package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
	"github.com/Shiroi-Max/koala-route/internal/infrastructure/resilience"
)

// Config holds the chat-completion and embedding collaborator settings. The
// client speaks to either the public OpenAI API or an Azure OpenAI
// deployment depending on APIType.
type Config struct {
	APIKey       string
	BaseURL      string
	APIType      string // "openai" or "azure"
	GenModel     string
	EmbedModel   string
	Temperature  float64
	MaxTokens    int
	LLMRateRPS   float64
	EmbedRateRPS float64
}

// Client implements the ChatCompleter and Embedder ports on top of go-openai.
type Client struct {
	client      *openai.Client
	genModel    string
	embedModel  string
	temperature float32
	maxTokens   int

	llmLimiter   *rate.Limiter
	embedLimiter *rate.Limiter
	executor     *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	var clientCfg openai.ClientConfig
	if cfg.APIType == "azure" {
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
	} else {
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
	}

	return &Client{
		client:       openai.NewClientWithConfig(clientCfg),
		genModel:     cfg.GenModel,
		embedModel:   cfg.EmbedModel,
		temperature:  float32(cfg.Temperature),
		maxTokens:    cfg.MaxTokens,
		llmLimiter:   newLimiter(cfg.LLMRateRPS),
		embedLimiter: newLimiter(cfg.EmbedRateRPS),
		executor:     executor,
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Complete sends the assembled message list and returns the generated text.
func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if err := waitLimiter(ctx, c.llmLimiter); err != nil {
		return "", err
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       c.genModel,
		Messages:    chatMessages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var content string
	call := func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return fmt.Errorf("chat completion request: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("chat completion returned no choices")
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}

	if err := c.execute(ctx, "openai.complete", call); err != nil {
		return "", err
	}
	return content, nil
}

// Embed builds one vector per input text, preserving order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := waitLimiter(ctx, c.embedLimiter); err != nil {
		return nil, err
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          openai.EmbeddingModel(c.embedModel),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	var vectors [][]float32
	call := func(ctx context.Context) error {
		resp, err := c.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return fmt.Errorf("embedding request: %w", err)
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("embedding response size mismatch: %d inputs, %d vectors", len(texts), len(resp.Data))
		}
		vectors = make([][]float32, len(resp.Data))
		for i, item := range resp.Data {
			vectors[i] = item.Embedding
		}
		return nil
	}

	if err := c.execute(ctx, "openai.embed", call); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyOpenAIError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
