package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for OpenAI-compatible chat endpoints,
// including self-hosted servers that speak the same API.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Seed        *int
	Retry       RetryPolicy
}

// DefaultOpenAIConfig returns deterministic settings suited to evaluation.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:     openai.GPT4oMini,
		MaxTokens: 1024,
		Timeout:   60 * time.Second,
		Retry:     DefaultRetryPolicy(),
	}
}

// OpenAIClient implements Completer over go-openai.
type OpenAIClient struct {
	client *openai.Client
	config OpenAIConfig
	logger *slog.Logger
}

// NewOpenAIClient creates a client for cfg.
func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logger,
	}
}

// Complete runs a single chat completion, retrying transient failures.
func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) Result {
	req := c.buildRequest(system, prompt)

	var result Result
	err := Retry(ctx, c.config.Retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(callCtx, req)
		if err != nil {
			c.logger.Debug("openai call failed", "model", c.config.Model, "error", err)
			return classifyOpenAIError(ctx, err)
		}

		if len(resp.Choices) == 0 {
			return fmt.Errorf("no response choices")
		}

		result = Result{
			Text: resp.Choices[0].Message.Content,
			Usage: Usage{
				InputTokens:  resp.Usage.PromptTokens,
				OutputTokens: resp.Usage.CompletionTokens,
			},
		}
		return nil
	})
	if err != nil {
		return Failed(fmt.Errorf("openai completion: %w", err))
	}

	return result
}

// CompleteBatch issues the batch as concurrent requests.
func (c *OpenAIClient) CompleteBatch(ctx context.Context, system string, prompts []string) ([]string, error) {
	return completeConcurrently(ctx, c, system, prompts)
}

func (c *OpenAIClient) buildRequest(system, prompt string) openai.ChatCompletionRequest {
	modelNameLower := strings.ToLower(c.config.Model)

	// Reasoning models reject system messages and temperature
	isReasoningModel := strings.HasPrefix(modelNameLower, "o1") ||
		strings.HasPrefix(modelNameLower, "o3") ||
		strings.HasPrefix(modelNameLower, "o4")

	if isReasoningModel {
		combined := prompt
		if system != "" {
			combined = system + "\n\n" + prompt
		}
		return openai.ChatCompletionRequest{
			Model:               c.config.Model,
			MaxCompletionTokens: c.config.MaxTokens,
			Seed:                c.config.Seed,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: combined},
			},
		}
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	return openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Seed:        c.config.Seed,
		Messages:    messages,
	}
}

// classifyOpenAIError marks rate limits, server errors and per-attempt
// timeouts as retryable.
func classifyOpenAIError(parent context.Context, err error) error {
	if parent.Err() != nil {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && retryableStatus(apiErr.HTTPStatusCode) {
		return NewRetryableError(err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && retryableStatus(reqErr.HTTPStatusCode) {
		return NewRetryableError(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewRetryableError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewRetryableError(err)
	}

	return err
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
