package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig holds configuration for the Anthropic Messages API.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Retry       RetryPolicy
}

// AnthropicClient implements Completer over anthropic-sdk-go.
type AnthropicClient struct {
	client anthropic.Client
	config AnthropicConfig
	logger *slog.Logger
}

// NewAnthropicClient creates a client for cfg. The SDK's own retries are
// disabled so that RetryPolicy is the single source of backoff.
func NewAnthropicClient(cfg AnthropicConfig, logger *slog.Logger) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		config: cfg,
		logger: logger,
	}
}

// Complete runs a single message request, retrying transient failures.
func (c *AnthropicClient) Complete(ctx context.Context, system, prompt string) Result {
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.Model),
		MaxTokens:   int64(c.config.MaxTokens),
		Temperature: anthropic.Float(c.config.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}

	var result Result
	err := Retry(ctx, c.config.Retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()

		resp, err := c.client.Messages.New(callCtx, req)
		if err != nil {
			c.logger.Debug("anthropic call failed", "model", c.config.Model, "error", err)
			return classifyAnthropicError(ctx, err)
		}

		var content string
		for _, block := range resp.Content {
			if block.Type == "text" {
				content = block.Text
				break
			}
		}

		if content == "" {
			return fmt.Errorf("no text content in response")
		}

		result = Result{
			Text: content,
			Usage: Usage{
				InputTokens:  int(resp.Usage.InputTokens),
				OutputTokens: int(resp.Usage.OutputTokens),
			},
		}
		return nil
	})
	if err != nil {
		return Failed(fmt.Errorf("anthropic completion: %w", err))
	}

	return result
}

// CompleteBatch issues the batch as concurrent requests.
func (c *AnthropicClient) CompleteBatch(ctx context.Context, system string, prompts []string) ([]string, error) {
	return completeConcurrently(ctx, c, system, prompts)
}

func classifyAnthropicError(parent context.Context, err error) error {
	if parent.Err() != nil {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && retryableStatus(apiErr.StatusCode) {
		return NewRetryableError(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewRetryableError(err)
	}

	return err
}
