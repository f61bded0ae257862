package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"codemend/internal/backend"
	"codemend/internal/logging"
)

// OpenAI queries an OpenAI-compatible chat completion endpoint.
type OpenAI struct {
	backend.Nop
	opts    Options
	client  *openai.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewOpenAI creates the backend. BaseURL selects a compatible server
// (Azure gateways, vLLM, Ollama) instead of api.openai.com.
func NewOpenAI(opts Options, logger *zap.Logger) *OpenAI {
	opts = opts.withDefaults("openai", "gpt-4o-mini")
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &OpenAI{
		opts:    opts,
		client:  openai.NewClientWithConfig(cfg),
		limiter: newLimiter(opts.RequestsPerMinute),
		logger:  logging.For(logger, logging.CategoryBackend).With(zap.String("backend", opts.Name)),
	}
}

func (o *OpenAI) Name() string { return o.opts.Name }

func (o *OpenAI) Query(ctx context.Context, req backend.Request) []string {
	ctx, cancel, err := begin(ctx, o.limiter, o.opts.Timeout)
	defer cancel()
	if err != nil {
		o.logger.Warn("Rate limiter aborted", zap.Error(err))
		return nil
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.opts.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
		N:           o.opts.Candidates,
		Temperature: o.opts.Temperature,
	})
	if err != nil {
		o.logger.Warn("Chat completion failed", zap.String("issue", req.Issue.Key()), zap.Error(err))
		return nil
	}

	texts := make([]string, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		texts = append(texts, c.Message.Content)
	}
	answers := codeBlocks(texts)
	o.logger.Debug("Chat completion",
		zap.String("issue", req.Issue.Key()),
		zap.Int("choices", len(resp.Choices)),
		zap.Int("answers", len(answers)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return answers
}
