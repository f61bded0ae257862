package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"codemend/internal/backend"
	"codemend/internal/logging"
)

// Gemini queries the Gemini API through the official genai client.
type Gemini struct {
	backend.Nop
	opts    Options
	client  *genai.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGemini creates the backend. The client is built eagerly so a bad
// configuration fails at startup rather than on the first issue.
func NewGemini(ctx context.Context, opts Options, logger *zap.Logger) (*Gemini, error) {
	opts = opts.withDefaults("gemini", "gemini-2.5-flash")
	cfg := &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI}
	if opts.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = opts.BaseURL
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{
		opts:    opts,
		client:  client,
		limiter: newLimiter(opts.RequestsPerMinute),
		logger:  logging.For(logger, logging.CategoryBackend).With(zap.String("backend", opts.Name)),
	}, nil
}

func (g *Gemini) Name() string { return g.opts.Name }

func (g *Gemini) Query(ctx context.Context, req backend.Request) []string {
	ctx, cancel, err := begin(ctx, g.limiter, g.opts.Timeout)
	defer cancel()
	if err != nil {
		g.logger.Warn("Rate limiter aborted", zap.Error(err))
		return nil
	}

	temp := g.opts.Temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model,
		genai.Text(req.Text),
		&genai.GenerateContentConfig{
			CandidateCount:    int32(g.opts.Candidates),
			Temperature:       &temp,
			SystemInstruction: genai.NewContentFromText(g.opts.SystemPrompt, genai.RoleUser),
		},
	)
	if err != nil {
		g.logger.Warn("Generate content failed", zap.String("issue", req.Issue.Key()), zap.Error(err))
		return nil
	}

	answers := codeBlocks(candidateTexts(resp))
	g.logger.Debug("Generate content",
		zap.String("issue", req.Issue.Key()),
		zap.Int("candidates", len(resp.Candidates)),
		zap.Int("answers", len(answers)))
	return answers
}

// candidateTexts concatenates the text parts of every candidate.
func candidateTexts(resp *genai.GenerateContentResponse) []string {
	if resp == nil {
		return nil
	}
	var out []string
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var text string
		for _, p := range c.Content.Parts {
			if p != nil && !p.Thought {
				text += p.Text
			}
		}
		out = append(out, text)
	}
	return out
}
