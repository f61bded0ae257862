// Package llm provides chat-model backends. Each query asks for a number of
// candidate completions and returns the code block of each; any API error
// is logged and turned into an empty answer.
package llm

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"codemend/internal/backend"
)

// Options are shared by all chat backends.
type Options struct {
	Name              string
	Model             string
	APIKey            string
	BaseURL           string
	Candidates        int           // completions per query; at least 1
	Temperature       float32       // sampling temperature
	Timeout           time.Duration // per request; zero means none
	RequestsPerMinute int           // zero disables pacing
	SystemPrompt      string
}

func (o Options) withDefaults(name, model string) Options {
	if o.Name == "" {
		o.Name = name
	}
	if o.Model == "" {
		o.Model = model
	}
	if o.Candidates < 1 {
		o.Candidates = 1
	}
	if o.SystemPrompt == "" {
		o.SystemPrompt = backend.SystemPrompt
	}
	return o
}

func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// begin applies pacing and the request timeout. The returned cancel must
// always be called.
func begin(ctx context.Context, limiter *rate.Limiter, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return ctx, func() {}, err
		}
	}
	if timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		return ctx, cancel, nil
	}
	return ctx, func() {}, nil
}

// codeBlocks extracts the code of each non-empty completion.
func codeBlocks(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		code := backend.ExtractCode(t)
		if strings.TrimSpace(code) == "" {
			continue
		}
		out = append(out, code)
	}
	return out
}
