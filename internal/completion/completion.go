// Package completion sends a prompt to a hosted chat-completion model and
// returns the reply as a Result value instead of a propagated error.
package completion

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/samber/lo"

	"github.com/hpungsan/roadmap/internal/config"
	"github.com/hpungsan/roadmap/internal/errors"
	"github.com/hpungsan/roadmap/internal/logger"
	"github.com/hpungsan/roadmap/internal/prompt"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// Result is the outcome of one completion call: either Success(text) or Failure(reason).
type Result struct {
	text string
	err  error
}

// Success wraps a model reply. Surrounding whitespace is trimmed.
func Success(text string) Result {
	return Result{text: strings.TrimSpace(text)}
}

// Failure wraps the reason a call did not produce a reply.
func Failure(err error) Result {
	if err == nil {
		err = stderrors.New("completion failed without a reason")
	}
	return Result{err: err}
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.err == nil }

// Text returns the reply; empty for failures.
func (r Result) Text() string { return r.text }

// Err returns the failure reason; nil for successes.
func (r Result) Err() error { return r.err }

// Client converts a prompt into a model reply.
type Client interface {
	Complete(ctx context.Context, prompt string) Result
}

// Func adapts a plain function to the Client interface.
type Func func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, prompt string) Result {
	text, err := f(ctx, prompt)
	if err != nil {
		return Failure(err)
	}
	return Success(text)
}

// Echo returns a client that replies with the prompt itself. Used by --dry-run.
func Echo() Client {
	return Func(func(_ context.Context, prompt string) (string, error) {
		return prompt, nil
	})
}

// ResolveModel picks the model identifier: the configured one, else the
// provider's default (for groq, the variant's own model).
func ResolveModel(cfg *config.Config, v prompt.Variant) string {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return lo.CoalesceOrEmpty(cfg.Model, "gpt-4o-mini")
	case config.ProviderAnthropic:
		return lo.CoalesceOrEmpty(cfg.Model, string(anthropic.ModelClaude4Sonnet20250514))
	default:
		return lo.CoalesceOrEmpty(cfg.Model, v.DefaultModel())
	}
}

// New builds the client selected by cfg.Provider for the given variant.
// A missing API key fails here so the process refuses to start.
func New(cfg *config.Config, v prompt.Variant, log *logger.Logger) (Client, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, errors.NewMissingCredential(cfg.KeyEnv())
	}
	model := ResolveModel(cfg, v)

	var (
		client Client
		err    error
	)
	switch cfg.Provider {
	case config.ProviderGroq, "":
		client, err = NewOpenAICompatible(apiKey, lo.CoalesceOrEmpty(cfg.BaseURL, GroqBaseURL), model, cfg.Temperature, cfg.MaxTokens)
	case config.ProviderOpenAI:
		client, err = NewOpenAICompatible(apiKey, cfg.BaseURL, model, cfg.Temperature, cfg.MaxTokens)
	case config.ProviderAnthropic:
		client = NewAnthropic(apiKey, cfg.BaseURL, model, cfg.Temperature, cfg.MaxTokens)
	default:
		return nil, errors.NewInvalidRequest("unknown provider: " + cfg.Provider)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	client = WithLogging(client, log, lo.CoalesceOrEmpty(cfg.Provider, config.ProviderGroq), model)
	if cfg.RequestTimeoutSeconds > 0 {
		client = WithTimeout(client, time.Duration(cfg.RequestTimeoutSeconds)*time.Second)
	}
	return client, nil
}

// WithTimeout bounds every call made through c.
func WithTimeout(c Client, d time.Duration) Client {
	return Func(func(ctx context.Context, prompt string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		r := c.Complete(ctx, prompt)
		return r.Text(), r.Err()
	})
}

// WithLogging records provider, model, prompt size and latency of each call.
func WithLogging(c Client, log *logger.Logger, provider, model string) Client {
	log = log.With("component", "completion", "provider", provider, "model", model)
	return Func(func(ctx context.Context, prompt string) (string, error) {
		start := time.Now()
		r := c.Complete(ctx, prompt)
		elapsed := time.Since(start).Milliseconds()
		if !r.OK() {
			log.Error("completion failed", "prompt_chars", len(prompt), "latency_ms", elapsed, "error", r.Err())
			return "", r.Err()
		}
		log.Info("completion succeeded", "prompt_chars", len(prompt), "reply_chars", len(r.Text()), "latency_ms", elapsed)
		return r.Text(), nil
	})
}
