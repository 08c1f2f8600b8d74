package completion

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient talks to any OpenAI-compatible chat endpoint (Groq, OpenAI)
// through langchaingo.
type LangChainClient struct {
	llm      llms.Model
	callOpts []llms.CallOption
}

// NewOpenAICompatible creates a client for an OpenAI-compatible endpoint.
// An empty baseURL uses OpenAI's default.
func NewOpenAICompatible(apiKey, baseURL, model string, temperature float64, maxTokens int) (*LangChainClient, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	var callOpts []llms.CallOption
	if temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(temperature))
	}
	if maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(maxTokens))
	}

	return &LangChainClient{llm: llm, callOpts: callOpts}, nil
}

// Complete sends prompt as a single user message.
func (c *LangChainClient) Complete(ctx context.Context, prompt string) Result {
	text, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, c.callOpts...)
	if err != nil {
		return Failure(fmt.Errorf("openai-compatible completion: %w", err))
	}
	return Success(text)
}
