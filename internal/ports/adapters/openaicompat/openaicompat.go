// Package openaicompat serves every provider that speaks the OpenAI chat
// completions API: OpenAI itself and Groq.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/forPelevin/gistcut/internal/llm"
	"github.com/forPelevin/gistcut/internal/ports"
)

const (
	GroqBaseURL = "https://api.groq.com/openai/v1"

	defaultOpenAIModel = "gpt-4o-mini"
	defaultGroqModel   = "llama-3.3-70b-versatile"
	requestTimeout     = 90 * time.Second
)

type Adapter struct {
	name  string
	key   string
	model string
	cli   *openai.Client
}

// New builds an adapter for any OpenAI-compatible endpoint. An empty baseURL
// uses the client default.
func New(name, apiKey, model, baseURL string) *Adapter {
	clientConfig := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Adapter{
		name:  name,
		key:   strings.TrimSpace(apiKey),
		model: model,
		cli:   openai.NewClientWithConfig(clientConfig),
	}
}

func NewOpenAI(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = defaultOpenAIModel
	}
	return New("openai", apiKey, model, baseURL)
}

func NewGroq(apiKey, model string) *Adapter {
	if model == "" {
		model = defaultGroqModel
	}
	return New("groq", apiKey, model, GroqBaseURL)
}

func (a *Adapter) Name() string    { return a.name }
func (a *Adapter) Model() string   { return a.model }
func (a *Adapter) Available() bool { return a.key != "" }

func (a *Adapter) Probe(ctx context.Context) error {
	return llm.Ping(ctx, a, llm.DefaultProbeTimeout)
}

func (a *Adapter) Query(ctx context.Context, prompt string, opts ports.QueryOptions) (string, error) {
	if !a.Available() {
		return "", fmt.Errorf("%s: %w", a.name, llm.ErrProviderUnavailable)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: opts.Temperature,
	}
	if opts.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := a.cli.CreateChatCompletion(reqCtx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", a.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: response has no choices", a.name)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%s: empty content", a.name)
	}
	return content, nil
}

// wrap maps client errors carrying an HTTP status to *llm.StatusError.
func (a *Adapter) wrap(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &llm.StatusError{Provider: a.name, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &llm.StatusError{Provider: a.name, StatusCode: reqErr.HTTPStatusCode, Body: truncate(string(reqErr.Body), 400)}
	}
	return fmt.Errorf("%s: %w", a.name, err)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
