package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// OpenAIClient calls the chat completions endpoint of OpenAI or any
// compatible server.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	model   string
	t       *transport
}

func NewOpenAIClient(opts OpenAIOptions, logg *logger.Logger) *OpenAIClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOpenAIBaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultOpenAIModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	return &OpenAIClient{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		model:   opts.Model,
		t: &transport{
			provider:   ProviderOpenAI,
			client:     &http.Client{Timeout: opts.Timeout},
			maxRetries: opts.MaxRetries,
			backoff:    opts.Backoff,
			logg:       logg,
		},
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var resp chatResponse
	if err := c.t.postJSON(ctx, c.baseURL+"/chat/completions", headers, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
