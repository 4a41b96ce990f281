package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

const (
	defaultGeminiModel   = "gemini-1.5-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
)

type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the first retry delay; it doubles on each attempt.
	Backoff time.Duration
}

// GeminiClient calls the generateContent REST endpoint.
type GeminiClient struct {
	apiKey  string
	baseURL string
	model   string
	t       *transport
}

func NewGeminiClient(opts GeminiOptions, logg *logger.Logger) *GeminiClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultGeminiBaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	return &GeminiClient{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		model:   opts.Model,
		t: &transport{
			provider:   ProviderGemini,
			client:     &http.Client{Timeout: opts.Timeout},
			maxRetries: opts.MaxRetries,
			backoff:    opts.Backoff,
			logg:       logg,
		},
	}
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	// transport errors quote the URL, so the key stays in a header
	endpoint := fmt.Sprintf("%s/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	headers := map[string]string{"x-goog-api-key": c.apiKey}

	var resp geminiResponse
	if err := c.t.postJSON(ctx, endpoint, headers, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}
