// Package llm holds the generative text backends used by the classifier and
// the structured-data generator.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	maxRetryDelay = 10 * time.Second
)

// Backend turns a prompt into free text.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HTTPError is a non-2xx answer from a model API.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
	retryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, truncate(e.Body, 300))
}

// Retryable reports whether the request may succeed when repeated.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ErrEmptyResponse is returned when the API answered without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// New builds the backend selected by cfg.LLM.Provider.
func New(cfg *config.Config, logg *logger.Logger) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case "", ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("llm: gemini api key is required")
		}
		return NewGeminiClient(GeminiOptions{
			APIKey:     cfg.Gemini.APIKey,
			BaseURL:    cfg.Gemini.BaseURL,
			Model:      cfg.LLM.Model,
			Timeout:    cfg.LLM.Timeout,
			MaxRetries: cfg.LLM.MaxRetries,
		}, logg), nil
	case ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("llm: openai api key is required")
		}
		return NewOpenAIClient(OpenAIOptions{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.LLM.Model,
			Timeout:    cfg.LLM.Timeout,
			MaxRetries: cfg.LLM.MaxRetries,
		}, logg), nil
	}
	return nil, fmt.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
}

// transport is the retrying JSON POST shared by both clients.
type transport struct {
	provider   string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	logg       *logger.Logger
}

func (t *transport) postJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", t.provider, err)
	}

	backoff := t.backoff
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := t.postOnce(ctx, url, headers, payload)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("%s: decode response: %w", t.provider, uErr)
			}
			return nil
		}

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || !httpErr.Retryable() || attempt >= t.maxRetries {
			return err
		}

		sleepFor := backoff
		if httpErr.retryAfter > 0 {
			sleepFor = httpErr.retryAfter
		}
		if sleepFor > maxRetryDelay {
			sleepFor = maxRetryDelay
		}
		if t.logg != nil {
			t.logg.Warn(t.logg.WithFields(ctx, map[string]any{
				"provider": t.provider,
				"attempt":  attempt + 1,
				"status":   httpErr.StatusCode,
				"sleep":    sleepFor.String(),
			}), "model request retrying")
		}

		timer := time.NewTimer(sleepFor)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

func (t *transport) postOnce(ctx context.Context, url string, headers map[string]string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", t.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: send request: %w", t.provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", t.provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			Provider:   t.provider,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return raw, nil
}

func parseRetryAfter(value string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
