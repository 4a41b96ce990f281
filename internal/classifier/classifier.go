// Package classifier asks the model whether a page describes an in-scope tool.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/aitools-scraper/internal/llm"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

// MaxPromptRunes bounds the page prefix sent for classification.
const MaxPromptRunes = 2000

type Classifier struct {
	backend llm.Backend
	logg    *logger.Logger
}

func New(backend llm.Backend, logg *logger.Logger) *Classifier {
	return &Classifier{backend: backend, logg: logg}
}

// IsRelevant fails closed: backend errors and empty text both yield false.
func (c *Classifier) IsRelevant(ctx context.Context, text string, categories []string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	answer, err := c.backend.Generate(ctx, Prompt(text, categories))
	if err != nil {
		if c.logg != nil {
			c.logg.Warn(c.logg.WithField(c.logg.WithStage(ctx, "classify"), "error", err.Error()), "relevance check failed, treating as not relevant")
		}
		return false
	}
	return strings.Contains(strings.ToLower(answer), "yes")
}

// Prompt renders the yes/no question for the leading MaxPromptRunes of text.
func Prompt(text string, categories []string) string {
	return fmt.Sprintf("Is this AI tool for: %s? Answer \"Yes\" or \"No\".\n\nText: \"%s\"",
		strings.Join(categories, ", "), truncateRunes(text, MaxPromptRunes))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
