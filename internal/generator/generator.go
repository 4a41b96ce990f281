// Package generator builds candidate records from page text with a
// summarize-then-structure prompt chain.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/aitools-scraper/internal/candidate"
	"github.com/angelmondragon/aitools-scraper/internal/llm"
	pkgerrors "github.com/angelmondragon/aitools-scraper/pkg/errors"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

// ChunkRunes is the size of each text slice summarized independently.
const ChunkRunes = 7000

const (
	ReasonInvalidOutput  = "invalid output"
	ReasonMissingName    = "missing name"
	ReasonBackendFailure = "backend failure"
)

// GenerationError is a total failure to produce a record for one candidate.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Reason, e.Err)
	}
	return "generation failed: " + e.Reason
}

func (e *GenerationError) Unwrap() error { return e.Err }

type Generator struct {
	backend llm.Backend
	logg    *logger.Logger
}

func New(backend llm.Backend, logg *logger.Logger) *Generator {
	return &Generator{backend: backend, logg: logg}
}

// Generate summarizes text chunk by chunk, then asks for the structured record.
// Failed chunks are skipped; only when all of them fail is the call aborted.
func (g *Generator) Generate(ctx context.Context, text, sourceURL string) (*candidate.Record, error) {
	chunks := Chunk(text, ChunkRunes)
	summaries := make([]string, 0, len(chunks))
	var lastErr error
	for i, chunk := range chunks {
		summary, err := g.backend.Generate(ctx, SummaryPrompt(chunk))
		if err != nil {
			lastErr = err
			if g.logg != nil {
				g.logg.Warn(g.logg.WithFields(ctx, map[string]any{
					"stage": "generate",
					"chunk": i,
					"error": err.Error(),
				}), "chunk summary failed")
			}
			continue
		}
		summaries = append(summaries, summary)
	}
	if len(summaries) == 0 {
		return nil, generationErr(ReasonBackendFailure, lastErr)
	}

	out, err := g.backend.Generate(ctx, FinalPrompt(sourceURL, strings.Join(summaries, "\n")))
	if err != nil {
		return nil, generationErr(ReasonBackendFailure, err)
	}

	span, err := ExtractJSONObject(out)
	if err != nil {
		return nil, generationErr(ReasonInvalidOutput, err)
	}
	rec, err := decodeRecord(span)
	if err != nil {
		return nil, generationErr(ReasonInvalidOutput, err)
	}
	if strings.TrimSpace(rec.Name) == "" {
		return nil, generationErr(ReasonMissingName, nil)
	}
	rec.WebsiteURL = sourceURL
	return &rec, nil
}

func generationErr(reason string, cause error) error {
	ge := &GenerationError{Reason: reason, Err: cause}
	return pkgerrors.Wrap(pkgerrors.CodeGeneration, ge, reason)
}

// Chunk splits text into consecutive slices of at most size runes. Empty text
// yields a single empty chunk so the model still sees the request.
func Chunk(text string, size int) []string {
	runes := []rune(text)
	if len(runes) == 0 || size <= 0 {
		return []string{text}
	}
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

func SummaryPrompt(chunk string) string {
	return "Summarize the tool's features and purpose from this text:\n\n" + chunk
}

func FinalPrompt(sourceURL, summary string) string {
	return fmt.Sprintf(`From the summary of %s, create a JSON object: "name", "tagline", "description", "tags" (5-7 keywords), and "visual" (a JSON object with a "color" ['blue', 'green', 'purple', 'orange'] and a "content" array of 3 objects, each with "icon" ['zap', 'bar-chart'] and "text").

Summary:
%s

Return ONLY the JSON object.`, sourceURL, summary)
}
