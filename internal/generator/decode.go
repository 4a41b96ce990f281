package generator

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/aitools-scraper/internal/candidate"
	"github.com/angelmondragon/aitools-scraper/pkg/types"
)

// looseRecord mirrors candidate.Record but defers every field so one badly
// shaped value does not discard the rest of the model's answer.
type looseRecord struct {
	Name        json.RawMessage `json:"name"`
	Tagline     json.RawMessage `json:"tagline"`
	Description json.RawMessage `json:"description"`
	Tags        json.RawMessage `json:"tags"`
	Visual      json.RawMessage `json:"visual"`
}

// decodeRecord parses a model answer. Only a span that is not a JSON object
// fails; fields of the wrong shape decode to their zero value and are
// defaulted later by the normalizer.
func decodeRecord(span string) (candidate.Record, error) {
	var raw looseRecord
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return candidate.Record{}, err
	}
	rec := candidate.Record{
		Name:        looseString(raw.Name),
		Tagline:     looseString(raw.Tagline),
		Description: looseString(raw.Description),
		Visual:      looseVisual(raw.Visual),
	}
	if len(raw.Tags) > 0 {
		var tags candidate.Tags
		if err := json.Unmarshal(raw.Tags, &tags); err == nil {
			rec.Tags = tags
		}
	}
	return rec, nil
}

func looseString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// looseVisual accepts the requested object, and within it bullets given as
// plain strings. Anything else yields an empty visual.
func looseVisual(raw json.RawMessage) types.Visual {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return types.Visual{}
	}
	var shell struct {
		Type    json.RawMessage   `json:"type"`
		Color   json.RawMessage   `json:"color"`
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &shell); err != nil {
		var partial struct {
			Type  json.RawMessage `json:"type"`
			Color json.RawMessage `json:"color"`
		}
		if json.Unmarshal(raw, &partial) != nil {
			return types.Visual{}
		}
		shell.Type, shell.Color = partial.Type, partial.Color
	}

	v := types.Visual{Type: looseString(shell.Type), Color: looseString(shell.Color)}
	for _, item := range shell.Content {
		var bullet types.VisualItem
		if err := json.Unmarshal(item, &bullet); err == nil {
			v.Content = append(v.Content, bullet)
			continue
		}
		if text := strings.TrimSpace(looseString(item)); text != "" {
			v.Content = append(v.Content, types.VisualItem{Text: text})
		}
	}
	return v
}
