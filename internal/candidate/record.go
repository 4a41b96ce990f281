// Package candidate holds the untrusted, transient tool record produced by the
// generator or the file importer before normalization.
package candidate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/aitools-scraper/pkg/types"
)

// Record is a loosely shaped tool description. Nothing in it is trusted until
// it passes through the normalizer.
type Record struct {
	Name         string       `json:"name"`
	Tagline      string       `json:"tagline"`
	Description  string       `json:"description"`
	Tags         Tags         `json:"tags"`
	WebsiteURL   string       `json:"websiteUrl"`
	Visual       types.Visual `json:"visual"`
	AppStoreURL  string       `json:"appStoreUrl,omitempty"`
	PlayStoreURL string       `json:"playStoreUrl,omitempty"`
	LogoURL      string       `json:"logoUrl,omitempty"`
}

// Tags accepts either a comma-delimited string or a JSON array of strings.
// Parts are trimmed and empties dropped; an absent value stays nil.
type Tags []string

func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}

	switch data[0] {
	case '"':
		var joined string
		if err := json.Unmarshal(data, &joined); err != nil {
			return err
		}
		*t = SplitTags(joined)
		return nil
	case '[':
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(Tags, 0, len(raw))
		for _, item := range raw {
			s, ok := item.(string)
			if !ok {
				// Models occasionally emit numbers; keep their text form.
				s = fmt.Sprint(item)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*t = out
		return nil
	}
	return fmt.Errorf("tags: expected string or array, got %s", string(data))
}

// SplitTags splits a comma-delimited tag string.
func SplitTags(joined string) Tags {
	parts := strings.Split(joined, ",")
	out := make(Tags, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Clean trims every tag and drops empties. The result is never nil.
func (t Tags) Clean() []string {
	out := make([]string, 0, len(t))
	for _, tag := range t {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// DecodeList decodes a JSON array of records, as written by exports of the
// catalog or hand-curated import files.
func DecodeList(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode candidate list: %w", err)
	}
	return records, nil
}
