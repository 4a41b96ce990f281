// Package slug derives the URL-safe identifiers used to address catalog tools.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	disallowedRe = regexp.MustCompile(`[^a-z0-9 -]`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
	dashRunRe    = regexp.MustCompile(`-+`)
)

// Make lower-cases name, drops every character outside [a-z0-9 -], turns
// whitespace runs into a single dash and trims dashes from both ends.
// All-punctuation input yields "".
func Make(name string) string {
	s := strings.ToLower(name)
	s = disallowedRe.ReplaceAllString(s, "")
	s = spaceRunRe.ReplaceAllString(s, "-")
	s = dashRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// FallbackBase is the base used when a name produces an empty slug.
const FallbackBase = "tool"

// Fallback is the n-th placeholder slug, tool-n.
func Fallback(n int) string {
	return WithSuffix(FallbackBase, n)
}

// WithSuffix returns base-n.
func WithSuffix(base string, n int) string {
	return fmt.Sprintf("%s-%d", base, n)
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique returns the first free slug among base, base-1, base-2, ... starting
// at suffix start, where 0 means the bare base, and the suffix it settled on.
// The check is read-then-write; callers must still handle a unique violation
// on insert.
func Unique(ctx context.Context, base string, start int, exists ExistsFunc) (string, int, error) {
	if base == "" {
		return "", 0, fmt.Errorf("slug base is empty")
	}
	for n := start; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		candidate := base
		if n > 0 {
			candidate = WithSuffix(base, n)
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", 0, fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, n, nil
		}
	}
}
