// Package harvester discovers external tool URLs listed on directory sites.
package harvester

import (
	"context"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/aitools-scraper/pkg/errors"
)

// Harvester returns external tool URLs found on sourceURL, in discovery
// order, excluding any URL present in known.
type Harvester interface {
	Harvest(ctx context.Context, sourceURL string, known map[string]struct{}) ([]string, error)
}

// automationErr wraps a browser or crawl failure with CodeAutomation.
func automationErr(step string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeAutomation, err, step)
}

// sleepCtx waits for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// collector keeps external URLs unique and in discovery order.
type collector struct {
	known map[string]struct{}
	seen  map[string]struct{}
	urls  []string
}

func newCollector(known map[string]struct{}) *collector {
	return &collector{known: known, seen: map[string]struct{}{}}
}

// add reports why a URL was dropped, or "" when it was kept.
func (c *collector) add(raw string) string {
	u := strings.TrimSpace(raw)
	if !strings.HasPrefix(u, "http") {
		return "not an http url"
	}
	if _, ok := c.known[u]; ok {
		return "already known"
	}
	if _, ok := c.seen[u]; ok {
		return "duplicate"
	}
	c.seen[u] = struct{}{}
	c.urls = append(c.urls, u)
	return ""
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
