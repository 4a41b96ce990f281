package harvester

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

// StaticHarvester walks the directory without a browser. It only works for
// sites that render card links and outbound links in the served HTML.
type StaticHarvester struct {
	profile   Profile
	userAgent string
	timeout   time.Duration
	logg      *logger.Logger
	sleep     func(context.Context, time.Duration) error
}

func NewStaticHarvester(profile Profile, userAgent string, timeout time.Duration, logg *logger.Logger) *StaticHarvester {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StaticHarvester{
		profile:   profile.withDefaults(),
		userAgent: userAgent,
		timeout:   timeout,
		logg:      logg,
		sleep:     sleepCtx,
	}
}

func (h *StaticHarvester) newCollector(ctx context.Context) *colly.Collector {
	opts := []colly.CollectorOption{colly.StdlibContext(ctx)}
	if h.userAgent != "" {
		opts = append(opts, colly.UserAgent(h.userAgent))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(h.timeout)
	return c
}

func (h *StaticHarvester) Harvest(ctx context.Context, sourceURL string, known map[string]struct{}) ([]string, error) {
	if sourceURL == "" {
		sourceURL = h.profile.SourceURL
	}
	ctx = h.logg.WithFields(ctx, map[string]any{"stage": "harvest", "source_url": sourceURL})

	var hrefs []string
	listing := h.newCollector(ctx)
	listing.OnHTML(h.profile.CardSelector, func(e *colly.HTMLElement) {
		if href := e.Request.AbsoluteURL(e.Attr("href")); href != "" {
			hrefs = append(hrefs, href)
		}
	})
	if err := listing.Visit(sourceURL); err != nil {
		return nil, automationErr("open directory", err)
	}
	listing.Wait()

	details := dedupe(hrefs)
	if len(details) == 0 {
		return nil, automationErr("collect tool cards", fmt.Errorf("no elements match %q", h.profile.CardSelector))
	}
	h.logg.Info(ctx, fmt.Sprintf("found %d tool detail pages", len(details)))
	if len(details) > h.profile.Limit {
		details = details[:h.profile.Limit]
	}

	selector := h.profile.Resolver.Selector
	attr := h.profile.Resolver.Attribute
	found := newCollector(known)
	for i, detail := range details {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			if err := h.sleep(ctx, h.profile.DetailDelay); err != nil {
				break
			}
		}

		dctx := h.logg.WithField(ctx, "detail_url", detail)
		var external string
		page := h.newCollector(ctx)
		page.OnHTML(selector, func(e *colly.HTMLElement) {
			if external == "" {
				external = strings.TrimSpace(e.Request.AbsoluteURL(e.Attr(attr)))
			}
		})
		if err := page.Visit(detail); err != nil {
			h.logg.Warn(dctx, automationErr("open detail page", err).Error())
			continue
		}
		page.Wait()

		if external == "" {
			h.logg.Warn(dctx, fmt.Sprintf("no external link matches %q", selector))
			continue
		}
		if reason := found.add(external); reason != "" {
			h.logg.Info(dctx, fmt.Sprintf("skipping %q: %s", external, reason))
		}
	}

	h.logg.Info(ctx, fmt.Sprintf("harvested %d new external tool urls", len(found.urls)))
	return found.urls, nil
}
