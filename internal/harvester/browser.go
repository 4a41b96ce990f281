package harvester

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

// BrowserHarvester drives a real browser through a Session. One session is
// opened per Harvest call and always closed on return.
type BrowserHarvester struct {
	open     SessionFactory
	profile  Profile
	resolver URLResolver
	logg     *logger.Logger
	sleep    func(context.Context, time.Duration) error
}

func NewBrowserHarvester(open SessionFactory, profile Profile, logg *logger.Logger) *BrowserHarvester {
	profile = profile.withDefaults()
	return &BrowserHarvester{
		open:     open,
		profile:  profile,
		resolver: ResolverFor(profile.Resolver),
		logg:     logg,
		sleep:    sleepCtx,
	}
}

func (h *BrowserHarvester) Harvest(ctx context.Context, sourceURL string, known map[string]struct{}) ([]string, error) {
	if sourceURL == "" {
		sourceURL = h.profile.SourceURL
	}
	ctx = h.logg.WithFields(ctx, map[string]any{"stage": "harvest", "source_url": sourceURL})

	sess, err := h.open(ctx)
	if err != nil {
		return nil, automationErr("start browser", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			h.logg.Warn(ctx, fmt.Sprintf("close browser session: %v", cerr))
		}
	}()

	if err := sess.Navigate(ctx, sourceURL); err != nil {
		return nil, automationErr("open directory", err)
	}
	h.dismissConsent(ctx, sess)

	for i := 0; i < h.profile.ScrollPasses; i++ {
		if err := sess.ScrollToBottom(ctx); err != nil {
			h.logg.Warn(ctx, fmt.Sprintf("scroll pass %d failed: %v", i+1, err))
		}
		if err := h.sleep(ctx, h.profile.ScrollDelay); err != nil {
			return nil, err
		}
	}

	if err := sess.WaitVisible(ctx, h.profile.CardSelector); err != nil {
		return nil, automationErr("wait for tool cards", err)
	}
	hrefs, err := sess.Attributes(ctx, h.profile.CardSelector, "href")
	if err != nil {
		return nil, automationErr("collect tool cards", err)
	}
	details := dedupe(hrefs)
	h.logg.Info(ctx, fmt.Sprintf("found %d tool detail pages", len(details)))
	if len(details) > h.profile.Limit {
		details = details[:h.profile.Limit]
	}

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
		h.visitDetail(h.logg.WithField(ctx, "detail_url", detail), sess, detail, found)
	}

	h.logg.Info(ctx, fmt.Sprintf("harvested %d new external tool urls", len(found.urls)))
	return found.urls, nil
}

func (h *BrowserHarvester) dismissConsent(ctx context.Context, sess Session) {
	if h.profile.ConsentSelector == "" {
		return
	}
	if err := sess.Click(ctx, h.profile.ConsentSelector); err != nil {
		h.logg.Info(ctx, "no consent overlay found, continuing")
		return
	}
	_ = h.sleep(ctx, h.profile.ConsentDelay)
}

func (h *BrowserHarvester) visitDetail(ctx context.Context, sess Session, detail string, found *collector) {
	if err := sess.Navigate(ctx, detail); err != nil {
		h.logg.Warn(ctx, automationErr("open detail page", err).Error())
		return
	}
	external, err := h.resolver.Resolve(ctx, sess)
	if err != nil {
		h.logg.Warn(ctx, automationErr("resolve external url", err).Error())
		return
	}
	if reason := found.add(external); reason != "" {
		h.logg.Info(ctx, fmt.Sprintf("skipping %q: %s", external, reason))
		return
	}
	h.logg.Info(ctx, "extracted external url "+external)
}
