package harvester

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Session is the narrow slice of browser automation the harvester needs.
// Implementations are single-owner and must be closed.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	// ClickByText clicks the first tag element whose text contains text.
	ClickByText(ctx context.Context, tag, text string) error
	ScrollToBottom(ctx context.Context) error
	// Attributes returns attr for every element matching selector. For href
	// the resolved absolute URL is returned.
	Attributes(ctx context.Context, selector, attr string) ([]string, error)
	ReadClipboard(ctx context.Context) (string, error)
	Close() error
}

// SessionFactory opens a fresh browser session for one harvest run.
type SessionFactory func(ctx context.Context) (Session, error)

// URLResolver reads the external tool URL from an open detail page.
type URLResolver interface {
	Resolve(ctx context.Context, sess Session) (string, error)
}

// ClipboardResolver presses the site's copy button and reads the clipboard.
type ClipboardResolver struct {
	ButtonTag  string
	ButtonText string
	Wait       time.Duration
}

func (r ClipboardResolver) Resolve(ctx context.Context, sess Session) (string, error) {
	tag := r.ButtonTag
	if tag == "" {
		tag = "button"
	}
	if err := sess.ClickByText(ctx, tag, r.ButtonText); err != nil {
		return "", fmt.Errorf("click %q: %w", r.ButtonText, err)
	}
	if err := sleepCtx(ctx, r.Wait); err != nil {
		return "", err
	}
	text, err := sess.ReadClipboard(ctx)
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// AttributeResolver reads an attribute of the first element matching Selector.
type AttributeResolver struct {
	Selector  string
	Attribute string
}

func (r AttributeResolver) Resolve(ctx context.Context, sess Session) (string, error) {
	attr := r.Attribute
	if attr == "" {
		attr = "href"
	}
	values, err := sess.Attributes(ctx, r.Selector, attr)
	if err != nil {
		return "", fmt.Errorf("read %s of %q: %w", attr, r.Selector, err)
	}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("no %s found for %q", attr, r.Selector)
}

// ResolverFor builds the resolver described by spec.
func ResolverFor(spec ResolverSpec) URLResolver {
	if spec.Kind == ResolverAttribute {
		return AttributeResolver{Selector: spec.Selector, Attribute: spec.Attribute}
	}
	return ClipboardResolver{ButtonTag: spec.ButtonTag, ButtonText: spec.ButtonText, Wait: spec.Wait}
}
