package harvester

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/chromedp/chromedp"
)

type ChromeOptions struct {
	Headless    bool
	ExecPath    string
	UserAgent   string
	StepTimeout time.Duration
}

// ChromeSession implements Session on a local Chrome via the DevTools
// protocol. Every step runs under its own StepTimeout.
type ChromeSession struct {
	browserCtx  context.Context
	cancel      context.CancelFunc
	stepTimeout time.Duration
}

// ChromeFactory returns a SessionFactory that launches Chrome with opts.
func ChromeFactory(opts ChromeOptions) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		return NewChromeSession(ctx, opts)
	}
}

func NewChromeSession(ctx context.Context, opts ChromeOptions) (*ChromeSession, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	// The browser outlives individual steps, so it hangs off a detached context.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		browserCancel()
		allocCancel()
	}
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	step := opts.StepTimeout
	if step <= 0 {
		step = 20 * time.Second
	}
	return &ChromeSession{browserCtx: browserCtx, cancel: cancel, stepTimeout: step}, nil
}

func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(s.browserCtx, s.stepTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(stepCtx, actions...)
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *ChromeSession) WaitVisible(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *ChromeSession) Click(ctx context.Context, selector string) error {
	return s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

func (s *ChromeSession) ClickByText(ctx context.Context, tag, text string) error {
	xpath := fmt.Sprintf("//%s[contains(., %s)]", tag, xpathLiteral(text))
	script := fmt.Sprintf(`(() => {
		const el = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		if (!el) { return false; }
		el.click();
		return true;
	})()`, jsString(xpath))

	var clicked bool
	if err := s.run(ctx,
		chromedp.WaitVisible(xpath, chromedp.BySearch),
		chromedp.Evaluate(script, &clicked),
	); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("no %s containing %q", tag, text)
	}
	return nil
}

func (s *ChromeSession) ScrollToBottom(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (s *ChromeSession) Attributes(ctx context.Context, selector, attr string) ([]string, error) {
	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(el => {
		const prop = el[%s];
		if (typeof prop === "string" && prop !== "") { return prop; }
		return el.getAttribute(%s) || "";
	})`, jsString(selector), jsString(attr), jsString(attr))

	var values []string
	if err := s.run(ctx, chromedp.Evaluate(script, &values)); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *ChromeSession) ReadClipboard(context.Context) (string, error) {
	return clipboard.ReadAll()
}

func (s *ChromeSession) Close() error {
	s.cancel()
	return nil
}

func jsString(s string) string {
	buf, _ := json.Marshal(s)
	return string(buf)
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	switch {
	case !strings.ContainsRune(s, '\''):
		return "'" + s + "'"
	case !strings.ContainsRune(s, '"'):
		return `"` + s + `"`
	}
	pieces := strings.Split(s, "'")
	parts := make([]string, 0, len(pieces)*2)
	for i, piece := range pieces {
		if i > 0 {
			parts = append(parts, `"'"`)
		}
		if piece != "" {
			parts = append(parts, "'"+piece+"'")
		}
	}
	return "concat(" + strings.Join(parts, ",") + ")"
}
