package webopac

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
)

type BrowserOptions struct {
	Headless      bool
	Timeout       time.Duration
	ScreenshotDir string
}

// the site's search input handlers need a beat between a fill and the
// click that submits it; this is an empirical minimum, not a
// synchronization mechanism
const fillClickDelay = 300 * time.Millisecond

// BrowserSession drives one headless browser with one active page.
// A session is owned by a single logical operation at a time;
// concurrent browser-backed operations each get their own session.
type BrowserSession struct {
	base *url.URL
	opts BrowserOptions

	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	tabCtx      context.Context
	cancelTab   context.CancelFunc

	consentChecked bool
}

func NewBrowserSession(ctx context.Context, base *url.URL, opts BrowserOptions) (*BrowserSession, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ScreenshotDir == "" {
		opts.ScreenshotDir = os.TempDir()
	}

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(desktopUserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, execOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &BrowserSession{
		base:        base,
		opts:        opts,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
	}

	// spawn the browser up front so startup failures surface here
	// instead of inside the first operation
	if err := s.run(ctx, opts.Timeout); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *BrowserSession) Close() {
	s.cancelTab()
	s.cancelAlloc()
}

// run executes chromedp actions bounded by both the session timeout
// and the caller's context, so a cancelled operation unwinds cleanly
// instead of leaving a dangling wait.
func (s *BrowserSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *BrowserSession) Navigate(ctx context.Context, link string) error {
	err := s.run(ctx, s.opts.Timeout,
		chromedp.Navigate(link),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return s.renderTimeout(ctx, "navigate "+link, err)
	}
	return nil
}

// consent overlay accept buttons, first match wins
const consentScript = `(() => {
	const btn = document.querySelector(
		'#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll,' +
		'#CybotCookiebotDialogBodyButtonAccept'
	);
	if (btn) { btn.click(); return true; }
	return false;
})()`

// DismissConsent clicks away the first-visit consent overlay. The
// overlay's absence is not an error; it only appears once per
// session.
func (s *BrowserSession) DismissConsent(ctx context.Context) error {
	if s.consentChecked {
		return nil
	}

	var clicked bool
	err := s.run(ctx, s.opts.Timeout, chromedp.Evaluate(consentScript, &clicked))
	if err != nil {
		return err
	}
	s.consentChecked = true
	if clicked {
		slog.DebugContext(ctx, "dismissed consent overlay")
	}
	return nil
}

func (s *BrowserSession) Fill(ctx context.Context, selector, text string) error {
	err := s.run(ctx, s.opts.Timeout,
		chromedp.WaitVisible(selector),
		chromedp.Clear(selector),
		chromedp.SendKeys(selector, text),
		// the page's input handlers miss the value without this pause
		// before the next click
		chromedp.Sleep(fillClickDelay),
	)
	if err != nil {
		return s.renderTimeout(ctx, "fill "+selector, err)
	}
	return nil
}

func (s *BrowserSession) Click(ctx context.Context, selector string) error {
	err := s.run(ctx, s.opts.Timeout,
		chromedp.WaitVisible(selector),
		chromedp.Click(selector),
	)
	if err != nil {
		return s.renderTimeout(ctx, "click "+selector, err)
	}
	return nil
}

func (s *BrowserSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.opts.Timeout
	}
	err := s.run(ctx, timeout, chromedp.WaitVisible(selector))
	if err != nil {
		return s.renderTimeout(ctx, "wait for "+selector, err)
	}
	return nil
}

func (s *BrowserSession) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := s.run(ctx, s.opts.Timeout, chromedp.Text(selector, &text))
	if err != nil {
		return "", s.renderTimeout(ctx, "read text of "+selector, err)
	}
	return text, nil
}

func (s *BrowserSession) HTML(ctx context.Context) (string, error) {
	var markup string
	err := s.run(ctx, s.opts.Timeout, chromedp.OuterHTML("html", &markup))
	if err != nil {
		return "", err
	}
	return markup, nil
}

func (s *BrowserSession) Screenshot(ctx context.Context) (string, error) {
	var buf []byte
	err := s.run(ctx, s.opts.Timeout, chromedp.CaptureScreenshot(&buf))
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.opts.ScreenshotDir, "webopac-"+uuid.NewString()+".png")
	if err := os.WriteFile(path, buf, 0600); err != nil {
		return "", err
	}
	return path, nil
}

// renderTimeout converts a deadline failure into a RenderTimeoutError
// with a diagnostic screenshot attached when one can still be taken.
func (s *BrowserSession) renderTimeout(ctx context.Context, step string, err error) error {
	if !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	screenshot, shotErr := s.Screenshot(context.WithoutCancel(ctx))
	if shotErr != nil {
		slog.WarnContext(ctx, "failed to capture timeout screenshot", "err", shotErr)
	}
	return &RenderTimeoutError{Step: step, Screenshot: screenshot, Err: err}
}

// Fetch renders the search page for a query and returns the final
// DOM. Only the rendering engine observes script-built result lists,
// so this is the fallback when the HTTP strategy's markup comes back
// without rendering markers.
func (s *BrowserSession) Fetch(ctx context.Context, q Query) (RawPage, error) {
	link, err := searchURL(s.base, q)
	if err != nil {
		return RawPage{}, err
	}

	started := time.Now()
	if err := s.Navigate(ctx, link); err != nil {
		return RawPage{}, err
	}
	if err := s.DismissConsent(ctx); err != nil {
		return RawPage{}, err
	}
	if err := s.WaitVisible(ctx, resultContainerSelector, s.opts.Timeout); err != nil {
		return RawPage{}, err
	}

	markup, err := s.HTML(ctx)
	if err != nil {
		return RawPage{}, err
	}
	return RawPage{
		HTML:     markup,
		Strategy: StrategyBrowser,
		Status:   200,
		Latency:  time.Since(started),
	}, nil
}
