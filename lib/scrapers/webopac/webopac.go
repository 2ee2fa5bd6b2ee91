// Package webopac acquires book records from the Stadtbibliothek
// Graz WebOPAC, which exposes no API and mixes server-rendered pages
// with script-rendered search results. Fetches go through a shared
// rate limiter and a TTL cache; the HTTP strategy is tried first as a
// latency optimization and the browser strategy is the fallback
// whenever the returned markup lacks rendering markers.
package webopac

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultBaseURL = "https://stadtbibliothek.graz.at"

type Options struct {
	BaseURL string

	// minimum spacing between any two requests to the site
	MinRequestInterval time.Duration
	RequestTimeout     time.Duration
	BrowserTimeout     time.Duration

	CacheTTL time.Duration
	// empty means an in-memory cache
	CacheDir string

	Headless      bool
	ScreenshotDir string

	MaxRetryAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
}

func (o *Options) applyDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.MinRequestInterval <= 0 {
		o.MinRequestInterval = 2 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.BrowserTimeout <= 0 {
		o.BrowserTimeout = 30 * time.Second
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	if o.MaxRetryAttempts <= 0 {
		o.MaxRetryAttempts = 3
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 2 * time.Second
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = 30 * time.Second
	}
}

// the two acquisition strategies share this shape; the orchestrator
// dispatches between them with the fallback rule
type fetcher interface {
	Fetch(ctx context.Context, q Query) (RawPage, error)
}

// browserDriver is the interactive surface the multi-step workflows
// (detail expansion, reservation postback) are driven through.
type browserDriver interface {
	fetcher
	Navigate(ctx context.Context, link string) error
	DismissConsent(ctx context.Context) error
	Fill(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Text(ctx context.Context, selector string) (string, error)
	HTML(ctx context.Context) (string, error)
	Close()
}

type Client struct {
	base *url.URL
	opts Options

	pacer        *Pacer
	retry        RetryPolicy
	browserRetry RetryPolicy
	cache        resultCache
	db           *badger.DB

	httpFetch  fetcher
	newBrowser func(ctx context.Context) (browserDriver, error)
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	opts.applyDefaults()

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	badgerOpts := badger.DefaultOptions(opts.CacheDir).WithLogger(nil)
	if opts.CacheDir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open result cache: %w", err)
	}

	httpFetch, err := newHTTPFetcher(base, opts.RequestTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}

	c := &Client{
		base:  base,
		opts:  opts,
		pacer: NewPacer(opts.MinRequestInterval),
		retry: RetryPolicy{
			MaxAttempts: opts.MaxRetryAttempts,
			BaseDelay:   opts.RetryBaseDelay,
			MaxDelay:    opts.RetryMaxDelay,
		},
		// render timeouts get one more try, then surface as fatal
		browserRetry: RetryPolicy{
			MaxAttempts:         2,
			BaseDelay:           opts.RetryBaseDelay,
			MaxDelay:            opts.RetryMaxDelay,
			RetryRenderTimeouts: true,
		},
		cache: resultCache{
			db:      db,
			baseUrl: base,
			ttl:     opts.CacheTTL,
		},
		db:        db,
		httpFetch: httpFetch,
	}
	c.newBrowser = func(ctx context.Context) (browserDriver, error) {
		return NewBrowserSession(ctx, base, BrowserOptions{
			Headless:      opts.Headless,
			Timeout:       opts.BrowserTimeout,
			ScreenshotDir: opts.ScreenshotDir,
		})
	}
	return c, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// Search runs a catalog search: cache first, then a rate-limited
// HTTP attempt, then the browser fallback when the markup lacks
// rendering markers. The fallback counts as a second rate-limited
// operation. Results are cached under the query identity.
func (c *Client) Search(ctx context.Context, q Query) (ResultSet, error) {
	ctx, span := tracer.Start(ctx, "client:Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("query", q.Text),
		attribute.String("kind", string(q.Kind)),
	)

	if err := ValidateQuery(q); err != nil {
		return ResultSet{}, err
	}

	if cached, err := c.cache.get(ctx, q); err == nil {
		slog.DebugContext(ctx, "cache hit", "query", q.Text, "kind", q.Kind)
		return cached, nil
	}

	started := time.Now()

	var page RawPage
	attempts, err := c.retry.Do(ctx, c.pacer, func(ctx context.Context) error {
		fetched, err := c.httpFetch.Fetch(ctx, q)
		if err != nil {
			return err
		}
		page = fetched
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "http fetch failed")
		return ResultSet{}, fmt.Errorf("search %q (%s) via http, %d attempt(s): %w", q.Text, q.Kind, attempts, err)
	}

	fallback := false
	if !hasResultMarkers(page.HTML) {
		// the site rendered client-side for this query shape
		span.AddEvent("falling back to browser rendering")
		slog.DebugContext(ctx, "http markup lacks result markers, rendering",
			"query", q.Text)
		fallback = true

		session, err := c.newBrowser(ctx)
		if err != nil {
			return ResultSet{}, fmt.Errorf("start browser session: %w", err)
		}
		defer session.Close()

		attempts, err = c.browserRetry.Do(ctx, c.pacer, func(ctx context.Context) error {
			fetched, err := session.Fetch(ctx, q)
			if err != nil {
				return err
			}
			page = fetched
			return nil
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "browser fetch failed")
			return ResultSet{}, fmt.Errorf("search %q (%s) via browser, %d attempt(s): %w", q.Text, q.Kind, attempts, err)
		}
	}

	result, err := ParseSearchResults(page, q, c.base)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to normalize search results")
		return ResultSet{}, err
	}
	result.FetchDuration = time.Since(started)
	result.Fallback = fallback

	if err := c.cache.set(ctx, q, result); err != nil {
		slog.WarnContext(ctx, "failed to cache search result", "err", err)
	}

	slog.InfoContext(ctx, "search finished",
		"query", q.Text,
		"kind", q.Kind,
		"hits", result.TotalHits,
		"fallback", fallback,
		"duration", result.FetchDuration,
	)
	return result, nil
}

const (
	detailContainerSelector = "div.media-details"
	moreInformationSelector = "a.more-information"
	detailDataSelector      = "dl.media-data"
)

// FetchDetail loads a record's detail page and returns the full
// canonical record including the copies table. The extended metadata
// is script-rendered behind an expansion control, so this always uses
// the browser strategy; the expansion control's presence is asserted.
func (c *Client) FetchDetail(ctx context.Context, catalogId string) (Book, error) {
	ctx, span := tracer.Start(ctx, "client:FetchDetail")
	defer span.End()
	span.SetAttributes(attribute.String("catalog_id", catalogId))

	link, err := detailURL(c.base, catalogId)
	if err != nil {
		return Book{}, err
	}

	session, err := c.newBrowser(ctx)
	if err != nil {
		return Book{}, fmt.Errorf("start browser session: %w", err)
	}
	defer session.Close()

	var book Book
	attempts, err := c.browserRetry.Do(ctx, c.pacer, func(ctx context.Context) error {
		if err := session.Navigate(ctx, link); err != nil {
			return err
		}
		if err := session.DismissConsent(ctx); err != nil {
			return err
		}
		if err := session.WaitVisible(ctx, detailContainerSelector, 0); err != nil {
			return err
		}
		if err := session.Click(ctx, moreInformationSelector); err != nil {
			return err
		}
		if err := session.WaitVisible(ctx, detailDataSelector, 0); err != nil {
			return err
		}

		markup, err := session.HTML(ctx)
		if err != nil {
			return err
		}
		parsed, err := ParseDetail(RawPage{HTML: markup, Strategy: StrategyBrowser}, c.base)
		if err != nil {
			return err
		}
		book = parsed
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "detail fetch failed")
		return Book{}, fmt.Errorf("detail of %s, %d attempt(s): %w", catalogId, attempts, err)
	}

	if book.CatalogID == "" {
		book.CatalogID = catalogId
	}
	book.URL = link
	return book, nil
}

const (
	reserveControlSelector = "input[id$='btnReservieren'], a[id$='btnReservieren']"
	reserveModalSelector   = "div.modal-dialog div.modal-content"
)

// Reserve drives the reservation postback for a record. It never
// completes a reservation: the flow is authentication-gated and this
// client only detects and reports the login requirement. An
// AuthRequired outcome is a normal result, not an error.
func (c *Client) Reserve(ctx context.Context, catalogId, branch string) (*ReservationAttempt, error) {
	ctx, span := tracer.Start(ctx, "client:Reserve")
	defer span.End()
	span.SetAttributes(attribute.String("catalog_id", catalogId))

	attempt := NewReservationAttempt(catalogId, branch)

	link, err := detailURL(c.base, catalogId)
	if err != nil {
		return attempt, err
	}

	session, err := c.newBrowser(ctx)
	if err != nil {
		return attempt, fmt.Errorf("start browser session: %w", err)
	}
	defer session.Close()

	if err := c.pacer.Acquire(ctx); err != nil {
		return attempt, err
	}
	if err := session.Navigate(ctx, link); err != nil {
		return attempt, err
	}
	if err := session.DismissConsent(ctx); err != nil {
		return attempt, err
	}

	// the reserve control triggers a server-side postback, so there
	// is no navigation to wait for, only the modal it produces
	if err := session.WaitVisible(ctx, reserveControlSelector, 0); err != nil {
		return attempt, err
	}
	if err := attempt.clickIssued(); err != nil {
		return attempt, err
	}
	if err := session.Click(ctx, reserveControlSelector); err != nil {
		return attempt, err
	}

	if err := session.WaitVisible(ctx, reserveModalSelector, 0); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no modal after reserve postback")
		return attempt, err
	}
	modalText, err := session.Text(ctx, reserveModalSelector)
	if err != nil {
		return attempt, err
	}
	if err := attempt.observeModal(modalText); err != nil {
		return attempt, err
	}

	switch attempt.Phase {
	case PhaseAuthRequired:
		slog.InfoContext(ctx, "reservation requires login",
			"catalog_id", catalogId)
		return attempt, nil
	default:
		return attempt, &UnsupportedWorkflowError{
			Workflow: "reservation",
			Reason:   fmt.Sprintf("unrecognized modal content: %q", attempt.ModalText),
		}
	}
}

// MailOrder is a capability gap: the mail-order path returns a 404
// without session context that has not been characterized, so its
// contract is not guessed at.
func (c *Client) MailOrder(ctx context.Context, catalogId string) error {
	return &UnsupportedWorkflowError{
		Workflow: "mail-order",
		Reason:   "the order endpoint answers 404 without required context",
	}
}

func (c *Client) InvalidateCache(ctx context.Context, q *Query) error {
	if q == nil {
		return c.cache.invalidateAll(ctx)
	}
	return c.cache.invalidate(ctx, *q)
}
