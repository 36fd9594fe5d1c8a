package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/pfrederiksen/actionfeed/internal/logger"
	"github.com/pfrederiksen/actionfeed/internal/scraper"
)

const (
	UserAgent  = "actionfeed/1.0 (github.com/pfrederiksen/actionfeed)"
	Timeout    = 30 * time.Second
	MaxRetries = 2
)

// Options configures an HTTP fetcher. Empty Timeout and UserAgent take the
// package defaults. MaxRetries counts retries after the first attempt.
// RequestsPerSecond <= 0 disables the request ceiling.
type Options struct {
	Timeout           time.Duration
	UserAgent         string
	MaxRetries        int
	RequestsPerSecond float64
	Burst             int
	Client            *http.Client
}

// HTTP fetches references whose ID is an http(s) URL and parses the body as
// HTML.
type HTTP struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	limiter    *rate.Limiter
	backoff    func() backoff.BackOff
}

// New creates an HTTP fetcher.
func New(opts Options) *HTTP {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = Timeout
		}
		client = &http.Client{Timeout: timeout}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = UserAgent
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}

	f := &HTTP{
		client:     client,
		userAgent:  userAgent,
		maxRetries: retries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = time.Minute
			return b
		},
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return f
}

// Fetch implements scraper.Fetcher. The reference ID is the page URL.
func (f *HTTP) Fetch(ctx context.Context, ref scraper.Reference) (*scraper.Page, error) {
	rawURL := ref.ID
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, scraper.Permanent(ref, fmt.Errorf("invalid URL %q", rawURL))
	}

	var page *scraper.Page
	attempt := 0
	op := func() error {
		attempt++
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		p, err := f.get(ctx, ref, u.String())
		if err != nil {
			if scraper.KindOf(err) == scraper.KindPermanent {
				return backoff.Permanent(err)
			}
			logger.Debug("Fetch attempt failed", logger.Fields{"url": rawURL, "attempt": attempt, "error": err.Error()})
			return err
		}
		page = p
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(f.backoff(), uint64(f.maxRetries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		var fe *scraper.FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, scraper.Transient(ref, err)
	}
	return page, nil
}

func (f *HTTP) get(ctx context.Context, ref scraper.Reference, rawURL string) (*scraper.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, scraper.Permanent(ref, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, scraper.Transient(ref, fmt.Errorf("fetching page: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, scraper.Transient(ref, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, scraper.Permanent(ref, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, scraper.Transient(ref, fmt.Errorf("reading body: %w", err))
	}
	final := resp.Request.URL
	doc.Url = final

	return &scraper.Page{
		Ref: ref,
		URL: final.String(),
		Doc: doc,
		Meta: map[string]string{
			"content-type": resp.Header.Get("Content-Type"),
		},
	}, nil
}
