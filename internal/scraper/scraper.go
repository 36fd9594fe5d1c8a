package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/logger"
	"github.com/pfrederiksen/actionfeed/internal/metrics"
)

// Reference identifies one unit of work for a source: usually a page URL, or a
// mail message whose content travels in Raw.
type Reference struct {
	ID  string
	Raw []byte
}

// Page is the fetched form of a Reference handed to Adapter.Extract.
type Page struct {
	Ref  Reference
	URL  string
	Doc  *goquery.Document
	Meta map[string]string
}

// Fetcher retrieves the content behind a reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref Reference) (*Page, error)
}

// Adapter knows how to enumerate and read one source.
type Adapter interface {
	Name() string
	References(ctx context.Context) ([]Reference, error)
	Extract(page *Page) (event.Record, error)
}

// RateLimit bounds the pace of a run. Before each fetch the run waits a
// uniformly random delay in [MinDelay, MaxDelay]. FetchTimeout, when set,
// bounds a single fetch.
type RateLimit struct {
	MinDelay     time.Duration
	MaxDelay     time.Duration
	FetchTimeout time.Duration
}

func (r RateLimit) validate() error {
	if r.MinDelay < 0 || r.MaxDelay < 0 || r.FetchTimeout < 0 {
		return fmt.Errorf("%w: negative duration in rate limit", ErrConfig)
	}
	if r.MinDelay > r.MaxDelay {
		return fmt.Errorf("%w: min delay %s exceeds max delay %s", ErrConfig, r.MinDelay, r.MaxDelay)
	}
	return nil
}

// Failure is a reference that produced no record.
type Failure struct {
	Reference Reference
	Kind      ErrorKind
	Err       error
}

// Result is the outcome of one run over a source.
type Result struct {
	RunID      string
	Source     string
	Records    []event.Record
	Failures   []Failure
	Cancelled  bool
	Skipped    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Attempted is the number of references that reached the fetch step.
func (r *Result) Attempted() int {
	return len(r.Records) + len(r.Failures)
}

// Scraper drives adapters through their references one at a time.
type Scraper struct {
	policy RateLimit
	now    func() time.Time
	jitter func(n int64) int64
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithClock replaces the clock used for LastUpdated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// WithSleep replaces the delay wait. The function must return ctx.Err() when
// ctx ends before d elapses.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scraper) { s.sleep = sleep }
}

// WithJitter replaces the random source used for delays; it must return a
// value in [0, n).
func WithJitter(jitter func(n int64) int64) Option {
	return func(s *Scraper) { s.jitter = jitter }
}

// New creates a Scraper with the given pacing policy.
func New(policy RateLimit, opts ...Option) *Scraper {
	s := &Scraper{
		policy: policy,
		now:    time.Now,
		jitter: rand.Int64N,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
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

// Run lists the adapter's references once and turns each into a record.
//
// A failing reference is recorded in Result.Failures and the run moves on.
// Cancelling ctx stops the run before the next reference; a fetch already in
// progress is allowed to finish. A cancelled run returns its partial result
// and a nil error. Errors are returned only for unusable inputs (ErrConfig)
// and for a failed listing (ErrListReferences).
func (s *Scraper) Run(ctx context.Context, adapter Adapter, fetcher Fetcher) (*Result, error) {
	if adapter == nil || fetcher == nil {
		return nil, fmt.Errorf("%w: adapter and fetcher are required", ErrConfig)
	}
	source := adapter.Name()
	if source == "" {
		return nil, fmt.Errorf("%w: adapter has no name", ErrConfig)
	}
	if err := s.policy.validate(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     uuid.NewString(),
		Source:    source,
		Records:   make([]event.Record, 0),
		StartedAt: s.now().UTC(),
	}
	log := logger.Default().With(logger.Fields{"source": source, "run_id": res.RunID})

	refs, err := adapter.References(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrListReferences, source, err)
	}
	log.Info("Starting scrape", logger.Fields{"references": len(refs)})

	var last time.Time
	for i, ref := range refs {
		if ctx.Err() != nil {
			res.Cancelled = true
			res.Skipped = len(refs) - i
			break
		}
		if err := s.sleep(ctx, s.delay()); err != nil {
			res.Cancelled = true
			res.Skipped = len(refs) - i
			break
		}

		rec, err := s.process(ctx, adapter, fetcher, ref)
		if err != nil {
			kind := KindOf(err)
			res.Failures = append(res.Failures, Failure{Reference: ref, Kind: kind, Err: err})
			metrics.IncFailure(source, string(kind))
			log.Warn("Reference failed", logger.Fields{"reference": ref.ID, "kind": string(kind), "error": err.Error()})
			continue
		}

		stamp := s.now().UTC()
		if !stamp.After(last) {
			stamp = last.Add(time.Microsecond)
		}
		last = stamp

		rec.Source = source
		rec.URL = ref.ID
		rec.LastUpdated = stamp
		res.Records = append(res.Records, event.Normalize(rec))
	}

	res.FinishedAt = s.now().UTC()
	metrics.AddRecords(source, len(res.Records))
	metrics.MarkRun(source, res.FinishedAt)

	fields := logger.Fields{
		"records":  len(res.Records),
		"failures": len(res.Failures),
		"skipped":  res.Skipped,
		"duration": res.FinishedAt.Sub(res.StartedAt).String(),
	}
	if res.Cancelled {
		log.Warn("Scrape cancelled", fields)
	} else {
		log.Info("Scrape finished", fields)
	}
	return res, nil
}

func (s *Scraper) delay() time.Duration {
	span := s.policy.MaxDelay - s.policy.MinDelay
	if span <= 0 {
		return s.policy.MinDelay
	}
	return s.policy.MinDelay + time.Duration(s.jitter(int64(span)+1))
}

// process fetches and extracts one reference. The fetch runs detached from
// ctx cancellation.
func (s *Scraper) process(ctx context.Context, adapter Adapter, fetcher Fetcher, ref Reference) (event.Record, error) {
	fetchCtx := context.WithoutCancel(ctx)
	if s.policy.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, s.policy.FetchTimeout)
		defer cancel()
	}

	started := time.Now()
	page, err := fetcher.Fetch(fetchCtx, ref)
	if err == nil && page == nil {
		err = Permanent(ref, errors.New("fetcher returned no page"))
	}
	if err != nil {
		metrics.ObserveFetch(adapter.Name(), string(KindOf(err)), time.Since(started))
		return event.Record{}, err
	}
	metrics.ObserveFetch(adapter.Name(), "ok", time.Since(started))
	if page.Ref.ID == "" {
		page.Ref = ref
	}

	return extract(adapter, page)
}

func extract(adapter Adapter, page *Page) (rec event.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExtractionError{Ref: page.Ref, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	rec, err = adapter.Extract(page)
	if err != nil {
		var ee *ExtractionError
		if !errors.As(err, &ee) {
			err = &ExtractionError{Ref: page.Ref, Err: err}
		}
	}
	return rec, err
}
