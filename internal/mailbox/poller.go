package mailbox

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/logger"
	"github.com/pfrederiksen/actionfeed/internal/metrics"
	"github.com/pfrederiksen/actionfeed/internal/scraper"
)

// DefaultInterval is the pause between two polls.
const DefaultInterval = time.Hour

// State is the lifecycle position of a Poller.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateSleeping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Saver persists one batch of records.
type Saver interface {
	Save(source string, records []event.Record, path string) (string, error)
}

// TickResult summarizes one poll.
type TickResult struct {
	Messages int
	Result   *scraper.Result
	Path     string
	Marked   []uint32
}

// Poller repeatedly drains a mailbox into snapshot files.
type Poller struct {
	mailbox  Mailbox
	store    Saver
	scraper  *scraper.Scraper
	fetcher  scraper.Fetcher
	interval time.Duration
	state    atomic.Int32

	// wait blocks for d or until ctx ends; it reports whether d elapsed.
	wait func(ctx context.Context, d time.Duration) bool
}

// NewPoller creates a Poller. interval <= 0 selects DefaultInterval.
func NewPoller(mb Mailbox, store Saver, s *scraper.Scraper, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		mailbox:  mb,
		store:    store,
		scraper:  s,
		fetcher:  Fetcher{},
		interval: interval,
		wait:     wait,
	}
}

func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// State returns the current state.
func (p *Poller) State() State {
	return State(p.state.Load())
}

func (p *Poller) setState(s State) {
	p.state.Store(int32(s))
}

// Run polls until ctx is cancelled, sleeping the interval between polls. A
// poll in progress is completed before Run returns. With once set, Run polls
// a single time and returns that poll's error. In continuous mode poll errors
// are logged and the next poll is attempted after the interval.
func (p *Poller) Run(ctx context.Context, once bool) error {
	if p.mailbox == nil || p.store == nil || p.scraper == nil {
		return fmt.Errorf("%w: poller needs a mailbox, a store and a scraper", scraper.ErrConfig)
	}
	defer p.setState(StateStopped)

	for {
		if ctx.Err() != nil {
			return nil
		}

		_, err := p.Tick(ctx)
		if once {
			return err
		}
		if err != nil {
			logger.Error("Mailbox poll failed", logger.Fields{"mailbox": p.mailbox.Locator()}, err)
		}

		p.setState(StateSleeping)
		logger.Debug("Sleeping until next poll", logger.Fields{"interval": p.interval.String()})
		if !p.wait(ctx, p.interval) {
			return nil
		}
	}
}

// Tick performs one poll: read unseen messages, extract records, save them
// as one snapshot (even when every message failed) and mark the consumed
// messages seen. Messages whose fetch failed transiently stay unseen for the
// next poll. Nothing is marked when the save fails. The poll ignores
// cancellation of ctx once started.
func (p *Poller) Tick(ctx context.Context) (*TickResult, error) {
	p.setState(StatePolling)
	ctx = context.WithoutCancel(ctx)
	locator := p.mailbox.Locator()

	messages, err := p.mailbox.Unseen(ctx)
	if err != nil {
		metrics.IncPollTick("error")
		return nil, fmt.Errorf("reading %s: %w", locator, err)
	}
	tick := &TickResult{Messages: len(messages)}
	if len(messages) == 0 {
		metrics.IncPollTick("empty")
		logger.Info("No new messages", logger.Fields{"mailbox": locator})
		return tick, nil
	}

	res, err := p.scraper.Run(ctx, NewAdapter(locator, messages), p.fetcher)
	if err != nil {
		metrics.IncPollTick("error")
		return nil, err
	}
	tick.Result = res

	// A batch with no records is still saved, as a header-only snapshot,
	// so a poll that read messages always leaves a file behind.
	tick.Path, err = p.store.Save(SourceName, res.Records, "")
	if err != nil {
		metrics.IncPollTick("error")
		return tick, fmt.Errorf("saving mail batch: %w", err)
	}

	retry := make(map[uint32]bool)
	for _, f := range res.Failures {
		if f.Kind != scraper.KindTransient {
			continue
		}
		if uid, ok := ParseUID(f.Reference.ID); ok {
			retry[uid] = true
		}
	}
	for _, m := range messages {
		if !retry[m.UID] {
			tick.Marked = append(tick.Marked, m.UID)
		}
	}

	if len(tick.Marked) > 0 {
		if err := p.mailbox.MarkSeen(ctx, tick.Marked); err != nil {
			metrics.IncPollTick("error")
			return tick, fmt.Errorf("marking messages seen in %s: %w", locator, err)
		}
	}

	metrics.IncPollTick("ok")
	logger.Info("Mailbox poll finished", logger.Fields{
		"mailbox":  locator,
		"messages": len(messages),
		"records":  len(res.Records),
		"failures": len(res.Failures),
		"path":     tick.Path,
	})
	return tick, nil
}
