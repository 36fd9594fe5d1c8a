package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/actionfeed/internal/logger"
	"github.com/pfrederiksen/actionfeed/internal/mailbox"
	"github.com/pfrederiksen/actionfeed/internal/metrics"
	"github.com/pfrederiksen/actionfeed/internal/scraper"
)

var (
	flagPollOnce        bool
	flagPollMetricsAddr string
)

func newPollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Turn unseen mailbox messages into snapshots",
		Long: `Poll the configured IMAP mailbox. Every poll reads the unseen messages,
saves their records as one snapshot and marks them seen, then sleeps for
mailbox.interval. SIGINT or SIGTERM stops the poller after the current poll.`,
		Args: cobra.NoArgs,
		RunE: runPoll,
	}
	cmd.Flags().BoolVar(&flagPollOnce, "once", false, "Poll a single time and exit")
	cmd.Flags().StringVar(&flagPollMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9108")
	return cmd
}

func runPoll(cmd *cobra.Command, _ []string) error {
	if !cfg.Mailbox.Configured() {
		return fmt.Errorf("no mailbox configured (set mailbox.host)")
	}
	mb, err := mailbox.NewIMAP(imapConfig(cfg.Mailbox))
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if flagPollMetricsAddr != "" {
		shutdown, err := serveMetrics(flagPollMetricsAddr)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	s := scraper.New(scraper.RateLimit{FetchTimeout: cfg.RateLimit.FetchTimeout})
	p := mailbox.NewPoller(mb, store, s, cfg.Mailbox.Interval)

	logger.Info("Starting mailbox poller", logger.Fields{
		"mailbox":  mb.Locator(),
		"interval": cfg.Mailbox.Interval.String(),
		"once":     flagPollOnce,
	})
	return p.Run(ctx, flagPollOnce)
}

// serveMetrics exposes /metrics on addr until the returned func is called.
func serveMetrics(addr string) (func(), error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", logger.Fields{"addr": addr}, err)
		}
	}()
	logger.Info("Serving metrics", logger.Fields{"addr": l.Addr().String()})

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
