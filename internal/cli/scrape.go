package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/actionfeed/internal/config"
	"github.com/pfrederiksen/actionfeed/internal/fetcher"
	"github.com/pfrederiksen/actionfeed/internal/logger"
	"github.com/pfrederiksen/actionfeed/internal/scraper"
	"github.com/pfrederiksen/actionfeed/internal/source"
)

var flagScrapeAll bool

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [source...]",
		Short: "Scrape sources and save one snapshot per source",
		Long: `Scrape the named sources, or every enabled source when none is named,
and save each run as a new snapshot file. Sources run concurrently; pages of
one source are fetched one at a time with a random pause in between.

Exit status is 2 when any page or source failed.`,
		RunE: runScrape,
	}
	cmd.Flags().BoolVar(&flagScrapeAll, "all", false, "Scrape every registered source, enabled or not")
	return cmd
}

func scrapeTargets(args []string) ([]SourceInfo, error) {
	infos, err := sourceInfos(cfg)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		var targets []SourceInfo
		for _, info := range infos {
			if info.Enabled || flagScrapeAll {
				targets = append(targets, info)
			}
		}
		if len(targets) == 0 {
			return nil, fmt.Errorf("no sources enabled")
		}
		return targets, nil
	}
	if flagScrapeAll {
		return nil, fmt.Errorf("--all cannot be combined with source names")
	}

	byName := make(map[string]SourceInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}
	targets := make([]SourceInfo, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, name := range args {
		info, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", source.ErrUnknownSource, name)
		}
		if !seen[name] {
			seen[name] = true
			targets = append(targets, info)
		}
	}
	return targets, nil
}

func newFetcher(h config.HTTP) *fetcher.HTTP {
	return fetcher.New(fetcher.Options{
		Timeout:           h.Timeout,
		UserAgent:         h.UserAgent,
		MaxRetries:        h.MaxRetries,
		RequestsPerSecond: h.RequestsPerSecond,
		Burst:             h.Burst,
	})
}

func runScrape(cmd *cobra.Command, args []string) error {
	targets, err := scrapeTargets(args)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	jobs := make([]scraper.Job, 0, len(targets))
	for _, t := range targets {
		f := newFetcher(cfg.HTTP)
		adapter, err := source.New(t.Name, f, t.Root)
		if err != nil {
			return err
		}
		jobs = append(jobs, scraper.Job{Adapter: adapter, Fetcher: f})
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	s := scraper.New(scraper.RateLimit{
		MinDelay:     cfg.RateLimit.MinDelay,
		MaxDelay:     cfg.RateLimit.MaxDelay,
		FetchTimeout: cfg.RateLimit.FetchTimeout,
	})

	report := &ScrapeReport{StartedAt: time.Now().UTC()}
	outcomes := s.RunAll(ctx, jobs, cfg.Concurrency)
	for _, o := range outcomes {
		sr := SourceReport{Source: o.Source, Failures: []FailureReport{}}
		if o.Err != nil {
			sr.Error = o.Err.Error()
			report.Sources = append(report.Sources, sr)
			continue
		}

		res := o.Result
		sr.RunID = res.RunID
		sr.Records = len(res.Records)
		sr.Skipped = res.Skipped
		sr.Cancelled = res.Cancelled
		sr.Duration = res.FinishedAt.Sub(res.StartedAt)
		for _, f := range res.Failures {
			sr.Failures = append(sr.Failures, FailureReport{
				Reference: f.Reference.ID,
				Kind:      string(f.Kind),
				Error:     f.Err.Error(),
			})
		}

		path, err := store.Save(o.Source, res.Records, "")
		if err != nil {
			logger.Error("Snapshot save failed", logger.Fields{"source": o.Source}, err)
			sr.Error = err.Error()
		}
		sr.Path = path

		report.Records += sr.Records
		report.Failures += len(sr.Failures)
		report.Sources = append(report.Sources, sr)
	}

	if err := WriteOutput(cmd.OutOrStdout(), report, OutputFormat(flagFormat), flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	for _, sr := range report.Sources {
		if sr.Failed() {
			return failures
		}
	}
	return nil
}
