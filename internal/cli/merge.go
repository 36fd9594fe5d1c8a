package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/export"
	"github.com/pfrederiksen/actionfeed/internal/filter"
	"github.com/pfrederiksen/actionfeed/internal/logger"
	"github.com/pfrederiksen/actionfeed/internal/metrics"
	"github.com/pfrederiksen/actionfeed/internal/notifier"
	"github.com/pfrederiksen/actionfeed/internal/storage"
)

// mergedSource names the consolidated table when it is saved.
const mergedSource = "merged"

var (
	flagMergeOut      string
	flagMergeSource   []string
	flagMergeTag      []string
	flagMergeQuery    string
	flagMergeSort     string
	flagMergeNotify   bool
	flagMergeDryRun   bool
	flagMergeNotifier string
	flagMergePG       bool
	flagMergeICS      string
)

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [file...]",
		Short: "Merge snapshots into one table of the latest records",
		Long: `Read every snapshot in the data directory, or the named files, and keep
for each (source, url) the most recently updated record. Unreadable files are
reported and skipped.

With --notify the records that are not yet in the --out file are announced
before the file is replaced. Exit status is 2 when any file was skipped.`,
		RunE: runMerge,
	}

	flags := cmd.Flags()
	flags.StringVar(&flagMergeOut, "out", "", "Save the merged table to this CSV file")
	flags.StringSliceVar(&flagMergeSource, "source", nil, "Keep only these sources")
	flags.StringSliceVar(&flagMergeTag, "tag", nil, "Keep only records with one of these tags")
	flags.StringVar(&flagMergeQuery, "query", "", `Filter query, e.g. 'source:risestronger since:2017-03-01 "town hall"'`)
	flags.StringVar(&flagMergeSort, "sort", "", "Sort printed records by date, source or name")
	flags.BoolVar(&flagMergeNotify, "notify", false, "Announce records not yet in the --out file")
	flags.BoolVar(&flagMergeDryRun, "dry-run", false, "Print announcements instead of posting them")
	flags.StringVar(&flagMergeNotifier, "notifier", "twitter", "Where to announce: twitter or telegram")
	flags.BoolVar(&flagMergePG, "pg", false, "Upsert the merged table into PostgreSQL")
	flags.StringVar(&flagMergeICS, "ics", "", "Write dated records to this iCalendar file")
	return cmd
}

func mergeFilter() (*filter.Filter, error) {
	f, err := filter.ParseQuery(flagMergeQuery)
	if err != nil {
		return nil, fmt.Errorf("parsing --query: %w", err)
	}
	f.Sources = append(f.Sources, flagMergeSource...)
	f.Tags = append(f.Tags, flagMergeTag...)
	return f, nil
}

func runMerge(cmd *cobra.Command, args []string) error {
	f, err := mergeFilter()
	if err != nil {
		return err
	}
	order, err := parseSortOrder(flagMergeSort)
	if err != nil {
		return err
	}
	if flagMergeNotify && flagMergeOut == "" {
		return fmt.Errorf("--notify needs --out to tell new records from known ones")
	}
	if flagMergeNotifier != "twitter" && flagMergeNotifier != "telegram" {
		return fmt.Errorf("unknown notifier: %s (must be 'twitter' or 'telegram')", flagMergeNotifier)
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	var (
		snapshots []storage.Snapshot
		fileErrs  []*storage.FileError
	)
	if len(args) > 0 {
		snapshots, fileErrs = storage.LoadFiles(args)
	} else {
		snapshots, fileErrs, err = store.LoadAll()
		if err != nil {
			return err
		}
	}

	report := &MergeReport{
		MergedAt:   time.Now().UTC(),
		Files:      len(snapshots) + len(fileErrs),
		FileErrors: []FileErrorReport{},
	}
	for _, fe := range fileErrs {
		report.FileErrors = append(report.FileErrors, FileErrorReport{Path: fe.Path, Error: fe.Err.Error()})
	}

	inputs := storage.Records(snapshots)
	for _, in := range inputs {
		report.InputRecords += len(in)
	}
	merged := f.Apply(event.Combine(inputs...))
	metrics.SetMerge(report.InputRecords, len(merged))
	if !f.IsEmpty() {
		report.Filter = f.String()
	}

	if flagMergeNotify {
		previous, err := loadPrevious(flagMergeOut)
		if err != nil {
			return err
		}
		report.NewRecords = event.Diff(previous, merged)
		if err := announce(cmd, report.NewRecords); err != nil {
			return err
		}
	}

	if flagMergeOut != "" {
		report.Path, err = store.Save(mergedSource, merged, flagMergeOut)
		if err != nil {
			return err
		}
	}

	if flagMergePG {
		report.Exported, err = exportPostgres(cmd, merged)
		if err != nil {
			return err
		}
	}

	if flagMergeICS != "" {
		report.Calendar, err = writeCalendar(flagMergeICS, merged)
		if err != nil {
			return err
		}
	}

	printed := merged
	if order != SortNone {
		printed = append([]event.Record(nil), merged...)
		sortRecords(printed, order)
	}
	report.Records = printed
	report.RecordCount = len(printed)

	if err := WriteOutput(cmd.OutOrStdout(), report, OutputFormat(flagFormat), flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if len(fileErrs) > 0 {
		return failures
	}
	return nil
}

// loadPrevious reads the table a previous merge saved at path. A missing file
// means nothing was known yet.
func loadPrevious(path string) ([]event.Record, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	snaps, errs := storage.LoadFiles([]string{path})
	if len(errs) > 0 {
		return nil, fmt.Errorf("reading previous table: %w", errs[0])
	}
	return snaps[0].Records, nil
}

func announce(cmd *cobra.Command, records []event.Record) error {
	if len(records) == 0 {
		logger.Info("No new records to announce", nil)
		return nil
	}

	var (
		n   notifier.Notifier
		err error
	)
	switch {
	case flagMergeDryRun:
		n = notifier.NewDryRunNotifier(cmd.ErrOrStderr())
	case flagMergeNotifier == "telegram":
		n, err = notifier.NewTelegramNotifierFromEnv()
	default:
		n, err = notifier.NewTwitterNotifier()
	}
	if err != nil {
		return err
	}
	if err := n.Notify(records); err != nil {
		return fmt.Errorf("notifying: %w", err)
	}
	return nil
}

func writeCalendar(path string, records []event.Record) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating calendar: %w", err)
	}
	n, err := export.WriteICS(f, records, time.Now())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("writing calendar: %w", err)
	}
	return n, nil
}

func exportPostgres(cmd *cobra.Command, records []event.Record) (int, error) {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	pool, err := export.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	pg, err := export.NewPostgres(pool, cfg.Postgres.Table)
	if err != nil {
		return 0, err
	}
	if err := pg.EnsureTable(ctx); err != nil {
		return 0, err
	}
	return pg.Upsert(ctx, records)
}
