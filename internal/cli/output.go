package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/actionfeed/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// SourceInfo describes one runnable source
type SourceInfo struct {
	Name    string `json:"name"`
	Root    string `json:"root"`
	Enabled bool   `json:"enabled"`
}

// FailureReport is one reference that produced no record
type FailureReport struct {
	Reference string `json:"reference"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

// SourceReport summarizes the run of one source
type SourceReport struct {
	Source    string          `json:"source"`
	RunID     string          `json:"run_id,omitempty"`
	Records   int             `json:"records"`
	Failures  []FailureReport `json:"failures"`
	Skipped   int             `json:"skipped"`
	Cancelled bool            `json:"cancelled,omitempty"`
	Path      string          `json:"path,omitempty"`
	Error     string          `json:"error,omitempty"`
	Duration  time.Duration   `json:"duration_ns"`
}

// Failed reports whether anything in the run went wrong.
func (s SourceReport) Failed() bool {
	return s.Error != "" || len(s.Failures) > 0
}

// ScrapeReport contains data to be output by scrape
type ScrapeReport struct {
	StartedAt time.Time      `json:"started_at"`
	Sources   []SourceReport `json:"sources"`
	Records   int            `json:"records"`
	Failures  int            `json:"failures"`
}

// FileErrorReport is one snapshot file that could not be read
type FileErrorReport struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// MergeReport contains data to be output by merge
type MergeReport struct {
	MergedAt     time.Time         `json:"merged_at"`
	Files        int               `json:"files"`
	FileErrors   []FileErrorReport `json:"file_errors"`
	InputRecords int               `json:"input_records"`
	Filter       string            `json:"filter,omitempty"`
	RecordCount  int               `json:"record_count"`
	Records      []event.Record    `json:"records"`
	NewRecords   []event.Record    `json:"new_records,omitempty"`
	Path         string            `json:"path,omitempty"`
	Exported     int               `json:"exported,omitempty"`
	Calendar     int               `json:"calendar_events,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result any, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func writeText(w io.Writer, result any, verbose bool) error {
	switch r := result.(type) {
	case []SourceInfo:
		writeSources(w, r)
	case *ScrapeReport:
		writeScrape(w, r, verbose)
	case *MergeReport:
		writeMerge(w, r, verbose)
	default:
		return fmt.Errorf("no text layout for %T", result)
	}
	return nil
}

func writeSources(w io.Writer, sources []SourceInfo) {
	for _, s := range sources {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(w, "%-16s %-9s %s\n", s.Name, state, s.Root)
	}
}

func writeScrape(w io.Writer, r *ScrapeReport, verbose bool) {
	for _, s := range r.Sources {
		if s.Error != "" {
			fmt.Fprintf(w, "%s: FAILED: %s\n", s.Source, s.Error)
			continue
		}
		fmt.Fprintf(w, "%s: %d records, %d failures", s.Source, s.Records, len(s.Failures))
		if s.Skipped > 0 {
			fmt.Fprintf(w, ", %d skipped", s.Skipped)
		}
		if s.Cancelled {
			fmt.Fprint(w, " (cancelled)")
		}
		fmt.Fprintln(w)
		if s.Path != "" {
			fmt.Fprintf(w, "  Saved: %s\n", s.Path)
		}
		if verbose {
			fmt.Fprintf(w, "  Run: %s (%s)\n", s.RunID, s.Duration.Round(time.Millisecond))
			for _, f := range s.Failures {
				fmt.Fprintf(w, "  %s %s: %s\n", strings.ToUpper(f.Kind), f.Reference, f.Error)
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d records, %d failures across %d sources\n", r.Records, r.Failures, len(r.Sources))
}

func writeMerge(w io.Writer, r *MergeReport, verbose bool) {
	for _, fe := range r.FileErrors {
		fmt.Fprintf(w, "SKIPPED %s: %s\n", fe.Path, fe.Error)
	}

	if r.RecordCount == 0 {
		fmt.Fprintln(w, "No events found.")
	}
	for _, rec := range r.Records {
		name := rec.Name
		if name == "" {
			name = "(untitled)"
		}
		fmt.Fprintf(w, "%s: %s\n", rec.Source, name)
		if verbose {
			fmt.Fprintf(w, "     URL: %s\n", rec.URL)
			if rec.DateTime != "" {
				fmt.Fprintf(w, "     Date: %s\n", rec.DateTime)
			}
			if rec.Location != "" {
				fmt.Fprintf(w, "     Location: %s\n", rec.Location)
			}
			fmt.Fprintf(w, "     Updated: %s\n", rec.LastUpdated.Format(time.RFC3339))
		}
	}

	if r.Filter != "" {
		fmt.Fprintf(w, "\nFilter: %s\n", r.Filter)
	}
	fmt.Fprintf(w, "\nTotal: %d events from %d records in %d files\n", r.RecordCount, r.InputRecords, r.Files)
	if len(r.NewRecords) > 0 {
		fmt.Fprintf(w, "New: %d\n", len(r.NewRecords))
	}
	if r.Path != "" {
		fmt.Fprintf(w, "Saved: %s\n", r.Path)
	}
	if r.Exported > 0 {
		fmt.Fprintf(w, "Exported: %d rows\n", r.Exported)
	}
	if r.Calendar > 0 {
		fmt.Fprintf(w, "Calendar: %d events\n", r.Calendar)
	}
}
