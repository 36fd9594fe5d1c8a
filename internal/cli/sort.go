package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/actionfeed/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone     SortOrder = ""
	SortByDate   SortOrder = "date"
	SortBySource SortOrder = "source"
	SortByName   SortOrder = "name"
)

func parseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortNone, SortByDate, SortBySource, SortByName:
		return o, nil
	}
	return SortNone, fmt.Errorf("invalid sort order: %s (must be 'date', 'source' or 'name')", s)
}

// sortRecords sorts records in place. Equal records keep their merged order.
func sortRecords(records []event.Record, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByUpdated(records[i], records[j])
		})
	case SortBySource:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].Source != records[j].Source {
				return records[i].Source < records[j].Source
			}
			// If sources are equal, newest first
			return compareByUpdated(records[i], records[j])
		})
	case SortByName:
		sort.SliceStable(records, func(i, j int) bool {
			ni, nj := strings.ToLower(records[i].Name), strings.ToLower(records[j].Name)
			if ni != nj {
				return ni < nj
			}
			return compareByUpdated(records[i], records[j])
		})
	}
}

// compareByUpdated puts the most recently updated record first
func compareByUpdated(i, j event.Record) bool {
	return i.LastUpdated.After(j.LastUpdated)
}
