// Package filter narrows a consolidated event table.
//
// A Filter combines criteria on the record source, tags, types, location,
// free-text keywords and the lastUpdated window. Every active criterion must
// hold for a record to match; within one criterion any listed value is enough,
// except keywords, which must all appear.
//
// Example usage:
//
//	f, err := filter.ParseQuery(`source:risestronger tag:healthcare since:2017-03-01 "town hall"`)
//	if err != nil {
//	    return err
//	}
//	matching := f.Apply(records)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/actionfeed/internal/event"
)

// Filter represents record filtering criteria
type Filter struct {
	// Source names, compared case-insensitively.
	Sources []string `json:"sources,omitempty"`

	// A record matches when it carries at least one of the tags or types.
	Tags  []string `json:"tags,omitempty"`
	Types []string `json:"types,omitempty"`

	// Location filtering (case-insensitive substring match)
	Locations []string `json:"locations,omitempty"`

	// Keywords must all occur in the name, description, organizer or location.
	Keywords []string `json:"keywords,omitempty"`

	// lastUpdated window, both ends inclusive
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all records until criteria are added.
func NewFilter() *Filter {
	return &Filter{}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return len(f.Sources) == 0 &&
		len(f.Tags) == 0 &&
		len(f.Types) == 0 &&
		len(f.Locations) == 0 &&
		len(f.Keywords) == 0 &&
		f.Since == nil &&
		f.Until == nil
}

// Matches checks if a record matches all active filter criteria.
// An empty filter matches all records.
func (f *Filter) Matches(r event.Record) bool {
	if f.IsEmpty() {
		return true
	}

	if f.Since != nil && r.LastUpdated.Before(*f.Since) {
		return false
	}
	if f.Until != nil && r.LastUpdated.After(*f.Until) {
		return false
	}

	if len(f.Sources) > 0 && !anyEqualFold(f.Sources, r.Source) {
		return false
	}

	if len(f.Tags) > 0 && !intersects(f.Tags, r.Tags) {
		return false
	}

	if len(f.Types) > 0 && !intersects(f.Types, r.Types) {
		return false
	}

	if len(f.Locations) > 0 {
		matched := false
		locationLower := strings.ToLower(r.Location)
		for _, loc := range f.Locations {
			if strings.Contains(locationLower, strings.ToLower(loc)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.Keywords) > 0 {
		text := strings.ToLower(strings.Join([]string{r.Name, r.Description, r.Organizer, r.Location}, "\n"))
		for _, kw := range f.Keywords {
			if !strings.Contains(text, strings.ToLower(kw)) {
				return false
			}
		}
	}

	return true
}

// Apply returns the matching records in their original order. The input
// slice is returned unchanged when the filter is empty.
func (f *Filter) Apply(records []event.Record) []event.Record {
	if f.IsEmpty() {
		return records
	}

	filtered := make([]event.Record, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "Sources: risestronger | Tags: healthcare | Since: 2017-03-01"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if len(f.Sources) > 0 {
		parts = append(parts, fmt.Sprintf("Sources: %s", strings.Join(f.Sources, ", ")))
	}
	if len(f.Tags) > 0 {
		parts = append(parts, fmt.Sprintf("Tags: %s", strings.Join(f.Tags, ", ")))
	}
	if len(f.Types) > 0 {
		parts = append(parts, fmt.Sprintf("Types: %s", strings.Join(f.Types, ", ")))
	}
	if len(f.Locations) > 0 {
		parts = append(parts, fmt.Sprintf("Locations: %s", strings.Join(f.Locations, ", ")))
	}
	if len(f.Keywords) > 0 {
		parts = append(parts, fmt.Sprintf("Keywords: %s", strings.Join(f.Keywords, ", ")))
	}
	if f.Since != nil {
		parts = append(parts, fmt.Sprintf("Since: %s", f.Since.Format(dateLayout)))
	}
	if f.Until != nil {
		parts = append(parts, fmt.Sprintf("Until: %s", f.Until.Format(dateLayout)))
	}

	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter.
func (f *Filter) Clone() *Filter {
	clone := &Filter{
		Sources:   cloneStrings(f.Sources),
		Tags:      cloneStrings(f.Tags),
		Types:     cloneStrings(f.Types),
		Locations: cloneStrings(f.Locations),
		Keywords:  cloneStrings(f.Keywords),
	}
	if f.Since != nil {
		s := *f.Since
		clone.Since = &s
	}
	if f.Until != nil {
		u := *f.Until
		clone.Until = &u
	}
	return clone
}

func anyEqualFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func intersects(want, have []string) bool {
	for _, h := range have {
		if anyEqualFold(want, h) {
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
