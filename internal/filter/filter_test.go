package filter

import (
	"testing"
	"time"

	"github.com/pfrederiksen/actionfeed/internal/event"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

var (
	mar1  = time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC)
	mar15 = time.Date(2017, 3, 15, 12, 0, 0, 0, time.UTC)
)

func sampleRecords() []event.Record {
	return []event.Record{
		{
			Source:      "risestronger",
			URL:         "https://risestronger.org/events/1",
			Name:        "Town Hall with Rep. Smith",
			Location:    "Springfield, IL",
			Tags:        []string{"Healthcare", "Town Hall"},
			Types:       []string{"Rally"},
			LastUpdated: mar15,
		},
		{
			Source:      "fiveminutes",
			URL:         "https://tinyletter.com/FiveMinutes/letters/call",
			Name:        "Call your senator",
			Description: "Ask them to oppose the bill.",
			Organizer:   "Five Minutes",
			LastUpdated: mar1,
		},
		{
			Source:      "dailygrabback",
			URL:         "https://www.dailygrabback.com/todays-grab/3",
			Name:        "Boycott update",
			Tags:        []string{"boycott"},
			Types:       []string{"Action"},
			Location:    "New York, NY",
			LastUpdated: mar15.Add(48 * time.Hour),
		},
	}
}

func TestFilter_IsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   bool
	}{
		{name: "empty filter", filter: NewFilter(), want: true},
		{name: "filter with since", filter: &Filter{Since: timePtr(mar1)}, want: false},
		{name: "filter with source", filter: &Filter{Sources: []string{"fiveminutes"}}, want: false},
		{name: "filter with keyword", filter: &Filter{Keywords: []string{"senator"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.IsEmpty(); got != tt.want {
				t.Errorf("Filter.IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	records := sampleRecords()

	tests := []struct {
		name   string
		filter *Filter
		record event.Record
		want   bool
	}{
		{name: "empty filter matches all", filter: NewFilter(), record: records[0], want: true},
		{name: "source matches case-insensitively", filter: &Filter{Sources: []string{"RiseStronger"}}, record: records[0], want: true},
		{name: "source mismatch", filter: &Filter{Sources: []string{"fiveminutes"}}, record: records[0], want: false},
		{name: "any tag matches", filter: &Filter{Tags: []string{"climate", "healthcare"}}, record: records[0], want: true},
		{name: "record without tags", filter: &Filter{Tags: []string{"healthcare"}}, record: records[1], want: false},
		{name: "type matches", filter: &Filter{Types: []string{"action"}}, record: records[2], want: true},
		{name: "location substring", filter: &Filter{Locations: []string{"springfield"}}, record: records[0], want: true},
		{name: "keywords all present", filter: &Filter{Keywords: []string{"senator", "oppose"}}, record: records[1], want: true},
		{name: "keyword missing", filter: &Filter{Keywords: []string{"senator", "rally"}}, record: records[1], want: false},
		{name: "keyword in organizer", filter: &Filter{Keywords: []string{"five minutes"}}, record: records[1], want: true},
		{name: "since inclusive", filter: &Filter{Since: timePtr(mar1)}, record: records[1], want: true},
		{name: "before since", filter: &Filter{Since: timePtr(mar15)}, record: records[1], want: false},
		{name: "after until", filter: &Filter{Until: timePtr(mar15)}, record: records[2], want: false},
		{
			name:   "all criteria",
			filter: &Filter{Sources: []string{"risestronger"}, Tags: []string{"town hall"}, Since: timePtr(mar1), Until: timePtr(mar15)},
			record: records[0],
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.record); got != tt.want {
				t.Errorf("Filter.Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	records := sampleRecords()

	got := (&Filter{Since: timePtr(mar15)}).Apply(records)
	if len(got) != 2 {
		t.Fatalf("Apply() returned %d records, want 2", len(got))
	}
	if got[0].Source != "risestronger" || got[1].Source != "dailygrabback" {
		t.Errorf("Apply() changed order: %s, %s", got[0].Source, got[1].Source)
	}

	if all := NewFilter().Apply(records); len(all) != len(records) {
		t.Errorf("empty filter returned %d records, want %d", len(all), len(records))
	}

	if none := (&Filter{Sources: []string{"nobody"}}).Apply(records); len(none) != 0 {
		t.Errorf("Apply() returned %d records, want 0", len(none))
	}
}

func TestFilter_String(t *testing.T) {
	if got := NewFilter().String(); got != "No active filters" {
		t.Errorf("String() = %q", got)
	}

	f := &Filter{Sources: []string{"risestronger"}, Tags: []string{"healthcare"}, Since: timePtr(mar1)}
	want := "Sources: risestronger | Tags: healthcare | Since: 2017-03-01"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFilter_Clone(t *testing.T) {
	original := &Filter{Sources: []string{"a"}, Keywords: []string{"x"}, Since: timePtr(mar1)}
	clone := original.Clone()

	clone.Sources[0] = "b"
	clone.Keywords = append(clone.Keywords, "y")
	*clone.Since = mar15

	if original.Sources[0] != "a" {
		t.Error("modifying clone sources affected original")
	}
	if len(original.Keywords) != 1 {
		t.Error("modifying clone keywords affected original")
	}
	if !original.Since.Equal(mar1) {
		t.Error("modifying clone since affected original")
	}
}
