package event

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     time.Time
		wantKind DateKind
		wantZero bool
	}{
		{
			name:     "mail header date",
			text:     "Mon, 06 Mar 2017 09:30:00 -0800",
			want:     time.Date(2017, 3, 6, 17, 30, 0, 0, time.UTC),
			wantKind: ZonedTime,
		},
		{
			name:     "weekday with time",
			text:     "Saturday, March 4, 2017 at 2:00 PM",
			want:     time.Date(2017, 3, 4, 14, 0, 0, 0, time.UTC),
			wantKind: LocalTime,
		},
		{
			name:     "rfc3339",
			text:     "2017-03-04T14:00:00-05:00",
			want:     time.Date(2017, 3, 4, 19, 0, 0, 0, time.UTC),
			wantKind: ZonedTime,
		},
		{
			name:     "long month",
			text:     "March 4, 2017",
			want:     time.Date(2017, 3, 4, 0, 0, 0, 0, time.UTC),
			wantKind: DateOnly,
		},
		{
			name:     "extra whitespace",
			text:     "  March   4,\n2017 ",
			want:     time.Date(2017, 3, 4, 0, 0, 0, 0, time.UTC),
			wantKind: DateOnly,
		},
		{
			name:     "iso date",
			text:     "2017-03-04",
			want:     time.Date(2017, 3, 4, 0, 0, 0, 0, time.UTC),
			wantKind: DateOnly,
		},
		{
			name:     "slash format",
			text:     "3/4/2017",
			want:     time.Date(2017, 3, 4, 0, 0, 0, 0, time.UTC),
			wantKind: DateOnly,
		},
		{
			name:     "dot format",
			text:     "3.4.17",
			want:     time.Date(2017, 3, 4, 0, 0, 0, 0, time.UTC),
			wantKind: DateOnly,
		},
		{
			name:     "embedded in a sentence",
			text:     "Posted on Sept. 21st, 2017 by the team",
			want:     time.Date(2017, 9, 21, 0, 0, 0, 0, time.UTC),
			wantKind: DateOnly,
		},
		{
			name:     "embedded lower case",
			text:     "rally on march 8 2017, noon",
			want:     time.Date(2017, 3, 8, 0, 0, 0, 0, time.UTC),
			wantKind: DateOnly,
		},
		{
			name:     "no date",
			text:     "Every Tuesday",
			wantZero: true,
		},
		{
			name:     "empty",
			text:     "",
			wantZero: true,
		},
		{
			name:     "impossible day",
			text:     "February 31, 2017",
			wantZero: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind := ParseDate(tt.text)
			if tt.wantZero {
				if !got.IsZero() || kind != NoDate {
					t.Errorf("ParseDate(%q) = %v, %v, want zero", tt.text, got, kind)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.text, got, tt.want)
			}
			if kind != tt.wantKind {
				t.Errorf("ParseDate(%q) kind = %v, want %v", tt.text, kind, tt.wantKind)
			}
		})
	}
}

func TestRecordDate(t *testing.T) {
	got, _ := Record{DateTime: "Jan 2, 2018"}.Date()
	if !got.Equal(time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date() = %v", got)
	}
}
