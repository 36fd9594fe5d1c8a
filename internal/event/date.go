package event

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts are tried against the whole DateTime text, most specific first.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
	"Monday, January 2, 2006 at 3:04 PM",
	"Monday, January 2, 2006 3:04 PM",
	"January 2, 2006 at 3:04 PM",
	"January 2, 2006 3:04 PM",
	"January 2, 2006 3:04pm",
	"Monday, January 2, 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2006-01-02",
	"1/2/2006",
	"01/02/06",
	"1.2.06",
}

// embeddedDate finds "March 4, 2017" style dates inside longer text.
var embeddedDate = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)

// DateKind tells how much of a point in time a DateTime text pinned down.
type DateKind int

const (
	// NoDate means no date was found.
	NoDate DateKind = iota
	// DateOnly is a calendar day without a time of day.
	DateOnly
	// LocalTime has a time of day but no zone; the returned time carries
	// the wall clock in UTC.
	LocalTime
	// ZonedTime has a time of day and an offset or zone name.
	ZonedTime
)

// HasTime reports whether a time of day was present.
func (k DateKind) HasTime() bool {
	return k == LocalTime || k == ZonedTime
}

func layoutKind(layout string) DateKind {
	switch {
	case strings.Contains(layout, "-0700") || strings.Contains(layout, "Z07") || strings.Contains(layout, "MST"):
		return ZonedTime
	case strings.Contains(layout, "15") || strings.Contains(layout, "3:04"):
		return LocalTime
	default:
		return DateOnly
	}
}

// ParseDate extracts a calendar date from free-form DateTime text. A zero
// time and NoDate mean no date was found.
func ParseDate(text string) (time.Time, DateKind) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return time.Time{}, NoDate
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, layoutKind(layout)
		}
	}

	m := embeddedDate.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, NoDate
	}
	month := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:3])
	t, err := time.Parse("Jan 2 2006", month+" "+m[2]+" "+m[3])
	if err != nil {
		return time.Time{}, NoDate
	}
	return t, DateOnly
}

// Date is ParseDate applied to the record's DateTime.
func (r Record) Date() (time.Time, DateKind) {
	return ParseDate(r.DateTime)
}
