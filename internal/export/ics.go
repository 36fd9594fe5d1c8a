package export

import (
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/actionfeed/internal/event"
)

// icsNamespace scopes the UIDs derived from record keys.
var icsNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/pfrederiksen/actionfeed"))

// defaultEventLength is used for records that carry a time of day.
const defaultEventLength = 2 * time.Hour

// WriteICS writes the records whose DateTime holds a recognizable date as one
// iCalendar feed and returns how many events it contains. Records without a
// date are skipped. The UID of an event is derived from (source, url) so
// calendar clients update rather than duplicate it.
func WriteICS(w io.Writer, records []event.Record, now time.Time) (int, error) {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//actionfeed//actionfeed//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	count := 0
	for _, r := range records {
		start, kind := r.Date()
		if kind == event.NoDate {
			continue
		}
		count++

		ics.WriteString("BEGIN:VEVENT\r\n")
		writeLine(&ics, "UID", uuid.NewSHA1(icsNamespace, []byte(r.Key().String())).String()+"@actionfeed")
		writeLine(&ics, "DTSTAMP", formatICSTime(now))
		writeLine(&ics, "LAST-MODIFIED", formatICSTime(r.LastUpdated))

		switch kind {
		case event.ZonedTime:
			writeLine(&ics, "DTSTART", formatICSTime(start))
			writeLine(&ics, "DTEND", formatICSTime(start.Add(defaultEventLength)))
		case event.LocalTime:
			// No zone in the source text: floating time, read in the
			// calendar's own zone.
			writeLine(&ics, "DTSTART", start.Format(floatingLayout))
			writeLine(&ics, "DTEND", start.Add(defaultEventLength).Format(floatingLayout))
		default:
			// All-day event: DTEND is exclusive.
			writeLine(&ics, "DTSTART;VALUE=DATE", start.Format("20060102"))
			writeLine(&ics, "DTEND;VALUE=DATE", start.AddDate(0, 0, 1).Format("20060102"))
		}

		summary := r.Name
		if summary == "" {
			summary = r.Source
		}
		writeLine(&ics, "SUMMARY", escapeICS(summary))
		description := r.Description
		if r.Organizer != "" {
			description = strings.TrimSpace("Organizer: " + r.Organizer + "\n\n" + description)
		}
		if description != "" {
			writeLine(&ics, "DESCRIPTION", escapeICS(description))
		}
		if r.Location != "" {
			writeLine(&ics, "LOCATION", escapeICS(r.Location))
		}
		if len(r.Tags) > 0 {
			escaped := make([]string, len(r.Tags))
			for i, tag := range r.Tags {
				escaped[i] = escapeICS(tag)
			}
			writeLine(&ics, "CATEGORIES", strings.Join(escaped, ","))
		}
		if strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://") {
			writeLine(&ics, "URL", r.URL)
		}
		ics.WriteString("STATUS:CONFIRMED\r\n")
		ics.WriteString("TRANSP:OPAQUE\r\n")
		ics.WriteString("END:VEVENT\r\n")
	}

	ics.WriteString("END:VCALENDAR\r\n")

	if _, err := io.WriteString(w, ics.String()); err != nil {
		return 0, err
	}
	return count, nil
}

// writeLine writes one content line folded at 75 octets.
func writeLine(b *strings.Builder, name, value string) {
	line := name + ":" + value
	limit := 75
	for len(line) > limit {
		cut := limit
		// Never split a UTF-8 sequence.
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		limit = 74
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}

func isRuneStart(c byte) bool {
	return c&0xC0 != 0x80
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format(floatingLayout + "Z")
}

const floatingLayout = "20060102T150405"

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
