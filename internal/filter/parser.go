package filter

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const dateLayout = "2006-01-02"

// ParseQuery parses a whitespace-separated query into a Filter.
//
// Supported terms:
//   - "source:NAME", "tag:TAG", "type:TYPE", "location:TEXT"
//   - "since:DATE" and "until:DATE" where DATE is 2006-01-02 or RFC 3339
//   - anything else is a keyword
//
// Double quotes group words into one term, so `location:"New York"` and
// `"town hall"` are single terms. A date-only until covers the whole day.
func ParseQuery(query string) (*Filter, error) {
	terms, err := splitTerms(query)
	if err != nil {
		return nil, err
	}

	f := NewFilter()
	for _, term := range terms {
		key, value, ok := strings.Cut(term, ":")
		if !ok || value == "" {
			f.Keywords = append(f.Keywords, term)
			continue
		}

		switch strings.ToLower(key) {
		case "source":
			f.Sources = append(f.Sources, value)
		case "tag":
			f.Tags = append(f.Tags, value)
		case "type":
			f.Types = append(f.Types, value)
		case "location":
			f.Locations = append(f.Locations, value)
		case "since":
			t, _, err := parseDate(value)
			if err != nil {
				return nil, err
			}
			f.Since = &t
		case "until":
			t, dateOnly, err := parseDate(value)
			if err != nil {
				return nil, err
			}
			if dateOnly {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			f.Until = &t
		default:
			// URLs and times contain colons too.
			f.Keywords = append(f.Keywords, term)
		}
	}

	if f.Since != nil && f.Until != nil && f.Since.After(*f.Until) {
		return nil, fmt.Errorf("since must not be after until")
	}
	return f, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q. Use 2006-01-02 or RFC 3339", s)
}

func splitTerms(query string) ([]string, error) {
	var (
		terms   []string
		current strings.Builder
		quoted  bool
		started bool
	)
	flush := func() {
		if started {
			terms = append(terms, current.String())
		}
		current.Reset()
		started = false
	}

	for _, r := range query {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case unicode.IsSpace(r) && !quoted:
			flush()
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in query %q", query)
	}
	flush()

	out := terms[:0]
	for _, t := range terms {
		if t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}
