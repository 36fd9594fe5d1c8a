package event

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Column names of the snapshot file header, in file order.
const (
	ColSource          = "source"
	ColURL             = "url"
	ColName            = "name"
	ColDateTime        = "dateTime"
	ColLocation        = "location"
	ColLocationMapLink = "locationMapLink"
	ColOrganizer       = "organizer"
	ColTags            = "tags"
	ColTypes           = "types"
	ColSocialLinks     = "socialLinks"
	ColDescription     = "description"
	ColLastUpdated     = "lastUpdated"
	ColNotes           = "notes"
)

// Columns is the canonical header row of a snapshot file.
var Columns = []string{
	ColSource,
	ColURL,
	ColName,
	ColDateTime,
	ColLocation,
	ColLocationMapLink,
	ColOrganizer,
	ColTags,
	ColTypes,
	ColSocialLinks,
	ColDescription,
	ColLastUpdated,
	ColNotes,
}

// RequiredColumns must be present in every snapshot file header.
var RequiredColumns = []string{ColSource, ColURL, ColLastUpdated}

// ErrInvalidRecord is wrapped by every Validate failure.
var ErrInvalidRecord = errors.New("invalid record")

// Normalize returns r with whitespace trimmed, text in NFC form, line endings
// unified, empty list entries dropped, nil lists materialized as empty lists and
// LastUpdated in UTC.
func Normalize(r Record) Record {
	r.Source = cleanLine(r.Source)
	r.URL = strings.TrimSpace(unifyNewlines(r.URL))
	r.Name = cleanLine(r.Name)
	r.DateTime = cleanLine(r.DateTime)
	r.Location = cleanLine(r.Location)
	r.LocationMapLink = strings.TrimSpace(unifyNewlines(r.LocationMapLink))
	r.Organizer = cleanLine(r.Organizer)
	r.Tags = cleanList(r.Tags)
	r.Types = cleanList(r.Types)
	r.SocialLinks = cleanList(r.SocialLinks)
	r.Description = cleanLine(r.Description)
	r.Notes = cleanLine(r.Notes)
	if !r.LastUpdated.IsZero() {
		r.LastUpdated = r.LastUpdated.UTC()
	}
	return r
}

// Validate checks the fields every persisted record must carry.
func Validate(r Record) error {
	var missing []string
	if strings.TrimSpace(r.Source) == "" {
		missing = append(missing, ColSource)
	}
	if strings.TrimSpace(r.URL) == "" {
		missing = append(missing, ColURL)
	}
	if r.LastUpdated.IsZero() {
		missing = append(missing, ColLastUpdated)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRecord, strings.Join(missing, ", "))
	}
	return nil
}

// cleanLine also turns CR and CRLF into LF, which is what encoding/csv hands
// back for quoted fields, so normalized records survive a snapshot unchanged.
func cleanLine(s string) string {
	return norm.NFC.String(strings.TrimSpace(unifyNewlines(s)))
}

func unifyNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = cleanLine(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
