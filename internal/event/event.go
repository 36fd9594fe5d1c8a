package event

import (
	"time"
)

// Record is one scraped event or message in the common schema shared by all sources.
type Record struct {
	Source          string    `json:"source"`
	URL             string    `json:"url"`
	Name            string    `json:"name,omitempty"`
	DateTime        string    `json:"date_time,omitempty"`
	Location        string    `json:"location,omitempty"`
	LocationMapLink string    `json:"location_map_link,omitempty"`
	Organizer       string    `json:"organizer,omitempty"`
	Tags            []string  `json:"tags"`
	Types           []string  `json:"types"`
	SocialLinks     []string  `json:"social_links"`
	Description     string    `json:"description"`
	LastUpdated     time.Time `json:"last_updated"`
	Notes           string    `json:"notes,omitempty"`
}

// Key identifies a logical event across snapshots.
type Key struct {
	Source string
	URL    string
}

func (k Key) String() string {
	return k.Source + "|" + k.URL
}

// Key returns the (source, url) identity of the record.
func (r Record) Key() Key {
	return Key{Source: r.Source, URL: r.URL}
}

// Clone returns a copy that shares no slices with r.
func (r Record) Clone() Record {
	c := r
	c.Tags = cloneStrings(r.Tags)
	c.Types = cloneStrings(r.Types)
	c.SocialLinks = cloneStrings(r.SocialLinks)
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
