package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKey(t *testing.T) {
	r := Record{Source: "risestronger", URL: "https://risestronger.org/events/1"}
	assert.Equal(t, Key{Source: "risestronger", URL: "https://risestronger.org/events/1"}, r.Key())
	assert.Equal(t, "risestronger|https://risestronger.org/events/1", r.Key().String())
}

func TestRecordClone(t *testing.T) {
	r := Record{Tags: []string{"a"}, Types: []string{"b"}, SocialLinks: []string{"c"}}
	c := r.Clone()
	c.Tags[0] = "changed"
	c.Types[0] = "changed"
	c.SocialLinks[0] = "changed"

	assert.Equal(t, "a", r.Tags[0])
	assert.Equal(t, "b", r.Types[0])
	assert.Equal(t, "c", r.SocialLinks[0])
	assert.Nil(t, Record{}.Clone().Tags)
}

func TestNormalize(t *testing.T) {
	local := time.FixedZone("PST", -8*3600)
	in := Record{
		Source:      "  fiveminutes ",
		URL:         " https://tinyletter.com/FiveMinutes/letters/x \n",
		Name:        "Cafe\u0301 meetup ",
		Tags:        []string{" climate ", "", "  "},
		Organizer:   "Jane\r\nDoe\rGroup",
		Description: "line one\r\nline two\r\n",
		LastUpdated: time.Date(2024, 3, 1, 10, 0, 0, 0, local),
	}

	got := Normalize(in)

	assert.Equal(t, "fiveminutes", got.Source)
	assert.Equal(t, "https://tinyletter.com/FiveMinutes/letters/x", got.URL)
	assert.Equal(t, "Caf\u00e9 meetup", got.Name, "name should be NFC")
	assert.Equal(t, []string{"climate"}, got.Tags)
	require.NotNil(t, got.Types)
	require.NotNil(t, got.SocialLinks)
	assert.Empty(t, got.Types)
	assert.Equal(t, "line one\nline two", got.Description)
	assert.Equal(t, "Jane\nDoe\nGroup", got.Organizer)
	assert.Equal(t, time.UTC, got.LastUpdated.Location())
	assert.True(t, got.LastUpdated.Equal(in.LastUpdated))
}

func TestValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{"complete", Record{Source: "x", URL: "http://e/1", LastUpdated: now}, false},
		{"missing source", Record{URL: "http://e/1", LastUpdated: now}, true},
		{"missing url", Record{Source: "x", LastUpdated: now}, true},
		{"missing timestamp", Record{Source: "x", URL: "http://e/1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.record)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRecord)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestColumns(t *testing.T) {
	assert.Len(t, Columns, 13)
	for _, c := range RequiredColumns {
		assert.Contains(t, Columns, c)
	}
}
