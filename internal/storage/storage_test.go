package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/actionfeed/internal/event"
)

var saveTime = time.Date(2024, 3, 9, 18, 30, 5, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time { return saveTime }
	return s
}

func sample() []event.Record {
	return []event.Record{
		{
			Source:          "risestronger",
			URL:             "https://risestronger.org/events/1",
			Name:            "Town hall, \"open\" forum",
			DateTime:        "Saturday, March 9 2pm",
			Location:        "Main St Library",
			LocationMapLink: "https://maps.google.com/?q=Main+St",
			Organizer:       "Rise Stronger",
			Tags:            []string{"healthcare", "town hall"},
			Types:           []string{"meeting"},
			SocialLinks:     []string{},
			Description:     "Line one\nLine two, with comma",
			LastUpdated:     time.Date(2024, 3, 9, 18, 0, 0, 123456789, time.UTC),
			Notes:           "Parsed https://risestronger.org",
		},
		{
			Source:      "risestronger",
			URL:         "https://risestronger.org/events/2",
			Tags:        []string{},
			Types:       []string{},
			SocialLinks: []string{"https://facebook.com/events/9"},
			LastUpdated: time.Date(2024, 3, 9, 18, 0, 1, 0, time.UTC),
		},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Save("risestronger", sample(), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "risestronger_events_20240309T183005.csv"), path)

	snaps, fileErrs, err := s.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, fileErrs)
	require.Len(t, snaps, 1)
	assert.Equal(t, path, snaps[0].Path)
	assert.Equal(t, sample(), snaps[0].Records)
}

func TestSaveKeepsNormalizedLineBreaks(t *testing.T) {
	s := newTestStore(t)
	in := []event.Record{event.Normalize(event.Record{
		Source:      "mailbox",
		URL:         "imap://mail.test:993/INBOX;UID=1",
		Name:        "a\r\nb",
		Organizer:   "c\rd",
		Tags:        []string{"x\r\ny"},
		LastUpdated: saveTime,
	})}

	path, err := s.Save("mailbox", in, "")
	require.NoError(t, err)
	snaps, fileErrs := LoadFiles([]string{path})
	require.Empty(t, fileErrs)
	require.Len(t, snaps, 1)
	assert.Equal(t, in, snaps[0].Records)
	assert.Equal(t, event.Combine(in), event.Combine(snaps[0].Records))
}

func TestSaveNeverOverwrites(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Save("x", sample()[:1], "")
	require.NoError(t, err)
	second, err := s.Save("x", sample()[1:], "")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(second, "x_events_20240309T183005_1.csv"))

	snaps, _, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, sample()[0].URL, snaps[0].Records[0].URL)
	assert.Equal(t, sample()[1].URL, snaps[1].Records[0].URL)
}

func TestSaveEmptyBatchWritesHeader(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Save("x", nil, "")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(event.Columns, ",")+"\n", string(data))

	snaps, _, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Empty(t, snaps[0].Records)
}

func TestSaveExplicitPath(t *testing.T) {
	s := newTestStore(t)
	out := filepath.Join(t.TempDir(), "merged.csv")

	got, err := s.Save("", sample(), out)
	require.NoError(t, err)
	assert.Equal(t, out, got)

	_, err = s.Save("", sample()[:1], out)
	require.NoError(t, err)

	snaps, fileErrs := LoadFiles([]string{out})
	assert.Empty(t, fileErrs)
	require.Len(t, snaps, 1)
	assert.Len(t, snaps[0].Records, 1)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(out), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSaveRequiresSource(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save("  ", sample(), "")
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestSnapshotNameSanitizesSource(t *testing.T) {
	assert.Equal(t, "call-to-activism_events_20240309T183005.csv", SnapshotName("call to/activism", saveTime))
}

func TestLoadAllIsolatesCorruptFiles(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save("a", sample(), "")
	require.NoError(t, err)

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), name), []byte(content), 0644))
	}
	write("b_broken.csv", "source,url,lastUpdated\n\"unterminated,x,y\n")
	write("c_nocols.csv", "name,description\nfoo,bar\n")
	write("d_badtime.csv", "source,url,lastUpdated\nx,http://e/1,yesterday\n")
	write("e_empty.csv", "")
	write("f_badlist.csv", "source,url,lastUpdated,tags\nx,http://e/1,2024-01-01T00:00:00Z,not-json\n")
	write("g_missing.csv", "source,url,lastUpdated\n,http://e/1,2024-01-01T00:00:00Z\n")
	write("notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "sub.csv"), 0755))

	snaps, fileErrs, err := s.LoadAll()
	require.NoError(t, err)

	require.Len(t, snaps, 1)
	assert.Len(t, snaps[0].Records, 2)

	require.Len(t, fileErrs, 6)
	for _, fe := range fileErrs {
		assert.ErrorIs(t, fe, ErrPersistence)
	}
	assert.True(t, errors.Is(fileErrs[5], event.ErrInvalidRecord))
	assert.Contains(t, fileErrs[1].Error(), "missing required column")
}

func TestLoadReadsForeignLayouts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "external.CSV")
	content := "\ufefflastUpdated,extra,url,source,tags\r\n" +
		"2024-01-01T10:00:00+02:00,whatever,http://e/1,x,\"[\"\"a\"\",\"\"b\"\"]\"\r\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := New(dir)
	require.NoError(t, err)
	snaps, fileErrs, err := s.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, fileErrs)
	require.Len(t, snaps, 1)

	rec := snaps[0].Records[0]
	assert.Equal(t, "x", rec.Source)
	assert.Equal(t, []string{"a", "b"}, rec.Tags)
	assert.Equal(t, []string{}, rec.Types)
	assert.True(t, rec.LastUpdated.Equal(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)))
}

func TestLoadAllMissingDirectory(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.RemoveAll(s.Dir()))

	_, _, err := s.LoadAll()
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestLoadFilesMissingFile(t *testing.T) {
	snaps, fileErrs := LoadFiles([]string{filepath.Join(t.TempDir(), "nope.csv")})
	assert.Empty(t, snaps)
	require.Len(t, fileErrs, 1)
	assert.ErrorIs(t, fileErrs[0], os.ErrNotExist)
}

func TestNewExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := New("~/actionfeed-data")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "actionfeed-data"), s.Dir())
}
