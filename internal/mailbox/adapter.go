package mailbox

import (
	"context"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/scraper"
	"github.com/pfrederiksen/actionfeed/internal/source"
)

// SourceName is the source recorded on records read from mail.
const SourceName = "mailbox"

// Adapter extracts records from mail messages fetched by Fetcher. Its
// references are the messages of one poll.
type Adapter struct {
	locator string
	refs    []scraper.Reference
}

// NewAdapter builds an adapter over messages of the folder at locator.
func NewAdapter(locator string, messages []Message) *Adapter {
	refs := make([]scraper.Reference, len(messages))
	for i, m := range messages {
		refs[i] = scraper.Reference{ID: ReferenceID(locator, m.UID), Raw: m.Raw}
	}
	return &Adapter{locator: locator, refs: refs}
}

func (a *Adapter) Name() string {
	return SourceName
}

func (a *Adapter) References(context.Context) ([]scraper.Reference, error) {
	return a.refs, nil
}

// Extract maps subject, sender, date and body onto a record. Links in the
// body are kept as markdown.
func (a *Adapter) Extract(page *scraper.Page) (event.Record, error) {
	body := page.Doc.Find("body")
	if body.Length() == 0 {
		body = page.Doc.Selection
	}
	return event.Record{
		Name:        page.Meta[MetaSubject],
		Organizer:   page.Meta[MetaFrom],
		DateTime:    page.Meta[MetaDate],
		Description: source.Markdown(body),
		Notes:       "Read from " + a.locator,
	}, nil
}
