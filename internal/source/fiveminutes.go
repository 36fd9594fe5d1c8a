package source

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/scraper"
)

// FiveMinutes reads the FiveMinutes newsletter archive.
type FiveMinutes struct {
	site
}

func (f *FiveMinutes) References(ctx context.Context) ([]scraper.Reference, error) {
	doc, err := f.get(ctx, f.abs(f.root.Path+"/archive?page=1&recs=1000&sort=desc&q="))
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("a.message-link[href]").Each(func(_ int, a *goquery.Selection) {
		urls = append(urls, f.abs(a.AttrOr("href", "")))
	})
	return uniq(urls), nil
}

func (f *FiveMinutes) Extract(page *scraper.Page) (event.Record, error) {
	doc := page.Doc
	subject := doc.Find("h1.subject").First()
	if subject.Length() == 0 {
		return event.Record{}, errMissing("subject")
	}

	organizer := textOf(doc.Find("div.by-line").First(), "", plain)
	return event.Record{
		Name:        textOf(subject, "\n", plain),
		DateTime:    textOf(doc.Find("div.message-heading div.date").First(), "", plain),
		Organizer:   strings.Replace(organizer, "by ", "", 1),
		Description: textOf(doc.Find("div.message-body").First(), "\n", textStyle{links: true}),
		Notes:       f.notes(),
	}, nil
}
