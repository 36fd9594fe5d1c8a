package source

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/scraper"
)

// TwoHoursAWeek reads the numbered weekly actions of 2hoursaweek.org. The
// article classes carry the action type followed by its topics.
type TwoHoursAWeek struct {
	site
}

func (t *TwoHoursAWeek) References(ctx context.Context) ([]scraper.Reference, error) {
	doc, err := t.get(ctx, t.root.String())
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("article[class]").Each(func(_ int, art *goquery.Selection) {
		if href, ok := art.Find("main a.read-more.action-link[href]").First().Attr("href"); ok {
			urls = append(urls, t.abs(href))
		}
	})
	return uniq(urls), nil
}

func (t *TwoHoursAWeek) Extract(page *scraper.Page) (event.Record, error) {
	art := page.Doc.Find("article[class]").First()
	main := art.Find("main").First()
	if main.Length() == 0 {
		return event.Record{}, errMissing("article body")
	}

	rec := event.Record{
		Name:        textOf(main.Find("h3").First(), "\n", plain),
		SocialLinks: facebookEvents(art),
		Description: textOf(main, "\n", textStyle{links: true}),
		Notes:       t.notes(),
	}

	classes := strings.Fields(art.AttrOr("class", ""))
	if len(classes) > 0 {
		rec.Types = []string{classes[0]}
	}
	if number := textOf(art.Find("div.number").First(), "", plain); number != "" {
		rec.Tags = append(rec.Tags, number)
	}
	if len(classes) > 1 {
		rec.Tags = append(rec.Tags, classes[1:]...)
	}
	return rec, nil
}
