package source

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/atom"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/scraper"
)

// CallToActivism reads the daily call to action posts of calltoactivism.com.
type CallToActivism struct {
	site
}

func (c *CallToActivism) References(ctx context.Context) ([]scraper.Reference, error) {
	doc, err := c.get(ctx, c.abs("/dailycalltoactions.html"))
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("h2.wsite-content-title").Each(func(_ int, h *goquery.Selection) {
		if href, ok := h.Find("a[href]").First().Attr("href"); ok {
			urls = append(urls, c.abs(href))
		}
	})
	return uniq(urls), nil
}

// Extract takes the name from the last line of the first heading and the date
// from its second line. Section titles are upper-cased in the description.
func (c *CallToActivism) Extract(page *scraper.Page) (event.Record, error) {
	section := page.Doc.Find("div.wsite-section-content").First()
	if section.Length() == 0 {
		return event.Record{}, errMissing("section content")
	}

	rec := event.Record{Notes: c.notes()}
	heading := lines(section.Find("h2").First())
	if len(heading) > 0 {
		rec.Name = strings.ToUpper(heading[len(heading)-1])
	}
	if len(heading) > 1 {
		rec.DateTime = heading[1]
	}

	rec.Description = textOf(section, "\n", textStyle{
		links: true,
		lists: true,
		upper: withClass(atom.H2, "wsite-content-title"),
	})
	return rec, nil
}
