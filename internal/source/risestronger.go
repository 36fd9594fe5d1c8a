package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/scraper"
)

const googleMaps = "https://www.google.com/maps"

var months = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, m := range []string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"} {
		set[m] = struct{}{}
		set[strings.ToUpper(m)] = struct{}{}
		set[m[:3]] = struct{}{}
		set[strings.ToUpper(m[:3])] = struct{}{}
	}
	return set
}()

// RiseStronger reads event pages from risestronger.org.
type RiseStronger struct {
	site
}

// References walks every page of the paginated /events listing.
func (r *RiseStronger) References(ctx context.Context) ([]scraper.Reference, error) {
	index, err := r.get(ctx, r.abs("/events"))
	if err != nil {
		return nil, err
	}

	pages := 1
	index.Find(`a[href^="/events?page="]`).Each(func(_ int, a *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimPrefix(a.AttrOr("href", ""), "/events?page="))
		if err == nil && n > pages {
			pages = n
		}
	})

	var urls []string
	for p := 1; p <= pages; p++ {
		doc, err := r.get(ctx, r.abs(fmt.Sprintf("/events?page=%d", p)))
		if err != nil {
			return nil, fmt.Errorf("listing page %d: %w", p, err)
		}
		doc.Find(`a[href^="/events/"]`).Each(func(_ int, a *goquery.Selection) {
			href := a.AttrOr("href", "")
			if href == "/events/map" || href == "/events/new" || strings.HasPrefix(href, "/events/map?page=") {
				return
			}
			urls = append(urls, r.abs(href))
		})
	}
	return uniq(urls), nil
}

// Extract reads the banner, content and subtitle blocks of an event page.
func (r *RiseStronger) Extract(page *scraper.Page) (event.Record, error) {
	doc := page.Doc
	title := doc.Find("h2").First()
	if title.Length() == 0 {
		return event.Record{}, errMissing("event title")
	}

	rec := event.Record{
		Name:  textOf(title, "", plain),
		Notes: r.notes(),
	}

	doc.Find("div#page-banner a[href]").Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		switch {
		case strings.HasPrefix(href, "/events?tags"):
			rec.Tags = append(rec.Tags, a.Text())
		case strings.HasPrefix(href, "/events?type"):
			rec.Types = append(rec.Types, a.Text())
		case strings.HasPrefix(href, googleMaps):
			rec.Location = a.Text()
			rec.LocationMapLink = href
		}
	})

	buttons := doc.Find("div#content p.center").First()
	buttons.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		if href == "" || strings.HasPrefix(href, "/") {
			return
		}
		rec.SocialLinks = append(rec.SocialLinks, href)
	})
	rec.Description = textOf(buttons.NextAllFiltered("p").First(), "\n", plain)

	location := strings.TrimSpace(rec.Location)
	for _, line := range lines(doc.Find("div.subtitle").First()) {
		switch {
		case mentionsMonth(line):
			rec.DateTime = line
		case line == location || contains(rec.Types, line):
		default:
			rec.Organizer = line
		}
	}

	return rec, nil
}

func mentionsMonth(line string) bool {
	for _, word := range strings.Split(line, " ") {
		if _, ok := months[word]; ok {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if strings.TrimSpace(s) == v {
			return true
		}
	}
	return false
}
