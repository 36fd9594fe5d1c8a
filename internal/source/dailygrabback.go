package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/logger"
	"github.com/pfrederiksen/actionfeed/internal/scraper"
)

const grabFirstPage = "/todays-grab-1/"

// DailyGrabBack reads the daily action posts of dailygrabback.com. The
// listing is a chain of "older" pages starting at the newest one.
type DailyGrabBack struct {
	site
	maxPages int
}

func (d *DailyGrabBack) References(ctx context.Context) ([]scraper.Reference, error) {
	var urls []string
	visited := make(map[string]bool)

	next := d.abs(grabFirstPage)
	for next != "" {
		if visited[next] {
			logger.Warn("Pagination loops back", logger.Fields{"source": d.name, "url": next})
			break
		}
		if len(visited) >= d.maxPages {
			logger.Warn("Pagination limit reached", logger.Fields{"source": d.name, "pages": d.maxPages})
			break
		}
		visited[next] = true

		doc, err := d.get(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", next, err)
		}
		doc.Find("article").Each(func(_ int, art *goquery.Selection) {
			if href, ok := art.Find("header h1 a[href]").First().Attr("href"); ok {
				urls = append(urls, d.abs(href))
			}
		})

		next = ""
		if href, ok := doc.Find("nav.pagination div.older a[href]").First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			next = d.abs(href)
		}
	}
	return uniq(urls), nil
}

func (d *DailyGrabBack) Extract(page *scraper.Page) (event.Record, error) {
	art := page.Doc.Find("article").First()
	if art.Length() == 0 {
		return event.Record{}, errMissing("article")
	}
	header := art.Find("header").First()

	rec := event.Record{
		Name:        textOf(header.Find("h1").First(), "", plain),
		DateTime:    textOf(header.Find("div.entry-dateline").First(), "", plain),
		Types:       lines(header.Find("span.entry-category").First()),
		Description: textOf(art.Find("div.entry-content").First(), "\n", textStyle{links: true}),
		SocialLinks: facebookEvents(art),
		Notes:       d.notes(),
	}
	art.Find(`a[href*="?tag="]`).Each(func(_ int, a *goquery.Selection) {
		rec.Tags = append(rec.Tags, a.Text())
	})

	lat, okLat := page.Doc.Find(`meta[property="og:latitude"]`).Attr("content")
	lon, okLon := page.Doc.Find(`meta[property="og:longitude"]`).Attr("content")
	if okLat && okLon && lat != "" && lon != "" {
		rec.LocationMapLink = fmt.Sprintf("%s?q=%s,%s", googleMaps, strings.TrimSpace(lat), strings.TrimSpace(lon))
	}
	return rec, nil
}
