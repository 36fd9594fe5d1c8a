package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/actionfeed/internal/scraper"
)

// ErrUnknownSource is returned by New for names not in the registry.
var ErrUnknownSource = errors.New("unknown source")

// errMissing builds the extraction error for a required page element.
func errMissing(what string) error {
	return fmt.Errorf("page has no %s", what)
}

type factory func(s site) scraper.Adapter

type entry struct {
	root string
	new  factory
}

var registry = map[string]entry{
	"risestronger":   {root: "https://risestronger.org", new: func(s site) scraper.Adapter { return &RiseStronger{site: s} }},
	"fiveminutes":    {root: "https://tinyletter.com/FiveMinutes", new: func(s site) scraper.Adapter { return &FiveMinutes{site: s} }},
	"dailygrabback":  {root: "https://www.dailygrabback.com", new: func(s site) scraper.Adapter { return &DailyGrabBack{site: s, maxPages: 500} }},
	"calltoactivism": {root: "http://www.calltoactivism.com", new: func(s site) scraper.Adapter { return &CallToActivism{site: s} }},
	"twohoursaweek":  {root: "http://2hoursaweek.org", new: func(s site) scraper.Adapter { return &TwoHoursAWeek{site: s} }},
}

// Names returns the registered web source names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Root returns the default root URL of a registered source.
func Root(name string) (string, bool) {
	e, ok := registry[name]
	return e.root, ok
}

// New creates the adapter registered under name. fetcher is used for listing
// pages; an empty root selects the source's public site.
func New(name string, fetcher scraper.Fetcher, root string) (scraper.Adapter, error) {
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("%w: source %s needs a fetcher", scraper.ErrConfig, name)
	}
	if root == "" {
		root = e.root
	}
	base, err := url.Parse(strings.TrimRight(root, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid root %q for %s", scraper.ErrConfig, root, name)
	}
	return e.new(site{name: name, root: base, fetcher: fetcher}), nil
}

// site holds what every web adapter shares.
type site struct {
	name    string
	root    *url.URL
	fetcher scraper.Fetcher
}

func (s site) Name() string {
	return s.name
}

func (s site) notes() string {
	return fmt.Sprintf("Parsed %s for training data", s.root.String())
}

// abs resolves href against the site root.
func (s site) abs(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return s.root.ResolveReference(ref).String()
}

// get fetches a listing page.
func (s site) get(ctx context.Context, rawURL string) (*goquery.Document, error) {
	page, err := s.fetcher.Fetch(ctx, scraper.Reference{ID: rawURL})
	if err != nil {
		return nil, err
	}
	return page.Doc, nil
}

// uniq drops repeated references, keeping the first occurrence.
func uniq(urls []string) []scraper.Reference {
	seen := make(map[string]struct{}, len(urls))
	refs := make([]scraper.Reference, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		refs = append(refs, scraper.Reference{ID: u})
	}
	return refs
}

// facebookEvents returns hrefs of links to facebook events opened in a new tab.
func facebookEvents(sel *goquery.Selection) []string {
	var links []string
	sel.Find(`a[target="_blank"][href*="facebook.com/events"]`).Each(func(_ int, a *goquery.Selection) {
		links = append(links, a.AttrOr("href", ""))
	})
	return links
}
