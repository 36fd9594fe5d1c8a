package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/actionfeed/internal/scraper"
)

func TestRiseStronger_References(t *testing.T) {
	listing := func(links string) string {
		return `<html><body>
			<a href="/events/map">Map</a><a href="/events/new">New</a><a href="/events/map?page=2">m</a>
			<a href="/events?page=1">1</a><a href="/events?page=3">3</a><a href="/events?page=2">2</a>` + links + `</body></html>`
	}
	a, f := newAdapter(t, "risestronger", map[string]string{
		testRoot + "/events":        listing(""),
		testRoot + "/events?page=1": listing(`<a href="/events/10">a</a><a href="/events/11">b</a>`),
		testRoot + "/events?page=2": listing(`<a href="/events/12">c</a><a href="/events/10">a again</a>`),
		testRoot + "/events?page=3": listing(`<a href="/events/13">d</a>`),
	})

	refs, err := a.References(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		testRoot + "/events/10",
		testRoot + "/events/11",
		testRoot + "/events/12",
		testRoot + "/events/13",
	}, refIDs(refs))
	assert.Len(t, f.fetched, 4)
}

func TestRiseStronger_ReferencesPageFailure(t *testing.T) {
	a, _ := newAdapter(t, "risestronger", map[string]string{
		testRoot + "/events": `<a href="/events?page=2">2</a>`,
	})
	_, err := a.References(context.Background())
	assert.Error(t, err)
}

func TestRiseStronger_Extract(t *testing.T) {
	a, _ := newAdapter(t, "risestronger", nil)
	page := pageFor(t, `<html><body>
		<div id="page-banner">
		  <h2> Healthcare Town Hall </h2>
		  <div class="subtitle">
		    <span>Indivisible SF</span>
		    <span>Saturday, March 18 2:00 PM</span>
		    <span>Town Hall</span>
		    <span>City Library</span>
		  </div>
		  <a href="/events?tags=healthcare">healthcare</a>
		  <a href="/events?tags=aca">aca</a>
		  <a href="/events?type=town-hall">Town Hall</a>
		  <a href="https://www.google.com/maps?q=library">City Library</a>
		</div>
		<div id="content">
		  <p class="center">
		    <a href="https://facebook.com/events/1">Facebook</a>
		    <a href="/events/1/rsvp">RSVP</a>
		    <a href="">empty</a>
		  </p>
		  <div>ignored</div>
		  <p>Come ask questions.<br>Bring friends.</p>
		</div>
	</body></html>`)

	rec, err := a.Extract(page)
	require.NoError(t, err)

	assert.Equal(t, "Healthcare Town Hall", rec.Name)
	assert.Equal(t, []string{"healthcare", "aca"}, rec.Tags)
	assert.Equal(t, []string{"Town Hall"}, rec.Types)
	assert.Equal(t, "City Library", rec.Location)
	assert.Equal(t, "https://www.google.com/maps?q=library", rec.LocationMapLink)
	assert.Equal(t, []string{"https://facebook.com/events/1"}, rec.SocialLinks)
	assert.Equal(t, "Come ask questions.\nBring friends.", rec.Description)
	assert.Equal(t, "Saturday, March 18 2:00 PM", rec.DateTime)
	assert.Equal(t, "Indivisible SF", rec.Organizer)
	assert.Equal(t, "Parsed "+testRoot+" for training data", rec.Notes)
}

func TestRiseStronger_ExtractWithoutTitle(t *testing.T) {
	a, _ := newAdapter(t, "risestronger", nil)
	_, err := a.Extract(pageFor(t, `<p>nothing here</p>`))
	assert.Error(t, err)
}

func TestFiveMinutes(t *testing.T) {
	a, f := newAdapter(t, "fiveminutes", map[string]string{
		testRoot + "/archive?page=1&recs=1000&sort=desc&q=": `
			<a class="message-link" href="https://tinyletter.com/FiveMinutes/letters/a">A</a>
			<a class="other" href="/skip">skip</a>
			<a class="message-link" href="/letters/b">B</a>`,
	})

	refs, err := a.References(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://tinyletter.com/FiveMinutes/letters/a", testRoot + "/letters/b"}, refIDs(refs))
	assert.Len(t, f.fetched, 1)

	rec, err := a.Extract(pageFor(t, `
		<div class="message-heading"><h1 class="subject">Call Congress</h1><div class="date">March 3, 2017</div></div>
		<div class="by-line">by Jane by Doe</div>
		<div class="message-body"><p>Call <a href="tel:555">your rep</a> today.</p><p>Thanks</p></div>`))
	require.NoError(t, err)
	assert.Equal(t, "Call Congress", rec.Name)
	assert.Equal(t, "March 3, 2017", rec.DateTime)
	assert.Equal(t, "Jane by Doe", rec.Organizer)
	assert.Equal(t, "Call\n[your rep](tel:555)\ntoday.\nThanks", rec.Description)

	_, err = a.Extract(pageFor(t, `<div class="message-body">x</div>`))
	assert.Error(t, err)
}

func TestDailyGrabBack_FollowsOlderChain(t *testing.T) {
	post := func(href string) string {
		return `<article><header><h1><a href="` + href + `">t</a></h1></header></article>`
	}
	older := func(href string) string {
		return `<nav class="pagination clear"><div class="older"><a href="` + href + `">Older</a></div></nav>`
	}
	a, f := newAdapter(t, "dailygrabback", map[string]string{
		testRoot + "/todays-grab-1/":        post("/todays-grab-1/p1") + post("/todays-grab-1/p2") + older("/todays-grab-1/?offset=2"),
		testRoot + "/todays-grab-1/?offset=2": post("/todays-grab-1/p3") + older("/todays-grab-1/?offset=4"),
		testRoot + "/todays-grab-1/?offset=4": post("/todays-grab-1/p4") + older("/todays-grab-1/"),
	})

	refs, err := a.References(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		testRoot + "/todays-grab-1/p1",
		testRoot + "/todays-grab-1/p2",
		testRoot + "/todays-grab-1/p3",
		testRoot + "/todays-grab-1/p4",
	}, refIDs(refs))
	assert.Len(t, f.fetched, 3, "cycle back to the first page stops the walk")
}

func TestDailyGrabBack_PageLimit(t *testing.T) {
	f := &mapFetcher{pages: map[string]string{}}
	for i := 0; i < 10; i++ {
		url := testRoot + "/todays-grab-1/"
		if i > 0 {
			url = testRoot + "/page/" + string(rune('a'+i))
		}
		f.pages[url] = `<nav class="pagination"><div class="older"><a href="/page/` + string(rune('a'+i+1)) + `">Older</a></div></nav>`
	}
	adapter, err := New("dailygrabback", f, testRoot)
	require.NoError(t, err)
	adapter.(*DailyGrabBack).maxPages = 3

	refs, err := adapter.References(context.Background())
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Len(t, f.fetched, 3)
}

func TestDailyGrabBack_Extract(t *testing.T) {
	a, _ := newAdapter(t, "dailygrabback", nil)
	rec, err := a.Extract(pageFor(t, `<html><head>
		<meta property="og:latitude" content="37.77">
		<meta property="og:longitude" content="-122.41">
		</head><body><article>
		<header>
		  <h1><a href="/p">March on Washington</a></h1>
		  <div class="entry-dateline">January 21, 2017</div>
		  <span class="entry-category"><a>Protest</a> <a>March</a></span>
		</header>
		<div class="entry-content e-content">
		  <p>Join us. <a href="https://www.facebook.com/events/42" target="_blank">RSVP</a></p>
		</div>
		<footer><a href="/?tag=women">women</a><a href="/?tag=rights">rights</a></footer>
		</article></body></html>`))
	require.NoError(t, err)

	assert.Equal(t, "March on Washington", rec.Name)
	assert.Equal(t, "January 21, 2017", rec.DateTime)
	assert.Equal(t, []string{"Protest", "March"}, rec.Types)
	assert.Equal(t, []string{"women", "rights"}, rec.Tags)
	assert.Equal(t, []string{"https://www.facebook.com/events/42"}, rec.SocialLinks)
	assert.Equal(t, "Join us.\n[RSVP](https://www.facebook.com/events/42)", rec.Description)
	assert.Equal(t, "https://www.google.com/maps?q=37.77,-122.41", rec.LocationMapLink)
}

func TestCallToActivism(t *testing.T) {
	a, _ := newAdapter(t, "calltoactivism", map[string]string{
		testRoot + "/dailycalltoactions.html": `
			<h2 class="wsite-content-title"><a href="/call-1.html">One</a></h2>
			<h2 class="wsite-content-title">No link</h2>
			<h2 class="wsite-content-title"><a href="http://www.calltoactivism.com/call-2.html">Two</a></h2>
			<h2 class="wsite-content-title"><a href="/call-1.html">One again</a></h2>`,
	})
	refs, err := a.References(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{testRoot + "/call-1.html", "http://www.calltoactivism.com/call-2.html"}, refIDs(refs))

	rec, err := a.Extract(pageFor(t, `<div class="wsite-section-content">
		<h2 class="wsite-content-title">Daily Call<br>March 5, 2017<br>Protect the EPA</h2>
		<p>Call <a href="tel:1">the senate</a>.</p>
		<ul><li>Say your name</li><li>Ask for a <b>no</b> vote</li></ul>
		</div>`))
	require.NoError(t, err)
	assert.Equal(t, "PROTECT THE EPA", rec.Name)
	assert.Equal(t, "March 5, 2017", rec.DateTime)
	assert.Equal(t, "DAILY CALL\nMARCH 5, 2017\nPROTECT THE EPA\nCall\n[the senate](tel:1)\n.\n- Say your name\n- Ask for anovote", rec.Description)

	_, err = a.Extract(pageFor(t, `<h2>orphan</h2>`))
	assert.Error(t, err)
}

func TestTwoHoursAWeek(t *testing.T) {
	a, _ := newAdapter(t, "twohoursaweek", map[string]string{
		testRoot: `
			<article class="call environment"><main><a class="read-more action-link" href="/action/12">Read</a></main></article>
			<article><main><a class="read-more action-link" href="/action/unclassed">x</a></main></article>
			<article class="visit"><main><a class="read-more" href="/action/11">Read</a></main></article>`,
	})
	refs, err := a.References(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{testRoot + "/action/12"}, refIDs(refs))

	rec, err := a.Extract(pageFor(t, `<article class="call environment climate">
		<div class="number">#12</div>
		<main><h3>Call about the Paris accord</h3>
		<p>Details <a href="https://www.facebook.com/events/7" target="_blank">here</a></p></main>
		</article>`))
	require.NoError(t, err)
	assert.Equal(t, "Call about the Paris accord", rec.Name)
	assert.Equal(t, []string{"call"}, rec.Types)
	assert.Equal(t, []string{"#12", "environment", "climate"}, rec.Tags)
	assert.Equal(t, []string{"https://www.facebook.com/events/7"}, rec.SocialLinks)
	assert.Equal(t, "Call about the Paris accord\nDetails\n[here](https://www.facebook.com/events/7)", rec.Description)
}

func TestAdaptersRunThroughScraper(t *testing.T) {
	a, _ := newAdapter(t, "fiveminutes", map[string]string{
		testRoot + "/archive?page=1&recs=1000&sort=desc&q=": `<a class="message-link" href="/l/1">1</a><a class="message-link" href="/l/2">2</a>`,
		testRoot + "/l/1": `<h1 class="subject">First</h1>`,
	})
	f := a.(*FiveMinutes).fetcher

	res, err := scraper.New(scraper.RateLimit{}).Run(context.Background(), a, f)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "fiveminutes", res.Records[0].Source)
	assert.Equal(t, testRoot+"/l/1", res.Records[0].URL)
	assert.Equal(t, []string{}, res.Records[0].Tags)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, scraper.KindPermanent, res.Failures[0].Kind)
}
