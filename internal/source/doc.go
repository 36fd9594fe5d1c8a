// Package source holds the adapters for the web sources actionfeed scrapes.
//
// Each adapter lists its event pages through the fetcher it is given and maps
// one fetched page onto an event.Record. Links in descriptions are kept as
// markdown, [text](href), so the text stays self-contained in a CSV cell.
package source
