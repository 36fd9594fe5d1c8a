// Package storage persists record batches as CSV snapshot files.
//
// Each scrape run becomes one file named <source>_events_<YYYYMMDDTHHMMSS>.csv
// in the data directory (default ~/.local/share/actionfeed/). Files are never
// rewritten once created; the merge step reads them all back and combines
// them. The header row is the column list of the event package, list columns
// hold JSON arrays and lastUpdated is RFC 3339 with nanoseconds.
package storage
