// Package event defines the record schema shared by every source and the
// consolidation logic applied to snapshots of it.
//
// A Record is identified by its (source, url) key. The same key is scraped many
// times across runs; Combine keeps the most recently updated version of each
// key, and Diff reports keys that were not present in an earlier table.
package event
