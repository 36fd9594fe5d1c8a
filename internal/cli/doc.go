// Package cli implements the command-line interface for actionfeed.
//
// The cli package provides the Cobra-based CLI with commands to list sources,
// scrape them into snapshot files, merge the snapshots into one table of the
// latest records and poll a mailbox. Output is text or JSON. It coordinates
// the config, source, scraper, storage, event, filter, notifier and export
// packages.
package cli
