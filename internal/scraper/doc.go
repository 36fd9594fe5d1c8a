// Package scraper runs source adapters over their references.
//
// A run lists the references of one source, then for each one waits a random
// delay, fetches it and asks the adapter to extract a record. Records are
// stamped with the source name, the reference ID as URL and a LastUpdated time
// that strictly increases within the run. A reference that fails to fetch or
// extract is recorded as a Failure and never aborts the run.
//
// Runs stop cooperatively: cancelling the context ends the run before the next
// reference, never in the middle of a fetch. RunAll runs several sources in
// parallel, each with its own batch.
package scraper
