// Package export writes the consolidated event table to other systems: an
// upsert into PostgreSQL and an iCalendar feed of the records with a
// recognizable date.
package export
