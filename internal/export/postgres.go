package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/logger"
)

// DefaultBatchSize is the number of upserts sent per round trip.
const DefaultBatchSize = 200

// DB is the subset of *pgxpool.Pool used by the exporter.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Postgres upserts consolidated records into one table keyed by
// (source, url). A stored row is only replaced by a record that is at least
// as recent.
type Postgres struct {
	db        DB
	table     string
	batchSize int
}

// NewPostgres exports into table through db.
func NewPostgres(db DB, table string) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("postgres export needs a database")
	}
	if table == "" {
		return nil, errors.New("postgres export needs a table name")
	}
	return &Postgres{db: db, table: table, batchSize: DefaultBatchSize}, nil
}

// Connect opens a connection pool for dsn. The caller closes the pool.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return pool, nil
}

func (p *Postgres) ident() string {
	return pgx.Identifier{p.table}.Sanitize()
}

func (p *Postgres) createTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS ` + p.ident() + ` (
	source            text        NOT NULL,
	url               text        NOT NULL,
	name              text        NOT NULL DEFAULT '',
	date_time         text        NOT NULL DEFAULT '',
	location          text        NOT NULL DEFAULT '',
	location_map_link text        NOT NULL DEFAULT '',
	organizer         text        NOT NULL DEFAULT '',
	tags              text[]      NOT NULL DEFAULT '{}',
	types             text[]      NOT NULL DEFAULT '{}',
	social_links      text[]      NOT NULL DEFAULT '{}',
	description       text        NOT NULL DEFAULT '',
	last_updated      timestamptz NOT NULL,
	notes             text        NOT NULL DEFAULT '',
	PRIMARY KEY (source, url)
)`
}

func (p *Postgres) upsertSQL() string {
	return `INSERT INTO ` + p.ident() + ` AS t
	(source, url, name, date_time, location, location_map_link, organizer,
	 tags, types, social_links, description, last_updated, notes)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	ON CONFLICT (source, url) DO UPDATE SET
	 name = excluded.name,
	 date_time = excluded.date_time,
	 location = excluded.location,
	 location_map_link = excluded.location_map_link,
	 organizer = excluded.organizer,
	 tags = excluded.tags,
	 types = excluded.types,
	 social_links = excluded.social_links,
	 description = excluded.description,
	 last_updated = excluded.last_updated,
	 notes = excluded.notes
	WHERE excluded.last_updated >= t.last_updated`
}

// EnsureTable creates the table when it does not exist.
func (p *Postgres) EnsureTable(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, p.createTableSQL()); err != nil {
		return fmt.Errorf("creating table %s: %w", p.table, err)
	}
	return nil
}

// Upsert writes records in batches and returns the number of rows inserted
// or updated. The table holds one row per (source, url): records tied on the
// latest update of a key all reach the table, and the last one written wins.
// The number of rows folded that way is logged.
func (p *Postgres) Upsert(ctx context.Context, records []event.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if n := collapsedTies(records); n > 0 {
		logger.Warn("Tied records share one row", logger.Fields{"table": p.table, "collapsed": n})
	}
	query := p.upsertSQL()
	total := 0

	for i := 0; i < len(records); i += p.batchSize {
		j := min(i+p.batchSize, len(records))
		b := &pgx.Batch{}
		for _, r := range records[i:j] {
			b.Queue(query, rowArgs(r)...)
		}

		br := p.db.SendBatch(ctx, b)
		for k := 0; k < b.Len(); k++ {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return total, fmt.Errorf("upserting %s: %w", records[i+k].URL, err)
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, err
		}
	}

	logger.Info("Exported records", logger.Fields{"table": p.table, "records": len(records), "rows": total})
	return total, nil
}

// collapsedTies counts records whose key already occurred earlier in records.
func collapsedTies(records []event.Record) int {
	seen := make(map[event.Key]struct{}, len(records))
	n := 0
	for _, r := range records {
		k := r.Key()
		if _, ok := seen[k]; ok {
			n++
			continue
		}
		seen[k] = struct{}{}
	}
	return n
}

func rowArgs(r event.Record) []any {
	return []any{
		r.Source, r.URL, r.Name, r.DateTime, r.Location, r.LocationMapLink, r.Organizer,
		nonNil(r.Tags), nonNil(r.Types), nonNil(r.SocialLinks),
		r.Description, r.LastUpdated, r.Notes,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
