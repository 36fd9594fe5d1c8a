package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/actionfeed/internal/event"
)

const bom = "\ufeff"

func writeCSV(w io.Writer, records []event.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(event.Columns); err != nil {
		return err
	}
	for i := range records {
		row, err := toRow(records[i])
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func toRow(r event.Record) ([]string, error) {
	tags, err := encodeList(r.Tags)
	if err != nil {
		return nil, err
	}
	types, err := encodeList(r.Types)
	if err != nil {
		return nil, err
	}
	links, err := encodeList(r.SocialLinks)
	if err != nil {
		return nil, err
	}

	var updated string
	if !r.LastUpdated.IsZero() {
		updated = r.LastUpdated.UTC().Format(time.RFC3339Nano)
	}

	row := make([]string, len(event.Columns))
	for i, col := range event.Columns {
		switch col {
		case event.ColSource:
			row[i] = r.Source
		case event.ColURL:
			row[i] = r.URL
		case event.ColName:
			row[i] = r.Name
		case event.ColDateTime:
			row[i] = r.DateTime
		case event.ColLocation:
			row[i] = r.Location
		case event.ColLocationMapLink:
			row[i] = r.LocationMapLink
		case event.ColOrganizer:
			row[i] = r.Organizer
		case event.ColTags:
			row[i] = tags
		case event.ColTypes:
			row[i] = types
		case event.ColSocialLinks:
			row[i] = links
		case event.ColDescription:
			row[i] = r.Description
		case event.ColLastUpdated:
			row[i] = updated
		case event.ColNotes:
			row[i] = r.Notes
		}
	}
	return row, nil
}

func encodeList(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeList(cell string) ([]string, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(cell), &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// readCSV parses a snapshot file. Columns are located by header name; unknown
// columns are ignored. Any malformed row fails the whole file.
func readCSV(r io.Reader) ([]event.Record, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range event.RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	records := make([]event.Record, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		rec, err := fromRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func fromRow(row []string, index map[string]int) (event.Record, error) {
	cell := func(col string) string {
		if i, ok := index[col]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	rec := event.Record{
		Source:          cell(event.ColSource),
		URL:             cell(event.ColURL),
		Name:            cell(event.ColName),
		DateTime:        cell(event.ColDateTime),
		Location:        cell(event.ColLocation),
		LocationMapLink: cell(event.ColLocationMapLink),
		Organizer:       cell(event.ColOrganizer),
		Description:     cell(event.ColDescription),
		Notes:           cell(event.ColNotes),
	}

	var err error
	if rec.Tags, err = decodeList(cell(event.ColTags)); err != nil {
		return rec, fmt.Errorf("column %s: %w", event.ColTags, err)
	}
	if rec.Types, err = decodeList(cell(event.ColTypes)); err != nil {
		return rec, fmt.Errorf("column %s: %w", event.ColTypes, err)
	}
	if rec.SocialLinks, err = decodeList(cell(event.ColSocialLinks)); err != nil {
		return rec, fmt.Errorf("column %s: %w", event.ColSocialLinks, err)
	}

	if v := strings.TrimSpace(cell(event.ColLastUpdated)); v != "" {
		if rec.LastUpdated, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return rec, fmt.Errorf("column %s: %w", event.ColLastUpdated, err)
		}
	}

	if err := event.Validate(rec); err != nil {
		return rec, err
	}
	return rec, nil
}
