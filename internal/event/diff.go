package event

// Diff returns the records of current whose (source, url) does not appear in
// previous, in current order. A key repeated in current is reported once.
func Diff(previous, current []Record) []Record {
	known := Keys(previous)

	result := make([]Record, 0)
	for i := range current {
		k := current[i].Key()
		if _, exists := known[k]; exists {
			continue
		}
		known[k] = struct{}{}
		result = append(result, current[i])
	}
	return result
}

// GroupBySource splits records by source, preserving order within each group.
func GroupBySource(records []Record) map[string][]Record {
	groups := make(map[string][]Record)
	for _, r := range records {
		groups[r.Source] = append(groups[r.Source], r)
	}
	return groups
}
