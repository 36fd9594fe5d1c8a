package event

import "time"

// Combine merges snapshots into one table holding the latest version of every
// logical event.
//
// Records are concatenated in argument order and grouped by (source, url). In
// each group only the records whose LastUpdated equals the group maximum
// survive; when several share that maximum they are all kept, because nothing
// in the data says which one is authoritative. Survivors keep their
// concatenated order. Inputs are not modified.
func Combine(snapshots ...[]Record) []Record {
	n := 0
	for _, snap := range snapshots {
		n += len(snap)
	}

	latest := make(map[Key]time.Time, n)
	for _, snap := range snapshots {
		for i := range snap {
			k := snap[i].Key()
			if t, ok := latest[k]; !ok || snap[i].LastUpdated.After(t) {
				latest[k] = snap[i].LastUpdated
			}
		}
	}

	out := make([]Record, 0, len(latest))
	for _, snap := range snapshots {
		for i := range snap {
			if snap[i].LastUpdated.Equal(latest[snap[i].Key()]) {
				out = append(out, snap[i].Clone())
			}
		}
	}
	return out
}

// Keys returns the set of identities present in records.
func Keys(records []Record) map[Key]struct{} {
	keys := make(map[Key]struct{}, len(records))
	for i := range records {
		keys[records[i].Key()] = struct{}{}
	}
	return keys
}
