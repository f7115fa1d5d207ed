package pipeline

import "sort"

// normalize implements step 1: coerce timestamps to UTC (callers are
// expected to hand in UTC already; we re-stamp defensively), drop rows
// missing timestamp/tripId/lat/lon, and sort by (tripId, timestamp). The
// sort is stable so ties preserve original ingestion order within a trip.
func normalize(rows []row) []row {
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		if r.tripID == "" || r.timestamp.IsZero() || !r.hasLatLon {
			continue
		}
		r.timestamp = r.timestamp.UTC()
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].tripID != out[j].tripID {
			return out[i].tripID < out[j].tripID
		}
		return out[i].timestamp.Before(out[j].timestamp)
	})
	return out
}

// tripGroups returns the [start,end) index ranges of each contiguous trip
// segment in rows, in the order the trips first appear.
func tripGroups(rows []row) [][2]int {
	groups := make([][2]int, 0)
	if len(rows) == 0 {
		return groups
	}
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].tripID != rows[start].tripID {
			groups = append(groups, [2]int{start, i})
			start = i
		}
	}
	return groups
}

// stampRelativeSeconds fills tSeconds with seconds elapsed since the first
// sample of each trip group, used by every dt-based computation downstream.
func stampRelativeSeconds(rows []row, groups [][2]int) {
	for _, g := range groups {
		t0 := rows[g[0]].timestamp
		for i := g[0]; i < g[1]; i++ {
			rows[i].tSeconds = rows[i].timestamp.Sub(t0).Seconds()
		}
	}
}
