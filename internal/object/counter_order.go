package object

import "sort"

type counterSortEntry struct {
	entry Entry
	count int64
}

// MostCommon returns the counter's entries ordered by descending count.
// Ties keep insertion order.
func MostCommon(c *Counter) []Entry {
	if c == nil || c.Len() == 0 {
		return nil
	}
	items := c.Items()
	entries := make([]counterSortEntry, len(items))
	for i, e := range items {
		var n int64
		if e.Value.IsInt() {
			n = e.Value.AsInt()
		}
		entries[i] = counterSortEntry{entry: e, count: n}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].count > entries[j].count
	})

	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.entry
	}
	return out
}
