package queue

import "sort"

// HistoryEntry is one top-level history row: a feed job with its episodes, or
// a standalone episode job.
type HistoryEntry struct {
	Job      JobRecord
	Episodes []JobRecord
}

// GroupHistory nests episode jobs under the feed that created them. Episodes
// whose parent is missing stay at the top level. Entries are ordered newest
// first; episodes within a feed keep creation order.
func GroupHistory(records []JobRecord) []HistoryEntry {
	feeds := make(map[string]int)
	entries := make([]HistoryEntry, 0, len(records))
	ordered := make([]JobRecord, len(records))
	copy(ordered, records)
	sortByCreation(ordered)

	for _, rec := range ordered {
		if rec.Kind == KindFeed {
			feeds[rec.JobID] = len(entries)
			entries = append(entries, HistoryEntry{Job: rec, Episodes: []JobRecord{}})
		}
	}
	for _, rec := range ordered {
		if rec.Kind == KindFeed {
			continue
		}
		if idx, ok := feeds[rec.ParentID()]; ok && rec.ParentID() != "" {
			entries[idx].Episodes = append(entries[idx].Episodes, rec)
			continue
		}
		entries = append(entries, HistoryEntry{Job: rec})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Job, entries[j].Job
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Seq > b.Seq
	})
	return entries
}
