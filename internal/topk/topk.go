// Package topk computes the exact top-K ranking over a message-key count map.
package topk

import (
	"bytes"
	"sort"
)

// Entry is one ranked key/count pair.
type Entry struct {
	Key   []byte
	Count uint32
}

// Compute returns the top k entries from counts, ordered by count descending
// with ties broken by ascending lexicographic key order. If k <= 0 or counts
// is empty, it returns an empty, non-nil slice.
func Compute(counts map[string]uint32, k int) []Entry {
	if k <= 0 || len(counts) == 0 {
		return []Entry{}
	}

	entries := make([]Entry, 0, len(counts))
	for key, count := range counts {
		entries = append(entries, Entry{Key: []byte(key), Count: count})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return bytes.Compare(entries[i].Key, entries[j].Key) < 0
	})

	if k < len(entries) {
		entries = entries[:k]
	}
	return entries
}
