package core

import "pkt.systems/mavdeck/schema"

const defaultHistoryMax = 200

type historyBuffer struct {
	entries []schema.HistoryEntry
	max     int
}

func newHistory(max int) *historyBuffer {
	if max <= 0 {
		max = defaultHistoryMax
	}
	return &historyBuffer{max: max}
}

func newHistoryFromPersisted(entries []schema.HistoryEntry) *historyBuffer {
	h := newHistory(defaultHistoryMax)
	if len(entries) == 0 {
		return h
	}
	if len(entries) > h.max {
		entries = entries[len(entries)-h.max:]
	}
	h.entries = append([]schema.HistoryEntry(nil), entries...)
	return h
}

// Append records an entry. A run identical to the most recent one replaces it.
func (h *historyBuffer) Append(entry schema.HistoryEntry) bool {
	if h == nil || entry.Spec.Empty() {
		return false
	}
	if n := len(h.entries); n > 0 && h.entries[n-1].Spec.Equal(entry.Spec) {
		h.entries[n-1] = entry
		return true
	}
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
	return true
}

// Entries returns the entries oldest first.
func (h *historyBuffer) Entries() []schema.HistoryEntry {
	if h == nil {
		return nil
	}
	return append([]schema.HistoryEntry(nil), h.entries...)
}

// Recent returns the entries newest first.
func (h *historyBuffer) Recent() []schema.HistoryEntry {
	if h == nil {
		return nil
	}
	out := make([]schema.HistoryEntry, 0, len(h.entries))
	for i := len(h.entries) - 1; i >= 0; i-- {
		out = append(out, h.entries[i])
	}
	return out
}
