package core

import (
	"testing"
	"time"

	"pkt.systems/mavdeck/schema"
)

func TestHistoryReplacesRepeatedRun(t *testing.T) {
	h := newHistory(3)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	test := schema.RunSpec{Goals: []string{"test"}, Module: "."}
	h.Append(schema.HistoryEntry{Spec: test, At: at, Outcome: schema.OutcomeFailure})
	h.Append(schema.HistoryEntry{Spec: test, At: at.Add(time.Minute), Outcome: schema.OutcomeSuccess})
	entries := h.Entries()
	if len(entries) != 1 || entries[0].Outcome != schema.OutcomeSuccess {
		t.Fatalf("expected repeated run to replace, got %+v", entries)
	}
	if h.Append(schema.HistoryEntry{}) {
		t.Fatalf("expected empty spec to be rejected")
	}
}

func TestHistoryCapsAndOrders(t *testing.T) {
	h := newHistory(3)
	for _, goal := range []string{"a", "b", "c", "d"} {
		h.Append(schema.HistoryEntry{Spec: schema.RunSpec{Goals: []string{goal}}})
	}
	entries := h.Entries()
	if len(entries) != 3 || entries[0].Spec.Goals[0] != "b" {
		t.Fatalf("expected oldest entry dropped, got %+v", entries)
	}
	recent := h.Recent()
	if recent[0].Spec.Goals[0] != "d" {
		t.Fatalf("expected newest first, got %+v", recent)
	}
}
