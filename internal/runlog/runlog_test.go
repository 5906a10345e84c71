package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{RunID: "r1", Question: "q1", Answer: "a1", FinalDecision: "ACCEPT_TIER_1",
			Tier: "TIER_1", RetrievalSupport: 0.9, AnswerCoverage: 0.8,
			Steps: 0, Attempts: 1, CreatedAt: base},
		{RunID: "r2", Question: "q2", Answer: "I do not know", FinalDecision: "REFUSE_LOW_CONFIDENCE",
			Tier: "TIER_2", Attempts: 2, CreatedAt: base.Add(time.Minute)},
		{RunID: "r3", Question: "50 + 25", Answer: "75", FinalDecision: "NO_ROUTE",
			Steps: 1, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("record %s: %v", e.RunID, err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].RunID != "r3" || got[1].RunID != "r2" {
		t.Fatalf("expected newest first, got %s, %s", got[0].RunID, got[1].RunID)
	}

	all, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	first := all[len(all)-1]
	if first.Question != "q1" || first.RetrievalSupport != 0.9 || first.AnswerCoverage != 0.8 {
		t.Fatalf("round trip mismatch: %+v", first)
	}
	if !first.CreatedAt.Equal(base) {
		t.Fatalf("timestamp mismatch: %v", first.CreatedAt)
	}
}

func TestRecordRejectsDuplicateRunID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := Entry{RunID: "dup", Question: "q", Answer: "a", FinalDecision: "ACCEPT_TIER_1"}
	if err := s.Record(ctx, e); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := s.Record(ctx, e); err == nil {
		t.Fatal("expected duplicate run id to be rejected")
	}
}

func TestRecordTierTrail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := Entry{
		RunID: "r1", Question: "q", Answer: "a", FinalDecision: "ACCEPT_TIER_2",
		Tier: "TIER_2", Attempts: 2,
		TierAttempts: []AttemptEntry{
			{Seq: 1, Tier: "TIER_1", Model: "m", Temperature: 0.1, RetrievalSupport: 0.9, AnswerCoverage: 0.1},
			{Seq: 2, Tier: "TIER_2", Model: "m", Temperature: 0.3, RetrievalSupport: 0.9, AnswerCoverage: 0.8},
		},
	}
	if err := s.Record(ctx, e); err != nil {
		t.Fatalf("record: %v", err)
	}

	trail, err := s.AttemptsFor(ctx, "r1")
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(trail))
	}
	if trail[0].Tier != "TIER_1" || trail[1].Temperature != 0.3 {
		t.Fatalf("trail mismatch: %+v", trail)
	}
	if trail[1].AnswerCoverage != 0.8 {
		t.Fatalf("coverage lost: %+v", trail[1])
	}
}

func TestRecentEmpty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no entries, got %d", len(got))
	}
}
