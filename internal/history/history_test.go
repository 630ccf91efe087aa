package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAssignsIDAndTimestamps(t *testing.T) {
	store := openStore(t)

	run, err := store.Record(context.Background(), Run{
		DeckPath:  "/decks/go.yaml",
		DeckTitle: "Go Basics",
		Cards:     10,
		Status:    StatusCompleted,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if run.ID == "" {
		t.Error("expected generated run ID")
	}
	if run.StartedAt.IsZero() || run.FinishedAt.IsZero() {
		t.Error("expected timestamps to be assigned")
	}
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := store.Record(ctx, Run{
			DeckPath:    "/decks/go.yaml",
			DeckTitle:   "Go Basics",
			Cards:       5,
			AudioBuilt:  i,
			AudioCached: 5 - i,
			Duration:    42.5,
			OutputPath:  "/out/go.mp4",
			Status:      StatusCompleted,
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			FinishedAt:  base.Add(time.Duration(i)*time.Minute + 30*time.Second),
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("run count = %d, want 2", len(runs))
	}
	if runs[0].AudioBuilt != 2 || runs[1].AudioBuilt != 1 {
		t.Errorf("runs not newest-first: built counts %d, %d", runs[0].AudioBuilt, runs[1].AudioBuilt)
	}
	if !runs[0].StartedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("started_at round trip mismatch: %v", runs[0].StartedAt)
	}
}

func TestRecentOnEmptyStore(t *testing.T) {
	store := openStore(t)
	runs, err := store.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
}

func TestRecordFailedRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Record(ctx, Run{
		DeckPath:     "/decks/bad.yaml",
		DeckTitle:    "bad",
		Status:       StatusFailed,
		ErrorMessage: "tts worker exited",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	runs, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if runs[0].Status != StatusFailed || runs[0].ErrorMessage != "tts worker exited" {
		t.Errorf("failed run not persisted: %+v", runs[0])
	}
}
