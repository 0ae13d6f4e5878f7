package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "queue_events")
		if err != nil {
			t.Fatalf("NextSequence() error: %v", err)
		}
		if got != want {
			t.Errorf("NextSequence() = %d, want %d", got, want)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Record", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		event := models.NewQueueEvent(models.EventEnqueue, "spotify:track:x", "Song X", "Added Song X to the queue", true)
		event.SetClient("10.0.0.7")

		if err := repo.Record(ctx, event); err != nil {
			t.Fatalf("failed to record event: %v", err)
		}
		if event.ID() == "" || event.Sequence() != 1 {
			t.Errorf("expected id and sequence set, got %q %d", event.ID(), event.Sequence())
		}

		events, err := repo.Recent(ctx, "", 1)
		if err != nil || len(events) != 1 {
			t.Fatalf("failed to read event back: %v", err)
		}
		got := events[0]
		if got.ID() != event.ID() || got.Kind() != models.EventEnqueue || got.TrackURI() != "spotify:track:x" || !got.Success() {
			t.Errorf("unexpected event %+v", got.View())
		}
		if got.Client() != "10.0.0.7" {
			t.Errorf("expected client stored, got %q", got.Client())
		}
		if !got.CreatedAt().Equal(event.CreatedAt()) {
			t.Errorf("expected created_at %v, got %v", event.CreatedAt(), got.CreatedAt())
		}
	})

	t.Run("Record rejects unknown kinds", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		event := models.NewQueueEvent(models.EventKind("rewind"), "", "", "", false)

		if err := repo.Record(ctx, event); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Recent by kind", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		seed := []models.EventKind{
			models.EventEnqueue, models.EventControl, models.EventEnqueue, models.EventRemove, models.EventEnqueue,
		}
		for i, kind := range seed {
			if err := repo.Record(ctx, models.NewQueueEvent(kind, fmt.Sprintf("spotify:track:%d", i), "", "", true)); err != nil {
				t.Fatalf("failed to record event %d: %v", i, err)
			}
		}

		tc := []struct {
			name  string
			kind  models.EventKind
			limit int
			want  []string
		}{
			{
				name: "all newest first",
				want: []string{"spotify:track:4", "spotify:track:3", "spotify:track:2", "spotify:track:1", "spotify:track:0"},
			},
			{
				name: "enqueue only",
				kind: models.EventEnqueue,
				want: []string{"spotify:track:4", "spotify:track:2", "spotify:track:0"},
			},
			{
				name:  "enqueue with limit",
				kind:  models.EventEnqueue,
				limit: 2,
				want:  []string{"spotify:track:4", "spotify:track:2"},
			},
			{
				name: "remove only",
				kind: models.EventRemove,
				want: []string{"spotify:track:3"},
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				events, err := repo.Recent(ctx, tt.kind, tt.limit)
				if err != nil {
					t.Fatalf("Recent() error: %v", err)
				}
				if len(events) != len(tt.want) {
					t.Fatalf("expected %d events, got %d", len(tt.want), len(events))
				}
				for i, e := range events {
					if e.TrackURI() != tt.want[i] {
						t.Errorf("event %d: expected %s, got %s", i, tt.want[i], e.TrackURI())
					}
				}
			})
		}
	})

	t.Run("Recent clamps the limit", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		for range MaxHistoryLimit + 5 {
			if err := repo.Record(ctx, models.NewQueueEvent(models.EventControl, "", "", "next", true)); err != nil {
				t.Fatalf("failed to record event: %v", err)
			}
		}

		tc := []struct {
			limit int
			want  int
		}{
			{limit: 0, want: DefaultHistoryLimit},
			{limit: -3, want: DefaultHistoryLimit},
			{limit: 5, want: 5},
			{limit: 1000, want: MaxHistoryLimit},
		}
		for _, tt := range tc {
			events, err := repo.Recent(ctx, "", tt.limit)
			if err != nil {
				t.Fatalf("Recent(%d) error: %v", tt.limit, err)
			}
			if len(events) != tt.want {
				t.Errorf("Recent(%d) returned %d events, want %d", tt.limit, len(events), tt.want)
			}
		}
	})

	t.Run("Recent on empty history", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))

		events, err := repo.Recent(ctx, "", 10)
		if err != nil {
			t.Fatalf("Recent() error: %v", err)
		}
		if events == nil || len(events) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", events)
		}
	})

	t.Run("Prune", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t))
		for i := range 10 {
			if err := repo.Record(ctx, models.NewQueueEvent(models.EventEnqueue, fmt.Sprintf("spotify:track:%d", i), "", "", true)); err != nil {
				t.Fatalf("failed to record event: %v", err)
			}
		}

		removed, err := repo.Prune(ctx, 3)
		if err != nil {
			t.Fatalf("Prune() error: %v", err)
		}
		if removed != 7 {
			t.Errorf("expected 7 removed, got %d", removed)
		}

		events, err := repo.Recent(ctx, "", MaxHistoryLimit)
		if err != nil {
			t.Fatalf("Recent() error: %v", err)
		}
		if len(events) != 3 || events[0].TrackURI() != "spotify:track:9" {
			t.Errorf("expected newest three kept, got %d", len(events))
		}
	})

	t.Run("retention prunes on record", func(t *testing.T) {
		repo := NewEventRepository(setupTestDB(t)).WithRetention(4)
		for i := range 9 {
			if err := repo.Record(ctx, models.NewQueueEvent(models.EventEnqueue, fmt.Sprintf("spotify:track:%d", i), "", "", true)); err != nil {
				t.Fatalf("failed to record event: %v", err)
			}
		}

		events, err := repo.Recent(ctx, "", MaxHistoryLimit)
		if err != nil {
			t.Fatalf("Recent() error: %v", err)
		}
		want := []string{"spotify:track:8", "spotify:track:7", "spotify:track:6", "spotify:track:5"}
		if len(events) != len(want) {
			t.Fatalf("expected %d events kept, got %d", len(want), len(events))
		}
		for i, e := range events {
			if e.TrackURI() != want[i] {
				t.Errorf("event %d: expected %s, got %s", i, want[i], e.TrackURI())
			}
		}
	})
}
