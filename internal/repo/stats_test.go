package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-ideas-backend/internal/domain"
)

func TestIdeasStats_CountError_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	_, _, err := IdeasStats(context.Background(), db, "u1")
	if err == nil {
		t.Fatalf("expected error due to missing ideas table")
	}
}

func TestIdeasStats_ZeroRows(t *testing.T) {
	db := newRepoDB(t, &domain.Idea{})
	count, maxAt, err := IdeasStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("IdeasStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestIdeasStats_Success_FilterAndMax(t *testing.T) {
	db := newRepoDB(t, &domain.Idea{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for u1
	t3 := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)   // for other user

	seedIdea(t, db, "u1", "a", t1)
	seedIdea(t, db, "u1", "b", t2)
	seedIdea(t, db, "u2", "x", t3)

	count, maxAt, err := IdeasStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("IdeasStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected maxUpdatedAt %v, got %v", t2, maxAt)
	}
}

// Force the second query (SELECT updated_at ...) to fail by renaming the column.
func TestIdeasStats_SelectLatest_ErrorPath(t *testing.T) {
	db := newRepoDB(t, &domain.Idea{})
	seedIdea(t, db, "uerr", "x", time.Now().UTC())

	if err := db.Exec(`ALTER TABLE ideas RENAME COLUMN updated_at TO updated_at_old`).Error; err != nil {
		t.Fatalf("rename column: %v", err)
	}

	_, _, err := IdeasStats(context.Background(), db, "uerr")
	if err == nil {
		t.Fatalf("expected error from latest-updated select after column rename")
	}
}

func TestCalendarStats_RangeFilter(t *testing.T) {
	db := newRepoDB(t, &domain.CalendarEntry{})
	ctx := context.Background()

	for _, d := range []string{"2024-01-01", "2024-01-15", "2024-02-01"} {
		if err := CreateCalendarEntry(ctx, db, &domain.CalendarEntry{OwnerID: "u1", Date: d, Title: d, ColorTag: "#000000"}); err != nil {
			t.Fatalf("seed %s: %v", d, err)
		}
	}

	count, maxAt, err := CalendarStats(ctx, db, "u1", "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("CalendarStats: %v", err)
	}
	if count != 2 || maxAt == nil {
		t.Fatalf("expected 2 rows with max, got %d, %v", count, maxAt)
	}
	count, _, err = CalendarStats(ctx, db, "u2", "", "")
	if err != nil || count != 0 {
		t.Fatalf("other owner: %d, %v", count, err)
	}
}
