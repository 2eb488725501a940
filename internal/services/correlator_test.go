package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tbourn/go-ideas-backend/internal/domain"
	"github.com/tbourn/go-ideas-backend/internal/generation"
	"github.com/tbourn/go-ideas-backend/internal/repo"
	"github.com/tbourn/go-ideas-backend/internal/schedule"
	"github.com/tbourn/go-ideas-backend/internal/slug"
)

func testSlot() schedule.Slot {
	return schedule.Slot{Index: 0, Date: day("2024-01-01"), Pillar: "tips"}
}

func TestColorFor_DeterministicAndInPalette(t *testing.T) {
	inPalette := func(c string) bool {
		for _, p := range palette {
			if p == c {
				return true
			}
		}
		return false
	}
	seen := map[string]bool{}
	for _, p := range []string{"tips", "news", "reviews", "behind the scenes", "q&a", "tutorials", "vlog", "memes", "stories", "deals"} {
		c := ColorFor(p)
		if !inPalette(c) {
			t.Fatalf("ColorFor(%q) = %q not in palette", p, c)
		}
		if ColorFor(p) != c {
			t.Fatalf("ColorFor(%q) not stable", p)
		}
		seen[c] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected pillars to spread over the palette, got %v", seen)
	}
	if ColorFor("Tips ") != ColorFor("tips") {
		t.Fatalf("case/space should not change the color")
	}
}

func TestPersist_WritesIdeaAndLinkedEntry(t *testing.T) {
	db := newSvcDB(t)
	c := NewCorrelator(db)
	alloc := slug.NewAllocator(GormWriter{DB: db})

	g := Generated{
		Payload: generation.Payload{Title: "Five Tips", Outline: []string{" hook ", "", "body", "close"}},
		Source:  domain.SourceProvider,
		Model:   "primary",
	}
	p, err := c.Persist(context.Background(), alloc, "u1", testSlot(), g)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if !p.Scheduled() || p.CalendarErr != nil {
		t.Fatalf("expected scheduled placement: %+v", p)
	}
	if p.Idea.Slug != "five-tips" || p.Idea.Model != "primary" || p.Idea.Source != domain.SourceProvider {
		t.Fatalf("unexpected idea: %+v", p.Idea)
	}
	if got := []string(p.Idea.Outline); len(got) != 3 || got[0] != "hook" {
		t.Fatalf("outline not normalized: %v", got)
	}

	e := p.Entry
	if e.IdeaRef == nil || *e.IdeaRef != p.Idea.ID {
		t.Fatalf("entry not linked to idea: %+v", e)
	}
	if e.Date != "2024-01-01" || e.Title != "Five Tips" || e.Pillar != "tips" || e.ColorTag != ColorFor("tips") {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Notes != "hook\nbody\nclose" {
		t.Fatalf("notes = %q", e.Notes)
	}

	stored, err := repo.FindIdeaBySlug(context.Background(), db, "five-tips")
	if err != nil || stored.ID != p.Idea.ID {
		t.Fatalf("idea not stored: %v", err)
	}
}

func TestPersist_EmptyOutlineGetsPlaceholder(t *testing.T) {
	db := newSvcDB(t)
	c := NewCorrelator(db)
	alloc := slug.NewAllocator(GormWriter{DB: db})

	p, err := c.Persist(context.Background(), alloc, "u1", testSlot(), Generated{
		Payload: generation.Payload{Title: "Bare", Outline: []string{"  "}},
		Source:  domain.SourceProvider,
	})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if len(p.Idea.Outline) != len(placeholderOutline) || p.Idea.Outline[0] != placeholderOutline[0] {
		t.Fatalf("expected placeholder outline, got %v", p.Idea.Outline)
	}
}

func TestPersist_CalendarFailureKeepsIdea(t *testing.T) {
	db := newSvcDB(t)
	c := &Correlator{Writer: failingCalendar{GormWriter{DB: db}}}
	alloc := slug.NewAllocator(GormWriter{DB: db})

	p, err := c.Persist(context.Background(), alloc, "u1", testSlot(), Generated{
		Payload: generation.Payload{Title: "Kept", Outline: []string{"a", "b", "c"}},
		Source:  domain.SourceFallback,
	})
	if err != nil {
		t.Fatalf("calendar failure must not be returned as error: %v", err)
	}
	if p.Scheduled() || !errors.Is(p.CalendarErr, ErrCorrelationWrite) {
		t.Fatalf("expected unscheduled placement, got %+v", p)
	}
	if _, err := repo.FindIdeaBySlug(context.Background(), db, "kept"); err != nil {
		t.Fatalf("idea should remain persisted: %v", err)
	}
	entries, _ := repo.ListCalendarRange(context.Background(), db, "u1", "", "")
	if len(entries) != 0 {
		t.Fatalf("no entry expected, got %d", len(entries))
	}
}

func TestPersist_WriteTimeConflictTakesNextSuffix(t *testing.T) {
	db := newSvcDB(t)
	w := &conflictingWriter{GormWriter: GormWriter{DB: db}, n: 2}
	c := &Correlator{Writer: w, MaxSlugAttempts: 5}
	alloc := slug.NewAllocator(GormWriter{DB: db})

	p, err := c.Persist(context.Background(), alloc, "u1", testSlot(), Generated{
		Payload: generation.Payload{Title: "Race", Outline: []string{"a"}},
		Source:  domain.SourceProvider,
	})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	want := []string{"race", "race-1", "race-2"}
	if strings.Join(w.slugs, ",") != strings.Join(want, ",") || p.Idea.Slug != "race-2" {
		t.Fatalf("slugs tried %v, final %q", w.slugs, p.Idea.Slug)
	}
}

func TestPersist_ConflictsExhausted(t *testing.T) {
	db := newSvcDB(t)
	w := &conflictingWriter{GormWriter: GormWriter{DB: db}, n: 100}
	c := &Correlator{Writer: w, MaxSlugAttempts: 3}
	alloc := slug.NewAllocator(GormWriter{DB: db})

	_, err := c.Persist(context.Background(), alloc, "u1", testSlot(), Generated{
		Payload: generation.Payload{Title: "Race", Outline: []string{"a"}},
	})
	if !errors.Is(err, ErrSlugAllocation) || !errors.Is(err, repo.ErrSlugConflict) {
		t.Fatalf("expected slug allocation error, got %v", err)
	}
	if len(w.slugs) != 3 {
		t.Fatalf("expected 3 write attempts, got %d", len(w.slugs))
	}
}

// Two batches that computed the same base slug from a stale read still end
// up with distinct slugs because the unique index decides.
func TestPersist_StaleProbeResolvedAtWriteTime(t *testing.T) {
	db := newSvcDB(t)
	c := NewCorrelator(db)
	g := Generated{Payload: generation.Payload{Title: "Same Title", Outline: []string{"a"}}, Source: domain.SourceProvider}

	first := slug.NewAllocator(GormWriter{DB: db})
	if _, err := c.Persist(context.Background(), first, "u1", testSlot(), g); err != nil {
		t.Fatalf("first: %v", err)
	}

	stale := slug.NewAllocator(slug.StoreFunc(func(context.Context, string) (slug.Usage, error) { return slug.Usage{}, nil }))
	p, err := c.Persist(context.Background(), stale, "u2", testSlot(), g)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if p.Idea.Slug != "same-title-1" {
		t.Fatalf("expected write-time conflict to move to suffix 1, got %q", p.Idea.Slug)
	}
}

func TestPersist_ManyExistingSuffixes(t *testing.T) {
	db := newSvcDB(t)
	now := time.Now().UTC()
	rows := make([]domain.Idea, 0, 1101)
	for i := 0; i <= 1100; i++ {
		s := slug.WithSuffix("crowded", i)
		rows = append(rows, domain.Idea{
			ID: uuid.NewString(), OwnerID: "u0", Title: s, Slug: s,
			Outline: []string{"a"}, Source: domain.SourceProvider,
			CreatedAt: now, UpdatedAt: now,
		})
	}
	if err := db.CreateInBatches(rows, 200).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := NewCorrelator(db)
	alloc := slug.NewAllocator(GormWriter{DB: db})
	g := Generated{Payload: generation.Payload{Title: "Crowded", Outline: []string{"a"}}, Source: domain.SourceProvider}
	for _, want := range []string{"crowded-1101", "crowded-1102"} {
		p, err := c.Persist(context.Background(), alloc, "u1", testSlot(), g)
		if err != nil {
			t.Fatalf("Persist: %v", err)
		}
		if p.Idea.Slug != want {
			t.Fatalf("slug = %q; want %q", p.Idea.Slug, want)
		}
	}
}

func TestPersist_TruncatesOverlongGeneratedFields(t *testing.T) {
	db := newSvcDB(t)
	c := NewCorrelator(db)
	alloc := slug.NewAllocator(GormWriter{DB: db})

	title := strings.Repeat("ü", domain.MaxTitleLen+40)
	p, err := c.Persist(context.Background(), alloc, "u1", testSlot(), Generated{
		Payload: generation.Payload{
			Title:        title,
			Outline:      []string{"a"},
			Category:     strings.Repeat("c", domain.MaxLabelLen+1),
			LengthBucket: strings.Repeat("ß", domain.MaxBucketLen+1),
		},
		Source: domain.SourceProvider,
		Model:  strings.Repeat("m", 100),
	})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	stored, err := repo.FindIdeaBySlug(context.Background(), db, p.Idea.Slug)
	if err != nil {
		t.Fatalf("FindIdeaBySlug: %v", err)
	}
	if got := utf8.RuneCountInString(stored.Title); got != domain.MaxTitleLen || !utf8.ValidString(stored.Title) {
		t.Fatalf("title runes = %d valid=%v", got, utf8.ValidString(stored.Title))
	}
	if p.Entry.Title != stored.Title {
		t.Fatalf("entry title should match the stored idea title")
	}
	if utf8.RuneCountInString(stored.Category) != domain.MaxLabelLen ||
		utf8.RuneCountInString(stored.LengthBucket) != domain.MaxBucketLen ||
		len(stored.Model) != domain.MaxBucketLen {
		t.Fatalf("labels not truncated: %q %q %q", stored.Category, stored.LengthBucket, stored.Model)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo", 10); got != "héllo" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := truncateRunes("héllo", 2); got != "hé" {
		t.Fatalf("got %q; want hé", got)
	}
	if got := truncateRunes("ab cd", 3); got != "ab" {
		t.Fatalf("cut edge not trimmed: %q", got)
	}
}
