package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-ideas-backend/internal/domain"
	"github.com/tbourn/go-ideas-backend/internal/generation"
	"github.com/tbourn/go-ideas-backend/internal/quota"
	"github.com/tbourn/go-ideas-backend/internal/repo"
)

const ideaJSON = `{"title":"Five Tips","outline":["hook","body","close"],"midMention":"m","endMention":"e","thumbnailIdea":"t","interactionQuestion":"q","category":"from-model","subcategory":"s","lengthBucket":"short"}`

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func setTier(t *testing.T, db *gorm.DB, owner, tier string) {
	t.Helper()
	if err := repo.SetUserTier(context.Background(), db, owner, tier); err != nil {
		t.Fatalf("set tier: %v", err)
	}
}

// countingProvider answers every call with fn and counts calls.
type countingProvider struct {
	calls atomic.Int64
	fn    func(n int64, req generation.Request) (string, error)
}

func (p *countingProvider) Complete(_ context.Context, req generation.Request) (string, error) {
	n := p.calls.Add(1)
	return p.fn(n, req)
}

func alwaysJSON(raw string) *countingProvider {
	return &countingProvider{fn: func(int64, generation.Request) (string, error) { return raw, nil }}
}

func newTestBatchService(db *gorm.DB, p generation.Provider) *BatchService {
	client := generation.NewClient(p, generation.Options{
		PrimaryModel:   "primary",
		SecondaryModel: "secondary",
		MaxRetries:     2,
		BackoffBase:    0,
		CallTimeout:    time.Second,
	})
	gate := quota.NewGate(&UserDirectory{DB: db}, quota.DefaultPolicy())
	return NewBatchService(db, gate, client, 0)
}

// failingCalendar writes ideas but rejects calendar entries.
type failingCalendar struct {
	GormWriter
}

func (failingCalendar) CreateCalendarEntry(context.Context, *domain.CalendarEntry) error {
	return fmt.Errorf("disk full")
}

// conflictingWriter reports a slug conflict for the first n idea inserts.
type conflictingWriter struct {
	GormWriter
	n     int
	slugs []string
}

func (w *conflictingWriter) CreateIdea(ctx context.Context, idea *domain.Idea) error {
	w.slugs = append(w.slugs, idea.Slug)
	if w.n > 0 {
		w.n--
		return repo.ErrSlugConflict
	}
	return w.GormWriter.CreateIdea(ctx, idea)
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}
