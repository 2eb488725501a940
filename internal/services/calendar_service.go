package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-ideas-backend/internal/domain"
	"github.com/tbourn/go-ideas-backend/internal/repo"
	"github.com/tbourn/go-ideas-backend/internal/schedule"
)

// CalendarService manages the owner's calendar entries.
type CalendarService struct {
	DB *gorm.DB
}

// ListRange returns entries with from <= date <= to. Either bound may be
// empty; a present bound must be YYYY-MM-DD.
func (s *CalendarService) ListRange(ctx context.Context, ownerID, from, to string) ([]domain.CalendarEntry, error) {
	tr := otel.Tracer("services/CalendarService")
	ctx, span := tr.Start(ctx, "ListRange",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("range.from", from),
			attribute.String("range.to", to),
		),
	)
	defer span.End()

	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	out, err := repo.ListCalendarRange(ctx, s.DB, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.CalendarEntry{}
	}
	return out, nil
}

// Stats returns count and latest update of the range for ETag computation.
func (s *CalendarService) Stats(ctx context.Context, ownerID, from, to string) (int64, *time.Time, error) {
	from, to, err := normalizeRange(from, to)
	if err != nil {
		return 0, nil, err
	}
	return repo.CalendarStats(ctx, s.DB, ownerID, from, to)
}

// SetCompleted marks an entry done (or not) and returns the updated row.
func (s *CalendarService) SetCompleted(ctx context.Context, ownerID, id string, completed bool) (*domain.CalendarEntry, error) {
	tr := otel.Tracer("services/CalendarService")
	ctx, span := tr.Start(ctx, "SetCompleted",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("entry.id", id),
			attribute.Bool("entry.completed", completed),
		),
	)
	defer span.End()

	if err := repo.SetCalendarCompleted(ctx, s.DB, id, ownerID, completed); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	e, err := repo.GetCalendarEntry(ctx, s.DB, id, ownerID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	return e, err
}

// Delete removes an entry; the idea it references is not touched.
func (s *CalendarService) Delete(ctx context.Context, ownerID, id string) error {
	tr := otel.Tracer("services/CalendarService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("entry.id", id),
		),
	)
	defer span.End()

	if err := repo.DeleteCalendarEntry(ctx, s.DB, id, ownerID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	return nil
}

// normalizeRange validates and canonicalizes both bounds.
func normalizeRange(from, to string) (string, string, error) {
	var f, t time.Time
	var err error
	if from = strings.TrimSpace(from); from != "" {
		if f, err = schedule.ParseDate(from); err != nil {
			return "", "", ErrInvalidDateRange
		}
		from = f.Format(schedule.DateLayout)
	}
	if to = strings.TrimSpace(to); to != "" {
		if t, err = schedule.ParseDate(to); err != nil {
			return "", "", ErrInvalidDateRange
		}
		to = t.Format(schedule.DateLayout)
	}
	if from != "" && to != "" && f.After(t) {
		return "", "", ErrInvalidDateRange
	}
	return from, to, nil
}
