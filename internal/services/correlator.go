// Package services – Correlator
//
// This file implements the persistence step of one batch slot: the idea is
// written first under a freshly allocated slug, then a calendar entry that
// references it. The two writes are independent. When the calendar write
// fails the idea is kept and the slot is reported as unscheduled.
package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-ideas-backend/internal/domain"
	"github.com/tbourn/go-ideas-backend/internal/generation"
	"github.com/tbourn/go-ideas-backend/internal/repo"
	"github.com/tbourn/go-ideas-backend/internal/schedule"
	"github.com/tbourn/go-ideas-backend/internal/slug"
)

// DefaultMaxSlugAttempts bounds how often a slot re-allocates its slug after
// losing a write-time race on the unique index.
const DefaultMaxSlugAttempts = 5

// placeholderOutline replaces an outline that came back empty.
var placeholderOutline = []string{
	"Hook: open with the main promise of the video",
	"Value: walk through the core point step by step",
	"Close: recap and invite viewers to comment",
}

// palette holds the calendar colors pillars hash into.
var palette = []string{
	"#3B82F6", // blue
	"#10B981", // emerald
	"#F59E0B", // amber
	"#EF4444", // red
	"#8B5CF6", // violet
	"#EC4899", // pink
	"#14B8A6", // teal
	"#F97316", // orange
	"#6366F1", // indigo
	"#84CC16", // lime
}

// ColorFor maps a pillar to a palette color with FNV-1a. Case and surrounding
// space are ignored, so "Tips" and " tips" share a color.
func ColorFor(pillar string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(pillar))))
	return palette[h.Sum32()%uint32(len(palette))]
}

// IdeaWriter is the persistence contract required by Correlator.
type IdeaWriter interface {
	// CreateIdea inserts idea and returns repo.ErrSlugConflict when the slug
	// is already taken.
	CreateIdea(ctx context.Context, idea *domain.Idea) error

	// CreateCalendarEntry inserts entry.
	CreateCalendarEntry(ctx context.Context, entry *domain.CalendarEntry) error
}

// GormWriter adapts the repo free functions to IdeaWriter.
type GormWriter struct {
	DB *gorm.DB
}

// CreateIdea proxies repo.CreateIdea.
func (w GormWriter) CreateIdea(ctx context.Context, idea *domain.Idea) error {
	return repo.CreateIdea(ctx, w.DB, idea)
}

// CreateCalendarEntry proxies repo.CreateCalendarEntry.
func (w GormWriter) CreateCalendarEntry(ctx context.Context, entry *domain.CalendarEntry) error {
	return repo.CreateCalendarEntry(ctx, w.DB, entry)
}

// SlugUsage proxies repo.SlugUsage so GormWriter also serves as slug.Store.
func (w GormWriter) SlugUsage(ctx context.Context, base string) (slug.Usage, error) {
	taken, n, err := repo.SlugUsage(ctx, w.DB, base)
	return slug.Usage{BaseTaken: taken, MaxSuffix: n}, err
}

// Generated is a payload together with where it came from.
type Generated struct {
	Payload generation.Payload
	Source  string // domain.SourceProvider or domain.SourceFallback
	Model   string
}

// Placement is the outcome of Persist. Entry is nil and CalendarErr is set
// when the idea could not be scheduled.
type Placement struct {
	Idea        *domain.Idea
	Entry       *domain.CalendarEntry
	CalendarErr error
}

// Scheduled reports whether the idea got its calendar entry.
func (p *Placement) Scheduled() bool { return p.Entry != nil }

// Correlator writes an idea and its calendar entry for one slot.
type Correlator struct {
	Writer          IdeaWriter
	MaxSlugAttempts int
}

// NewCorrelator returns a Correlator backed by db.
func NewCorrelator(db *gorm.DB) *Correlator {
	return &Correlator{Writer: GormWriter{DB: db}, MaxSlugAttempts: DefaultMaxSlugAttempts}
}

// Persist stores g for ownerID at slot. An error means no idea was written;
// a calendar failure is reported in Placement.CalendarErr instead.
func (c *Correlator) Persist(ctx context.Context, alloc *slug.Allocator, ownerID string, slot schedule.Slot, g Generated) (*Placement, error) {
	tr := otel.Tracer("services/Correlator")
	ctx, span := tr.Start(ctx, "Persist",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("slot.date", slot.DateString()),
			attribute.String("slot.pillar", slot.Pillar),
		),
	)
	defer span.End()

	idea, err := c.createIdea(ctx, alloc, ownerID, g)
	if err != nil {
		span.SetStatus(codes.Error, "idea write failed")
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("idea.slug", idea.Slug))

	ref := idea.ID
	entry := &domain.CalendarEntry{
		OwnerID:  ownerID,
		Date:     slot.DateString(),
		Title:    idea.Title,
		IdeaRef:  &ref,
		Pillar:   slot.Pillar,
		ColorTag: ColorFor(slot.Pillar),
		Notes:    strings.Join(idea.Outline, "\n"),
	}
	if err := c.Writer.CreateCalendarEntry(ctx, entry); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("idea_id", idea.ID).
			Str("date", entry.Date).
			Msg("calendar correlation failed; idea kept unscheduled")
		span.SetStatus(codes.Error, "calendar write failed")
		return &Placement{Idea: idea, CalendarErr: fmt.Errorf("%w: %w", ErrCorrelationWrite, err)}, nil
	}
	return &Placement{Idea: idea, Entry: entry}, nil
}

// createIdea allocates a slug and inserts the idea, taking the next suffix
// whenever the insert loses a race on the unique index.
func (c *Correlator) createIdea(ctx context.Context, alloc *slug.Allocator, ownerID string, g Generated) (*domain.Idea, error) {
	p := g.Payload
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = "Untitled idea"
	}
	idea := &domain.Idea{
		OwnerID:             ownerID,
		Title:               truncateRunes(title, domain.MaxTitleLen),
		Outline:             normalizeOutline(p.Outline),
		MidMention:          p.MidMention,
		EndMention:          p.EndMention,
		ThumbnailIdea:       p.ThumbnailIdea,
		InteractionQuestion: p.InteractionQuestion,
		Category:            truncateRunes(p.Category, domain.MaxLabelLen),
		Subcategory:         truncateRunes(p.Subcategory, domain.MaxLabelLen),
		LengthBucket:        truncateRunes(p.LengthBucket, domain.MaxBucketLen),
		Source:              g.Source,
		Model:               truncateRunes(g.Model, domain.MaxBucketLen),
	}

	attempts := c.MaxSlugAttempts
	if attempts <= 0 {
		attempts = DefaultMaxSlugAttempts
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		s, err := alloc.Next(ctx, idea.Title)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSlugAllocation, err)
		}
		idea.Slug = s
		err = c.Writer.CreateIdea(ctx, idea)
		if err == nil {
			return idea, nil
		}
		if !errors.Is(err, repo.ErrSlugConflict) {
			return nil, err
		}
		lastErr = err
		zerolog.Ctx(ctx).Debug().Str("slug", s).Msg("slug taken at write time; retrying")
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrSlugAllocation, attempts, lastErr)
}

// truncateRunes cuts s to at most n runes and trims the cut edge.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

// normalizeOutline trims items, drops blanks and substitutes the placeholder
// when nothing is left.
func normalizeOutline(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), placeholderOutline...)
	}
	return out
}
