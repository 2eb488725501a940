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
	"github.com/tbourn/go-ideas-backend/internal/utils"
)

// IdeaService reads and deletes stored ideas.
type IdeaService struct {
	DB *gorm.DB
}

// ListPage returns a page of ownerID's ideas (newest first) and the total.
func (s *IdeaService) ListPage(ctx context.Context, ownerID string, page, pageSize int) ([]domain.Idea, int64, error) {
	tr := otel.Tracer("services/IdeaService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	page, pageSize = utils.ClampPage(page, pageSize)

	total, err := repo.CountIdeas(ctx, s.DB, ownerID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Idea{}, 0, nil
	}
	items, err := repo.ListIdeasPage(ctx, s.DB, ownerID, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Stats returns the live idea count and latest update for ETag computation.
func (s *IdeaService) Stats(ctx context.Context, ownerID string) (int64, *time.Time, error) {
	return repo.IdeasStats(ctx, s.DB, ownerID)
}

// GetBySlug returns the idea with slug when ownerID owns it or it is public.
// Someone else's private idea is reported as not found.
func (s *IdeaService) GetBySlug(ctx context.Context, ownerID, slug string) (*domain.Idea, error) {
	tr := otel.Tracer("services/IdeaService")
	ctx, span := tr.Start(ctx, "GetBySlug",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("idea.slug", slug),
		),
	)
	defer span.End()

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrIdeaNotFound
	}
	idea, err := repo.FindIdeaBySlug(ctx, s.DB, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrIdeaNotFound
	}
	if err != nil {
		return nil, err
	}
	if idea.OwnerID != ownerID && !idea.IsPublic {
		return nil, ErrIdeaNotFound
	}
	return idea, nil
}

// Delete soft-deletes an idea. Calendar entries pointing at it stay, and its
// slug stays reserved.
func (s *IdeaService) Delete(ctx context.Context, ownerID, id string) error {
	tr := otel.Tracer("services/IdeaService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("idea.id", id),
		),
	)
	defer span.End()

	if err := repo.DeleteIdea(ctx, s.DB, id, ownerID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrIdeaNotFound
		}
		return err
	}
	return nil
}
