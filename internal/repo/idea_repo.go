// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Idea model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an idea is not found, functions return ErrNotFound.
//   - CreateIdea returns ErrSlugConflict when the slug is already taken;
//     the unique index is the final authority on slug ownership.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-ideas-backend/internal/domain"
	"github.com/tbourn/go-ideas-backend/internal/slug"
)

// CreateIdea inserts idea. ID is generated when empty and CreatedAt is set to
// UTC now when zero. A unique violation on the slug index is reported as
// ErrSlugConflict so the caller can pick another slug.
func CreateIdea(ctx context.Context, db *gorm.DB, idea *domain.Idea) error {
	if idea.ID == "" {
		idea.ID = uuid.NewString()
	}
	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = time.Now().UTC()
	}
	if idea.Source == "" {
		idea.Source = domain.SourceProvider
	}
	if err := db.WithContext(ctx).Create(idea).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrSlugConflict
		}
		return err
	}
	return nil
}

// SlugUsage reports, in one query, whether base is held and the largest n
// for which base-n is held. Soft-deleted rows count. Rows matching the LIKE
// pattern without a numeric tail ("base-tips") are ignored.
func SlugUsage(ctx context.Context, db *gorm.DB, base string) (baseTaken bool, maxSuffix int, err error) {
	var slugs []string
	err = db.WithContext(ctx).
		Unscoped().
		Model(&domain.Idea{}).
		Where("slug = ? OR slug LIKE ?", base, base+"-%").
		Pluck("slug", &slugs).Error
	if err != nil {
		return false, 0, err
	}
	for _, s := range slugs {
		if s == base {
			baseTaken = true
			continue
		}
		if n, ok := slug.ParseSuffix(base, s); ok && n > maxSuffix {
			maxSuffix = n
		}
	}
	return baseTaken, maxSuffix, nil
}

// FindIdeaBySlug returns the live idea with the given slug or ErrNotFound.
func FindIdeaBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Idea, error) {
	var idea domain.Idea
	if err := db.WithContext(ctx).Where("slug = ?", slug).First(&idea).Error; err != nil {
		return nil, err
	}
	return &idea, nil
}

// CountIdeasSince returns how many ideas ownerID created at or after since.
// Deleted ideas are included: removing an idea does not give quota back.
func CountIdeasSince(ctx context.Context, db *gorm.DB, ownerID string, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Unscoped().
		Model(&domain.Idea{}).
		Where("owner_id = ? AND created_at >= ?", ownerID, since.UTC()).
		Count(&n).Error
	return n, err
}

// CountIdeas returns the number of live ideas owned by ownerID.
func CountIdeas(ctx context.Context, db *gorm.DB, ownerID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Idea{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error
	return total, err
}

// ListIdeasPage returns a page of ownerID's ideas, newest first.
// The caller computes offset and limit (e.g., (page-1)*pageSize).
func ListIdeasPage(ctx context.Context, db *gorm.DB, ownerID string, offset, limit int) ([]domain.Idea, error) {
	var out []domain.Idea
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetIdea fetches a single idea by id and owner.
func GetIdea(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Idea, error) {
	var idea domain.Idea
	err := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&idea).Error
	if err != nil {
		return nil, err
	}
	return &idea, nil
}

// DeleteIdea soft-deletes an idea owned by ownerID. Calendar entries that
// reference it are left untouched. Returns ErrNotFound when nothing matched.
func DeleteIdea(ctx context.Context, db *gorm.DB, id, ownerID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&domain.Idea{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
