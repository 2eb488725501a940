// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-ideas-backend/internal/domain"
)

// EnsureUser returns the user with the given id, creating a free-tier row
// when none exists yet. Concurrent first requests for the same id are safe:
// the insert is a no-op on conflict and the row is read back afterwards.
func EnsureUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	u := &domain.User{ID: id, Tier: domain.TierFree}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(u).Error; err != nil {
		return nil, err
	}
	var got domain.User
	if err := db.WithContext(ctx).First(&got, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &got, nil
}

// SetUserTier upserts the tier for id.
func SetUserTier(ctx context.Context, db *gorm.DB, id, tier string) error {
	u := &domain.User{ID: id, Tier: tier}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"tier", "updated_at"}),
		}).
		Create(u).Error
}
