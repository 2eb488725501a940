// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for CalendarEntry.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-ideas-backend/internal/domain"
)

// CreateCalendarEntry inserts entry, generating its ID when empty.
func CreateCalendarEntry(ctx context.Context, db *gorm.DB, entry *domain.CalendarEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(entry).Error
}

// ListCalendarRange returns ownerID's entries with from <= date <= to, ordered
// by date. Dates are YYYY-MM-DD strings; an empty bound is open.
func ListCalendarRange(ctx context.Context, db *gorm.DB, ownerID, from, to string) ([]domain.CalendarEntry, error) {
	q := db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if from != "" {
		q = q.Where("date >= ?", from)
	}
	if to != "" {
		q = q.Where("date <= ?", to)
	}
	var out []domain.CalendarEntry
	err := q.Order("date asc").Order("created_at asc").Find(&out).Error
	return out, err
}

// GetCalendarEntry fetches one entry by id and owner.
func GetCalendarEntry(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.CalendarEntry, error) {
	var e domain.CalendarEntry
	err := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SetCalendarCompleted flips the completed flag. Returns ErrNotFound when the
// entry does not exist or belongs to someone else.
func SetCalendarCompleted(ctx context.Context, db *gorm.DB, id, ownerID string, completed bool) error {
	res := db.WithContext(ctx).
		Model(&domain.CalendarEntry{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("completed", completed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCalendarEntry removes an entry. The referenced idea is not touched.
func DeleteCalendarEntry(ctx context.Context, db *gorm.DB, id, ownerID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&domain.CalendarEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
