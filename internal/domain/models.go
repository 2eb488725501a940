// Package domain defines the persistence models for generated ideas, their
// calendar placements, and the users that own them. These types are mapped
// with GORM and form the core data layer of the ideas service.
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Idea sources.
const (
	SourceProvider = "provider"
	SourceFallback = "fallback"
)

// Tiers recognized by the quota policy. Anything else is treated as free.
const (
	TierFree     = "free"
	TierPremium  = "premium"
	TierLifetime = "lifetime"
)

// Column widths, in characters, of the bounded text fields below.
const (
	MaxTitleLen  = 255 // Idea.Title, CalendarEntry.Title
	MaxLabelLen  = 128 // Category, Subcategory, CalendarEntry.Pillar
	MaxBucketLen = 64  // LengthBucket, Model
)

// Idea is one generated short-form content unit.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - OwnerID: identifier of the owner; indexed together with CreatedAt for
//     the daily quota counter.
//   - Title / Outline: the generated content; Outline is a JSON array and is
//     never empty for a persisted row.
//   - Slug: URL-safe identifier derived from Title, unique across all rows
//     including soft-deleted ones.
//   - Source: "provider" when the external model produced the payload,
//     "fallback" when the deterministic template did.
//   - DeletedAt: soft deletion marker.
type Idea struct {
	ID                  string                      `json:"id"                   gorm:"type:char(36);primaryKey"`
	OwnerID             string                      `json:"owner_id"             gorm:"type:varchar(64);not null;index:idx_owner_created,priority:1"`
	Title               string                      `json:"title"                gorm:"type:varchar(255);not null"`
	Outline             datatypes.JSONSlice[string] `json:"outline"              gorm:"not null"`
	MidMention          string                      `json:"mid_mention"          gorm:"type:text"`
	EndMention          string                      `json:"end_mention"          gorm:"type:text"`
	ThumbnailIdea       string                      `json:"thumbnail_idea"       gorm:"type:text"`
	InteractionQuestion string                      `json:"interaction_question" gorm:"type:text"`
	Category            string                      `json:"category"             gorm:"type:varchar(128)"`
	Subcategory         string                      `json:"subcategory"          gorm:"type:varchar(128)"`
	LengthBucket        string                      `json:"length_bucket"        gorm:"type:varchar(64)"`
	Slug                string                      `json:"slug"                 gorm:"type:varchar(120);not null;uniqueIndex:ux_ideas_slug"`
	IsPublic            bool                        `json:"is_public"            gorm:"not null;default:false"`
	Source              string                      `json:"source"               gorm:"type:varchar(16);not null;default:'provider';check:source IN ('provider','fallback')"`
	Model               string                      `json:"model,omitempty"      gorm:"type:varchar(64)"`
	CreatedAt           time.Time                   `json:"created_at"           gorm:"index:idx_owner_created,priority:2"`
	UpdatedAt           time.Time                   `json:"updated_at"`
	DeletedAt           gorm.DeletedAt              `json:"-"                    gorm:"index"`
}

// TableName returns the database table name for Idea.
func (Idea) TableName() string { return "ideas" }

// CalendarEntry places an idea on a day of the owner's calendar.
//
// IdeaRef is a weak reference: there is no foreign key, so entries survive
// the deletion of the idea they point at and deleting an entry never touches
// the idea. Date is stored as YYYY-MM-DD so range queries compare lexically.
type CalendarEntry struct {
	ID        string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	OwnerID   string    `json:"owner_id"           gorm:"type:varchar(64);not null;index:idx_owner_date,priority:1"`
	Date      string    `json:"date"               gorm:"type:varchar(10);not null;index:idx_owner_date,priority:2"`
	Title     string    `json:"title"              gorm:"type:varchar(255);not null"`
	IdeaRef   *string   `json:"idea_ref,omitempty" gorm:"type:char(36);index"`
	Pillar    string    `json:"pillar"             gorm:"type:varchar(128)"`
	Completed bool      `json:"completed"          gorm:"not null;default:false"`
	ColorTag  string    `json:"color_tag"          gorm:"type:varchar(16);not null"`
	Notes     string    `json:"notes"              gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for CalendarEntry.
func (CalendarEntry) TableName() string { return "calendar_entries" }

// User is the local record of an owner's subscription tier.
type User struct {
	ID        string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	Tier      string    `json:"tier"       gorm:"type:varchar(16);not null;default:'free'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
