// Package services defines the business logic for idea batches, calendar
// entries and quota. This file centralizes the service-level error values so
// that handlers can map them to HTTP status codes with errors.Is.
//
// Input and quota errors from the lower layers are re-exported here, so the
// transport layer only has to depend on this package.
package services

import (
	"errors"

	"github.com/tbourn/go-ideas-backend/internal/quota"
	"github.com/tbourn/go-ideas-backend/internal/schedule"
)

// Batch input and quota errors. These are the only errors BatchService.Run
// returns; everything else is absorbed per slot.
var (
	// ErrInvalidTimeframe is returned when the timeframe is not week, month or year.
	ErrInvalidTimeframe = schedule.ErrInvalidTimeframe

	// ErrEmptyPillarSet is returned when no non-blank pillar was supplied.
	ErrEmptyPillarSet = schedule.ErrEmptyPillarSet

	// ErrInvalidStartDate is returned for a missing or unparsable start date.
	ErrInvalidStartDate = errors.New("invalid start date")

	// ErrFieldTooLong is returned when a label or prompt field exceeds its
	// width. The wrapped message names the field.
	ErrFieldTooLong = errors.New("field too long")

	// ErrInvalidOwner is returned when a batch has no owner.
	ErrInvalidOwner = errors.New("owner is required")

	// ErrDailyLimitReached aborts a whole batch for a free owner that already
	// used today's allowance.
	ErrDailyLimitReached = quota.ErrDailyLimitReached
)

// Per-slot errors. They end up in SlotReport.Error, never in Run's error.
var (
	// ErrCorrelationWrite means the idea was stored but its calendar entry
	// could not be written.
	ErrCorrelationWrite = errors.New("calendar entry write failed")

	// ErrSlugAllocation means no free slug could be written for an idea.
	ErrSlugAllocation = errors.New("slug allocation failed")
)

// Idea and calendar errors.
var (
	// ErrIdeaNotFound indicates that the idea does not exist or is not
	// visible to the current user.
	ErrIdeaNotFound = errors.New("idea not found")

	// ErrEntryNotFound indicates that the calendar entry does not exist or
	// belongs to another user.
	ErrEntryNotFound = errors.New("calendar entry not found")

	// ErrInvalidDateRange is returned when a range bound is not YYYY-MM-DD or
	// from is after to.
	ErrInvalidDateRange = errors.New("invalid date range")
)
