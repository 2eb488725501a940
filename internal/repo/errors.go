package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that an idempotency record already exists for the
// given (user_id, scope, key) tuple.
var ErrDuplicate = errors.New("duplicate")

// ErrSlugConflict is returned by CreateIdea when another row already holds
// the slug. Callers re-allocate and try again.
var ErrSlugConflict = errors.New("slug conflict")

// isUniqueViolation maps driver-specific unique constraint failures to a bool.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations;
// Postgres reports SQLSTATE 23505 with a fixed message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value violates unique constraint")
}
