// Package quota decides how much of a batch an owner may generate.
//
// The gate is an explicit call that receives every input it needs (owner,
// requested slot count, current time) and reads tier and usage from a
// UserService. It holds no per-owner state between calls.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDailyLimitReached aborts a whole batch before any generation happens.
var ErrDailyLimitReached = errors.New("daily limit reached")

// Tier is an owner's subscription level.
type Tier string

const (
	Free     Tier = "free"
	Premium  Tier = "premium"
	Lifetime Tier = "lifetime"
)

// ParseTier maps a stored tier string to a Tier. Unknown values are Free.
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case Premium:
		return Premium
	case Lifetime:
		return Lifetime
	default:
		return Free
	}
}

// Paid reports whether t is a paying tier.
func (t Tier) Paid() bool { return t == Premium || t == Lifetime }

// UserService is the narrow contract the gate needs from the user store.
type UserService interface {
	GetTier(ctx context.Context, ownerID string) (Tier, error)
	CountGeneratedSince(ctx context.Context, ownerID string, since time.Time) (int64, error)
}

// Policy holds the tunables of the gate.
type Policy struct {
	DailyLimitEnabled bool
	FreeDailyLimit    int
	PaidHardCap       int
	Location          *time.Location // where "today" starts; UTC when nil
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		DailyLimitEnabled: true,
		FreeDailyLimit:    1,
		PaidHardCap:       100,
		Location:          time.UTC,
	}
}

// Decision is the outcome of a successful check.
type Decision struct {
	Tier           Tier
	Requested      int
	Allowed        int  // number of slots the batch may generate
	Collapsed      bool // free tier reduced the batch to a single slot
	GeneratedToday int64
}

// Gate enforces Policy for owners resolved through Users.
type Gate struct {
	Users  UserService
	Policy Policy
}

// NewGate builds a gate, filling zero policy fields with defaults.
func NewGate(users UserService, p Policy) *Gate {
	def := DefaultPolicy()
	if p.FreeDailyLimit <= 0 {
		p.FreeDailyLimit = def.FreeDailyLimit
	}
	if p.PaidHardCap <= 0 {
		p.PaidHardCap = def.PaidHardCap
	}
	if p.Location == nil {
		p.Location = def.Location
	}
	return &Gate{Users: users, Policy: p}
}

// Check resolves the owner's tier and today's usage and returns how many of
// requested slots may run. Free owners over their daily allowance get
// ErrDailyLimitReached; lookup failures are returned wrapped.
func (g *Gate) Check(ctx context.Context, ownerID string, requested int, now time.Time) (Decision, error) {
	tier, err := g.Users.GetTier(ctx, ownerID)
	if err != nil {
		return Decision{}, fmt.Errorf("quota: tier lookup: %w", err)
	}
	d := Decision{Tier: tier, Requested: requested}
	if requested <= 0 {
		return d, nil
	}

	if tier.Paid() {
		d.Allowed = min(requested, g.Policy.PaidHardCap)
		return d, nil
	}

	if g.Policy.DailyLimitEnabled {
		n, err := g.Users.CountGeneratedSince(ctx, ownerID, StartOfDay(now, g.Policy.Location))
		if err != nil {
			return Decision{}, fmt.Errorf("quota: usage lookup: %w", err)
		}
		d.GeneratedToday = n
		if n >= int64(g.Policy.FreeDailyLimit) {
			return d, ErrDailyLimitReached
		}
	}
	d.Allowed = 1
	d.Collapsed = requested > 1
	return d, nil
}

// StartOfDay returns local midnight of now in loc (UTC when loc is nil).
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
