package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-ideas-backend/internal/quota"
	"github.com/tbourn/go-ideas-backend/internal/repo"
)

// UserDirectory is the local stand-in for the user/quota service. Owners
// seen for the first time are recorded as free tier.
type UserDirectory struct {
	DB     *gorm.DB
	Policy quota.Policy
}

// GetTier implements quota.UserService.
func (d *UserDirectory) GetTier(ctx context.Context, ownerID string) (quota.Tier, error) {
	u, err := repo.EnsureUser(ctx, d.DB, ownerID)
	if err != nil {
		return "", err
	}
	return quota.ParseTier(u.Tier), nil
}

// CountGeneratedSince implements quota.UserService. Deleted ideas count.
func (d *UserDirectory) CountGeneratedSince(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	return repo.CountIdeasSince(ctx, d.DB, ownerID, since)
}

// QuotaStatus summarizes an owner's allowance for today.
type QuotaStatus struct {
	Tier              string `json:"tier"`
	GeneratedToday    int64  `json:"generated_today"`
	DailyLimitEnabled bool   `json:"daily_limit_enabled"`
	DailyLimit        int    `json:"daily_limit,omitempty"`
	Remaining         int    `json:"remaining"`
	Unlimited         bool   `json:"unlimited"`
	MaxBatchSize      int    `json:"max_batch_size"`
}

// QuotaStatus reports tier, today's usage and what is left of it.
// Paid owners and free owners without a daily limit are Unlimited, and
// Remaining is then the per-batch cap.
func (d *UserDirectory) QuotaStatus(ctx context.Context, ownerID string, now time.Time) (*QuotaStatus, error) {
	tr := otel.Tracer("services/UserDirectory")
	ctx, span := tr.Start(ctx, "QuotaStatus",
		trace.WithAttributes(attribute.String("user.id", ownerID)),
	)
	defer span.End()

	p := d.policy()
	tier, err := d.GetTier(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	n, err := d.CountGeneratedSince(ctx, ownerID, quota.StartOfDay(now, p.Location))
	if err != nil {
		return nil, err
	}

	st := &QuotaStatus{
		Tier:              string(tier),
		GeneratedToday:    n,
		DailyLimitEnabled: p.DailyLimitEnabled,
	}
	switch {
	case tier.Paid():
		st.Unlimited = true
		st.MaxBatchSize = p.PaidHardCap
		st.Remaining = p.PaidHardCap
	case !p.DailyLimitEnabled:
		st.Unlimited = true
		st.MaxBatchSize = 1
		st.Remaining = 1
	default:
		st.DailyLimit = p.FreeDailyLimit
		st.MaxBatchSize = 1
		st.Remaining = max(0, p.FreeDailyLimit-int(n))
	}
	return st, nil
}

// policy returns the configured policy with zero fields defaulted the same
// way quota.NewGate does.
func (d *UserDirectory) policy() quota.Policy {
	return quota.NewGate(nil, d.Policy).Policy
}
