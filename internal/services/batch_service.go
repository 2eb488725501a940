// Package services – BatchService
//
// This file implements the batch orchestrator. A batch is validated, checked
// against the owner's quota once, expanded into dated slots and then filled
// one slot at a time:
//
//	Generate -> (Exhausted? Fallback) -> Persist
//
// Slot failures are logged and the slot is skipped. Only input errors and the
// daily-limit abort are returned to the caller; everything else ends up in
// the per-slot report of a best-effort result.
//
// Cancellation: the slot in flight always completes on a context detached
// from the caller's cancellation, so no idea is left without its calendar
// entry. The loop then stops and returns what it has.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-ideas-backend/internal/domain"
	"github.com/tbourn/go-ideas-backend/internal/generation"
	"github.com/tbourn/go-ideas-backend/internal/observability"
	"github.com/tbourn/go-ideas-backend/internal/quota"
	"github.com/tbourn/go-ideas-backend/internal/schedule"
	"github.com/tbourn/go-ideas-backend/internal/slug"
	"github.com/tbourn/go-ideas-backend/internal/sysutil"
)

// BatchJob is one batch request. It is not persisted.
type BatchJob struct {
	Timeframe    string
	StartDate    time.Time
	Pillars      []string
	Category     string
	Subcategory  string
	LengthBucket string
	Focus        string
	Style        string
	Tone         string
}

// SlotStatus is the outcome of one slot.
type SlotStatus string

const (
	// SlotGenerated: provider payload stored and scheduled.
	SlotGenerated SlotStatus = "generated"
	// SlotFallback: provider exhausted, template payload stored and scheduled.
	SlotFallback SlotStatus = "fallback"
	// SlotUnscheduled: idea stored, calendar entry write failed.
	SlotUnscheduled SlotStatus = "unscheduled"
	// SlotSkipped: nothing stored for the slot.
	SlotSkipped SlotStatus = "skipped"
)

// Succeeded reports whether an idea was persisted for the slot.
func (s SlotStatus) Succeeded() bool { return s != SlotSkipped }

// SlotReport describes what happened to one slot.
type SlotReport struct {
	Index    int        `json:"index"`
	Date     string     `json:"date"`
	Pillar   string     `json:"pillar"`
	Status   SlotStatus `json:"status"`
	Model    string     `json:"model,omitempty"`
	Attempts int        `json:"attempts"`
	IdeaID   string     `json:"idea_id,omitempty"`
	Slug     string     `json:"slug,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// BatchResult is the best-effort outcome of a batch.
//
// RequestedCount is the number of slots the batch set out to fill after the
// quota decision (1 for free owners). TimeframeSlots is what the timeframe
// alone would have produced.
type BatchResult struct {
	Tier           string                 `json:"tier"`
	Collapsed      bool                   `json:"collapsed"`
	TimeframeSlots int                    `json:"timeframe_slots"`
	RequestedCount int                    `json:"requested_count"`
	SucceededCount int                    `json:"count"`
	StoppedEarly   bool                   `json:"stopped_early"`
	Ideas          []domain.Idea          `json:"ideas"`
	Entries        []domain.CalendarEntry `json:"entries"`
	Slots          []SlotReport           `json:"slots"`
}

// Generator produces one payload per call; *generation.Client implements it.
type Generator interface {
	Generate(ctx context.Context, p generation.Params) generation.Result
}

// BatchService runs batches.
type BatchService struct {
	Gate       *quota.Gate
	Generator  Generator
	Correlator *Correlator
	Slugs      slug.Store

	// Timeout bounds a whole batch; zero means none. Completed slots are
	// returned when it elapses.
	Timeout time.Duration
}

// NewBatchService wires a BatchService on db.
func NewBatchService(db *gorm.DB, gate *quota.Gate, gen Generator, timeout time.Duration) *BatchService {
	return &BatchService{
		Gate:       gate,
		Generator:  gen,
		Correlator: NewCorrelator(db),
		Slugs:      GormWriter{DB: db},
		Timeout:    timeout,
	}
}

// Run validates job, consults the quota gate and fills the resulting slots
// sequentially. now is used for the daily quota window.
func (s *BatchService) Run(ctx context.Context, ownerID string, job BatchJob, now time.Time) (*BatchResult, error) {
	tr := otel.Tracer("services/BatchService")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("batch.timeframe", job.Timeframe),
			attribute.Int("batch.pillars", len(job.Pillars)),
		),
	)
	defer span.End()

	slots, err := s.validate(ownerID, job)
	if err != nil {
		observability.ObserveBatch("unknown", "invalid")
		return nil, err
	}

	decision, err := s.Gate.Check(ctx, ownerID, len(slots), now)
	if err != nil {
		observability.ObserveBatch(sysutil.FirstNonEmpty(string(decision.Tier), "unknown"), "rejected")
		span.SetStatus(codes.Error, "quota")
		return nil, err
	}
	slots = slots[:decision.Allowed]
	span.SetAttributes(
		attribute.String("user.tier", string(decision.Tier)),
		attribute.Int("batch.slots", len(slots)),
	)

	log := zerolog.Ctx(ctx).With().
		Str("owner", ownerID).
		Str("tier", string(decision.Tier)).
		Logger()
	log.Info().
		Str("timeframe", job.Timeframe).
		Int("slots", len(slots)).
		Bool("collapsed", decision.Collapsed).
		Msg("batch started")

	res := &BatchResult{
		Tier:           string(decision.Tier),
		Collapsed:      decision.Collapsed,
		TimeframeSlots: decision.Requested,
		RequestedCount: len(slots),
		Ideas:          []domain.Idea{},
		Entries:        []domain.CalendarEntry{},
		Slots:          make([]SlotReport, 0, len(slots)),
	}

	var deadline time.Time
	if s.Timeout > 0 {
		deadline = time.Now().Add(s.Timeout)
	}
	alloc := slug.NewAllocator(s.Slugs)
	slotCtx := log.WithContext(context.WithoutCancel(ctx))

	for i, slot := range slots {
		if stop := stopReason(ctx, deadline); stop != "" {
			log.Warn().Str("reason", stop).Int("done", i).Int("total", len(slots)).Msg("batch stopped early")
			res.StoppedEarly = true
			for _, rest := range slots[i:] {
				res.Slots = append(res.Slots, SlotReport{
					Index: rest.Index, Date: rest.DateString(), Pillar: rest.Pillar,
					Status: SlotSkipped, Error: stop,
				})
				observability.ObserveSlot(string(SlotSkipped))
			}
			break
		}

		rep, placement := s.runSlot(slotCtx, alloc, ownerID, job, slot)
		res.Slots = append(res.Slots, rep)
		observability.ObserveSlot(string(rep.Status))
		if placement == nil {
			continue
		}
		res.SucceededCount++
		res.Ideas = append(res.Ideas, *placement.Idea)
		if placement.Entry != nil {
			res.Entries = append(res.Entries, *placement.Entry)
		}
	}

	outcome := "completed"
	if res.SucceededCount < res.RequestedCount {
		outcome = "partial"
	}
	observability.ObserveBatch(res.Tier, outcome)
	span.SetAttributes(attribute.Int("batch.succeeded", res.SucceededCount))
	log.Info().
		Int("requested", res.RequestedCount).
		Int("succeeded", res.SucceededCount).
		Bool("stopped_early", res.StoppedEarly).
		Msg("batch finished")
	return res, nil
}

// validate checks the job and expands it into slots.
func (s *BatchService) validate(ownerID string, job BatchJob) ([]schedule.Slot, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrInvalidOwner
	}
	tf, err := schedule.ParseTimeframe(job.Timeframe)
	if err != nil {
		return nil, err
	}
	if job.StartDate.IsZero() {
		return nil, ErrInvalidStartDate
	}
	if err := checkWidths(job); err != nil {
		return nil, err
	}
	return schedule.Expand(tf, job.StartDate, job.Pillars)
}

// MaxPromptFieldLen caps focus, style and tone, which only reach the prompt.
const MaxPromptFieldLen = 500

type widthCheck struct {
	name  string
	value string
	max   int
}

// checkWidths rejects caller fields that would not fit their columns.
func checkWidths(job BatchJob) error {
	checks := []widthCheck{
		{"category", job.Category, domain.MaxLabelLen},
		{"subcategory", job.Subcategory, domain.MaxLabelLen},
		{"length_bucket", job.LengthBucket, domain.MaxBucketLen},
		{"focus", job.Focus, MaxPromptFieldLen},
		{"style", job.Style, MaxPromptFieldLen},
		{"tone", job.Tone, MaxPromptFieldLen},
	}
	for _, p := range job.Pillars {
		checks = append(checks, widthCheck{"pillar", strings.TrimSpace(p), domain.MaxLabelLen})
	}
	for _, c := range checks {
		if utf8.RuneCountInString(c.value) > c.max {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrFieldTooLong, c.name, c.max)
		}
	}
	return nil
}

// runSlot fills one slot. A panic anywhere in the slot is turned into a
// skipped report.
func (s *BatchService) runSlot(ctx context.Context, alloc *slug.Allocator, ownerID string, job BatchJob, slot schedule.Slot) (rep SlotReport, placement *Placement) {
	rep = SlotReport{Index: slot.Index, Date: slot.DateString(), Pillar: slot.Pillar}
	log := zerolog.Ctx(ctx).With().Int("slot", slot.Index).Str("date", rep.Date).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("slot panicked; skipped")
			rep.Status, rep.Error, placement = SlotSkipped, fmt.Sprint("panic: ", r), nil
		}
	}()

	params := generation.Params{
		Category:     job.Category,
		Subcategory:  job.Subcategory,
		LengthBucket: job.LengthBucket,
		Focus:        job.Focus,
		Style:        job.Style,
		Tone:         job.Tone,
		Pillar:       slot.Pillar,
		Date:         slot.Date,
		SlotIndex:    slot.Index,
	}

	out := s.Generator.Generate(ctx, params)
	rep.Attempts = len(out.Attempts)
	g := Generated{Payload: out.Payload, Source: domain.SourceProvider, Model: out.Model}
	status := SlotGenerated
	if out.Outcome != generation.OutcomeSuccess {
		log.Warn().Err(out.Err()).Msg("provider exhausted; using fallback")
		g = Generated{Payload: generation.Fallback(params), Source: domain.SourceFallback}
		status = SlotFallback
	}
	rep.Model = g.Model

	// Category fields are caller-owned; the payload only echoes them.
	g.Payload.Category = sysutil.FirstNonEmpty(job.Category, g.Payload.Category)
	g.Payload.Subcategory = sysutil.FirstNonEmpty(job.Subcategory, g.Payload.Subcategory)
	g.Payload.LengthBucket = sysutil.FirstNonEmpty(job.LengthBucket, g.Payload.LengthBucket)

	p, err := s.Correlator.Persist(ctx, alloc, ownerID, slot, g)
	if err != nil {
		log.Error().Err(err).Msg("slot skipped")
		rep.Status, rep.Error = SlotSkipped, err.Error()
		return rep, nil
	}
	rep.IdeaID, rep.Slug = p.Idea.ID, p.Idea.Slug
	if !p.Scheduled() {
		rep.Status, rep.Error = SlotUnscheduled, p.CalendarErr.Error()
		return rep, p
	}
	rep.Status = status
	return rep, p
}

// stopReason returns why the loop must not start another slot, or "".
func stopReason(ctx context.Context, deadline time.Time) string {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "deadline exceeded"
		}
		return "cancelled"
	}
	if !deadline.IsZero() && !time.Now().Before(deadline) {
		return "batch timeout"
	}
	return ""
}
