package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-ideas-backend/internal/observability"
)

// Outcome labels a single attempt or a whole generation.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeRetry     Outcome = "retry"
	OutcomeExhausted Outcome = "exhausted"
)

// Attempt records one provider call.
type Attempt struct {
	N       int           // 0-based attempt number
	Model   string        // model used for this attempt
	Outcome Outcome       // success, retry (another attempt follows) or exhausted
	Err     error         // nil on success
	Backoff time.Duration // wait before the next attempt (retry only)
	Elapsed time.Duration // time spent in the provider call
}

// Result is what Generate returns. It is never nil-like: on exhaustion
// Payload is empty and Outcome is OutcomeExhausted.
type Result struct {
	Outcome  Outcome
	Payload  Payload
	Model    string // model that produced Payload
	Attempts []Attempt
}

// Err returns nil on success and an ErrGenerationExhausted-wrapped error
// (with the last attempt's cause) otherwise.
func (r Result) Err() error {
	if r.Outcome == OutcomeSuccess {
		return nil
	}
	var last error
	if n := len(r.Attempts); n > 0 {
		last = r.Attempts[n-1].Err
	}
	if last == nil {
		return ErrGenerationExhausted
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrGenerationExhausted, len(r.Attempts), last)
}

// Options tune Client. Zero values fall back to DefaultOptions.
type Options struct {
	PrimaryModel    string
	SecondaryModel  string // used from the second attempt on; PrimaryModel when empty
	MaxRetries      int    // retries after the first attempt; negative means none
	BackoffBase     time.Duration
	CallTimeout     time.Duration
	Temperature     float64
	MaxOutputTokens int
	Limiter         *rate.Limiter // optional process-wide pacing of provider calls
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		PrimaryModel:    "gpt-4o",
		SecondaryModel:  "gpt-4o-mini",
		MaxRetries:      2,
		BackoffBase:     time.Second,
		CallTimeout:     60 * time.Second,
		Temperature:     0.8,
		MaxOutputTokens: 1200,
	}
}

// Client drives one Provider with retries and model degradation.
type Client struct {
	provider Provider
	opts     Options

	// sleep waits d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient returns a Client for p.
func NewClient(p Provider, opts Options) *Client {
	def := DefaultOptions()
	if opts.PrimaryModel == "" {
		opts.PrimaryModel = def.PrimaryModel
	}
	if opts.SecondaryModel == "" {
		opts.SecondaryModel = opts.PrimaryModel
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = def.CallTimeout
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = def.MaxOutputTokens
	}
	return &Client{provider: p, opts: opts, sleep: sleepCtx}
}

// Options returns the effective options.
func (c *Client) Options() Options { return c.opts }

// ModelFor returns the model used for attempt n.
func (c *Client) ModelFor(n int) string {
	if n == 0 {
		return c.opts.PrimaryModel
	}
	return c.opts.SecondaryModel
}

// BackoffFor returns the wait after failed attempt n: BackoffBase * 2^n.
func (c *Client) BackoffFor(n int) time.Duration {
	return c.opts.BackoffBase << uint(n)
}

// Generate produces one payload for p. It never panics on provider errors and
// never returns them directly; inspect Result.Outcome or call Result.Err.
// Backoff sleeps honor ctx; a cancelled ctx ends the machine as exhausted.
func (c *Client) Generate(ctx context.Context, p Params) Result {
	ctx, span := otel.Tracer("generation").Start(ctx, "Client.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("gen.pillar", p.Pillar),
		attribute.Int("gen.slot", p.SlotIndex),
	)
	log := zerolog.Ctx(ctx)

	system, user := BuildPrompt(p)
	var res Result

	for n := 0; ; n++ {
		model := c.ModelFor(n)
		start := time.Now()
		payload, err := c.attempt(ctx, Request{
			System:      system,
			User:        user,
			Model:       model,
			Temperature: c.opts.Temperature,
			MaxTokens:   c.opts.MaxOutputTokens,
		})
		at := Attempt{N: n, Model: model, Err: err, Elapsed: time.Since(start)}

		if err == nil {
			at.Outcome = OutcomeSuccess
			res.Attempts = append(res.Attempts, at)
			res.Outcome, res.Payload, res.Model = OutcomeSuccess, payload, model
			observability.ObserveProviderAttempt(model, string(OutcomeSuccess), at.Elapsed)
			span.SetAttributes(attribute.Int("gen.attempts", len(res.Attempts)), attribute.String("gen.model", model))
			return res
		}

		if n >= c.opts.MaxRetries || ctx.Err() != nil {
			at.Outcome = OutcomeExhausted
			res.Attempts = append(res.Attempts, at)
			res.Outcome = OutcomeExhausted
			observability.ObserveProviderAttempt(model, string(OutcomeExhausted), at.Elapsed)
			log.Warn().Err(err).Str("model", model).Int("attempts", len(res.Attempts)).Msg("generation exhausted")
			span.SetStatus(codes.Error, "exhausted")
			span.RecordError(err)
			return res
		}

		at.Outcome = OutcomeRetry
		at.Backoff = c.BackoffFor(n)
		res.Attempts = append(res.Attempts, at)
		observability.ObserveProviderAttempt(model, string(OutcomeRetry), at.Elapsed)
		log.Debug().Err(err).Str("model", model).Int("attempt", n).Dur("backoff", at.Backoff).Msg("generation retry")

		if err := c.sleep(ctx, at.Backoff); err != nil {
			res.Attempts[len(res.Attempts)-1].Outcome = OutcomeExhausted
			res.Outcome = OutcomeExhausted
			span.SetStatus(codes.Error, "cancelled during backoff")
			return res
		}
	}
}

// attempt performs one paced, time-limited provider call and parses it.
func (c *Client) attempt(ctx context.Context, req Request) (Payload, error) {
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return Payload{}, fmt.Errorf("%w: rate limiter: %w", ErrProviderTransient, err)
		}
	}

	cctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	raw, err := c.provider.Complete(cctx, req)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrProviderTransient, err)
	}
	return ParseResponse(raw)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsExhausted reports whether err stems from an exhausted generation.
func IsExhausted(err error) bool { return errors.Is(err, ErrGenerationExhausted) }
