package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

const goodJSON = `{"title":"Five Tips","outline":["a","b","c"],"midMention":"m","endMention":"e","thumbnailIdea":"t","interactionQuestion":"q","category":"c","subcategory":"s","lengthBucket":"short"}`

// scripted replays responses in order; the last one repeats.
type scripted struct {
	mu     sync.Mutex
	steps  []step
	calls  int
	models []string
}

type step struct {
	raw string
	err error
}

func (s *scripted) Complete(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = append(s.models, req.Model)
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	return s.steps[i].raw, s.steps[i].err
}

func newTestClient(p Provider) (*Client, *[]time.Duration) {
	c := NewClient(p, Options{
		PrimaryModel:   "primary",
		SecondaryModel: "secondary",
		MaxRetries:     2,
		BackoffBase:    time.Second,
		CallTimeout:    time.Second,
	})
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return c, &slept
}

func TestGenerate_SuccessFirstAttempt(t *testing.T) {
	p := &scripted{steps: []step{{raw: goodJSON}}}
	c, slept := newTestClient(p)

	res := c.Generate(context.Background(), Params{Category: "c"})
	if res.Outcome != OutcomeSuccess || res.Err() != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Model != "primary" || len(res.Attempts) != 1 || res.Attempts[0].Outcome != OutcomeSuccess {
		t.Fatalf("unexpected attempts: %+v", res.Attempts)
	}
	if res.Payload.Title != "Five Tips" || len(res.Payload.Outline) != 3 {
		t.Fatalf("unexpected payload: %+v", res.Payload)
	}
	if len(*slept) != 0 {
		t.Fatalf("no backoff expected, got %v", *slept)
	}
}

func TestGenerate_RetryDegradesModel(t *testing.T) {
	p := &scripted{steps: []step{
		{err: errors.New("503")},
		{raw: "Sure! ```json\n" + goodJSON + "\n```"},
	}}
	c, slept := newTestClient(p)

	res := c.Generate(context.Background(), Params{})
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Model != "secondary" {
		t.Fatalf("second attempt should use secondary model, got %q", res.Model)
	}
	if got := p.models; len(got) != 2 || got[0] != "primary" || got[1] != "secondary" {
		t.Fatalf("models used: %v", got)
	}
	first := res.Attempts[0]
	if first.Outcome != OutcomeRetry || first.Backoff != time.Second || !errors.Is(first.Err, ErrProviderTransient) {
		t.Fatalf("unexpected first attempt: %+v", first)
	}
	if len(*slept) != 1 || (*slept)[0] != time.Second {
		t.Fatalf("slept %v; want [1s]", *slept)
	}
}

func TestGenerate_MalformedCountsAsRetry(t *testing.T) {
	p := &scripted{steps: []step{
		{raw: "I cannot help with that."},
		{raw: `{"title": 42}`},
		{raw: goodJSON},
	}}
	c, _ := newTestClient(p)

	res := c.Generate(context.Background(), Params{})
	if res.Outcome != OutcomeSuccess || len(res.Attempts) != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	for _, at := range res.Attempts[:2] {
		if !errors.Is(at.Err, ErrMalformedResponse) {
			t.Fatalf("expected malformed error, got %v", at.Err)
		}
	}
}

func TestGenerate_Exhausted_ExponentialBackoff(t *testing.T) {
	p := &scripted{steps: []step{{err: errors.New("boom")}}}
	c, slept := newTestClient(p)

	res := c.Generate(context.Background(), Params{})
	if res.Outcome != OutcomeExhausted {
		t.Fatalf("expected exhausted, got %+v", res)
	}
	if len(res.Attempts) != 3 || p.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d (calls=%d)", len(res.Attempts), p.calls)
	}
	wantModels := []string{"primary", "secondary", "secondary"}
	wantOutcomes := []Outcome{OutcomeRetry, OutcomeRetry, OutcomeExhausted}
	for i, at := range res.Attempts {
		if at.Model != wantModels[i] || at.Outcome != wantOutcomes[i] || at.N != i {
			t.Fatalf("attempt %d = %+v", i, at)
		}
	}
	if len(*slept) != 2 || (*slept)[0] != time.Second || (*slept)[1] != 2*time.Second {
		t.Fatalf("backoff %v; want [1s 2s]", *slept)
	}
	err := res.Err()
	if !errors.Is(err, ErrGenerationExhausted) || !errors.Is(err, ErrProviderTransient) || !IsExhausted(err) {
		t.Fatalf("Err() = %v", err)
	}
}

func TestGenerate_PerCallTimeout(t *testing.T) {
	block := ProviderFunc(func(ctx context.Context, _ Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	c := NewClient(block, Options{PrimaryModel: "p", MaxRetries: 0, CallTimeout: 20 * time.Millisecond})

	start := time.Now()
	res := c.Generate(context.Background(), Params{})
	if res.Outcome != OutcomeExhausted || len(res.Attempts) != 1 {
		t.Fatalf("expected single exhausted attempt, got %+v", res)
	}
	if !errors.Is(res.Attempts[0].Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", res.Attempts[0].Err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("per-call timeout not applied")
	}
}

func TestGenerate_CancelledDuringBackoff(t *testing.T) {
	p := &scripted{steps: []step{{err: errors.New("boom")}}}
	c := NewClient(p, Options{PrimaryModel: "p", MaxRetries: 2, BackoffBase: time.Hour, CallTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	res := c.Generate(ctx, Params{})
	if res.Outcome != OutcomeExhausted || p.calls != 1 {
		t.Fatalf("expected stop after first attempt, got %+v (calls=%d)", res, p.calls)
	}
	if res.Attempts[len(res.Attempts)-1].Outcome != OutcomeExhausted {
		t.Fatalf("last attempt should be marked exhausted: %+v", res.Attempts)
	}
}

func TestGenerate_LimiterPacesCalls(t *testing.T) {
	p := &scripted{steps: []step{{raw: goodJSON}}}
	c := NewClient(p, Options{PrimaryModel: "p", Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)})

	if res := c.Generate(context.Background(), Params{}); res.Outcome != OutcomeSuccess {
		t.Fatalf("first call should pass the limiter: %+v", res)
	}
	// Bucket is empty now; a short deadline makes the second wait fail.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res := c.Generate(ctx, Params{})
	if res.Outcome != OutcomeExhausted || !errors.Is(res.Attempts[0].Err, ErrProviderTransient) {
		t.Fatalf("expected limiter failure, got %+v", res)
	}
	if p.calls != 1 {
		t.Fatalf("provider should not be called when limiter refuses, calls=%d", p.calls)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(&scripted{}, Options{PrimaryModel: "only", MaxRetries: -1})
	o := c.Options()
	if o.SecondaryModel != "only" || o.MaxRetries != 0 || o.CallTimeout <= 0 || o.MaxOutputTokens <= 0 {
		t.Fatalf("defaults not applied: %+v", o)
	}
	if c.ModelFor(0) != "only" || c.ModelFor(5) != "only" {
		t.Fatalf("ModelFor mismatch")
	}
	c2 := NewClient(&scripted{}, Options{BackoffBase: 500 * time.Millisecond})
	if c2.BackoffFor(0) != 500*time.Millisecond || c2.BackoffFor(2) != 2*time.Second {
		t.Fatalf("BackoffFor mismatch")
	}
}
