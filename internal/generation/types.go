// Package generation turns generation parameters into a structured idea
// payload using an external text provider that is assumed to be slow,
// occasionally failing and occasionally malformed.
//
// Client.Generate runs a small state machine per slot:
//
//	Attempting(model, n) -> Success | Retry(nextModel) | Exhausted
//
// and reports every attempt as data in Result. When the client is exhausted
// the caller can substitute Fallback, which is pure and never fails.
package generation

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy of the package.
var (
	// ErrProviderTransient wraps transport/provider failures. Retried inside
	// Client and never returned past it except as the cause of exhaustion.
	ErrProviderTransient = errors.New("provider transient error")
	// ErrMalformedResponse means no usable JSON payload could be recovered
	// from the provider text, even after repair.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrGenerationExhausted is reported by Result.Err once every attempt failed.
	ErrGenerationExhausted = errors.New("generation exhausted")
)

// Params are the inputs of one generation.
type Params struct {
	Category     string
	Subcategory  string
	LengthBucket string
	Focus        string
	Style        string
	Tone         string
	Pillar       string
	Date         time.Time
	SlotIndex    int // selects the title template hint
}

// Payload is the structured idea a provider (or Fallback) returns.
type Payload struct {
	Title               string   `json:"title"`
	Outline             []string `json:"outline"`
	MidMention          string   `json:"midMention"`
	EndMention          string   `json:"endMention"`
	ThumbnailIdea       string   `json:"thumbnailIdea"`
	InteractionQuestion string   `json:"interactionQuestion"`
	Category            string   `json:"category"`
	Subcategory         string   `json:"subcategory"`
	LengthBucket        string   `json:"lengthBucket"`
}

// Request is one provider call.
type Request struct {
	System      string
	User        string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Provider is the contract of the external generative text service: raw text
// in, raw text out. Implementations must honor ctx for cancellation.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (string, error)

// Complete implements Provider.
func (f ProviderFunc) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }
