// Package slug derives URL-safe identifiers from titles and allocates them
// without collisions.
//
// The read-time lookup performed by Allocator.Next only narrows the race; the
// unique index in the store remains the final authority, and callers retry
// with a fresh Next when the insert reports a conflict.
package slug

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is used when a title normalizes to nothing.
const Fallback = "idea"

// MaxLen caps the base slug length (before any numeric suffix).
const MaxLen = 80

// Normalize lowercases title, strips accents, turns whitespace runs into a
// single hyphen, drops everything outside [a-z0-9-], collapses repeated
// hyphens and trims them from both ends. The result is capped at MaxLen and
// is never empty.
func Normalize(title string) string {
	folded, _, err := transform.String(accentFolder(), title)
	if err != nil {
		folded = title
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	lastHyphen := true // suppresses leading hyphens
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == '-' || unicode.IsSpace(r):
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if len(s) > MaxLen {
		s = strings.TrimRight(s[:MaxLen], "-")
	}
	if s == "" {
		return Fallback
	}
	return s
}

// accentFolder decomposes runes and drops combining marks ("é" -> "e").
// transform.Transformer values are stateful, so each call gets its own chain.
func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// WithSuffix returns base for n == 0 and base-n otherwise.
func WithSuffix(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// Usage describes how a base slug is occupied in the store.
type Usage struct {
	// BaseTaken reports whether base itself is held.
	BaseTaken bool
	// MaxSuffix is the largest n for which base-n is held, 0 when none.
	MaxSuffix int
}

// Store reports the occupancy of a base slug in a single lookup.
type Store interface {
	SlugUsage(ctx context.Context, base string) (Usage, error)
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, base string) (Usage, error)

// SlugUsage implements Store.
func (f StoreFunc) SlugUsage(ctx context.Context, base string) (Usage, error) { return f(ctx, base) }

// ParseSuffix returns n when s is base-n with n a positive decimal number.
// Candidates such as "base-tips" from a longer title are rejected.
func ParseSuffix(base, s string) (int, bool) {
	rest, ok := strings.CutPrefix(s, base+"-")
	if !ok || rest == "" || len(rest) > 18 {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Allocator hands out slugs that are free in the store and have not been
// issued by this allocator before. Use one allocator per batch.
type Allocator struct {
	store Store

	mu     sync.Mutex
	issued map[string]struct{}
	last   map[string]int // highest suffix issued per base
}

// NewAllocator returns an allocator backed by store.
func NewAllocator(store Store) *Allocator {
	return &Allocator{
		store:  store,
		issued: make(map[string]struct{}),
		last:   make(map[string]int),
	}
}

// Next returns base when it is free in the store and not yet issued.
// Otherwise it returns base-(m+1), where m is the larger of the highest
// suffix in the store and the highest suffix this allocator has issued.
// Holes below m are not reused. The result is recorded as issued before
// returning, so two calls never yield the same slug.
func (a *Allocator) Next(ctx context.Context, title string) (string, error) {
	base := Normalize(title)

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	u, err := a.store.SlugUsage(ctx, base)
	if err != nil {
		return "", err
	}
	if _, seen := a.issued[base]; !seen && !u.BaseTaken {
		a.issued[base] = struct{}{}
		return base, nil
	}
	n := max(u.MaxSuffix, a.last[base]) + 1
	a.last[base] = n
	cand := WithSuffix(base, n)
	a.issued[cand] = struct{}{}
	return cand, nil
}
