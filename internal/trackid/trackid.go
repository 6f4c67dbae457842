// Package trackid generates customer-facing tracking identifiers.
//
// An identifier is a two-letter prefix followed by a nine-digit suffix. The
// first candidate is derived from the clock (the low nine digits of the unix
// time in milliseconds). When that candidate is already taken the generator
// falls back to random suffixes drawn from crypto/rand, checking each against
// the store until one is free or the attempt budget is spent.
package trackid

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

// SuffixDigits is the fixed width of the numeric part.
const SuffixDigits = 9

// DefaultAttempts bounds how many candidates Next tries.
const DefaultAttempts = 6

// ErrExhausted is returned when every candidate collided.
var ErrExhausted = errors.New("trackid: no free identifier after retries")

var suffixMod = big.NewInt(1_000_000_000)

// ExistsFunc reports whether id is already in use.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// Generator issues tracking identifiers with a fixed prefix.
type Generator struct {
	Prefix   string
	Attempts int

	// Now and Rand are replaceable for tests.
	Now  func() time.Time
	Rand func() (int64, error)
}

// New returns a Generator for prefix (upper-cased).
func New(prefix string) *Generator {
	return &Generator{Prefix: strings.ToUpper(prefix), Attempts: DefaultAttempts}
}

// FromTime returns the clock-derived identifier for t. Same t, same result.
func FromTime(prefix string, t time.Time) string {
	ms := t.UnixMilli() % 1_000_000_000
	if ms < 0 {
		ms = -ms
	}
	return fmt.Sprintf("%s%0*d", prefix, SuffixDigits, ms)
}

// Next returns an identifier for which exists reports false.
// A nil exists accepts the first candidate.
func (g *Generator) Next(ctx context.Context, exists ExistsFunc) (string, error) {
	attempts := g.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var id string
		if i == 0 {
			id = FromTime(g.Prefix, g.now())
		} else {
			n, err := g.random()
			if err != nil {
				return "", err
			}
			id = fmt.Sprintf("%s%0*d", g.Prefix, SuffixDigits, n)
		}
		if exists == nil {
			return id, nil
		}
		taken, err := exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrExhausted
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Generator) random() (int64, error) {
	if g.Rand != nil {
		return g.Rand()
	}
	n, err := rand.Int(rand.Reader, suffixMod)
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

var pattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{9}$`)

// Valid reports whether s has the shape of a generated identifier.
func Valid(s string) bool { return pattern.MatchString(s) }
