package collection

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/arcanaland/grimoire/internal/observability"
	"github.com/rs/zerolog/log"
)

// Backoff implements exponential backoff with optional jitter.
type Backoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    float64

	mu   sync.Mutex
	rand *rand.Rand
}

// NewBackoff returns a Backoff initialized with the supplied parameters.
func NewBackoff(base, max time.Duration, jitter float64) *Backoff {
	if base <= 0 {
		base = 25 * time.Millisecond
	}
	if max <= 0 || max < base {
		max = base
	}
	if jitter < 0 {
		jitter = 0
	}
	return &Backoff{
		BaseDelay: base,
		MaxDelay:  max,
		Jitter:    jitter,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ForAttempt returns the backoff duration for the given attempt (0-indexed).
func (b *Backoff) ForAttempt(attempt int) time.Duration {
	if attempt <= 0 {
		return b.addJitter(b.BaseDelay)
	}
	if attempt > 30 {
		attempt = 30
	}
	delay := time.Duration(float64(b.BaseDelay) * math.Pow(2, float64(attempt)))
	if delay <= 0 || delay > b.MaxDelay {
		delay = b.MaxDelay
	}
	return b.addJitter(delay)
}

func (b *Backoff) addJitter(delay time.Duration) time.Duration {
	if b.Jitter == 0 || delay <= 0 {
		return delay
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	factor := 1 + (b.rand.Float64()*2-1)*math.Min(b.Jitter, 1)
	if factor < 0 {
		factor = 0
	}
	return time.Duration(float64(delay) * factor)
}

// retry runs fn until it succeeds, fails with a non-IOError, or the attempt
// budget is spent.
func (s *Store) retry(op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if attempt > 0 {
			observability.RecordStoreRetry(op)
			s.sleep(s.backoff.ForAttempt(attempt - 1))
		}
		err = fn()
		var ioErr *IOError
		if err == nil || !errors.As(err, &ioErr) {
			return err
		}
		log.Warn().
			Str("op", op).
			Str("path", ioErr.Path).
			Int("attempt", attempt+1).
			Int("max_attempts", s.attempts).
			Err(ioErr.Err).
			Msg("store io failure")
	}
	return err
}
