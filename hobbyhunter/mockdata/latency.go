package mockdata

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Latency simulates network delay within [Min, Max]. A nil *Latency never
// waits.
type Latency struct {
	Min time.Duration
	Max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewLatency(lo, hi time.Duration) *Latency {
	if hi < lo {
		hi = lo
	}
	return &Latency{
		Min: lo,
		Max: hi,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// DefaultLatency is used for ordinary mock calls.
func DefaultLatency() *Latency {
	return NewLatency(100*time.Millisecond, 400*time.Millisecond)
}

// RevealLatency paces pack openings.
func RevealLatency() *Latency {
	return NewLatency(1200*time.Millisecond, 2*time.Second)
}

func (l *Latency) Next() time.Duration {
	if l == nil || l.Max <= 0 {
		return 0
	}
	span := l.Max - l.Min
	if span <= 0 {
		return l.Min
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Min + time.Duration(l.rng.Int63n(int64(span)+1))
}

// Wait blocks for the next simulated delay or until ctx is done.
func (l *Latency) Wait(ctx context.Context) error {
	d := l.Next()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
