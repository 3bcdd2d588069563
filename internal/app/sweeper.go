package app

import (
	"context"
	"log"
	"time"
)

// AttemptSweepStore deletes committed attempts older than a cutoff in a
// single atomic pass, returning how many were removed. The store-level
// atomicity stands in for per-user exclusion: a freshly committed attempt
// carries a recent timestamp and can never match an older cutoff.
type AttemptSweepStore interface {
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Sweeper removes committed attempts past their configured age. It only
// touches durable records, never in-flight sessions, and is idempotent:
// a second pass right after the first removes nothing.
type Sweeper struct {
	store AttemptSweepStore
}

func NewSweeper(store AttemptSweepStore) *Sweeper {
	return &Sweeper{store: store}
}

// Sweep deletes every attempt whose commit time is older than maxAge
// relative to now.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time, maxAge time.Duration) (int, error) {
	return s.store.DeleteAttemptsBefore(ctx, now.Add(-maxAge))
}

// Run performs a sweep every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := s.Sweep(ctx, now, maxAge)
			if err != nil {
				log.Printf("sweep attempts: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("expired %d attempt(s)", removed)
			}
		}
	}
}
