package engine

import (
	"context"
	"time"
)

// Cooldown windows. Flows that also move recordings hold the longer window
// because their per-call work is slower.
const (
	CooldownWithRecordings = 10 * time.Second
	CooldownDefault        = 5 * time.Second
)

// Suppressor is a per-phone-key cooldown gate. The CRM search-then-create is
// not atomic, so same-key processing inside a short window is serialized by
// blocking the caller until the cooldown elapses. Entries live for one run
// and are never persisted.
type Suppressor struct {
	cooldown time.Duration
	seen     map[string]time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSuppressor creates a gate with the given cooldown window.
func NewSuppressor(cooldown time.Duration) *Suppressor {
	return &Suppressor{
		cooldown: cooldown,
		seen:     make(map[string]time.Time),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Gate blocks until phoneKey's cooldown has elapsed, then records the key as
// seen. Returns whether a wait happened, so the caller can count the
// suppressed duplicate. This is best-effort backpressure, not a correctness
// guarantee.
func (s *Suppressor) Gate(ctx context.Context, phoneKey string) (bool, error) {
	waited := false
	if last, ok := s.seen[phoneKey]; ok {
		if remaining := s.cooldown - s.now().Sub(last); remaining > 0 {
			if err := s.sleep(ctx, remaining); err != nil {
				return false, err
			}
			waited = true
		}
	}
	s.seen[phoneKey] = s.now()
	return waited, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
