// Package auth owns OAuth access-token lifecycle for an external provider:
// proactive refresh ahead of expiry and forced refresh after a 401.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	retrygo "github.com/avast/retry-go/v4"

	"github.com/mwhitford/ringlead/internal/retry"
)

// safetyMargin is subtracted from the provider-reported expires_in so a token
// is refreshed before it can expire mid-request.
const safetyMargin = 60 * time.Second

// refreshConfig is the ladder for token refresh itself: 1s, 2s, 4s.
var refreshConfig = retry.Config{Attempts: 3, BaseDelay: time.Second, Multiplier: 2}

// RefreshFunc exchanges provider credentials for a fresh access token and its
// expires_in lifetime.
type RefreshFunc func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// Error means token acquisition or refresh was exhausted. It is fatal to the
// run that hits it.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s auth failed: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Manager holds one provider's access token plus an expiry estimate.
// Refresh is serialized behind a mutex so concurrent callers never trigger
// duplicate refreshes.
type Manager struct {
	provider string
	refresh  RefreshFunc
	logger   *slog.Logger

	now func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewManager creates a token manager for the named provider. No token is
// fetched until the first Token call.
func NewManager(provider string, refresh RefreshFunc, logger *slog.Logger) *Manager {
	return &Manager{
		provider: provider,
		refresh:  refresh,
		logger:   logger,
		now:      time.Now,
	}
}

// Token returns a usable bearer token, refreshing first when the held token
// is empty or past its expiry estimate. Returns *Error when refresh attempts
// are exhausted.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && m.now().Before(m.expiresAt) {
		return m.token, nil
	}
	return m.refreshLocked(ctx)
}

// ForceRefresh discards the held token and fetches a new one. Callers invoke
// this exactly once after a 401 on an API call, then retry that call.
func (m *Manager) ForceRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = ""
	return m.refreshLocked(ctx)
}

func (m *Manager) refreshLocked(ctx context.Context) (string, error) {
	var token string
	var expiresIn time.Duration

	err := retry.Do(func() error {
		var err error
		token, expiresIn, err = m.refresh(ctx)
		return err
	}, func(error) bool { return true }, refreshConfig, retrygo.Context(ctx))
	if err != nil {
		return "", &Error{Provider: m.provider, Err: err}
	}

	m.token = token
	m.expiresAt = m.now().Add(expiresIn - safetyMargin)
	m.logger.Debug("token refreshed", "provider", m.provider, "expires_in", expiresIn)
	return m.token, nil
}
