package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/hackgods/registry-scheduling/internal/domain"
	"github.com/hackgods/registry-scheduling/internal/metrics"
)

const (
	DefaultTokenTTL = time.Hour
	// RefreshMargin is subtracted from ExpiresAt when deciding to refresh.
	RefreshMargin = 5 * time.Minute
)

// Token is an opaque registry session credential.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Valid reports whether the token may still be presented at now.
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt.Add(-RefreshMargin))
}

// TokenSource calls the registry token endpoint. A zero ttl means the
// registry did not say.
type TokenSource interface {
	IssueToken(ctx context.Context) (value string, ttl time.Duration, err error)
}

// TokenManager caches the session token and refreshes it before expiry.
// Concurrent callers share a single in-flight refresh.
type TokenManager struct {
	source  TokenSource
	now     func() time.Time
	logger  zerolog.Logger
	metrics *metrics.SchedulingMetrics

	mu      sync.Mutex
	current *Token
	group   singleflight.Group
}

func NewTokenManager(source TokenSource, logger zerolog.Logger, m *metrics.SchedulingMetrics) *TokenManager {
	return &TokenManager{
		source:  source,
		now:     time.Now,
		logger:  logger.With().Str("component", "registry_token").Logger(),
		metrics: m,
	}
}

// Token returns a usable token, refreshing it when forced, missing or
// inside the refresh margin. A forced caller that joins a refresh started
// before its own call waits for one more.
func (m *TokenManager) Token(ctx context.Context, forceRefresh bool) (Token, error) {
	if !forceRefresh {
		if tok, ok := m.cached(); ok {
			return tok, nil
		}
	}

	called := m.now()
	for {
		res, err := m.join(ctx)
		if err != nil {
			return Token{}, err
		}
		if forceRefresh && res.started.Before(called) {
			forceRefresh = false
			continue
		}
		return res.token, nil
	}
}

type refreshResult struct {
	token   Token
	started time.Time
}

func (m *TokenManager) join(ctx context.Context) (refreshResult, error) {
	ch := m.group.DoChan("token", func() (any, error) {
		started := m.now()
		// the refresh outlives a single caller's cancellation
		tok, err := m.refresh(context.WithoutCancel(ctx))
		return refreshResult{token: tok, started: started}, err
	})

	select {
	case <-ctx.Done():
		return refreshResult{}, &domain.AuthError{Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return refreshResult{}, res.Err
		}
		return res.Val.(refreshResult), nil
	}
}

// Clear drops the cached token; the next call refreshes.
func (m *TokenManager) Clear() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

func (m *TokenManager) cached() (Token, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.Valid(m.now()) {
		return Token{}, false
	}
	return *m.current, true
}

func (m *TokenManager) refresh(ctx context.Context) (Token, error) {
	value, ttl, err := m.source.IssueToken(ctx)
	if err == nil && value == "" {
		err = errors.New("token endpoint returned an empty token")
	}
	if err != nil {
		m.metrics.ObserveTokenRefresh("error")
		m.logger.Error().Err(err).Msg("registry token refresh failed")
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			return Token{}, authErr
		}
		return Token{}, &domain.AuthError{Err: err}
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := m.now()
	tok := Token{Value: value, IssuedAt: now, ExpiresAt: now.Add(ttl)}

	m.mu.Lock()
	m.current = &tok
	m.mu.Unlock()

	m.metrics.ObserveTokenRefresh("ok")
	m.logger.Debug().Time("expires_at", tok.ExpiresAt).Msg("registry token refreshed")
	return tok, nil
}

// TransportTokenSource issues tokens through the registry GetToken method.
type TransportTokenSource struct {
	transport Transport
	login     string
	password  string
}

func NewTransportTokenSource(t Transport, login, password string) *TransportTokenSource {
	return &TransportTokenSource{transport: t, login: login, password: password}
}

func (s *TransportTokenSource) IssueToken(ctx context.Context) (string, time.Duration, error) {
	var resp tokenResponse
	req := tokenRequest{Login: s.login, Password: s.password}
	if err := s.transport.Call(ctx, methodToken, "", req, &resp); err != nil {
		return "", 0, err
	}
	if err := resp.failure(methodToken); err != nil {
		return "", 0, err
	}

	var ttl time.Duration
	if resp.ExpiresIn != nil && *resp.ExpiresIn > 0 {
		ttl = time.Duration(*resp.ExpiresIn) * time.Second
	}
	return resp.Token, ttl, nil
}
