package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/plcover/internal/services"
	"github.com/desertthunder/plcover/internal/shared"
)

// DefaultTokenLifetime is assumed when the provider omits expires_in.
const DefaultTokenLifetime = time.Hour

// Authenticator is the provider side of the login and refresh flows.
type Authenticator interface {
	// AuthCodeURL builds the authorize URL for state and an S256 code challenge.
	AuthCodeURL(state, challenge string) string
	ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// State is where the session is in its lifecycle.
type State int

const (
	Unauthenticated State = iota
	PendingAuth
	Active
)

func (s State) String() string {
	switch s {
	case PendingAuth:
		return "pending"
	case Active:
		return "active"
	default:
		return "unauthenticated"
	}
}

// Status describes the persisted session.
type Status struct {
	State     State
	ClientID  string
	ExpiresAt time.Time
	Expired   bool
}

// ManagerOpts configures a [Manager].
type ManagerOpts struct {
	Store    *TokenStore
	Auth     Authenticator
	ClientID string
	Logger   *log.Logger
	// Now defaults to [time.Now]
	Now func() time.Time
}

// Manager owns the login handshake and the token lifecycle.
type Manager struct {
	store    *TokenStore
	auth     Authenticator
	clientID string
	logger   *log.Logger
	now      func() time.Time
}

// NewManager creates a new [Manager]
func NewManager(opts ManagerOpts) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:    opts.Store,
		auth:     opts.Auth,
		clientID: opts.ClientID,
		logger:   shared.WithLogger(opts.Logger, "component", "session"),
		now:      opts.Now,
	}
}

// BeginLogin persists a new [PendingAuthRequest] and returns the provider's authorize URL.
func (m *Manager) BeginLogin(ctx context.Context) (string, error) {
	if m.clientID == "" {
		return "", shared.ErrMissingClientID
	}

	verifier, err := shared.GenerateCodeVerifier()
	if err != nil {
		return "", err
	}
	state, err := shared.GenerateState()
	if err != nil {
		return "", err
	}

	if err := m.store.SavePending(ctx, &PendingAuthRequest{CodeVerifier: verifier, State: state}); err != nil {
		return "", err
	}
	if err := m.store.SetClientID(ctx, m.clientID); err != nil {
		return "", err
	}

	m.logger.Info("login started")
	return m.auth.AuthCodeURL(state, shared.CodeChallenge(verifier)), nil
}

// CompleteLogin exchanges the code returned on the redirect for a session.
//
// A missing or different state fails with [shared.ErrStateMismatch] and leaves the store untouched.
// Once the state matches, the pending request is consumed whether or not the exchange succeeds.
func (m *Manager) CompleteLogin(ctx context.Context, code, state string) (*Session, error) {
	pending, err := m.store.LoadPending(ctx)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, fmt.Errorf("%w: no login in progress", shared.ErrStateMismatch)
	}
	if state != pending.State {
		m.logger.Warn("redirect state does not match pending login")
		return nil, shared.ErrStateMismatch
	}

	tok, err := m.auth.ExchangeCode(ctx, code, pending.CodeVerifier)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.abandonLogin(ctx)
		return nil, fmt.Errorf("%w: %w", shared.ErrTokenExchangeFailed, err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		m.abandonLogin(ctx)
		return nil, fmt.Errorf("%w: response is missing a token", shared.ErrTokenExchangeFailed)
	}

	sess := m.sessionFromToken(tok, "")
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	if err := m.store.ClearPending(ctx); err != nil {
		return nil, err
	}

	m.logger.Info("login completed", "expires", sess.ExpiresAt.Format(time.RFC3339))
	return sess, nil
}

// AbandonLogin discards the pending login after the provider refused it, e.g. a denied consent.
//
// The redirect must carry the pending state; otherwise [shared.ErrStateMismatch] is returned and the store is untouched.
func (m *Manager) AbandonLogin(ctx context.Context, state string) error {
	pending, err := m.store.LoadPending(ctx)
	if err != nil {
		return err
	}
	if pending == nil || state != pending.State {
		return shared.ErrStateMismatch
	}
	if err := m.store.ClearPending(ctx); err != nil {
		return err
	}
	m.logger.Info("login abandoned")
	return nil
}

// EndSession removes every persisted key. It is safe to call when signed out.
func (m *Manager) EndSession(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	m.logger.Info("session ended")
	return nil
}

// Status reports the persisted session state.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	clientID, err := m.store.ClientID(ctx)
	if err != nil {
		return nil, err
	}
	status := &Status{State: Unauthenticated, ClientID: clientID}

	sess, err := m.store.LoadSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		status.State = Active
		status.ExpiresAt = sess.ExpiresAt
		status.Expired = sess.Expired(m.now())
		return status, nil
	}

	pending, err := m.store.LoadPending(ctx)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		status.State = PendingAuth
	}
	return status, nil
}

type attempt int

const (
	firstAttempt attempt = iota
	refreshAndRetry
)

// Call runs op with the current access token.
//
// When the token has expired, or op fails with [shared.ErrUnauthorized], the session is refreshed
// once and op is retried once. op therefore runs at most twice per call. A failed refresh or a
// second authorization failure destroys the session and returns [shared.ErrSessionExpired].
// Other errors, including context cancellation, are returned unchanged and leave the session as is.
func Call[T any](ctx context.Context, m *Manager, op func(ctx context.Context, token string) (T, error)) (T, error) {
	var zero T

	sess, err := m.store.LoadSession(ctx)
	if err != nil {
		return zero, err
	}
	if sess == nil {
		return zero, shared.ErrNotAuthenticated
	}

	next := firstAttempt
	if sess.Expired(m.now()) {
		m.logger.Debug("access token expired, refreshing before call")
		next = refreshAndRetry
	}

	for {
		switch next {
		case firstAttempt:
			v, err := op(ctx, sess.AccessToken)
			if !unauthorized(ctx, err) {
				return v, err
			}
			m.logger.Debug("call unauthorized, refreshing")
			next = refreshAndRetry
		case refreshAndRetry:
			if sess, err = m.refresh(ctx, sess); err != nil {
				return zero, err
			}

			v, err := op(ctx, sess.AccessToken)
			if !unauthorized(ctx, err) {
				return v, err
			}
			m.destroy(ctx, "unauthorized after refresh")
			return zero, fmt.Errorf("%w: %w", shared.ErrSessionExpired, err)
		}
	}
}

// refresh exchanges the refresh token and saves the updated session.
func (m *Manager) refresh(ctx context.Context, sess *Session) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tok, err := m.auth.RefreshToken(ctx, sess.RefreshToken)
	if err == nil && tok.AccessToken == "" {
		err = errors.New("response is missing an access token")
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.destroy(ctx, "refresh rejected")
		return nil, fmt.Errorf("%w: %w: %w", shared.ErrSessionExpired, shared.ErrTokenRefreshFailed, err)
	}

	updated := m.sessionFromToken(tok, sess.RefreshToken)
	if err := m.store.SaveSession(ctx, updated); err != nil {
		return nil, err
	}

	m.logger.Info("session refreshed", "expires", updated.ExpiresAt.Format(time.RFC3339))
	return updated, nil
}

func (m *Manager) destroy(ctx context.Context, reason string) {
	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error("failed to destroy session", "error", err)
		return
	}
	m.logger.Warn("session destroyed", "reason", reason)
}

func (m *Manager) abandonLogin(ctx context.Context) {
	if err := m.store.ClearPending(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error("failed to clear pending login", "error", err)
	}
}

// sessionFromToken keeps previousRefresh unless tok carries a new refresh token.
func (m *Manager) sessionFromToken(tok *oauth2.Token, previousRefresh string) *Session {
	sess := &Session{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, ExpiresAt: tok.Expiry}
	if sess.RefreshToken == "" {
		sess.RefreshToken = previousRefresh
	}
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = m.now().Add(DefaultTokenLifetime)
	}
	return sess
}

func unauthorized(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() == nil && services.IsUnauthorized(err)
}
