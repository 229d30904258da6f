package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/plcover/internal/repositories"
	"github.com/desertthunder/plcover/internal/shared"
)

// Persisted keys.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyExpires      = "expires"
	KeyClientID     = "clientId"
	KeyCodeVerifier = "codeVerifier"
	KeyState        = "state"
)

var (
	sessionKeys = []string{KeyToken, KeyRefreshToken, KeyExpires}
	pendingKeys = []string{KeyCodeVerifier, KeyState}
	allKeys     = []string{KeyToken, KeyRefreshToken, KeyExpires, KeyClientID, KeyCodeVerifier, KeyState}
)

// Session is an access/refresh token pair and the instant the access token expires.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token has expired at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Session) valid() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != "" && !s.ExpiresAt.IsZero()
}

// PendingAuthRequest is the PKCE verifier and state saved before redirecting to the provider.
type PendingAuthRequest struct {
	CodeVerifier string
	State        string
}

// TokenStore reads and writes session data through a [repositories.KV].
//
// Each method is a single KV call, so a session or pending request is never half written.
type TokenStore struct {
	kv repositories.KV
}

// NewTokenStore creates a new [TokenStore] backed by kv.
func NewTokenStore(kv repositories.KV) *TokenStore {
	return &TokenStore{kv: kv}
}

// LoadSession returns the stored session, or nil when none is stored.
//
// A partial or malformed record is cleared and reported as absent.
func (s *TokenStore) LoadSession(ctx context.Context) (*Session, error) {
	values, err := s.kv.Get(ctx, sessionKeys...)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	sess := &Session{AccessToken: values[KeyToken], RefreshToken: values[KeyRefreshToken]}
	if millis, err := strconv.ParseInt(values[KeyExpires], 10, 64); err == nil && millis > 0 {
		sess.ExpiresAt = time.UnixMilli(millis)
	}

	if !sess.valid() {
		if err := s.ClearSession(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return sess, nil
}

// SaveSession writes all three session fields together.
func (s *TokenStore) SaveSession(ctx context.Context, sess *Session) error {
	if !sess.valid() {
		return fmt.Errorf("%w: incomplete session", shared.ErrInvalidInput)
	}

	err := s.kv.Put(ctx, map[string]string{
		KeyToken:        sess.AccessToken,
		KeyRefreshToken: sess.RefreshToken,
		KeyExpires:      strconv.FormatInt(sess.ExpiresAt.UnixMilli(), 10),
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// ClearSession removes the session fields.
func (s *TokenStore) ClearSession(ctx context.Context) error {
	if err := s.kv.Delete(ctx, sessionKeys...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// LoadPending returns the pending login request, or nil when none is stored.
func (s *TokenStore) LoadPending(ctx context.Context) (*PendingAuthRequest, error) {
	values, err := s.kv.Get(ctx, pendingKeys...)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending login: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	req := &PendingAuthRequest{CodeVerifier: values[KeyCodeVerifier], State: values[KeyState]}
	if req.CodeVerifier == "" || req.State == "" {
		if err := s.ClearPending(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return req, nil
}

// SavePending writes the verifier and state together.
func (s *TokenStore) SavePending(ctx context.Context, req *PendingAuthRequest) error {
	if req == nil || req.CodeVerifier == "" || req.State == "" {
		return fmt.Errorf("%w: incomplete pending login", shared.ErrInvalidInput)
	}

	err := s.kv.Put(ctx, map[string]string{KeyCodeVerifier: req.CodeVerifier, KeyState: req.State})
	if err != nil {
		return fmt.Errorf("failed to save pending login: %w", err)
	}
	return nil
}

// ClearPending removes the pending login request.
func (s *TokenStore) ClearPending(ctx context.Context) error {
	if err := s.kv.Delete(ctx, pendingKeys...); err != nil {
		return fmt.Errorf("failed to clear pending login: %w", err)
	}
	return nil
}

// ClientID returns the client id the stored session was issued to.
func (s *TokenStore) ClientID(ctx context.Context) (string, error) {
	values, err := s.kv.Get(ctx, KeyClientID)
	if err != nil {
		return "", fmt.Errorf("failed to load client id: %w", err)
	}
	return values[KeyClientID], nil
}

// SetClientID records the client id used for login.
func (s *TokenStore) SetClientID(ctx context.Context, clientID string) error {
	if err := s.kv.Put(ctx, map[string]string{KeyClientID: clientID}); err != nil {
		return fmt.Errorf("failed to save client id: %w", err)
	}
	return nil
}

// Clear removes every persisted key.
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, allKeys...); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}
