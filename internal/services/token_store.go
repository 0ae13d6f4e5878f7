package services

import (
	"sync"
	"time"
)

// ExpiryMargin is how long before hard expiry a token is already treated as expired,
// so no request is issued with a token that lapses mid-flight.
const ExpiryMargin = 5 * time.Minute

// TokenStore holds the access/refresh token pair for the single shared Spotify identity.
//
// It is safe for concurrent use.
type TokenStore struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	now          func() time.Time
}

// NewTokenStore creates an empty [TokenStore] on the wall clock.
func NewTokenStore() *TokenStore {
	return &TokenStore{now: time.Now}
}

// NewTokenStoreWithClock creates an empty [TokenStore] reading time from now.
func NewTokenStoreWithClock(now func() time.Time) *TokenStore {
	return &TokenStore{now: now}
}

// SetTokens overwrites the stored record. expiresAt becomes now + expiresIn seconds;
// negative values are clamped to zero.
func (s *TokenStore) SetTokens(access, refresh string, expiresIn int64) {
	if expiresIn < 0 {
		expiresIn = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = access
	s.refreshToken = refresh
	s.expiresAt = s.now().Add(time.Duration(expiresIn) * time.Second)
}

// AccessToken returns the current access token or "" when unset.
func (s *TokenStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token or "" when unset.
func (s *TokenStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// ExpiresAt returns the hard expiry instant of the current access token.
func (s *TokenStore) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// HasToken reports whether an access token is stored, expired or not.
func (s *TokenStore) HasToken() bool {
	return s.AccessToken() != ""
}

// IsExpired is true when no token is stored or now >= expiresAt - [ExpiryMargin].
func (s *TokenStore) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.accessToken == "" {
		return true
	}
	return !s.now().Before(s.expiresAt.Add(-ExpiryMargin))
}

// Clear drops the record entirely, forcing re-authentication.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = time.Time{}
}
