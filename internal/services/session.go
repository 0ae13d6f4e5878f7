package services

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
)

// Session ties the token exchange to the shared token store and the radio playlist, so that a
// new login replaces the token pair and forgets the previous account's playlist.
type Session struct {
	exchanger *TokenExchanger
	store     *TokenStore
	playlists *PlaylistManager
	logger    *log.Logger
}

// NewSession creates a [Session].
func NewSession(exchanger *TokenExchanger, store *TokenStore, playlists *PlaylistManager, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Session{exchanger: exchanger, store: store, playlists: playlists, logger: logger}
}

// AuthURL returns the Spotify authorize URL for redirectURI and state.
func (s *Session) AuthURL(redirectURI, state string) (string, error) {
	return s.exchanger.AuthURL(redirectURI, state)
}

// Login exchanges code and stores the resulting token pair.
func (s *Session) Login(ctx context.Context, code, redirectURI string) (*TokenGrant, error) {
	grant, err := s.exchanger.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	s.store.SetTokens(grant.AccessToken, grant.RefreshToken, grant.ExpiresIn)
	s.playlists.Clear()
	s.logger.Info("spotify authorized", "expires_in", grant.ExpiresIn)
	return grant, nil
}
