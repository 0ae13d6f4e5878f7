package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/shared"
)

// PlaylistManager owns the radio playlist: a private playlist standing in for a visible,
// editable queue. The id lives in memory only.
type PlaylistManager struct {
	api         SpotifyAPI
	name        string
	description string
	logger      *log.Logger

	mu sync.Mutex
	id string
}

// NewPlaylistManager creates a [PlaylistManager] that names new playlists name.
func NewPlaylistManager(api SpotifyAPI, name, description string, logger *log.Logger) *PlaylistManager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PlaylistManager{api: api, name: name, description: description, logger: logger}
}

// GetOrCreatePlaylistID returns the cached playlist id after one verification GET, or
// creates a new private playlist when there is none or verification fails.
func (m *PlaylistManager) GetOrCreatePlaylistID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.id != "" {
		_, _, err := m.api.Playlist(ctx, m.id)
		switch {
		case err == nil:
			return m.id, nil
		case !playlistGone(err):
			return "", fmt.Errorf("failed to verify playlist: %w", err)
		}
		m.logger.Warn("radio playlist unavailable, creating a new one", "playlist", m.id, "err", err)
		m.id = ""
	}

	user, err := m.api.UserProfile(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to look up spotify user: %w", err)
	}

	playlist, err := m.api.CreatePlaylist(ctx, user.ID, m.name, m.description, false)
	if err != nil {
		return "", fmt.Errorf("failed to create radio playlist: %w", err)
	}

	m.id = playlist.ID
	m.logger.Info("created radio playlist", "playlist", m.id, "owner", user.ID)
	return m.id, nil
}

// ID returns the cached id without verifying it; "" when none exists yet.
func (m *PlaylistManager) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// Adopt caches an existing playlist id, e.g. one named in configuration.
func (m *PlaylistManager) Adopt(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
}

// Clear forgets the cached playlist, e.g. after signing in as a different account.
func (m *PlaylistManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = ""
}

// playlistGone reports a definitive 4xx answer about the playlist itself. A rejected token
// (401) and throttling (429) say nothing about the playlist, and transport failures and 5xx
// responses are transient, so none of them may trigger re-creation.
func playlistGone(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || errors.Is(err, shared.ErrRateLimited) || errors.Is(err, shared.ErrNotAuthenticated) {
		return false
	}
	return apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != http.StatusUnauthorized
}
