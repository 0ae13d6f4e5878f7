package services

import (
	"context"
)

// SpotifyAPI is the slice of the Web API the playlist manager and reconciler depend on.
// [SpotifyService] implements it.
type SpotifyAPI interface {
	// EnsureToken returns an error when no usable token exists and none can be refreshed.
	EnsureToken(ctx context.Context) error
	// HasToken reports whether any token is stored.
	HasToken() bool

	UserProfile(ctx context.Context) (*SpotifyUser, error)
	Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, *Response, error)
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*SpotifyPlaylist, error)
	PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistTracks, error)
	AddToPlaylist(ctx context.Context, playlistID string, uris []string, position int) error
	RemoveFromPlaylist(ctx context.Context, playlistID string, uris []string) error

	SearchTracks(ctx context.Context, query string, limit int) (*SpotifySearchResult, error)

	Queue(ctx context.Context) (*SpotifyQueue, error)
	AddToQueue(ctx context.Context, uri string) error
	PlaybackState(ctx context.Context) (*SpotifyPlaybackState, error)
	CurrentlyPlaying(ctx context.Context) (*SpotifyPlaybackState, error)
	Play(ctx context.Context, opts *PlayOptions) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
}

var _ SpotifyAPI = (*SpotifyService)(nil)
