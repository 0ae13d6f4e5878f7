// Spotify Web API client built on [Gateway]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track. Queue and playback payloads may also carry
// episodes, which are distinguished by Type.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// Owner is the user who owns a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       Owner  `json:"owner"`
	Public      bool   `json:"public"`
	URI         string `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for
// items Spotify can no longer resolve.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistTracks is one page of a playlist's items.
type SpotifyPaginatedPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyQueue is the player's immediate queue.
type SpotifyQueue struct {
	CurrentlyPlaying *SpotifyTrack  `json:"currently_playing"`
	Queue            []SpotifyTrack `json:"queue"`
}

// SpotifyDevice is a Connect device.
type SpotifyDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsActive      bool   `json:"is_active"`
	VolumePercent *int   `json:"volume_percent"`
}

// SpotifyContext is what the player is playing from.
type SpotifyContext struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

// SpotifyPlaybackState is the player state from /me/player and /me/player/currently-playing.
type SpotifyPlaybackState struct {
	Device     *SpotifyDevice  `json:"device"`
	IsPlaying  bool            `json:"is_playing"`
	ProgressMS int             `json:"progress_ms"`
	Item       *SpotifyTrack   `json:"item"`
	Context    *SpotifyContext `json:"context"`
}

// SpotifySearchResult is a track search response.
type SpotifySearchResult struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
	} `json:"tracks"`
}

// PlayOffset selects where playback starts inside a context.
type PlayOffset struct {
	Position *int   `json:"position,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// PlayOptions is the body of PUT /me/player/play. A nil *PlayOptions resumes as-is.
type PlayOptions struct {
	ContextURI string      `json:"context_uri,omitempty"`
	URIs       []string    `json:"uris,omitempty"`
	Offset     *PlayOffset `json:"offset,omitempty"`
}

// SpotifyService wraps the Web API endpoints the jukebox uses. Every call goes through the
// [Gateway] and so gets token refresh and the 401 retry.
type SpotifyService struct {
	gw *Gateway
}

// NewSpotifyService creates a [SpotifyService] over gw.
func NewSpotifyService(gw *Gateway) *SpotifyService {
	return &SpotifyService{gw: gw}
}

// EnsureToken exposes the gateway's token check for status reporting.
func (s *SpotifyService) EnsureToken(ctx context.Context) error {
	_, err := s.gw.EnsureToken(ctx)
	return err
}

// HasToken reports whether any token is stored.
func (s *SpotifyService) HasToken() bool {
	return s.gw.Store().HasToken()
}

// doRequest performs an authenticated call and decodes a 2xx body into result.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	resp, err := s.gw.Call(ctx, method, endpoint, body, true)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if result != nil {
		return resp.Decode(result)
	}
	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Playlist looks a playlist up without the 401 retry; a definitive answer is all that is needed.
// It returns the raw response so callers can tell "gone" from "request failed".
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, *Response, error) {
	endpoint := fmt.Sprintf("/playlists/%s?fields=%s", url.PathEscape(playlistID), url.QueryEscape("id,name,uri,public,owner(id,display_name)"))

	resp, err := s.gw.Call(ctx, http.MethodGet, endpoint, nil, false)
	if err != nil {
		return nil, nil, err
	}
	if !resp.OK() {
		return nil, resp, resp.Err()
	}

	var playlist SpotifyPlaylist
	if err := resp.Decode(&playlist); err != nil {
		return nil, resp, err
	}
	return &playlist, resp, nil
}

// CreatePlaylist creates a playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*SpotifyPlaylist, error) {
	body := map[string]any{"name": name, "description": description, "public": public}

	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	if playlist.ID == "" {
		return nil, fmt.Errorf("%w: created playlist has no id", shared.ErrAPIRequest)
	}
	return &playlist, nil
}

// PlaylistTracks retrieves one page of a playlist's items (limit max 100).
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistTracks, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), limit, offset)

	var page SpotifyPaginatedPlaylistTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AddToPlaylist inserts uris at position, or appends when position is negative.
func (s *SpotifyService) AddToPlaylist(ctx context.Context, playlistID string, uris []string, position int) error {
	body := map[string]any{"uris": uris}
	if position >= 0 {
		body["position"] = position
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

// RemoveFromPlaylist deletes every occurrence of uris from the playlist.
func (s *SpotifyService) RemoveFromPlaylist(ctx context.Context, playlistID string, uris []string) error {
	items := make([]map[string]string, len(uris))
	for i, uri := range uris {
		items[i] = map[string]string{"uri": uri}
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodDelete, endpoint, map[string]any{"tracks": items}, nil)
}

// SearchTracks runs a track search.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) (*SpotifySearchResult, error) {
	if limit <= 0 {
		limit = 1
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))

	var result SpotifySearchResult
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Queue reads the player's immediate queue.
func (s *SpotifyService) Queue(ctx context.Context) (*SpotifyQueue, error) {
	var q SpotifyQueue
	if err := s.doRequest(ctx, http.MethodGet, "/me/player/queue", nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// AddToQueue appends uri to the immediate queue; Spotify requires an active device.
func (s *SpotifyService) AddToQueue(ctx context.Context, uri string) error {
	return s.doRequest(ctx, http.MethodPost, "/me/player/queue?uri="+url.QueryEscape(uri), nil, nil)
}

// PlaybackState returns the player state, or nil when no session exists (204).
func (s *SpotifyService) PlaybackState(ctx context.Context) (*SpotifyPlaybackState, error) {
	return s.playerState(ctx, "/me/player")
}

// CurrentlyPlaying returns the current item, or nil when nothing is playing (204).
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context) (*SpotifyPlaybackState, error) {
	return s.playerState(ctx, "/me/player/currently-playing")
}

func (s *SpotifyService) playerState(ctx context.Context, endpoint string) (*SpotifyPlaybackState, error) {
	resp, err := s.gw.Call(ctx, http.MethodGet, endpoint, nil, true)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent || len(strings.TrimSpace(string(resp.Body))) == 0 {
		return nil, nil
	}

	var state SpotifyPlaybackState
	if err := resp.Decode(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Play starts or resumes playback. nil opts resumes without changing context.
func (s *SpotifyService) Play(ctx context.Context, opts *PlayOptions) error {
	var body any
	if opts != nil {
		body = opts
	}
	return s.doRequest(ctx, http.MethodPut, "/me/player/play", body, nil)
}

// Pause pauses playback.
func (s *SpotifyService) Pause(ctx context.Context) error {
	return s.doRequest(ctx, http.MethodPut, "/me/player/pause", nil, nil)
}

// Next skips to the next item.
func (s *SpotifyService) Next(ctx context.Context) error {
	return s.doRequest(ctx, http.MethodPost, "/me/player/next", nil, nil)
}

// SetVolume sets the active device's volume (0-100).
func (s *SpotifyService) SetVolume(ctx context.Context, percent int) error {
	return s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/me/player/volume?volume_percent=%d", percent), nil, nil)
}

// ToTrack normalizes a Spotify track into the client [models.Track] shape.
func ToTrack(t SpotifyTrack, source models.Source) models.Track {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}

	var image *string
	if len(t.Album.Images) > 0 && t.Album.Images[0].URL != "" {
		u := t.Album.Images[0].URL
		image = &u
	}

	return models.Track{
		ID:         t.ID,
		Name:       t.Name,
		Artist:     strings.Join(names, ", "),
		Album:      t.Album.Name,
		Image:      image,
		URI:        t.URI,
		DurationMS: t.DurationMS,
		Source:     source,
	}
}
