package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Client credentials the fake token endpoint accepts.
const (
	FakeClientID     = "fake-client-id"
	FakeClientSecret = "fake-client-secret"
	FakeUserID       = "party-host"
)

// Request is one call observed by [FakeSpotify].
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
	Auth   string
}

// FakeTrack is a catalog entry.
type FakeTrack struct {
	ID     string
	Name   string
	Artist string
}

// URI returns the track's Spotify URI.
func (t FakeTrack) URI() string { return "spotify:track:" + t.ID }

// FakePlaylist is a playlist held by [FakeSpotify].
type FakePlaylist struct {
	ID      string
	OwnerID string
	Name    string
	URIs    []string
}

// FakeSpotify is an in-memory stand-in for the Spotify accounts service and Web API,
// served over httptest. It keeps just enough player and playlist state to exercise
// queueing, playback and removal. All exported fields must be accessed with Lock held
// once the server is running, or through the helper methods.
type FakeSpotify struct {
	Server *httptest.Server

	mu           sync.Mutex
	requests     []Request
	scripted     map[string][]int
	catalog      []FakeTrack
	playlists    map[string]*FakePlaylist
	nextPlaylist int
	tokenSeq     int

	AccessToken   string
	RefreshToken  string
	RotateRefresh bool
	UserID        string

	HasSession bool
	IsPlaying  bool
	Current    string
	Queue      []string
	Context    string
	Volume     int

	// StickyDeletes makes that many playlist deletes report success without removing anything.
	StickyDeletes int
}

// NewFakeSpotify starts a [FakeSpotify] that is closed when the test ends.
// It starts with a valid token pair "access-0"/"refresh-0".
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	fs := &FakeSpotify{
		scripted:     make(map[string][]int),
		playlists:    make(map[string]*FakePlaylist),
		AccessToken:  "access-0",
		RefreshToken: "refresh-0",
		UserID:       FakeUserID,
		Volume:       50,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", fs.token)
	mux.HandleFunc("GET /v1/me", fs.authed(fs.me))
	mux.HandleFunc("POST /v1/users/{user}/playlists", fs.authed(fs.createPlaylist))
	mux.HandleFunc("GET /v1/playlists/{id}", fs.authed(fs.getPlaylist))
	mux.HandleFunc("GET /v1/playlists/{id}/tracks", fs.authed(fs.playlistTracks))
	mux.HandleFunc("POST /v1/playlists/{id}/tracks", fs.authed(fs.addPlaylistTracks))
	mux.HandleFunc("DELETE /v1/playlists/{id}/tracks", fs.authed(fs.deletePlaylistTracks))
	mux.HandleFunc("GET /v1/search", fs.authed(fs.search))
	mux.HandleFunc("GET /v1/me/player", fs.authed(fs.player))
	mux.HandleFunc("GET /v1/me/player/currently-playing", fs.authed(fs.currentlyPlaying))
	mux.HandleFunc("GET /v1/me/player/queue", fs.authed(fs.queue))
	mux.HandleFunc("POST /v1/me/player/queue", fs.authed(fs.addToQueue))
	mux.HandleFunc("PUT /v1/me/player/play", fs.authed(fs.play))
	mux.HandleFunc("PUT /v1/me/player/pause", fs.authed(fs.pause))
	mux.HandleFunc("POST /v1/me/player/next", fs.authed(fs.next))
	mux.HandleFunc("PUT /v1/me/player/volume", fs.authed(fs.volume))

	fs.Server = httptest.NewServer(fs.journal(mux))
	t.Cleanup(fs.Server.Close)
	return fs
}

// APIBaseURL is the Web API root, the equivalent of https://api.spotify.com/v1.
func (fs *FakeSpotify) APIBaseURL() string { return fs.Server.URL + "/v1" }

// TokenURL is the accounts token endpoint.
func (fs *FakeSpotify) TokenURL() string { return fs.Server.URL + "/api/token" }

// AuthURL is the accounts authorize endpoint.
func (fs *FakeSpotify) AuthURL() string { return fs.Server.URL + "/authorize" }

// Lock and Unlock guard direct access to exported state.
func (fs *FakeSpotify) Lock()   { fs.mu.Lock() }
func (fs *FakeSpotify) Unlock() { fs.mu.Unlock() }

// AddTrack adds a catalog entry and returns its URI.
func (fs *FakeSpotify) AddTrack(id, name, artist string) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	t := FakeTrack{ID: id, Name: name, Artist: artist}
	fs.catalog = append(fs.catalog, t)
	return t.URI()
}

// AddPlaylist registers a playlist owned by the current user.
func (fs *FakeSpotify) AddPlaylist(id string, uris ...string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.playlists[id] = &FakePlaylist{ID: id, OwnerID: fs.UserID, Name: id, URIs: slices.Clone(uris)}
}

// Playlist returns a copy of a playlist's URIs and whether it exists.
func (fs *FakeSpotify) Playlist(id string) ([]string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	p, ok := fs.playlists[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(p.URIs), true
}

// DeletePlaylist removes a playlist, as if the owner deleted it.
func (fs *FakeSpotify) DeletePlaylist(id string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.playlists, id)
}

// PlaylistCount reports how many playlists exist.
func (fs *FakeSpotify) PlaylistCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.playlists)
}

// SetPlayer replaces the live session state.
func (fs *FakeSpotify) SetPlayer(session, playing bool, current string, queue ...string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.HasSession, fs.IsPlaying, fs.Current, fs.Queue = session, playing, current, slices.Clone(queue)
}

// ExpireToken invalidates the current access token so the next API call gets a 401.
func (fs *FakeSpotify) ExpireToken() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.AccessToken = "revoked"
}

// Fail makes the next len(statuses) calls to "METHOD /path" answer with those statuses.
func (fs *FakeSpotify) Fail(route string, statuses ...int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.scripted[route] = append(fs.scripted[route], statuses...)
}

// Requests returns a copy of every request seen so far.
func (fs *FakeSpotify) Requests() []Request {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return slices.Clone(fs.requests)
}

// Calls counts requests to "METHOD /path".
func (fs *FakeSpotify) Calls(route string) int {
	n := 0
	for _, r := range fs.Requests() {
		if r.Method+" "+r.Path == route {
			n++
		}
	}
	return n
}

// Reset forgets the request journal.
func (fs *FakeSpotify) Reset() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.requests = nil
}

func (fs *FakeSpotify) journal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		route := r.Method + " " + r.URL.Path

		fs.mu.Lock()
		fs.requests = append(fs.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   string(body),
			Auth:   r.Header.Get("Authorization"),
		})
		status := 0
		if queued := fs.scripted[route]; len(queued) > 0 {
			status, fs.scripted[route] = queued[0], queued[1:]
		}
		fs.mu.Unlock()

		if status != 0 {
			writeError(w, status, fmt.Sprintf("scripted %d", status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (fs *FakeSpotify) authed(h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		valid := r.Header.Get("Authorization") == "Bearer "+fs.AccessToken
		fs.mu.Unlock()
		if !valid {
			writeError(w, http.StatusUnauthorized, "The access token expired")
			return
		}
		h(w, r)
	}
}

func (fs *FakeSpotify) token(w http.ResponseWriter, r *http.Request) {
	id, secret, ok := r.BasicAuth()
	if !ok || id != FakeClientID || secret != FakeClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client", "error_description": "Invalid client"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if r.PostForm.Get("code") != "good-code" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid authorization code"})
			return
		}
		if r.PostForm.Get("redirect_uri") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid redirect URI"})
			return
		}
		fs.tokenSeq++
		fs.AccessToken = "access-" + strconv.Itoa(fs.tokenSeq)
		fs.RefreshToken = "refresh-" + strconv.Itoa(fs.tokenSeq)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  fs.AccessToken,
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": fs.RefreshToken,
		})
	case "refresh_token":
		if r.PostForm.Get("refresh_token") != fs.RefreshToken {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Refresh token revoked"})
			return
		}
		fs.tokenSeq++
		fs.AccessToken = "access-" + strconv.Itoa(fs.tokenSeq)
		resp := map[string]any{"access_token": fs.AccessToken, "token_type": "Bearer", "expires_in": 3600}
		if fs.RotateRefresh {
			fs.RefreshToken = "refresh-" + strconv.Itoa(fs.tokenSeq)
			resp["refresh_token"] = fs.RefreshToken
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (fs *FakeSpotify) me(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"id": fs.UserID, "display_name": "Party Host", "product": "premium"})
}

func (fs *FakeSpotify) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name   string `json:"name"`
		Public bool   `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, http.StatusBadRequest, "Missing playlist name")
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if r.PathValue("user") != fs.UserID {
		writeError(w, http.StatusForbidden, "You cannot create a playlist for another user")
		return
	}
	fs.nextPlaylist++
	p := &FakePlaylist{ID: "pl-" + strconv.Itoa(fs.nextPlaylist), OwnerID: fs.UserID, Name: body.Name}
	fs.playlists[p.ID] = p
	writeJSON(w, http.StatusCreated, playlistJSON(p))
}

func (fs *FakeSpotify) getPlaylist(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	p, ok := fs.playlists[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, playlistJSON(p))
}

func (fs *FakeSpotify) playlistTracks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	p, ok := fs.playlists[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}

	items := []map[string]any{}
	for i := offset; i < len(p.URIs) && i < offset+limit; i++ {
		items = append(items, map[string]any{"added_at": "2024-01-01T00:00:00Z", "track": fs.trackJSON(p.URIs[i])})
	}

	var next any
	if offset+limit < len(p.URIs) {
		next = fmt.Sprintf("%s/v1/playlists/%s/tracks?limit=%d&offset=%d", fs.Server.URL, p.ID, limit, offset+limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(p.URIs), "limit": limit, "offset": offset, "next": next})
}

func (fs *FakeSpotify) addPlaylistTracks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URIs     []string `json:"uris"`
		Position *int     `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.URIs) == 0 {
		writeError(w, http.StatusBadRequest, "No uris provided")
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	p, ok := fs.playlists[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	pos := len(p.URIs)
	if body.Position != nil && *body.Position >= 0 && *body.Position <= len(p.URIs) {
		pos = *body.Position
	}
	p.URIs = slices.Insert(p.URIs, pos, body.URIs...)
	writeJSON(w, http.StatusCreated, map[string]string{"snapshot_id": "snap-" + strconv.Itoa(len(p.URIs))})
}

func (fs *FakeSpotify) deletePlaylistTracks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tracks []struct {
			URI string `json:"uri"`
		} `json:"tracks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Tracks) == 0 {
		writeError(w, http.StatusBadRequest, "No tracks provided")
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	p, ok := fs.playlists[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	if fs.StickyDeletes > 0 {
		fs.StickyDeletes--
	} else {
		for _, t := range body.Tracks {
			p.URIs = slices.DeleteFunc(p.URIs, func(u string) bool { return u == t.URI })
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"snapshot_id": "snap-del"})
}

func (fs *FakeSpotify) search(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	var matches []any
	for _, t := range fs.catalog {
		if strings.Contains(strings.ToLower(t.Name), q) || strings.Contains(strings.ToLower(t.Artist), q) {
			matches = append(matches, fs.trackJSON(t.URI()))
		}
	}
	total := len(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if matches == nil {
		matches = []any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": matches, "total": total}})
}

func (fs *FakeSpotify) player(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.HasSession {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, fs.stateJSON())
}

func (fs *FakeSpotify) currentlyPlaying(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.HasSession || fs.Current == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, fs.stateJSON())
}

func (fs *FakeSpotify) queue(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	queue := []any{}
	for _, uri := range fs.Queue {
		queue = append(queue, fs.trackJSON(uri))
	}
	var current any
	if fs.Current != "" {
		current = fs.trackJSON(fs.Current)
	}
	writeJSON(w, http.StatusOK, map[string]any{"currently_playing": current, "queue": queue})
}

func (fs *FakeSpotify) addToQueue(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.HasSession {
		writeError(w, http.StatusNotFound, "Player command failed: No active device found")
		return
	}
	fs.Queue = append(fs.Queue, r.URL.Query().Get("uri"))
	w.WriteHeader(http.StatusNoContent)
}

func (fs *FakeSpotify) play(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ContextURI string   `json:"context_uri"`
		URIs       []string `json:"uris"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if body.ContextURI != "" {
		fs.Context = body.ContextURI
		fs.Current = ""
		if p, ok := fs.playlists[strings.TrimPrefix(body.ContextURI, "spotify:playlist:")]; ok && len(p.URIs) > 0 {
			fs.Current = p.URIs[0]
		}
	}
	if fs.Current == "" && len(fs.Queue) > 0 {
		fs.Current, fs.Queue = fs.Queue[0], fs.Queue[1:]
	}
	fs.HasSession, fs.IsPlaying = true, true
	w.WriteHeader(http.StatusNoContent)
}

func (fs *FakeSpotify) pause(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.HasSession {
		writeError(w, http.StatusNotFound, "Player command failed: No active device found")
		return
	}
	fs.IsPlaying = false
	w.WriteHeader(http.StatusNoContent)
}

func (fs *FakeSpotify) next(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.HasSession {
		writeError(w, http.StatusNotFound, "Player command failed: No active device found")
		return
	}
	fs.Current = ""
	if len(fs.Queue) > 0 {
		fs.Current, fs.Queue = fs.Queue[0], fs.Queue[1:]
	}
	w.WriteHeader(http.StatusNoContent)
}

func (fs *FakeSpotify) volume(w http.ResponseWriter, r *http.Request) {
	v, err := strconv.Atoi(r.URL.Query().Get("volume_percent"))
	if err != nil || v < 0 || v > 100 {
		writeError(w, http.StatusBadRequest, "Invalid volume")
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.HasSession {
		writeError(w, http.StatusNotFound, "Player command failed: No active device found")
		return
	}
	fs.Volume = v
	w.WriteHeader(http.StatusNoContent)
}

// stateJSON must be called with mu held.
func (fs *FakeSpotify) stateJSON() map[string]any {
	state := map[string]any{
		"device":      map[string]any{"id": "dev-1", "name": "Living Room", "is_active": true, "volume_percent": fs.Volume},
		"is_playing":  fs.IsPlaying,
		"progress_ms": 1000,
		"item":        nil,
		"context":     nil,
	}
	if fs.Current != "" {
		state["item"] = fs.trackJSON(fs.Current)
	}
	if fs.Context != "" {
		state["context"] = map[string]string{"type": "playlist", "uri": fs.Context}
	}
	return state
}

// trackJSON must be called with mu held.
func (fs *FakeSpotify) trackJSON(uri string) map[string]any {
	id := strings.TrimPrefix(uri, "spotify:track:")
	name, artist := id, "Unknown Artist"
	for _, t := range fs.catalog {
		if t.URI() == uri {
			name, artist = t.Name, t.Artist
		}
	}
	return map[string]any{
		"id":          id,
		"name":        name,
		"type":        "track",
		"uri":         uri,
		"duration_ms": 180000,
		"artists":     []map[string]string{{"id": "art-" + id, "name": artist}},
		"album": map[string]any{
			"id":     "alb-" + id,
			"name":   name + " (Album)",
			"images": []map[string]any{{"url": "https://img.example/" + id + ".jpg", "height": 640, "width": 640}},
		},
	}
}

func playlistJSON(p *FakePlaylist) map[string]any {
	return map[string]any{
		"id":     p.ID,
		"name":   p.Name,
		"public": false,
		"uri":    "spotify:playlist:" + p.ID,
		"owner":  map[string]string{"id": p.OwnerID, "display_name": p.OwnerID},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": msg}})
}
