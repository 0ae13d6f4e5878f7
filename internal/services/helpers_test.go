package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	tu "github.com/desertthunder/jukebox/internal/testing"
)

// testStack wires a real gateway and service to a fake Spotify holding a valid token pair.
type testStack struct {
	fs        *tu.FakeSpotify
	store     *TokenStore
	exchanger *TokenExchanger
	gw        *Gateway
	api       *SpotifyService
	playlists *PlaylistManager
	recorder  *memRecorder
	rec       *Reconciler
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	fs := tu.NewFakeSpotify(t)
	store := NewTokenStore()
	store.SetTokens("access-0", "refresh-0", 3600)

	exchanger := NewTokenExchanger(ExchangerOpts{
		ClientID:     tu.FakeClientID,
		ClientSecret: tu.FakeClientSecret,
		AuthURL:      fs.AuthURL(),
		TokenURL:     fs.TokenURL(),
	})
	gw := NewGateway(store, exchanger, GatewayOpts{BaseURL: fs.APIBaseURL()})
	api := NewSpotifyService(gw)
	playlists := NewPlaylistManager(api, "Jukebox Radio", "test", nil)
	recorder := &memRecorder{}
	rec := NewReconciler(api, playlists, ReconcilerOpts{
		Recorder: recorder,
		Sleep:    func(context.Context, time.Duration) error { return nil },
	})

	return &testStack{fs: fs, store: store, exchanger: exchanger, gw: gw, api: api, playlists: playlists, recorder: recorder, rec: rec}
}

type memRecorder struct {
	mu     sync.Mutex
	events []*models.QueueEvent
}

func (m *memRecorder) Record(_ context.Context, e *models.QueueEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memRecorder) last() *models.QueueEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func uris(tracks []models.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.URI
	}
	return out
}
