package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

func TestToTrack(t *testing.T) {
	tests := []struct {
		name   string
		in     SpotifyTrack
		artist string
		image  string
	}{
		{
			name: "joins artists and takes the first image",
			in: SpotifyTrack{
				ID:      "t1",
				Name:    "Song",
				URI:     "spotify:track:t1",
				Artists: []SpotifyArtist{{Name: "One"}, {Name: "Two"}},
				Album: SpotifyAlbum{Name: "Album", Images: []SpotifyImage{
					{URL: "https://img.example/large.jpg"},
					{URL: "https://img.example/small.jpg"},
				}},
			},
			artist: "One, Two",
			image:  "https://img.example/large.jpg",
		},
		{
			name:   "no images gives a nil image",
			in:     SpotifyTrack{ID: "t2", Name: "Bare", Artists: []SpotifyArtist{{Name: "Solo"}}},
			artist: "Solo",
		},
		{
			name:   "no artists",
			in:     SpotifyTrack{ID: "t3", Name: "Unknown"},
			artist: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToTrack(tt.in, models.SourcePlaylist)

			if got.Artist != tt.artist {
				t.Errorf("expected artist %q, got %q", tt.artist, got.Artist)
			}
			if tt.image == "" && got.Image != nil {
				t.Errorf("expected nil image, got %q", *got.Image)
			}
			if tt.image != "" && (got.Image == nil || *got.Image != tt.image) {
				t.Errorf("expected image %q, got %v", tt.image, got.Image)
			}
			if got.Source != models.SourcePlaylist {
				t.Errorf("expected playlist source, got %q", got.Source)
			}
		})
	}
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("SearchTracks", func(t *testing.T) {
		s := newTestStack(t)
		s.fs.AddTrack("t1", "Dancing Queen", "ABBA")
		s.fs.AddTrack("t2", "Dancing in the Dark", "Bruce Springsteen")

		result, err := s.api.SearchTracks(ctx, "dancing", 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Tracks.Items) != 1 || result.Tracks.Total != 2 {
			t.Errorf("expected 1 of 2, got %d of %d", len(result.Tracks.Items), result.Tracks.Total)
		}

		q := s.fs.Requests()[0].Query
		if q.Get("type") != "track" || q.Get("limit") != "1" {
			t.Errorf("unexpected query %v", q)
		}
	})

	t.Run("PlaybackState without a session is nil", func(t *testing.T) {
		s := newTestStack(t)

		state, err := s.api.PlaybackState(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if state != nil {
			t.Errorf("expected nil state, got %+v", state)
		}
	})

	t.Run("CurrentlyPlaying", func(t *testing.T) {
		s := newTestStack(t)
		uri := s.fs.AddTrack("t1", "Song", "Artist")
		s.fs.SetPlayer(true, true, uri)

		state, err := s.api.CurrentlyPlaying(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if state == nil || state.Item == nil || state.Item.URI != uri || !state.IsPlaying {
			t.Errorf("unexpected state %+v", state)
		}
	})

	t.Run("SetVolume", func(t *testing.T) {
		s := newTestStack(t)
		s.fs.SetPlayer(true, true, "")

		if err := s.api.SetVolume(ctx, 35); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		s.fs.Lock()
		defer s.fs.Unlock()
		if s.fs.Volume != 35 {
			t.Errorf("expected volume 35, got %d", s.fs.Volume)
		}
	})

	t.Run("player commands carry Spotify's message", func(t *testing.T) {
		s := newTestStack(t)

		err := s.api.Pause(ctx)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Status != http.StatusNotFound || !strings.Contains(apiErr.Message, "No active device found") {
			t.Errorf("unexpected error %+v", apiErr)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Error("expected ErrAPIRequest")
		}
	})

	t.Run("AddToPlaylist and RemoveFromPlaylist", func(t *testing.T) {
		s := newTestStack(t)
		s.fs.AddPlaylist("p1", "spotify:track:a")

		if err := s.api.AddToPlaylist(ctx, "p1", []string{"spotify:track:b"}, 0); err != nil {
			t.Fatalf("add: %v", err)
		}
		if got, _ := s.fs.Playlist("p1"); strings.Join(got, ",") != "spotify:track:b,spotify:track:a" {
			t.Errorf("expected b at the front, got %v", got)
		}

		if err := s.api.RemoveFromPlaylist(ctx, "p1", []string{"spotify:track:a"}); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if got, _ := s.fs.Playlist("p1"); strings.Join(got, ",") != "spotify:track:b" {
			t.Errorf("expected only b, got %v", got)
		}
	})
}
