package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

func TestMerge(t *testing.T) {
	track := func(id string) SpotifyTrack {
		return SpotifyTrack{ID: id, Name: id, URI: "spotify:track:" + id}
	}
	a, b, c := track("A"), track("B"), track("C")

	tc := []struct {
		name      string
		immediate []SpotifyTrack
		playlist  []SpotifyTrack
		want      []string
	}{
		{
			name:      "immediate first then unseen playlist items",
			immediate: []SpotifyTrack{a, b},
			playlist:  []SpotifyTrack{b, c, a},
			want:      []string{"spotify:track:A", "spotify:track:B", "spotify:track:C"},
		},
		{
			name:     "playlist only",
			playlist: []SpotifyTrack{c, a},
			want:     []string{"spotify:track:C", "spotify:track:A"},
		},
		{
			name:      "duplicates inside the player queue collapse",
			immediate: []SpotifyTrack{a, a, b},
			want:      []string{"spotify:track:A", "spotify:track:B"},
		},
		{
			name: "empty",
			want: []string{},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := uris(Merge(tt.immediate, tt.playlist))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Merge() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("sources are tagged", func(t *testing.T) {
		got := Merge([]SpotifyTrack{a}, []SpotifyTrack{b})
		if got[0].Source != models.SourceQueue || got[1].Source != models.SourcePlaylist {
			t.Errorf("unexpected sources %q %q", got[0].Source, got[1].Source)
		}
	})
}

func TestReconciler(t *testing.T) {
	ctx := context.Background()

	t.Run("View", func(t *testing.T) {
		t.Run("reconciles player queue and playlist", func(t *testing.T) {
			s := newTestStack(t)
			a := s.fs.AddTrack("A", "Alpha", "Artist A")
			b := s.fs.AddTrack("B", "Beta", "Artist B")
			c := s.fs.AddTrack("C", "Gamma", "Artist C")
			cur := s.fs.AddTrack("NOW", "Now", "Artist N")
			s.fs.AddPlaylist("radio", b, c, a)
			s.playlists.Adopt("radio")
			s.fs.SetPlayer(true, true, cur, a, b)

			view := s.rec.View(ctx)
			if got := uris(view.Queue); !slices.Equal(got, []string{a, b, c}) {
				t.Errorf("queue = %v, want [A B C]", got)
			}
			if view.CurrentlyPlaying == nil || view.CurrentlyPlaying.URI != cur {
				t.Errorf("unexpected currently playing %+v", view.CurrentlyPlaying)
			}
			if view.Queue[0].Artist != "Artist A" || view.Queue[0].Image == nil {
				t.Errorf("expected normalized track, got %+v", view.Queue[0])
			}
		})

		t.Run("pages through long playlists", func(t *testing.T) {
			s := newTestStack(t)
			var all []string
			for i := range 230 {
				all = append(all, models.TrackURI(fmt.Sprintf("t%03d", i)))
			}
			s.fs.AddPlaylist("radio", all...)
			s.playlists.Adopt("radio")

			view := s.rec.View(ctx)
			if len(view.Queue) != 230 {
				t.Errorf("expected 230 tracks, got %d", len(view.Queue))
			}
			if n := s.fs.Calls("GET /v1/playlists/radio/tracks"); n != 3 {
				t.Errorf("expected 3 pages, got %d", n)
			}
		})

		t.Run("sub-read failures degrade to empty", func(t *testing.T) {
			s := newTestStack(t)
			a := s.fs.AddTrack("A", "Alpha", "Artist A")
			s.fs.AddPlaylist("radio", a)
			s.playlists.Adopt("radio")
			s.fs.SetPlayer(true, true, a, a)
			s.fs.Fail("GET /v1/me/player/queue", http.StatusInternalServerError)
			s.fs.Fail("GET /v1/me/player/currently-playing", http.StatusBadGateway)

			view := s.rec.View(ctx)
			if got := uris(view.Queue); !slices.Equal(got, []string{a}) {
				t.Errorf("expected playlist items only, got %v", got)
			}
			if view.CurrentlyPlaying != nil {
				t.Errorf("expected nil currently playing, got %+v", view.CurrentlyPlaying)
			}
		})

		t.Run("unauthenticated view is empty", func(t *testing.T) {
			s := newTestStack(t)
			s.store.Clear()

			view := s.rec.View(ctx)
			if view.Queue == nil || len(view.Queue) != 0 || view.CurrentlyPlaying != nil {
				t.Errorf("expected empty view, got %+v", view)
			}
		})
	})

	t.Run("Enqueue", func(t *testing.T) {
		t.Run("track uri skips search", func(t *testing.T) {
			s := newTestStack(t)
			uri := s.fs.AddTrack("X", "Song X", "Band")
			s.fs.SetPlayer(true, true, "")

			res, err := s.rec.Enqueue(ctx, uri)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.URI != uri {
				t.Errorf("expected %s, got %s", uri, res.URI)
			}
			if n := s.fs.Calls("GET /v1/search"); n != 0 {
				t.Errorf("expected no search, got %d", n)
			}
		})

		t.Run("track link skips search", func(t *testing.T) {
			s := newTestStack(t)
			s.fs.SetPlayer(true, true, "")

			res, err := s.rec.Enqueue(ctx, "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.URI != "spotify:track:4uLU6hMCjMI75M1A2tKUQC" {
				t.Errorf("unexpected uri %s", res.URI)
			}
			if n := s.fs.Calls("GET /v1/search"); n != 0 {
				t.Errorf("expected no search, got %d", n)
			}
		})

		t.Run("name searches and takes the first result", func(t *testing.T) {
			s := newTestStack(t)
			first := s.fs.AddTrack("X", "Bohemian Rhapsody", "Queen")
			s.fs.AddTrack("Y", "Bohemian Rhapsody (Live)", "Queen")
			s.fs.SetPlayer(true, true, "")

			res, err := s.rec.Enqueue(ctx, "Bohemian Rhapsody")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.URI != first || res.Name != "Bohemian Rhapsody" {
				t.Errorf("expected first result, got %+v", res)
			}
			if !res.Queued || !res.Saved {
				t.Errorf("expected both adds to succeed, got %+v", res)
			}

			searches := 0
			for _, r := range s.fs.Requests() {
				if r.Path == "/v1/search" {
					searches++
					if r.Query.Get("limit") != "1" || r.Query.Get("type") != "track" {
						t.Errorf("unexpected search query %v", r.Query)
					}
				}
			}
			if searches != 1 {
				t.Errorf("expected one search, got %d", searches)
			}

			s.fs.Lock()
			queue := slices.Clone(s.fs.Queue)
			s.fs.Unlock()
			if !slices.Equal(queue, []string{first}) {
				t.Errorf("expected player queue [%s], got %v", first, queue)
			}
			if got, _ := s.fs.Playlist(s.playlists.ID()); !slices.Equal(got, []string{first}) {
				t.Errorf("expected playlist [%s], got %v", first, got)
			}
			if e := s.recorder.last(); e == nil || e.Kind() != models.EventEnqueue || !e.Success() || e.TrackURI() != first {
				t.Errorf("expected recorded enqueue, got %+v", e)
			}
		})

		t.Run("newest playlist entry goes first", func(t *testing.T) {
			s := newTestStack(t)
			old := s.fs.AddTrack("OLD", "Old", "Band")
			s.fs.AddPlaylist("radio", old)
			s.playlists.Adopt("radio")
			s.fs.SetPlayer(true, true, "")

			uri := s.fs.AddTrack("NEW", "New", "Band")
			if _, err := s.rec.Enqueue(ctx, uri); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got, _ := s.fs.Playlist("radio"); !slices.Equal(got, []string{uri, old}) {
				t.Errorf("expected new track at position 0, got %v", got)
			}
		})

		t.Run("no search result is not found", func(t *testing.T) {
			s := newTestStack(t)

			_, err := s.rec.Enqueue(ctx, "nothing matches this")
			if !errors.Is(err, shared.ErrTrackNotFound) {
				t.Fatalf("expected ErrTrackNotFound, got %v", err)
			}
			if n := s.fs.Calls("POST /v1/me/player/queue"); n != 0 {
				t.Errorf("expected no queue add, got %d", n)
			}
			if e := s.recorder.last(); e == nil || e.Success() {
				t.Errorf("expected failed event recorded, got %+v", e)
			}
		})

		t.Run("no session starts the radio playlist", func(t *testing.T) {
			s := newTestStack(t)
			uri := s.fs.AddTrack("X", "Song X", "Band")

			res, err := s.rec.Enqueue(ctx, uri)
			if err != nil {
				t.Fatalf("playlist add alone should succeed: %v", err)
			}
			if res.Queued || !res.Saved || !res.PlaybackStarted {
				t.Errorf("unexpected result %+v", res)
			}

			s.fs.Lock()
			defer s.fs.Unlock()
			if s.fs.Context != "spotify:playlist:"+s.playlists.ID() || !s.fs.IsPlaying {
				t.Errorf("expected playback from the radio playlist, context=%q playing=%v", s.fs.Context, s.fs.IsPlaying)
			}
		})

		t.Run("paused session resumes without a context change", func(t *testing.T) {
			s := newTestStack(t)
			cur := s.fs.AddTrack("CUR", "Current", "Band")
			uri := s.fs.AddTrack("X", "Song X", "Band")
			s.fs.SetPlayer(true, false, cur)

			res, err := s.rec.Enqueue(ctx, uri)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.PlaybackStarted {
				t.Error("expected playback resumed")
			}

			for _, r := range s.fs.Requests() {
				if r.Path == "/v1/me/player/play" && r.Body != "" {
					t.Errorf("resume must not send a body, got %q", r.Body)
				}
			}
			s.fs.Lock()
			defer s.fs.Unlock()
			if s.fs.Context != "" || s.fs.Current != cur {
				t.Errorf("context changed: %q current=%q", s.fs.Context, s.fs.Current)
			}
		})

		t.Run("playing session is left alone", func(t *testing.T) {
			s := newTestStack(t)
			uri := s.fs.AddTrack("X", "Song X", "Band")
			s.fs.SetPlayer(true, true, "")

			if _, err := s.rec.Enqueue(ctx, uri); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n := s.fs.Calls("PUT /v1/me/player/play"); n != 0 {
				t.Errorf("expected no play call, got %d", n)
			}
		})

		t.Run("fails only when both adds fail", func(t *testing.T) {
			s := newTestStack(t)
			uri := s.fs.AddTrack("X", "Song X", "Band")
			s.fs.Fail("GET /v1/me", http.StatusInternalServerError)

			_, err := s.rec.Enqueue(ctx, uri)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Fatalf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("unauthenticated", func(t *testing.T) {
			s := newTestStack(t)
			s.store.Clear()

			if _, err := s.rec.Enqueue(ctx, "anything"); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Remove", func(t *testing.T) {
		setup := func(t *testing.T) (*testStack, string, string, string) {
			s := newTestStack(t)
			a := s.fs.AddTrack("A", "Alpha", "Band")
			b := s.fs.AddTrack("B", "Beta", "Band")
			c := s.fs.AddTrack("C", "Gamma", "Band")
			s.fs.AddPlaylist("radio", a, b)
			s.playlists.Adopt("radio")
			return s, a, b, c
		}

		t.Run("playlist entry is deleted without skipping", func(t *testing.T) {
			s, a, b, c := setup(t)
			s.fs.SetPlayer(true, true, c)

			res, err := s.rec.Remove(ctx, a)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.RemovedFromPlaylist || res.Skipped {
				t.Errorf("unexpected result %+v", res)
			}
			if got, _ := s.fs.Playlist("radio"); !slices.Equal(got, []string{b}) {
				t.Errorf("expected [%s], got %v", b, got)
			}
			if n := s.fs.Calls("POST /v1/me/player/next"); n != 0 {
				t.Errorf("expected no skip, got %d", n)
			}
		})

		t.Run("matches by bare track id", func(t *testing.T) {
			s, a, _, _ := setup(t)
			id := "4uLU6hMCjMI75M1A2tKUQC"
			uri := s.fs.AddTrack(id, "Long Id", "Band")
			s.fs.AddPlaylist("radio", uri, a)
			s.fs.SetPlayer(true, true, "")

			res, err := s.rec.Remove(ctx, id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.RemovedFromPlaylist || res.URI != uri {
				t.Errorf("unexpected result %+v", res)
			}
			if got, _ := s.fs.Playlist("radio"); !slices.Equal(got, []string{a}) {
				t.Errorf("expected [%s], got %v", a, got)
			}
		})

		t.Run("playing playlist entry is deleted and skipped", func(t *testing.T) {
			s, a, _, c := setup(t)
			s.fs.SetPlayer(true, true, a, c)

			res, err := s.rec.Remove(ctx, a)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.RemovedFromPlaylist || !res.Skipped {
				t.Errorf("unexpected result %+v", res)
			}
			if n := s.fs.Calls("POST /v1/me/player/next"); n != 1 {
				t.Errorf("expected one skip, got %d", n)
			}
		})

		t.Run("next-up entry is skipped past", func(t *testing.T) {
			s, a, b, c := setup(t)
			s.fs.SetPlayer(true, true, c, a, b)

			res, err := s.rec.Remove(ctx, a)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.Skipped {
				t.Error("expected skip")
			}
			if n := s.fs.Calls("POST /v1/me/player/next"); n != 2 {
				t.Errorf("expected two skips, got %d", n)
			}
			s.fs.Lock()
			defer s.fs.Unlock()
			if s.fs.Current != b {
				t.Errorf("expected %s playing, got %s", b, s.fs.Current)
			}
		})

		t.Run("live-only track is skipped", func(t *testing.T) {
			s, _, _, c := setup(t)
			s.fs.SetPlayer(true, true, c)

			res, err := s.rec.Remove(ctx, c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.RemovedFromPlaylist || !res.Skipped {
				t.Errorf("unexpected result %+v", res)
			}
			if n := s.fs.Calls("DELETE /v1/playlists/radio/tracks"); n != 0 {
				t.Errorf("expected no playlist delete, got %d", n)
			}
		})

		t.Run("absent everywhere is not found", func(t *testing.T) {
			s, a, _, c := setup(t)
			s.fs.SetPlayer(true, true, a, a)

			_, err := s.rec.Remove(ctx, c)
			if !errors.Is(err, shared.ErrTrackNotFound) {
				t.Fatalf("expected ErrTrackNotFound, got %v", err)
			}
			if n := s.fs.Calls("POST /v1/me/player/next"); n != 0 {
				t.Errorf("expected no skip, got %d", n)
			}
		})

		t.Run("delete that does not stick is reported", func(t *testing.T) {
			s, a, _, _ := setup(t)
			s.fs.SetPlayer(true, true, "")
			s.fs.Lock()
			s.fs.StickyDeletes = 1
			s.fs.Unlock()

			_, err := s.rec.Remove(ctx, a)
			if !errors.Is(err, shared.ErrRemovalUnverified) {
				t.Fatalf("expected ErrRemovalUnverified, got %v", err)
			}
			if e := s.recorder.last(); e == nil || e.Kind() != models.EventRemove || e.Success() {
				t.Errorf("expected failed remove recorded, got %+v", e)
			}
		})

		t.Run("sticky delete of a live track is skipped but still fails", func(t *testing.T) {
			s, a, _, c := setup(t)
			s.fs.SetPlayer(true, true, a, c)
			s.fs.Lock()
			s.fs.StickyDeletes = 1
			s.fs.Unlock()

			_, err := s.rec.Remove(ctx, a)
			if !errors.Is(err, shared.ErrRemovalUnverified) {
				t.Fatalf("expected ErrRemovalUnverified, got %v", err)
			}
			s.fs.Lock()
			current := s.fs.Current
			s.fs.Unlock()
			if current == a {
				t.Error("expected the live track to be skipped anyway")
			}
		})

		t.Run("failed skip of a playing entry is reported", func(t *testing.T) {
			s, a, b, _ := setup(t)
			s.fs.SetPlayer(true, true, a)
			s.fs.Fail("POST /v1/me/player/next", http.StatusBadGateway)

			res, err := s.rec.Remove(ctx, a)
			if !errors.Is(err, shared.ErrControlFailed) {
				t.Fatalf("expected ErrControlFailed, got res=%+v err=%v", res, err)
			}
			if got, _ := s.fs.Playlist("radio"); !slices.Equal(got, []string{b}) {
				t.Errorf("expected playlist delete to stand, got %v", got)
			}
			if e := s.recorder.last(); e == nil || e.Success() {
				t.Errorf("expected failed remove recorded, got %+v", e)
			}
		})

		t.Run("failed second skip of a next-up entry is reported", func(t *testing.T) {
			s, a, _, c := setup(t)
			s.fs.SetPlayer(true, true, c, a)
			s.fs.Fail("POST /v1/me/player/next", 0, http.StatusBadGateway)

			if _, err := s.rec.Remove(ctx, a); !errors.Is(err, shared.ErrControlFailed) {
				t.Fatalf("expected ErrControlFailed, got %v", err)
			}
			s.fs.Lock()
			current := s.fs.Current
			s.fs.Unlock()
			if current != a {
				t.Errorf("expected %s left playing after the failed skip, got %s", a, current)
			}
		})

		t.Run("rejected token during the scan keeps the playlist", func(t *testing.T) {
			s, a, b, _ := setup(t)
			s.fs.SetPlayer(true, true, "")
			s.fs.Fail("GET /v1/playlists/radio/tracks", http.StatusUnauthorized, http.StatusUnauthorized)

			if _, err := s.rec.Remove(ctx, a); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Fatalf("expected ErrNotAuthenticated, got %v", err)
			}
			if s.playlists.ID() != "radio" {
				t.Errorf("expected cached playlist kept, got %q", s.playlists.ID())
			}
			if got, _ := s.fs.Playlist("radio"); !slices.Equal(got, []string{a, b}) {
				t.Errorf("expected playlist untouched, got %v", got)
			}
		})

		t.Run("invalid identifier", func(t *testing.T) {
			s, _, _, _ := setup(t)
			if _, err := s.rec.Remove(ctx, "Bohemian Rhapsody"); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("vanished playlist is forgotten", func(t *testing.T) {
			s, a, _, _ := setup(t)
			s.fs.DeletePlaylist("radio")
			s.fs.SetPlayer(true, true, "")

			if _, err := s.rec.Remove(ctx, a); !errors.Is(err, shared.ErrTrackNotFound) {
				t.Errorf("expected ErrTrackNotFound, got %v", err)
			}
			if s.playlists.ID() != "" {
				t.Error("expected playlist id forgotten")
			}
		})
	})

	t.Run("Control", func(t *testing.T) {
		vol := func(v int) *int { return &v }

		t.Run("play without context uses the radio playlist", func(t *testing.T) {
			s := newTestStack(t)
			a := s.fs.AddTrack("A", "Alpha", "Band")
			s.fs.AddPlaylist("radio", a)
			s.playlists.Adopt("radio")
			s.fs.SetPlayer(true, false, "")

			if err := s.rec.Control(ctx, models.ActionPlay, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			s.fs.Lock()
			defer s.fs.Unlock()
			if s.fs.Context != "spotify:playlist:radio" || s.fs.Current != a {
				t.Errorf("expected radio context, got %q %q", s.fs.Context, s.fs.Current)
			}
		})

		t.Run("play with a context resumes it", func(t *testing.T) {
			s := newTestStack(t)
			s.fs.SetPlayer(true, false, "")
			s.fs.Lock()
			s.fs.Context = "spotify:album:xyz"
			s.fs.Unlock()

			if err := s.rec.Control(ctx, models.ActionPlay, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			s.fs.Lock()
			defer s.fs.Unlock()
			if s.fs.Context != "spotify:album:xyz" || !s.fs.IsPlaying {
				t.Errorf("expected resumed album, got %q playing=%v", s.fs.Context, s.fs.IsPlaying)
			}
		})

		t.Run("pause and next pass through", func(t *testing.T) {
			s := newTestStack(t)
			s.fs.SetPlayer(true, true, "")

			if err := s.rec.Control(ctx, models.ActionPause, nil); err != nil {
				t.Fatalf("pause: %v", err)
			}
			if err := s.rec.Control(ctx, models.ActionNext, nil); err != nil {
				t.Fatalf("next: %v", err)
			}
			if s.fs.Calls("PUT /v1/me/player/pause") != 1 || s.fs.Calls("POST /v1/me/player/next") != 1 {
				t.Error("expected one pause and one next")
			}
		})

		t.Run("volume", func(t *testing.T) {
			s := newTestStack(t)
			s.fs.SetPlayer(true, true, "")

			if err := s.rec.Control(ctx, models.ActionVolume, nil); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
			if err := s.rec.Control(ctx, models.ActionVolume, vol(101)); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if err := s.rec.Control(ctx, models.ActionVolume, vol(30)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			s.fs.Lock()
			defer s.fs.Unlock()
			if s.fs.Volume != 30 {
				t.Errorf("expected volume 30, got %d", s.fs.Volume)
			}
		})

		t.Run("spotify failure is a control error with its message", func(t *testing.T) {
			s := newTestStack(t)

			err := s.rec.Control(ctx, models.ActionPause, nil)
			if !errors.Is(err, shared.ErrControlFailed) {
				t.Fatalf("expected ErrControlFailed, got %v", err)
			}
			if !strings.Contains(err.Error(), "No active device found") {
				t.Errorf("expected spotify message, got %v", err)
			}
			if e := s.recorder.last(); e == nil || e.Kind() != models.EventControl || e.Success() {
				t.Errorf("expected failed control recorded, got %+v", e)
			}
		})

		t.Run("unknown action", func(t *testing.T) {
			s := newTestStack(t)
			if err := s.rec.Control(ctx, models.Action("rewind"), nil); !errors.Is(err, shared.ErrInvalidAction) {
				t.Errorf("expected ErrInvalidAction, got %v", err)
			}
		})
	})

	t.Run("Search", func(t *testing.T) {
		s := newTestStack(t)
		for i := range 30 {
			s.fs.AddTrack("S"+strconv.Itoa(i), "Song "+strconv.Itoa(i), "Band")
		}

		tracks, total, err := s.rec.Search(ctx, "song", 50)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 20 || total != 30 {
			t.Errorf("expected 20 of 30, got %d of %d", len(tracks), total)
		}

		if _, _, err := s.rec.Search(ctx, "  ", 5); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("NowPlaying", func(t *testing.T) {
		t.Run("no token", func(t *testing.T) {
			s := newTestStack(t)
			s.store.Clear()

			np := s.rec.NowPlaying(ctx)
			if np.Playing || np.Track != nil {
				t.Errorf("expected nothing playing, got %+v", np)
			}
			if n := len(s.fs.Requests()); n != 0 {
				t.Errorf("expected no requests, got %d", n)
			}
		})

		t.Run("playing", func(t *testing.T) {
			s := newTestStack(t)
			a := s.fs.AddTrack("A", "Alpha", "Band")
			s.fs.SetPlayer(true, true, a)

			np := s.rec.NowPlaying(ctx)
			if !np.Playing || np.Track == nil || np.Track.Name != "Alpha" || np.Track.Artist != "Band" {
				t.Errorf("unexpected now playing %+v", np)
			}
		})
	})

	t.Run("Status", func(t *testing.T) {
		s := newTestStack(t)
		if auth, has := s.rec.Status(ctx); !auth || !has {
			t.Errorf("expected authenticated, got %v %v", auth, has)
		}

		s.store.SetTokens("access-0", "revoked", 0)
		if auth, has := s.rec.Status(ctx); auth || has {
			t.Errorf("expected failed refresh to clear, got %v %v", auth, has)
		}
	})
}
