package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/services"
)

type fakeClient struct {
	view     *models.QueueView
	np       *models.NowPlaying
	actions  []models.Action
	removed  []string
	queueErr error
	ctrlErr  error
}

func (f *fakeClient) Queue(context.Context) (*models.QueueView, error) {
	if f.queueErr != nil {
		return nil, f.queueErr
	}
	return f.view, nil
}

func (f *fakeClient) NowPlaying(context.Context) (*models.NowPlaying, error) {
	return f.np, nil
}

func (f *fakeClient) Control(_ context.Context, action models.Action, _ *int) (*services.ActionResponse, error) {
	f.actions = append(f.actions, action)
	if f.ctrlErr != nil {
		return nil, f.ctrlErr
	}
	return &services.ActionResponse{Success: true, Message: "done " + string(action)}, nil
}

func (f *fakeClient) Remove(_ context.Context, id string) (*services.ActionResponse, error) {
	f.removed = append(f.removed, id)
	return &services.ActionResponse{Success: true, Message: "Removed track from the queue"}, nil
}

// drain runs cmd and every command it batches, feeding the messages back into m.
// Ticks are not followed so the loop ends.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			drain(t, m, c)
		}
	case Msg:
		if msg.kind == MsgTick {
			return
		}
		_, next := m.Update(msg)
		drain(t, m, next)
	}
}

func newFake() *fakeClient {
	return &fakeClient{
		view: &models.QueueView{Queue: []models.Track{
			{Name: "Song One", Artist: "Artist One", URI: "spotify:track:a", Source: models.SourceQueue},
			{Name: "Song Two", Artist: "Artist Two", URI: "spotify:track:b", Source: models.SourcePlaylist},
		}},
		np: &models.NowPlaying{Playing: true, Track: &models.NowPlayingTrack{Name: "Now Song", Artist: "Now Artist"}},
	}
}

func keyPress(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh loads queue and now playing", func(t *testing.T) {
		client := newFake()
		m := NewModel(ctx, client, false, 0)
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
		drain(t, m, m.refresh())

		if got := len(m.queue.Items()); got != 2 {
			t.Fatalf("expected 2 items, got %d", got)
		}
		view := m.View()
		for _, want := range []string{"Now Song", "Song One", "Song Two"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q", want)
			}
		}
	})

	t.Run("queue errors are shown", func(t *testing.T) {
		client := newFake()
		client.queueErr = errors.New("server unreachable")
		m := NewModel(ctx, client, false, 0)
		drain(t, m, m.refresh())

		if !strings.Contains(m.View(), "server unreachable") {
			t.Error("expected error in view")
		}
	})

	t.Run("space pauses when playing", func(t *testing.T) {
		client := newFake()
		m := NewModel(ctx, client, true, 0)
		drain(t, m, m.refresh())

		_, cmd := m.Update(keyPress(" "))
		drain(t, m, cmd)

		if len(client.actions) != 1 || client.actions[0] != models.ActionPause {
			t.Errorf("expected pause, got %v", client.actions)
		}
	})

	t.Run("space plays when paused", func(t *testing.T) {
		client := newFake()
		client.np.Playing = false
		m := NewModel(ctx, client, true, 0)
		drain(t, m, m.refresh())

		_, cmd := m.Update(keyPress(" "))
		drain(t, m, cmd)

		if len(client.actions) != 1 || client.actions[0] != models.ActionPlay {
			t.Errorf("expected play, got %v", client.actions)
		}
	})

	t.Run("control keys need admin", func(t *testing.T) {
		client := newFake()
		m := NewModel(ctx, client, false, 0)

		_, cmd := m.Update(keyPress("n"))
		if cmd != nil {
			drain(t, m, cmd)
		}
		if len(client.actions) != 0 {
			t.Errorf("expected no control calls, got %v", client.actions)
		}
		if !strings.Contains(m.View(), "--password") {
			t.Error("expected password hint")
		}
	})

	t.Run("control failure is shown", func(t *testing.T) {
		client := newFake()
		client.ctrlErr = errors.New("jukebox: Unauthorized (status 401)")
		m := NewModel(ctx, client, true, 0)

		_, cmd := m.Update(keyPress("n"))
		drain(t, m, cmd)

		if !strings.Contains(m.View(), "Unauthorized") {
			t.Error("expected control error in view")
		}
	})

	t.Run("x removes the selected track", func(t *testing.T) {
		client := newFake()
		m := NewModel(ctx, client, true, 0)
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
		drain(t, m, m.refresh())

		_, cmd := m.Update(keyPress("x"))
		drain(t, m, cmd)

		if len(client.removed) != 1 || client.removed[0] != "spotify:track:a" {
			t.Errorf("expected first track removed, got %v", client.removed)
		}
	})

	t.Run("q quits", func(t *testing.T) {
		m := NewModel(ctx, newFake(), false, 0)
		_, cmd := m.Update(keyPress("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}
