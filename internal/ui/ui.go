package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/services"
)

// DefaultInterval is how often the console polls the server.
const DefaultInterval = 5 * time.Second

// Client is the part of the jukebox API the console uses. [services.APIService] implements it.
type Client interface {
	Queue(ctx context.Context) (*models.QueueView, error)
	NowPlaying(ctx context.Context) (*models.NowPlaying, error)
	Control(ctx context.Context, action models.Action, volume *int) (*services.ActionResponse, error)
	Remove(ctx context.Context, identifier string) (*services.ActionResponse, error)
}

// Model represents the console state.
type Model struct {
	ctx        context.Context
	client     Client
	admin      bool
	interval   time.Duration
	width      int
	height     int
	queue      list.Model
	nowPlaying *models.NowPlaying
	status     string
	err        error
	help       help.Model
	keys       keyMap
}

// NewModel creates a console model. admin enables the playback and removal keys; the client
// must then carry the admin password.
func NewModel(ctx context.Context, client Client, admin bool, interval time.Duration) *Model {
	if interval <= 0 {
		interval = DefaultInterval
	}

	queue := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	queue.Title = "Up Next"
	queue.SetShowHelp(false)
	queue.SetFilteringEnabled(false)

	return &Model{
		ctx:      ctx,
		client:   client,
		admin:    admin,
		interval: interval,
		queue:    queue,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init fetches the queue and the current track, and starts polling.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.queue.SetSize(msg.Width-4, max(msg.Height-12, 4))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTick:
		return m, tea.Batch(m.refresh(), m.tick())

	case MsgQueueFetched:
		data := msg.data.(queueFetched)
		m.err = data.err
		if data.err == nil {
			items := make([]list.Item, len(data.view.Queue))
			for i, t := range data.view.Queue {
				items[i] = trackItem{track: t}
			}
			return m, m.queue.SetItems(items)
		}

	case MsgNowPlayingFetched:
		data := msg.data.(nowPlayingFetched)
		if data.err != nil {
			m.err = data.err
		} else {
			m.nowPlaying = data.np
		}

	case MsgActionDone:
		data := msg.data.(actionDone)
		if data.err != nil {
			m.status = styles.err.Render(data.err.Error())
			return m, nil
		}
		m.status = styles.ok.Render(data.message)
		return m, m.refresh()
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		m.status = ""
		return m, m.refresh()
	case key.Matches(msg, m.keys.toggle):
		action := models.ActionPlay
		if m.nowPlaying != nil && m.nowPlaying.Playing {
			action = models.ActionPause
		}
		return m, m.control(action)
	case key.Matches(msg, m.keys.next):
		return m, m.control(models.ActionNext)
	case key.Matches(msg, m.keys.remove):
		return m, m.removeSelected()
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}

// View renders the current track, the queue and the key help.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Jukebox"))
	b.WriteString("\n")
	b.WriteString(styles.playing.Render(m.renderNowPlaying()))
	b.WriteString("\n\n")
	b.WriteString(m.queue.View())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}

	keys := []key.Binding{m.keys.refresh, m.keys.quit}
	if m.admin {
		keys = m.keys.ShortHelp()
	}
	b.WriteString(m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) renderNowPlaying() string {
	np := m.nowPlaying
	if np == nil || np.Track == nil {
		return styles.help.Render("Nothing playing")
	}

	state := "▶"
	if !np.Playing {
		state = "⏸"
	}
	return fmt.Sprintf("%s %s\n  %s", state, np.Track.Name, styles.help.Render(np.Track.Artist))
}

func (m *Model) refresh() tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			view, err := m.client.Queue(m.ctx)
			return queueFetchedMsg(view, err)
		},
		func() tea.Msg {
			np, err := m.client.NowPlaying(m.ctx)
			return nowPlayingFetchedMsg(np, err)
		},
	)
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg() })
}

func (m *Model) control(action models.Action) tea.Cmd {
	if !m.admin {
		m.status = styles.warn.Render("Playback control needs --password")
		return nil
	}
	return func() tea.Msg {
		resp, err := m.client.Control(m.ctx, action, nil)
		if err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg(resp.Message, nil)
	}
}

func (m *Model) removeSelected() tea.Cmd {
	if !m.admin {
		m.status = styles.warn.Render("Removing tracks needs --password")
		return nil
	}
	item, ok := m.queue.SelectedItem().(trackItem)
	if !ok {
		return nil
	}
	uri := item.track.URI
	return func() tea.Msg {
		resp, err := m.client.Remove(m.ctx, uri)
		if err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg(resp.Message, nil)
	}
}
