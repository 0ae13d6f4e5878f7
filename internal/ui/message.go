package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jukebox/internal/models"
)

// MsgKind enumerates all message types in the console.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgQueueFetched MsgKind = iota
	MsgNowPlayingFetched
	MsgActionDone
	MsgTick
)

type queueFetched struct {
	view *models.QueueView
	err  error
}

type nowPlayingFetched struct {
	np  *models.NowPlaying
	err error
}

type actionDone struct {
	message string
	err     error
}

// queueFetchedMsg is the constructor for [MsgQueueFetched]
func queueFetchedMsg(view *models.QueueView, err error) Msg {
	return Msg{kind: MsgQueueFetched, data: queueFetched{view, err}}
}

// nowPlayingFetchedMsg is the constructor for [MsgNowPlayingFetched]
func nowPlayingFetchedMsg(np *models.NowPlaying, err error) Msg {
	return Msg{kind: MsgNowPlayingFetched, data: nowPlayingFetched{np, err}}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(message string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionDone{message, err}}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg() Msg {
	return Msg{kind: MsgTick}
}
