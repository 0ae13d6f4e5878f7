package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/jukebox/internal/shared"
)

// Action is an admin playback command.
type Action string

const (
	ActionPlay   Action = "play"
	ActionPause  Action = "pause"
	ActionNext   Action = "next"
	ActionVolume Action = "volume"
)

// Actions lists every accepted [Action].
var Actions = []Action{ActionPlay, ActionPause, ActionNext, ActionVolume}

// ParseAction maps a wire name onto an [Action], rejecting anything unknown with [shared.ErrInvalidAction].
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionPlay, ActionPause, ActionNext, ActionVolume:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", shared.ErrInvalidAction, s)
}

func (a Action) String() string { return string(a) }
