// Package ui implements the jukebox watch console using bubbletea's Elm architecture.
//
// The console polls a running jukebox server for the reconciled queue and the current track,
// and renders them with lipgloss. The (view) [Model] implements the standard Init/Update/View
// pattern, receiving messages via the Msg union type.
//
// Keys: r refreshes, space toggles play/pause, n skips, x removes the selected track, q quits.
// Playback and removal keys go through the admin-gated routes and need the admin password.
package ui
