package models

import (
	"regexp"
	"strings"
)

// Source tags where a queued track came from.
type Source string

const (
	SourceQueue    Source = "queue"    // Spotify's immediate player queue
	SourcePlaylist Source = "playlist" // the managed radio playlist
)

// Track is the normalized song shape handed to clients.
type Track struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	Image      *string `json:"image"`
	URI        string  `json:"uri"`
	DurationMS int     `json:"duration_ms"`
	Source     Source  `json:"source,omitempty"`
}

// QueueView is the reconciled queue returned to clients.
type QueueView struct {
	Queue            []Track `json:"queue"`
	CurrentlyPlaying *Track  `json:"currently_playing"`
}

// NowPlayingTrack is the trimmed track shape used by the now-playing endpoint.
type NowPlayingTrack struct {
	Name   string  `json:"name"`
	Artist string  `json:"artist"`
	Image  *string `json:"image"`
}

// NowPlaying reports whether something is playing and what.
type NowPlaying struct {
	Playing bool             `json:"playing"`
	Track   *NowPlayingTrack `json:"track"`
}

const trackURIPrefix = "spotify:track:"

var (
	trackURIPattern = regexp.MustCompile(`^spotify:track:([A-Za-z0-9]+)$`)
	trackURLPattern = regexp.MustCompile(`^(?:https?://)?open\.spotify\.com/(?:intl-[a-z]+/)?track/([A-Za-z0-9]+)`)
	trackIDPattern  = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
)

// IsTrackURI reports whether s is a canonical Spotify track URI.
func IsTrackURI(s string) bool {
	return trackURIPattern.MatchString(strings.TrimSpace(s))
}

// TrackURI builds the canonical URI for a bare track id.
func TrackURI(id string) string {
	return trackURIPrefix + id
}

// TrackIDFromURI returns the id portion of a track URI, or the input when it is not one.
func TrackIDFromURI(uri string) string {
	if m := trackURIPattern.FindStringSubmatch(uri); m != nil {
		return m[1]
	}
	return uri
}

// NormalizeTrackURI turns a track URI, an open.spotify.com track link, or a bare
// 22 character track id into a canonical track URI. ok is false for anything else.
func NormalizeTrackURI(input string) (uri string, ok bool) {
	input = strings.TrimSpace(input)
	switch {
	case trackURIPattern.MatchString(input):
		return input, true
	case trackURLPattern.MatchString(input):
		return TrackURI(trackURLPattern.FindStringSubmatch(input)[1]), true
	case trackIDPattern.MatchString(input):
		return TrackURI(input), true
	}
	return "", false
}

// SameTrack reports whether a track URI matches target, given as a URI or a bare id.
func SameTrack(uri, target string) bool {
	return TrackIDFromURI(uri) == TrackIDFromURI(target)
}
