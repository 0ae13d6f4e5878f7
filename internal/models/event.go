package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/jukebox/internal/shared"
)

// EventKind names the jukebox action a [QueueEvent] records.
type EventKind string

const (
	EventEnqueue EventKind = "enqueue"
	EventRemove  EventKind = "remove"
	EventControl EventKind = "control"
)

var _ Model = (*QueueEvent)(nil)

// ParseEventKind maps a history filter onto an [EventKind]. Blank selects every kind.
func ParseEventKind(s string) (EventKind, error) {
	switch k := EventKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", EventEnqueue, EventRemove, EventControl:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown event kind %q", shared.ErrInvalidInput, s)
}

// QueueEvent is one recorded enqueue, remove or control outcome.
type QueueEvent struct {
	id        string
	sequence  int
	kind      EventKind
	trackURI  string
	trackName string
	detail    string
	success   bool
	client    string
	createdAt time.Time
	updatedAt time.Time
}

// NewQueueEvent creates an unsaved event stamped with the current time.
func NewQueueEvent(kind EventKind, trackURI, trackName, detail string, success bool) *QueueEvent {
	now := time.Now().UTC()
	return &QueueEvent{
		kind:      kind,
		trackURI:  trackURI,
		trackName: trackName,
		detail:    detail,
		success:   success,
		createdAt: now,
		updatedAt: now,
	}
}

func (e *QueueEvent) ID() string           { return e.id }
func (e *QueueEvent) Sequence() int        { return e.sequence }
func (e *QueueEvent) Kind() EventKind      { return e.kind }
func (e *QueueEvent) TrackURI() string     { return e.trackURI }
func (e *QueueEvent) TrackName() string    { return e.trackName }
func (e *QueueEvent) Detail() string       { return e.detail }
func (e *QueueEvent) Success() bool        { return e.success }
func (e *QueueEvent) Client() string       { return e.client }
func (e *QueueEvent) CreatedAt() time.Time { return e.createdAt }
func (e *QueueEvent) UpdatedAt() time.Time { return e.updatedAt }

func (e *QueueEvent) SetID(id string)          { e.id = id }
func (e *QueueEvent) SetSequence(seq int)      { e.sequence = seq }
func (e *QueueEvent) SetClient(client string)  { e.client = client }
func (e *QueueEvent) SetDetail(detail string)  { e.detail = detail }
func (e *QueueEvent) SetCreatedAt(t time.Time) { e.createdAt = t }
func (e *QueueEvent) SetUpdatedAt(t time.Time) { e.updatedAt = t }
func (e *QueueEvent) SetTrackName(name string) { e.trackName = name }
func (e *QueueEvent) SetSuccess(success bool)  { e.success = success }
func (e *QueueEvent) SetTrackURI(uri string)   { e.trackURI = uri }
func (e *QueueEvent) SetKind(kind EventKind)   { e.kind = kind }

// Validate checks the event kind is known and timestamps are set.
func (e *QueueEvent) Validate() error {
	switch e.kind {
	case EventEnqueue, EventRemove, EventControl:
	default:
		return fmt.Errorf("%w: unknown event kind %q", shared.ErrInvalidInput, e.kind)
	}
	if e.createdAt.IsZero() {
		return fmt.Errorf("%w: created_at is required", shared.ErrInvalidInput)
	}
	return nil
}

// EventView is the JSON projection of a [QueueEvent].
type EventView struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	TrackURI  string    `json:"track_uri,omitempty"`
	TrackName string    `json:"track_name,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// View projects the event for clients; the client address is never exposed.
func (e *QueueEvent) View() EventView {
	return EventView{
		ID:        e.id,
		Kind:      e.kind,
		TrackURI:  e.trackURI,
		TrackName: e.trackName,
		Detail:    e.detail,
		Success:   e.success,
		CreatedAt: e.createdAt,
	}
}
