// Package models defines domain entities and persistence interfaces for the jukebox service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs exchanged with clients
//   - [Track] : Normalized song metadata with its queue [Source]
//   - [QueueView] : The reconciled queue plus the currently playing track
//   - [NowPlaying] : Trimmed playback state for polling clients
//   - [Action] : Admin playback command parsed from the wire
//
// 2. Persistent Entities: Database-backed models
//   - [QueueEvent] : Request history for enqueue, remove and control outcomes
//
// Persistent entities implement the Model interface providing IDs, timestamps and validation.
package models
