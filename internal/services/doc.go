// Package services talks to Spotify on behalf of the jukebox and keeps its queue coherent.
//
// # Tokens
//
// [TokenStore] holds the single access/refresh token pair shared by every request. A token
// counts as expired five minutes before Spotify's deadline so in-flight calls never race it.
// [TokenExchanger] wraps golang.org/x/oauth2 for the authorization-code and refresh grants.
//
// # Gateway
//
// Every Web API call goes through [Gateway.Call]. It refreshes a stale token first, attaches
// the bearer header, and on a 401 refreshes once and retries once. Concurrent refreshes are
// collapsed with singleflight. A refresh that fails clears the store.
//
// # Queue
//
// Spotify's player queue cannot be edited, so the jukebox mirrors every request into a private
// "radio" playlist managed by [PlaylistManager]. [Reconciler] merges the two into one view
// and removes tracks by deleting the playlist entry, falling back to skipping when the track
// has already reached the live session.
//
// # Errors
//
// Operations return sentinel errors from the shared package, wrapped with context:
//   - [shared.ErrNotAuthenticated] : no usable token, or the refresh was rejected
//   - [shared.ErrTrackNotFound] : search had no result, or a removal target is nowhere
//   - [shared.ErrRemovalUnverified] : the playlist still lists a deleted track
//   - [shared.ErrControlFailed] : a playback command was refused
//   - [shared.ErrAPIRequest] : any other Spotify failure, as an [*APIError]
//
// [APIService] is the client side: it talks to a running jukebox server over HTTP.
package services
