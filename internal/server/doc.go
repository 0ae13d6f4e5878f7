// Package server exposes the jukebox over HTTP.
//
// # Routes
//
// The [APIHandler] serves the JSON API under /api/spotify: token setup, status, the
// reconciled queue (GET to view, POST to enqueue, DELETE to remove), playback control,
// now-playing, search and request history. /healthz answers {"status":"ok"}.
//
// Every error body is {"error": message}; the status code carries the class (400 bad input,
// 401 authentication, 404 not found, 429 rate limited, 504 timeout, 500 anything else).
// Queue listing and now-playing never fail and degrade to empty results.
//
// # Middleware
//
// [Middleware] wraps handlers following the standard Go pattern. [ChiRouter] registers them
// on a chi mux, alongside chi's RequestID, RealIP and Recoverer.
//   - [RequestLogger] logs each request with its request id
//   - [AdminOnly] checks the "password" header before remove and control reach Spotify
//   - [RateLimit] caps anonymous enqueues per client address
//
// # OAuth Login
//
// [OAuthHandler] redirects /api/spotify/login to Spotify's authorize page with a single-use
// state value and completes the exchange on /callback. It is an alternative to posting an
// authorization code to /api/spotify/token.
package server
