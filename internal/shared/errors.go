package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("spotify client credentials are not configured")
	ErrMissingPassword    = fmt.Errorf("admin password is not configured")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("spotify is not authenticated, run the one-time setup again")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrExchangeFailed   = fmt.Errorf("authorization code exchange failed")
	ErrInvalidState     = fmt.Errorf("invalid or expired oauth state")
	ErrUnauthorized     = fmt.Errorf("Unauthorized")

	// API and service errors
	ErrAPIRequest        = fmt.Errorf("spotify request failed")
	ErrTimeout           = fmt.Errorf("spotify request timed out")
	ErrRateLimited       = fmt.Errorf("too many requests")
	ErrTrackNotFound     = fmt.Errorf("track not found")
	ErrRemovalUnverified = fmt.Errorf("track may not have been removed")
	ErrControlFailed     = fmt.Errorf("playback control failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidAction   = fmt.Errorf("invalid action")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
