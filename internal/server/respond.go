package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/jukebox/internal/services"
	"github.com/desertthunder/jukebox/internal/shared"
)

const notAuthenticatedMessage = "Spotify is not authenticated. Complete the one-time setup with POST /api/spotify/token or GET /api/spotify/login"

// statusFor maps an error to the HTTP status that describes its class.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrUnauthorized),
		errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrNoRefreshToken):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidAction),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidState),
		rejectedGrant(err):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrTrackNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// rejectedGrant reports a token exchange Spotify refused as a bad request, such as an
// invalid or reused code. Outages and timeouts at the token endpoint are not client errors.
func rejectedGrant(err error) bool {
	var apiErr *services.APIError
	return errors.Is(err, shared.ErrExchangeFailed) && errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest
}

// messageFor is the client-facing text for err.
func messageFor(err error) string {
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		return shared.ErrUnauthorized.Error()
	case errors.Is(err, shared.ErrNotAuthenticated):
		return notAuthenticatedMessage
	case errors.Is(err, shared.ErrMissingCredentials):
		return "Spotify client credentials are not configured on the server"
	case errors.Is(err, shared.ErrMissingPassword):
		return "Admin password is not configured on the server"
	case errors.Is(err, shared.ErrRemovalUnverified):
		return "Removal could not be verified; the track may still be in the queue. " + err.Error()
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg} with the status for err's class.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": messageFor(err)})
}

type actionResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
}

func writeSuccess(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: message})
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: malformed JSON body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}
