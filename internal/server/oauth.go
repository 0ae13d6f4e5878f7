package server

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/shared"
)

// StateTTL bounds how long a login attempt may take.
const StateTTL = 10 * time.Minute

// stateStore remembers issued OAuth state values until they are used once or expire.
type stateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

func newStateStore(ttl time.Duration, now func() time.Time) *stateStore {
	return &stateStore{states: make(map[string]time.Time), ttl: ttl, now: now}
}

func (s *stateStore) issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}

	state := shared.GenerateID()
	s.states[state] = now.Add(s.ttl)
	return state
}

// consume reports whether state was issued and is unexpired, and forgets it either way.
func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.states[state]
	delete(s.states, state)
	return ok && !s.now().After(exp)
}

// OAuthHandler handles the browser side of the authorization code flow: a login redirect to
// Spotify and the callback that completes it.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	auth        Authenticator
	redirectURI string
	states      *stateStore
	logger      *log.Logger
}

// NewOAuthHandler creates an OAuth handler. redirectURI must be the callback URI registered
// with Spotify and routed to this server.
func NewOAuthHandler(auth Authenticator, redirectURI string, logger *log.Logger) *OAuthHandler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &OAuthHandler{
		auth:        auth,
		redirectURI: redirectURI,
		states:      newStateStore(StateTTL, time.Now),
		logger:      logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"GET /api/spotify/login", "GET /callback"}
}

// ServeHTTP dispatches between the login redirect and the callback.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/callback" {
		h.callback(w, r)
		return
	}
	h.login(w, r)
}

func (h *OAuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if h.redirectURI == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Spotify redirect URI is not configured on the server"})
		return
	}

	url, err := h.auth.AuthURL(h.redirectURI, h.states.issue())
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// callback validates the state parameter (CSRF protection) exactly once, then exchanges the
// authorization code for tokens.
func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if !h.states.consume(q.Get("state")) {
		h.logger.Warn("oauth callback with unknown or expired state")
		writeError(w, shared.ErrInvalidState)
		return
	}

	code := q.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: authorization failed: %s %s", shared.ErrMissingArgument, q.Get("error"), q.Get("error_description"))
		writeError(w, err)
		return
	}

	if _, err := h.auth.Login(r.Context(), code, h.redirectURI); err != nil {
		h.logger.Error("oauth callback exchange failed", "err", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Jukebox Connected</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Jukebox connected to Spotify</h1>
        <p>Guests can start queueing songs. You can close this window.</p>
    </div>
</body>
</html>
`
