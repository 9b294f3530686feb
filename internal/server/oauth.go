package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// AuthResult carries the outcome of a browser authorization flow.
type AuthResult struct {
	Token *oauth2.Token
	err   error
}

func (a *AuthResult) Error() error {
	return a.err
}

// AuthCallbackHandler receives the OAuth2 redirect during the
// authorization-code flow and exchanges the code for a token. It serves a
// single callback and delivers exactly one [AuthResult].
type AuthCallbackHandler struct {
	config  *oauth2.Config
	state   string
	results chan AuthResult
	once    sync.Once
	mu      sync.Mutex
	handled bool
}

// NewAuthCallbackHandler creates a callback handler. The state token must be
// random per flow; it is compared against the redirect's state parameter.
func NewAuthCallbackHandler(config *oauth2.Config, state string) *AuthCallbackHandler {
	return &AuthCallbackHandler{
		config:  config,
		state:   state,
		results: make(chan AuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthCallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP validates the state parameter, exchanges the authorization code,
// and delivers the result. Repeat callbacks are rejected.
func (h *AuthCallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.handled {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.handled = true
	h.mu.Unlock()

	if state := r.URL.Query().Get("state"); state != h.state {
		h.deliver(AuthResult{err: fmt.Errorf("state mismatch on callback")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		name := r.URL.Query().Get("error")
		desc := r.URL.Query().Get("error_description")
		h.deliver(AuthResult{err: fmt.Errorf("authorization denied: %s - %s", name, desc)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(context.Background(), code)
	if err != nil {
		h.deliver(AuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.deliver(AuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>mixtape</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #111; }
        .card { text-align: center; background: #1c1c1c; color: #eee; padding: 2rem;
                border-radius: 8px; }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #999; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>Signed in</h1>
        <p>You can close this tab and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// deliver sends the result exactly once and closes the channel.
func (h *AuthCallbackHandler) deliver(result AuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result returns the channel that receives the flow outcome. It yields one
// value and is then closed.
func (h *AuthCallbackHandler) Result() <-chan AuthResult {
	return h.results
}
