package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/tunelark/crossfade/internal/shared"
)

// Exchanger is the slice of the OAuth2 authenticator the loopback flow needs.
// The Spotify authenticator satisfies it.
type Exchanger interface {
	AuthURL(state string, opts ...oauth2.AuthCodeOption) string
	Token(ctx context.Context, state string, r *http.Request, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// TokenResult is the outcome of one authorization flow.
type TokenResult struct {
	Token *oauth2.Token
	err   error
}

func (r TokenResult) Err() error { return r.err }

// Loopback serves a single OAuth callback on the redirect URI's address.
type Loopback struct {
	auth   Exchanger
	state  string
	addr   string
	path   string
	logger *log.Logger

	result chan TokenResult
	once   sync.Once
	mu     sync.Mutex
	served bool
}

// NewLoopback creates a Loopback listening on the host and port of the given
// redirect URI. The state token guards the callback against CSRF; use
// [RandomState] unless a fixed one is needed for testing.
func NewLoopback(auth Exchanger, redirectURI, state string, logger *log.Logger) (*Loopback, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect URI: %v", shared.ErrInvalidConfig, err)
	}
	if u.Port() == "" {
		return nil, fmt.Errorf("%w: redirect URI needs an explicit port", shared.ErrInvalidConfig)
	}
	path := u.Path
	if path == "" {
		path = "/callback"
	}

	return &Loopback{
		auth:   auth,
		state:  state,
		addr:   u.Host,
		path:   path,
		logger: logger,
		result: make(chan TokenResult, 1),
	}, nil
}

// RandomState returns a fresh unguessable state token.
func RandomState() string { return shared.GenerateID() }

// AuthURL returns the provider URL the user must visit to authorize.
func (l *Loopback) AuthURL() string { return l.auth.AuthURL(l.state) }

// Listen serves the callback until one authorization completes, the context
// is canceled, or the server fails to bind. The server is always shut down
// before returning.
func (l *Loopback) Listen(ctx context.Context) (*oauth2.Token, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(l.path, l.handleCallback)
	srv := &http.Server{Addr: l.addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.send(TokenResult{err: fmt.Errorf("callback server failed: %w", err)})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.logger.Warn("failed to shut down callback server", "error", err)
		}
	}()

	select {
	case res := <-l.result:
		if res.Err() != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, res.Err())
		}
		return res.Token, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", shared.ErrTimeout, ctx.Err())
	}
}

// handleCallback validates the state parameter, exchanges the code and
// reports the result. Repeat hits after the first are rejected.
func (l *Loopback) handleCallback(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	if l.served {
		l.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	l.served = true
	l.mu.Unlock()

	if st := r.FormValue("state"); st != l.state {
		l.send(TokenResult{err: fmt.Errorf("state mismatch")})
		http.Error(w, "State mismatch", http.StatusForbidden)
		return
	}

	token, err := l.auth.Token(r.Context(), l.state, r)
	if err != nil {
		l.send(TokenResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, successPage)
	l.send(TokenResult{Token: token})
}

// send delivers the result exactly once.
func (l *Loopback) send(res TokenResult) {
	l.once.Do(func() {
		l.result <- res
		close(l.result)
	})
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
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
        <h1>Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
