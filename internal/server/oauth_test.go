package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/tunelark/crossfade/internal/shared"
)

// fakeExchanger implements [Exchanger] without talking to a provider.
type fakeExchanger struct {
	token    *oauth2.Token
	tokenErr error
	states   []string
}

func (f *fakeExchanger) AuthURL(state string, opts ...oauth2.AuthCodeOption) string {
	return "https://provider.example.com/authorize?state=" + state
}

func (f *fakeExchanger) Token(ctx context.Context, state string, r *http.Request, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	f.states = append(f.states, state)
	return f.token, f.tokenErr
}

func newTestLoopback(t *testing.T, auth Exchanger) *Loopback {
	t.Helper()
	logger := shared.NewLogger(io.Discard)
	l, err := NewLoopback(auth, "http://localhost:8888/callback", "state-token", logger)
	if err != nil {
		t.Fatalf("NewLoopback() error = %v", err)
	}
	return l
}

func TestNewLoopback(t *testing.T) {
	t.Run("rejects a redirect URI without a port", func(t *testing.T) {
		_, err := NewLoopback(&fakeExchanger{}, "http://localhost/callback", "s", shared.NewLogger(io.Discard))
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("defaults the callback path", func(t *testing.T) {
		l, err := NewLoopback(&fakeExchanger{}, "http://localhost:8888", "s", shared.NewLogger(io.Discard))
		if err != nil {
			t.Fatalf("NewLoopback() error = %v", err)
		}
		if l.path != "/callback" {
			t.Errorf("path = %q, want /callback", l.path)
		}
	})

	t.Run("AuthURL carries the state", func(t *testing.T) {
		l := newTestLoopback(t, &fakeExchanger{})
		if got := l.AuthURL(); !strings.Contains(got, "state=state-token") {
			t.Errorf("AuthURL() = %q, want the state parameter", got)
		}
	})
}

func TestHandleCallback(t *testing.T) {
	t.Run("exchanges the code and reports the token", func(t *testing.T) {
		auth := &fakeExchanger{token: &oauth2.Token{AccessToken: "access"}}
		l := newTestLoopback(t, auth)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/callback?state=state-token&code=abc", nil)
		l.handleCallback(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Errorf("body = %q, want the success page", rec.Body.String())
		}

		res := <-l.result
		if res.Err() != nil {
			t.Fatalf("result error = %v", res.Err())
		}
		if res.Token.AccessToken != "access" {
			t.Errorf("token = %+v, want the exchanged token", res.Token)
		}
	})

	t.Run("rejects a state mismatch", func(t *testing.T) {
		auth := &fakeExchanger{token: &oauth2.Token{AccessToken: "access"}}
		l := newTestLoopback(t, auth)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/callback?state=forged&code=abc", nil)
		l.handleCallback(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
		if len(auth.states) != 0 {
			t.Error("token exchange should not run on a state mismatch")
		}
		if res := <-l.result; res.Err() == nil {
			t.Error("expected an error result")
		}
	})

	t.Run("surfaces exchange failures", func(t *testing.T) {
		auth := &fakeExchanger{tokenErr: errors.New("invalid code")}
		l := newTestLoopback(t, auth)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/callback?state=state-token&code=bad", nil)
		l.handleCallback(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
		if res := <-l.result; res.Err() == nil {
			t.Error("expected an error result")
		}
	})

	t.Run("rejects repeat hits", func(t *testing.T) {
		auth := &fakeExchanger{token: &oauth2.Token{AccessToken: "access"}}
		l := newTestLoopback(t, auth)

		first := httptest.NewRecorder()
		l.handleCallback(first, httptest.NewRequest("GET", "/callback?state=state-token&code=abc", nil))

		second := httptest.NewRecorder()
		l.handleCallback(second, httptest.NewRequest("GET", "/callback?state=state-token&code=abc", nil))

		if second.Code != http.StatusBadRequest {
			t.Errorf("second hit status = %d, want %d", second.Code, http.StatusBadRequest)
		}
		if len(auth.states) != 1 {
			t.Errorf("token exchanged %d times, want once", len(auth.states))
		}
	})
}

func TestListen(t *testing.T) {
	t.Run("returns on context cancellation", func(t *testing.T) {
		// Port 0 lets the OS pick a free port; the flow never completes anyway.
		l, err := NewLoopback(&fakeExchanger{}, "http://localhost:0/callback", "s", shared.NewLogger(io.Discard))
		if err != nil {
			t.Fatalf("NewLoopback() error = %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := l.Listen(ctx); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("error = %v, want ErrTimeout", err)
		}
	})
}
