// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tunelark/crossfade/internal/platform"
	"github.com/tunelark/crossfade/internal/shared"
)

// FakeClient is a scripted test double for [platform.Client].
//
// Snapshots are served by lower-cased playlist name; searches are answered
// from the Results queue in FIFO order (falling back to the Canned slice once
// the queue is drained). Commits and session transitions are recorded.
type FakeClient struct {
	Name      platform.Platform
	Snapshots map[string]*platform.Snapshot
	// Results is consumed one slice per Search call.
	Results [][]platform.Candidate
	// Canned answers every Search after Results runs out.
	Canned []platform.Candidate

	// Errors to inject per operation. Zero values mean success.
	FetchErr  error
	SearchErr error
	CommitErr error
	OpenErr   error

	Committed []platform.Candidate
	Queries   []string
	Opens     int
	Closes    int
}

func (f *FakeClient) Platform() platform.Platform { return f.Name }

func (f *FakeClient) FetchPlaylist(ctx context.Context, name string) (*platform.Snapshot, error) {
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	snap, ok := f.Snapshots[strings.ToLower(name)]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	return snap, nil
}

func (f *FakeClient) Search(ctx context.Context, name, artist string, opts platform.SearchOptions) ([]platform.Candidate, error) {
	f.Queries = append(f.Queries, name)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	if len(f.Results) > 0 {
		head := f.Results[0]
		f.Results = f.Results[1:]
		return head, nil
	}
	return f.Canned, nil
}

func (f *FakeClient) Commit(ctx context.Context, handle string, c platform.Candidate) error {
	if f.CommitErr != nil {
		return f.CommitErr
	}
	f.Committed = append(f.Committed, c)
	return nil
}

func (f *FakeClient) Open(ctx context.Context) error {
	f.Opens++
	return f.OpenErr
}

func (f *FakeClient) Close() error {
	f.Closes++
	return nil
}

func (f *FakeClient) Wildcard() string { return "*" }

// SpySession is a scripted test double for [automation.Session].
//
// Pages maps URLs to the HTML served after navigating there; Visible lists
// selectors WaitVisible reports as found. Every interaction is recorded so
// tests can assert on call order and session lifecycle.
type SpySession struct {
	Pages   map[string]string
	Visible []string

	StartErr error
	ClickErr error

	Starts  int
	Stops   int
	URL     string
	Clicks  []string
	Typed   map[string]string
	Entered []string
	Cleared []string
}

func (s *SpySession) Start(ctx context.Context) error {
	s.Starts++
	return s.StartErr
}

func (s *SpySession) Stop() error {
	s.Stops++
	return nil
}

func (s *SpySession) Navigate(ctx context.Context, url string) error {
	s.URL = url
	return nil
}

func (s *SpySession) WaitVisible(ctx context.Context, sel string, timeout time.Duration) (bool, error) {
	for _, v := range s.Visible {
		if v == sel {
			return true, nil
		}
	}
	return false, nil
}

func (s *SpySession) Click(ctx context.Context, sel string) error {
	s.Clicks = append(s.Clicks, sel)
	return s.ClickErr
}

func (s *SpySession) SendKeys(ctx context.Context, sel, keys string) error {
	if s.Typed == nil {
		s.Typed = map[string]string{}
	}
	s.Typed[sel] += keys
	return nil
}

func (s *SpySession) ClearInput(ctx context.Context, sel string) error {
	s.Cleared = append(s.Cleared, sel)
	if s.Typed != nil {
		delete(s.Typed, sel)
	}
	return nil
}

func (s *SpySession) PressEnter(ctx context.Context, sel string) error {
	s.Entered = append(s.Entered, sel)
	return nil
}

func (s *SpySession) ZoomOut(ctx context.Context) error { return nil }

func (s *SpySession) HTML(ctx context.Context) (string, error) {
	if html, ok := s.Pages[s.URL]; ok {
		return html, nil
	}
	return "<html><body></body></html>", nil
}

// ConstScorer is a [match.NameScorer] that returns a fixed probability.
type ConstScorer struct{ P float64 }

func (c ConstScorer) Score(name1, name2 string) float64 { return c.P }

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
