// YouTube Music [Client] implementation.
//
// Communicates with a local proxy server wrapping the YouTube Music private
// API. The proxy owns authentication state; this client only forwards the
// header file reference it was configured with.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tunelark/crossfade/internal/shared"
)

const defaultProxyURL = "http://localhost:8080"

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track in YouTube Music responses.
type YouTubeTrack struct {
	VideoID string          `json:"videoId"`
	Title   string          `json:"title"`
	Artists []YouTubeArtist `json:"artists"`
}

// YouTubePlaylist represents a playlist from YouTube Music.
type YouTubePlaylist struct {
	ID         string         `json:"playlistId"`
	Title      string         `json:"title"`
	TrackCount int            `json:"trackCount"`
	Tracks     []YouTubeTrack `json:"tracks,omitempty"`
}

// YouTubeClient implements [Client] for YouTube Music via the proxy.
type YouTubeClient struct {
	baseURL    string
	userID     string
	authFile   string
	httpClient *http.Client
	limiter    *rate.Limiter
	rng        *rand.Rand
}

// NewYouTubeClient creates a YouTube Music client instance.
func NewYouTubeClient(cfg shared.YouTubeConfig) *YouTubeClient {
	baseURL := cfg.ProxyURL
	if baseURL == "" {
		baseURL = defaultProxyURL
	}

	return &YouTubeClient{
		baseURL:    baseURL,
		userID:     cfg.UserID,
		authFile:   cfg.HeadersPath,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 3),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (y *YouTubeClient) Platform() Platform { return YouTube }

// Open is a no-op; the proxy holds the session.
func (y *YouTubeClient) Open(ctx context.Context) error { return nil }

// Close is a no-op.
func (y *YouTubeClient) Close() error { return nil }

// Wildcard returns the generic search wildcard symbol.
func (y *YouTubeClient) Wildcard() string { return "*" }

func (y *YouTubeClient) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// FetchPlaylist lists the user's playlists, matches by lower-cased title and
// pulls the full track listing of the match.
func (y *YouTubeClient) FetchPlaylist(ctx context.Context, name string) (*Snapshot, error) {
	var listing struct {
		Playlists []YouTubePlaylist `json:"playlists"`
	}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(y.userID))
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &listing); err != nil {
		return nil, err
	}

	want := strings.ToLower(name)
	for _, pl := range listing.Playlists {
		if strings.ToLower(pl.Title) != want {
			continue
		}

		var full YouTubePlaylist
		if err := y.doRequest(ctx, http.MethodGet, "/playlists/"+url.PathEscape(pl.ID), nil, &full); err != nil {
			return nil, err
		}

		songs := make([]Song, 0, len(full.Tracks))
		for _, track := range full.Tracks {
			artist := ""
			if len(track.Artists) > 0 {
				artist = track.Artists[0].Name
			}
			songs = append(songs, NewSong(track.Title, artist))
		}
		return &Snapshot{Platform: YouTube, Handle: pl.ID, Songs: songs}, nil
	}

	return nil, fmt.Errorf("%w: %q on youtube", shared.ErrPlaylistNotFound, name)
}

// Search queries the proxy's song search.
func (y *YouTubeClient) Search(ctx context.Context, name, artist string, opts SearchOptions) ([]Candidate, error) {
	var response struct {
		Results []YouTubeTrack `json:"results"`
	}
	endpoint := fmt.Sprintf("/search?q=%s&filter=songs", url.QueryEscape(searchQuery(name, artist)))
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	if len(response.Results) == 0 {
		return nil, nil
	}

	candidates := make([]Candidate, 0, len(response.Results))
	for _, track := range response.Results {
		artists := make([]string, 0, len(track.Artists))
		for _, a := range track.Artists {
			artists = append(artists, a.Name)
		}
		candidates = append(candidates, NewCandidate(track.Title, artists, track.VideoID))
	}

	return trimCandidates(y.rng, candidates, MaxCandidates, opts.Random), nil
}

// Commit appends one video to the playlist.
func (y *YouTubeClient) Commit(ctx context.Context, handle string, c Candidate) error {
	body := struct {
		VideoIDs []string `json:"videoIds"`
	}{VideoIDs: []string{c.ID}}

	endpoint := "/playlists/" + url.PathEscape(handle) + "/items"
	return y.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}
