// Spotify [Client] implementation backed by the Spotify Web API.
package platform

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/tunelark/crossfade/internal/shared"
)

// SpotifyClient implements [Client] for Spotify.
type SpotifyClient struct {
	client  *spotify.Client
	limiter *rate.Limiter
	userID  string
	rng     *rand.Rand
}

// NewSpotifyAuthenticator builds the OAuth2 authenticator used both by this
// client and by the auth command's loopback flow.
func NewSpotifyAuthenticator(cfg shared.SpotifyConfig) *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithRedirectURL(cfg.RedirectURI),
		spotifyauth.WithScopes(
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopePlaylistReadCollaborative,
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
		),
	)
}

// NewSpotifyClient creates a Spotify client from validated credentials and a
// previously obtained token (access or refresh; the wrapped HTTP client
// refreshes automatically).
func NewSpotifyClient(ctx context.Context, cfg shared.SpotifyConfig, token *oauth2.Token) (*SpotifyClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return nil, fmt.Errorf("%w: spotify token", shared.ErrNotAuthenticated)
	}

	auth := NewSpotifyAuthenticator(cfg)
	httpClient := auth.Client(ctx, token)

	return &SpotifyClient{
		client:  spotify.New(httpClient),
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 3),
		userID:  cfg.UserID,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (s *SpotifyClient) Platform() Platform { return Spotify }

// Open is a no-op; the API client needs no session.
func (s *SpotifyClient) Open(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *SpotifyClient) Close() error { return nil }

// Wildcard returns Spotify's search wildcard symbol.
func (s *SpotifyClient) Wildcard() string { return "%" }

// FetchPlaylist pages through the user's playlists looking for a
// case-insensitive name match, then pulls every track of the match.
func (s *SpotifyClient) FetchPlaylist(ctx context.Context, name string) (*Snapshot, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	playlists, err := s.client.CurrentUsersPlaylists(ctx, spotify.Limit(50))
	if err != nil {
		return nil, fmt.Errorf("%w: list playlists: %v", shared.ErrAPIRequest, err)
	}

	want := strings.ToLower(name)
	for {
		for _, pl := range playlists.Playlists {
			if strings.ToLower(pl.Name) != want {
				continue
			}
			songs, err := s.playlistSongs(ctx, pl.ID)
			if err != nil {
				return nil, err
			}
			return &Snapshot{Platform: Spotify, Handle: string(pl.ID), Songs: songs}, nil
		}
		if err := s.client.NextPage(ctx, playlists); err != nil {
			if errors.Is(err, spotify.ErrNoMorePages) {
				break
			}
			return nil, fmt.Errorf("%w: list playlists: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil, fmt.Errorf("%w: %q on spotify", shared.ErrPlaylistNotFound, name)
}

// playlistSongs fetches all items of a playlist, lower-cased.
func (s *SpotifyClient) playlistSongs(ctx context.Context, id spotify.ID) ([]Song, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	items, err := s.client.GetPlaylistItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: playlist items: %v", shared.ErrAPIRequest, err)
	}

	var songs []Song
	for {
		for _, item := range items.Items {
			track := item.Track.Track
			if track == nil {
				continue // episode or local file
			}
			artist := ""
			if len(track.Artists) > 0 {
				artist = track.Artists[0].Name
			}
			songs = append(songs, NewSong(track.Name, artist))
		}
		if err := s.client.NextPage(ctx, items); err != nil {
			if errors.Is(err, spotify.ErrNoMorePages) {
				break
			}
			return nil, fmt.Errorf("%w: playlist items: %v", shared.ErrAPIRequest, err)
		}
	}
	return songs, nil
}

// Search queries Spotify's track search. An empty result list with a nil
// error means nothing was found; transport failures, likewise, are reported
// to the caller as-is and treated there as "none found".
func (s *SpotifyClient) Search(ctx context.Context, name, artist string, opts SearchOptions) ([]Candidate, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := s.client.Search(ctx, searchQuery(name, artist), spotify.SearchTypeTrack, spotify.Limit(20))
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", shared.ErrAPIRequest, err)
	}
	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return nil, nil
	}

	candidates := make([]Candidate, 0, len(result.Tracks.Tracks))
	for _, track := range result.Tracks.Tracks {
		artists := make([]string, 0, len(track.Artists))
		for _, a := range track.Artists {
			artists = append(artists, a.Name)
		}
		candidates = append(candidates, NewCandidate(track.Name, artists, string(track.ID)))
	}

	return trimCandidates(s.rng, candidates, MaxCandidates, opts.Random), nil
}

// Commit appends one track to the playlist.
func (s *SpotifyClient) Commit(ctx context.Context, handle string, c Candidate) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	if _, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(handle), spotify.ID(c.ID)); err != nil {
		return fmt.Errorf("%w: add track: %v", shared.ErrAPIRequest, err)
	}
	return nil
}
