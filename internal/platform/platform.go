package platform

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/tunelark/crossfade/internal/shared"
)

// Platform identifies one of the supported music platforms.
type Platform string

const (
	Spotify Platform = "spotify"
	Amazon  Platform = "amazon"
	YouTube Platform = "youtube"
)

// All lists every supported platform in the engine's canonical order.
//
// The order matters for three-way runs: Amazon goes first so the browser
// session can be closed before the API platforms are updated.
var All = []Platform{Amazon, Spotify, YouTube}

// Parse converts a user-supplied platform name into a [Platform].
func Parse(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case Spotify:
		return Spotify, nil
	case Amazon:
		return Amazon, nil
	case YouTube:
		return YouTube, nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrUnknownPlatform, s)
	}
}

func (p Platform) String() string { return string(p) }

// Song is an immutable (name, artist) pair. Names and artists are folded to
// lower case on construction; dedup and lookup use the name alone.
type Song struct {
	Name   string
	Artist string
}

// NewSong builds a Song with both fields lower-cased.
func NewSong(name, artist string) Song {
	return Song{Name: strings.ToLower(name), Artist: strings.ToLower(artist)}
}

// Snapshot is the state of one playlist on one platform at the start of a
// run. It is fetched fresh per run and never cached across runs.
type Snapshot struct {
	Platform Platform
	// Handle is the platform-native playlist reference: an ID for the API
	// platforms, the playlist name (its page lookup key) for Amazon.
	Handle string
	Songs  []Song
}

// ContainsName reports whether a song with the given name is present,
// case-insensitively.
func (s *Snapshot) ContainsName(name string) bool {
	name = strings.ToLower(name)
	for _, song := range s.Songs {
		if song.Name == name {
			return true
		}
	}
	return false
}

// Names returns the set of song names in the snapshot.
func (s *Snapshot) Names() map[string]struct{} {
	names := make(map[string]struct{}, len(s.Songs))
	for _, song := range s.Songs {
		names[song.Name] = struct{}{}
	}
	return names
}

// Candidate is a single search result from a platform, carrying everything
// needed to score it and to commit it to a playlist.
type Candidate struct {
	Name    string
	Artists []string // all listed artists, lower-cased
	// ID is the platform-native commit identifier: a track URI for Spotify,
	// a videoId for YouTube Music, an element locator for Amazon.
	ID string
}

// NewCandidate builds a Candidate with name and artists lower-cased.
func NewCandidate(name string, artists []string, id string) Candidate {
	lowered := make([]string, len(artists))
	for i, a := range artists {
		lowered[i] = strings.ToLower(a)
	}
	return Candidate{Name: strings.ToLower(name), Artists: lowered, ID: id}
}

// Song converts the candidate to a Song using its first listed artist.
func (c Candidate) Song() Song {
	artist := ""
	if len(c.Artists) > 0 {
		artist = c.Artists[0]
	}
	return NewSong(c.Name, artist)
}

// HasArtist reports whether the given artist appears among the candidate's
// listed artists, case-insensitively. Containment is enough: Amazon reports
// all artists as a single combined line.
func (c Candidate) HasArtist(artist string) bool {
	artist = strings.ToLower(artist)
	if artist == "" {
		return false
	}
	for _, a := range c.Artists {
		if a == artist || strings.Contains(a, artist) {
			return true
		}
	}
	return false
}

// SearchOptions controls how a platform search trims its result list.
type SearchOptions struct {
	// Random picks a uniform sample instead of the platform's top ranking.
	// The dataset expansion workflow uses this to avoid popularity bias.
	Random bool
}

// MaxCandidates bounds how many search results a client returns.
const MaxCandidates = 5

// Client is the uniform interface over all three platforms.
//
// Error policy: a failed or empty search for one song is not retried; callers
// treat it as "none found" and move on. Only FetchPlaylist distinguishes a
// missing playlist ([shared.ErrPlaylistNotFound]) from transport failure.
type Client interface {
	// Platform returns the platform this client talks to.
	Platform() Platform

	// FetchPlaylist looks up a playlist by name, case-insensitively, among
	// the user's playlists and returns its songs lower-cased together with
	// the platform-native handle.
	FetchPlaylist(ctx context.Context, name string) (*Snapshot, error)

	// Search queries the platform's own search for a song, returning at most
	// [MaxCandidates] results.
	Search(ctx context.Context, name, artist string, opts SearchOptions) ([]Candidate, error)

	// Commit appends one candidate to the playlist identified by handle.
	// At-most-once semantics are enforced by the caller via the matcher's
	// already-in-playlist check, not here.
	Commit(ctx context.Context, handle string, c Candidate) error

	// Open prepares any stateful session the client needs. API clients no-op.
	Open(ctx context.Context) error

	// Close releases the session. Safe to call on a client that never opened.
	Close() error

	// Wildcard returns the platform's search wildcard symbol, used by the
	// dataset expansion workflow's randomized queries.
	Wildcard() string
}

// searchQuery renders the free-text query the platforms are searched with.
func searchQuery(name, artist string) string {
	if artist != "" {
		return fmt.Sprintf("%s by %s", name, artist)
	}
	return name
}

// trimCandidates reduces a result list to at most max entries, taking either
// the platform's top ranking or, when random is set, a uniform sample.
func trimCandidates(rng *rand.Rand, candidates []Candidate, max int, random bool) []Candidate {
	if len(candidates) <= max {
		return candidates
	}
	if !random {
		return candidates[:max]
	}
	picked := rng.Perm(len(candidates))[:max]
	sample := make([]Candidate, 0, max)
	for _, i := range picked {
		sample = append(sample, candidates[i])
	}
	return sample
}
