package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/tunelark/crossfade/internal/formatter"
	"github.com/tunelark/crossfade/internal/match"
	"github.com/tunelark/crossfade/internal/platform"
	"github.com/tunelark/crossfade/internal/shared"
)

// Engine drives reconciliation runs over a set of platform clients.
type Engine struct {
	clients map[platform.Platform]platform.Client
	matcher *match.Matcher
	logger  *log.Logger
	out     io.Writer
}

// NewEngine creates an Engine over the given clients. Registering the same
// platform twice is a configuration error.
func NewEngine(clients []platform.Client, matcher *match.Matcher, logger *log.Logger, out io.Writer) (*Engine, error) {
	if matcher == nil {
		return nil, fmt.Errorf("%w: matcher is required", shared.ErrInvalidConfig)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if out == nil {
		out = os.Stdout
	}

	registry := make(map[platform.Platform]platform.Client, len(clients))
	for _, c := range clients {
		if _, ok := registry[c.Platform()]; ok {
			return nil, fmt.Errorf("%w: duplicate client for %s", shared.ErrInvalidConfig, c.Platform())
		}
		registry[c.Platform()] = c
	}

	return &Engine{clients: registry, matcher: matcher, logger: logger, out: out}, nil
}

func (e *Engine) client(p platform.Platform) (platform.Client, error) {
	c, ok := e.clients[p]
	if !ok {
		return nil, fmt.Errorf("%w: no client for %s", shared.ErrUnknownPlatform, p)
	}
	return c, nil
}

func (e *Engine) writePlain(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}

// normalizePair orders a platform pair canonically so both orderings resolve
// to the same run. Validation happens before any network or automation
// activity.
func normalizePair(p1, p2 platform.Platform) (platform.Platform, platform.Platform, error) {
	if p1 == p2 {
		return "", "", fmt.Errorf("%w: %s given twice", shared.ErrSamePlatform, p1)
	}
	rank := func(p platform.Platform) int {
		for i, known := range platform.All {
			if p == known {
				return i
			}
		}
		return -1
	}
	r1, r2 := rank(p1), rank(p2)
	if r1 < 0 {
		return "", "", fmt.Errorf("%w: %q", shared.ErrUnknownPlatform, p1)
	}
	if r2 < 0 {
		return "", "", fmt.Errorf("%w: %q", shared.ErrUnknownPlatform, p2)
	}
	if r1 > r2 {
		p1, p2 = p2, p1
	}
	return p1, p2, nil
}

// SyncPair reconciles the named playlist between two platforms. Symmetric:
// both argument orderings resolve to one canonical run. The addition sets
// for both sides are computed from frozen snapshots before either side is
// mutated.
func (e *Engine) SyncPair(ctx context.Context, p1, p2 platform.Platform, playlist string) (Outcome, error) {
	p1, p2, err := normalizePair(p1, p2)
	if err != nil {
		return NoValidInput, err
	}

	c1, err := e.client(p1)
	if err != nil {
		return NoValidInput, err
	}
	c2, err := e.client(p2)
	if err != nil {
		return NoValidInput, err
	}

	closeSessions := e.sessionCloser(c1, c2)
	defer closeSessions()

	snap1, snap2, err := e.fetchPair(ctx, c1, c2, playlist)
	if err != nil {
		if errors.Is(err, shared.ErrPlaylistNotFound) {
			e.logger.Warn("playlist missing", "playlist", playlist, "error", err)
			return NoPlaylistFound, nil
		}
		return NoValidInput, err
	}

	// Both diffs are frozen before any commit happens.
	additions1 := Additions(snap1, snap2)
	additions2 := Additions(snap2, snap1)

	// Canonical order puts Amazon first, so its additions apply while the
	// browser session is already warm and the session closes before the API
	// platforms are touched.
	if err := e.apply(ctx, c1, snap1, additions1); err != nil {
		return NoValidInput, err
	}
	closeSessions()

	if err := e.apply(ctx, c2, snap2, additions2); err != nil {
		return NoValidInput, err
	}

	return Success, nil
}

// SyncAll reconciles the named playlist across every registered platform:
// each platform receives the union members absent from its own snapshot.
func (e *Engine) SyncAll(ctx context.Context, playlist string) (Outcome, error) {
	ordered := make([]platform.Platform, 0, len(e.clients))
	for _, p := range platform.All {
		if _, ok := e.clients[p]; ok {
			ordered = append(ordered, p)
		}
	}
	if len(ordered) < 2 {
		return NoValidInput, fmt.Errorf("%w: need at least two configured platforms", shared.ErrInvalidConfig)
	}

	clients := make([]platform.Client, len(ordered))
	for i, p := range ordered {
		clients[i], _ = e.client(p)
	}

	closeSessions := e.sessionCloser(clients...)
	defer closeSessions()

	snapshots := make([]*platform.Snapshot, len(clients))
	for i, c := range clients {
		snap, err := e.fetch(ctx, c, playlist)
		if err != nil {
			if errors.Is(err, shared.ErrPlaylistNotFound) {
				e.logger.Warn("playlist missing", "playlist", playlist, "platform", c.Platform(), "error", err)
				return NoPlaylistFound, nil
			}
			return NoValidInput, err
		}
		snapshots[i] = snap
	}

	additions := UnionAdditions(snapshots)

	for i, c := range clients {
		if err := e.apply(ctx, c, snapshots[i], additions[c.Platform()]); err != nil {
			return NoValidInput, err
		}
		if c.Platform() == platform.Amazon {
			// Session no longer needed once Amazon's pass is done.
			closeSessions()
		}
	}

	return Success, nil
}

// sessionCloser opens nothing but guarantees every involved client's session
// is closed at most once. The returned func is safe to call repeatedly and
// is always deferred, so early error returns still release the browser.
func (e *Engine) sessionCloser(clients ...platform.Client) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, c := range clients {
				if err := c.Close(); err != nil {
					e.logger.Error("failed to close session", "platform", c.Platform(), "error", err)
				}
			}
		})
	}
}

// fetch opens the client's session if necessary and pulls a fresh snapshot.
func (e *Engine) fetch(ctx context.Context, c platform.Client, playlist string) (*platform.Snapshot, error) {
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	return c.FetchPlaylist(ctx, playlist)
}

// fetchPair fetches both snapshots. The two API-backed platforms share no
// state, so their fetches run concurrently; any pairing involving Amazon is
// fetched sequentially because the browser session must not be driven from
// two goroutines.
func (e *Engine) fetchPair(ctx context.Context, c1, c2 platform.Client, playlist string) (*platform.Snapshot, *platform.Snapshot, error) {
	if c1.Platform() == platform.Amazon || c2.Platform() == platform.Amazon {
		snap1, err := e.fetch(ctx, c1, playlist)
		if err != nil {
			return nil, nil, err
		}
		snap2, err := e.fetch(ctx, c2, playlist)
		if err != nil {
			return nil, nil, err
		}
		return snap1, snap2, nil
	}

	var (
		wg    sync.WaitGroup
		snap1 *platform.Snapshot
		snap2 *platform.Snapshot
		err1  error
		err2  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		snap1, err1 = e.fetch(ctx, c1, playlist)
	}()
	go func() {
		defer wg.Done()
		snap2, err2 = e.fetch(ctx, c2, playlist)
	}()
	wg.Wait()

	if err1 != nil {
		return nil, nil, err1
	}
	if err2 != nil {
		return nil, nil, err2
	}
	return snap1, snap2, nil
}

// apply commits one platform's addition set in snapshot order. Every song
// prints exactly one outcome line; per-song failures are absorbed and the
// pass continues.
func (e *Engine) apply(ctx context.Context, dst platform.Client, snap *platform.Snapshot, additions []platform.Song) error {
	if len(additions) == 0 {
		return nil
	}

	e.writePlain("%s\n", formatter.UpdatingPlatform(dst.Platform()))
	logger := e.logger.With("platform", dst.Platform(), "playlist", snap.Handle)

	for _, song := range additions {
		if err := ctx.Err(); err != nil {
			return err
		}

		candidates, err := dst.Search(ctx, song.Name, e.searchArtist(dst, song), platform.SearchOptions{})
		if err != nil {
			logger.Warn("search failed, skipping song", "song", song.Name, "error", err)
			e.writePlain("%s\n", formatter.Skipped(song, err))
			continue
		}
		if len(candidates) == 0 {
			e.writePlain("%s\n", formatter.NoSearchResult(song))
			continue
		}

		outcome := e.matcher.Resolve(song, candidates, snap)
		switch outcome.Result {
		case match.Match:
			if err := dst.Commit(ctx, snap.Handle, outcome.Candidate); err != nil {
				if errors.Is(err, shared.ErrDuplicateSong) {
					e.writePlain("%s\n", formatter.AlreadyInPlaylist(song))
					continue
				}
				logger.Warn("commit failed, skipping song", "song", song.Name, "error", err)
				e.writePlain("%s\n", formatter.Skipped(song, err))
				continue
			}
			e.writePlain("%s\n", formatter.Added(song))
		case match.AlreadyInPlaylist:
			e.writePlain("%s\n", formatter.AlreadyInPlaylist(song))
		case match.NoneFound:
			e.writePlain("%s\n", formatter.NoSearchResult(song))
		default:
			e.writePlain("%s\n", formatter.NoMatch(song))
		}
	}

	return nil
}

// searchArtist decides whether to include the artist in the live search
// query. Amazon's search shelf is too noisy without it; the API platforms rank
// better on the bare title.
func (e *Engine) searchArtist(dst platform.Client, song platform.Song) string {
	if dst.Platform() == platform.Amazon {
		return song.Artist
	}
	return ""
}

// Platforms returns the registered platforms in canonical order. Used by the
// command surface for validation messages.
func (e *Engine) Platforms() []platform.Platform {
	ordered := make([]platform.Platform, 0, len(e.clients))
	for p := range e.clients {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	return ordered
}
