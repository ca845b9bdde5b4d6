package dataset

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tunelark/crossfade/internal/platform"
	"github.com/tunelark/crossfade/internal/shared"
)

// DefaultQuicksave is how many harvested pairs accumulate before the pending
// buffer is written through to the store.
const DefaultQuicksave = 5

// queryChars is the alphabet randomized search queries draw from.
const queryChars = "abcdefghijklmnopqrstuvwxyz"

// Recorder is the storage surface the expander writes through. A [Dataset]
// satisfies it.
type Recorder interface {
	Contains(name1, name2 string) (bool, error)
	Append(pairs ...Pair) error
}

// Expander harvests new unlabeled pairs by searching one platform with a
// randomized query and cross-searching a second platform for the hit.
type Expander struct {
	rec       Recorder
	logger    *log.Logger
	out       io.Writer
	rng       *rand.Rand
	quicksave int
}

// NewExpander creates an Expander. A nil rng falls back to a time-seeded one.
func NewExpander(rec Recorder, logger *log.Logger, out io.Writer, rng *rand.Rand) *Expander {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Expander{rec: rec, logger: logger, out: out, rng: rng, quicksave: DefaultQuicksave}
}

// RandomQuery produces a 1-3 character lowercase query with the platform's
// wildcard placed as suffix, prefix, on both sides, or not at all.
func (e *Expander) RandomQuery(wildcard string) string {
	chars := make([]byte, e.rng.Intn(3)+1)
	for i := range chars {
		chars[i] = queryChars[e.rng.Intn(len(queryChars))]
	}
	q := string(chars)

	switch e.rng.Intn(4) {
	case 0:
		return q + wildcard
	case 1:
		return wildcard + q + wildcard
	case 2:
		return wildcard + q
	default:
		return q
	}
}

// Expand harvests repeat new pairs: the anchor song is a random sample from
// p1's search over a randomized query, its counterpart a weighted pick from
// p2's results for the anchor. Pairs whose names match exactly are skipped
// (string comparison already resolves those), as are pairs the dataset
// already holds. Buffered pairs are flushed every quicksave interval and
// again before returning, even on cancellation. Returns the number of pairs
// recorded.
func (e *Expander) Expand(ctx context.Context, p1, p2 platform.Client, repeat int) (int, error) {
	if p1.Platform() == p2.Platform() {
		return 0, fmt.Errorf("%w: %s", shared.ErrSamePlatform, p1.Platform())
	}

	if err := p1.Open(ctx); err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", p1.Platform(), err)
	}
	if err := p2.Open(ctx); err != nil {
		p1.Close()
		return 0, fmt.Errorf("failed to open %s: %w", p2.Platform(), err)
	}
	defer func() {
		for _, c := range []platform.Client{p1, p2} {
			if err := c.Close(); err != nil {
				e.logger.Warn("failed to close client", "platform", c.Platform(), "error", err)
			}
		}
	}()

	var pending []Pair
	added := 0
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := e.rec.Append(pending...); err != nil {
			return fmt.Errorf("failed to save pairs: %w", err)
		}
		pending = pending[:0]
		return nil
	}

	for i := 0; i < repeat; i++ {
		fmt.Fprintf(e.out, "adding pair %d/%d\n", i+1, repeat)

		pair, err := e.harvest(ctx, p1, p2, pending)
		if err != nil {
			if ferr := flush(); ferr != nil {
				e.logger.Error("failed to flush pending pairs", "error", ferr)
			}
			return added, err
		}

		pending = append(pending, pair)
		added++

		if len(pending) >= e.quicksave {
			if err := flush(); err != nil {
				return added - len(pending), err
			}
		}
	}

	if err := flush(); err != nil {
		return added - len(pending), err
	}
	return added, nil
}

// harvest retries randomized searches until one usable, non-duplicate pair
// comes back. Only context cancellation and storage failure abort it.
func (e *Expander) harvest(ctx context.Context, p1, p2 platform.Client, pending []Pair) (Pair, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Pair{}, err
		}

		query := e.RandomQuery(p1.Wildcard())
		anchors, err := p1.Search(ctx, query, "", platform.SearchOptions{Random: true})
		if err != nil {
			e.logger.Debug("anchor search failed", "query", query, "error", err)
			continue
		}
		if len(anchors) == 0 {
			continue
		}
		anchor := anchors[0].Song()

		results, err := p2.Search(ctx, anchor.Name, anchor.Artist, platform.SearchOptions{})
		if err != nil {
			e.logger.Debug("counterpart search failed", "song", anchor.Name, "error", err)
			continue
		}
		if len(results) == 0 || containsName(results, anchor.Name) {
			continue
		}

		chosen := e.pick(results).Song()

		if containsPending(pending, anchor.Name, chosen.Name) {
			continue
		}
		dup, err := e.rec.Contains(anchor.Name, chosen.Name)
		if err != nil {
			return Pair{}, err
		}
		if dup {
			continue
		}

		return NewPair(p1.Platform(), p2.Platform(), anchor, chosen), nil
	}
}

// pick takes the top result 80% of the time and otherwise a uniform pick
// among the alternates, so the dataset sees hard negatives, not only the
// platform's best guess.
func (e *Expander) pick(results []platform.Candidate) platform.Candidate {
	if len(results) == 1 {
		return results[0]
	}
	if e.rng.Intn(100) < 80 {
		return results[0]
	}
	return results[1+e.rng.Intn(len(results)-1)]
}

// containsName reports whether any candidate carries exactly the given name.
func containsName(results []platform.Candidate, name string) bool {
	for _, c := range results {
		if c.Name == name {
			return true
		}
	}
	return false
}

// containsPending checks the unflushed buffer for a pair, order-insensitively.
func containsPending(pending []Pair, name1, name2 string) bool {
	for _, p := range pending {
		if (p.Name1 == name1 && p.Name2 == name2) || (p.Name1 == name2 && p.Name2 == name1) {
			return true
		}
	}
	return false
}
