package match

import (
	"sort"

	"github.com/tunelark/crossfade/internal/platform"
)

// Result tags the outcome of resolving one target song against a platform's
// search results.
type Result int

const (
	NoMatch Result = iota
	Match
	AlreadyInPlaylist
	NoneFound
)

func (r Result) String() string {
	switch r {
	case Match:
		return "match"
	case AlreadyInPlaylist:
		return "already_in_playlist"
	case NoneFound:
		return "none_found"
	default:
		return "no_match"
	}
}

// Outcome couples a [Result] with the candidate it applies to. The candidate
// is only meaningful for Match.
type Outcome struct {
	Result    Result
	Candidate platform.Candidate
}

// NameScorer scores the probability that two song names denote the same song.
type NameScorer interface {
	Score(name1, name2 string) float64
}

// DefaultConfidence is the minimum probability for a confidence-phase match.
const DefaultConfidence = 0.7

// Matcher applies the two-phase resolution policy: exact string comparison
// first, confidence-scored fallback second.
type Matcher struct {
	scorer     NameScorer
	confidence float64
	maxResults int
}

// NewMatcher creates a Matcher. A non-positive confidence falls back to
// [DefaultConfidence].
func NewMatcher(scorer NameScorer, confidence float64) *Matcher {
	if confidence <= 0 {
		confidence = DefaultConfidence
	}
	return &Matcher{scorer: scorer, confidence: confidence, maxResults: platform.MaxCandidates}
}

// Resolve decides what to do with target given the destination platform's
// live search candidates and the destination playlist snapshot. The exact
// phase short-circuits the confidence phase; AlreadyInPlaylist is terminal
// in either phase.
func (m *Matcher) Resolve(target platform.Song, candidates []platform.Candidate, playlist *platform.Snapshot) Outcome {
	if len(candidates) == 0 {
		return Outcome{Result: NoneFound}
	}

	if out := m.resolveExact(target, candidates, playlist); out.Result != NoMatch {
		return out
	}
	return m.resolveConfidence(target, candidates, playlist)
}

// resolveExact scans for a case-insensitive exact name match with a matching
// artist.
func (m *Matcher) resolveExact(target platform.Song, candidates []platform.Candidate, playlist *platform.Snapshot) Outcome {
	for _, c := range candidates {
		if c.Name != target.Name {
			continue
		}
		if playlist.ContainsName(c.Name) {
			return Outcome{Result: AlreadyInPlaylist}
		}
		if c.HasArtist(target.Artist) {
			return Outcome{Result: Match, Candidate: c}
		}
	}
	return Outcome{Result: NoMatch}
}

type scoredCandidate struct {
	candidate platform.Candidate
	score     float64
	rank      int // original platform ranking, 0 = top result
}

// resolveConfidence scores every candidate and consumes them in descending
// score order. On score ties the candidate the platform ranked higher wins;
// tied candidates are all retained.
func (m *Matcher) resolveConfidence(target platform.Song, candidates []platform.Candidate, playlist *platform.Snapshot) Outcome {
	if len(candidates) > m.maxResults {
		candidates = candidates[:m.maxResults]
	}

	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = scoredCandidate{
			candidate: c,
			score:     m.scorer.Score(c.Name, target.Name),
			rank:      i,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].rank < scored[j].rank
	})

	for _, sc := range scored {
		if sc.score < m.confidence {
			// Sorted descending, so nothing further qualifies.
			break
		}
		if playlist.ContainsName(sc.candidate.Name) {
			return Outcome{Result: AlreadyInPlaylist}
		}
		if sc.candidate.HasArtist(target.Artist) {
			return Outcome{Result: Match, Candidate: sc.candidate}
		}
	}
	return Outcome{Result: NoMatch}
}
