package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/tunelark/crossfade/internal/platform"
	"github.com/tunelark/crossfade/internal/shared"
	tu "github.com/tunelark/crossfade/internal/testing"
)

// memRecorder is an in-memory [Recorder].
type memRecorder struct {
	pairs   []Pair
	appends int
}

func (m *memRecorder) Contains(name1, name2 string) (bool, error) {
	return containsPending(m.pairs, name1, name2), nil
}

func (m *memRecorder) Append(pairs ...Pair) error {
	m.appends++
	m.pairs = append(m.pairs, pairs...)
	return nil
}

func anchorResult(name string) []platform.Candidate {
	return []platform.Candidate{platform.NewCandidate(name, []string{"artist"}, "id-"+name)}
}

func newTestExpander(rec Recorder, out io.Writer) *Expander {
	logger := shared.NewLogger(io.Discard)
	return NewExpander(rec, logger, out, rand.New(rand.NewSource(42)))
}

func TestRandomQuery(t *testing.T) {
	e := newTestExpander(&memRecorder{}, io.Discard)

	placements := map[string]int{"suffix": 0, "both": 0, "prefix": 0, "bare": 0}
	for i := 0; i < 200; i++ {
		q := e.RandomQuery("*")
		core := strings.Trim(q, "*")
		if len(core) < 1 || len(core) > 3 {
			t.Fatalf("query %q core length %d, want 1-3", q, len(core))
		}
		if core != strings.ToLower(core) {
			t.Errorf("query %q is not lower-cased", q)
		}
		switch {
		case strings.HasPrefix(q, "*") && strings.HasSuffix(q, "*"):
			placements["both"]++
		case strings.HasSuffix(q, "*"):
			placements["suffix"]++
		case strings.HasPrefix(q, "*"):
			placements["prefix"]++
		default:
			placements["bare"]++
		}
	}
	for placement, count := range placements {
		if count == 0 {
			t.Errorf("placement %q never produced in 200 draws", placement)
		}
	}
}

func TestPick(t *testing.T) {
	e := newTestExpander(&memRecorder{}, io.Discard)

	t.Run("single result is taken as-is", func(t *testing.T) {
		results := anchorResult("only")
		if got := e.pick(results); got.Name != "only" {
			t.Errorf("pick() = %q, want only", got.Name)
		}
	})

	t.Run("favors the top result four times out of five", func(t *testing.T) {
		results := []platform.Candidate{
			platform.NewCandidate("top", nil, "1"),
			platform.NewCandidate("alt1", nil, "2"),
			platform.NewCandidate("alt2", nil, "3"),
		}
		top := 0
		for i := 0; i < 1000; i++ {
			if e.pick(results).Name == "top" {
				top++
			}
		}
		if top < 700 || top > 900 {
			t.Errorf("top picked %d/1000 times, want roughly 800", top)
		}
	})
}

func TestExpand(t *testing.T) {
	t.Run("rejects identical platforms", func(t *testing.T) {
		e := newTestExpander(&memRecorder{}, io.Discard)
		p1 := &tu.FakeClient{Name: platform.Spotify}
		p2 := &tu.FakeClient{Name: platform.Spotify}

		_, err := e.Expand(context.Background(), p1, p2, 1)
		if !errors.Is(err, shared.ErrSamePlatform) {
			t.Errorf("error = %v, want ErrSamePlatform", err)
		}
	})

	t.Run("harvests and saves the requested number of pairs", func(t *testing.T) {
		rec := &memRecorder{}
		var out bytes.Buffer
		e := newTestExpander(rec, &out)

		p1 := &tu.FakeClient{Name: platform.Spotify, Results: [][]platform.Candidate{
			anchorResult("anchor one"),
			anchorResult("anchor two"),
			anchorResult("anchor three"),
		}}
		p2 := &tu.FakeClient{Name: platform.YouTube, Results: [][]platform.Candidate{
			anchorResult("counterpart one"),
			anchorResult("counterpart two"),
			anchorResult("counterpart three"),
		}}

		added, err := e.Expand(context.Background(), p1, p2, 3)
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}
		if added != 3 {
			t.Errorf("added = %d, want 3", added)
		}
		if len(rec.pairs) != 3 {
			t.Fatalf("recorded %d pairs, want 3", len(rec.pairs))
		}
		// Under the quicksave threshold everything lands in one write.
		if rec.appends != 1 {
			t.Errorf("appends = %d, want 1", rec.appends)
		}
		if rec.pairs[0].Name1 != "anchor one" || rec.pairs[0].Name2 != "counterpart one" {
			t.Errorf("pair 0 = %q/%q", rec.pairs[0].Name1, rec.pairs[0].Name2)
		}
		if rec.pairs[0].Platform1 != platform.Spotify || rec.pairs[0].Platform2 != platform.YouTube {
			t.Errorf("pair 0 platforms = %v/%v", rec.pairs[0].Platform1, rec.pairs[0].Platform2)
		}
		for i := 1; i <= 3; i++ {
			if want := fmt.Sprintf("adding pair %d/3", i); !strings.Contains(out.String(), want) {
				t.Errorf("output missing %q:\n%s", want, out.String())
			}
		}
		if p1.Opens != 1 || p1.Closes != 1 {
			t.Errorf("p1 opens/closes = %d/%d, want 1/1", p1.Opens, p1.Closes)
		}
		if p2.Opens != 1 || p2.Closes != 1 {
			t.Errorf("p2 opens/closes = %d/%d, want 1/1", p2.Opens, p2.Closes)
		}
	})

	t.Run("flushes at the quicksave interval", func(t *testing.T) {
		rec := &memRecorder{}
		e := newTestExpander(rec, io.Discard)

		count := DefaultQuicksave + 1
		var r1, r2 [][]platform.Candidate
		for i := 0; i < count; i++ {
			r1 = append(r1, anchorResult(fmt.Sprintf("anchor %d", i)))
			r2 = append(r2, anchorResult(fmt.Sprintf("counterpart %d", i)))
		}
		p1 := &tu.FakeClient{Name: platform.Spotify, Results: r1}
		p2 := &tu.FakeClient{Name: platform.YouTube, Results: r2}

		added, err := e.Expand(context.Background(), p1, p2, count)
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}
		if added != count {
			t.Errorf("added = %d, want %d", added, count)
		}
		if rec.appends != 2 {
			t.Errorf("appends = %d, want 2 (quicksave plus final flush)", rec.appends)
		}
		if len(rec.pairs) != count {
			t.Errorf("recorded %d pairs, want %d", len(rec.pairs), count)
		}
	})

	t.Run("skips pairs whose names match exactly", func(t *testing.T) {
		rec := &memRecorder{}
		e := newTestExpander(rec, io.Discard)

		p1 := &tu.FakeClient{Name: platform.Spotify, Results: [][]platform.Candidate{
			anchorResult("same name"),
			anchorResult("other"),
		}}
		p2 := &tu.FakeClient{Name: platform.YouTube, Results: [][]platform.Candidate{
			anchorResult("same name"), // string comparison already settles this one
			anchorResult("counterpart"),
		}}

		added, err := e.Expand(context.Background(), p1, p2, 1)
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}
		if added != 1 || len(rec.pairs) != 1 {
			t.Fatalf("added = %d, recorded = %d, want 1/1", added, len(rec.pairs))
		}
		if rec.pairs[0].Name1 != "other" {
			t.Errorf("recorded pair %q, want the retried anchor", rec.pairs[0].Name1)
		}
	})

	t.Run("skips pairs the dataset already holds", func(t *testing.T) {
		rec := &memRecorder{pairs: []Pair{{Name1: "counterpart", Name2: "known anchor"}}}
		e := newTestExpander(rec, io.Discard)

		p1 := &tu.FakeClient{Name: platform.Spotify, Results: [][]platform.Candidate{
			anchorResult("known anchor"), // already recorded, order reversed
			anchorResult("fresh anchor"),
		}}
		p2 := &tu.FakeClient{Name: platform.YouTube, Results: [][]platform.Candidate{
			anchorResult("counterpart"),
			anchorResult("fresh counterpart"),
		}}

		added, err := e.Expand(context.Background(), p1, p2, 1)
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}
		if added != 1 || len(rec.pairs) != 2 {
			t.Fatalf("added = %d, recorded = %d, want 1 new pair", added, len(rec.pairs))
		}
		if rec.pairs[1].Name1 != "fresh anchor" {
			t.Errorf("recorded pair %q, want fresh anchor", rec.pairs[1].Name1)
		}
	})

	t.Run("retries empty counterpart searches", func(t *testing.T) {
		rec := &memRecorder{}
		e := newTestExpander(rec, io.Discard)

		p1 := &tu.FakeClient{Name: platform.Spotify, Results: [][]platform.Candidate{
			anchorResult("anchor one"),
			anchorResult("anchor two"),
		}}
		p2 := &tu.FakeClient{Name: platform.YouTube, Results: [][]platform.Candidate{
			nil,
			anchorResult("counterpart"),
		}}

		added, err := e.Expand(context.Background(), p1, p2, 1)
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}
		if added != 1 || rec.pairs[0].Name1 != "anchor two" {
			t.Errorf("added = %d, pair = %+v, want the second anchor", added, rec.pairs)
		}
	})

	t.Run("stops on cancellation and keeps what was flushed", func(t *testing.T) {
		rec := &memRecorder{}
		e := newTestExpander(rec, io.Discard)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p1 := &tu.FakeClient{Name: platform.Spotify}
		p2 := &tu.FakeClient{Name: platform.YouTube}

		added, err := e.Expand(ctx, p1, p2, 5)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if added != 0 {
			t.Errorf("added = %d, want 0", added)
		}
		if p1.Closes != 1 || p2.Closes != 1 {
			t.Errorf("clients not closed: %d/%d", p1.Closes, p2.Closes)
		}
	})

	t.Run("closes the first client when the second fails to open", func(t *testing.T) {
		e := newTestExpander(&memRecorder{}, io.Discard)
		boom := errors.New("browser gone")

		p1 := &tu.FakeClient{Name: platform.Spotify}
		p2 := &tu.FakeClient{Name: platform.Amazon, OpenErr: boom}

		_, err := e.Expand(context.Background(), p1, p2, 1)
		if !errors.Is(err, boom) {
			t.Errorf("error = %v, want %v", err, boom)
		}
		if p1.Closes != 1 {
			t.Errorf("p1 closes = %d, want 1", p1.Closes)
		}
	})
}
