package platform

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/tunelark/crossfade/internal/shared"
)

func TestPlatform(t *testing.T) {
	t.Run("Parse", func(t *testing.T) {
		cases := map[string]Platform{
			"spotify":  Spotify,
			"Amazon":   Amazon,
			" YOUTUBE": YouTube,
		}
		for input, want := range cases {
			got, err := Parse(input)
			if err != nil {
				t.Errorf("Parse(%q) failed: %v", input, err)
				continue
			}
			if got != want {
				t.Errorf("Parse(%q) = %v, want %v", input, got, want)
			}
		}

		t.Run("unknown platform is a typed error", func(t *testing.T) {
			if _, err := Parse("tidal"); !errors.Is(err, shared.ErrUnknownPlatform) {
				t.Errorf("expected ErrUnknownPlatform, got %v", err)
			}
		})
	})

	t.Run("canonical order puts amazon first", func(t *testing.T) {
		if All[0] != Amazon {
			t.Errorf("expected amazon first in %v", All)
		}
	})
}

func TestSong(t *testing.T) {
	t.Run("NewSong folds to lower case", func(t *testing.T) {
		song := NewSong("Karma Police", "Radiohead")
		if song.Name != "karma police" || song.Artist != "radiohead" {
			t.Errorf("expected folded fields, got %+v", song)
		}
	})
}

func TestSnapshot(t *testing.T) {
	snap := &Snapshot{
		Platform: Spotify,
		Handle:   "h",
		Songs:    []Song{NewSong("Karma Police", "Radiohead")},
	}

	t.Run("ContainsName is case-insensitive", func(t *testing.T) {
		if !snap.ContainsName("KARMA POLICE") {
			t.Error("expected name to be found after folding")
		}
		if snap.ContainsName("reckoner") {
			t.Error("did not expect missing name to be found")
		}
	})

	t.Run("Names covers every song", func(t *testing.T) {
		names := snap.Names()
		if _, ok := names["karma police"]; !ok {
			t.Errorf("expected karma police in %v", names)
		}
	})
}

func TestCandidate(t *testing.T) {
	t.Run("NewCandidate folds name and artists", func(t *testing.T) {
		c := NewCandidate("Karma Police", []string{"Radiohead"}, "id")
		if c.Name != "karma police" || c.Artists[0] != "radiohead" {
			t.Errorf("expected folded fields, got %+v", c)
		}
	})

	t.Run("HasArtist", func(t *testing.T) {
		t.Run("exact match", func(t *testing.T) {
			c := NewCandidate("t", []string{"radiohead"}, "id")
			if !c.HasArtist("Radiohead") {
				t.Error("expected exact artist match")
			}
		})

		t.Run("containment matches combined artist lines", func(t *testing.T) {
			c := NewCandidate("t", []string{"radiohead feat. thom yorke"}, "id")
			if !c.HasArtist("radiohead") {
				t.Error("expected containment match")
			}
		})

		t.Run("empty artist never matches", func(t *testing.T) {
			c := NewCandidate("t", []string{"radiohead"}, "id")
			if c.HasArtist("") {
				t.Error("empty artist must not match")
			}
		})

		t.Run("unrelated artist does not match", func(t *testing.T) {
			c := NewCandidate("t", []string{"radiohead"}, "id")
			if c.HasArtist("muse") {
				t.Error("unrelated artist must not match")
			}
		})
	})

	t.Run("Song uses the first listed artist", func(t *testing.T) {
		c := NewCandidate("t", []string{"first", "second"}, "id")
		if got := c.Song(); got.Artist != "first" {
			t.Errorf("expected first artist, got %q", got.Artist)
		}
	})
}

func TestSearchQuery(t *testing.T) {
	if got := searchQuery("reckoner", "radiohead"); got != "reckoner by radiohead" {
		t.Errorf("unexpected query %q", got)
	}
	if got := searchQuery("reckoner", ""); got != "reckoner" {
		t.Errorf("unexpected query %q", got)
	}
}

func TestTrimCandidates(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	candidates := make([]Candidate, 8)
	for i := range candidates {
		candidates[i] = NewCandidate(string(rune('a'+i)), nil, string(rune('a'+i)))
	}

	t.Run("short lists pass through", func(t *testing.T) {
		got := trimCandidates(rng, candidates[:3], 5, false)
		if len(got) != 3 {
			t.Errorf("expected 3 candidates, got %d", len(got))
		}
	})

	t.Run("top ranking keeps platform order", func(t *testing.T) {
		got := trimCandidates(rng, candidates, 5, false)
		if len(got) != 5 {
			t.Fatalf("expected 5 candidates, got %d", len(got))
		}
		for i := range got {
			if got[i].ID != candidates[i].ID {
				t.Errorf("position %d: expected %s, got %s", i, candidates[i].ID, got[i].ID)
			}
		}
	})

	t.Run("random sampling still returns the requested count", func(t *testing.T) {
		got := trimCandidates(rng, candidates, 5, true)
		if len(got) != 5 {
			t.Fatalf("expected 5 candidates, got %d", len(got))
		}
		seen := map[string]bool{}
		for _, c := range got {
			if seen[c.ID] {
				t.Errorf("duplicate candidate %s in sample", c.ID)
			}
			seen[c.ID] = true
		}
	})
}
