package dataset

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tunelark/crossfade/internal/match"
	"github.com/tunelark/crossfade/internal/platform"
	"github.com/tunelark/crossfade/internal/shared"
	tu "github.com/tunelark/crossfade/internal/testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return NewStore(db)
}

func label(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func testPair(name1, name2 string, same sql.NullInt64) Pair {
	p := NewPair(platform.Spotify, platform.YouTube,
		platform.NewSong(name1, "artist one"),
		platform.NewSong(name2, "artist two"))
	p.Same = same
	return p
}

func TestStore(t *testing.T) {
	t.Run("Create registers a new dataset", func(t *testing.T) {
		store := newTestStore(t)

		ds, err := store.Create("training")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if ds.Name() != "training" {
			t.Errorf("Name() = %q, want training", ds.Name())
		}
	})

	t.Run("Create rejects an existing name", func(t *testing.T) {
		store := newTestStore(t)
		if _, err := store.Create("training"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		_, err := store.Create("training")
		if !errors.Is(err, shared.ErrDatasetExists) {
			t.Errorf("error = %v, want ErrDatasetExists", err)
		}
	})

	t.Run("Open returns a handle to an existing dataset", func(t *testing.T) {
		store := newTestStore(t)
		if _, err := store.Create("training"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		ds, err := store.Open("training")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if ds.Name() != "training" {
			t.Errorf("Name() = %q, want training", ds.Name())
		}
	})

	t.Run("Open rejects an unknown dataset", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.Open("missing")
		if !errors.Is(err, shared.ErrNoDataset) {
			t.Errorf("error = %v, want ErrNoDataset", err)
		}
	})

	t.Run("Names lists registered datasets", func(t *testing.T) {
		store := newTestStore(t)
		for _, name := range []string{"alpha", "beta"} {
			if _, err := store.Create(name); err != nil {
				t.Fatalf("Create(%q) error = %v", name, err)
			}
		}

		names, err := store.Names()
		if err != nil {
			t.Fatalf("Names() error = %v", err)
		}
		if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
			t.Errorf("Names() = %v, want [alpha beta]", names)
		}
	})
}

func TestDataset(t *testing.T) {
	newDataset := func(t *testing.T) *Dataset {
		t.Helper()
		ds, err := newTestStore(t).Create("training")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		return ds
	}

	t.Run("Append assigns IDs and preserves insertion order", func(t *testing.T) {
		ds := newDataset(t)

		err := ds.Append(
			testPair("reckoner", "reckoner (live)", label(1)),
			testPair("holocene", "hologram", label(0)),
		)
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		pairs, err := ds.Pairs()
		if err != nil {
			t.Fatalf("Pairs() error = %v", err)
		}
		if len(pairs) != 2 {
			t.Fatalf("got %d pairs, want 2", len(pairs))
		}
		if pairs[0].Name1 != "reckoner" || pairs[1].Name1 != "holocene" {
			t.Errorf("pairs out of order: %q then %q", pairs[0].Name1, pairs[1].Name1)
		}
		for i, p := range pairs {
			if p.ID == "" {
				t.Errorf("pair %d has no ID", i)
			}
			if p.Platform1 != platform.Spotify || p.Platform2 != platform.YouTube {
				t.Errorf("pair %d platforms = %v/%v", i, p.Platform1, p.Platform2)
			}
		}
		if !pairs[0].Same.Valid || pairs[0].Same.Int64 != 1 {
			t.Errorf("pair 0 label = %+v, want 1", pairs[0].Same)
		}

		if count, err := ds.Len(); err != nil || count != 2 {
			t.Errorf("Len() = %d, %v, want 2", count, err)
		}
	})

	t.Run("Append with no pairs is a no-op", func(t *testing.T) {
		ds := newDataset(t)
		if err := ds.Append(); err != nil {
			t.Errorf("Append() error = %v", err)
		}
	})

	t.Run("Contains ignores name order", func(t *testing.T) {
		ds := newDataset(t)
		if err := ds.Append(testPair("reckoner", "reckoner (live)", sql.NullInt64{})); err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		cases := []struct {
			name1, name2 string
			want         bool
		}{
			{"reckoner", "reckoner (live)", true},
			{"reckoner (live)", "reckoner", true},
			{"reckoner", "holocene", false},
		}
		for _, tc := range cases {
			got, err := ds.Contains(tc.name1, tc.name2)
			if err != nil {
				t.Fatalf("Contains(%q, %q) error = %v", tc.name1, tc.name2, err)
			}
			if got != tc.want {
				t.Errorf("Contains(%q, %q) = %v, want %v", tc.name1, tc.name2, got, tc.want)
			}
		}
	})

	t.Run("FillGuesses labels every row against the confidence cutoff", func(t *testing.T) {
		ds := newDataset(t)
		err := ds.Append(
			testPair("reckoner", "reckoner (live)", sql.NullInt64{}),
			testPair("holocene", "hologram", sql.NullInt64{}),
		)
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		updated, err := ds.FillGuesses(tu.ConstScorer{P: 0.9}, 0.7)
		if err != nil {
			t.Fatalf("FillGuesses() error = %v", err)
		}
		if updated != 2 {
			t.Errorf("updated = %d, want 2", updated)
		}

		pairs, err := ds.Pairs()
		if err != nil {
			t.Fatalf("Pairs() error = %v", err)
		}
		for i, p := range pairs {
			if !p.Guess.Valid || p.Guess.Int64 != 1 {
				t.Errorf("pair %d guess = %+v, want 1", i, p.Guess)
			}
		}

		if _, err := ds.FillGuesses(tu.ConstScorer{P: 0.1}, 0.7); err != nil {
			t.Fatalf("FillGuesses() error = %v", err)
		}
		pairs, _ = ds.Pairs()
		for i, p := range pairs {
			if !p.Guess.Valid || p.Guess.Int64 != 0 {
				t.Errorf("pair %d guess = %+v, want 0", i, p.Guess)
			}
		}
	})
}

func TestExportRaw(t *testing.T) {
	store := newTestStore(t)
	ds, err := store.Create("training")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err = ds.Append(
		testPair("reckoner", "reckoner (live)", label(1)),
		testPair("holocene", "hologram", sql.NullInt64{}),
	)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	dir := t.TempDir()
	if err := ds.ExportRaw(dir); err != nil {
		t.Fatalf("ExportRaw() error = %v", err)
	}

	content := tu.MustReadFile(t, filepath.Join(dir, "training.csv"))
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 rows:\n%s", len(lines), content)
	}
	if lines[0] != strings.Join(rawHeaders, ",") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "reckoner (live)") {
		t.Errorf("row 1 = %q, want the first pair", lines[1])
	}
	// The unlabeled row ends with two empty cells.
	if !strings.HasSuffix(lines[2], ",,") {
		t.Errorf("row 2 = %q, want empty label cells", lines[2])
	}
}

func TestExportProcessed(t *testing.T) {
	newLabeled := func(t *testing.T, pairs ...Pair) *Dataset {
		t.Helper()
		ds, err := newTestStore(t).Create("training")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := ds.Append(pairs...); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		return ds
	}

	t.Run("writes a feature row per labeled pair", func(t *testing.T) {
		ds := newLabeled(t,
			testPair("reckoner", "reckoner (live)", label(1)),
			testPair("holocene", "hologram", label(0)),
		)
		dir := t.TempDir()

		if err := ds.ExportProcessed(dir, false); err != nil {
			t.Fatalf("ExportProcessed() error = %v", err)
		}

		content := tu.MustReadFile(t, filepath.Join(dir, "training.csv"))
		lines := strings.Split(strings.TrimSpace(content), "\n")
		if len(lines) != 3 {
			t.Fatalf("got %d lines, want header plus 2 rows", len(lines))
		}
		wantCols := match.FeatureSize + 1
		if got := len(strings.Split(lines[0], ",")); got != wantCols {
			t.Errorf("header has %d columns, want %d", got, wantCols)
		}
		if !strings.HasSuffix(lines[1], ",1") {
			t.Errorf("row 1 = %q, want label 1", lines[1])
		}
		if !strings.HasSuffix(lines[2], ",0") {
			t.Errorf("row 2 = %q, want label 0", lines[2])
		}
	})

	t.Run("rejects unlabeled rows", func(t *testing.T) {
		ds := newLabeled(t, testPair("reckoner", "reckoner (live)", sql.NullInt64{}))

		err := ds.ExportProcessed(t.TempDir(), false)
		if !errors.Is(err, shared.ErrUnlabeledRows) {
			t.Errorf("error = %v, want ErrUnlabeledRows", err)
		}
	})

	t.Run("appends only new pairs to an existing export", func(t *testing.T) {
		ds := newLabeled(t, testPair("reckoner", "reckoner (live)", label(1)))
		dir := t.TempDir()

		if err := ds.ExportProcessed(dir, false); err != nil {
			t.Fatalf("first export error = %v", err)
		}
		if err := ds.Append(testPair("holocene", "hologram", label(0))); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := ds.ExportProcessed(dir, false); err != nil {
			t.Fatalf("second export error = %v", err)
		}

		content := tu.MustReadFile(t, filepath.Join(dir, "training.csv"))
		lines := strings.Split(strings.TrimSpace(content), "\n")
		if len(lines) != 3 {
			t.Fatalf("got %d lines after append, want header plus 2 rows:\n%s", len(lines), content)
		}
	})

	t.Run("override rewrites from scratch", func(t *testing.T) {
		ds := newLabeled(t, testPair("reckoner", "reckoner (live)", label(1)))
		dir := t.TempDir()

		if err := ds.ExportProcessed(dir, false); err != nil {
			t.Fatalf("first export error = %v", err)
		}
		if err := ds.ExportProcessed(dir, true); err != nil {
			t.Fatalf("override export error = %v", err)
		}

		content := tu.MustReadFile(t, filepath.Join(dir, "training.csv"))
		lines := strings.Split(strings.TrimSpace(content), "\n")
		if len(lines) != 2 {
			t.Fatalf("got %d lines after override, want header plus 1 row", len(lines))
		}
	})
}
