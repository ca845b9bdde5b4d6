package dataset

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tunelark/crossfade/internal/formatter"
	"github.com/tunelark/crossfade/internal/match"
	"github.com/tunelark/crossfade/internal/platform"
	"github.com/tunelark/crossfade/internal/shared"
)

// Pair is one labeled row: two song renderings of (possibly) the same track,
// taken from two platforms. Same is the human label, Guess the model's.
type Pair struct {
	ID        string
	Dataset   string
	Platform1 platform.Platform
	Platform2 platform.Platform
	Name1     string
	Artist1   string
	Name2     string
	Artist2   string
	Same      sql.NullInt64
	Guess     sql.NullInt64
	CreatedAt time.Time
}

// NewPair builds an unlabeled pair from an anchor song and the candidate
// picked for it.
func NewPair(p1, p2 platform.Platform, anchor, chosen platform.Song) Pair {
	return Pair{
		Platform1: p1,
		Platform2: p2,
		Name1:     anchor.Name,
		Artist1:   anchor.Artist,
		Name2:     chosen.Name,
		Artist2:   chosen.Artist,
	}
}

// Store provides access to the dataset registry and the song_pairs table.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an already-migrated database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create registers a new empty dataset and returns a handle to it.
func (s *Store) Create(name string) (*Dataset, error) {
	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM datasets WHERE name = ?)", name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check dataset: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", shared.ErrDatasetExists, name)
	}

	if _, err := s.db.Exec("INSERT INTO datasets (name) VALUES (?)", name); err != nil {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}
	return &Dataset{store: s, name: name}, nil
}

// Open returns a handle to an existing dataset.
func (s *Store) Open(name string) (*Dataset, error) {
	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM datasets WHERE name = ?)", name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check dataset: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoDataset, name)
	}
	return &Dataset{store: s, name: name}, nil
}

// Names lists all registered datasets in creation order.
func (s *Store) Names() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM datasets ORDER BY created_at, name")
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan dataset name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Dataset is a handle to one named dataset within a [Store].
type Dataset struct {
	store *Store
	name  string
}

// Name returns the dataset's registered name.
func (d *Dataset) Name() string { return d.name }

// Append inserts pairs into the dataset in one transaction, assigning IDs.
func (d *Dataset) Append(pairs ...Pair) error {
	if len(pairs) == 0 {
		return nil
	}

	tx, err := d.store.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO song_pairs (
			id, dataset, platform1, platform2,
			name1, artist1, name2, artist2, same, ml_guess
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, p := range pairs {
		id := p.ID
		if id == "" {
			id = shared.GenerateID()
		}
		_, err := tx.Exec(query,
			id, d.name, string(p.Platform1), string(p.Platform2),
			p.Name1, p.Artist1, p.Name2, p.Artist2, p.Same, p.Guess,
		)
		if err != nil {
			return fmt.Errorf("failed to insert pair: %w", err)
		}
	}
	return tx.Commit()
}

// Contains reports whether a pair with the given names is already recorded.
// The order of the two names does not matter.
func (d *Dataset) Contains(name1, name2 string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM song_pairs
			WHERE dataset = ?
			  AND ((name1 = ? AND name2 = ?) OR (name1 = ? AND name2 = ?))
		)
	`
	var exists bool
	err := d.store.db.QueryRow(query, d.name, name1, name2, name2, name1).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pair: %w", err)
	}
	return exists, nil
}

// Pairs returns all rows of the dataset in insertion order.
func (d *Dataset) Pairs() ([]Pair, error) {
	query := `
		SELECT id, platform1, platform2, name1, artist1, name2, artist2,
		       same, ml_guess, created_at
		FROM song_pairs
		WHERE dataset = ?
		ORDER BY rowid
	`
	rows, err := d.store.db.Query(query, d.name)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairs: %w", err)
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		p := Pair{Dataset: d.name}
		var p1, p2 string
		err := rows.Scan(&p.ID, &p1, &p2, &p.Name1, &p.Artist1, &p.Name2, &p.Artist2,
			&p.Same, &p.Guess, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pair: %w", err)
		}
		p.Platform1 = platform.Platform(p1)
		p.Platform2 = platform.Platform(p2)
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// Len returns the number of pairs in the dataset.
func (d *Dataset) Len() (int, error) {
	var count int
	err := d.store.db.QueryRow("SELECT COUNT(*) FROM song_pairs WHERE dataset = ?", d.name).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pairs: %w", err)
	}
	return count, nil
}

// FillGuesses populates the ml_guess column for every row by scoring the name
// pair: rows at or above confidence are labeled 1, the rest 0. Returns the
// number of rows updated.
func (d *Dataset) FillGuesses(scorer match.NameScorer, confidence float64) (int, error) {
	pairs, err := d.Pairs()
	if err != nil {
		return 0, err
	}

	tx, err := d.store.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range pairs {
		guess := 0
		if scorer.Score(p.Name1, p.Name2) >= confidence {
			guess = 1
		}
		if _, err := tx.Exec("UPDATE song_pairs SET ml_guess = ? WHERE id = ?", guess, p.ID); err != nil {
			return 0, fmt.Errorf("failed to update guess: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(pairs), nil
}

// rawHeaders is the column layout of the raw CSV export.
var rawHeaders = []string{"platform1", "platform2", "name1", "artist1", "name2", "artist2", "same", "ml_guess"}

// ExportRaw writes the dataset as <dir>/<name>.csv with one row per pair.
// Unlabeled cells are left empty.
func (d *Dataset) ExportRaw(dir string) error {
	pairs, err := d.Pairs()
	if err != nil {
		return err
	}

	records := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		records = append(records, []string{
			string(p.Platform1), string(p.Platform2),
			p.Name1, p.Artist1, p.Name2, p.Artist2,
			nullLabel(p.Same), nullLabel(p.Guess),
		})
	}

	data, err := formatter.WriteCSV(rawHeaders, records)
	if err != nil {
		return err
	}
	return writeFile(dir, d.name, data)
}

// ExportProcessed featurizes every labeled pair and writes the result as
// <dir>/<name>.csv, ready for model training. With override set the target
// file is rewritten from scratch; otherwise rows already present are kept and
// only pairs beyond the existing count are appended.
func (d *Dataset) ExportProcessed(dir string, override bool) error {
	pairs, err := d.Pairs()
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if !p.Same.Valid {
			return fmt.Errorf("%w: pair %s", shared.ErrUnlabeledRows, p.ID)
		}
	}

	path := filepath.Join(dir, d.name+".csv")
	skip := 0
	if !override {
		existing, err := countRecords(path)
		if err != nil {
			return err
		}
		skip = existing
	}
	if skip > len(pairs) {
		skip = len(pairs)
	}

	headers := append(match.FeatureNames(), "same")
	records := make([][]string, 0, len(pairs)-skip)
	for _, p := range pairs[skip:] {
		record := make([]string, 0, len(headers))
		for _, f := range match.Features(p.Name1, p.Name2) {
			record = append(record, strconv.FormatFloat(f, 'g', -1, 64))
		}
		record = append(record, strconv.FormatInt(p.Same.Int64, 10))
		records = append(records, record)
	}

	if override || skip == 0 {
		data, err := formatter.WriteCSV(headers, records)
		if err != nil {
			return err
		}
		return writeFile(dir, d.name, data)
	}

	data, err := formatter.WriteCSV(nil, records)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open processed dataset: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to append processed rows: %w", err)
	}
	return nil
}

// countRecords returns the number of data rows (excluding the header) in an
// existing CSV file, or zero when the file does not exist yet.
func countRecords(path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read processed dataset: %w", err)
	}

	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	if count > 0 {
		count-- // header
	}
	return count, nil
}

func nullLabel(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}

func writeFile(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, name+".csv")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dataset export: %w", err)
	}
	return nil
}
