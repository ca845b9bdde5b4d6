// package formatter renders user-visible output: per-song outcome lines for
// reconciliation runs and CSV encoding for dataset exports
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/tunelark/crossfade/internal/platform"
)

// Added renders the outcome line for a committed song.
func Added(s platform.Song) string {
	return fmt.Sprintf("added: %s", songLabel(s))
}

// AlreadyInPlaylist renders the outcome line for a song that was already present.
func AlreadyInPlaylist(s platform.Song) string {
	return fmt.Sprintf("already in playlist: %s", songLabel(s))
}

// NoMatch renders the outcome line for a song no candidate qualified for.
func NoMatch(s platform.Song) string {
	return fmt.Sprintf("no match found: %s", songLabel(s))
}

// NoSearchResult renders the outcome line for a song the platform search
// returned nothing for.
func NoSearchResult(s platform.Song) string {
	return fmt.Sprintf("no search result for: %s", songLabel(s))
}

// Skipped renders the outcome line for a song skipped due to a transient failure.
func Skipped(s platform.Song, err error) string {
	return fmt.Sprintf("skipped %s: %v", songLabel(s), err)
}

// UpdatingPlatform renders the header line printed before a platform's
// addition pass.
func UpdatingPlatform(p platform.Platform) string {
	return fmt.Sprintf("updating %s", p)
}

func songLabel(s platform.Song) string {
	if s.Artist == "" {
		return s.Name
	}
	return fmt.Sprintf("%s - %s", s.Name, s.Artist)
}

// WriteCSV encodes a header row plus records as CSV bytes.
func WriteCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}
