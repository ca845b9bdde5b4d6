package formatter

import (
	"errors"
	"testing"

	"github.com/tunelark/crossfade/internal/platform"
)

func TestOutcomeLines(t *testing.T) {
	song := platform.NewSong("Reckoner", "Radiohead")
	instrumental := platform.NewSong("Interlude", "")

	cases := []struct {
		name string
		got  string
		want string
	}{
		{"Added", Added(song), "added: reckoner - radiohead"},
		{"AlreadyInPlaylist", AlreadyInPlaylist(song), "already in playlist: reckoner - radiohead"},
		{"NoMatch", NoMatch(song), "no match found: reckoner - radiohead"},
		{"NoSearchResult", NoSearchResult(song), "no search result for: reckoner - radiohead"},
		{"Skipped", Skipped(song, errors.New("rate limited")), "skipped reckoner - radiohead: rate limited"},
		{"UpdatingPlatform", UpdatingPlatform(platform.Spotify), "updating spotify"},
		{"song without artist", Added(instrumental), "added: interlude"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestWriteCSV(t *testing.T) {
	t.Run("headers and records", func(t *testing.T) {
		data, err := WriteCSV([]string{"name", "artist"}, [][]string{
			{"reckoner", "radiohead"},
			{"holocene", "bon iver"},
		})
		if err != nil {
			t.Fatalf("WriteCSV() error = %v", err)
		}
		want := "name,artist\nreckoner,radiohead\nholocene,bon iver\n"
		if string(data) != want {
			t.Errorf("got %q, want %q", data, want)
		}
	})

	t.Run("no headers writes records only", func(t *testing.T) {
		data, err := WriteCSV(nil, [][]string{{"reckoner", "radiohead"}})
		if err != nil {
			t.Fatalf("WriteCSV() error = %v", err)
		}
		if want := "reckoner,radiohead\n"; string(data) != want {
			t.Errorf("got %q, want %q", data, want)
		}
	})

	t.Run("quotes fields containing commas", func(t *testing.T) {
		data, err := WriteCSV([]string{"name"}, [][]string{{"hello, goodbye"}})
		if err != nil {
			t.Fatalf("WriteCSV() error = %v", err)
		}
		if want := "name\n\"hello, goodbye\"\n"; string(data) != want {
			t.Errorf("got %q, want %q", data, want)
		}
	})
}
