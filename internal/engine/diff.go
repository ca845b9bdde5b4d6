package engine

import "github.com/tunelark/crossfade/internal/platform"

// Additions returns the songs of src that are missing from dst by
// case-insensitive name, in src's snapshot order. Pure; both snapshots are
// the frozen pre-run state.
func Additions(dst, src *platform.Snapshot) []platform.Song {
	have := dst.Names()
	var missing []platform.Song
	for _, song := range src.Songs {
		if _, ok := have[song.Name]; !ok {
			missing = append(missing, song)
		}
	}
	return missing
}

// UnionAdditions generalizes Additions to any number of snapshots: the union
// of all songs by name is computed first, then each platform's addition set
// is every union member absent from its own snapshot. A song present on two
// of three platforms is still added to the third.
//
// Union order follows the snapshot slice order, first occurrence of a name
// wins, so results are deterministic for a fixed input order.
func UnionAdditions(snapshots []*platform.Snapshot) map[platform.Platform][]platform.Song {
	var union []platform.Song
	seen := make(map[string]struct{})
	for _, snap := range snapshots {
		for _, song := range snap.Songs {
			if _, ok := seen[song.Name]; ok {
				continue
			}
			seen[song.Name] = struct{}{}
			union = append(union, song)
		}
	}

	additions := make(map[platform.Platform][]platform.Song, len(snapshots))
	for _, snap := range snapshots {
		have := snap.Names()
		var missing []platform.Song
		for _, song := range union {
			if _, ok := have[song.Name]; !ok {
				missing = append(missing, song)
			}
		}
		additions[snap.Platform] = missing
	}
	return additions
}
