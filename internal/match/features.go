// Package match decides whether two differently formatted song titles denote
// the same song. It combines exact string comparison with a probabilistic
// fallback: a feature vector over the title pair is fed to a pluggable
// binary classifier whose class-1 probability acts as the match confidence.
package match

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Character buckets the featurizer counts per title. Characters outside all
// buckets land in a shared "etc" bucket.
const (
	letterChars = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	punctChars  = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// FeatureSize is the length of the vector produced by [Features]: the length
// difference, one count-difference slot per bucket character, the etc bucket
// and the edit distance.
const FeatureSize = 1 + len(letterChars) + len(digitChars) + len(punctChars) + 1 + 1

// FeatureNames returns one column label per [Features] slot, in order.
func FeatureNames() []string {
	names := make([]string, 0, FeatureSize)
	names = append(names, "name_diff")
	for _, r := range letterChars + digitChars + punctChars {
		names = append(names, string(r))
	}
	names = append(names, "etc", "edit_distance")
	return names
}

// Features turns a title pair into a numeric vector: absolute length
// difference, per-character-bucket count differences and the Levenshtein
// distance between the two strings. Pure and order-symmetric.
func Features(name1, name2 string) []float64 {
	name1 = strings.ToLower(name1)
	name2 = strings.ToLower(name2)

	counts1 := charCounts(name1)
	counts2 := charCounts(name2)

	features := make([]float64, 0, FeatureSize)
	features = append(features, absF(len(name1)-len(name2)))
	for i := range counts1 {
		features = append(features, absF(counts1[i]-counts2[i]))
	}
	features = append(features, float64(levenshtein.ComputeDistance(name1, name2)))
	return features
}

// charCounts histograms a string over the feature buckets; the final slot is
// the etc bucket.
func charCounts(s string) []int {
	buckets := letterChars + digitChars + punctChars
	counts := make([]int, len(buckets)+1)
	for _, r := range s {
		idx := strings.IndexRune(buckets, r)
		if idx < 0 {
			idx = len(buckets) // etc
		}
		counts[idx]++
	}
	return counts
}

func absF(n int) float64 {
	if n < 0 {
		n = -n
	}
	return float64(n)
}
