package util

import (
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Suggest returns the candidate closest to name, or "" when nothing lies
// within maxDistance edits. Ties resolve to the alphabetically first name.
func Suggest(name string, candidates []string, maxDistance int) string {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	match := ""
	closest := maxDistance + 1
	for _, c := range sorted {
		d := levenshtein.DistanceForStrings(
			[]rune(strings.ToLower(name)),
			[]rune(strings.ToLower(c)),
			levenshtein.DefaultOptionsWithSub,
		)
		if d == 0 {
			return c
		}
		if d < closest {
			closest = d
			match = c
		}
	}
	return match
}
