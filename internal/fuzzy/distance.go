// Package fuzzy ranks reference names by edit distance to free text.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// Distance is the case-insensitive Levenshtein distance between a and b.
func Distance(a, b string) int {
	return levenshtein.Distance(strings.ToUpper(a), strings.ToUpper(b), nil)
}

// Ranked pairs an item with its distance to the target.
type Ranked[T any] struct {
	Item     T
	Distance int
}

// Rank scores every item against target using the smallest distance among
// the names returned for it, drops those above max (max <= 0 keeps all) and
// sorts ascending. The sort is stable, so ties keep enumeration order.
func Rank[T any](target string, items []T, names func(T) []string, max int) []Ranked[T] {
	ranked := make([]Ranked[T], 0, len(items))
	for _, it := range items {
		best := -1
		for _, n := range names(it) {
			if d := Distance(target, n); best < 0 || d < best {
				best = d
			}
		}
		if best < 0 || (max > 0 && best > max) {
			continue
		}
		ranked = append(ranked, Ranked[T]{Item: it, Distance: best})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Distance < ranked[j].Distance })
	return ranked
}

// Groups splits a ranked slice into runs of equal distance, nearest first.
func Groups[T any](ranked []Ranked[T]) [][]T {
	var groups [][]T
	for i := 0; i < len(ranked); {
		j := i
		var group []T
		for j < len(ranked) && ranked[j].Distance == ranked[i].Distance {
			group = append(group, ranked[j].Item)
			j++
		}
		groups = append(groups, group)
		i = j
	}
	return groups
}
