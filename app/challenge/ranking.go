package challenge

import (
	"sort"
)

// Rank assigns 1-based positional ranks by counted-post total, descending.
// The sort is stable, so participants with equal totals keep their input
// order and still receive distinct consecutive ranks.
func Rank(standings []Standing) []Standing {
	ranked := make([]Standing, len(standings))
	copy(ranked, standings)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CountedPosts > ranked[j].CountedPosts
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}
