package comments

import (
	"cmp"
	"slices"
)

// SortKey is the like count used for ordering. Degenerate entries sort as 0.
func (e Entry) SortKey() int {
	if e.IsDegenerate() {
		return 0
	}
	return SortLikes(e.Comment.Votes)
}

// SortByLikes returns a copy of entries ordered by SortKey, highest first.
// Equal keys keep their input order.
func SortByLikes(entries []Entry) []Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b Entry) int {
		return cmp.Compare(b.SortKey(), a.SortKey())
	})
	return out
}
