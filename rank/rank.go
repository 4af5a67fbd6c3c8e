package rank

import (
	"math"
	"sort"

	"colab-catalog/catalog"
)

// Entry is one ranked key with its count.
type Entry struct {
	Key   string
	Count int64
}

// AuthorCount is one author with their total project count.
type AuthorCount struct {
	Author catalog.Author
	Count  int
}

// AuthorRanking is a tie-expanded author ranking together with the
// effective cutoff that was actually applied. EffectiveK can exceed the
// requested k and is reused by rankings that must stay consistent with
// the author list.
type AuthorRanking struct {
	Authors    []AuthorCount
	EffectiveK int
}

// Top returns the k highest-count entries sorted by count descending.
// The cutoff is strict: entries tied with the last included entry are
// dropped. Equal counts order by key so results are deterministic.
func Top(counts map[string]int64, k int) []Entry {
	entries := make([]Entry, 0, len(counts))
	for key, count := range counts {
		entries = append(entries, Entry{Key: key, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})

	if k < 0 {
		k = 0
	}
	if len(entries) > k {
		entries = entries[:k]
	}
	return entries
}

// TopAuthors returns the top k authors by contribution count. Unlike
// Top, the cutoff never splits a tie: authors past position k that
// share the k-th author's count are included as well, and the expanded
// cutoff is returned as EffectiveK.
func TopAuthors(counts map[catalog.Author]int, k int) AuthorRanking {
	if k <= 0 {
		return AuthorRanking{}
	}

	authors := make([]AuthorCount, 0, len(counts))
	for author, count := range counts {
		authors = append(authors, AuthorCount{Author: author, Count: count})
	}
	sort.Slice(authors, func(i, j int) bool {
		if authors[i].Count != authors[j].Count {
			return authors[i].Count > authors[j].Count
		}
		if authors[i].Author.Name != authors[j].Author.Name {
			return authors[i].Author.Name < authors[j].Author.Name
		}
		return authors[i].Author.URL < authors[j].Author.URL
	})

	if len(authors) <= k {
		return AuthorRanking{Authors: authors, EffectiveK: len(authors)}
	}

	cutoff := authors[k-1].Count
	idx := k
	for idx < len(authors) && authors[idx].Count == cutoff {
		idx++
	}
	return AuthorRanking{Authors: authors[:idx], EffectiveK: idx}
}

// VisibleCount derives how many authors a project row shows inline
// before collapsing the rest: the floor of the smaller of mean and
// median group size. Returns 0 for an empty input.
func VisibleCount(sizes []int) int {
	if len(sizes) == 0 {
		return 0
	}

	sum := 0
	for _, s := range sizes {
		sum += s
	}
	mean := float64(sum) / float64(len(sizes))

	sorted := make([]int, len(sizes))
	copy(sorted, sizes)
	sort.Ints(sorted)

	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		median = float64(sorted[mid])
	} else {
		median = float64(sorted[mid-1]+sorted[mid]) / 2
	}

	return int(math.Floor(math.Min(mean, median)))
}

// Trending orders keys by the ratio of current count to previous
// snapshot count and returns the top k, strictly truncated. A key with
// no previous entry scores 0, so a first appearance never trends. A
// zero previous count with a positive current count scores infinite and
// ranks first.
func Trending(current, previous map[string]int64, k int) []string {
	scores := make(map[string]float64, len(current))
	for key, cur := range current {
		scores[key] = growth(cur, previous, key)
	}
	return TopByScore(scores, k)
}

func growth(current int64, previous map[string]int64, key string) float64 {
	prev, ok := previous[key]
	if !ok {
		return 0
	}
	if prev <= 0 {
		if current > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return float64(current) / float64(prev)
}

// TopByScore returns the k highest-scoring keys, descending, with equal
// scores ordered by key.
func TopByScore(scores map[string]float64, k int) []string {
	type scored struct {
		key   string
		score float64
	}
	entries := make([]scored, 0, len(scores))
	for key, score := range scores {
		entries = append(entries, scored{key: key, score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].key < entries[j].key
	})

	if k < 0 {
		k = 0
	}
	if len(entries) > k {
		entries = entries[:k]
	}

	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	return keys
}

// DownloadTrend scores a package's recent download volume against its
// historical volume: last month's downloads divided by all earlier
// downloads. When every recorded download happened in the last month
// the score is infinite. A package with no recent downloads scores 0.
func DownloadTrend(lastMonth, total int64) float64 {
	if lastMonth <= 0 {
		return 0
	}
	historical := total - lastMonth
	if historical <= 0 {
		return math.Inf(1)
	}
	return float64(lastMonth) / float64(historical)
}
