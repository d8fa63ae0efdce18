package config

import (
	"sort"
	"strings"
)

// SuggestClosest returns up to max profile names within a small edit
// distance of the input, closest first. Matching is case-insensitive and
// ignores separator differences ("prod-pg" matches "Prod PG").
func SuggestClosest(input string, names []string, max int) []string {
	type scored struct {
		name string
		dist int
	}

	normalized := normalizeName(input)
	threshold := len(normalized)/3 + 1
	if threshold < 2 {
		threshold = 2
	}

	var matches []scored
	for _, name := range names {
		d := levenshtein(normalized, normalizeName(name))
		if d <= threshold {
			matches = append(matches, scored{name: name, dist: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].dist < matches[j].dist })
	if len(matches) > max {
		matches = matches[:max]
	}

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}

func normalizeName(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
	return s
}

// levenshtein computes the edit distance between two strings using the
// two-row dynamic programming formulation.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
