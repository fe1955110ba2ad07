package platform

import (
	"runtime"
	"sort"
)

// Rank is an ordered list of tiers, most specific first. Tags within the
// same tier are considered equally specific; a tier is usually a single
// tag, but can hold synonyms (e.g. "unix" and "posix") that should tie.
type Rank [][]string

// HostRank returns the ranked tier list for the running host, most
// specific first, falling back through the POSIX family to the universal
// "all" tag.
func HostRank() Rank {
	switch runtime.GOOS {
	case "linux":
		return Rank{{"linux"}, {"unix", "posix"}, {"all"}}
	case "darwin":
		return Rank{{"darwin", "macos"}, {"unix", "posix"}, {"all"}}
	case "windows":
		return Rank{{"windows"}, {"all"}}
	default:
		return Rank{{runtime.GOOS}, {"all"}}
	}
}

// Resolve picks the best candidate for rank: the earliest tier that
// contains at least one candidate wins, and within that tier the
// lexicographically smallest matching candidate is chosen (the tie-break
// for tags of equal specificity). Returns ("", false) if no candidate
// appears in any tier.
func Resolve(candidates []string, rank Rank) (string, bool) {
	in := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		in[c] = true
	}

	for _, tier := range rank {
		var matches []string
		for _, tag := range tier {
			if in[tag] {
				matches = append(matches, tag)
			}
		}
		if len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[0], true
	}
	return "", false
}

// ResolveChildren is a convenience wrapper over Resolve for callers that
// already have an unordered set of child names (e.g. from
// configtree.Tree.Children).
func ResolveChildren(children []string, rank Rank) (string, bool) {
	return Resolve(children, rank)
}
