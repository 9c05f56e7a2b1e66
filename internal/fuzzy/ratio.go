// Package fuzzy scores free text against category definitions.
//
// Every function in this package is pure: identical inputs always produce
// identical scores, and nothing here returns an error.
package fuzzy

import (
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Normalize lowercases text, trims it, and collapses internal whitespace runs
// to a single space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Ratio is the whole-string similarity of a and b on a 0-100 scale.
// Inputs are compared as given; callers normalize first.
func Ratio(a, b string) int {
	return toScore(similarity(a, b))
}

// PartialRatio is the best Ratio of the shorter string against every
// equal-length window of the longer one, so a keyword buried inside a longer
// description can still score 100.
func PartialRatio(a, b string) int {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		return 0
	}
	if len(shorter) == len(longer) {
		return Ratio(a, b)
	}

	needle := string(shorter)
	best := 0.0
	for start := 0; start+len(shorter) <= len(longer); start++ {
		s := similarity(needle, string(longer[start:start+len(shorter)]))
		if s > best {
			best = s
			if best == 1 {
				break
			}
		}
	}
	return toScore(best)
}

// TokenSortRatio compares the strings after sorting their tokens, so word
// order does not matter.
func TokenSortRatio(a, b string) int {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the token intersection against each side's
// intersection-plus-remainder and keeps the best. Extra or repeated tokens on
// one side (store numbers, branch codes) do not lower the score.
func TokenSetRatio(a, b string) int {
	setA, setB := tokenSet(a), tokenSet(b)

	var common, onlyA, onlyB []string
	for tok := range setA {
		if setB[tok] {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if !setA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	return max(Ratio(base, withA), Ratio(base, withB), Ratio(withA, withB))
}

// similarity is 1 minus the edit distance over the longer rune length.
// Empty inputs never match anything.
func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	if a == b {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(max(la, lb))
}

func toScore(similarity float64) int {
	return int(math.Round(similarity * 100))
}

func sortedTokens(text string) string {
	tokens := strings.Fields(text)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(text) {
		set[tok] = true
	}
	return set
}
