package match

import (
	"sort"
	"strings"
)

// ratio is a SequenceMatcher-style similarity on a 0-100 scale:
// 2*LCS / (len(a)+len(b)). Rune-based, so multibyte input compares
// correctly.
func ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	return 200 * float64(lcsLen(ra, rb)) / float64(len(ra)+len(rb))
}

func lcsLen(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// dlRatio is normalized Damerau-Levenshtein similarity on a 0-100 scale.
// More forgiving than ratio for transposed characters in model codes.
func dlRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	m := len(ra)
	if len(rb) > m {
		m = len(rb)
	}
	return 100 * (1 - float64(damerauLevenshtein(ra, rb))/float64(m))
}

func damerauLevenshtein(ra, rb []rune) int {
	al, bl := len(ra), len(rb)
	dp := make([][]int, al+1)
	for i := 0; i <= al; i++ {
		dp[i] = make([]int, bl+1)
		dp[i][0] = i
	}
	for j := 0; j <= bl; j++ {
		dp[0][j] = j
	}
	for i := 1; i <= al; i++ {
		for j := 1; j <= bl; j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			dp[i][j] = min3(dp[i-1][j]+1, dp[i][j-1]+1, dp[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if v := dp[i-2][j-2] + 1; v < dp[i][j] {
					dp[i][j] = v
				}
			}
		}
	}
	return dp[al][bl]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func min3(a, b, c int) int { return minInt(minInt(a, b), c) }

// tokenSortRatio compares the alphabetically sorted token sequences, making
// the score robust to word reordering across sites.
func tokenSortRatio(a, b string) float64 {
	return ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	t := strings.Fields(s)
	sort.Strings(t)
	return strings.Join(t, " ")
}

// tokenSetRatio anchors the comparison on the token intersection, so a
// listing whose tokens are a subset of a longer one still scores high.
func tokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		if len(ta) == 0 && len(tb) == 0 {
			return 100
		}
		return 0
	}
	var common, onlyA, onlyB []string
	for t := range ta {
		if _, ok := tb[t]; ok {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if _, ok := ta[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	s1 := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	s2 := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := ratio(base, s1)
	if v := ratio(base, s2); v > best {
		best = v
	}
	if v := ratio(s1, s2); v > best {
		best = v
	}
	return best
}

func tokenSet(s string) map[string]struct{} {
	m := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		m[t] = struct{}{}
	}
	return m
}

// fuzzyRatio is the base similarity of the scorer: the best of the plain,
// Damerau-Levenshtein, token-sort and token-set views over two normalized
// names.
func fuzzyRatio(a, b string) float64 {
	best := ratio(a, b)
	for _, v := range []float64{dlRatio(a, b), tokenSortRatio(a, b), tokenSetRatio(a, b)} {
		if v > best {
			best = v
		}
	}
	return best
}
