package flow

import "strings"

// EndPhaseCommand is the literal command a participant types to close the
// current phase. Matching is fuzzy so that typos like "endphaze(" still count.
const EndPhaseCommand = "endphase()"

// EndPhaseThreshold is the minimum similarity ratio for a message to be
// treated as an end-phase command.
const EndPhaseThreshold = 0.7

// IsEndPhaseCommand reports whether the user input is close enough to the
// end-phase command. Input is trimmed and lowercased before comparison; empty
// input never matches.
func IsEndPhaseCommand(input string) bool {
	t := strings.ToLower(strings.TrimSpace(input))
	if t == "" {
		return false
	}
	return similarityRatio(t, EndPhaseCommand) >= EndPhaseThreshold
}

// similarityRatio computes 2*M / (len(a)+len(b)) where M is the length of the
// longest common subsequence of a and b. This tracks Python difflib's
// SequenceMatcher ratio closely enough for a ten-character command.
func similarityRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	m := longestCommonSubsequence(a, b)
	return 2.0 * float64(m) / float64(len(a)+len(b))
}

// longestCommonSubsequence returns the LCS length of a and b using a rolling
// single-row dynamic program.
func longestCommonSubsequence(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
