package util

import (
	"regexp"
	"strings"
)

var (
	reParenthetical = regexp.MustCompile(`\s*\([^)]*\)`)
	reTrailingSub   = regexp.MustCompile(`[-_]\d+$`)
	reSpaces        = regexp.MustCompile(`\s+`)
	reTokenSplit    = regexp.MustCompile(`[\s\-_]+`)
)

func Fold(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	return reSpaces.ReplaceAllString(s, " ")
}

// StripParenthetical removes parenthetical suffixes from human-entered names,
// e.g. "Amazon.com (US)" -> "Amazon.com".
func StripParenthetical(input string) string {
	s := reParenthetical.ReplaceAllString(input, " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// StripNumericSuffix cuts a trailing -<digits> or _<digits> segment, the
// sub-period suffix on budget codes: "JB-C030-26" -> "JB-C030".
func StripNumericSuffix(input string) string {
	return reTrailingSub.ReplaceAllString(strings.TrimSpace(input), "")
}

// Tokenize splits on whitespace, hyphen and underscore and discards tokens of
// two characters or fewer.
func Tokenize(input string) []string {
	parts := reTokenSplit.Split(strings.TrimSpace(input), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len([]rune(p)) > 2 {
			out = append(out, p)
		}
	}
	return out
}

func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), Fold(needle))
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }
