package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// NormalizeName lowercases a name and collapses inner whitespace, it is
// only used for comparisons, never for what gets sent to the portal.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.TrimSpace(name)
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

// NameSimilarity returns the Jaro-Winkler similarity of two names in [0, 1]
// after normalization.
func NameSimilarity(a, b string) float64 {
	a = NormalizeName(a)
	b = NormalizeName(b)
	if a == "" || b == "" {
		return 0
	}
	return matchr.JaroWinkler(a, b, false)
}
