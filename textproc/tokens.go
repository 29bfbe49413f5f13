package textproc

import (
	"slices"
	"strings"
)

// officeTypeSuffixes are trailing designators of post office names, in normalized form.
var officeTypeSuffixes = [][]string{
	{"g", "p", "o"}, {"s", "o"}, {"h", "o"}, {"b", "o"}, {"p", "o"},
	{"so"}, {"ho"}, {"bo"}, {"po"}, {"gpo"}, {"mdg"},
}

// tokenSet builds a set of the normalized tokens of text.
func tokenSet(text string) map[string]struct{} {
	tokens := Tokens(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// MatchingTokens returns the normalized tokens present in both query and target,
// sorted alphabetically.
func MatchingTokens(query, target string) []string {
	querySet := tokenSet(query)
	targetSet := tokenSet(target)

	matched := make([]string, 0, min(len(querySet), len(targetSet)))
	for t := range querySet {
		if _, ok := targetSet[t]; ok {
			matched = append(matched, t)
		}
	}
	slices.Sort(matched)
	return matched
}

// Jaccard returns the Jaccard similarity of the normalized token sets of a and b.
// Returns 0 when either side has no tokens.
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// StripOfficeType removes a trailing office-type designator ("SO", "H.O", "GPO")
// from a post office name and returns the normalized remainder.
// Names consisting only of a designator are returned normalized and unchanged.
func StripOfficeType(officeName string) string {
	tokens := Tokens(officeName)
	for _, suffix := range officeTypeSuffixes {
		if len(tokens) > len(suffix) && slices.Equal(tokens[len(tokens)-len(suffix):], suffix) {
			return strings.Join(tokens[:len(tokens)-len(suffix)], " ")
		}
	}
	return strings.Join(tokens, " ")
}

// Components holds address parts that can be recognized without the catalog.
type Components struct {
	Pincode string
	State   string
	RawText string
}

// ExtractComponents pulls the pincode and the first two-letter state code out of
// raw address text.
func ExtractComponents(text string) Components {
	c := Components{
		Pincode: ExtractPincode(text),
		RawText: text,
	}
	for _, token := range Tokens(text) {
		if stateCodes[token] {
			c.State = abbreviations[token]
			break
		}
	}
	return c
}
