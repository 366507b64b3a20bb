// Package textnorm holds the pure text utilities used at ingestion time:
// character-name matching against narrative text and headgear-state
// classification. Both are deterministic and independent of any
// generative-model call.
package textnorm

import (
	"sort"
	"strings"
	"unicode"
)

// NameIndex matches character name variants against free text. Variants are
// tried longest first so "Mara Voss" wins over "Mara" and "Marabel" never
// matches "Mara".
type NameIndex struct {
	// variants holds (variant, canonical) pairs sorted by variant length
	// descending.
	variants []nameVariant
}

type nameVariant struct {
	text      string
	canonical string
}

// NewNameIndex builds an index from canonical name -> variant list. The
// canonical name itself is always a variant.
func NewNameIndex(names map[string][]string) *NameIndex {
	idx := &NameIndex{}
	for canonical, vars := range names {
		idx.variants = append(idx.variants, nameVariant{text: canonical, canonical: canonical})
		for _, v := range vars {
			if v != "" && v != canonical {
				idx.variants = append(idx.variants, nameVariant{text: v, canonical: canonical})
			}
		}
	}
	sort.SliceStable(idx.variants, func(i, j int) bool {
		if len(idx.variants[i].text) != len(idx.variants[j].text) {
			return len(idx.variants[i].text) > len(idx.variants[j].text)
		}
		return idx.variants[i].text < idx.variants[j].text
	})
	return idx
}

// Match returns the canonical names mentioned in text, in order of first
// appearance. Matching is case-insensitive, boundary-safe against partial
// words, and tolerant of possessives ("Mara's") and quoted dialogue.
func (idx *NameIndex) Match(text string) []string {
	lower := strings.ToLower(text)
	firstAt := make(map[string]int)
	claimed := make([]bool, len(lower))

	for _, v := range idx.variants {
		needle := strings.ToLower(v.text)
		from := 0
		for {
			rel := strings.Index(lower[from:], needle)
			if rel < 0 {
				break
			}
			at := from + rel
			end := at + len(needle)
			from = end
			if !boundaryAt(lower, at, end) {
				continue
			}
			if rangeClaimed(claimed, at, end) {
				// A longer variant already owns this span.
				continue
			}
			for i := at; i < end; i++ {
				claimed[i] = true
			}
			if _, seen := firstAt[v.canonical]; !seen {
				firstAt[v.canonical] = at
			}
		}
	}

	names := make([]string, 0, len(firstAt))
	for n := range firstAt {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return firstAt[names[i]] < firstAt[names[j]] })
	return names
}

// boundaryAt checks that the match is not embedded in a larger word.
// Trailing "'s" and closing quotes/punctuation count as boundaries.
func boundaryAt(text string, start, end int) bool {
	if start > 0 && isWordRune(rune(text[start-1])) {
		return false
	}
	if end < len(text) {
		r := rune(text[end])
		if isWordRune(r) {
			// Possessive: "mara's" is still a mention of mara.
			if r == 's' && end > 0 && text[end-1] == '\'' {
				return true
			}
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func rangeClaimed(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}
