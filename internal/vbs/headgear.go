package vbs

import (
	"strings"
)

// hairTerms flags a clause as hair description. Matched on word boundaries
// after lowercasing, so "mohair jacket" is not hair.
var hairTerms = []string{
	"hair", "ponytail", "braid", "braids", "bangs", "fringe", "bun",
	"curls", "locks", "dreadlocks", "undercut", "buzz cut", "pigtails",
	"topknot", "mohawk", "updo",
}

// headgearTerms flags a clause as stale headgear description left over from
// a previous state's fragment.
var headgearTerms = []string{
	"helmet", "visor", "hood", "headgear", "faceplate", "respirator",
	"breathing mask", "pressure seal",
}

// ContainsHairPhrase reports whether text still carries hair description.
// Shared between the enricher (pre-transform sanity) and the validator
// (post-compile check).
func ContainsHairPhrase(text string) bool {
	for _, clause := range splitClauses(text) {
		if clauseMentionsAny(clause, hairTerms) {
			return true
		}
	}
	return false
}

// StripHairPhrases removes every clause mentioning hair and renormalizes
// separators.
func StripHairPhrases(text string) string {
	var kept []string
	for _, clause := range splitClauses(text) {
		if !clauseMentionsAny(clause, hairTerms) {
			kept = append(kept, clause)
		}
	}
	return strings.Join(kept, ", ")
}

// ApplyHeadgear is the single pure transform for the three-state headgear
// machine. It takes the canonical appearance text and the reference
// fragment for the target state and returns the adjusted appearance:
//
//	open             -> base text unchanged (stale headgear clauses removed)
//	partially_sealed -> hair clauses replaced by the covering fragment
//	fully_sealed     -> hair clauses removed, sealed fragment appended
//
// The result never contains doubled separators or stray whitespace.
func ApplyHeadgear(state HeadgearState, base, fragment string) string {
	clauses := splitClauses(base)

	var kept []string
	for _, clause := range clauses {
		if clauseMentionsAny(clause, headgearTerms) {
			// Stale fragment from a previous state. Always dropped; the
			// current state's fragment is re-inserted below if needed.
			continue
		}
		if state != HeadgearOpen && clauseMentionsAny(clause, hairTerms) {
			continue
		}
		kept = append(kept, clause)
	}

	if state != HeadgearOpen && strings.TrimSpace(fragment) != "" {
		kept = append(kept, strings.TrimSpace(fragment))
	}

	return strings.Join(kept, ", ")
}

// splitClauses breaks comma-separated appearance text into trimmed,
// non-empty clauses.
func splitClauses(text string) []string {
	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// clauseMentionsAny does a word-boundary match of any term in the clause.
func clauseMentionsAny(clause string, terms []string) bool {
	lower := " " + strings.ToLower(clause) + " "
	// Normalize punctuation to spaces so boundaries hold at clause edges.
	lower = strings.Map(func(r rune) rune {
		switch r {
		case '.', ';', ':', '!', '?', '(', ')':
			return ' '
		}
		return r
	}, lower)
	for _, term := range terms {
		if strings.Contains(lower, " "+term+" ") || strings.Contains(lower, " "+term+"s ") {
			return true
		}
	}
	return false
}
