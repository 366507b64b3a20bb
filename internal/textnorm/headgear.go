package textnorm

import (
	"strings"

	"shotsmith/internal/vbs"
)

// ClassificationBasis tags how a headgear state was decided, strongest
// evidence first: an explicit mention beats contextual inference beats the
// carried default.
type ClassificationBasis string

const (
	BasisExplicit   ClassificationBasis = "explicit"
	BasisContextual ClassificationBasis = "contextual"
	BasisDefault    ClassificationBasis = "default"
)

// HeadgearClassification is the tagged result of classifying narrative text.
type HeadgearClassification struct {
	State vbs.HeadgearState
	Basis ClassificationBasis
}

// Explicit phrases, checked first. Order matters within each list only for
// readability; any hit decides the state.
var (
	explicitSealed = []string{
		"seals her helmet", "seals his helmet", "seals their helmet",
		"visor down", "visor snaps shut", "helmet locks", "helmet sealed",
		"faceplate closes", "locks the visor",
	}
	explicitPartial = []string{
		"pulls up the hood", "pulls the hood up", "hood up",
		"breathing mask on", "dons the mask", "straps on the respirator",
	}
	explicitOpen = []string{
		"removes her helmet", "removes his helmet", "removes their helmet",
		"helmet off", "visor up", "raises the visor", "pulls off the hood",
		"bare-headed", "shakes out her hair", "shakes out his hair",
	}
)

// Contextual cues, weaker than explicit mentions.
var (
	contextualSealed = []string{
		"vacuum", "hard vacuum", "airless", "depressuriz", "eva ",
		"outside the hull", "spacewalk", "toxic atmosphere",
	}
	contextualOpen = []string{
		"mess hall", "quarters", "canteen", "shirtsleeve", "off duty",
	}
)

// ClassifyHeadgear decides the headgear state for a beat from narrative
// text. Explicit mention > contextual inference > carried default.
func ClassifyHeadgear(text string, carried vbs.HeadgearState) HeadgearClassification {
	lower := strings.ToLower(text)

	for _, p := range explicitSealed {
		if strings.Contains(lower, p) {
			return HeadgearClassification{State: vbs.HeadgearSealed, Basis: BasisExplicit}
		}
	}
	for _, p := range explicitOpen {
		if strings.Contains(lower, p) {
			return HeadgearClassification{State: vbs.HeadgearOpen, Basis: BasisExplicit}
		}
	}
	for _, p := range explicitPartial {
		if strings.Contains(lower, p) {
			return HeadgearClassification{State: vbs.HeadgearPartial, Basis: BasisExplicit}
		}
	}

	for _, p := range contextualSealed {
		if strings.Contains(lower, p) {
			return HeadgearClassification{State: vbs.HeadgearSealed, Basis: BasisContextual}
		}
	}
	for _, p := range contextualOpen {
		if strings.Contains(lower, p) {
			return HeadgearClassification{State: vbs.HeadgearOpen, Basis: BasisContextual}
		}
	}

	state := carried
	if !state.Valid() {
		state = vbs.HeadgearOpen
	}
	return HeadgearClassification{State: state, Basis: BasisDefault}
}
