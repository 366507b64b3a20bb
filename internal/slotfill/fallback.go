package slotfill

import (
	"fmt"
	"strings"

	"shotsmith/internal/vbs"
)

// Deterministic heuristic fill, used whenever the model call fails, times
// out or is cancelled. Plain but always valid: the pipeline never stalls.

// toneExpressions maps tone keywords to observable face features.
var toneExpressions = map[string]string{
	"tense":      "tight jaw, hard stare",
	"tender":     "soft gaze, faint smile",
	"fearful":    "wide eyes, parted lips",
	"triumphant": "raised chin, fierce grin",
	"somber":     "downcast eyes, set mouth",
	"angry":      "furrowed brow, clenched teeth",
}

// templateActions maps beat archetypes to fallback pose text.
var templateActions = map[string]string{
	"combat":   "braced in a fighting stance",
	"dialogue": "standing mid-conversation",
	"vehicle":  "gripping the controls",
	"intimate": "leaning in close",
	"reveal":   "turning toward the scene",
}

// FallbackFill derives a complete fill-in from shot type, template and tone
// keywords. Deterministic given identical input.
func FallbackFill(partial *vbs.VBS, in vbs.BeatInput) vbs.FillIn {
	fill := vbs.FillIn{
		Composition: fallbackComposition(partial),
	}

	action := templateActions[partial.Template]
	if action == "" {
		action = "holding still in frame"
	}
	expr := toneExpressions[strings.ToLower(strings.TrimSpace(in.Tone))]
	if expr == "" {
		expr = "neutral, focused look"
	}

	for _, s := range partial.Subjects {
		sf := vbs.SubjectFill{Name: s.Name, Action: action}
		if s.FaceVisible {
			e := expr
			sf.Expression = &e
		}
		fill.Subjects = append(fill.Subjects, sf)
	}

	if partial.Vehicle != nil {
		fill.VehicleNote = "framed in the middle distance"
	}
	return fill
}

func fallbackComposition(partial *vbs.VBS) string {
	var figure string
	switch len(partial.Subjects) {
	case 0:
		figure = "empty frame"
	case 1:
		figure = "single figure"
	case 2:
		figure = "two figures"
	default:
		figure = fmt.Sprintf("%d figures", len(partial.Subjects))
	}
	comp := figure + " centered in a " + partial.Shot.Type
	if partial.Environment.Location != "" {
		comp += " at " + partial.Environment.Location
	}
	return comp
}
