// Package compile implements Phase C: pure assembly of a fully-filled
// Visual Beat Spec into the renderer prompt string. No external calls, no
// state; identical input always yields byte-identical output.
package compile

import (
	"sort"
	"strings"

	"shotsmith/internal/vbs"
)

// EstimateTokens estimates the token count using the chars/4 approximation
// that the budget table is calibrated against.
func EstimateTokens(content string) int {
	if content == "" {
		return 0
	}
	return (len(content) + 3) / 4
}

// Compile assembles the prompt in the fixed section order:
// shot -> subjects -> environment -> vehicle -> markup block.
func Compile(v *vbs.VBS) string {
	var parts []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			parts = append(parts, s)
		}
	}

	// Shot line first: it lands earliest in downstream attention.
	add(v.Shot.Type)
	add(v.Shot.Angle)
	add(v.Shot.Composition)

	// Each subject's appearance text leads with its identity trigger, so no
	// separate trigger fragment is emitted here.
	multi := len(v.Subjects) > 1
	for _, s := range v.Subjects {
		add(s.Appearance)
		add(s.Action)
		if s.Expression != nil {
			add(*s.Expression)
		}
		if multi {
			add(positionPhrase(s.Position))
		}
	}

	for _, a := range v.Environment.Anchors {
		add(a)
	}
	add(v.Environment.Lighting)
	add(v.Environment.Atmosphere)
	for _, p := range v.Environment.Props {
		add(p)
	}
	add(v.Environment.FX)

	if v.Vehicle != nil {
		add(v.Vehicle.Description)
		add(v.Vehicle.SpatialNote)
	}

	prompt := normalize(strings.Join(parts, ", "))

	if block := MarkupBlock(v); block != "" {
		if prompt == "" {
			return block
		}
		prompt += " " + block
	}
	return prompt
}

// MarkupBlock collects every subject's markup tags into the trailing block,
// subjects in frame order, regions in lexical order for determinism.
func MarkupBlock(v *vbs.VBS) string {
	var tags []string
	for _, s := range v.Subjects {
		if len(s.Markup) == 0 {
			continue
		}
		regions := make([]string, 0, len(s.Markup))
		for r := range s.Markup {
			regions = append(regions, r)
		}
		sort.Strings(regions)
		for _, r := range regions {
			if tag := strings.TrimSpace(s.Markup[r]); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return strings.Join(tags, " ")
}

// normalize collapses repeated separators and whitespace so sloppy source
// text cannot produce ", ," or trailing separators in the output.
func normalize(s string) string {
	fields := strings.Fields(s)
	s = strings.Join(fields, " ")
	for strings.Contains(s, ", ,") {
		s = strings.ReplaceAll(s, ", ,", ",")
	}
	for strings.Contains(s, ",,") {
		s = strings.ReplaceAll(s, ",,", ",")
	}
	s = strings.Trim(s, ", ")
	return s
}

// positionPhrase renders a frame position tag as prompt text.
func positionPhrase(pos string) string {
	if pos == "" {
		return ""
	}
	return "positioned " + pos
}
