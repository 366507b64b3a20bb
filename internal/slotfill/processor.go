package slotfill

import (
	"encoding/json"
	"fmt"
	"strings"

	"shotsmith/internal/vbs"
)

// ParseFillIn extracts a FillIn from a raw model response. Tolerates
// markdown code fences and leading prose around the JSON object; anything
// beyond that is a schema mismatch and the caller falls back.
func ParseFillIn(raw string, partial *vbs.VBS) (vbs.FillIn, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return vbs.FillIn{}, fmt.Errorf("no JSON object in response")
	}

	var fill vbs.FillIn
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fill); err != nil {
		return vbs.FillIn{}, fmt.Errorf("malformed fill-in: %w", err)
	}

	if strings.TrimSpace(fill.Composition) == "" {
		return vbs.FillIn{}, fmt.Errorf("fill-in missing composition")
	}

	known := make(map[string]bool, len(partial.Subjects))
	for _, s := range partial.Subjects {
		known[s.Name] = true
	}
	covered := make(map[string]bool, len(fill.Subjects))
	for _, sf := range fill.Subjects {
		if !known[sf.Name] {
			return vbs.FillIn{}, fmt.Errorf("fill-in names unknown subject %q", sf.Name)
		}
		if strings.TrimSpace(sf.Action) == "" {
			return vbs.FillIn{}, fmt.Errorf("fill-in missing action for %q", sf.Name)
		}
		covered[sf.Name] = true
	}
	for _, s := range partial.Subjects {
		if !covered[s.Name] {
			return vbs.FillIn{}, fmt.Errorf("fill-in missing subject %q", s.Name)
		}
	}
	return fill, nil
}

// extractJSON returns the outermost {...} object in the text, stripping
// markdown fences first. Models wrap JSON in fences often enough that
// rejecting it outright would waste good responses.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
