// Package vbs defines the Visual Beat Spec, the intermediate representation
// shared by every phase of the prompt pipeline. One VBS exists per narrative
// beat and is exclusively owned by that beat's pipeline run: deterministic
// fields are written once by the enricher, fillable fields are written once
// by the slot filler, and the validator only ever works on copies.
package vbs

import (
	"fmt"
	"strings"
)

// ModelRoute selects the downstream image renderer.
type ModelRoute string

const (
	// RoutePrimary targets the identity-consistent renderer. Chosen whenever
	// at least one subject's face is visible.
	RoutePrimary ModelRoute = "primary"

	// RouteAlternate targets the spatial-composition renderer. Chosen when
	// no face is visible in the frame.
	RouteAlternate ModelRoute = "alternate"
)

// HeadgearState describes how much a head covering obscures hair and face.
type HeadgearState string

const (
	// HeadgearOpen means no covering: hair text, expression and face markup
	// are all allowed.
	HeadgearOpen HeadgearState = "open"

	// HeadgearPartial means a soft covering replaces hair text but leaves
	// the face visible.
	HeadgearPartial HeadgearState = "partially_sealed"

	// HeadgearSealed means the face is fully obscured: no hair text, no
	// expression, no face markup.
	HeadgearSealed HeadgearState = "fully_sealed"
)

// Valid reports whether s is one of the three defined states.
func (s HeadgearState) Valid() bool {
	switch s {
	case HeadgearOpen, HeadgearPartial, HeadgearSealed:
		return true
	}
	return false
}

// FaceVisible reports whether a subject wearing headgear in state s still
// shows a face the renderer can work with.
func (s HeadgearState) FaceVisible() bool {
	return s != HeadgearSealed
}

// Shot describes the camera setup for a beat. Type and Angle are set
// deterministically by the enricher; Composition is a fill slot.
type Shot struct {
	Type        string `json:"type"`
	Angle       string `json:"angle"`
	Composition string `json:"composition,omitempty"`
}

// Subject is one on-screen character in the frame.
type Subject struct {
	// Name is the canonical character name, used for continuity bookkeeping
	// and fill-in matching. Never emitted into the compiled prompt.
	Name string `json:"name"`

	// Trigger is the identity token bound 1:1 to this character and the
	// chosen renderer. It must survive verbatim into the compiled output.
	Trigger string `json:"trigger"`

	// Appearance is the canonical, headgear-adjusted appearance text.
	Appearance string `json:"appearance"`

	// Action is the observable pose or movement, written by the slot filler.
	Action string `json:"action,omitempty"`

	// Expression holds observable face features. nil means "no expression
	// line", which is mandatory when the face is not visible.
	Expression *string `json:"expression,omitempty"`

	// Position is the frame position tag ("left", "right", "center", ...).
	Position string `json:"position,omitempty"`

	FaceVisible bool          `json:"face_visible"`
	Headgear    HeadgearState `json:"headgear"`

	// Markup holds renderer directives keyed by frame region ("face",
	// "clothing", ...). Collected across subjects and appended last by the
	// compiler.
	Markup map[string]string `json:"markup,omitempty"`
}

// Environment describes the location portion of the frame.
type Environment struct {
	Location   string   `json:"location"`
	Anchors    []string `json:"anchors,omitempty"`
	Lighting   string   `json:"lighting,omitempty"`
	Atmosphere string   `json:"atmosphere,omitempty"`
	Props      []string `json:"props,omitempty"`
	FX         string   `json:"fx,omitempty"`
}

// Vehicle is present when the beat frames a vehicle. Description is
// deterministic; SpatialNote is a fill slot.
type Vehicle struct {
	Description string `json:"description"`
	SpatialNote string `json:"spatial_note,omitempty"`
}

// CompactionStep is one entry in the ordered drop-list applied when the
// compiled output exceeds its token budget.
type CompactionStep string

const (
	CompactDropVehicleNote    CompactionStep = "drop_vehicle_note"
	CompactDropProps          CompactionStep = "drop_props"
	CompactDropFX             CompactionStep = "drop_fx"
	CompactTruncateAtmosphere CompactionStep = "truncate_atmosphere"
	CompactCondenseSecondary  CompactionStep = "condense_secondary_subject"
)

// DefaultCompactionOrder is the canonical drop-list: cheapest visual loss
// first, subject text last.
func DefaultCompactionOrder() []CompactionStep {
	return []CompactionStep{
		CompactDropVehicleNote,
		CompactDropProps,
		CompactDropFX,
		CompactTruncateAtmosphere,
		CompactCondenseSecondary,
	}
}

// TokenBudget is the adaptive budget breakdown computed by the enricher.
// Composition is reserved off the top (it lands earliest in downstream
// attention); Markup is accounted separately and excluded from the
// narrative share.
type TokenBudget struct {
	Total       int `json:"total"`
	Composition int `json:"composition"`
	Markup      int `json:"markup"`
}

// Narrative returns the share of the budget left for subject and
// environment text once the fixed reserves are taken out.
func (b TokenBudget) Narrative() int {
	n := b.Total - b.Composition - b.Markup
	if n < 0 {
		return 0
	}
	return n
}

// Constraints carries the budget and the markup/compaction policy for one
// beat.
type Constraints struct {
	Budget TokenBudget `json:"budget"`

	// RequireFaceMarkup demands a "face" markup tag for every face-visible
	// subject. The validator injects missing tags.
	RequireFaceMarkup bool `json:"require_face_markup"`

	// Compaction is the ordered drop-list consumed by the repairer.
	Compaction []CompactionStep `json:"compaction"`
}

// VBS is the Visual Beat Spec for a single beat.
type VBS struct {
	BeatID      string `json:"beat_id"`
	SceneNumber int    `json:"scene_number"`

	// Template tags the beat archetype ("combat", "dialogue", "vehicle", ...).
	Template string `json:"template"`

	Route       ModelRoute  `json:"route"`
	Shot        Shot        `json:"shot"`
	Subjects    []Subject   `json:"subjects"`
	Environment Environment `json:"environment"`
	Vehicle     *Vehicle    `json:"vehicle,omitempty"`
	Constraints Constraints `json:"constraints"`

	// PreviousBeatSummary is a continuity hint built from the prior beat's
	// finalized VBS, not re-derived database state.
	PreviousBeatSummary string `json:"previous_beat_summary,omitempty"`

	// State is the persistent-state snapshot this beat was built from.
	// Immutable once produced.
	State PersistentState `json:"state"`
}

// Clone returns a deep copy. The validator repairs copies, never the
// original, so the pre-repair VBS stays available for audit.
func (v *VBS) Clone() *VBS {
	if v == nil {
		return nil
	}
	out := *v
	out.Subjects = make([]Subject, len(v.Subjects))
	for i, s := range v.Subjects {
		cs := s
		if s.Expression != nil {
			e := *s.Expression
			cs.Expression = &e
		}
		if s.Markup != nil {
			cs.Markup = make(map[string]string, len(s.Markup))
			for k, val := range s.Markup {
				cs.Markup[k] = val
			}
		}
		out.Subjects[i] = cs
	}
	out.Environment.Anchors = append([]string(nil), v.Environment.Anchors...)
	out.Environment.Props = append([]string(nil), v.Environment.Props...)
	if v.Vehicle != nil {
		veh := *v.Vehicle
		out.Vehicle = &veh
	}
	out.Constraints.Compaction = append([]CompactionStep(nil), v.Constraints.Compaction...)
	out.State = v.State.Clone()
	return &out
}

// CheckInvariants verifies the structural invariants that must hold for any
// fully-built VBS, independent of compiled output. Returned messages are
// human-readable; an empty slice means the spec is internally consistent.
func (v *VBS) CheckInvariants() []string {
	var problems []string
	anyFace := false
	for _, s := range v.Subjects {
		if s.FaceVisible {
			anyFace = true
		}
		if (s.Expression != nil) != s.FaceVisible {
			problems = append(problems, fmt.Sprintf(
				"subject %s: expression/faceVisible mismatch (expression set=%v, face visible=%v)",
				s.Name, s.Expression != nil, s.FaceVisible))
		}
		if s.FaceVisible != s.Headgear.FaceVisible() {
			problems = append(problems, fmt.Sprintf(
				"subject %s: faceVisible=%v inconsistent with headgear %q",
				s.Name, s.FaceVisible, s.Headgear))
		}
		if strings.TrimSpace(s.Trigger) == "" {
			problems = append(problems, fmt.Sprintf("subject %s: empty identity trigger", s.Name))
		}
	}
	if len(v.Subjects) > 0 {
		wantRoute := RouteAlternate
		if anyFace {
			wantRoute = RoutePrimary
		}
		if v.Route != wantRoute {
			problems = append(problems, fmt.Sprintf(
				"route %q inconsistent with face visibility (want %q)", v.Route, wantRoute))
		}
	}
	return problems
}

// Filled reports whether every fill slot Phase B is responsible for has
// been written. A VBS must be filled before it may reach the compiler.
func (v *VBS) Filled() bool {
	if strings.TrimSpace(v.Shot.Composition) == "" {
		return false
	}
	for _, s := range v.Subjects {
		if strings.TrimSpace(s.Action) == "" {
			return false
		}
		if s.FaceVisible && s.Expression == nil {
			return false
		}
	}
	return true
}
