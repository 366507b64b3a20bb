package vbs

// FillIn is the slot filler's complete output for one beat. It carries only
// the non-deterministic slots; everything else on the VBS is off limits to
// the model and protected by Merge.
type FillIn struct {
	// Composition describes framing and blocking for the shot line.
	Composition string `json:"composition"`

	// Subjects carries one entry per on-screen character, matched by name.
	Subjects []SubjectFill `json:"subjects"`

	// VehicleNote is the vehicle's spatial relationship to the frame.
	// Ignored unless the VBS has a vehicle.
	VehicleNote string `json:"vehicle_note,omitempty"`

	// Atmosphere optionally enriches the environment's atmosphere phrase.
	Atmosphere string `json:"atmosphere,omitempty"`
}

// SubjectFill is the per-subject slice of a FillIn.
type SubjectFill struct {
	Name string `json:"name"`

	// Action is observable pose or movement only, never internal state.
	Action string `json:"action"`

	// Expression is observable face features, or nil when the face is not
	// visible. The JSON schema forces the model to emit an explicit null.
	Expression *string `json:"expression"`
}

// MergeReport lists contract deviations found while applying a FillIn.
// Deviations are corrected in place (the fill never wins over an
// invariant); the report feeds the pipeline's warning stream.
type MergeReport struct {
	Violations []string
}

// Merge writes the fill into a copy of the partial VBS. Write-once
// semantics: slots already holding text are not overwritten, unknown
// subject names are dropped, and an expression offered for a face-hidden
// subject is nulled and reported rather than accepted.
func Merge(partial *VBS, fill FillIn) (*VBS, MergeReport) {
	out := partial.Clone()
	var rep MergeReport

	if out.Shot.Composition == "" {
		out.Shot.Composition = fill.Composition
	}

	byName := make(map[string]SubjectFill, len(fill.Subjects))
	for _, sf := range fill.Subjects {
		byName[sf.Name] = sf
	}
	for i := range out.Subjects {
		sub := &out.Subjects[i]
		sf, ok := byName[sub.Name]
		if !ok {
			continue
		}
		if sub.Action == "" {
			sub.Action = sf.Action
		}
		if sf.Expression != nil && !sub.FaceVisible {
			rep.Violations = append(rep.Violations,
				"expression offered for face-hidden subject "+sub.Name)
			continue
		}
		if sub.Expression == nil {
			sub.Expression = sf.Expression
		}
	}

	if out.Vehicle != nil && out.Vehicle.SpatialNote == "" {
		out.Vehicle.SpatialNote = fill.VehicleNote
	}
	if fill.Atmosphere != "" && out.Environment.Atmosphere == "" {
		out.Environment.Atmosphere = fill.Atmosphere
	}
	return out, rep
}
