package vbs

// PersistentState is the continuity snapshot threaded through a scene's
// beat loop. Each beat receives the previous beat's snapshot, reads it, and
// produces a fresh copy for the next beat. Never mutated in place; scene
// boundaries start from a zero value.
type PersistentState struct {
	// Characters maps canonical name to per-character continuity.
	Characters map[string]CharacterState `json:"characters,omitempty"`

	// Headgear is the shared headgear state for the scene (crews tend to
	// seal or open helmets together; per-character overrides live in
	// CharacterState).
	Headgear HeadgearState `json:"headgear,omitempty"`

	VehiclePresent bool   `json:"vehicle_present,omitempty"`
	VehicleState   string `json:"vehicle_state,omitempty"`
	Location       string `json:"location,omitempty"`
	Lighting       string `json:"lighting,omitempty"`
}

// CharacterState is one character's carried continuity.
type CharacterState struct {
	// Position is the frame position from the last beat the character
	// appeared in.
	Position string `json:"position,omitempty"`

	// Phase tags which canonical appearance applies ("default", "suited",
	// "wounded", ...).
	Phase string `json:"phase,omitempty"`

	// Headgear overrides the shared state when set.
	Headgear HeadgearState `json:"headgear,omitempty"`
}

// HeadgearFor resolves the effective headgear state for a character:
// per-character override first, then the shared state, then open.
func (p PersistentState) HeadgearFor(name string) HeadgearState {
	if cs, ok := p.Characters[name]; ok && cs.Headgear.Valid() {
		return cs.Headgear
	}
	if p.Headgear.Valid() {
		return p.Headgear
	}
	return HeadgearOpen
}

// PhaseFor returns the character's appearance phase, defaulting to "default".
func (p PersistentState) PhaseFor(name string) string {
	if cs, ok := p.Characters[name]; ok && cs.Phase != "" {
		return cs.Phase
	}
	return "default"
}

// Clone returns an independent copy. The map is the only reference field.
func (p PersistentState) Clone() PersistentState {
	out := p
	if p.Characters != nil {
		out.Characters = make(map[string]CharacterState, len(p.Characters))
		for k, v := range p.Characters {
			out.Characters[k] = v
		}
	}
	return out
}

// NextState derives the snapshot for the following beat from a finalized
// VBS. Characters absent from the beat keep their previous continuity.
func NextState(prev PersistentState, final *VBS) PersistentState {
	next := prev.Clone()
	if next.Characters == nil {
		next.Characters = make(map[string]CharacterState)
	}
	for _, s := range final.Subjects {
		cs := next.Characters[s.Name]
		cs.Position = s.Position
		cs.Headgear = s.Headgear
		if cs.Phase == "" {
			cs.Phase = prev.PhaseFor(s.Name)
		}
		next.Characters[s.Name] = cs
	}
	next.VehiclePresent = final.Vehicle != nil
	if final.Vehicle != nil {
		next.VehicleState = final.Vehicle.Description
	} else {
		next.VehicleState = ""
	}
	next.Location = final.Environment.Location
	next.Lighting = final.Environment.Lighting
	return next
}
