package enrich

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotsmith/internal/refdata"
	"shotsmith/internal/vbs"
)

// mockSource implements refdata.Source over fixed maps.
type mockSource struct {
	characters  map[string]refdata.Character
	appearances map[string]string // character name -> text
	artifacts   map[string]refdata.ArtifactSet
	fragments   map[vbs.HeadgearState]string
}

func (m *mockSource) Appearance(character, location, phase string) (string, error) {
	if text, ok := m.appearances[character]; ok {
		return text, nil
	}
	return "", refdata.ErrMissing
}

func (m *mockSource) Artifacts(location string) (refdata.ArtifactSet, error) {
	if set, ok := m.artifacts[location]; ok {
		return set, nil
	}
	return refdata.ArtifactSet{}, refdata.ErrMissing
}

func (m *mockSource) Character(name string) (refdata.Character, error) {
	if rec, ok := m.characters[name]; ok {
		return rec, nil
	}
	return refdata.Character{}, refdata.ErrMissing
}

func (m *mockSource) NameVariants() map[string][]string {
	out := make(map[string][]string, len(m.characters))
	for name, rec := range m.characters {
		out[name] = rec.Nicknames
	}
	return out
}

func (m *mockSource) HeadgearFragment(state vbs.HeadgearState) string {
	return m.fragments[state]
}

func newMockSource() *mockSource {
	return &mockSource{
		characters: map[string]refdata.Character{
			"Mara Voss": {
				Name: "Mara Voss", Physical: true,
				Nicknames: []string{"Mara"},
				Triggers: map[vbs.ModelRoute]string{
					vbs.RoutePrimary: "mvoss-p1", vbs.RouteAlternate: "mvoss-a1",
				},
			},
			"Dex": {
				Name: "Dex", Physical: true,
				Triggers: map[vbs.ModelRoute]string{
					vbs.RoutePrimary: "dex-p1", vbs.RouteAlternate: "dex-a1",
				},
			},
			"HALVOR": {Name: "HALVOR", Physical: false},
		},
		appearances: map[string]string{
			"Mara Voss": "tall woman, copper hair in a loose braid, olive flight suit",
			"Dex":       "stocky man, short black hair, grey deck coat",
		},
		artifacts: map[string]refdata.ArtifactSet{
			"orbital-dock": {
				Structural:  []string{"gantry cranes", "mooring clamps", "stacked cargo pods", "blast doors"},
				Lighting:    []string{"harsh sodium floodlights"},
				Atmospheric: []string{"drifting welding sparks"},
				Props:       []string{"fuel lines", "tool sled", "cable drums"},
			},
		},
		fragments: map[vbs.HeadgearState]string{
			vbs.HeadgearPartial: "soft pressure hood framing the face",
			vbs.HeadgearSealed:  "mirrored helmet visor sealed shut",
		},
	}
}

func dialogueInput() vbs.BeatInput {
	return vbs.BeatInput{
		BeatID:      "b1",
		SceneNumber: 2,
		Template:    "dialogue",
		Excerpt:     "Mara leans on the rail while Dex drags a crate past her.",
		Intent:      "hold on the silence between them",
		Tone:        "tense",
		Characters:  []string{"Mara Voss", "Dex"},
		Location:    "orbital-dock",
	}
}

func TestBuildBasics(t *testing.T) {
	b := NewBuilder(newMockSource())
	out, warnings := b.Build(dialogueInput(), vbs.PersistentState{}, nil)

	assert.Empty(t, warnings)
	assert.Equal(t, "b1", out.BeatID)
	assert.Equal(t, 2, out.SceneNumber)
	assert.Equal(t, "medium shot", out.Shot.Type)
	assert.Empty(t, out.Shot.Composition, "composition is a fill slot")

	require.Len(t, out.Subjects, 2)
	mara := out.Subjects[0]
	assert.Equal(t, "mvoss-p1", mara.Trigger)
	assert.True(t, strings.HasPrefix(mara.Appearance, "mvoss-p1, "),
		"trigger must lead the appearance text: %s", mara.Appearance)
	assert.Contains(t, mara.Appearance, "copper hair")
	assert.True(t, mara.FaceVisible)
	assert.Empty(t, mara.Action, "action is a fill slot")
	assert.Nil(t, mara.Expression, "expression is a fill slot")
	assert.Equal(t, "[region:face 1]", mara.Markup["face"])

	assert.Equal(t, vbs.RoutePrimary, out.Route)
	assert.Equal(t, "left", out.Subjects[0].Position)
	assert.Equal(t, "right", out.Subjects[1].Position)
	assert.Empty(t, out.CheckInvariants())
}

func TestBuildHeadgearFromState(t *testing.T) {
	b := NewBuilder(newMockSource())
	state := vbs.PersistentState{Headgear: vbs.HeadgearSealed}
	in := dialogueInput()
	in.Excerpt = "They work on in silence." // no explicit or contextual cue

	out, _ := b.Build(in, state, nil)

	for _, s := range out.Subjects {
		assert.Equal(t, vbs.HeadgearSealed, s.Headgear)
		assert.False(t, s.FaceVisible)
		assert.False(t, vbs.ContainsHairPhrase(s.Appearance), "hair left in: %s", s.Appearance)
		assert.Contains(t, s.Appearance, "mirrored helmet visor")
		assert.Empty(t, s.Markup["face"], "no face markup for sealed subject")
	}
	// Alternate route when no face is visible, and alternate triggers.
	assert.Equal(t, vbs.RouteAlternate, out.Route)
	assert.Equal(t, "mvoss-a1", out.Subjects[0].Trigger)
}

func TestBuildExplicitHeadgearOverride(t *testing.T) {
	b := NewBuilder(newMockSource())
	state := vbs.PersistentState{Headgear: vbs.HeadgearSealed}
	in := dialogueInput()
	in.Excerpt = "Mara removes her helmet and breathes the dock air."

	out, _ := b.Build(in, state, nil)
	assert.True(t, out.Subjects[0].FaceVisible)
	assert.Equal(t, vbs.RoutePrimary, out.Route)
}

func TestBuildExcludesNonPhysical(t *testing.T) {
	b := NewBuilder(newMockSource())
	in := dialogueInput()
	in.Characters = []string{"Mara Voss", "HALVOR"}

	out, warnings := b.Build(in, vbs.PersistentState{}, nil)
	assert.Empty(t, warnings)
	require.Len(t, out.Subjects, 1)
	assert.Equal(t, "Mara Voss", out.Subjects[0].Name)
}

func TestBuildPositionsForCrowds(t *testing.T) {
	b := NewBuilder(newMockSource())

	for _, n := range []int{4, 5, 6} {
		in := dialogueInput()
		in.Characters = nil
		for i := 0; i < n; i++ {
			in.Characters = append(in.Characters, fmt.Sprintf("Crewman %d", i+1))
		}

		out, _ := b.Build(in, vbs.PersistentState{}, nil)
		require.Len(t, out.Subjects, n)

		seen := make(map[string]bool, n)
		for _, s := range out.Subjects {
			assert.NotEmpty(t, s.Position)
			assert.False(t, seen[s.Position], "%d subjects: position %q assigned twice", n, s.Position)
			seen[s.Position] = true
		}
	}
}

func TestBuildDetectsCastFromExcerpt(t *testing.T) {
	b := NewBuilder(newMockSource())
	in := dialogueInput()
	in.Characters = nil
	in.Excerpt = "Dex waves Mara's tool sled through the blast doors."

	out, warnings := b.Build(in, vbs.PersistentState{}, nil)
	assert.Empty(t, warnings)
	require.Len(t, out.Subjects, 2)
	// Order of first appearance, nickname resolved to canonical name.
	assert.Equal(t, "Dex", out.Subjects[0].Name)
	assert.Equal(t, "Mara Voss", out.Subjects[1].Name)
}

func TestBuildNoCastAnywhere(t *testing.T) {
	b := NewBuilder(newMockSource())
	in := dialogueInput()
	in.Characters = nil
	in.Excerpt = "The dock sits empty under the floodlights."

	out, warnings := b.Build(in, vbs.PersistentState{}, nil)
	assert.Empty(t, out.Subjects)
	require.NotEmpty(t, warnings)
	assert.Equal(t, WarnReferenceDataMissing, warnings[0].Kind)
}

func TestBuildMissingReferenceData(t *testing.T) {
	b := NewBuilder(newMockSource())
	in := dialogueInput()
	in.Characters = []string{"Mara Voss", "Stray Cat"}
	in.Location = "unknown-bazaar"

	out, warnings := b.Build(in, vbs.PersistentState{}, nil)

	// Beat still completes with both subjects and fallback text.
	require.Len(t, out.Subjects, 2)
	stray := out.Subjects[1]
	assert.NotEmpty(t, stray.Trigger)
	assert.NotEmpty(t, stray.Appearance)

	kinds := make(map[WarningKind]int)
	for _, w := range warnings {
		kinds[w.Kind]++
	}
	// Directory miss, appearance miss, and artifact miss are all warnings.
	assert.GreaterOrEqual(t, kinds[WarnReferenceDataMissing], 3)
}

func TestBuildEnvironmentPolicy(t *testing.T) {
	b := NewBuilder(newMockSource())
	out, _ := b.Build(dialogueInput(), vbs.PersistentState{}, nil)

	env := out.Environment
	assert.Len(t, env.Anchors, 3, "2-3 structural anchors, capped at 3")
	assert.Equal(t, "harsh sodium floodlights", env.Lighting)
	assert.Equal(t, "drifting welding sparks", env.Atmosphere)
	assert.Len(t, env.Props, 2)
	assert.Empty(t, env.FX)
}

func TestBuildCombatFX(t *testing.T) {
	b := NewBuilder(newMockSource())
	in := dialogueInput()
	in.Template = "combat"
	out, _ := b.Build(in, vbs.PersistentState{}, nil)
	assert.Equal(t, "wide shot", out.Shot.Type)
	assert.NotEmpty(t, out.Environment.FX)
}

func TestBuildVehicle(t *testing.T) {
	b := NewBuilder(newMockSource())

	t.Run("from beat input", func(t *testing.T) {
		in := dialogueInput()
		in.VehicleDescription = "battered cargo skiff"
		out, _ := b.Build(in, vbs.PersistentState{}, nil)
		require.NotNil(t, out.Vehicle)
		assert.Equal(t, "battered cargo skiff", out.Vehicle.Description)
		assert.Empty(t, out.Vehicle.SpatialNote, "spatial note is a fill slot")
	})

	t.Run("carried into vehicle beat", func(t *testing.T) {
		in := dialogueInput()
		in.Template = "vehicle"
		state := vbs.PersistentState{VehiclePresent: true, VehicleState: "battered cargo skiff"}
		out, _ := b.Build(in, state, nil)
		require.NotNil(t, out.Vehicle)
	})

	t.Run("absent otherwise", func(t *testing.T) {
		out, _ := b.Build(dialogueInput(), vbs.PersistentState{}, nil)
		assert.Nil(t, out.Vehicle)
	})
}

func TestBudgetComputation(t *testing.T) {
	p := DefaultBudgetPolicy()
	b := NewBuilder(newMockSource())

	out, _ := b.Build(dialogueInput(), vbs.PersistentState{}, nil)
	want := p.Base["medium shot"] + 2*p.PerSubject + p.CompositionReserve + p.MarkupReserve
	assert.Equal(t, want, out.Constraints.Budget.Total)
	assert.Equal(t, p.CompositionReserve, out.Constraints.Budget.Composition)
	assert.Equal(t, p.MarkupReserve, out.Constraints.Budget.Markup)

	t.Run("sealed discount", func(t *testing.T) {
		in := dialogueInput()
		in.Excerpt = "They cross the airless bay." // contextual seal
		sealed, _ := b.Build(in, vbs.PersistentState{}, nil)
		assert.Equal(t, want-2*p.SealedDiscount, sealed.Constraints.Budget.Total)
	})

	t.Run("vehicle bonus", func(t *testing.T) {
		in := dialogueInput()
		in.VehicleDescription = "cargo skiff"
		veh, _ := b.Build(in, vbs.PersistentState{}, nil)
		assert.Equal(t, want+p.VehicleBonus, veh.Constraints.Budget.Total)
	})

	t.Run("narrative share", func(t *testing.T) {
		budget := out.Constraints.Budget
		assert.Equal(t, budget.Total-budget.Composition-budget.Markup, budget.Narrative())
	})
}

func TestPreviousBeatSummary(t *testing.T) {
	b := NewBuilder(newMockSource())

	first, _ := b.Build(dialogueInput(), vbs.PersistentState{}, nil)
	assert.Empty(t, first.PreviousBeatSummary)

	second, _ := b.Build(dialogueInput(), vbs.PersistentState{}, first)
	sum := second.PreviousBeatSummary
	assert.Contains(t, sum, "Mara Voss (left)")
	assert.Contains(t, sum, "Dex (right)")
	assert.Contains(t, sum, "orbital-dock")
	assert.Contains(t, sum, "harsh sodium floodlights")
}

func TestCarriedPositionsWin(t *testing.T) {
	b := NewBuilder(newMockSource())
	state := vbs.PersistentState{
		Characters: map[string]vbs.CharacterState{
			"Mara Voss": {Position: "right"},
			"Dex":       {Position: "left"},
		},
	}
	out, _ := b.Build(dialogueInput(), state, nil)
	assert.Equal(t, "right", out.Subjects[0].Position)
	assert.Equal(t, "left", out.Subjects[1].Position)
}
