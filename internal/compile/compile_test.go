package compile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotsmith/internal/vbs"
)

func strptr(s string) *string { return &s }

func filledVBS() *vbs.VBS {
	return &vbs.VBS{
		BeatID: "b1",
		Route:  vbs.RoutePrimary,
		Shot: vbs.Shot{
			Type:        "medium shot",
			Angle:       "low angle",
			Composition: "two figures framed against dock cranes",
		},
		Subjects: []vbs.Subject{
			{
				Name: "Mara Voss", Trigger: "mvoss-p1",
				Appearance:  "mvoss-p1, tall woman, olive flight suit",
				Action:      "leaning over the rail",
				Expression:  strptr("narrowed eyes"),
				Position:    "left",
				FaceVisible: true, Headgear: vbs.HeadgearOpen,
				Markup: map[string]string{"face": "[region:face 1]", "clothing": "[region:cloth 1]"},
			},
			{
				Name: "Dex", Trigger: "dex-a2",
				Appearance:  "dex-a2, stocky man, sealed EVA suit",
				Action:      "hauling a crate",
				Position:    "right",
				FaceVisible: false, Headgear: vbs.HeadgearSealed,
			},
		},
		Environment: vbs.Environment{
			Location:   "orbital-dock",
			Anchors:    []string{"gantry cranes", "stacked cargo pods"},
			Lighting:   "harsh sodium floodlights",
			Atmosphere: "drifting welding sparks",
			Props:      []string{"fuel lines"},
			FX:         "sparks scatter on impact",
		},
		Vehicle: &vbs.Vehicle{
			Description: "battered cargo skiff",
			SpatialNote: "moored low in the background",
		},
	}
}

func TestCompileSectionOrder(t *testing.T) {
	out := Compile(filledVBS())

	ordered := []string{
		"medium shot",
		"two figures framed",
		"mvoss-p1",
		"narrowed eyes",
		"positioned left",
		"dex-a2",
		"positioned right",
		"gantry cranes",
		"harsh sodium floodlights",
		"drifting welding sparks",
		"fuel lines",
		"sparks scatter",
		"battered cargo skiff",
		"moored low",
		"[region:cloth 1]",
	}
	last := -1
	for _, frag := range ordered {
		at := strings.Index(out, frag)
		require.GreaterOrEqual(t, at, 0, "missing fragment %q in: %s", frag, out)
		assert.Greater(t, at, last, "fragment %q out of order", frag)
		last = at
	}
}

func TestCompileDeterministic(t *testing.T) {
	v := filledVBS()
	first := Compile(v)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Compile(v))
	}
}

func TestCompileNormalization(t *testing.T) {
	v := filledVBS()
	v.Shot.Composition = "  doubled  spaces ,  stray comma ,, "
	v.Environment.FX = ""
	v.Vehicle = nil

	out := Compile(v)
	assert.NotContains(t, out, "  ")
	assert.NotContains(t, out, ",,")
	assert.NotContains(t, out, ", ,")
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(out, MarkupBlock(v)), ", "),
		"dangling separator before markup block: %q", out)
}

func TestCompileSingleSubjectOmitsPosition(t *testing.T) {
	v := filledVBS()
	v.Subjects = v.Subjects[:1]
	out := Compile(v)
	assert.NotContains(t, out, "positioned")
}

func TestCompileNoExpressionLineWhenNil(t *testing.T) {
	v := filledVBS()
	out := Compile(v)
	// Dex is sealed: exactly one expression in output, Mara's.
	assert.Equal(t, 1, strings.Count(out, "narrowed eyes"))
}

func TestMarkupBlockDeterministicRegionOrder(t *testing.T) {
	v := filledVBS()
	block := MarkupBlock(v)
	// Lexical region order: clothing before face.
	assert.Equal(t, "[region:cloth 1] [region:face 1]", block)
}

func TestMarkupBlockEmpty(t *testing.T) {
	v := filledVBS()
	v.Subjects[0].Markup = nil
	assert.Empty(t, MarkupBlock(v))
	out := Compile(v)
	assert.False(t, strings.HasSuffix(out, " "))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}
