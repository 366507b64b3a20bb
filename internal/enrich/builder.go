// Package enrich implements Phase A: deterministic construction of the
// partial Visual Beat Spec from beat metadata, reference data and carried
// continuity state. Everything here is derivable without a generative
// model; the fill slots (composition, action, expression, vehicle spatial
// note, atmosphere enrichment) are left empty for Phase B.
package enrich

import (
	"fmt"
	"strings"

	"shotsmith/internal/logging"
	"shotsmith/internal/refdata"
	"shotsmith/internal/textnorm"
	"shotsmith/internal/vbs"
)

// WarningKind tags non-fatal problems encountered while building.
type WarningKind string

const (
	// WarnReferenceDataMissing means a character or location lookup failed
	// and best-available fallback text was used instead.
	WarnReferenceDataMissing WarningKind = "reference_data_missing"
)

// Warning is a non-fatal build problem. Building never aborts a beat.
type Warning struct {
	Kind   WarningKind
	Detail string
}

// Builder constructs partial VBS instances. Safe for reuse across beats;
// all per-beat state lives in arguments and return values.
type Builder struct {
	src    refdata.Source
	budget BudgetPolicy
}

// NewBuilder creates a builder over a reference-data source.
func NewBuilder(src refdata.Source) *Builder {
	return &Builder{src: src, budget: DefaultBudgetPolicy()}
}

// SetBudgetPolicy replaces the default budget table, for config overrides.
func (b *Builder) SetBudgetPolicy(p BudgetPolicy) { b.budget = p }

// shotDefaults maps beat archetypes to camera setups used when the
// ingestion side supplies no shot suggestion.
var shotDefaults = map[string]vbs.Shot{
	"combat":   {Type: "wide shot", Angle: "low angle"},
	"dialogue": {Type: "medium shot", Angle: "eye level"},
	"vehicle":  {Type: "wide shot", Angle: "tracking angle"},
	"intimate": {Type: "close-up", Angle: "eye level"},
	"reveal":   {Type: "wide shot", Angle: "high angle"},
}

// Build produces the partial VBS for one beat. prev is the previous beat's
// finalized VBS within the same scene, or nil for the first beat.
func (b *Builder) Build(in vbs.BeatInput, state vbs.PersistentState, prev *vbs.VBS) (*vbs.VBS, []Warning) {
	var warnings []Warning
	warnf := func(kind WarningKind, format string, args ...interface{}) {
		w := Warning{Kind: kind, Detail: fmt.Sprintf(format, args...)}
		warnings = append(warnings, w)
		logging.Get(logging.CategoryEnrich).Warn("%s: %s", w.Kind, w.Detail)
	}

	out := &vbs.VBS{
		BeatID:      in.BeatID,
		SceneNumber: in.SceneNumber,
		Template:    in.Template,
		Shot:        b.resolveShot(in),
		State:       state.Clone(),
	}

	// Subjects: resolve each present, physical character. A beat with no
	// explicit cast gets one detected from the excerpt.
	cast := in.Characters
	if len(cast) == 0 {
		cast = b.detectCharacters(in.Excerpt)
		if len(cast) == 0 {
			warnf(WarnReferenceDataMissing, "beat %s names no characters and none were detected in the excerpt", in.BeatID)
		}
	}
	for _, name := range cast {
		rec, err := b.src.Character(name)
		if err != nil {
			warnf(WarnReferenceDataMissing, "no directory record for %q, using fallback identity", name)
			rec = fallbackRecord(name)
		}
		if !rec.Physical {
			logging.EnrichDebug("excluding non-physical entity %q from subjects", name)
			continue
		}

		cls := textnorm.ClassifyHeadgear(in.Excerpt, state.HeadgearFor(name))
		hg := cls.State

		base, err := b.src.Appearance(name, in.Location, state.PhaseFor(name))
		if err != nil {
			warnf(WarnReferenceDataMissing, "no appearance for %q at %q, using fallback text", name, in.Location)
			base = strings.ToLower(name)
		}

		out.Subjects = append(out.Subjects, vbs.Subject{
			Name:        name,
			Appearance:  vbs.ApplyHeadgear(hg, base, b.src.HeadgearFragment(hg)),
			FaceVisible: hg.FaceVisible(),
			Headgear:    hg,
		})
	}

	// Route decision needs the full face-visibility picture, and triggers
	// need the route.
	out.Route = decideRoute(out.Subjects)
	for i := range out.Subjects {
		sub := &out.Subjects[i]
		rec, err := b.src.Character(sub.Name)
		if err != nil {
			rec = fallbackRecord(sub.Name)
		}
		sub.Trigger = triggerFor(rec, out.Route)
		// The trigger leads the appearance text so it survives into the
		// compiled output as the subject's first clause.
		if sub.Appearance == "" {
			sub.Appearance = sub.Trigger
		} else {
			sub.Appearance = sub.Trigger + ", " + sub.Appearance
		}
		if sub.FaceVisible {
			sub.Markup = map[string]string{
				"face": fmt.Sprintf("[region:face %d]", i+1),
			}
		}
	}
	assignPositions(out.Subjects, state)

	out.Environment = b.buildEnvironment(in, state, warnf)
	out.Vehicle = resolveVehicle(in, state)
	out.Constraints = vbs.Constraints{
		Budget:            b.budget.Compute(out),
		RequireFaceMarkup: true,
		Compaction:        vbs.DefaultCompactionOrder(),
	}
	out.PreviousBeatSummary = summarize(prev)

	logging.Enrich("beat %s: %d subjects, route=%s, budget=%d",
		out.BeatID, len(out.Subjects), out.Route, out.Constraints.Budget.Total)
	return out, warnings
}

// detectCharacters matches directory name variants against the excerpt.
// The index is rebuilt per beat; the library can reload underneath us.
func (b *Builder) detectCharacters(excerpt string) []string {
	variants := b.src.NameVariants()
	if len(variants) == 0 || excerpt == "" {
		return nil
	}
	return textnorm.NewNameIndex(variants).Match(excerpt)
}

// resolveShot honors the ingestion-side suggestion, then the template
// default, then a plain medium shot.
func (b *Builder) resolveShot(in vbs.BeatInput) vbs.Shot {
	if in.ShotSuggestion != "" {
		return vbs.Shot{Type: in.ShotSuggestion, Angle: "eye level"}
	}
	if shot, ok := shotDefaults[in.Template]; ok {
		return shot
	}
	return vbs.Shot{Type: "medium shot", Angle: "eye level"}
}

// decideRoute picks the primary renderer iff any subject's face is visible.
func decideRoute(subjects []vbs.Subject) vbs.ModelRoute {
	for _, s := range subjects {
		if s.FaceVisible {
			return vbs.RoutePrimary
		}
	}
	return vbs.RouteAlternate
}

// triggerFor resolves the identity token for the chosen route, falling back
// to any known token rather than losing identity.
func triggerFor(rec refdata.Character, route vbs.ModelRoute) string {
	if tok := rec.Triggers[route]; tok != "" {
		return tok
	}
	for _, tok := range rec.Triggers {
		if tok != "" {
			return tok
		}
	}
	return fallbackTrigger(rec.Name)
}

// assignPositions keeps carried frame positions and fills the gaps from a
// left-to-right layout.
func assignPositions(subjects []vbs.Subject, state vbs.PersistentState) {
	layout := layoutFor(len(subjects))
	for i := range subjects {
		if cs, ok := state.Characters[subjects[i].Name]; ok && cs.Position != "" {
			subjects[i].Position = cs.Position
			continue
		}
		subjects[i].Position = layout[i]
	}
}

// layoutFor spreads n subjects across the frame, left to right. Crowds
// beyond five get numbered slots so no two subjects share a position tag.
func layoutFor(n int) []string {
	switch n {
	case 0:
		return nil
	case 1:
		return []string{"center"}
	case 2:
		return []string{"left", "right"}
	case 3:
		return []string{"left", "center", "right"}
	case 4:
		return []string{"far left", "left", "right", "far right"}
	case 5:
		return []string{"far left", "left", "center", "right", "far right"}
	}
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("position %d of %d from left", i+1, n)
	}
	return out
}

// buildEnvironment selects artifacts per scene policy: 2-3 structural
// anchors, exactly one lighting phrase, at most one atmospheric, up to two
// props.
func (b *Builder) buildEnvironment(in vbs.BeatInput, state vbs.PersistentState, warnf func(WarningKind, string, ...interface{})) vbs.Environment {
	env := vbs.Environment{Location: in.Location}

	set, err := b.src.Artifacts(in.Location)
	if err != nil {
		warnf(WarnReferenceDataMissing, "no artifacts for location %q", in.Location)
	}

	env.Anchors = firstN(set.Structural, 3)
	if len(set.Lighting) > 0 {
		env.Lighting = set.Lighting[0]
	} else if state.Lighting != "" {
		env.Lighting = state.Lighting
	} else {
		env.Lighting = "soft ambient light"
	}
	if len(set.Atmospheric) > 0 {
		env.Atmosphere = set.Atmospheric[0]
	}
	env.Props = firstN(set.Props, 2)

	if in.Template == "combat" {
		env.FX = "kicked-up dust and debris"
	}
	return env
}

// resolveVehicle uses the beat's own description first, then carried
// vehicle continuity.
func resolveVehicle(in vbs.BeatInput, state vbs.PersistentState) *vbs.Vehicle {
	if in.VehicleDescription != "" {
		return &vbs.Vehicle{Description: in.VehicleDescription}
	}
	if state.VehiclePresent && in.Template == "vehicle" && state.VehicleState != "" {
		return &vbs.Vehicle{Description: state.VehicleState}
	}
	return nil
}

// summarize renders the continuity hint from the prior beat's finalized
// VBS. A hint for the slot filler, not re-derived database state.
func summarize(prev *vbs.VBS) string {
	if prev == nil {
		return ""
	}
	var chars []string
	for _, s := range prev.Subjects {
		if s.Position != "" {
			chars = append(chars, fmt.Sprintf("%s (%s)", s.Name, s.Position))
		} else {
			chars = append(chars, s.Name)
		}
	}
	sum := "previously: " + strings.Join(chars, ", ")
	if prev.Environment.Location != "" {
		sum += " at " + prev.Environment.Location
	}
	if prev.Environment.Lighting != "" {
		sum += " under " + prev.Environment.Lighting
	}
	return sum
}

func fallbackRecord(name string) refdata.Character {
	return refdata.Character{Name: name, Physical: true}
}

func fallbackTrigger(name string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(name), "-"))
	return slug + "-ref"
}

func firstN(xs []string, n int) []string {
	if len(xs) <= n {
		return append([]string(nil), xs...)
	}
	return append([]string(nil), xs[:n]...)
}
