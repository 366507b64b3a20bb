// Package validate implements Phase D: invariant checks over the compiled
// prompt, bounded deterministic repair, and the validate/repair loop. The
// phase never hard-fails; it always returns usable output plus a report.
package validate

import (
	"fmt"
	"strings"

	"shotsmith/internal/compile"
	"shotsmith/internal/logging"
	"shotsmith/internal/vbs"
)

// CheckKind identifies one of the five invariant checks.
type CheckKind string

const (
	CheckMissingTrigger    CheckKind = "missing_trigger"
	CheckDuplicateTrigger  CheckKind = "duplicate_trigger"
	CheckHairPhrase        CheckKind = "hair_phrase"
	CheckMissingFaceMarkup CheckKind = "missing_face_markup"
	CheckSealedExpression  CheckKind = "sealed_expression"
	CheckBudgetExceeded    CheckKind = "budget_exceeded"
)

// Severity grades an issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one violation found in a compiled output.
type Issue struct {
	Check    CheckKind `json:"check"`
	Subject  string    `json:"subject,omitempty"`
	Severity Severity  `json:"severity"`
	Detail   string    `json:"detail"`
}

// RepairKind identifies a deterministic repair strategy.
type RepairKind string

const (
	RepairPrependTrigger   RepairKind = "prepend_trigger"
	RepairDedupTrigger     RepairKind = "dedup_trigger"
	RepairStripHair        RepairKind = "strip_hair"
	RepairInjectFaceMarkup RepairKind = "inject_face_markup"
	RepairNullExpression   RepairKind = "null_expression"
	RepairCompaction       RepairKind = "compaction"
)

// Repair records one applied strategy.
type Repair struct {
	Strategy RepairKind `json:"strategy"`
	Subject  string     `json:"subject,omitempty"`
	Detail   string     `json:"detail"`
}

// Report is the full result of finalizing a beat: best-available output,
// everything that was found, everything that was done about it.
type Report struct {
	Output string `json:"output"`

	// Detected lists every issue found before the first repair pass.
	Detected []Issue `json:"detected,omitempty"`

	// Issues lists what remains after the loop; empty means clean.
	Issues []Issue `json:"issues,omitempty"`

	// Repairs is the applied repair history, in order.
	Repairs []Repair `json:"repairs,omitempty"`

	Iterations           int  `json:"iterations"`
	MaxIterationsReached bool `json:"max_iterations_reached"`

	// SpecProblems lists structural inconsistencies in the post-repair spec
	// itself, from vbs.CheckInvariants. Distinct from output issues; the
	// pipeline surfaces them as warnings.
	SpecProblems []string `json:"spec_problems,omitempty"`

	// Pre- and post-repair specs, exposed for the audit interface.
	PreRepair  *vbs.VBS `json:"-"`
	PostRepair *vbs.VBS `json:"-"`
}

// maxRepairIterations bounds the validate -> repair -> recompile loop.
const maxRepairIterations = 2

// budgetWarningSlack is the overage fraction still reported as a warning
// rather than an error. Compaction runs either way.
const budgetWarningSlack = 0.10

// Check runs all five checks against a spec and its compiled output.
func Check(v *vbs.VBS, output string) []Issue {
	var issues []Issue

	for _, s := range v.Subjects {
		switch n := strings.Count(output, s.Trigger); {
		case s.Trigger == "":
			// An empty trigger is a spec-level problem, not an output one;
			// CheckInvariants reports it.
		case n == 0:
			issues = append(issues, Issue{
				Check: CheckMissingTrigger, Subject: s.Name, Severity: SeverityError,
				Detail: fmt.Sprintf("identity trigger %q absent from output", s.Trigger),
			})
		case n > 1:
			issues = append(issues, Issue{
				Check: CheckDuplicateTrigger, Subject: s.Name, Severity: SeverityError,
				Detail: fmt.Sprintf("identity trigger %q appears %d times in output", s.Trigger, n),
			})
		}
		if s.Headgear == vbs.HeadgearSealed && vbs.ContainsHairPhrase(s.Appearance) {
			issues = append(issues, Issue{
				Check: CheckHairPhrase, Subject: s.Name, Severity: SeverityError,
				Detail: "fully-sealed subject still carries hair phrasing",
			})
		}
		if s.FaceVisible && v.Constraints.RequireFaceMarkup && s.Markup["face"] == "" {
			issues = append(issues, Issue{
				Check: CheckMissingFaceMarkup, Subject: s.Name, Severity: SeverityError,
				Detail: "face visible but face markup tag missing",
			})
		}
		if s.Headgear == vbs.HeadgearSealed && s.Expression != nil {
			issues = append(issues, Issue{
				Check: CheckSealedExpression, Subject: s.Name, Severity: SeverityError,
				Detail: "fully-sealed subject has a non-null expression",
			})
		}
	}

	if total := v.Constraints.Budget.Total; total > 0 {
		tokens := compile.EstimateTokens(output)
		if tokens > total {
			severity := SeverityError
			if float64(tokens-total) <= budgetWarningSlack*float64(total) {
				severity = SeverityWarning
			}
			issues = append(issues, Issue{
				Check: CheckBudgetExceeded, Severity: severity,
				Detail: fmt.Sprintf("%d tokens over budget %d", tokens, total),
			})
		}
	}
	return issues
}

// Finalize runs the bounded validate/repair loop on a filled VBS and
// returns the best-available compiled output with the repair history. The
// input is never mutated; repairs apply to an internal copy.
func Finalize(v *vbs.VBS) Report {
	pre := v.Clone()
	cur := v.Clone()

	output := compile.Compile(cur)
	issues := Check(cur, output)

	rep := Report{
		Detected:  issues,
		PreRepair: pre,
	}

	for rep.Iterations < maxRepairIterations && len(issues) > 0 {
		rep.Iterations++
		applied := applyRepairs(cur, issues)
		rep.Repairs = append(rep.Repairs, applied...)
		output = compile.Compile(cur)
		issues = Check(cur, output)
		if len(applied) == 0 {
			// No strategy made progress; further iterations cannot help.
			break
		}
	}

	rep.Output = output
	rep.Issues = issues
	rep.PostRepair = cur
	rep.SpecProblems = cur.CheckInvariants()
	// Issues remaining at exit mean the loop stopped on the bound or ran
	// out of applicable strategies; either way the caller should treat the
	// result as best-available.
	rep.MaxIterationsReached = len(issues) > 0

	if len(issues) > 0 {
		logging.Get(logging.CategoryValidate).Warn(
			"beat %s finalized with %d unresolved issue(s) after %d iteration(s)",
			v.BeatID, len(issues), rep.Iterations)
	} else {
		logging.Validate("beat %s clean after %d iteration(s), %d repair(s)",
			v.BeatID, rep.Iterations, len(rep.Repairs))
	}
	return rep
}

// applyRepairs mutates cur, applying one strategy per issue. Returns the
// repairs that actually changed something.
func applyRepairs(cur *vbs.VBS, issues []Issue) []Repair {
	var applied []Repair
	for _, issue := range issues {
		switch issue.Check {
		case CheckMissingTrigger:
			if s := subjectByName(cur, issue.Subject); s != nil {
				if s.Appearance == "" {
					s.Appearance = s.Trigger
				} else {
					s.Appearance = s.Trigger + ", " + s.Appearance
				}
				applied = append(applied, Repair{
					Strategy: RepairPrependTrigger, Subject: issue.Subject,
					Detail: "prepended identity trigger to appearance text",
				})
			}
		case CheckDuplicateTrigger:
			if s := subjectByName(cur, issue.Subject); s != nil {
				if dedupTrigger(cur, s) {
					applied = append(applied, Repair{
						Strategy: RepairDedupTrigger, Subject: issue.Subject,
						Detail: "removed restated identity trigger from fill text",
					})
				}
			}
		case CheckHairPhrase:
			if s := subjectByName(cur, issue.Subject); s != nil {
				s.Appearance = vbs.StripHairPhrases(s.Appearance)
				applied = append(applied, Repair{
					Strategy: RepairStripHair, Subject: issue.Subject,
					Detail: "stripped hair phrasing from sealed subject",
				})
			}
		case CheckMissingFaceMarkup:
			if i := subjectIndex(cur, issue.Subject); i >= 0 {
				s := &cur.Subjects[i]
				if s.Markup == nil {
					s.Markup = make(map[string]string, 1)
				}
				s.Markup["face"] = fmt.Sprintf("[region:face %d]", i+1)
				applied = append(applied, Repair{
					Strategy: RepairInjectFaceMarkup, Subject: issue.Subject,
					Detail: "injected missing face markup tag",
				})
			}
		case CheckSealedExpression:
			if s := subjectByName(cur, issue.Subject); s != nil {
				s.Expression = nil
				applied = append(applied, Repair{
					Strategy: RepairNullExpression, Subject: issue.Subject,
					Detail: "nulled expression on fully-sealed subject",
				})
			}
		case CheckBudgetExceeded:
			applied = append(applied, compact(cur)...)
		}
	}
	return applied
}

// compact walks the ordered drop-list, recompiling after each step, until
// the output fits the budget or the list is exhausted. Steps that have
// nothing left to drop are skipped, which keeps compaction idempotent.
func compact(cur *vbs.VBS) []Repair {
	var applied []Repair
	total := cur.Constraints.Budget.Total
	for _, step := range cur.Constraints.Compaction {
		if compile.EstimateTokens(compile.Compile(cur)) <= total {
			break
		}
		if detail, changed := applyCompactionStep(cur, step); changed {
			applied = append(applied, Repair{
				Strategy: RepairCompaction,
				Detail:   fmt.Sprintf("%s: %s", step, detail),
			})
		}
	}
	return applied
}

func applyCompactionStep(cur *vbs.VBS, step vbs.CompactionStep) (string, bool) {
	switch step {
	case vbs.CompactDropVehicleNote:
		if cur.Vehicle != nil && cur.Vehicle.SpatialNote != "" {
			cur.Vehicle.SpatialNote = ""
			return "dropped vehicle spatial note", true
		}
	case vbs.CompactDropProps:
		if len(cur.Environment.Props) > 0 {
			cur.Environment.Props = nil
			return "dropped props", true
		}
	case vbs.CompactDropFX:
		if cur.Environment.FX != "" {
			cur.Environment.FX = ""
			return "dropped fx phrase", true
		}
	case vbs.CompactTruncateAtmosphere:
		if cur.Environment.Atmosphere != "" {
			truncated := firstClause(cur.Environment.Atmosphere)
			if truncated != cur.Environment.Atmosphere {
				cur.Environment.Atmosphere = truncated
				return "truncated atmosphere to first clause", true
			}
			cur.Environment.Atmosphere = ""
			return "dropped atmosphere", true
		}
	case vbs.CompactCondenseSecondary:
		for i := 1; i < len(cur.Subjects); i++ {
			condensed := firstClauses(cur.Subjects[i].Appearance, 2)
			if condensed != cur.Subjects[i].Appearance {
				cur.Subjects[i].Appearance = condensed
				return "condensed secondary subject " + cur.Subjects[i].Name, true
			}
		}
	}
	return "", false
}

// dedupTrigger removes every occurrence of the owner's trigger outside its
// canonical spot, the leading clause of the owner's appearance text. Model
// fill text restating a trigger in an action or the composition is the
// usual source.
func dedupTrigger(cur *vbs.VBS, owner *vbs.Subject) bool {
	token := owner.Trigger
	changed := false
	strip := func(p *string) {
		if strings.Contains(*p, token) {
			*p = stripToken(*p, token)
			changed = true
		}
	}

	strip(&cur.Shot.Composition)
	strip(&cur.Environment.Atmosphere)
	if cur.Vehicle != nil {
		strip(&cur.Vehicle.SpatialNote)
	}
	for i := range cur.Subjects {
		s := &cur.Subjects[i]
		strip(&s.Action)
		if s.Expression != nil {
			strip(s.Expression)
		}
		if s.Name == owner.Name {
			if kept := keepFirstToken(s.Appearance, token); kept != s.Appearance {
				s.Appearance = kept
				changed = true
			}
		} else {
			strip(&s.Appearance)
		}
	}
	return changed
}

// stripToken removes every occurrence of token and tidies the separators
// left behind.
func stripToken(text, token string) string {
	out := strings.ReplaceAll(text, token, "")
	out = strings.Join(strings.Fields(out), " ")
	out = strings.ReplaceAll(out, " ,", ",")
	for strings.Contains(out, ",,") {
		out = strings.ReplaceAll(out, ",,", ",")
	}
	return strings.Trim(out, " ,")
}

// keepFirstToken keeps the first occurrence of token and strips the rest.
func keepFirstToken(text, token string) string {
	idx := strings.Index(text, token)
	if idx < 0 || !strings.Contains(text[idx+len(token):], token) {
		return text
	}
	head := text[:idx+len(token)]
	tail := stripToken(text[idx+len(token):], token)
	if tail == "" {
		return strings.Trim(head, " ,")
	}
	return head + ", " + tail
}

func subjectByName(v *vbs.VBS, name string) *vbs.Subject {
	if i := subjectIndex(v, name); i >= 0 {
		return &v.Subjects[i]
	}
	return nil
}

func subjectIndex(v *vbs.VBS, name string) int {
	for i := range v.Subjects {
		if v.Subjects[i].Name == name {
			return i
		}
	}
	return -1
}

func firstClause(s string) string { return firstClauses(s, 1) }

func firstClauses(s string, n int) string {
	parts := strings.SplitN(s, ",", n+1)
	if len(parts) <= n {
		return s
	}
	kept := parts[:n]
	for i := range kept {
		kept[i] = strings.TrimSpace(kept[i])
	}
	return strings.Join(kept, ", ")
}
