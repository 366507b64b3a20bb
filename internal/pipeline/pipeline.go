// Package pipeline orchestrates the four phases per beat and threads
// continuity state through a scene. Beats within a scene run strictly
// sequentially: beat N+1's enrichment consumes beat N's finalized spec.
// Scenes are independent and may run concurrently.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"shotsmith/internal/enrich"
	"shotsmith/internal/logging"
	"shotsmith/internal/slotfill"
	"shotsmith/internal/validate"
	"shotsmith/internal/vbs"
)

// Sink archives finalized beats for audit. Advisory only: sink errors are
// logged, never propagated into the pipeline result.
type Sink interface {
	Record(ctx context.Context, rec AuditRecord) error
}

// AuditRecord is the full pre/post picture of one beat for the audit
// interface.
type AuditRecord struct {
	RunID       string
	BeatID      string
	SceneNumber int
	PreRepair   *vbs.VBS
	PostRepair  *vbs.VBS
	Report      validate.Report
	FellBack    bool
}

// ErrUnresolved is returned from scene runs in strict mode when a beat
// still carries errors after the repair bound. The default mode never
// returns it; callers opt in.
type ErrUnresolved struct {
	BeatID string
	Issues []validate.Issue
}

func (e *ErrUnresolved) Error() string {
	return fmt.Sprintf("beat %s has %d unresolved issue(s) after repair bound", e.BeatID, len(e.Issues))
}

// Options configures a Runner.
type Options struct {
	// Strict makes scene runs fail on unresolved issues instead of
	// flagging them for manual review.
	Strict bool

	// Audit receives every finalized beat when set.
	Audit Sink
}

// Runner executes the A->D pipeline. Safe for concurrent scene runs; all
// per-beat state lives on the stack.
type Runner struct {
	builder *enrich.Builder
	filler  *slotfill.Filler
	opts    Options
}

// New creates a runner.
func New(builder *enrich.Builder, filler *slotfill.Filler, opts Options) *Runner {
	return &Runner{builder: builder, filler: filler, opts: opts}
}

// BeatResult is the pipeline's public contract: always a compiled prompt
// plus a structured report, regardless of what went wrong along the way.
type BeatResult struct {
	RunID  string
	BeatID string

	// Prompt is the best-available compiled output.
	Prompt string

	// Route is the renderer decision emitted alongside the prompt.
	Route vbs.ModelRoute

	// Report carries detected issues, applied repairs and the iteration
	// flag for manual-review triage.
	Report validate.Report

	// Warnings aggregates non-fatal problems from all phases.
	Warnings []string

	// FellBack is true when Phase B used the deterministic heuristic.
	FellBack bool

	// Final is the post-repair VBS the prompt was compiled from.
	Final *vbs.VBS

	// NextState is the immutable continuity snapshot for the next beat.
	NextState vbs.PersistentState
}

// NeedsReview reports whether the caller should route this beat to manual
// review. Never blocking; purely advisory.
func (r *BeatResult) NeedsReview() bool {
	return r.Report.MaxIterationsReached
}

// RunBeat executes phases A through D for one beat. It never fails: every
// input yields a compiled prompt and a report.
func (r *Runner) RunBeat(ctx context.Context, in vbs.BeatInput, state vbs.PersistentState, prev *vbs.VBS) *BeatResult {
	runID := uuid.NewString()
	logging.Pipeline("run %s: beat %s scene %d", runID, in.BeatID, in.SceneNumber)

	// Phase A.
	partial, buildWarnings := r.builder.Build(in, state, prev)
	var warnings []string
	for _, w := range buildWarnings {
		warnings = append(warnings, fmt.Sprintf("%s: %s", w.Kind, w.Detail))
	}

	// Phase B. Cancellation or failure degrades to the deterministic
	// fallback inside Fill; no partial spec ever reaches the compiler.
	fill, fellBack := r.filler.Fill(ctx, partial, in)
	filled, mergeRep := vbs.Merge(partial, fill)
	for _, v := range mergeRep.Violations {
		warnings = append(warnings, "contract_violation: "+v)
	}
	if fellBack {
		warnings = append(warnings, "slot_fill_unavailable: deterministic fallback used")
	}

	// A model response can pass the schema yet leave a slot empty (null
	// expression on a visible face). Top up from the fallback; write-once
	// merge keeps everything the model did provide.
	if !filled.Filled() {
		filled, _ = vbs.Merge(filled, slotfill.FallbackFill(partial, in))
		warnings = append(warnings, "slot_fill_unavailable: fallback completed missing slots")
	}

	// Phases C and D.
	report := validate.Finalize(filled)
	for _, p := range report.SpecProblems {
		warnings = append(warnings, "spec_inconsistency: "+p)
	}

	result := &BeatResult{
		RunID:     runID,
		BeatID:    in.BeatID,
		Prompt:    report.Output,
		Route:     report.PostRepair.Route,
		Report:    report,
		Warnings:  warnings,
		FellBack:  fellBack,
		Final:     report.PostRepair,
		NextState: vbs.NextState(state, report.PostRepair),
	}

	if r.opts.Audit != nil {
		rec := AuditRecord{
			RunID:       runID,
			BeatID:      in.BeatID,
			SceneNumber: in.SceneNumber,
			PreRepair:   report.PreRepair,
			PostRepair:  report.PostRepair,
			Report:      report,
			FellBack:    fellBack,
		}
		if err := r.opts.Audit.Record(ctx, rec); err != nil {
			logging.Get(logging.CategoryAudit).Warn("audit record failed for beat %s: %v", in.BeatID, err)
		}
	}
	return result
}

// Scene is one independent unit of beats. Continuity resets at its start.
type Scene struct {
	Number int             `yaml:"number"`
	Beats  []vbs.BeatInput `yaml:"beats"`
}

// SceneResult holds a scene's beat results in order.
type SceneResult struct {
	Scene int
	Beats []*BeatResult
}

// RunScene processes a scene's beats sequentially, threading the
// continuity snapshot beat to beat. The returned error is nil unless
// strict mode is on and a beat ends unresolved.
func (r *Runner) RunScene(ctx context.Context, scene Scene) (*SceneResult, error) {
	out := &SceneResult{Scene: scene.Number}

	// Fresh continuity per scene.
	state := vbs.PersistentState{}
	var prev *vbs.VBS

	for _, in := range scene.Beats {
		in.SceneNumber = scene.Number
		res := r.RunBeat(ctx, in, state, prev)
		out.Beats = append(out.Beats, res)

		if r.opts.Strict && res.NeedsReview() {
			return out, &ErrUnresolved{BeatID: res.BeatID, Issues: res.Report.Issues}
		}

		state = res.NextState
		prev = res.Final
	}
	return out, nil
}

// RunScenes processes independent scenes concurrently. Results come back
// in input order. Concurrency is bounded by limit (<=0 means one goroutine
// per scene).
func (r *Runner) RunScenes(ctx context.Context, scenes []Scene, limit int) ([]*SceneResult, error) {
	results := make([]*SceneResult, len(scenes))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, scene := range scenes {
		g.Go(func() error {
			res, err := r.RunScene(gctx, scene)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
