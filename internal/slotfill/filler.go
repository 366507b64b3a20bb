package slotfill

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"shotsmith/internal/llm"
	"shotsmith/internal/logging"
	"shotsmith/internal/vbs"
)

// systemPrompt pins the contract: the model describes observables for the
// listed slots and nothing else.
const systemPrompt = `You fill camera and performance slots for a single
storyboard beat of a serialized video production. You receive the beat's
partial visual spec, a narrative excerpt, a directorial intent cue and a
tone cue. Respond with JSON matching the provided schema.

Rules:
- composition: framing and blocking only, 1-2 short clauses.
- action: observable pose or movement only, never thoughts or feelings.
- expression: observable face features; MUST be null for any subject whose
  face_visible is false.
- Do not restate or alter triggers, appearance text, location, shot type or
  lighting; those are fixed.`

// DefaultTimeout bounds the model call; the fallback covers the rest.
const DefaultTimeout = 30 * time.Second

// Filler runs Phase B for one beat at a time.
type Filler struct {
	client  llm.Client
	timeout time.Duration
}

// NewFiller creates a filler over a model client. A nil client means
// fallback-only operation, useful for offline runs and tests.
func NewFiller(client llm.Client, timeout time.Duration) *Filler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Filler{client: client, timeout: timeout}
}

// Fill produces the fill-in for a partial VBS. Any model failure, schema
// mismatch, timeout or cancellation degrades to the deterministic fallback;
// fellBack reports which path produced the result.
func (f *Filler) Fill(ctx context.Context, partial *vbs.VBS, in vbs.BeatInput) (fill vbs.FillIn, fellBack bool) {
	if f.client == nil {
		return FallbackFill(partial, in), true
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	prompt, err := buildPrompt(partial, in)
	if err == nil {
		var raw string
		raw, err = f.client.CompleteWithSchema(callCtx, systemPrompt, prompt, RawFillInSchema())
		if err == nil {
			fill, err = ParseFillIn(raw, partial)
			if err == nil {
				logging.Slotfill("beat %s filled by model", partial.BeatID)
				return fill, false
			}
		}
	}

	logging.Get(logging.CategorySlotfill).Warn(
		"beat %s: slot fill unavailable (%v), using deterministic fallback", partial.BeatID, err)
	return FallbackFill(partial, in), true
}

// buildPrompt serializes the partial spec and the narrative cues into the
// user prompt.
func buildPrompt(partial *vbs.VBS, in vbs.BeatInput) (string, error) {
	spec, err := json.MarshalIndent(promptView(partial), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize partial spec: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PARTIAL SPEC:\n%s\n\n", spec)
	fmt.Fprintf(&b, "NARRATIVE EXCERPT:\n%s\n\n", in.Excerpt)
	if in.Intent != "" {
		fmt.Fprintf(&b, "DIRECTORIAL INTENT: %s\n", in.Intent)
	}
	if in.Tone != "" {
		fmt.Fprintf(&b, "TONE: %s\n", in.Tone)
	}
	if partial.PreviousBeatSummary != "" {
		fmt.Fprintf(&b, "CONTINUITY: %s\n", partial.PreviousBeatSummary)
	}
	if n := partial.Constraints.Budget.Narrative(); n > 0 {
		fmt.Fprintf(&b, "LENGTH: keep all added text within roughly %d tokens total\n", n)
	}
	return b.String(), nil
}

// promptView trims the partial VBS to what the model needs to see. Keeping
// budget and markup internals out of the prompt keeps the model from
// commenting on them.
func promptView(partial *vbs.VBS) map[string]interface{} {
	subjects := make([]map[string]interface{}, 0, len(partial.Subjects))
	for _, s := range partial.Subjects {
		subjects = append(subjects, map[string]interface{}{
			"name":         s.Name,
			"appearance":   s.Appearance,
			"position":     s.Position,
			"face_visible": s.FaceVisible,
		})
	}
	view := map[string]interface{}{
		"template": partial.Template,
		"shot":     map[string]string{"type": partial.Shot.Type, "angle": partial.Shot.Angle},
		"subjects": subjects,
		"environment": map[string]interface{}{
			"location": partial.Environment.Location,
			"lighting": partial.Environment.Lighting,
		},
	}
	if partial.Vehicle != nil {
		view["vehicle"] = partial.Vehicle.Description
	}
	return view
}
