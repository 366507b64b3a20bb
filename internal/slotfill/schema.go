// Package slotfill implements Phase B: filling the small set of
// non-deterministic VBS slots via a schema-constrained generative-model
// call, with a deterministic heuristic fallback so the pipeline never
// stalls on the model.
package slotfill

import (
	"encoding/json"
	"sync"
)

// FillInSchema is the JSON Schema the model's response is constrained to.
// It covers exactly the fill slots and nothing else: the model cannot even
// express a change to triggers, appearance, location, shot type or
// lighting.
//
// Structure:
//
//	{
//	  "composition": "framing and blocking for the shot line",
//	  "subjects": [{ "name", "action", "expression" (string or null) }, ...],
//	  "vehicle_note": "spatial relationship of the vehicle" (optional),
//	  "atmosphere": "enriched atmosphere phrase" (optional)
//	}
const FillInSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["composition", "subjects"],
  "additionalProperties": false,
  "properties": {
    "composition": {
      "type": "string",
      "description": "Framing and blocking of the shot in 1-2 short clauses"
    },
    "subjects": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "action", "expression"],
        "additionalProperties": false,
        "properties": {
          "name": {
            "type": "string",
            "description": "Canonical character name, copied from the input"
          },
          "action": {
            "type": "string",
            "description": "Observable pose or movement only, never internal state"
          },
          "expression": {
            "type": ["string", "null"],
            "description": "Observable face features, or null when the face is hidden"
          }
        }
      }
    },
    "vehicle_note": {
      "type": "string",
      "description": "Spatial relationship of the vehicle to the frame"
    },
    "atmosphere": {
      "type": "string",
      "description": "Optional enrichment of the atmosphere phrase"
    }
  }
}`

var (
	rawSchemaOnce sync.Once
	rawSchema     map[string]interface{}
)

// RawFillInSchema parses the canonical schema constant into the raw object
// form providers take. Parsed once; the constant is the single source of
// truth so the prompt contract cannot drift from the enforcement schema.
func RawFillInSchema() map[string]interface{} {
	rawSchemaOnce.Do(func() {
		if err := json.Unmarshal([]byte(FillInSchema), &rawSchema); err != nil {
			// The constant is static; a parse failure is a programming
			// error, but fall back to a permissive object schema rather
			// than panic inside the pipeline.
			rawSchema = map[string]interface{}{"type": "object"}
		}
	})
	return rawSchema
}
