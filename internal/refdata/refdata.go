// Package refdata exposes the reference-data collaborator: pure lookups for
// canonical character appearance, per-location artifacts, identity triggers
// and headgear fragments. The shipped implementation is a YAML library file
// loaded into memory; callers only see the lookup interfaces.
package refdata

import (
	"errors"
	"fmt"

	"shotsmith/internal/vbs"
)

// ErrMissing is the sentinel wrapped by every failed lookup. The enricher
// treats it as non-fatal and falls back to best-available text.
var ErrMissing = errors.New("reference data missing")

// ArtifactBucket classifies location artifacts for scene-policy selection.
type ArtifactBucket string

const (
	BucketStructural  ArtifactBucket = "structural"
	BucketLighting    ArtifactBucket = "lighting"
	BucketAtmospheric ArtifactBucket = "atmospheric"
	BucketProp        ArtifactBucket = "prop"
)

// ArtifactSet holds a location's artifacts pre-tagged into the four buckets.
type ArtifactSet struct {
	Structural  []string `yaml:"structural"`
	Lighting    []string `yaml:"lighting"`
	Atmospheric []string `yaml:"atmospheric"`
	Props       []string `yaml:"props"`
}

// Character is the directory record for one character.
type Character struct {
	Name      string
	Nicknames []string

	// Physical is false for narratively-present entities with no visual
	// body (ship AIs, voices on comms). They never become subjects.
	Physical bool

	// Triggers maps renderer route to the identity token for that route.
	Triggers map[vbs.ModelRoute]string
}

// AppearanceLookup resolves canonical appearance text.
type AppearanceLookup interface {
	// Appearance returns the canonical text for a character at a location
	// in an appearance phase. Wraps ErrMissing when no record matches.
	Appearance(character, location, phase string) (string, error)
}

// ArtifactLookup resolves a location's bucketed artifacts.
type ArtifactLookup interface {
	// Artifacts wraps ErrMissing for unknown locations.
	Artifacts(location string) (ArtifactSet, error)
}

// Directory resolves character records and name variants.
type Directory interface {
	// Character wraps ErrMissing for unknown names.
	Character(name string) (Character, error)

	// NameVariants returns canonical name -> variant list for every known
	// character, for the ingestion-side name matcher.
	NameVariants() map[string][]string
}

// Fragments resolves the per-state headgear text fragments.
type Fragments interface {
	// HeadgearFragment returns the covering text for a state; empty for
	// HeadgearOpen.
	HeadgearFragment(state vbs.HeadgearState) string
}

// Source is the aggregate the enricher consumes.
type Source interface {
	AppearanceLookup
	ArtifactLookup
	Directory
	Fragments
}

// missingErr builds a wrapped lookup error with enough context to log.
func missingErr(what string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(what, args...), ErrMissing)
}
