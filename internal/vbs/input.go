package vbs

// BeatInput is what the narrative-ingestion collaborator supplies per beat.
// Consumed read-only by the pipeline.
type BeatInput struct {
	BeatID      string `yaml:"id" json:"beat_id"`
	SceneNumber int    `yaml:"-" json:"scene_number"`

	// Template is the beat archetype ("combat", "dialogue", "vehicle", ...).
	Template string `yaml:"template" json:"template"`

	// Excerpt is the narrative text this beat was segmented from.
	Excerpt string `yaml:"excerpt" json:"excerpt"`

	// Intent is the short directorial cue ("slow push-in on the betrayal").
	Intent string `yaml:"intent" json:"intent"`

	// Tone is the emotional-tone cue ("tense", "tender", "triumphant").
	Tone string `yaml:"tone" json:"tone"`

	// Characters lists present characters by canonical name, in frame
	// order. Non-physical entities are filtered out by the enricher, not
	// here.
	Characters []string `yaml:"characters" json:"characters"`

	// ShotSuggestion optionally pins the shot type; the enricher otherwise
	// derives one from the template.
	ShotSuggestion string `yaml:"shot,omitempty" json:"shot_suggestion,omitempty"`

	// Location is the resolved location reference.
	Location string `yaml:"location" json:"location"`

	// VehicleDescription is set when the beat frames a vehicle.
	VehicleDescription string `yaml:"vehicle,omitempty" json:"vehicle_description,omitempty"`
}
