// Package config loads the shotsmith workspace configuration from YAML
// with environment-variable overrides for deployment-sensitive values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"shotsmith/internal/enrich"
	"shotsmith/internal/llm"
	"shotsmith/internal/logging"
)

// DefaultFileName is looked up in the workspace root when no explicit
// path is given.
const DefaultFileName = "shotsmith.yaml"

// LLMConfig selects and parameterizes the slot-fill model provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "gemini" (default) or "openai"
	APIKey   string `yaml:"api_key"`  // prefer the env var over this
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`

	// TimeoutSeconds bounds one slot-fill call before the deterministic
	// fallback takes over. Zero means the built-in default.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// Disabled skips the model entirely and always uses the fallback.
	Disabled bool `yaml:"disabled"`
}

// Provider converts to the llm factory's config.
func (c LLMConfig) ProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider: c.Provider,
		APIKey:   c.APIKey,
		Model:    c.Model,
		BaseURL:  c.BaseURL,
	}
}

// Config is the full workspace configuration.
type Config struct {
	// RefData is the path to the reference-data YAML library.
	RefData string `yaml:"refdata"`

	// WatchRefData reloads the library when the file changes on disk.
	WatchRefData bool `yaml:"watch_refdata"`

	// AuditDB is the SQLite path for the beat-run audit trail; empty
	// disables auditing.
	AuditDB string `yaml:"audit_db"`

	// Strict fails scene runs on unresolved issues instead of flagging
	// them for review.
	Strict bool `yaml:"strict"`

	// SceneConcurrency caps parallel scene runs; zero means unbounded.
	SceneConcurrency int `yaml:"scene_concurrency"`

	LLM     LLMConfig          `yaml:"llm"`
	Budget  enrich.BudgetPolicy `yaml:"budget"`
	Logging logging.Options     `yaml:"logging"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		RefData:          "refdata.yaml",
		SceneConcurrency: 4,
		Budget:           enrich.DefaultBudgetPolicy(),
		Logging:          logging.Options{Level: "info"},
	}
}

// Load reads the config at path, or the workspace default when path is
// empty. A missing default file is not an error; it yields Default().
// Environment overrides are applied last.
func Load(workspace, path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = filepath.Join(workspace, DefaultFileName)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		fillBudgetDefaults(&cfg.Budget)
	case os.IsNotExist(err) && !explicit:
		// Fine, run on defaults.
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if !filepath.IsAbs(cfg.RefData) {
		cfg.RefData = filepath.Join(workspace, cfg.RefData)
	}
	if cfg.AuditDB != "" && !filepath.IsAbs(cfg.AuditDB) {
		cfg.AuditDB = filepath.Join(workspace, cfg.AuditDB)
	}
	return cfg, nil
}

// fillBudgetDefaults backfills zero-valued budget fields after a partial
// YAML override so a config that only tunes one knob keeps the rest of
// the calibrated table.
func fillBudgetDefaults(p *enrich.BudgetPolicy) {
	def := enrich.DefaultBudgetPolicy()
	if p.Base == nil {
		p.Base = def.Base
	}
	if p.DefaultBase == 0 {
		p.DefaultBase = def.DefaultBase
	}
	if p.PerSubject == 0 {
		p.PerSubject = def.PerSubject
	}
	if p.SealedDiscount == 0 {
		p.SealedDiscount = def.SealedDiscount
	}
	if p.VehicleBonus == 0 {
		p.VehicleBonus = def.VehicleBonus
	}
	if p.CompositionReserve == 0 {
		p.CompositionReserve = def.CompositionReserve
	}
	if p.MarkupReserve == 0 {
		p.MarkupReserve = def.MarkupReserve
	}
	if p.Floor == 0 {
		p.Floor = def.Floor
	}
}

// applyEnv layers SHOTSMITH_* environment overrides on top of the file.
// Provider API keys are resolved later by the llm factory from their
// conventional variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SHOTSMITH_REFDATA"); v != "" {
		cfg.RefData = v
	}
	if v := os.Getenv("SHOTSMITH_AUDIT_DB"); v != "" {
		cfg.AuditDB = v
	}
	if v := os.Getenv("SHOTSMITH_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("SHOTSMITH_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SHOTSMITH_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("SHOTSMITH_STRICT"); v != "" {
		cfg.Strict, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("SHOTSMITH_DEBUG"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil && on {
			cfg.Logging.Debug = true
			cfg.Logging.Level = "debug"
		}
	}
}
