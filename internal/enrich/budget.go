package enrich

import (
	"shotsmith/internal/vbs"
)

// BudgetPolicy computes the adaptive token budget for a beat. Base values
// are keyed by shot type; tighter framings carry less environment text.
// All figures are calibrated against the chars/4 token estimate.
type BudgetPolicy struct {
	// Base tokens by shot type; DefaultBase covers unknown types.
	Base        map[string]int `yaml:"base"`
	DefaultBase int            `yaml:"default_base"`

	// PerSubject is added for every subject in frame.
	PerSubject int `yaml:"per_subject"`

	// SealedDiscount is subtracted per fully-sealed subject: no hair, no
	// expression, less text needed.
	SealedDiscount int `yaml:"sealed_discount"`

	// VehicleBonus is added when a vehicle is in frame.
	VehicleBonus int `yaml:"vehicle_bonus"`

	// CompositionReserve is always set aside for the shot line, which
	// lands earliest in downstream attention.
	CompositionReserve int `yaml:"composition_reserve"`

	// MarkupReserve covers the trailing markup block, excluded from the
	// narrative share.
	MarkupReserve int `yaml:"markup_reserve"`

	// Floor is the minimum total regardless of discounts.
	Floor int `yaml:"floor"`
}

// DefaultBudgetPolicy returns the calibrated table.
func DefaultBudgetPolicy() BudgetPolicy {
	return BudgetPolicy{
		Base: map[string]int{
			"close-up":    55,
			"medium shot": 70,
			"wide shot":   85,
		},
		DefaultBase:        70,
		PerSubject:         40,
		SealedDiscount:     12,
		VehicleBonus:       25,
		CompositionReserve: 20,
		MarkupReserve:      16,
		Floor:              60,
	}
}

// Compute derives the budget breakdown for an enriched (pre-fill) VBS.
func (p BudgetPolicy) Compute(v *vbs.VBS) vbs.TokenBudget {
	base, ok := p.Base[v.Shot.Type]
	if !ok {
		base = p.DefaultBase
	}

	total := base + p.PerSubject*len(v.Subjects)
	for _, s := range v.Subjects {
		if s.Headgear == vbs.HeadgearSealed {
			total -= p.SealedDiscount
		}
	}
	if v.Vehicle != nil {
		total += p.VehicleBonus
	}
	total += p.CompositionReserve + p.MarkupReserve
	if total < p.Floor {
		total = p.Floor
	}

	return vbs.TokenBudget{
		Total:       total,
		Composition: p.CompositionReserve,
		Markup:      p.MarkupReserve,
	}
}
