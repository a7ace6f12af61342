package wager

import "fmt"

// Params holds the betting limits and the enemy's response heuristics. The
// heuristic values carry no derivation; they are tuning knobs.
type Params struct {
	MinAnte  int64
	MaxRaise int64
	// Hands is the number of showdown hands; HandSize the cards per hand.
	Hands    int
	HandSize int

	// The enemy folds to a raise above FoldRaiseThreshold while its deck
	// quality is below FoldQualityThreshold.
	FoldRaiseThreshold   int64
	FoldQualityThreshold float64
	// The enemy re-raises when a uniform draw exceeds RaiseAggression and its
	// deck quality exceeds RaiseQualityThreshold. The re-raise is the player's
	// raise scaled by a uniform factor in [RaiseMinFactor, RaiseMaxFactor).
	RaiseAggression       float64
	RaiseQualityThreshold float64
	RaiseMinFactor        float64
	RaiseMaxFactor        float64
	// The enemy calls an all-in with probability quality*AllInCallFactor.
	AllInCallFactor float64
}

// DefaultParams returns the stock table limits.
func DefaultParams() Params {
	return Params{
		MinAnte:               1000,
		MaxRaise:              50000,
		Hands:                 3,
		HandSize:              5,
		FoldRaiseThreshold:    10000,
		FoldQualityThreshold:  0.6,
		RaiseAggression:       0.7,
		RaiseQualityThreshold: 0.7,
		RaiseMinFactor:        0.5,
		RaiseMaxFactor:        2.0,
		AllInCallFactor:       0.8,
	}
}

// Validate checks the parameters for consistency.
func (p Params) Validate() error {
	if p.MinAnte <= 0 {
		return fmt.Errorf("min ante must be positive, got %d", p.MinAnte)
	}
	if p.MaxRaise < p.MinAnte {
		return fmt.Errorf("max raise %d is below min ante %d", p.MaxRaise, p.MinAnte)
	}
	if p.Hands <= 0 {
		return fmt.Errorf("hands must be positive, got %d", p.Hands)
	}
	if p.HandSize <= 0 {
		return fmt.Errorf("hand size must be positive, got %d", p.HandSize)
	}
	if p.RaiseMaxFactor < p.RaiseMinFactor || p.RaiseMinFactor < 0 {
		return fmt.Errorf("raise factors must satisfy 0 <= min <= max, got %.2f..%.2f", p.RaiseMinFactor, p.RaiseMaxFactor)
	}
	for name, v := range map[string]float64{
		"fold quality threshold":  p.FoldQualityThreshold,
		"raise aggression":        p.RaiseAggression,
		"raise quality threshold": p.RaiseQualityThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within 0..1, got %.2f", name, v)
		}
	}
	if p.AllInCallFactor < 0 {
		return fmt.Errorf("all-in call factor must not be negative, got %.2f", p.AllInCallFactor)
	}
	return nil
}
