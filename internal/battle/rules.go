package battle

import (
	"fmt"
)

// DefaultCardsPerRound is the draw quota of each of the twelve rounds. Each
// hand of four rounds deals 13 cards per side, which always fits the 30 lane
// slots and leaves 13 cards of a synthetic deck undrawn.
var DefaultCardsPerRound = []int{5, 3, 3, 2, 5, 3, 3, 2, 5, 3, 3, 2}

// CombatRules parameterizes the damage, shield and destruction math.
type CombatRules struct {
	// DamageDivisor converts a score margin into raw damage: ceil(margin / divisor).
	DamageDivisor int
	// DestroyStep is the margin needed per destroyed card.
	DestroyStep int
	// ShieldPercent is the share of the losing row's score absorbed, per lane.
	ShieldPercent map[Lane]int
}

// DefaultCombatRules returns the standard combat math.
func DefaultCombatRules() CombatRules {
	return CombatRules{
		DamageDivisor: 5,
		DestroyStep:   40,
		ShieldPercent: map[Lane]int{
			LaneFront: 10,
			LaneMid:   20,
			LaneBack:  30,
		},
	}
}

// Rules configures a battle.
type Rules struct {
	StartingHP    int
	TotalRounds   int
	RoundsPerHand int
	CardsPerRound []int
	Combat        CombatRules
}

// DefaultRules returns the standard twelve-round battle.
func DefaultRules() Rules {
	return Rules{
		StartingHP:    100,
		TotalRounds:   12,
		RoundsPerHand: 4,
		CardsPerRound: append([]int(nil), DefaultCardsPerRound...),
		Combat:        DefaultCombatRules(),
	}
}

// Validate checks the rules for internal consistency.
func (r Rules) Validate() error {
	if r.StartingHP <= 0 {
		return fmt.Errorf("starting hp must be positive, got %d", r.StartingHP)
	}
	if r.TotalRounds <= 0 {
		return fmt.Errorf("total rounds must be positive, got %d", r.TotalRounds)
	}
	if r.RoundsPerHand <= 0 {
		return fmt.Errorf("rounds per hand must be positive, got %d", r.RoundsPerHand)
	}
	if len(r.CardsPerRound) != r.TotalRounds {
		return fmt.Errorf("cards per round has %d entries, want %d", len(r.CardsPerRound), r.TotalRounds)
	}
	for i, n := range r.CardsPerRound {
		if n < 0 {
			return fmt.Errorf("round %d draws a negative card count", i+1)
		}
	}
	if r.Combat.DamageDivisor <= 0 {
		return fmt.Errorf("damage divisor must be positive, got %d", r.Combat.DamageDivisor)
	}
	if r.Combat.DestroyStep <= 0 {
		return fmt.Errorf("destroy step must be positive, got %d", r.Combat.DestroyStep)
	}
	for _, l := range Lanes {
		p := r.Combat.ShieldPercent[l]
		if p < 0 || p > 100 {
			return fmt.Errorf("%s shield percent must be within 0..100, got %d", l, p)
		}
	}
	return nil
}

// QuotaFor returns the draw quota of a 1-based round, or 0 when undefined.
func (r Rules) QuotaFor(round int) int {
	if round < 1 || round > len(r.CardsPerRound) {
		return 0
	}
	return r.CardsPerRound[round-1]
}
