package battle

import (
	"sort"
)

// LaneResult is the outcome of one lane pairing.
type LaneResult struct {
	Lane   Lane
	Player Evaluation
	Enemy  Evaluation
	// Winner is the attacking side, or SideNone on equal scores.
	Winner Side
	Margin int
	// RawDamage is dealt by the winner before the loser's shield.
	RawDamage int
	Shield    int
	NetDamage int
	// DestructionTargets index the loser's row cards in slot order, ascending.
	DestructionTargets []int
}

// Loser returns the defending side, or SideNone on a tie.
func (r LaneResult) Loser() Side {
	return r.Winner.Opponent()
}

// EvaluationFor returns the evaluation of side's row.
func (r LaneResult) EvaluationFor(side Side) Evaluation {
	if side == SideEnemy {
		return r.Enemy
	}
	return r.Player
}

// CombatResult aggregates the three lane results of a round.
type CombatResult struct {
	Lanes [3]LaneResult
	// Raw damage and shield per receiving side, summed across lanes.
	PlayerDamage int
	PlayerShield int
	EnemyDamage  int
	EnemyShield  int
	// Net damage per receiving side, each lane floored at zero before summing.
	NetPlayerDamage int
	NetEnemyDamage  int
}

// NetDamageTo returns the total net damage side receives.
func (c CombatResult) NetDamageTo(side Side) int {
	if side == SideEnemy {
		return c.NetEnemyDamage
	}
	return c.NetPlayerDamage
}

// DestroyedFrom returns the number of cards side loses this round.
func (c CombatResult) DestroyedFrom(side Side) int {
	n := 0
	for _, lr := range c.Lanes {
		if lr.Loser() == side {
			n += len(lr.DestructionTargets)
		}
	}
	return n
}

// ResolveLane compares the two rows of one lane.
func ResolveLane(lane Lane, player, enemy []Card, rules CombatRules) LaneResult {
	result := LaneResult{
		Lane:   lane,
		Player: EvaluateLane(player),
		Enemy:  EvaluateLane(enemy),
		Winner: SideNone,
	}

	var loserCards []Card
	var loserEval Evaluation
	switch {
	case result.Player.Score > result.Enemy.Score:
		result.Winner = SidePlayer
		result.Margin = result.Player.Score - result.Enemy.Score
		loserCards, loserEval = enemy, result.Enemy
	case result.Enemy.Score > result.Player.Score:
		result.Winner = SideEnemy
		result.Margin = result.Enemy.Score - result.Player.Score
		loserCards, loserEval = player, result.Player
	default:
		return result
	}

	result.RawDamage = marginDamage(result.Margin, rules.DamageDivisor)
	result.Shield = loserEval.Score * rules.ShieldPercent[lane] / 100
	result.NetDamage = max(0, result.RawDamage-result.Shield)
	result.DestructionTargets = destructionTargets(loserCards, result.Margin, rules.DestroyStep)
	return result
}

// ResolveCombat resolves every lane pairing between two sides' rows. It does
// not mutate either side.
func ResolveCombat(player, enemy *Rows, rules CombatRules) CombatResult {
	var out CombatResult
	for _, lane := range Lanes {
		lr := ResolveLane(lane, player.Get(lane).Cards(), enemy.Get(lane).Cards(), rules)
		out.Lanes[lane] = lr
		switch lr.Winner {
		case SidePlayer:
			out.EnemyDamage += lr.RawDamage
			out.EnemyShield += lr.Shield
			out.NetEnemyDamage += lr.NetDamage
		case SideEnemy:
			out.PlayerDamage += lr.RawDamage
			out.PlayerShield += lr.Shield
			out.NetPlayerDamage += lr.NetDamage
		}
	}
	return out
}

// ApplyDestruction returns cards without the entries at targets, preserving the
// order of the survivors. Out-of-range and duplicate targets are ignored.
func ApplyDestruction(cards []Card, targets []int) []Card {
	if len(targets) == 0 {
		return append([]Card(nil), cards...)
	}
	doomed := make(map[int]bool, len(targets))
	for _, t := range targets {
		if t >= 0 && t < len(cards) {
			doomed[t] = true
		}
	}
	out := make([]Card, 0, len(cards)-len(doomed))
	for i, c := range cards {
		if !doomed[i] {
			out = append(out, c)
		}
	}
	return out
}

func marginDamage(margin, divisor int) int {
	if margin <= 0 {
		return 0
	}
	if divisor <= 0 {
		divisor = 1
	}
	return (margin + divisor - 1) / divisor
}

// destructionTargets picks the weakest loser cards, one per full step of margin.
func destructionTargets(loser []Card, margin, step int) []int {
	if len(loser) == 0 || margin <= 0 || step <= 0 {
		return nil
	}
	n := min(margin/step, len(loser))
	if n == 0 {
		return nil
	}

	order := make([]int, len(loser))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := loser[order[a]], loser[order[b]]
		return ca.Value()+ca.ScoreBonus() < cb.Value()+cb.ScoreBonus()
	})

	targets := append([]int(nil), order[:n]...)
	sort.Ints(targets)
	return targets
}
