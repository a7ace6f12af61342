package battle

// Stats accumulates one side's combat statistics over a battle.
type Stats struct {
	HandsFormed      map[HandCategory]int
	TotalHandsFormed int
	BestHand         HandCategory
	HasBestHand      bool
	DamageDealt      int
	DamageTaken      int
	CardsDestroyed   int
	CardsLost        int
}

func newStats() Stats {
	return Stats{HandsFormed: make(map[HandCategory]int)}
}

func (s *Stats) recordHand(category HandCategory) {
	if s.HandsFormed == nil {
		s.HandsFormed = make(map[HandCategory]int)
	}
	s.HandsFormed[category]++
	s.TotalHandsFormed++
	if !s.HasBestHand || category.Beats(s.BestHand) {
		s.BestHand = category
		s.HasBestHand = true
	}
}

// Clone returns a deep copy.
func (s Stats) Clone() Stats {
	out := s
	out.HandsFormed = make(map[HandCategory]int, len(s.HandsFormed))
	for k, v := range s.HandsFormed {
		out.HandsFormed[k] = v
	}
	return out
}

// StatsTracker derives both sides' stats from combat results. It trusts its
// input and performs no validation of its own.
type StatsTracker struct {
	player Stats
	enemy  Stats
}

// NewStatsTracker returns an empty tracker.
func NewStatsTracker() *StatsTracker {
	return &StatsTracker{player: newStats(), enemy: newStats()}
}

// Reset clears both sides.
func (t *StatsTracker) Reset() {
	t.player = newStats()
	t.enemy = newStats()
}

// For returns a copy of side's stats.
func (t *StatsTracker) For(side Side) Stats {
	if side == SideEnemy {
		return t.enemy.Clone()
	}
	return t.player.Clone()
}

// Record folds one round's combat result into the stats. Rows that held no
// cards do not count as a formed hand.
func (t *StatsTracker) Record(result CombatResult) {
	t.player.DamageTaken += result.NetPlayerDamage
	t.player.DamageDealt += result.NetEnemyDamage
	t.enemy.DamageTaken += result.NetEnemyDamage
	t.enemy.DamageDealt += result.NetPlayerDamage

	for _, lr := range result.Lanes {
		destroyed := len(lr.DestructionTargets)
		switch lr.Winner {
		case SidePlayer:
			t.player.CardsDestroyed += destroyed
			t.enemy.CardsLost += destroyed
		case SideEnemy:
			t.enemy.CardsDestroyed += destroyed
			t.player.CardsLost += destroyed
		}

		if !lr.Player.Empty() {
			t.player.recordHand(lr.Player.Category)
		}
		if !lr.Enemy.Empty() {
			t.enemy.recordHand(lr.Enemy.Category)
		}
	}
}
