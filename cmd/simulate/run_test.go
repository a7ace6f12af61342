package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/deckrealms/lanebattle/internal/battle"
	"github.com/deckrealms/lanebattle/internal/wager"
)

func TestSimulateBattleIsDeterministic(t *testing.T) {
	setup := battleSetup{
		Rules:          battle.DefaultRules(),
		Seed:           11,
		PlayerStrategy: "greedy",
		EnemyStrategy:  "random",
		Logger:         zaptest.NewLogger(t),
	}
	first, err := simulateBattle(setup)
	require.NoError(t, err)
	second, err := simulateBattle(setup)
	require.NoError(t, err)

	assert.Equal(t, first.Checksum, second.Checksum)
	assert.Equal(t, first.Winner, second.Winner)
	assert.Contains(t, []string{"player", "enemy", "draw"}, first.Winner)
	assert.LessOrEqual(t, first.Rounds, 12)
	assert.Equal(t, battle.Factions[11%4].String(), first.PlayerFaction)
}

func TestSimulateBattleVerdictMatchesState(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		sum, err := simulateBattle(battleSetup{
			Rules:          battle.DefaultRules(),
			Seed:           seed,
			PlayerStrategy: "sequence",
			EnemyStrategy:  "greedy",
		})
		require.NoError(t, err)

		switch {
		case sum.PlayerHP <= 0 || sum.EnemyHP <= 0:
			assert.False(t, sum.ByPower, "seed %d", seed)
		default:
			assert.True(t, sum.ByPower, "seed %d", seed)
			assert.Equal(t, 12, sum.Rounds, "seed %d", seed)
		}
		assert.Equal(t, sum.PlayerStats.DamageDealt, sum.EnemyStats.DamageTaken)
	}
}

func TestSimulateBattleUnknownStrategy(t *testing.T) {
	_, err := simulateBattle(battleSetup{Rules: battle.DefaultRules(), Seed: 1, PlayerStrategy: "bluff"})
	assert.Error(t, err)
}

func TestSimulateWager(t *testing.T) {
	purse := wager.NewPurse(100000)
	sum, err := simulateWager(wager.DefaultParams(), 3, 5000, purse, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Contains(t, []string{"player", "enemy"}, sum.Winner)
	assert.Equal(t, purse.Balance(), sum.Bankroll)
	assert.Positive(t, sum.Pot)
	if sum.Reply != string(wager.ActionFold) {
		assert.Equal(t, 3, sum.PlayerWins+sum.EnemyWins)
	}
}
