package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLaneEmptyDefender(t *testing.T) {
	lr := ResolveLane(LaneFront, cardsOf(RankFive), nil, DefaultCombatRules())

	assert.Equal(t, SidePlayer, lr.Winner)
	assert.Equal(t, SideEnemy, lr.Loser())
	assert.Equal(t, 5, lr.Margin)
	assert.Equal(t, 1, lr.RawDamage)
	assert.Equal(t, 0, lr.Shield)
	assert.Equal(t, 1, lr.NetDamage)
	assert.Empty(t, lr.DestructionTargets)
}

func TestResolveLaneTie(t *testing.T) {
	lr := ResolveLane(LaneMid, cardsOf(RankKing), cardsOf(RankKing), DefaultCombatRules())

	assert.Equal(t, SideNone, lr.Winner)
	assert.Equal(t, SideNone, lr.Loser())
	assert.Zero(t, lr.RawDamage)
	assert.Zero(t, lr.NetDamage)
	assert.Empty(t, lr.DestructionTargets)
}

func TestResolveLaneDamageAndDestruction(t *testing.T) {
	player := cardsOf(RankAce, RankAce, RankAce, RankKing, RankKing)
	enemy := cardsOf(RankTwo, RankThree)

	lr := ResolveLane(LaneFront, player, enemy, DefaultCombatRules())

	require.Equal(t, SidePlayer, lr.Winner)
	assert.Equal(t, 363, lr.Margin)
	assert.Equal(t, 73, lr.RawDamage)
	assert.Equal(t, 0, lr.Shield)
	assert.Equal(t, 73, lr.NetDamage)
	assert.Equal(t, []int{0, 1}, lr.DestructionTargets)
}

func TestResolveLaneBackShield(t *testing.T) {
	player := cardsOf(RankAce, RankAce)
	enemy := cardsOf(RankKing, RankQueen)

	lr := ResolveLane(LaneBack, player, enemy, DefaultCombatRules())

	require.Equal(t, SidePlayer, lr.Winner)
	assert.Equal(t, 53, lr.Margin)
	assert.Equal(t, 11, lr.RawDamage)
	assert.Equal(t, 7, lr.Shield)
	assert.Equal(t, 4, lr.NetDamage)
	assert.Equal(t, []int{1}, lr.DestructionTargets, "the queen is the weakest card")
}

func TestResolveLaneShieldNeverGoesNegative(t *testing.T) {
	player := cardsOf(RankTen, RankTen)
	enemy := cardsOf(RankAce, RankKing, RankQueen, RankJack, RankNine)

	lr := ResolveLane(LaneMid, player, enemy, DefaultCombatRules())

	require.Equal(t, SidePlayer, lr.Winner)
	assert.Equal(t, 3, lr.RawDamage)
	assert.Equal(t, 11, lr.Shield)
	assert.Equal(t, 0, lr.NetDamage)
}

func TestDestructionTargetsPreferLowerIndexOnTies(t *testing.T) {
	enemy := []Card{
		card(RankKing),
		card(RankSeven),
		NewCard(FactionHearts, RankTwo, CouncilNone, 1),
		card(RankSix),
	}
	lr := ResolveLane(LaneFront, cardsOf(RankAce, RankAce, RankQueen, RankQueen), enemy, DefaultCombatRules())

	require.Equal(t, SidePlayer, lr.Winner)
	require.Equal(t, 119, lr.Margin)
	assert.Equal(t, []int{1, 3}, lr.DestructionTargets)
}

func TestResolveCombatAggregatesLanes(t *testing.T) {
	var player, enemy Rows
	player.Get(LaneFront).Reset(cardsOf(RankFive))
	enemy.Get(LaneMid).Reset(cardsOf(RankKing))
	player.Get(LaneBack).Reset(cardsOf(RankSeven))
	enemy.Get(LaneBack).Reset(cardsOf(RankSeven))

	result := ResolveCombat(&player, &enemy, DefaultCombatRules())

	assert.Equal(t, SidePlayer, result.Lanes[LaneFront].Winner)
	assert.Equal(t, SideEnemy, result.Lanes[LaneMid].Winner)
	assert.Equal(t, SideNone, result.Lanes[LaneBack].Winner)
	assert.Equal(t, 1, result.NetEnemyDamage)
	assert.Equal(t, 3, result.NetPlayerDamage)
	assert.Equal(t, 3, result.NetDamageTo(SidePlayer))
	assert.Equal(t, 0, result.DestroyedFrom(SidePlayer))

	assert.Equal(t, 1, player.Get(LaneFront).Count(), "resolution must not mutate rows")
	assert.Equal(t, 1, enemy.Get(LaneMid).Count())
}

func TestResolveCombatNeverNegative(t *testing.T) {
	deck := GenerateFullDeck(FactionHearts, nil)
	all := deck.Peek()

	for i := 0; i < 20; i++ {
		var player, enemy Rows
		for j, lane := range Lanes {
			player.Get(lane).Reset(all[i+j : i+j+1+j])
			enemy.Get(lane).Reset(all[20+i : 20+i+1+i%4])
		}
		result := ResolveCombat(&player, &enemy, DefaultCombatRules())
		assert.GreaterOrEqual(t, result.NetPlayerDamage, 0)
		assert.GreaterOrEqual(t, result.NetEnemyDamage, 0)
		perLane := map[Side]int{}
		for _, lr := range result.Lanes {
			perLane[lr.Winner.Opponent()] += lr.NetDamage
			assert.GreaterOrEqual(t, lr.NetDamage, 0)
			if lr.Winner == SideNone {
				assert.Zero(t, lr.NetDamage)
				assert.Empty(t, lr.DestructionTargets)
			}
		}
		assert.Equal(t, perLane[SideEnemy], result.NetEnemyDamage, "shields only absorb damage in their own lane")
		assert.Equal(t, perLane[SidePlayer], result.NetPlayerDamage)
	}
}

func TestApplyDestruction(t *testing.T) {
	cards := cardsOf(RankTwo, RankThree, RankFour, RankFive, RankSix)

	out := ApplyDestruction(cards, []int{1, 3})
	require.Len(t, out, len(cards)-2)
	assert.Equal(t, []Rank{RankTwo, RankFour, RankSix}, []Rank{out[0].Rank, out[1].Rank, out[2].Rank})

	assert.Len(t, ApplyDestruction(cards, nil), len(cards))
	assert.Len(t, ApplyDestruction(cards, []int{0, 0, 9, -1}), len(cards)-1)
	assert.Len(t, cards, 5, "input is left untouched")
}
