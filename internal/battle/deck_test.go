package battle

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFullDeckComposition(t *testing.T) {
	for _, faction := range Factions {
		deck := GenerateFullDeck(faction, rand.New(rand.NewPCG(1, 2)))
		require.Equal(t, FullDeckSize, deck.Len())

		ranks := make(map[Rank]int)
		councils := make(map[Council]int)
		ids := make(map[string]bool)
		for _, c := range deck.Peek() {
			assert.Equal(t, faction, c.Faction)
			assert.Zero(t, c.Tier)
			ranks[c.Rank]++
			councils[c.Council]++
			ids[c.ID] = true
		}
		require.Len(t, ranks, len(Ranks))
		for _, r := range Ranks {
			assert.Equal(t, 4, ranks[r], "rank %s", r)
		}
		for _, c := range Councils {
			assert.Equal(t, len(Ranks), councils[c], "council %s", c)
		}
		assert.Len(t, ids, FullDeckSize, "every card has its own identity")
	}
}

func TestGenerateFullDeckSeeded(t *testing.T) {
	a := GenerateFullDeck(FactionSpades, rand.New(rand.NewPCG(42, 42)))
	b := GenerateFullDeck(FactionSpades, rand.New(rand.NewPCG(42, 42)))

	ra, rb := a.Peek(), b.Peek()
	for i := range ra {
		require.Equal(t, ra[i].Rank, rb[i].Rank)
		require.Equal(t, ra[i].Council, rb[i].Council)
	}
}

func TestDeckDraw(t *testing.T) {
	deck := NewDeck(cardsOf(RankTwo, RankThree, RankFour, RankFive))

	first := deck.Draw(3)
	require.Len(t, first, 3)
	assert.Equal(t, RankTwo, first[0].Rank)
	assert.Equal(t, 1, deck.Len())
	assert.Equal(t, 3, deck.Drawn())

	snapshot := append([]Card(nil), first...)
	rest := deck.Draw(5)
	assert.Len(t, rest, 1, "a short deck returns what remains")
	assert.Equal(t, snapshot, first, "earlier draws are not mutated")

	assert.Empty(t, deck.Draw(2))
	assert.Empty(t, deck.Draw(0))
	assert.Empty(t, deck.Draw(-1))
	assert.Equal(t, 4, deck.Drawn())
}

func TestNewDeckCopiesInput(t *testing.T) {
	src := cardsOf(RankAce, RankKing)
	deck := NewDeck(src)
	src[0] = card(RankTwo)

	assert.Equal(t, RankAce, deck.Peek()[0].Rank)
}

func TestDefaultQuotaFitsLanes(t *testing.T) {
	rules := DefaultRules()
	require.NoError(t, rules.Validate())

	total := 0
	for hand := 0; hand < rules.TotalRounds/rules.RoundsPerHand; hand++ {
		perHand := 0
		for r := 1; r <= rules.RoundsPerHand; r++ {
			perHand += rules.QuotaFor(hand*rules.RoundsPerHand + r)
		}
		assert.LessOrEqual(t, perHand, RowCapacity*len(Lanes))
		total += perHand
	}
	assert.LessOrEqual(t, total, FullDeckSize)
	assert.Zero(t, rules.QuotaFor(0))
	assert.Zero(t, rules.QuotaFor(13))
}

func TestRulesValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Rules)
	}{
		{"non-positive hp", func(r *Rules) { r.StartingHP = 0 }},
		{"quota length mismatch", func(r *Rules) { r.CardsPerRound = r.CardsPerRound[:3] }},
		{"negative quota", func(r *Rules) { r.CardsPerRound[2] = -1 }},
		{"zero divisor", func(r *Rules) { r.Combat.DamageDivisor = 0 }},
		{"zero destroy step", func(r *Rules) { r.Combat.DestroyStep = 0 }},
		{"shield over 100", func(r *Rules) { r.Combat.ShieldPercent[LaneBack] = 150 }},
		{"zero rounds per hand", func(r *Rules) { r.RoundsPerHand = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultRules()
			tt.mutate(&rules)
			assert.Error(t, rules.Validate())
		})
	}
}
