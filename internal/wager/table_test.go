package wager

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/deckrealms/lanebattle/internal/battle"
)

func aceDeck() []battle.Card {
	deck := make([]battle.Card, 5)
	for i := range deck {
		deck[i] = battle.NewCard(battle.FactionHearts, battle.RankAce, battle.CouncilNorth, 0)
	}
	return deck
}

func newTable(t *testing.T, params Params, deck []battle.Card, chips int64) (*Table, *Purse) {
	t.Helper()
	purse := NewPurse(chips)
	table, err := NewTable(params, battle.FactionHearts, deck, purse, rand.New(rand.NewPCG(21, 12)), zaptest.NewLogger(t))
	require.NoError(t, err)
	return table, purse
}

func TestNewTableRequiresDeck(t *testing.T) {
	_, err := NewTable(DefaultParams(), battle.FactionClubs, nil, NewPurse(10), nil, nil)
	assert.ErrorIs(t, err, ErrEmptyDeck)
}

func TestAnte(t *testing.T) {
	table, purse := newTable(t, DefaultParams(), aceDeck(), 5000)

	_, err := table.Ante(999)
	assert.ErrorIs(t, err, ErrAnteTooLow)

	_, err = table.Ante(6000)
	assert.ErrorIs(t, err, ErrInsufficientChips)
	assert.Equal(t, PhaseSetup, table.Phase())

	act, err := table.Ante(1000)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), act.Pot)
	assert.Equal(t, int64(4000), purse.Balance())
	assert.Equal(t, PhaseBetting, table.Phase())

	_, err = table.Ante(1000)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestLargeRaiseAgainstWeakDeckFolds(t *testing.T) {
	table, purse := newTable(t, DefaultParams(), aceDeck(), 100000)
	_, err := table.Ante(1000)
	require.NoError(t, err)

	act, err := table.Raise(20000)
	require.NoError(t, err)
	require.NotNil(t, act.Reply)
	assert.Equal(t, ActionFold, act.Reply.Kind)
	assert.Equal(t, PhaseFinished, table.Phase())
	assert.Equal(t, battle.SidePlayer, table.Winner())
	assert.Equal(t, int64(101000), purse.Balance())
}

func TestSmallRaiseIsCalled(t *testing.T) {
	table, purse := newTable(t, DefaultParams(), aceDeck(), 100000)
	_, err := table.Ante(1000)
	require.NoError(t, err)

	act, err := table.Raise(5000)
	require.NoError(t, err)
	require.NotNil(t, act.Reply)
	assert.Equal(t, ActionCall, act.Reply.Kind)
	assert.Equal(t, int64(5000), act.Reply.Amount)
	assert.Equal(t, int64(12000), table.Pot())
	assert.Equal(t, PhasePlaying, table.Phase())

	_, err = table.Call()
	assert.ErrorIs(t, err, ErrWrongPhase)

	res, err := table.Showdown()
	require.NoError(t, err)
	assert.Len(t, res.Hands, 3)
	assert.Equal(t, battle.SidePlayer, res.Winner, "five aces of one council beat any synthetic hand")
	assert.Equal(t, 3, res.PlayerWins)
	assert.Equal(t, int64(1200), res.XPGained)
	assert.Equal(t, int64(94000+12000), purse.Balance())
	assert.Len(t, res.UsedCardIDs, 5)
	assert.Equal(t, 1070, res.Hands[0].PlayerStrength)
}

func TestRaiseLimits(t *testing.T) {
	table, _ := newTable(t, DefaultParams(), aceDeck(), 100000)
	_, err := table.Raise(100)
	assert.ErrorIs(t, err, ErrWrongPhase)

	_, err = table.Ante(1000)
	require.NoError(t, err)
	_, err = table.Raise(60000)
	assert.ErrorIs(t, err, ErrRaiseTooHigh)
	_, err = table.Raise(0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = table.Call()
	assert.ErrorIs(t, err, ErrNothingToCall)
}

func TestEnemyReRaise(t *testing.T) {
	params := DefaultParams()
	params.FoldRaiseThreshold = params.MaxRaise
	params.RaiseAggression = 0
	params.RaiseQualityThreshold = 0
	table, purse := newTable(t, params, aceDeck(), 100000)

	_, err := table.Ante(1000)
	require.NoError(t, err)
	act, err := table.Raise(4000)
	require.NoError(t, err)
	require.Equal(t, ActionRaise, act.Reply.Kind)
	assert.GreaterOrEqual(t, act.Reply.Amount, int64(2000))
	assert.Less(t, act.Reply.Amount, int64(8000))
	assert.Equal(t, PhaseBetting, table.Phase())

	player, enemy := table.Bets()
	assert.Equal(t, player+act.Reply.Amount, enemy)

	call, err := table.Call()
	require.NoError(t, err)
	assert.Equal(t, act.Reply.Amount, call.Amount)
	assert.Equal(t, PhasePlaying, table.Phase())

	player, enemy = table.Bets()
	assert.Equal(t, player, enemy)
	assert.Equal(t, player+enemy, table.Pot())
	assert.Equal(t, 100000-player, purse.Balance())
}

func TestEnemyReRaiseOfSmallRaiseCanBeCalled(t *testing.T) {
	params := DefaultParams()
	params.RaiseAggression = 0
	params.RaiseQualityThreshold = 0
	params.RaiseMinFactor = 0.5
	params.RaiseMaxFactor = 0.5
	table, _ := newTable(t, params, aceDeck(), 100000)

	_, err := table.Ante(1000)
	require.NoError(t, err)
	act, err := table.Raise(1)
	require.NoError(t, err)
	require.Equal(t, ActionRaise, act.Reply.Kind)
	assert.Equal(t, int64(1), act.Reply.Amount)

	call, err := table.Call()
	require.NoError(t, err)
	assert.Equal(t, int64(1), call.Amount)
	assert.Equal(t, PhasePlaying, table.Phase())
}

func TestAllIn(t *testing.T) {
	table, purse := newTable(t, DefaultParams(), aceDeck(), 30000)
	_, err := table.Ante(1000)
	require.NoError(t, err)

	act, err := table.AllIn()
	require.NoError(t, err)
	assert.Equal(t, int64(29000), act.Amount)
	require.NotNil(t, act.Reply)

	switch act.Reply.Kind {
	case ActionCall:
		assert.Equal(t, PhasePlaying, table.Phase())
		assert.Equal(t, int64(60000), table.Pot())
		assert.Zero(t, purse.Balance())
	case ActionFold:
		assert.Equal(t, PhaseFinished, table.Phase())
		assert.Equal(t, int64(31000), purse.Balance())
	default:
		t.Fatalf("unexpected enemy reply %s", act.Reply.Kind)
	}
}

func TestFold(t *testing.T) {
	table, purse := newTable(t, DefaultParams(), aceDeck(), 10000)
	_, err := table.Ante(2000)
	require.NoError(t, err)

	act, err := table.Fold()
	require.NoError(t, err)
	assert.Equal(t, int64(4000), act.Amount)
	assert.Equal(t, battle.SideEnemy, table.Winner())
	assert.Equal(t, int64(8000), purse.Balance())

	_, err = table.Showdown()
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestDeckQuality(t *testing.T) {
	full := battle.GenerateFullDeck(battle.FactionSpades, nil).Peek()
	assert.InDelta(t, (8.0/20+1)/3, DeckQuality(full), 1e-9)
	assert.Zero(t, DeckQuality(nil))

	promoted := []battle.Card{battle.NewCard(battle.FactionSpades, battle.RankTen, battle.CouncilNone, 5)}
	want := (20.0/20 + 10.0/100 + 1.0/52) / 3
	assert.InDelta(t, want, DeckQuality(promoted), 1e-9)
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.RaiseMaxFactor = 0.1
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.FoldQualityThreshold = 1.5
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.MaxRaise = 10
	assert.Error(t, p.Validate())
}
