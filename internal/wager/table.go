// Package wager implements the betting variant: both sides stake chips, then
// a best-of-N showdown of randomly drawn five-card hands settles the pot.
package wager

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/deckrealms/lanebattle/internal/battle"
)

var (
	ErrEmptyDeck         = errors.New("no cards in deck")
	ErrAnteTooLow        = errors.New("ante below minimum")
	ErrRaiseTooHigh      = errors.New("raise above maximum")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientChips = errors.New("insufficient chips")
	ErrNothingToCall     = errors.New("no bet to call")
	ErrWrongPhase        = errors.New("action not allowed in current phase")
)

// Phase is the betting table state.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseBetting
	PhasePlaying
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "SETUP"
	case PhaseBetting:
		return "BETTING"
	case PhasePlaying:
		return "PLAYING"
	case PhaseFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// ActionKind names a betting action.
type ActionKind string

const (
	ActionAnte  ActionKind = "ante"
	ActionRaise ActionKind = "raise"
	ActionCall  ActionKind = "call"
	ActionAllIn ActionKind = "all_in"
	ActionFold  ActionKind = "fold"
)

// Action is the outcome of a betting move, including the enemy's reply when
// the move asked for one.
type Action struct {
	Kind     ActionKind
	Amount   int64
	Pot      int64
	Bankroll int64
	Phase    Phase
	Message  string
	Reply    *Action
}

// HandResult is one showdown hand.
type HandResult struct {
	Number         int
	PlayerHand     []battle.Card
	EnemyHand      []battle.Card
	PlayerStrength int
	EnemyStrength  int
	Winner         battle.Side
	Margin         int
}

// Result settles the table.
type Result struct {
	Hands       []HandResult
	Winner      battle.Side
	PlayerWins  int
	EnemyWins   int
	Pot         int64
	Bankroll    int64
	XPGained    int64
	UsedCardIDs []string
}

// Table is one betting battle. It is not safe for concurrent use.
type Table struct {
	params   Params
	bankroll Bankroll
	rng      *rand.Rand
	logger   *zap.Logger

	phase        Phase
	pot          int64
	playerBet    int64
	enemyBet     int64
	playerAllIn  bool
	enemyAllIn   bool
	playerFolded bool
	enemyFolded  bool

	playerFaction battle.Faction
	enemyFaction  battle.Faction
	playerDeck    []battle.Card
	enemyDeck     []battle.Card
}

// NewTable seats the player with their built deck against a random faction.
func NewTable(params Params, faction battle.Faction, playerDeck []battle.Card, bankroll Bankroll, rng *rand.Rand, logger *zap.Logger) (*Table, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(playerDeck) == 0 {
		return nil, fmt.Errorf("%w: build a %s deck first", ErrEmptyDeck, faction)
	}
	if bankroll == nil {
		return nil, errors.New("bankroll is required")
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Table{
		params:        params,
		bankroll:      bankroll,
		rng:           rng,
		logger:        logger,
		playerFaction: faction,
		playerDeck:    append([]battle.Card(nil), playerDeck...),
	}
	t.enemyFaction = battle.Factions[rng.IntN(len(battle.Factions))]
	t.enemyDeck = battle.GenerateFullDeck(t.enemyFaction, rng).Peek()
	return t, nil
}

// Phase returns the current phase.
func (t *Table) Phase() Phase { return t.phase }

// Pot returns the chips at stake.
func (t *Table) Pot() int64 { return t.pot }

// Bets returns the player's and the enemy's committed chips.
func (t *Table) Bets() (player, enemy int64) { return t.playerBet, t.enemyBet }

// EnemyFaction returns the opponent's faction.
func (t *Table) EnemyFaction() battle.Faction { return t.enemyFaction }

// Ante opens the betting. The enemy matches the ante.
func (t *Table) Ante(amount int64) (Action, error) {
	if t.phase != PhaseSetup {
		return Action{}, fmt.Errorf("%w: ante in %s", ErrWrongPhase, t.phase)
	}
	if amount < t.params.MinAnte {
		return Action{}, fmt.Errorf("%w: minimum ante is %d chips", ErrAnteTooLow, t.params.MinAnte)
	}
	if err := t.bankroll.Debit(amount); err != nil {
		return Action{}, err
	}

	t.playerBet = amount
	t.enemyBet = amount
	t.pot = amount * 2
	t.phase = PhaseBetting

	t.logger.Info("ante placed",
		zap.Int64("ante", amount),
		zap.Int64("pot", t.pot),
		zap.String("enemy_faction", t.enemyFaction.String()),
	)
	return t.action(ActionAnte, amount, "Ante placed"), nil
}

// Raise adds amount to the player's bet and lets the enemy respond.
func (t *Table) Raise(amount int64) (Action, error) {
	if t.phase != PhaseBetting {
		return Action{}, fmt.Errorf("%w: raise in %s", ErrWrongPhase, t.phase)
	}
	if amount <= 0 {
		return Action{}, fmt.Errorf("%w: raise %d", ErrInvalidAmount, amount)
	}
	if amount > t.params.MaxRaise {
		return Action{}, fmt.Errorf("%w: maximum raise is %d chips", ErrRaiseTooHigh, t.params.MaxRaise)
	}
	if err := t.bankroll.Debit(amount); err != nil {
		return Action{}, err
	}

	t.playerBet += amount
	t.pot += amount

	act := t.action(ActionRaise, amount, fmt.Sprintf("You raise by %d chips", amount))
	reply := t.enemyRespond(amount)
	act.Reply = &reply
	act.Phase = t.phase
	act.Pot = t.pot
	act.Bankroll = t.bankroll.Balance()
	return act, nil
}

// Call matches the enemy's bet and moves to the showdown.
func (t *Table) Call() (Action, error) {
	if t.phase != PhaseBetting {
		return Action{}, fmt.Errorf("%w: call in %s", ErrWrongPhase, t.phase)
	}
	amount := t.enemyBet - t.playerBet
	if amount <= 0 {
		return Action{}, ErrNothingToCall
	}
	if err := t.bankroll.Debit(amount); err != nil {
		return Action{}, err
	}

	t.playerBet = t.enemyBet
	t.pot += amount
	t.phase = PhasePlaying
	return t.action(ActionCall, amount, "You call"), nil
}

// AllIn commits the whole bankroll and lets the enemy call or fold.
func (t *Table) AllIn() (Action, error) {
	if t.phase != PhaseBetting {
		return Action{}, fmt.Errorf("%w: all-in in %s", ErrWrongPhase, t.phase)
	}
	amount := t.bankroll.Balance()
	if amount <= 0 {
		return Action{}, ErrInsufficientChips
	}
	if err := t.bankroll.Debit(amount); err != nil {
		return Action{}, err
	}

	t.playerBet += amount
	t.pot += amount
	t.playerAllIn = true

	act := t.action(ActionAllIn, amount, fmt.Sprintf("You go all-in with %d chips", amount))
	reply := t.enemyAllInResponse()
	act.Reply = &reply
	act.Phase = t.phase
	act.Pot = t.pot
	act.Bankroll = t.bankroll.Balance()
	return act, nil
}

// Fold forfeits the pot.
func (t *Table) Fold() (Action, error) {
	if t.phase != PhaseBetting {
		return Action{}, fmt.Errorf("%w: fold in %s", ErrWrongPhase, t.phase)
	}
	t.playerFolded = true
	t.phase = PhaseFinished
	t.logger.Info("player folded", zap.Int64("pot_lost", t.pot))
	return t.action(ActionFold, t.pot, "Enemy wins by fold"), nil
}

// Winner reports the side that won by fold, if any.
func (t *Table) Winner() battle.Side {
	switch {
	case t.playerFolded:
		return battle.SideEnemy
	case t.enemyFolded:
		return battle.SidePlayer
	default:
		return battle.SideNone
	}
}

func (t *Table) enemyRespond(raise int64) Action {
	quality := DeckQuality(t.enemyDeck)
	aggressiveness := t.rng.Float64()

	switch {
	case raise > t.params.FoldRaiseThreshold && quality < t.params.FoldQualityThreshold:
		return t.enemyFolds("Enemy folds - You win!")

	case aggressiveness > t.params.RaiseAggression && quality > t.params.RaiseQualityThreshold:
		factor := t.params.RaiseMinFactor + t.rng.Float64()*(t.params.RaiseMaxFactor-t.params.RaiseMinFactor)
		// A re-raise is at least one chip so the player always has something to call.
		reraise := max(1, int64(math.Floor(float64(raise)*factor)))
		matched := t.playerBet - t.enemyBet
		t.enemyBet = t.playerBet + reraise
		t.pot += matched + reraise
		t.logger.Debug("enemy re-raised",
			zap.Int64("raise", reraise),
			zap.Float64("deck_quality", quality),
		)
		return t.action(ActionRaise, reraise, fmt.Sprintf("Enemy raises by %d chips!", reraise))

	default:
		return t.enemyCalls("Enemy calls!")
	}
}

func (t *Table) enemyAllInResponse() Action {
	quality := DeckQuality(t.enemyDeck)
	if t.rng.Float64() < quality*t.params.AllInCallFactor {
		t.enemyAllIn = true
		return t.enemyCalls("Enemy calls your all-in!")
	}
	return t.enemyFolds("Enemy folds to all-in - You win!")
}

func (t *Table) enemyCalls(message string) Action {
	amount := t.playerBet - t.enemyBet
	if amount < 0 {
		amount = 0
	}
	t.enemyBet = t.playerBet
	t.pot += amount
	t.phase = PhasePlaying
	return t.action(ActionCall, amount, message)
}

func (t *Table) enemyFolds(message string) Action {
	t.enemyFolded = true
	t.phase = PhaseFinished
	t.bankroll.Credit(t.pot)
	t.logger.Info("enemy folded", zap.Int64("pot_won", t.pot))
	return t.action(ActionFold, t.pot, message)
}

func (t *Table) action(kind ActionKind, amount int64, message string) Action {
	return Action{
		Kind:     kind,
		Amount:   amount,
		Pot:      t.pot,
		Bankroll: t.bankroll.Balance(),
		Phase:    t.phase,
		Message:  message,
	}
}

// Showdown plays the configured number of hands and pays out the pot when
// the player takes the majority. Ties within a hand go to the enemy.
func (t *Table) Showdown() (Result, error) {
	if t.phase != PhasePlaying {
		return Result{}, fmt.Errorf("%w: showdown in %s", ErrWrongPhase, t.phase)
	}

	res := Result{Pot: t.pot}
	used := make(map[string]bool)
	for n := 1; n <= t.params.Hands; n++ {
		hand := t.playHand(n)
		if hand.Winner == battle.SidePlayer {
			res.PlayerWins++
		} else {
			res.EnemyWins++
		}
		for _, c := range hand.PlayerHand {
			if !used[c.ID] {
				used[c.ID] = true
				res.UsedCardIDs = append(res.UsedCardIDs, c.ID)
			}
		}
		res.Hands = append(res.Hands, hand)
	}

	res.Winner = battle.SideEnemy
	if res.PlayerWins > res.EnemyWins {
		res.Winner = battle.SidePlayer
		t.bankroll.Credit(t.pot)
		res.XPGained = t.pot / 10
	}
	res.Bankroll = t.bankroll.Balance()
	t.phase = PhaseFinished

	t.logger.Info("showdown settled",
		zap.String("winner", res.Winner.String()),
		zap.Int("player_hands", res.PlayerWins),
		zap.Int("enemy_hands", res.EnemyWins),
		zap.Int64("pot", res.Pot),
	)
	return res, nil
}

func (t *Table) playHand(n int) HandResult {
	player := t.drawRandom(t.playerDeck)
	enemy := t.drawRandom(t.enemyDeck)
	ps := battle.EvaluateLane(player).Score
	es := battle.EvaluateLane(enemy).Score

	winner := battle.SideEnemy
	if ps > es {
		winner = battle.SidePlayer
	}
	margin := ps - es
	if margin < 0 {
		margin = -margin
	}
	return HandResult{
		Number:         n,
		PlayerHand:     player,
		EnemyHand:      enemy,
		PlayerStrength: ps,
		EnemyStrength:  es,
		Winner:         winner,
		Margin:         margin,
	}
}

// drawRandom samples up to HandSize distinct cards without consuming the deck.
func (t *Table) drawRandom(deck []battle.Card) []battle.Card {
	n := min(t.params.HandSize, len(deck))
	out := make([]battle.Card, 0, n)
	for _, i := range t.rng.Perm(len(deck))[:n] {
		out = append(out, deck[i])
	}
	return out
}

// DeckQuality scores a deck in 0..1-ish from average power, promotion and
// completeness against a full 52-card deck.
func DeckQuality(deck []battle.Card) float64 {
	if len(deck) == 0 {
		return 0
	}
	var power, promotion int
	for _, c := range deck {
		power += c.Power()
		promotion += c.Tier * 2
	}
	average := float64(power) / float64(len(deck))
	completeness := float64(len(deck)) / battle.FullDeckSize
	return (average/20 + float64(promotion)/100 + completeness) / 3
}
