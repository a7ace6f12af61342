package main

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/deckrealms/lanebattle/internal/battle"
	"github.com/deckrealms/lanebattle/internal/wager"
)

// battleSummary is the outcome of one simulated battle.
type battleSummary struct {
	Seed          uint64
	PlayerFaction string
	EnemyFaction  string
	FirstTurn     string
	Winner        string
	Reason        string
	ByPower       bool
	Rounds        int
	PlayerHP      int
	EnemyHP       int
	PlayerPower   int
	EnemyPower    int
	PlayerStats   battle.StatsView
	EnemyStats    battle.StatsView
	Checksum      string
}

type battleSetup struct {
	Rules          battle.Rules
	Seed           uint64
	PlayerStrategy string
	EnemyStrategy  string
	Logger         *zap.Logger
}

// simulateBattle plays one AI-vs-AI battle to the end. The player faction
// rotates with the seed; the enemy faction is drawn by the battle itself.
func simulateBattle(setup battleSetup) (battleSummary, error) {
	rng := rand.New(rand.NewPCG(setup.Seed, setup.Seed+1))
	player, err := battle.StrategyByName(setup.PlayerStrategy, rng)
	if err != nil {
		return battleSummary{}, err
	}
	enemy, err := battle.StrategyByName(setup.EnemyStrategy, rng)
	if err != nil {
		return battleSummary{}, err
	}

	b, err := battle.New(battle.Options{
		Rules:         setup.Rules,
		PlayerFaction: battle.Factions[setup.Seed%uint64(len(battle.Factions))],
		EnemyStrategy: enemy,
		CoinCall:      battle.CoinHeart,
		WinnerChoice:  battle.SidePlayer,
		Seed:          setup.Seed,
		Logger:        setup.Logger,
	})
	if err != nil {
		return battleSummary{}, err
	}
	if err := b.Setup(); err != nil {
		return battleSummary{}, err
	}

	for b.Phase() != battle.PhaseEnded {
		if _, err := b.NextRound(); err != nil {
			return battleSummary{}, fmt.Errorf("round %d: %w", b.Round(), err)
		}
		if b.Phase() == battle.PhaseEnded {
			break
		}
		if b.CanPlace(battle.SidePlayer) {
			if _, err := b.AutoPlaceWith(battle.SidePlayer, player); err != nil {
				return battleSummary{}, fmt.Errorf("round %d: %w", b.Round(), err)
			}
		}
		if b.Phase() != battle.PhaseBattling {
			return battleSummary{}, fmt.Errorf("round %d: placement stalled in %s", b.Round(), b.Phase())
		}
		if _, err := b.ResolveCombat(); err != nil {
			return battleSummary{}, fmt.Errorf("round %d: %w", b.Round(), err)
		}
	}

	s := b.Snapshot()
	if s.Verdict == nil {
		return battleSummary{}, errors.New("battle ended without a verdict")
	}
	return battleSummary{
		Seed:          setup.Seed,
		PlayerFaction: s.Player.Faction,
		EnemyFaction:  s.Enemy.Faction,
		FirstTurn:     s.FirstTurn,
		Winner:        s.Verdict.Winner,
		Reason:        s.Verdict.Reason,
		ByPower:       s.Verdict.ByPower,
		Rounds:        min(s.Round, s.TotalRounds),
		PlayerHP:      s.Player.HP,
		EnemyHP:       s.Enemy.HP,
		PlayerPower:   s.Player.Power,
		EnemyPower:    s.Enemy.Power,
		PlayerStats:   s.Player.Stats,
		EnemyStats:    s.Enemy.Stats,
		Checksum:      s.Checksum,
	}, nil
}

// wagerSummary is the outcome of one simulated betting table.
type wagerSummary struct {
	Seed       uint64
	Faction    string
	Enemy      string
	Raise      int64
	Reply      string
	Winner     string
	PlayerWins int
	EnemyWins  int
	Pot        int64
	XP         int64
	Bankroll   int64
}

// simulateWager antes the minimum, raises raise chips, calls any re-raise and
// plays the showdown against purse.
func simulateWager(params wager.Params, seed uint64, raise int64, purse wager.Bankroll, logger *zap.Logger) (wagerSummary, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x5bd1e995))
	faction := battle.Factions[seed%uint64(len(battle.Factions))]
	deck := battle.GenerateFullDeck(faction, rng).Peek()

	table, err := wager.NewTable(params, faction, deck, purse, rng, logger)
	if err != nil {
		return wagerSummary{}, err
	}
	sum := wagerSummary{Seed: seed, Faction: faction.String(), Enemy: table.EnemyFaction().String(), Raise: raise}

	if _, err := table.Ante(params.MinAnte); err != nil {
		return sum, err
	}
	act, err := table.Raise(raise)
	if err != nil {
		return sum, err
	}
	if act.Reply != nil {
		sum.Reply = string(act.Reply.Kind)
		if act.Reply.Kind == wager.ActionRaise {
			if _, err := table.Call(); err != nil {
				return sum, err
			}
		}
	}

	if table.Phase() == wager.PhaseFinished {
		sum.Winner = table.Winner().String()
		sum.Pot = table.Pot()
		sum.Bankroll = purse.Balance()
		return sum, nil
	}

	res, err := table.Showdown()
	if err != nil {
		return sum, err
	}
	sum.Winner = res.Winner.String()
	sum.PlayerWins = res.PlayerWins
	sum.EnemyWins = res.EnemyWins
	sum.Pot = res.Pot
	sum.XP = res.XPGained
	sum.Bankroll = res.Bankroll
	return sum, nil
}
