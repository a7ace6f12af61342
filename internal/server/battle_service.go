package server

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/deckrealms/lanebattle/internal/battle"
	"github.com/deckrealms/lanebattle/internal/config"
	"github.com/deckrealms/lanebattle/internal/repository"
)

// ManualStrategy disables automatic enemy placement for a battle.
const ManualStrategy = "manual"

// ResultStore persists finished battles.
type ResultStore interface {
	Save(ctx context.Context, res repository.Result) error
}

// CardProgress counts battles fought by owned cards.
type CardProgress interface {
	RecordBattle(ctx context.Context, cardIDs []string, won bool) error
}

// battleServer implements BattleServiceServer on top of a battle.Manager.
type battleServer struct {
	manager  *battle.Manager
	cfg      config.BattleConfig
	results  ResultStore
	progress CardProgress
	logger   *zap.Logger

	finishedMu sync.Mutex
	finished   map[string]bool
}

// NewBattleServer creates the battle service. results and progress may be nil
// when no database is configured.
func NewBattleServer(
	cfg config.BattleConfig,
	manager *battle.Manager,
	results ResultStore,
	progress CardProgress,
	logger *zap.Logger,
) *battleServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &battleServer{
		manager:  manager,
		cfg:      cfg,
		results:  results,
		progress: progress,
		logger:   logger,
		finished: make(map[string]bool),
	}
}

// ==================== Battle Lifecycle ====================

// StartBattle creates a battle and runs its setup.
func (s *battleServer) StartBattle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner := stringField(req, "owner")
	opts, err := s.battleOptions(req)
	if err != nil {
		return nil, err
	}

	b, err := s.manager.Create(ctx, owner, opts)
	if err != nil {
		return nil, toStatus(err)
	}
	snapshot, err := s.manager.Snapshot(b.ID())
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info("battle started",
		zap.String("battle_id", b.ID()),
		zap.String("owner", owner),
		zap.String("first_turn", snapshot.FirstTurn),
	)
	return respond(map[string]any{
		"battle_id": b.ID(),
		"snapshot":  snapshot,
	})
}

// NextRound advances a battle to its next round.
func (s *battleServer) NextRound(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := battleID(req)
	if err != nil {
		return nil, err
	}

	var info battle.RoundInfo
	snapshot, err := s.mutate(ctx, id, func(b *battle.Battle) error {
		var err error
		info, err = b.NextRound()
		return err
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{
		"round":    newRoundView(info),
		"snapshot": snapshot,
	})
}

// PlaceCard places one card from a side's holding area.
func (s *battleServer) PlaceCard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := battleID(req)
	if err != nil {
		return nil, err
	}
	side, err := sideField(req, "side", battle.SidePlayer)
	if err != nil {
		return nil, toStatus(err)
	}
	index, err := intField(req, "hand_index", -1)
	if err != nil {
		return nil, err
	}
	lane, err := battle.ParseLane(stringField(req, "lane"))
	if err != nil {
		return nil, toStatus(err)
	}
	slot, err := intField(req, "slot", battle.AutoSlot)
	if err != nil {
		return nil, err
	}

	var placed battle.PlacementResult
	snapshot, err := s.mutate(ctx, id, func(b *battle.Battle) error {
		var err error
		placed, err = b.PlaceCard(side, index, lane, slot)
		return err
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{
		"placement": newPlacementView(placed),
		"snapshot":  snapshot,
	})
}

// AutoPlace places a side's cards with a named strategy, or with the battle's
// enemy strategy when none is given.
func (s *battleServer) AutoPlace(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := battleID(req)
	if err != nil {
		return nil, err
	}
	side, err := sideField(req, "side", battle.SidePlayer)
	if err != nil {
		return nil, toStatus(err)
	}
	var strategy battle.PlacementStrategy
	if name := stringField(req, "strategy"); name != "" {
		strategy, err = battle.StrategyByName(name, nil)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	var placed []battle.PlacementResult
	snapshot, err := s.mutate(ctx, id, func(b *battle.Battle) error {
		var err error
		if strategy != nil {
			placed, err = b.AutoPlaceWith(side, strategy)
		} else {
			placed, err = b.AutoPlace(side)
		}
		return err
	})
	if err != nil {
		return nil, toStatus(err)
	}

	views := make([]placementView, len(placed))
	for i, p := range placed {
		views[i] = newPlacementView(p)
	}
	return respond(map[string]any{
		"placements": views,
		"snapshot":   snapshot,
	})
}

// ResolveCombat resolves the three lane pairings of the current round.
func (s *battleServer) ResolveCombat(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := battleID(req)
	if err != nil {
		return nil, err
	}

	var report battle.RoundReport
	snapshot, err := s.mutate(ctx, id, func(b *battle.Battle) error {
		var err error
		report, err = b.ResolveCombat()
		return err
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{
		"combat":   newCombatView(report),
		"snapshot": snapshot,
	})
}

// GetState returns the current snapshot and its checksum.
func (s *battleServer) GetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := battleID(req)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.manager.Snapshot(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{
		"checksum": snapshot.Checksum,
		"snapshot": snapshot,
	})
}

// ResetBattle abandons the current game and sets the battle up again.
func (s *battleServer) ResetBattle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := battleID(req)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.mutate(ctx, id, func(b *battle.Battle) error {
		b.Reset()
		return b.Setup()
	})
	if err != nil {
		return nil, toStatus(err)
	}

	s.finishedMu.Lock()
	delete(s.finished, id)
	s.finishedMu.Unlock()

	return respond(map[string]any{"snapshot": snapshot})
}

// EndBattle removes a battle and returns its last snapshot.
func (s *battleServer) EndBattle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := battleID(req)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.manager.Snapshot(id)
	if err != nil {
		return nil, toStatus(err)
	}
	removed := s.manager.Remove(id)

	s.finishedMu.Lock()
	delete(s.finished, id)
	s.finishedMu.Unlock()

	return respond(map[string]any{
		"battle_id": id,
		"removed":   removed,
		"snapshot":  snapshot,
	})
}

// ListBattles returns the live battle ids, oldest first.
func (s *battleServer) ListBattles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return respond(map[string]any{
		"battle_ids": s.manager.IDs(),
		"active":     s.manager.ActiveCount(),
	})
}

// ==================== Helper Functions ====================

func (s *battleServer) battleOptions(req *structpb.Struct) (battle.Options, error) {
	opts := battle.Options{Rules: s.cfg.Rules()}

	faction, err := battle.ParseFaction(stringField(req, "player_faction"))
	if err != nil {
		return opts, status.Error(codes.InvalidArgument, err.Error())
	}
	opts.PlayerFaction = faction

	if name := stringField(req, "enemy_faction"); name != "" {
		enemy, err := battle.ParseFaction(name)
		if err != nil {
			return opts, status.Error(codes.InvalidArgument, err.Error())
		}
		opts.EnemyFaction = &enemy
	}

	if opts.FirstTurn, err = sideField(req, "first_turn", battle.SideNone); err != nil {
		return opts, toStatus(err)
	}
	if opts.WinnerChoice, err = sideField(req, "winner_choice", battle.SidePlayer); err != nil {
		return opts, toStatus(err)
	}
	switch call := stringField(req, "coin_call"); call {
	case "", "spade":
		opts.CoinCall = battle.CoinSpade
	case "heart":
		opts.CoinCall = battle.CoinHeart
	default:
		return opts, status.Errorf(codes.InvalidArgument, "coin_call must be spade or heart, got %q", call)
	}

	seed, err := intField(req, "seed", 0)
	if err != nil {
		return opts, err
	}
	if seed < 0 {
		return opts, status.Errorf(codes.InvalidArgument, "seed must not be negative, got %d", seed)
	}
	opts.Seed = uint64(seed)

	name := stringField(req, "enemy_strategy")
	if name == "" {
		name = s.cfg.EnemyStrategy
	}
	if name != ManualStrategy {
		var rng *rand.Rand
		if opts.Seed != 0 {
			rng = rand.New(rand.NewPCG(opts.Seed, ^opts.Seed))
		}
		if opts.EnemyStrategy, err = battle.StrategyByName(name, rng); err != nil {
			return opts, status.Error(codes.InvalidArgument, err.Error())
		}
	}
	return opts, nil
}

// mutate runs fn under the battle lock and returns the resulting snapshot.
// A battle that ended is handed to persist once.
func (s *battleServer) mutate(ctx context.Context, id string, fn func(b *battle.Battle) error) (battle.Snapshot, error) {
	var (
		snapshot battle.Snapshot
		played   []string
	)
	err := s.manager.Do(id, func(b *battle.Battle) error {
		err := fn(b)
		snapshot = b.Snapshot()
		if b.Phase() == battle.PhaseEnded {
			played = b.PlayedCardIDs(battle.SidePlayer)
		}
		return err
	})
	if err != nil {
		return snapshot, err
	}
	if snapshot.Verdict != nil {
		s.persist(ctx, snapshot, played)
	}
	return snapshot, nil
}

func (s *battleServer) persist(ctx context.Context, snapshot battle.Snapshot, played []string) {
	s.finishedMu.Lock()
	if s.finished[snapshot.BattleID] {
		s.finishedMu.Unlock()
		return
	}
	s.finished[snapshot.BattleID] = true
	s.finishedMu.Unlock()

	owner, _ := s.manager.Owner(snapshot.BattleID)
	logger := s.logger.With(zap.String("battle_id", snapshot.BattleID), zap.String("owner", owner))
	logger.Info("battle finished",
		zap.String("winner", snapshot.Verdict.Winner),
		zap.String("reason", snapshot.Verdict.Reason),
		zap.Int("round", snapshot.Round),
	)

	if s.results != nil {
		res, err := repository.NewResult(owner, snapshot)
		if err == nil {
			err = s.results.Save(ctx, res)
		}
		if err != nil {
			logger.Error("failed to save battle result", zap.Error(err))
		}
	}
	if s.progress != nil && owner != "" && len(played) > 0 {
		won := snapshot.Verdict.Winner == battle.OutcomePlayer.String()
		if err := s.progress.RecordBattle(ctx, played, won); err != nil {
			logger.Error("failed to record card progress", zap.Error(err))
		}
	}
}

// toStatus maps engine errors onto gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, battle.ErrBattleNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, battle.ErrNotReady):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, battle.ErrInvalidIndex),
		errors.Is(err, battle.ErrInvalidLane),
		errors.Is(err, battle.ErrInvalidSide),
		errors.Is(err, battle.ErrSlotOccupied),
		errors.Is(err, battle.ErrLaneFull):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
