package server

import (
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/deckrealms/lanebattle/internal/battle"
)

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// intField reads a whole number, returning def when the key is absent.
func intField(req *structpb.Struct, key string, def int) (int, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return def, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", key)
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > 1<<53 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a whole number, got %v", key, n.NumberValue)
	}
	return int(n.NumberValue), nil
}

func sideField(req *structpb.Struct, key string, def battle.Side) (battle.Side, error) {
	name := stringField(req, key)
	if name == "" {
		return def, nil
	}
	return battle.ParseSide(name)
}

func battleID(req *structpb.Struct) (string, error) {
	id := stringField(req, "battle_id")
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "battle_id is required")
	}
	return id, nil
}

// respond converts a JSON-tagged response into a Struct document.
func respond(fields map[string]any) (*structpb.Struct, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	out, err := structpb.NewStruct(generic)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return out, nil
}

type roundView struct {
	Round       int               `json:"round"`
	Hand        int               `json:"hand"`
	NewHand     bool              `json:"new_hand"`
	Quota       int               `json:"quota"`
	PlayerDealt []battle.CardView `json:"player_dealt"`
	EnemyDealt  int               `json:"enemy_dealt"`
	Exhausted   bool              `json:"exhausted"`
	Phase       string            `json:"phase"`
}

func newRoundView(info battle.RoundInfo) roundView {
	v := roundView{
		Round:       info.Round,
		Hand:        info.Hand,
		NewHand:     info.NewHand,
		Quota:       info.Quota,
		PlayerDealt: make([]battle.CardView, len(info.PlayerDealt)),
		EnemyDealt:  len(info.EnemyDealt),
		Exhausted:   info.Exhausted,
		Phase:       info.Phase.String(),
	}
	for i, c := range info.PlayerDealt {
		v.PlayerDealt[i] = battle.NewCardView(c)
	}
	return v
}

type placementView struct {
	Side string          `json:"side"`
	Lane string          `json:"lane"`
	Slot int             `json:"slot"`
	Card battle.CardView `json:"card"`
}

func newPlacementView(p battle.PlacementResult) placementView {
	return placementView{
		Side: p.Side.String(),
		Lane: p.Lane.String(),
		Slot: p.Slot,
		Card: battle.NewCardView(p.Card),
	}
}

type laneResultView struct {
	Lane               string `json:"lane"`
	PlayerCategory     string `json:"player_category"`
	PlayerScore        int    `json:"player_score"`
	EnemyCategory      string `json:"enemy_category"`
	EnemyScore         int    `json:"enemy_score"`
	Winner             string `json:"winner"`
	Margin             int    `json:"margin"`
	RawDamage          int    `json:"raw_damage"`
	Shield             int    `json:"shield"`
	NetDamage          int    `json:"net_damage"`
	DestructionTargets []int  `json:"destruction_targets"`
}

type combatView struct {
	Round           int              `json:"round"`
	Lanes           []laneResultView `json:"lanes"`
	NetPlayerDamage int              `json:"net_player_damage"`
	NetEnemyDamage  int              `json:"net_enemy_damage"`
	PlayerHP        int              `json:"player_hp"`
	EnemyHP         int              `json:"enemy_hp"`
	Phase           string           `json:"phase"`
}

func newCombatView(r battle.RoundReport) combatView {
	v := combatView{
		Round:           r.Round,
		Lanes:           make([]laneResultView, 0, len(r.Combat.Lanes)),
		NetPlayerDamage: r.Combat.NetPlayerDamage,
		NetEnemyDamage:  r.Combat.NetEnemyDamage,
		PlayerHP:        r.PlayerHP,
		EnemyHP:         r.EnemyHP,
		Phase:           r.Phase.String(),
	}
	for _, lr := range r.Combat.Lanes {
		targets := lr.DestructionTargets
		if targets == nil {
			targets = []int{}
		}
		v.Lanes = append(v.Lanes, laneResultView{
			Lane:               lr.Lane.String(),
			PlayerCategory:     lr.Player.Category.String(),
			PlayerScore:        lr.Player.Score,
			EnemyCategory:      lr.Enemy.Category.String(),
			EnemyScore:         lr.Enemy.Score,
			Winner:             lr.Winner.String(),
			Margin:             lr.Margin,
			RawDamage:          lr.RawDamage,
			Shield:             lr.Shield,
			NetDamage:          lr.NetDamage,
			DestructionTargets: targets,
		})
	}
	return v
}
