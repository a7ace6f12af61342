package server

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/deckrealms/lanebattle/internal/battle"
	"github.com/deckrealms/lanebattle/internal/config"
	"github.com/deckrealms/lanebattle/internal/repository"
)

type memoryResults struct {
	mu    sync.Mutex
	saved []repository.Result
}

func (m *memoryResults) Save(_ context.Context, res repository.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, res)
	return nil
}

func (m *memoryResults) all() []repository.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.Result(nil), m.saved...)
}

type memoryProgress struct {
	mu    sync.Mutex
	calls [][]string
	wins  int
}

func (m *memoryProgress) RecordBattle(_ context.Context, ids []string, won bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ids)
	if won {
		m.wins++
	}
	return nil
}

func defaultBattleConfig(t *testing.T) config.BattleConfig {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Battle.EnemyStrategy = "sequence"
	return cfg.Battle
}

type testEnv struct {
	client   *BattleServiceClient
	manager  *battle.Manager
	results  *memoryResults
	progress *memoryProgress
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	manager := battle.NewManager(logger, nil)
	results := &memoryResults{}
	progress := &memoryProgress{}
	srv := NewBattleServer(defaultBattleConfig(t), manager, results, progress, logger)

	lis := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(ChainUnaryInterceptors(
		RecoveryInterceptor(logger),
		LoggingInterceptor(logger),
	)))
	RegisterBattleServiceServer(grpcServer, srv)
	go grpcServer.Serve(lis)
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testEnv{
		client:   NewBattleServiceClient(conn),
		manager:  manager,
		results:  results,
		progress: progress,
	}
}

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return req
}

func (e *testEnv) call(t *testing.T, method string, fields map[string]any) (*structpb.Struct, error) {
	t.Helper()
	return e.client.Call(context.Background(), method, request(t, fields))
}

func (e *testEnv) mustCall(t *testing.T, method string, fields map[string]any) *structpb.Struct {
	t.Helper()
	resp, err := e.call(t, method, fields)
	require.NoError(t, err, method)
	return resp
}

func (e *testEnv) start(t *testing.T, extra map[string]any) string {
	t.Helper()
	fields := map[string]any{
		"owner":          "alice",
		"player_faction": "Hearts",
		"enemy_faction":  "Spades",
		"first_turn":     "player",
		"seed":           42,
	}
	for k, v := range extra {
		fields[k] = v
	}
	resp := e.mustCall(t, "StartBattle", fields)
	id := resp.GetFields()["battle_id"].GetStringValue()
	require.NotEmpty(t, id)
	return id
}

func snapshotOf(resp *structpb.Struct) *structpb.Struct {
	return resp.GetFields()["snapshot"].GetStructValue()
}

func phaseOf(resp *structpb.Struct) string {
	return snapshotOf(resp).GetFields()["phase"].GetStringValue()
}

func TestStartBattle(t *testing.T) {
	env := newTestEnv(t)
	id := env.start(t, nil)

	resp := env.mustCall(t, "GetState", map[string]any{"battle_id": id})
	snap := snapshotOf(resp)
	assert.Equal(t, "DRAWING", snap.GetFields()["phase"].GetStringValue())
	assert.Equal(t, "player", snap.GetFields()["first_turn"].GetStringValue())
	assert.NotEmpty(t, resp.GetFields()["checksum"].GetStringValue())

	player := snap.GetFields()["player"].GetStructValue()
	assert.Equal(t, "Hearts", player.GetFields()["faction"].GetStringValue())
	assert.Equal(t, float64(100), player.GetFields()["hp"].GetNumberValue())
	assert.Equal(t, float64(battle.FullDeckSize), player.GetFields()["deck_left"].GetNumberValue())
}

func TestStartBattleRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	cases := []map[string]any{
		{"player_faction": "Stars"},
		{"player_faction": "Hearts", "enemy_faction": "Moons"},
		{"player_faction": "Hearts", "first_turn": "nobody"},
		{"player_faction": "Hearts", "coin_call": "edge"},
		{"player_faction": "Hearts", "seed": 1.5},
		{"player_faction": "Hearts", "seed": "seven"},
		{"player_faction": "Hearts", "enemy_strategy": "minimax"},
	}
	for _, fields := range cases {
		_, err := env.call(t, "StartBattle", fields)
		assert.Equal(t, codes.InvalidArgument, status.Code(err), "%v", fields)
	}
}

func TestRoundFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.start(t, nil)

	resp := env.mustCall(t, "NextRound", map[string]any{"battle_id": id})
	round := resp.GetFields()["round"].GetStructValue()
	assert.Equal(t, float64(1), round.GetFields()["round"].GetNumberValue())
	assert.Equal(t, float64(5), round.GetFields()["quota"].GetNumberValue())
	assert.Len(t, round.GetFields()["player_dealt"].GetListValue().GetValues(), 5)
	assert.Equal(t, "PLACING", phaseOf(resp))

	resp = env.mustCall(t, "PlaceCard", map[string]any{
		"battle_id": id, "side": "player", "hand_index": 0, "lane": "back", "slot": 3,
	})
	placement := resp.GetFields()["placement"].GetStructValue()
	assert.Equal(t, "back", placement.GetFields()["lane"].GetStringValue())
	assert.Equal(t, float64(3), placement.GetFields()["slot"].GetNumberValue())

	resp = env.mustCall(t, "AutoPlace", map[string]any{"battle_id": id, "strategy": "greedy"})
	assert.Len(t, resp.GetFields()["placements"].GetListValue().GetValues(), 4)
	assert.Equal(t, "BATTLING", phaseOf(resp))

	resp = env.mustCall(t, "ResolveCombat", map[string]any{"battle_id": id})
	combat := resp.GetFields()["combat"].GetStructValue()
	assert.Len(t, combat.GetFields()["lanes"].GetListValue().GetValues(), 3)
	assert.Equal(t, "RESOLVED", phaseOf(resp))
}

func TestErrorCodes(t *testing.T) {
	env := newTestEnv(t)
	id := env.start(t, nil)

	_, err := env.call(t, "NextRound", map[string]any{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = env.call(t, "NextRound", map[string]any{"battle_id": "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = env.call(t, "ResolveCombat", map[string]any{"battle_id": id})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	env.mustCall(t, "NextRound", map[string]any{"battle_id": id})

	bad := []map[string]any{
		{"battle_id": id, "hand_index": 9, "lane": "front"},
		{"battle_id": id, "hand_index": 0, "lane": "side"},
		{"battle_id": id, "hand_index": 0, "lane": "front", "side": "referee"},
		{"battle_id": id, "hand_index": 0, "lane": "front", "slot": 12},
		{"battle_id": id, "hand_index": "zero", "lane": "front"},
	}
	for _, fields := range bad {
		_, err := env.call(t, "PlaceCard", fields)
		assert.Equal(t, codes.InvalidArgument, status.Code(err), "%v", fields)
	}

	env.mustCall(t, "PlaceCard", map[string]any{"battle_id": id, "hand_index": 0, "lane": "front", "slot": 0})
	_, err = env.call(t, "PlaceCard", map[string]any{"battle_id": id, "hand_index": 0, "lane": "front", "slot": 0})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestFinishedBattleIsPersistedOnce(t *testing.T) {
	env := newTestEnv(t)
	id := env.start(t, nil)

	for i := 0; i < 20; i++ {
		resp := env.mustCall(t, "NextRound", map[string]any{"battle_id": id})
		if phaseOf(resp) == "ENDED" {
			break
		}
		env.mustCall(t, "AutoPlace", map[string]any{"battle_id": id, "strategy": "sequence"})
		resp = env.mustCall(t, "ResolveCombat", map[string]any{"battle_id": id})
		if phaseOf(resp) == "ENDED" {
			break
		}
	}

	resp := env.mustCall(t, "GetState", map[string]any{"battle_id": id})
	require.Equal(t, "ENDED", phaseOf(resp))

	saved := env.results.all()
	require.Len(t, saved, 1)
	assert.Equal(t, id, saved[0].BattleID)
	assert.Equal(t, "alice", saved[0].Owner)
	assert.NotEmpty(t, saved[0].Winner)

	require.Len(t, env.progress.calls, 1)
	assert.NotEmpty(t, env.progress.calls[0])

	_, err := env.call(t, "NextRound", map[string]any{"battle_id": id})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Len(t, env.results.all(), 1)
}

func TestResetAndEndBattle(t *testing.T) {
	env := newTestEnv(t)
	id := env.start(t, nil)
	env.mustCall(t, "NextRound", map[string]any{"battle_id": id})

	resp := env.mustCall(t, "ResetBattle", map[string]any{"battle_id": id})
	snap := snapshotOf(resp)
	assert.Equal(t, "DRAWING", snap.GetFields()["phase"].GetStringValue())
	assert.Equal(t, float64(0), snap.GetFields()["round"].GetNumberValue())

	resp = env.mustCall(t, "ListBattles", nil)
	ids := resp.GetFields()["battle_ids"].GetListValue().GetValues()
	require.Len(t, ids, 1)
	assert.Equal(t, id, ids[0].GetStringValue())
	assert.Equal(t, float64(1), resp.GetFields()["active"].GetNumberValue())

	resp = env.mustCall(t, "EndBattle", map[string]any{"battle_id": id})
	assert.True(t, resp.GetFields()["removed"].GetBoolValue())

	_, err := env.call(t, "GetState", map[string]any{"battle_id": id})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestManualEnemyStrategy(t *testing.T) {
	env := newTestEnv(t)
	id := env.start(t, map[string]any{"enemy_strategy": ManualStrategy})
	env.mustCall(t, "NextRound", map[string]any{"battle_id": id})

	resp := env.mustCall(t, "AutoPlace", map[string]any{"battle_id": id, "strategy": "sequence"})
	assert.Equal(t, "PLACING", phaseOf(resp), "enemy still holds cards")

	resp = env.mustCall(t, "AutoPlace", map[string]any{"battle_id": id, "side": "enemy", "strategy": "sequence"})
	assert.Len(t, resp.GetFields()["placements"].GetListValue().GetValues(), 5)
	assert.Equal(t, "BATTLING", phaseOf(resp))
}

func TestSeededBattlesShareChecksum(t *testing.T) {
	env := newTestEnv(t)
	play := func() string {
		id := env.start(t, map[string]any{"seed": 7})
		env.mustCall(t, "NextRound", map[string]any{"battle_id": id})
		env.mustCall(t, "AutoPlace", map[string]any{"battle_id": id, "strategy": "greedy"})
		env.mustCall(t, "ResolveCombat", map[string]any{"battle_id": id})
		resp := env.mustCall(t, "GetState", map[string]any{"battle_id": id})
		return resp.GetFields()["checksum"].GetStringValue()
	}
	assert.Equal(t, play(), play())
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(zaptest.NewLogger(t))
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/test/Panic"},
		func(ctx context.Context, req any) (any, error) {
			panic("boom")
		})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestChainUnaryInterceptorsOrder(t *testing.T) {
	var order []string
	mk := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			order = append(order, name)
			return handler(ctx, req)
		}
	}
	chain := ChainUnaryInterceptors(mk("outer"), mk("inner"))
	resp, err := chain(context.Background(), "req", &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		order = append(order, "handler")
		return req, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "req", resp)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
