package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deckrealms/lanebattle/internal/battle"
)

// Result summarizes a finished battle.
type Result struct {
	BattleID    string           `db:"battle_id"`
	Owner       string           `db:"owner"`
	Winner      string           `db:"winner"`
	Reason      string           `db:"reason"`
	ByPower     bool             `db:"by_power"`
	Rounds      int              `db:"rounds"`
	PlayerHP    int              `db:"player_hp"`
	EnemyHP     int              `db:"enemy_hp"`
	PlayerPower int              `db:"player_power"`
	EnemyPower  int              `db:"enemy_power"`
	PlayerStats battle.StatsView `db:"player_stats"`
	EnemyStats  battle.StatsView `db:"enemy_stats"`
	Checksum    string           `db:"checksum"`
	FinishedAt  time.Time        `db:"finished_at"`
}

// ErrBattleNotFinished is returned when saving a battle without a verdict.
var ErrBattleNotFinished = errors.New("battle has not ended")

// NewResult builds a result from the final snapshot of a battle.
func NewResult(owner string, s battle.Snapshot) (Result, error) {
	if s.Verdict == nil {
		return Result{}, ErrBattleNotFinished
	}
	rounds := s.Round
	if rounds > s.TotalRounds {
		rounds = s.TotalRounds
	}
	return Result{
		BattleID:    s.BattleID,
		Owner:       owner,
		Winner:      s.Verdict.Winner,
		Reason:      s.Verdict.Reason,
		ByPower:     s.Verdict.ByPower,
		Rounds:      rounds,
		PlayerHP:    s.Player.HP,
		EnemyHP:     s.Enemy.HP,
		PlayerPower: s.Player.Power,
		EnemyPower:  s.Enemy.Power,
		PlayerStats: s.Player.Stats,
		EnemyStats:  s.Enemy.Stats,
		Checksum:    s.Checksum,
		FinishedAt:  s.Timestamp,
	}, nil
}

// ResultRepository stores finished battles.
type ResultRepository struct {
	db *DB
}

// NewResultRepository creates the repository.
func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Save inserts a result. Saving the same battle twice keeps the first row.
func (r *ResultRepository) Save(ctx context.Context, res Result) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO battle_results (
			battle_id, owner, winner, reason, by_power, rounds, player_hp, enemy_hp,
			player_power, enemy_power, player_stats, enemy_stats, checksum, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (battle_id) DO NOTHING`,
		res.BattleID, res.Owner, res.Winner, res.Reason, res.ByPower, res.Rounds,
		res.PlayerHP, res.EnemyHP, res.PlayerPower, res.EnemyPower,
		res.PlayerStats, res.EnemyStats, res.Checksum, res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save battle result: %w", err)
	}
	return nil
}

// ListByOwner returns owner's most recent results, newest first.
func (r *ResultRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.pool.Query(ctx, `
		SELECT battle_id::text AS battle_id, owner, winner, reason, by_power, rounds,
		       player_hp, enemy_hp, player_power, enemy_power, player_stats, enemy_stats,
		       checksum, finished_at
		FROM battle_results
		WHERE owner = $1
		ORDER BY finished_at DESC
		LIMIT $2`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query battle results: %w", err)
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[Result])
	if err != nil {
		return nil, fmt.Errorf("failed to scan battle results: %w", err)
	}
	return results, nil
}
