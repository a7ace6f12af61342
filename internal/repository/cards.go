package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deckrealms/lanebattle/internal/battle"
)

// CardRecord is one row of owned_cards.
type CardRecord struct {
	ID                  string `db:"id"`
	Owner               string `db:"owner"`
	Faction             string `db:"faction"`
	Rank                string `db:"rank"`
	Council             string `db:"council"`
	Tier                int    `db:"tier"`
	BattlesParticipated int    `db:"battles_participated"`
	BattlesWon          int    `db:"battles_won"`
}

// ToCard converts a stored row into an engine card.
func (r CardRecord) ToCard() (battle.Card, error) {
	faction, err := battle.ParseFaction(r.Faction)
	if err != nil {
		return battle.Card{}, err
	}
	rank, err := battle.ParseRank(r.Rank)
	if err != nil {
		return battle.Card{}, err
	}
	council, err := battle.ParseCouncil(r.Council)
	if err != nil {
		return battle.Card{}, err
	}
	card := battle.NewCard(faction, rank, council, r.Tier)
	if r.ID != "" {
		card.ID = r.ID
	}
	return card, nil
}

// NewCardRecord converts an engine card for storage.
func NewCardRecord(owner string, c battle.Card) CardRecord {
	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}
	return CardRecord{
		ID:      id,
		Owner:   owner,
		Faction: c.Faction.String(),
		Rank:    c.Rank.String(),
		Council: c.Council.String(),
		Tier:    c.Tier,
	}
}

// TierForBattles returns the promotion tier unlocked by a battle count.
func TierForBattles(battles int) int {
	tier := 0
	for _, level := range battle.PromotionLevels {
		if battles >= level.BattlesRequired {
			tier = level.Stars
		}
	}
	return tier
}

// CardPoolRepository stores player card collections.
type CardPoolRepository struct {
	db *DB
}

// NewCardPoolRepository creates the repository.
func NewCardPoolRepository(db *DB) *CardPoolRepository {
	return &CardPoolRepository{db: db}
}

// CardPool implements battle.CardPoolProvider.
func (r *CardPoolRepository) CardPool(ctx context.Context, owner string, faction battle.Faction) ([]battle.Card, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id::text AS id, owner, faction, rank, council, tier, battles_participated, battles_won
		FROM owned_cards
		WHERE owner = $1 AND faction = $2
		ORDER BY created_at, id`, owner, faction.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query card pool: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[CardRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to scan card pool: %w", err)
	}

	cards := make([]battle.Card, 0, len(records))
	for _, rec := range records {
		card, err := rec.ToCard()
		if err != nil {
			return nil, fmt.Errorf("card %s: %w", rec.ID, err)
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// Upsert stores cards for owner, replacing tiers of cards already present.
// Cards whose id belongs to another owner are left untouched and not counted.
func (r *CardPoolRepository) Upsert(ctx context.Context, owner string, cards []battle.Card) (int, error) {
	batch := &pgx.Batch{}
	for _, c := range cards {
		rec := NewCardRecord(owner, c)
		batch.Queue(`
			INSERT INTO owned_cards (id, owner, faction, rank, council, tier)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET tier = EXCLUDED.tier
			WHERE owned_cards.owner = EXCLUDED.owner`,
			rec.ID, rec.Owner, rec.Faction, rec.Rank, rec.Council, rec.Tier)
	}

	results := r.db.pool.SendBatch(ctx, batch)
	defer results.Close()

	stored := 0
	for range cards {
		tag, err := results.Exec()
		if err != nil {
			return stored, fmt.Errorf("failed to store card: %w", err)
		}
		stored += int(tag.RowsAffected())
	}
	return stored, nil
}

// RecordBattle adds one battle to every listed card and promotes cards that
// reached the next tier.
func (r *CardPoolRepository) RecordBattle(ctx context.Context, cardIDs []string, won bool) error {
	ids := cardUUIDs(cardIDs)
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	wins := 0
	if won {
		wins = 1
	}
	rows, err := tx.Query(ctx, `
		UPDATE owned_cards
		SET battles_participated = battles_participated + 1,
		    battles_won = battles_won + $2
		WHERE id = ANY($1::uuid[])
		RETURNING id::text, battles_participated, tier`, ids, wins)
	if err != nil {
		return fmt.Errorf("failed to record battle: %w", err)
	}

	type progress struct {
		id      string
		battles int
		tier    int
	}
	var promote []progress
	for rows.Next() {
		var p progress
		if err := rows.Scan(&p.id, &p.battles, &p.tier); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan battle progress: %w", err)
		}
		if next := TierForBattles(p.battles); next > p.tier {
			p.tier = next
			promote = append(promote, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range promote {
		if _, err := tx.Exec(ctx, `UPDATE owned_cards SET tier = $2 WHERE id = $1::uuid`, p.id, p.tier); err != nil {
			return fmt.Errorf("failed to promote card %s: %w", p.id, err)
		}
	}
	return tx.Commit(ctx)
}

// cardUUIDs keeps the ids that are valid UUIDs, in canonical form.
func cardUUIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			out = append(out, u.String())
		}
	}
	return out
}
