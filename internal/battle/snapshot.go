package battle

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// CardView is the presentation form of a card.
type CardView struct {
	ID        string `json:"id"`
	Faction   string `json:"faction"`
	Rank      string `json:"rank"`
	Value     int    `json:"value"`
	Council   string `json:"council,omitempty"`
	Tier      int    `json:"tier"`
	Promotion string `json:"promotion"`
}

// SlotView is a card in a row together with its slot index.
type SlotView struct {
	Slot int      `json:"slot"`
	Card CardView `json:"card"`
}

// LaneView is one row with its current hand stamp.
type LaneView struct {
	Lane     string     `json:"lane"`
	Cards    []SlotView `json:"cards"`
	Category string     `json:"category"`
	Score    int        `json:"score"`
}

// SideView is everything presentation needs about one side.
type SideView struct {
	Faction  string     `json:"faction"`
	Spire    string     `json:"spire"`
	HP       int        `json:"hp"`
	DeckLeft int        `json:"deck_left"`
	Hand     []CardView `json:"hand"`
	Lanes    []LaneView `json:"lanes"`
	Power    int        `json:"power"`
	Stats    StatsView  `json:"stats"`
	CanPlace bool       `json:"can_place"`
}

// StatsView is the presentation form of Stats.
type StatsView struct {
	HandsFormed      map[string]int `json:"hands_formed"`
	TotalHandsFormed int            `json:"total_hands_formed"`
	BestHand         string         `json:"best_hand,omitempty"`
	DamageDealt      int            `json:"damage_dealt"`
	DamageTaken      int            `json:"damage_taken"`
	CardsDestroyed   int            `json:"cards_destroyed"`
	CardsLost        int            `json:"cards_lost"`
}

// LogLine is a timestamped battle log entry.
type LogLine struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// VerdictView is the presentation form of Verdict.
type VerdictView struct {
	Winner      string `json:"winner"`
	Reason      string `json:"reason"`
	ByPower     bool   `json:"by_power"`
	PlayerPower int    `json:"player_power"`
	EnemyPower  int    `json:"enemy_power"`
}

// Snapshot is a point-in-time copy of a battle for presentation sinks.
type Snapshot struct {
	BattleID    string       `json:"battle_id"`
	Phase       string       `json:"phase"`
	Round       int          `json:"round"`
	TotalRounds int          `json:"total_rounds"`
	Hand        int          `json:"hand"`
	FirstTurn   string       `json:"first_turn"`
	CoinResult  string       `json:"coin_result,omitempty"`
	Player      SideView     `json:"player"`
	Enemy       SideView     `json:"enemy"`
	Verdict     *VerdictView `json:"verdict,omitempty"`
	Log         []LogLine    `json:"log"`
	Checksum    string       `json:"checksum"`
	Timestamp   time.Time    `json:"timestamp"`
}

// NewCardView converts a card.
func NewCardView(c Card) CardView {
	return CardView{
		ID:        c.ID,
		Faction:   c.Faction.String(),
		Rank:      c.Rank.String(),
		Value:     c.Value(),
		Council:   c.Council.String(),
		Tier:      c.Tier,
		Promotion: c.Promotion().Name,
	}
}

// NewStatsView converts stats.
func NewStatsView(s Stats) StatsView {
	v := StatsView{
		HandsFormed:      make(map[string]int, len(s.HandsFormed)),
		TotalHandsFormed: s.TotalHandsFormed,
		DamageDealt:      s.DamageDealt,
		DamageTaken:      s.DamageTaken,
		CardsDestroyed:   s.CardsDestroyed,
		CardsLost:        s.CardsLost,
	}
	for category, n := range s.HandsFormed {
		v.HandsFormed[category.String()] = n
	}
	if s.HasBestHand {
		v.BestHand = s.BestHand.String()
	}
	return v
}

// EvaluateAll evaluates every row of one side in lane order.
func EvaluateAll(rows *Rows) [3]Evaluation {
	var out [3]Evaluation
	for _, lane := range Lanes {
		out[lane] = EvaluateLane(rows.Get(lane).Cards())
	}
	return out
}

// Snapshot captures the current state.
func (b *Battle) Snapshot() Snapshot {
	s := Snapshot{
		BattleID:    b.id,
		Phase:       b.phase.String(),
		Round:       b.round,
		TotalRounds: b.rules.TotalRounds,
		Hand:        b.hand,
		FirstTurn:   b.firstTurn.String(),
		Player:      b.sideView(SidePlayer),
		Enemy:       b.sideView(SideEnemy),
		Log:         make([]LogLine, len(b.log)),
		Timestamp:   b.clock(),
	}
	if b.toss.Result != CoinNone {
		s.CoinResult = b.toss.Result.String()
	}
	for i, e := range b.log {
		s.Log[i] = LogLine{Timestamp: e.Timestamp, Message: e.Message}
	}
	if b.verdict != nil {
		s.Verdict = &VerdictView{
			Winner:      b.verdict.Outcome.String(),
			Reason:      b.verdict.Reason,
			ByPower:     b.verdict.ByPower,
			PlayerPower: b.verdict.PlayerPower,
			EnemyPower:  b.verdict.EnemyPower,
		}
	}
	s.Checksum = s.ComputeChecksum()
	return s
}

func (b *Battle) sideView(side Side) SideView {
	st, _ := b.side(side)
	v := SideView{
		Faction:  st.faction.String(),
		Spire:    st.faction.Spire(),
		HP:       b.HP(side),
		Hand:     make([]CardView, len(st.hand)),
		Lanes:    make([]LaneView, 0, len(Lanes)),
		Power:    TotalPower(&st.rows),
		Stats:    NewStatsView(b.stats.For(side)),
		CanPlace: b.CanPlace(side),
	}
	if st.deck != nil {
		v.DeckLeft = st.deck.Len()
	}
	for i, c := range st.hand {
		v.Hand[i] = NewCardView(c)
	}
	evals := EvaluateAll(&st.rows)
	for _, lane := range Lanes {
		row := st.rows.Get(lane)
		lv := LaneView{
			Lane:     lane.String(),
			Cards:    make([]SlotView, 0, row.Count()),
			Category: evals[lane].Category.String(),
			Score:    evals[lane].Score,
		}
		for _, slot := range row.Slots() {
			c, _ := row.At(slot)
			lv.Cards = append(lv.Cards, SlotView{Slot: slot, Card: NewCardView(c)})
		}
		v.Lanes = append(v.Lanes, lv)
	}
	return v
}

// ComputeChecksum hashes the deterministic part of the snapshot with
// BLAKE2b-256. Card ids, log timestamps and the snapshot time are left out, so
// two battles played from the same seed and commands share a checksum.
func (s Snapshot) ComputeChecksum() string {
	sum := blake2b.Sum256([]byte(s.canonical()))
	return hex.EncodeToString(sum[:])
}

func (s Snapshot) canonical() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "BATTLE:%s|%d|%d|%d|%s|%s\n",
		s.Phase, s.Round, s.TotalRounds, s.Hand, s.FirstTurn, s.CoinResult)
	writeSide(&buf, "PLAYER", s.Player)
	writeSide(&buf, "ENEMY", s.Enemy)
	if s.Verdict != nil {
		fmt.Fprintf(&buf, "VERDICT:%s|%t|%d|%d\n",
			s.Verdict.Winner, s.Verdict.ByPower, s.Verdict.PlayerPower, s.Verdict.EnemyPower)
	}
	for _, l := range s.Log {
		fmt.Fprintf(&buf, "LOG:%s\n", l.Message)
	}
	return buf.String()
}

func writeSide(buf *bytes.Buffer, name string, v SideView) {
	fmt.Fprintf(buf, "%s:%s|%d|%d|%d\n", name, v.Faction, v.HP, v.DeckLeft, v.Power)
	for _, c := range v.Hand {
		fmt.Fprintf(buf, "HAND:%s|%s|%d\n", c.Rank, c.Council, c.Tier)
	}
	for _, lane := range v.Lanes {
		fmt.Fprintf(buf, "LANE:%s|%s|%d\n", lane.Lane, lane.Category, lane.Score)
		for _, sc := range lane.Cards {
			fmt.Fprintf(buf, "SLOT:%d|%s|%s|%d\n", sc.Slot, sc.Card.Rank, sc.Card.Council, sc.Card.Tier)
		}
	}
	fmt.Fprintf(buf, "STATS:%d|%d|%d|%d|%d\n",
		v.Stats.TotalHandsFormed, v.Stats.DamageDealt, v.Stats.DamageTaken,
		v.Stats.CardsDestroyed, v.Stats.CardsLost)
}
