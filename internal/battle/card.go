package battle

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Faction is one of the four symbolic suits a card belongs to.
type Faction int

const (
	FactionHearts Faction = iota
	FactionDiamonds
	FactionClubs
	FactionSpades
)

// Factions lists every faction in table order.
var Factions = []Faction{FactionHearts, FactionDiamonds, FactionClubs, FactionSpades}

type factionInfo struct {
	name   string
	symbol string
	spire  string
}

var factionTable = map[Faction]factionInfo{
	FactionHearts:   {"Hearts", "♥", "Crimson Spire"},
	FactionDiamonds: {"Diamonds", "♦", "Golden Spire"},
	FactionClubs:    {"Clubs", "♣", "Shadow Spire"},
	FactionSpades:   {"Spades", "♠", "Iron Spire"},
}

func (f Faction) String() string {
	if info, ok := factionTable[f]; ok {
		return info.name
	}
	return fmt.Sprintf("FACTION_%d", int(f))
}

// Symbol returns the suit glyph of the faction.
func (f Faction) Symbol() string {
	return factionTable[f].symbol
}

// Spire returns the faction's home spire name.
func (f Faction) Spire() string {
	return factionTable[f].spire
}

// Valid reports whether f is one of the four factions.
func (f Faction) Valid() bool {
	_, ok := factionTable[f]
	return ok
}

// ParseFaction resolves a faction by name, case-insensitively.
func ParseFaction(name string) (Faction, error) {
	needle := strings.TrimSpace(name)
	for _, f := range Factions {
		if strings.EqualFold(needle, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown faction %q", name)
}

// Rank is a card rank. Its numeric value is the rank's combat value (2..14).
type Rank int

const (
	RankTwo   Rank = 2
	RankThree Rank = 3
	RankFour  Rank = 4
	RankFive  Rank = 5
	RankSix   Rank = 6
	RankSeven Rank = 7
	RankEight Rank = 8
	RankNine  Rank = 9
	RankTen   Rank = 10
	RankJack  Rank = 11
	RankQueen Rank = 12
	RankKing  Rank = 13
	RankAce   Rank = 14
)

// Ranks lists the thirteen ranks from low to high.
var Ranks = []Rank{
	RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven, RankEight,
	RankNine, RankTen, RankJack, RankQueen, RankKing, RankAce,
}

var rankLabels = map[Rank]string{
	RankJack:  "J",
	RankQueen: "Q",
	RankKing:  "K",
	RankAce:   "A",
}

// Value returns the rank's numeric value (2..10 literal, J=11, Q=12, K=13, A=14).
func (r Rank) Value() int {
	if !r.Valid() {
		return 0
	}
	return int(r)
}

// Valid reports whether r is a playable rank.
func (r Rank) Valid() bool {
	return r >= RankTwo && r <= RankAce
}

func (r Rank) String() string {
	if label, ok := rankLabels[r]; ok {
		return label
	}
	if r.Valid() {
		return fmt.Sprintf("%d", int(r))
	}
	return fmt.Sprintf("RANK_%d", int(r))
}

// ParseRank parses "2".."10", "J", "Q", "K" or "A".
func ParseRank(s string) (Rank, error) {
	label := strings.ToUpper(strings.TrimSpace(s))
	for _, r := range Ranks {
		if r.String() == label {
			return r, nil
		}
	}
	return 0, fmt.Errorf("invalid rank %q", s)
}

// Council is the optional sub-group tag used for five-of-a-kind-by-group.
type Council int

const (
	CouncilNone Council = iota
	CouncilNorth
	CouncilSouth
	CouncilEast
	CouncilWest
)

// Councils lists the four real councils.
var Councils = []Council{CouncilNorth, CouncilSouth, CouncilEast, CouncilWest}

var councilNames = map[Council]string{
	CouncilNone:  "",
	CouncilNorth: "North Council",
	CouncilSouth: "South Council",
	CouncilEast:  "East Council",
	CouncilWest:  "West Council",
}

func (c Council) String() string {
	if name, ok := councilNames[c]; ok {
		return name
	}
	return fmt.Sprintf("COUNCIL_%d", int(c))
}

// ParseCouncil accepts "North", "north council" and so on. Empty input yields CouncilNone.
func ParseCouncil(s string) (Council, error) {
	needle := strings.TrimSpace(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "council"))
	if needle == "" {
		return CouncilNone, nil
	}
	for _, c := range Councils {
		if strings.HasPrefix(strings.ToLower(c.String()), needle) {
			return c, nil
		}
	}
	return CouncilNone, fmt.Errorf("unknown council %q", s)
}

// MaxPromotionTier is the highest star tier ("Elite").
const MaxPromotionTier = 6

// PromotionLevel describes a promotion tier and its unlock requirement.
type PromotionLevel struct {
	Stars           int
	BattlesRequired int
	Name            string
}

// PromotionLevels is indexed by star tier.
var PromotionLevels = []PromotionLevel{
	{Stars: 0, BattlesRequired: 0, Name: "Common"},
	{Stars: 1, BattlesRequired: 10, Name: "1-Star"},
	{Stars: 2, BattlesRequired: 20, Name: "2-Star"},
	{Stars: 3, BattlesRequired: 30, Name: "3-Star"},
	{Stars: 4, BattlesRequired: 40, Name: "4-Star"},
	{Stars: 5, BattlesRequired: 50, Name: "5-Star"},
	{Stars: 6, BattlesRequired: 60, Name: "Elite"},
}

// Card is immutable for the duration of a battle.
type Card struct {
	ID      string
	Faction Faction
	Rank    Rank
	Council Council
	Tier    int
}

// NewCard creates a card with a fresh identity. Tier is clamped to 0..MaxPromotionTier.
func NewCard(faction Faction, rank Rank, council Council, tier int) Card {
	if tier < 0 {
		tier = 0
	}
	if tier > MaxPromotionTier {
		tier = MaxPromotionTier
	}
	return Card{
		ID:      uuid.NewString(),
		Faction: faction,
		Rank:    rank,
		Council: council,
		Tier:    tier,
	}
}

// Value returns the rank's numeric value.
func (c Card) Value() int {
	return c.Rank.Value()
}

// ScoreBonus is the flat lane score contribution of the promotion tier.
func (c Card) ScoreBonus() int {
	return c.Tier * 5
}

// PowerBonus is the tier's contribution to power, used only for tie-breaks.
func (c Card) PowerBonus() int {
	return c.Tier * 2
}

// Power returns rank value plus promotion power bonus.
func (c Card) Power() int {
	return c.Value() + c.PowerBonus()
}

// Promotion returns the card's promotion level.
func (c Card) Promotion() PromotionLevel {
	if c.Tier < 0 || c.Tier >= len(PromotionLevels) {
		return PromotionLevels[0]
	}
	return PromotionLevels[c.Tier]
}

func (c Card) String() string {
	s := c.Rank.String() + c.Faction.Symbol()
	if c.Tier > 0 {
		s += fmt.Sprintf("*%d", c.Tier)
	}
	return s
}
