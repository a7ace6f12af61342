package battle

import "fmt"

// HandCategory is the evaluated poker-style category of a row.
// Higher values rank higher.
type HandCategory int

const (
	HandHighCard HandCategory = iota
	HandOnePair
	HandTwoPair
	HandThreeOfAKind
	HandFullHouse
	HandFourOfAKind
	HandFiveOfAKind
)

// HandCategories lists every category from strongest to weakest, which is the
// order in which a row is tested.
var HandCategories = []HandCategory{
	HandFiveOfAKind,
	HandFourOfAKind,
	HandFullHouse,
	HandThreeOfAKind,
	HandTwoPair,
	HandOnePair,
	HandHighCard,
}

var handNames = map[HandCategory]string{
	HandHighCard:     "High Card",
	HandOnePair:      "One Pair",
	HandTwoPair:      "Two Pair",
	HandThreeOfAKind: "Three of a Kind",
	HandFullHouse:    "Full House",
	HandFourOfAKind:  "Four of a Kind",
	HandFiveOfAKind:  "Five of a Kind",
}

var handBonus = map[HandCategory]int{
	HandHighCard:     0,
	HandOnePair:      50,
	HandTwoPair:      100,
	HandThreeOfAKind: 200,
	HandFullHouse:    300,
	HandFourOfAKind:  500,
	HandFiveOfAKind:  1000,
}

func (h HandCategory) String() string {
	if name, ok := handNames[h]; ok {
		return name
	}
	return fmt.Sprintf("HAND_%d", int(h))
}

// Bonus returns the flat score bonus of the category.
func (h HandCategory) Bonus() int {
	return handBonus[h]
}

// Beats reports whether h ranks strictly above other.
func (h HandCategory) Beats(other HandCategory) bool {
	return h > other
}

// Evaluation is the result of evaluating one row.
type Evaluation struct {
	Category HandCategory
	Score    int
	Cards    int
}

// Empty reports whether the evaluated row had no cards.
func (e Evaluation) Empty() bool {
	return e.Cards == 0
}

// EvaluateLane classifies cards into a hand category and scores them.
// The score is the sum of rank values and tier bonuses plus the bonus of the
// single strongest matching category. An empty row is High Card with score 0.
// The result does not depend on card order.
func EvaluateLane(cards []Card) Evaluation {
	if len(cards) == 0 {
		return Evaluation{Category: HandHighCard}
	}

	base := 0
	rankCounts := make(map[Rank]int, len(cards))
	councilCounts := make(map[Council]int, len(Councils))
	for _, c := range cards {
		base += c.Value() + c.ScoreBonus()
		rankCounts[c.Rank]++
		if c.Council != CouncilNone {
			councilCounts[c.Council]++
		}
	}

	category := classify(rankCounts, councilCounts)
	return Evaluation{
		Category: category,
		Score:    base + category.Bonus(),
		Cards:    len(cards),
	}
}

func classify(rankCounts map[Rank]int, councilCounts map[Council]int) HandCategory {
	for _, n := range councilCounts {
		if n >= 5 {
			return HandFiveOfAKind
		}
	}

	var quads, trips, pairs int
	for _, n := range rankCounts {
		switch {
		case n >= 4:
			quads++
		case n == 3:
			trips++
		case n == 2:
			pairs++
		}
	}

	switch {
	case quads > 0:
		return HandFourOfAKind
	case trips > 0 && pairs > 0:
		return HandFullHouse
	case trips > 0:
		return HandThreeOfAKind
	case pairs == 2:
		return HandTwoPair
	case pairs > 0:
		return HandOnePair
	default:
		return HandHighCard
	}
}

// CalculateRowScore returns the power of a row used for the end-of-battle
// tie-break: the evaluated score plus each card's promotion power bonus.
func CalculateRowScore(cards []Card) int {
	power := EvaluateLane(cards).Score
	for _, c := range cards {
		power += c.PowerBonus()
	}
	return power
}
