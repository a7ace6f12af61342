package battle

import "math/rand/v2"

// Coin is a face of the first-turn coin.
type Coin int

const (
	CoinNone Coin = iota
	CoinSpade
	CoinHeart
)

func (c Coin) String() string {
	switch c {
	case CoinSpade:
		return "spade"
	case CoinHeart:
		return "heart"
	default:
		return "none"
	}
}

// CoinToss records how the first placing side was decided.
type CoinToss struct {
	Call      Coin
	Result    Coin
	Won       bool
	FirstTurn Side
}

// FlipCoin tosses a fair coin.
func FlipCoin(rng *rand.Rand) Coin {
	if rng.IntN(2) == 0 {
		return CoinSpade
	}
	return CoinHeart
}

// DecideFirstTurn tosses the coin against the player's call. A player who
// wins the call takes choice (player when unset); a loss hands the enemy the
// first turn. Without a call one is made at random for the player.
func DecideFirstTurn(rng *rand.Rand, call Coin, choice Side) CoinToss {
	if call == CoinNone {
		call = FlipCoin(rng)
	}
	result := FlipCoin(rng)
	toss := CoinToss{Call: call, Result: result, Won: call == result}
	switch {
	case !toss.Won:
		toss.FirstTurn = SideEnemy
	case choice == SideEnemy:
		toss.FirstTurn = SideEnemy
	default:
		toss.FirstTurn = SidePlayer
	}
	return toss
}
