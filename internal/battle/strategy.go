package battle

import (
	"fmt"
	"math/rand/v2"
)

// AutoSlot asks PlaceCard for the lowest free slot.
const AutoSlot = -1

// Placement is a proposed move from the holding area into a row.
type Placement struct {
	HandIndex int
	Lane      Lane
	Slot      int
}

// PlacementView is the read-only information a strategy decides on.
type PlacementView struct {
	Side     Side
	Round    int
	Hand     []Card
	Own      Rows
	Opponent Rows
}

// PlacementStrategy proposes the next placement for a side. ok is false when
// the strategy declines to place anything.
type PlacementStrategy interface {
	ProposePlacement(view PlacementView) (p Placement, ok bool)
}

// RandomStrategy places the first held card into a lane chosen uniformly among
// lanes with free capacity.
type RandomStrategy struct {
	rng *rand.Rand
}

// NewRandomStrategy returns a random strategy drawing from rng.
func NewRandomStrategy(rng *rand.Rand) *RandomStrategy {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomStrategy{rng: rng}
}

// ProposePlacement implements PlacementStrategy.
func (s *RandomStrategy) ProposePlacement(view PlacementView) (Placement, bool) {
	if len(view.Hand) == 0 {
		return Placement{}, false
	}
	open := view.Own.OpenLanes()
	if len(open) == 0 {
		return Placement{}, false
	}
	return Placement{HandIndex: 0, Lane: open[s.rng.IntN(len(open))], Slot: AutoSlot}, true
}

// SequenceStrategy cycles through a fixed lane order, skipping full lanes.
// It makes AI placement reproducible in tests.
type SequenceStrategy struct {
	lanes []Lane
	next  int
}

// NewSequenceStrategy returns a strategy cycling through lanes. With no lanes
// it cycles front, mid, back.
func NewSequenceStrategy(lanes ...Lane) *SequenceStrategy {
	if len(lanes) == 0 {
		lanes = Lanes[:]
	}
	return &SequenceStrategy{lanes: append([]Lane(nil), lanes...)}
}

// ProposePlacement implements PlacementStrategy.
func (s *SequenceStrategy) ProposePlacement(view PlacementView) (Placement, bool) {
	if len(view.Hand) == 0 {
		return Placement{}, false
	}
	for range s.lanes {
		lane := s.lanes[s.next%len(s.lanes)]
		s.next++
		if lane.Valid() && !view.Own.Get(lane).Full() {
			return Placement{HandIndex: 0, Lane: lane, Slot: AutoSlot}, true
		}
	}
	return Placement{}, false
}

// GreedyStrategy places the card and lane pair that raises a row's score the
// most. Ties go to the earlier card, then the earlier lane.
type GreedyStrategy struct{}

// ProposePlacement implements PlacementStrategy.
func (GreedyStrategy) ProposePlacement(view PlacementView) (Placement, bool) {
	best := Placement{}
	bestGain, found := 0, false
	for _, lane := range view.Own.OpenLanes() {
		row := view.Own.Get(lane).Cards()
		before := EvaluateLane(row).Score
		for i, c := range view.Hand {
			gain := EvaluateLane(append(row[:len(row):len(row)], c)).Score - before
			if !found || gain > bestGain || (gain == bestGain && i < best.HandIndex) {
				best = Placement{HandIndex: i, Lane: lane, Slot: AutoSlot}
				bestGain, found = gain, true
			}
		}
	}
	return best, found
}

// StrategyByName builds one of the built-in strategies: "random", "greedy"
// or "sequence".
func StrategyByName(name string, rng *rand.Rand) (PlacementStrategy, error) {
	switch name {
	case "random", "":
		return NewRandomStrategy(rng), nil
	case "greedy":
		return GreedyStrategy{}, nil
	case "sequence":
		return NewSequenceStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown placement strategy %q", name)
	}
}
