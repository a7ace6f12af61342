package battle

import (
	"fmt"
	"strings"
)

// Lane is one of the three combat positions.
type Lane int

const (
	LaneFront Lane = iota
	LaneMid
	LaneBack
)

// Lanes lists the lanes in resolution order.
var Lanes = [...]Lane{LaneFront, LaneMid, LaneBack}

var laneNames = map[Lane]string{
	LaneFront: "front",
	LaneMid:   "mid",
	LaneBack:  "back",
}

func (l Lane) String() string {
	if name, ok := laneNames[l]; ok {
		return name
	}
	return fmt.Sprintf("lane_%d", int(l))
}

// Valid reports whether l is front, mid or back.
func (l Lane) Valid() bool {
	_, ok := laneNames[l]
	return ok
}

// ParseLane resolves "front", "mid" or "back".
func ParseLane(s string) (Lane, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, l := range Lanes {
		if l.String() == needle {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLane, s)
}

// RowCapacity is the number of addressable slots in a row.
const RowCapacity = 10

// Row holds the cards one side has placed in one lane, addressed by slot.
type Row struct {
	slots [RowCapacity]*Card
	count int
}

// Count returns the number of occupied slots.
func (r *Row) Count() int {
	return r.count
}

// Full reports whether all slots are occupied.
func (r *Row) Full() bool {
	return r.count >= RowCapacity
}

// At returns the card in slot, if any.
func (r *Row) At(slot int) (Card, bool) {
	if slot < 0 || slot >= RowCapacity || r.slots[slot] == nil {
		return Card{}, false
	}
	return *r.slots[slot], true
}

// Occupied reports whether slot holds a card.
func (r *Row) Occupied(slot int) bool {
	_, ok := r.At(slot)
	return ok
}

// FirstFree returns the lowest free slot, or -1 when the row is full.
func (r *Row) FirstFree() int {
	for i, c := range r.slots {
		if c == nil {
			return i
		}
	}
	return -1
}

// put stores c at slot. Callers validate the slot first.
func (r *Row) put(slot int, c Card) {
	card := c
	r.slots[slot] = &card
	r.count++
}

// Cards returns the placed cards in slot order.
func (r *Row) Cards() []Card {
	out := make([]Card, 0, r.count)
	for _, c := range r.slots {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// Slots returns the occupied slot indices in ascending order.
func (r *Row) Slots() []int {
	out := make([]int, 0, r.count)
	for i, c := range r.slots {
		if c != nil {
			out = append(out, i)
		}
	}
	return out
}

// Clear empties the row.
func (r *Row) Clear() {
	*r = Row{}
}

// Reset replaces the row contents with cards compacted into slots 0..n-1.
func (r *Row) Reset(cards []Card) {
	r.Clear()
	for i, c := range cards {
		if i >= RowCapacity {
			break
		}
		r.put(i, c)
	}
}

// Rows is one side's three lanes.
type Rows [3]Row

// Get returns the row for lane.
func (rs *Rows) Get(l Lane) *Row {
	return &rs[l]
}

// HasCapacity reports whether any lane has a free slot.
func (rs *Rows) HasCapacity() bool {
	for i := range rs {
		if !rs[i].Full() {
			return true
		}
	}
	return false
}

// OpenLanes returns the lanes with at least one free slot.
func (rs *Rows) OpenLanes() []Lane {
	out := make([]Lane, 0, len(Lanes))
	for _, l := range Lanes {
		if !rs[l].Full() {
			out = append(out, l)
		}
	}
	return out
}

// Clear empties every lane.
func (rs *Rows) Clear() {
	for i := range rs {
		rs[i].Clear()
	}
}

// Total returns the number of placed cards across lanes.
func (rs *Rows) Total() int {
	n := 0
	for i := range rs {
		n += rs[i].count
	}
	return n
}
