package battle

import (
	"fmt"
	"strings"
)

// Phase is the scheduler state.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseDrawing
	PhasePlacing
	PhaseBattling
	PhaseResolved
	PhaseEnded
)

var phaseNames = map[Phase]string{
	PhaseSetup:    "SETUP",
	PhaseDrawing:  "DRAWING",
	PhasePlacing:  "PLACING",
	PhaseBattling: "BATTLING",
	PhaseResolved: "RESOLVED",
	PhaseEnded:    "ENDED",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Side identifies one of the two combatants.
type Side int

const (
	SideNone Side = iota
	SidePlayer
	SideEnemy
)

func (s Side) String() string {
	switch s {
	case SidePlayer:
		return "player"
	case SideEnemy:
		return "enemy"
	default:
		return "none"
	}
}

// Title returns the capitalized side name used in log lines.
func (s Side) Title() string {
	switch s {
	case SidePlayer:
		return "Player"
	case SideEnemy:
		return "Enemy"
	default:
		return "None"
	}
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	switch s {
	case SidePlayer:
		return SideEnemy
	case SideEnemy:
		return SidePlayer
	default:
		return SideNone
	}
}

// ParseSide resolves "player" or "enemy".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "player":
		return SidePlayer, nil
	case "enemy":
		return SideEnemy, nil
	default:
		return SideNone, fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// Outcome is the final verdict of a battle.
type Outcome int

const (
	OutcomeUndecided Outcome = iota
	OutcomePlayer
	OutcomeEnemy
	OutcomeDraw
)

func (o Outcome) String() string {
	switch o {
	case OutcomePlayer:
		return "player"
	case OutcomeEnemy:
		return "enemy"
	case OutcomeDraw:
		return "draw"
	default:
		return "undecided"
	}
}
