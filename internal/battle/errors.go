package battle

import "errors"

// Placement and scheduling errors. All of them are recoverable: the state is
// left untouched and the caller may retry with corrected input.
var (
	ErrInvalidIndex = errors.New("invalid index")
	ErrInvalidLane  = errors.New("invalid lane")
	ErrLaneFull     = errors.New("lane is full")
	ErrSlotOccupied = errors.New("slot is occupied")
	ErrNotReady     = errors.New("operation not allowed in current phase")
	ErrInvalidSide  = errors.New("invalid side")
)
