package battle

import (
	"sync"
	"time"
)

// EventType indicates the category of a battle event.
type EventType string

const (
	EventBattleStarted  EventType = "BATTLE_STARTED"
	EventRoundStarted   EventType = "ROUND_STARTED"
	EventHandStarted    EventType = "HAND_STARTED"
	EventCardsDealt     EventType = "CARDS_DEALT"
	EventCardPlaced     EventType = "CARD_PLACED"
	EventPlacingDone    EventType = "PLACING_DONE"
	EventBoardCleared   EventType = "BOARD_CLEARED"
	EventCombatResolved EventType = "COMBAT_RESOLVED"
	EventBattleEnded    EventType = "BATTLE_ENDED"
	EventBattleReset    EventType = "BATTLE_RESET"
)

// Event describes something that happened inside a battle.
type Event struct {
	Type      EventType
	BattleID  string
	Round     int
	Hand      int
	Side      Side
	Lane      Lane
	Slot      int
	Card      *Card
	Combat    *CombatResult
	Outcome   Outcome
	Timestamp time.Time
}

// Listener receives published events.
type Listener func(Event)

type typedListener struct {
	handle   int
	callback Listener
}

// EventBus fans events out to listeners synchronously, in subscription order.
type EventBus struct {
	mu             sync.RWMutex
	nextHandle     int
	listeners      []typedListener
	typedListeners map[EventType][]typedListener
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{
		nextHandle:     1,
		typedListeners: make(map[EventType][]typedListener),
	}
}

// Subscribe registers a listener for every event and returns its handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners = append(bus.listeners, typedListener{handle: handle, callback: listener})
	return handle
}

// SubscribeTyped registers a listener for one event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], typedListener{handle: handle, callback: listener})
	return handle
}

// Unsubscribe removes the listener identified by handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.listeners = removeHandle(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		bus.typedListeners[eventType] = removeHandle(listeners, handle)
	}
}

// Publish delivers event to every matching listener.
func (bus *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	bus.mu.RLock()
	listeners := append([]typedListener(nil), bus.listeners...)
	listeners = append(listeners, bus.typedListeners[event.Type]...)
	bus.mu.RUnlock()

	for _, l := range listeners {
		l.callback(event)
	}
}

func removeHandle(listeners []typedListener, handle int) []typedListener {
	for i := len(listeners) - 1; i >= 0; i-- {
		if listeners[i].handle == handle {
			return append(listeners[:i], listeners[i+1:]...)
		}
	}
	return listeners
}
