package battle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrBattleNotFound is returned for unknown battle ids.
var ErrBattleNotFound = errors.New("battle not found")

// CardPoolProvider supplies the cards a player owns for a faction.
type CardPoolProvider interface {
	CardPool(ctx context.Context, owner string, faction Faction) ([]Card, error)
}

// ChangeFunc is notified after every mutation made through Do.
type ChangeFunc func(snapshot Snapshot)

type managedBattle struct {
	mu        sync.Mutex
	battle    *Battle
	owner     string
	createdAt time.Time
}

// Manager owns the live battles of a process. Each battle is only touched
// while its own lock is held, so commands for one battle are serialized while
// different battles proceed in parallel.
type Manager struct {
	battles  map[string]*managedBattle
	mu       sync.RWMutex
	pool     CardPoolProvider
	onChange ChangeFunc
	logger   *zap.Logger
}

// NewManager creates a battle manager. pool may be nil, in which case every
// player without explicit cards gets a synthetic deck.
func NewManager(logger *zap.Logger, pool CardPoolProvider) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		battles: make(map[string]*managedBattle),
		pool:    pool,
		logger:  logger,
	}
}

// OnChange registers the function notified after each mutation.
func (m *Manager) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Create builds a battle for owner, runs its setup and registers it.
func (m *Manager) Create(ctx context.Context, owner string, opts Options) (*Battle, error) {
	if len(opts.PlayerCards) == 0 && m.pool != nil && owner != "" {
		cards, err := m.pool.CardPool(ctx, owner, opts.PlayerFaction)
		if err != nil {
			return nil, fmt.Errorf("load card pool: %w", err)
		}
		opts.PlayerCards = cards
	}
	if opts.Logger == nil {
		opts.Logger = m.logger
	}

	b, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := b.Setup(); err != nil {
		return nil, err
	}

	// Once registered the battle belongs to Do, so snapshot it first.
	snapshot := b.Snapshot()

	m.mu.Lock()
	if _, exists := m.battles[b.ID()]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("battle %s already exists", b.ID())
	}
	m.battles[b.ID()] = &managedBattle{battle: b, owner: owner, createdAt: b.createdAt}
	m.mu.Unlock()

	m.logger.Info("battle created",
		zap.String("battle_id", b.ID()),
		zap.String("owner", owner),
		zap.Int("player_cards", len(opts.PlayerCards)),
	)
	m.publish(snapshot)
	return b, nil
}

// Do runs fn with exclusive access to the battle and notifies the change
// subscriber afterwards, whether or not fn failed.
func (m *Manager) Do(id string, fn func(b *Battle) error) error {
	mb, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBattleNotFound, id)
	}

	mb.mu.Lock()
	err := fn(mb.battle)
	snapshot := mb.battle.Snapshot()
	mb.mu.Unlock()

	m.publish(snapshot)
	return err
}

// View runs fn with exclusive access and without notifying.
func (m *Manager) View(id string, fn func(b *Battle)) error {
	mb, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBattleNotFound, id)
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	fn(mb.battle)
	return nil
}

// Snapshot returns the current snapshot of a battle.
func (m *Manager) Snapshot(id string) (Snapshot, error) {
	var s Snapshot
	err := m.View(id, func(b *Battle) {
		s = b.Snapshot()
	})
	return s, err
}

// Owner returns who created the battle.
func (m *Manager) Owner(id string) (string, bool) {
	mb, ok := m.lookup(id)
	if !ok {
		return "", false
	}
	return mb.owner, true
}

// Remove forgets a battle.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.battles[id]; !ok {
		return false
	}
	delete(m.battles, id)
	m.logger.Info("battle removed", zap.String("battle_id", id))
	return true
}

// IDs returns the ids of all live battles, oldest first.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type entry struct {
		id string
		at time.Time
	}
	entries := make([]entry, 0, len(m.battles))
	for id, mb := range m.battles {
		entries = append(entries, entry{id: id, at: mb.createdAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].at.Equal(entries[j].at) {
			return entries[i].id < entries[j].id
		}
		return entries[i].at.Before(entries[j].at)
	})
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}

// ActiveCount returns the number of battles that have not ended.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	all := make([]*managedBattle, 0, len(m.battles))
	for _, mb := range m.battles {
		all = append(all, mb)
	}
	m.mu.RUnlock()

	count := 0
	for _, mb := range all {
		mb.mu.Lock()
		if mb.battle.Phase() != PhaseEnded {
			count++
		}
		mb.mu.Unlock()
	}
	return count
}

func (m *Manager) lookup(id string) (*managedBattle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mb, ok := m.battles[id]
	return mb, ok
}

func (m *Manager) publish(snapshot Snapshot) {
	m.mu.RLock()
	fn := m.onChange
	m.mu.RUnlock()
	if fn != nil {
		fn(snapshot)
	}
}
