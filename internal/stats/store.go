package stats

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalidEntity is returned for character ids outside the known set.
	ErrInvalidEntity = errors.New("invalid entity")
	// ErrInvalidStatistic is returned for unknown counter kinds.
	ErrInvalidStatistic = errors.New("invalid statistic")
)

// Store owns the counters of the current game.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore creates a store with every counter at zero.
func NewStore() *Store {
	return &Store{state: NewState()}
}

// Reset sets every counter back to zero.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = NewState()
}

// ApplyKill records that by killed killed. Both counter sets are updated
// before the call returns. The returned keys are the attacker's kill subtype,
// the attacker's kills and the victim's deaths. The engine logs the subtype
// but reports the wider KillFilter, which also covers the unchanged subtype.
//
// A character killing itself is counted like any other kill.
func (s *Store) ApplyKill(by, killed Entity) ([]Key, error) {
	if !by.Valid() {
		return nil, fmt.Errorf("attacker %d: %w", int(by), ErrInvalidEntity)
	}
	if !killed.Valid() {
		return nil, fmt.Errorf("victim %d: %w", int(killed), ErrInvalidEntity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subtype := OtherKills
	if killed.IsQueen() {
		subtype = QueenKills
	}

	s.state[by][Kills]++
	s.state[by][subtype]++
	s.state[killed][Deaths]++

	return []Key{
		{Entity: by, Statistic: subtype},
		{Entity: by, Statistic: Kills},
		{Entity: killed, Statistic: Deaths},
	}, nil
}

// Value returns the current value of one counter.
func (s *Store) Value(e Entity, stat Statistic) (int, error) {
	if !e.Valid() {
		return 0, fmt.Errorf("entity %d: %w", int(e), ErrInvalidEntity)
	}
	if !stat.Valid() {
		return 0, fmt.Errorf("statistic %q: %w", string(stat), ErrInvalidStatistic)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state[e][stat], nil
}

// Snapshot returns a copy of all counters.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Copy()
}
