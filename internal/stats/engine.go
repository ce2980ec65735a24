package stats

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kqstats/stats-server-go/internal/feed"
	"go.uber.org/zap"
)

// EventType names a subscribable engine event.
type EventType string

// EventChange is fired once per counter reported by a dispatch pass.
const EventChange EventType = "change"

var (
	// ErrUnsupportedEventType is returned by Subscribe and Unsubscribe for
	// event types other than EventChange.
	ErrUnsupportedEventType = errors.New("unsupported event type")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("engine already started")
	// ErrNoSource is returned by Start when the engine has no feed to attach to.
	ErrNoSource = errors.New("engine has no event source")
)

// EngineState is the lifecycle state of an Engine.
type EngineState int

const (
	EngineStateIdle EngineState = iota
	EngineStateActive
)

func (s EngineState) String() string {
	switch s {
	case EngineStateIdle:
		return "IDLE"
	case EngineStateActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// Source delivers feed events to the engine.
type Source interface {
	Subscribe(eventType feed.EventType, handler feed.Handler) int
}

// Engine aggregates kill statistics for one game and notifies change
// subscribers. Feed events are handled one at a time; callbacks run on the
// goroutine that delivered the event, after the store update is complete.
//
// Callbacks may call Subscribe, Unsubscribe, Value, Snapshot and State. They
// must not publish feed events synchronously.
type Engine struct {
	source   Source
	logger   *zap.Logger
	store    *Store
	registry *Registry

	mu    sync.Mutex // serializes event handling
	state atomic.Int32
}

// NewEngine creates an idle engine reading from source. Start fails with
// ErrNoSource if source is nil.
func NewEngine(source Source, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		source:   source,
		logger:   logger,
		store:    NewStore(),
		registry: NewRegistry(),
	}
}

// Subscribe registers callback for eventType and returns its subscription id.
func (e *Engine) Subscribe(eventType EventType, callback Callback) (string, error) {
	if eventType != EventChange {
		return "", fmt.Errorf("subscribe %q: %w", string(eventType), ErrUnsupportedEventType)
	}
	if callback == nil {
		return "", errors.New("subscribe: nil callback")
	}
	return e.registry.Add(callback), nil
}

// Unsubscribe removes one subscription. It reports false if id was not live.
func (e *Engine) Unsubscribe(eventType EventType, id string) (bool, error) {
	if eventType != EventChange {
		return false, fmt.Errorf("unsubscribe %q: %w", string(eventType), ErrUnsupportedEventType)
	}
	return e.registry.Remove(id), nil
}

// UnsubscribeAll removes every subscription of eventType and reports
// whether there were any.
func (e *Engine) UnsubscribeAll(eventType EventType) (bool, error) {
	if eventType != EventChange {
		return false, fmt.Errorf("unsubscribe %q: %w", string(eventType), ErrUnsupportedEventType)
	}
	return e.registry.RemoveAll(), nil
}

// Start resets the counters, broadcasts them, and attaches to the feed.
// The engine reports EngineStateActive from the start of the broadcast.
func (e *Engine) Start() error {
	if e.source == nil {
		return ErrNoSource
	}
	if !e.state.CompareAndSwap(int32(EngineStateIdle), int32(EngineStateActive)) {
		return ErrAlreadyStarted
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.reset()
	e.source.Subscribe(feed.EventReset, e.handleReset)
	e.source.Subscribe(feed.EventKill, e.handleKill)

	e.logger.Info("stats engine started", zap.Int("subscribers", e.registry.Len()))
	return nil
}

// State returns the lifecycle state.
func (e *Engine) State() EngineState {
	return EngineState(e.state.Load())
}

// Snapshot returns a copy of the current counters.
func (e *Engine) Snapshot() State {
	return e.store.Snapshot()
}

// Value returns the current value of one counter.
func (e *Engine) Value(entity Entity, stat Statistic) (int, error) {
	return e.store.Value(entity, stat)
}

func (e *Engine) handleReset(feed.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug("resetting stats")
	e.reset()
	return nil
}

func (e *Engine) handleKill(event feed.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	by, killed := Entity(event.Kill.By), Entity(event.Kill.Killed)
	changed, err := e.store.ApplyKill(by, killed)
	if err != nil {
		return fmt.Errorf("apply kill: %w", err)
	}

	e.logger.Debug("kill recorded",
		zap.Stringer("by", by),
		zap.Stringer("killed", killed),
		zap.String("subtype", string(changed[0].Statistic)),
	)
	Dispatch(KillFilter(by, killed), e.store, e.registry)
	return nil
}

// reset must be called with e.mu held.
func (e *Engine) reset() {
	e.store.Reset()
	Dispatch(DefaultFilter(), e.store, e.registry)
}
