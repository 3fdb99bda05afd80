// Package messaging implements the event bus that connects progress changes
// to achievement evaluation. Single-instance deployments use the in-memory
// bus; the engine's correctness never depends on delivery because the worker
// sweep re-evaluates out of band.
package messaging

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ErrEventBusClosed is returned when publishing or subscribing on a closed bus.
var ErrEventBusClosed = errors.New("messaging: event bus is closed")

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus implements shared.EventBus for single-process deployments
// and tests. In async mode handlers run on a bounded worker pool; in sync
// mode Publish returns after every handler ran, which the tests rely on.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	asyncMode   bool
	workerPool  chan struct{}
	logger      *slog.Logger
	metrics     *Metrics
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// BusConfig contains configuration for InMemoryEventBus.
type BusConfig struct {
	// AsyncMode runs handlers on the worker pool instead of inline.
	AsyncMode bool

	// WorkerPoolSize bounds concurrent async handlers.
	WorkerPoolSize int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultBusConfig returns sensible defaults.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 8,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config BusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 8
	}

	return &InMemoryEventBus{
		handlers:   make(map[shared.EventType][]shared.EventHandler),
		asyncMode:  config.AsyncMode,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		logger:     config.Logger,
		metrics:    NewMetrics(),
		closeCh:    make(chan struct{}),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish sends an event to all subscribed handlers.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	b.metrics.recordPublish(event.EventType())
	if len(handlers) == 0 {
		return nil
	}

	for _, handler := range handlers {
		if b.asyncMode {
			b.executeAsync(event, handler)
			continue
		}
		if err := b.execute(event, handler); err != nil {
			b.logger.Error("event handler error",
				"event_type", event.EventType(),
				"error", err,
			)
		}
	}
	return nil
}

func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		select {
		case b.workerPool <- struct{}{}:
			defer func() { <-b.workerPool }()
		case <-b.closeCh:
			return
		}

		if err := b.execute(event, handler); err != nil {
			b.logger.Error("async event handler error",
				"event_type", event.EventType(),
				"error", err,
			)
		}
	}()
}

func (b *InMemoryEventBus) execute(event shared.Event, handler shared.EventHandler) error {
	start := time.Now()
	err := handler(event)
	b.metrics.recordHandler(event.EventType(), time.Since(start), err == nil)
	return err
}

// Close shuts the bus down, waiting for in-flight handlers.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("event bus closed")
	return nil
}

// Metrics returns the bus metrics.
func (b *InMemoryEventBus) Metrics() *Metrics {
	return b.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// Metrics tracks per-event-type publish and handler counters.
type Metrics struct {
	mu        sync.Mutex
	published map[shared.EventType]int64
	handled   map[shared.EventType]int64
	failed    map[shared.EventType]int64
	totalTime map[shared.EventType]time.Duration
}

// NewMetrics creates empty metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		published: make(map[shared.EventType]int64),
		handled:   make(map[shared.EventType]int64),
		failed:    make(map[shared.EventType]int64),
		totalTime: make(map[shared.EventType]time.Duration),
	}
}

func (m *Metrics) recordPublish(t shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[t]++
}

func (m *Metrics) recordHandler(t shared.EventType, d time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handled[t]++
	m.totalTime[t] += d
	if !ok {
		m.failed[t]++
	}
}

// Published returns how many events of a type were published.
func (m *Metrics) Published(t shared.EventType) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.published[t]
}

// Failed returns how many handler invocations for a type errored.
func (m *Metrics) Failed(t shared.EventType) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed[t]
}
