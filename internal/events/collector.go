package events

import (
	"context"
	"log/slog"
	"sync"
)

// Collector receives events on a buffered channel, appends them to an
// in-memory journal, and fans them out to live subscribers. Emission is
// non-blocking so the flow path never stalls on observers.
type Collector struct {
	eventCh     chan Event
	logger      *slog.Logger
	mutex       sync.RWMutex
	journal     []Event
	subscribers map[chan Event]struct{}
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh:     make(chan Event, bufferSize),
		logger:      logger,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Emit queues an event without blocking. A full buffer drops the event and
// logs it; the journal is best-effort observability, not the ledger of
// record.
func (c *Collector) Emit(event Event) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("Event buffer full, dropping event",
			slog.String("type", string(event.Type)),
			slog.String("id", event.ID))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Event collector started")
	defer c.logger.Info("Event collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.process(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.process(event)
		default:
			return
		}
	}
}

func (c *Collector) process(event Event) {
	c.mutex.Lock()
	c.journal = append(c.journal, event)
	for sub := range c.subscribers {
		select {
		case sub <- event:
		default:
			// Slow subscriber; it catches up from the journal.
		}
	}
	c.mutex.Unlock()

	c.logger.Info("Event recorded",
		slog.String("type", string(event.Type)),
		slog.String("asset", event.Asset),
		slog.String("account", event.Account),
		slog.String("amount", event.Amount))
}

// Journal returns a copy of every event recorded so far, in order.
func (c *Collector) Journal() []Event {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	journal := make([]Event, len(c.journal))
	copy(journal, c.journal)
	return journal
}

// Subscribe registers a live event channel. The caller must Unsubscribe
// when done.
func (c *Collector) Subscribe() chan Event {
	sub := make(chan Event, 64)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.subscribers[sub] = struct{}{}
	return sub
}

func (c *Collector) Unsubscribe(sub chan Event) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, ok := c.subscribers[sub]; ok {
		delete(c.subscribers, sub)
		close(sub)
	}
}
