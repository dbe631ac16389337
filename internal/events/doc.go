// Package events records the engine's observable events for external
// indexers.
//
// It uses a channel-based pipeline: entry points emit events via a buffered
// channel with non-blocking semantics, a dedicated goroutine appends them to
// an in-memory journal and fans them out to websocket subscribers. The
// collector drains pending events on shutdown so the journal is not
// truncated by a graceful stop.
//
// Example usage:
//
//	collector := events.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	ev := events.New(events.EventInflowObserved)
//	ev.Asset = "token:0xabc"
//	ev.Amount = "1000"
//	collector.Emit(ev)
//
// Indexers reconstruct state from GET /events (journal) or follow
// /events/feed (websocket) for live updates.
package events
