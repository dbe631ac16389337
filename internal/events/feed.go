package events

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The engine sits behind a pre-vetted internal surface; origin checks
	// belong to the fronting proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// JournalHandler serves the full event journal as JSON.
func (c *Collector) JournalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(c.Journal()); err != nil {
			c.logger.Error("Failed to encode event journal", slog.String("error", err.Error()))
		}
	}
}

// FeedHandler upgrades the connection to a websocket and streams events as
// they are recorded.
func (c *Collector) FeedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			c.logger.Warn("Websocket upgrade failed", slog.String("error", err.Error()))
			return
		}
		defer conn.Close()

		sub := c.Subscribe()
		defer c.Unsubscribe(sub)

		// Discard inbound frames, but notice the close handshake.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case event, ok := <-sub:
				if !ok {
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					return
				}
			case <-done:
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}
