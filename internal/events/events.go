package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAssetRegistered    EventType = "asset_registered"
	EventAssetUpdated       EventType = "asset_updated"
	EventInflowObserved     EventType = "inflow_observed"
	EventRateLimitBreached  EventType = "rate_limit_breached"
	EventFundsWithdrawn     EventType = "funds_withdrawn"
	EventFundsLocked        EventType = "funds_locked"
	EventFundsClaimed       EventType = "funds_claimed"
	EventAdminChanged       EventType = "admin_changed"
	EventGracePeriodStarted EventType = "grace_period_started"
	EventRateLimitCleared   EventType = "rate_limit_cleared"
	EventFundsMigrated      EventType = "funds_migrated"
)

// Event is one observable state change, shaped so an external indexer can
// reconstruct engine state from the journal alone. Amount is a decimal
// string to survive JSON number precision limits.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Asset     string    `json:"asset,omitempty"`
	Account   string    `json:"account,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// New stamps an event with a fresh ID and the current time.
func New(eventType EventType) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}
