package gateway

import (
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/defiguard/flowbreaker/internal/accesscontrol"
	"github.com/defiguard/flowbreaker/internal/asset"
	"github.com/defiguard/flowbreaker/internal/breaker"
	"github.com/defiguard/flowbreaker/internal/events"
	"github.com/defiguard/flowbreaker/internal/ledger"
	"github.com/defiguard/flowbreaker/internal/settlement"
	"github.com/defiguard/flowbreaker/internal/vault"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrRateLimited       = errors.New("claims are blocked while rate limited")
	ErrStillOperational  = errors.New("system is still operational")
)

// Outcome reports how an outflow was resolved.
type Outcome string

const (
	OutcomeSettled  Outcome = "settled"
	OutcomeDeferred Outcome = "deferred"
)

// Gateway is the engine facade: it validates callers, drives the ledger and
// breaker, and decides settle-now versus defer versus reject. A single
// mutex serializes every state-mutating entry point, so each call is atomic
// and the outflow path is non-reentrant.
type Gateway struct {
	mutex     sync.Mutex
	logger    *slog.Logger
	ledger    *ledger.Ledger
	breaker   *breaker.Breaker
	vault     *vault.Vault
	access    *accesscontrol.AccessControl
	settler   settlement.Settler
	collector *events.Collector
}

func New(
	logger *slog.Logger,
	l *ledger.Ledger,
	b *breaker.Breaker,
	v *vault.Vault,
	access *accesscontrol.AccessControl,
	settler settlement.Settler,
	collector *events.Collector,
) *Gateway {
	return &Gateway{
		logger:    logger,
		ledger:    l,
		breaker:   b,
		vault:     v,
		access:    access,
		settler:   settler,
		collector: collector,
	}
}

// ReportInflow records an asset inflow from a protected contract and takes
// custody of the amount.
func (g *Gateway) ReportInflow(caller string, a asset.Asset, amount *big.Int) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ledger.ErrInvalidAmount
	}
	if err := g.access.RequireProtected(caller); err != nil {
		return err
	}
	if !g.breaker.IsOperational() {
		return breaker.ErrNotOperational
	}

	if err := g.settler.Deposit(a, caller, amount); err != nil {
		return err
	}
	g.ledger.RecordInflow(a, amount)

	g.emit(events.EventInflowObserved, a, caller, amount, "")
	return nil
}

// ReportOutflow records an outflow from a protected contract and resolves
// it: immediate settlement, deferral into the locked-funds vault, or
// rejection under revertOnRateLimit. The custody deposit, ledger update,
// trigger evaluation and settlement all happen under the gateway guard, so
// the next call sees fully consistent accounting.
func (g *Gateway) ReportOutflow(
	caller string,
	a asset.Asset,
	amount *big.Int,
	recipient string,
	revertOnRateLimit bool,
) (Outcome, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return "", ledger.ErrInvalidAmount
	}
	if err := g.access.RequireProtected(caller); err != nil {
		return "", err
	}
	if !g.breaker.IsOperational() {
		return "", breaker.ErrNotOperational
	}

	if err := g.settler.Deposit(a, caller, amount); err != nil {
		return "", err
	}

	// Unregistered assets are permanently exempt.
	if !g.ledger.IsRegistered(a) {
		return g.settle(a, recipient, amount)
	}

	triggered := g.ledger.RecordOutflowAndEvaluate(a, amount)

	// Once the breaker is tripped, registered-asset outflows below the
	// trigger floor are still withheld until the incident resolves.
	enforce := triggered || g.breaker.IsRateLimited()

	if !enforce || g.breaker.IsInGracePeriod() {
		return g.settle(a, recipient, amount)
	}

	if revertOnRateLimit {
		// Roll the whole call back: undo the window record and return
		// custody to the caller.
		g.ledger.RevertOutflow(a, amount)
		if err := g.settler.Transfer(a, caller, amount); err != nil {
			g.logger.Error("Failed to return custody on rejected outflow",
				slog.String("asset", a.Key()),
				slog.String("caller", caller),
				slog.String("error", err.Error()))
		}
		return "", ErrRateLimitExceeded
	}

	if !g.breaker.IsRateLimited() {
		g.breaker.NoteBreach()
		breach := events.New(events.EventRateLimitBreached)
		breach.Asset = a.Key()
		breach.Detail = g.breaker.LastRateLimitTime().UTC().Format(time.RFC3339Nano)
		g.collector.Emit(breach)
		g.logger.Warn("Rate limit breached",
			slog.String("asset", a.Key()),
			slog.String("amount", amount.String()))
	}

	g.vault.Credit(a, recipient, amount)
	g.emit(events.EventFundsLocked, a, recipient, amount, "")
	return OutcomeDeferred, nil
}

// ClaimLockedFunds pays out a recipient's accumulated locked funds.
// Blocked while a rate limit is active so the incident can be assessed
// before funds move.
func (g *Gateway) ClaimLockedFunds(a asset.Asset, recipient string) (*big.Int, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.breaker.IsOperational() {
		return nil, breaker.ErrNotOperational
	}
	if g.breaker.IsRateLimited() {
		return nil, ErrRateLimited
	}

	amount, err := g.vault.Claim(a, recipient)
	if err != nil {
		return nil, err
	}

	if err := g.settler.Transfer(a, recipient, amount); err != nil {
		// Re-credit so a settlement failure cannot strand the entry.
		g.vault.Credit(a, recipient, amount)
		return nil, err
	}

	g.emit(events.EventFundsClaimed, a, recipient, amount, "")
	return amount, nil
}

func (g *Gateway) settle(a asset.Asset, recipient string, amount *big.Int) (Outcome, error) {
	if err := g.settler.Transfer(a, recipient, amount); err != nil {
		return "", err
	}
	g.emit(events.EventFundsWithdrawn, a, recipient, amount, "")
	return OutcomeSettled, nil
}

func (g *Gateway) emit(eventType events.EventType, a asset.Asset, account string, amount *big.Int, detail string) {
	event := events.New(eventType)
	event.Asset = a.Key()
	event.Account = account
	if amount != nil {
		event.Amount = amount.String()
	}
	event.Detail = detail
	g.collector.Emit(event)
}

// Read-only queries.

func (g *Gateway) LockedFunds(a asset.Asset, recipient string) *big.Int {
	return g.vault.Locked(a, recipient)
}

func (g *Gateway) IsProtectedContract(addr string) bool {
	return g.access.IsProtectedContract(addr)
}

func (g *Gateway) Admin() string {
	return g.access.Admin()
}

func (g *Gateway) IsRateLimited() bool {
	return g.breaker.IsRateLimited()
}

func (g *Gateway) RateLimitCooldownPeriod() time.Duration {
	return g.breaker.CooldownPeriod()
}

func (g *Gateway) LastRateLimitTimestamp() time.Time {
	return g.breaker.LastRateLimitTime()
}

func (g *Gateway) GracePeriodEndTimestamp() time.Time {
	return g.breaker.GracePeriodEnd()
}

func (g *Gateway) IsRateLimitTriggered(a asset.Asset) bool {
	return g.ledger.IsRateLimitTriggered(a)
}

func (g *Gateway) IsInGracePeriod() bool {
	return g.breaker.IsInGracePeriod()
}

func (g *Gateway) IsOperational() bool {
	return g.breaker.IsOperational()
}
