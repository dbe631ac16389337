package gateway

import (
	"log/slog"
	"math/big"
	"time"

	"github.com/defiguard/flowbreaker/internal/asset"
	"github.com/defiguard/flowbreaker/internal/events"
)

// RegisterAsset brings an asset under rate limiting.
func (g *Gateway) RegisterAsset(caller string, a asset.Asset, threshold, minAmount *big.Int) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if err := g.access.RequireAdmin(caller); err != nil {
		return err
	}
	if err := g.ledger.Register(a, threshold, minAmount); err != nil {
		return err
	}

	g.emit(events.EventAssetRegistered, a, "", nil, "threshold="+threshold.String()+" min="+minAmount.String())
	g.logger.Info("Asset registered",
		slog.String("asset", a.Key()),
		slog.String("threshold", threshold.String()),
		slog.String("min_amount", minAmount.String()))
	return nil
}

// UpdateAssetParams overwrites a registered asset's parameters.
func (g *Gateway) UpdateAssetParams(caller string, a asset.Asset, threshold, minAmount *big.Int) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if err := g.access.RequireAdmin(caller); err != nil {
		return err
	}
	if err := g.ledger.Update(a, threshold, minAmount); err != nil {
		return err
	}

	g.emit(events.EventAssetUpdated, a, "", nil, "threshold="+threshold.String()+" min="+minAmount.String())
	return nil
}

// SetAdmin transfers the admin role.
func (g *Gateway) SetAdmin(caller, newAdmin string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if err := g.access.SetAdmin(caller, newAdmin); err != nil {
		return err
	}

	event := events.New(events.EventAdminChanged)
	event.Account = g.access.Admin()
	g.collector.Emit(event)
	g.logger.Info("Admin changed", slog.String("admin", g.access.Admin()))
	return nil
}

// OverrideRateLimit clears an active rate limit (admin-only) and grants a
// full cooldown of grace. Flow windows reset so the next measurement period
// starts fresh.
func (g *Gateway) OverrideRateLimit(caller string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if err := g.access.RequireAdmin(caller); err != nil {
		return err
	}
	if err := g.breaker.OverrideRateLimit(); err != nil {
		return err
	}
	g.ledger.ResetWindows()

	event := events.New(events.EventRateLimitCleared)
	event.Detail = "admin override"
	g.collector.Emit(event)
	g.logger.Info("Rate limit cleared by admin override")
	return nil
}

// OverrideExpiredRateLimit clears a rate limit whose cooldown has elapsed.
// Callable by anyone.
func (g *Gateway) OverrideExpiredRateLimit() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if err := g.breaker.OverrideExpiredRateLimit(); err != nil {
		return err
	}
	g.ledger.ResetWindows()

	event := events.New(events.EventRateLimitCleared)
	event.Detail = "cooldown expired"
	g.collector.Emit(event)
	g.logger.Info("Expired rate limit cleared")
	return nil
}

// AddProtectedContracts grows the caller allow-list.
func (g *Gateway) AddProtectedContracts(caller string, addrs []string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.access.AddProtectedContracts(caller, addrs)
}

// RemoveProtectedContracts shrinks the caller allow-list.
func (g *Gateway) RemoveProtectedContracts(caller string, addrs []string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.access.RemoveProtectedContracts(caller, addrs)
}

// StartGracePeriod suspends rate-limit enforcement until end.
func (g *Gateway) StartGracePeriod(caller string, end time.Time) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if err := g.access.RequireAdmin(caller); err != nil {
		return err
	}
	if err := g.breaker.StartGracePeriod(end); err != nil {
		return err
	}

	event := events.New(events.EventGracePeriodStarted)
	event.Detail = end.UTC().Format(time.RFC3339Nano)
	g.collector.Emit(event)
	g.logger.Info("Grace period started", slog.Time("until", end))
	return nil
}

// MarkAsNotOperational moves the system into its terminal exploited state.
func (g *Gateway) MarkAsNotOperational(caller string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if err := g.access.RequireAdmin(caller); err != nil {
		return err
	}
	g.breaker.MarkAsNotOperational()
	g.logger.Error("System marked as not operational")
	return nil
}

// MigrateFundsAfterExploit sweeps the engine's full custody balance of each
// asset to a recovery recipient. Only valid once the system has been marked
// not operational. The sweep is deliberately coarse: per-recipient claim
// accounting is abandoned for swept assets.
func (g *Gateway) MigrateFundsAfterExploit(caller string, assets []asset.Asset, recipient string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if err := g.access.RequireAdmin(caller); err != nil {
		return err
	}
	if g.breaker.IsOperational() {
		return ErrStillOperational
	}

	for _, a := range assets {
		balance, err := g.settler.Balance(a)
		if err != nil {
			return err
		}
		if balance.Sign() > 0 {
			if err := g.settler.Transfer(a, recipient, balance); err != nil {
				return err
			}
		}
		g.vault.Clear(a)

		g.emit(events.EventFundsMigrated, a, recipient, balance, "")
		g.logger.Warn("Custody migrated after exploit",
			slog.String("asset", a.Key()),
			slog.String("recipient", recipient),
			slog.String("amount", balance.String()))
	}
	return nil
}
