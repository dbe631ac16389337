package ledger

import (
	"errors"
	"math/big"
	"sync"

	"github.com/defiguard/flowbreaker/internal/asset"
	"github.com/defiguard/flowbreaker/internal/policy"
)

var (
	ErrAlreadyRegistered = errors.New("asset already registered")
	ErrNotRegistered     = errors.New("asset not registered")
	ErrInvalidThreshold  = errors.New("invalid threshold")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// AssetConfig holds the registered rate-limit parameters of one asset.
type AssetConfig struct {
	Threshold        *big.Int
	MinAmountToLimit *big.Int
}

// flowWindow accumulates inflow/outflow magnitudes over the active
// measurement period. Windows are cumulative from registration and are
// zeroed when a rate limit is cleared by an override.
type flowWindow struct {
	totalInflow  *big.Int
	totalOutflow *big.Int
}

type entry struct {
	config AssetConfig
	window flowWindow
}

// Ledger tracks per-asset configuration and flow accounting. Assets with no
// configuration are unregistered and permanently exempt from rate limiting.
type Ledger struct {
	mutex   sync.RWMutex
	entries map[string]*entry
	policy  policy.TriggerPolicy
}

func New(triggerPolicy policy.TriggerPolicy) *Ledger {
	return &Ledger{
		entries: make(map[string]*entry),
		policy:  triggerPolicy,
	}
}

// Register creates the configuration and a zeroed flow window for an asset.
func (l *Ledger) Register(a asset.Asset, threshold, minAmount *big.Int) error {
	if err := validateParams(threshold, minAmount); err != nil {
		return err
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if _, exists := l.entries[a.Key()]; exists {
		return ErrAlreadyRegistered
	}

	l.entries[a.Key()] = &entry{
		config: AssetConfig{
			Threshold:        new(big.Int).Set(threshold),
			MinAmountToLimit: new(big.Int).Set(minAmount),
		},
		window: flowWindow{
			totalInflow:  new(big.Int),
			totalOutflow: new(big.Int),
		},
	}
	return nil
}

// Update overwrites an asset's configuration in place. The flow window is
// untouched.
func (l *Ledger) Update(a asset.Asset, threshold, minAmount *big.Int) error {
	if err := validateParams(threshold, minAmount); err != nil {
		return err
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	e, exists := l.entries[a.Key()]
	if !exists {
		return ErrNotRegistered
	}

	e.config.Threshold = new(big.Int).Set(threshold)
	e.config.MinAmountToLimit = new(big.Int).Set(minAmount)
	return nil
}

// RecordInflow folds an inflow into the asset's window. Inflows for
// unregistered assets are not tracked.
func (l *Ledger) RecordInflow(a asset.Asset, amount *big.Int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	e, exists := l.entries[a.Key()]
	if !exists {
		return
	}
	e.window.totalInflow.Add(e.window.totalInflow, amount)
}

// RecordOutflowAndEvaluate folds an outflow into the asset's window and
// reports whether the trigger metric fired. Unregistered assets never
// trigger and their windows are not mutated. Outflows below the asset's
// minimum floor never trigger, but their accounting still lands in the
// window so later outflows see the cumulative effect.
func (l *Ledger) RecordOutflowAndEvaluate(a asset.Asset, amount *big.Int) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	e, exists := l.entries[a.Key()]
	if !exists {
		return false
	}

	e.window.totalOutflow.Add(e.window.totalOutflow, amount)

	if amount.Cmp(e.config.MinAmountToLimit) < 0 {
		return false
	}
	return l.policy.Triggered(e.window.snapshot(), e.config.Threshold)
}

// RevertOutflow undoes a just-recorded outflow. Used by the gateway to keep
// the revert-on-rate-limit path free of partial effects.
func (l *Ledger) RevertOutflow(a asset.Asset, amount *big.Int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	e, exists := l.entries[a.Key()]
	if !exists {
		return
	}
	e.window.totalOutflow.Sub(e.window.totalOutflow, amount)
}

// IsRateLimitTriggered re-evaluates the current window without mutating it.
func (l *Ledger) IsRateLimitTriggered(a asset.Asset) bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	e, exists := l.entries[a.Key()]
	if !exists {
		return false
	}
	return l.policy.Triggered(e.window.snapshot(), e.config.Threshold)
}

// ResetWindows zeroes every asset's flow window. Called when a rate limit
// is cleared so the next measurement period starts fresh.
func (l *Ledger) ResetWindows() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, e := range l.entries {
		e.window.totalInflow.SetInt64(0)
		e.window.totalOutflow.SetInt64(0)
	}
}

// IsRegistered reports whether the asset has a configuration.
func (l *Ledger) IsRegistered(a asset.Asset) bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	_, exists := l.entries[a.Key()]
	return exists
}

// Config returns a copy of the asset's configuration.
func (l *Ledger) Config(a asset.Asset) (AssetConfig, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	e, exists := l.entries[a.Key()]
	if !exists {
		return AssetConfig{}, ErrNotRegistered
	}
	return AssetConfig{
		Threshold:        new(big.Int).Set(e.config.Threshold),
		MinAmountToLimit: new(big.Int).Set(e.config.MinAmountToLimit),
	}, nil
}

// Window returns a copy of the asset's current flow window.
func (l *Ledger) Window(a asset.Asset) (policy.Window, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	e, exists := l.entries[a.Key()]
	if !exists {
		return policy.Window{}, ErrNotRegistered
	}
	return e.window.snapshot(), nil
}

func (w *flowWindow) snapshot() policy.Window {
	return policy.Window{
		TotalInflow:  new(big.Int).Set(w.totalInflow),
		TotalOutflow: new(big.Int).Set(w.totalOutflow),
	}
}

func validateParams(threshold, minAmount *big.Int) error {
	if threshold == nil || threshold.Sign() <= 0 {
		return ErrInvalidThreshold
	}
	if minAmount == nil || minAmount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}
