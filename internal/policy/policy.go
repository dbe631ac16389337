package policy

import (
	"log/slog"
	"math/big"
)

// Window is a snapshot of an asset's flow accounting over the active
// measurement period.
type Window struct {
	TotalInflow  *big.Int
	TotalOutflow *big.Int
}

// TriggerPolicy decides whether a window's outflow relative to its tracked
// liquidity constitutes a breach for the given threshold.
type TriggerPolicy interface {
	Name() string
	Triggered(w Window, threshold *big.Int) bool
}

const (
	TypePercentage = "percentage"
	TypeNominal    = "nominal"
)

// New builds the trigger policy named in configuration. Unknown names fall
// back to the percentage policy.
func New(logger *slog.Logger, policyType string) TriggerPolicy {
	switch policyType {
	case TypePercentage:
		return NewPercentagePolicy()
	case TypeNominal:
		return NewNominalPolicy()
	default:
		logger.Warn("Unknown trigger policy, defaulting to percentage", slog.String("requested", policyType))
		return NewPercentagePolicy()
	}
}
