package policy

import "math/big"

// bpsDenominator is the basis-point scale: a threshold of 10000 means the
// breaker trips only once the full tracked inflow has left the window.
var bpsDenominator = big.NewInt(10000)

// PercentagePolicy trips when the window's cumulative outflow reaches the
// configured fraction (in basis points) of its cumulative inflow. A positive
// outflow against zero tracked inflow always trips.
type PercentagePolicy struct{}

func NewPercentagePolicy() *PercentagePolicy {
	return &PercentagePolicy{}
}

func (p *PercentagePolicy) Name() string { return TypePercentage }

func (p *PercentagePolicy) Triggered(w Window, threshold *big.Int) bool {
	if w.TotalOutflow.Sign() <= 0 {
		return false
	}
	if w.TotalInflow.Sign() <= 0 {
		return true
	}

	// outflow * 10000 >= threshold_bps * inflow
	lhs := new(big.Int).Mul(w.TotalOutflow, bpsDenominator)
	rhs := new(big.Int).Mul(threshold, w.TotalInflow)
	return lhs.Cmp(rhs) >= 0
}
