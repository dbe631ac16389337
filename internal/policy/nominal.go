package policy

import "math/big"

// NominalPolicy trips when the window's net outflow (outflow minus inflow)
// reaches the threshold, read as an absolute amount.
type NominalPolicy struct{}

func NewNominalPolicy() *NominalPolicy {
	return &NominalPolicy{}
}

func (p *NominalPolicy) Name() string { return TypeNominal }

func (p *NominalPolicy) Triggered(w Window, threshold *big.Int) bool {
	net := new(big.Int).Sub(w.TotalOutflow, w.TotalInflow)
	return net.Cmp(threshold) >= 0
}
