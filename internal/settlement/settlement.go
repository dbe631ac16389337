package settlement

import (
	"errors"
	"math/big"
	"sync"

	"github.com/defiguard/flowbreaker/internal/asset"
)

var (
	ErrInsufficientCustody = errors.New("insufficient custody balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Settler is the external transfer mechanism the engine consumes. Deposit
// hands custody of an inbound amount to the engine, Transfer pays out of
// custody, Balance reports the engine's custody balance for an asset.
type Settler interface {
	Deposit(a asset.Asset, from string, amount *big.Int) error
	Transfer(a asset.Asset, recipient string, amount *big.Int) error
	Balance(a asset.Asset) (*big.Int, error)
}

// MemorySettler keeps custody balances in process. Used in tests and in
// deployments where settlement is simulated.
type MemorySettler struct {
	mutex    sync.RWMutex
	balances map[string]*big.Int
}

func NewMemorySettler() *MemorySettler {
	return &MemorySettler{
		balances: make(map[string]*big.Int),
	}
}

func (s *MemorySettler) Deposit(a asset.Asset, from string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if balance, ok := s.balances[a.Key()]; ok {
		balance.Add(balance, amount)
		return nil
	}
	s.balances[a.Key()] = new(big.Int).Set(amount)
	return nil
}

func (s *MemorySettler) Transfer(a asset.Asset, recipient string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	balance, ok := s.balances[a.Key()]
	if !ok || balance.Cmp(amount) < 0 {
		return ErrInsufficientCustody
	}
	balance.Sub(balance, amount)
	return nil
}

func (s *MemorySettler) Balance(a asset.Asset) (*big.Int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if balance, ok := s.balances[a.Key()]; ok {
		return new(big.Int).Set(balance), nil
	}
	return new(big.Int), nil
}
