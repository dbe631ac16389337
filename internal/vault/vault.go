package vault

import (
	"errors"
	"math/big"
	"sync"

	"github.com/defiguard/flowbreaker/internal/asset"
)

var ErrNothingToClaim = errors.New("nothing to claim")

type lockKey struct {
	recipient string
	asset     string
}

// Vault is the bookkeeping of funds withheld during rate-limit events,
// keyed by (recipient, asset). It tracks amounts only; actual custody lives
// with the settlement layer.
type Vault struct {
	mutex  sync.RWMutex
	locked map[lockKey]*big.Int
}

func New() *Vault {
	return &Vault{
		locked: make(map[lockKey]*big.Int),
	}
}

// Credit accumulates a deferred outflow for a recipient.
func (v *Vault) Credit(a asset.Asset, recipient string, amount *big.Int) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	key := lockKey{recipient: recipient, asset: a.Key()}
	if existing, ok := v.locked[key]; ok {
		existing.Add(existing, amount)
		return
	}
	v.locked[key] = new(big.Int).Set(amount)
}

// Claim zeroes the recipient's entry and returns the full accumulated
// amount. Exactly-once: a second claim on the same entry fails with
// ErrNothingToClaim.
func (v *Vault) Claim(a asset.Asset, recipient string) (*big.Int, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	key := lockKey{recipient: recipient, asset: a.Key()}
	amount, ok := v.locked[key]
	if !ok || amount.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	delete(v.locked, key)
	return amount, nil
}

// Locked returns the amount currently locked for a recipient. Zero if no
// entry exists.
func (v *Vault) Locked(a asset.Asset, recipient string) *big.Int {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	if amount, ok := v.locked[lockKey{recipient: recipient, asset: a.Key()}]; ok {
		return new(big.Int).Set(amount)
	}
	return new(big.Int)
}

// TotalLocked sums all locked entries for an asset.
func (v *Vault) TotalLocked(a asset.Asset) *big.Int {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	total := new(big.Int)
	for key, amount := range v.locked {
		if key.asset == a.Key() {
			total.Add(total, amount)
		}
	}
	return total
}

// Clear drops every entry for an asset. Used by the post-exploit sweep,
// which deliberately abandons per-recipient accounting once the system is
// deemed compromised.
func (v *Vault) Clear(a asset.Asset) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	for key := range v.locked {
		if key.asset == a.Key() {
			delete(v.locked, key)
		}
	}
}
