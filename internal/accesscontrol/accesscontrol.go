package accesscontrol

import (
	"errors"
	"strings"
	"sync"
)

var (
	ErrUnauthorized = errors.New("caller is not authorized")
	ErrZeroAddress  = errors.New("address must not be zero")
)

// zeroAddress is rejected as an admin target alongside the empty string.
const zeroAddress = "0x0000000000000000000000000000000000000000"

// AccessControl holds the admin identity and the protected-contract
// allow-list that gates the flow entry points.
type AccessControl struct {
	mutex     sync.RWMutex
	admin     string
	protected map[string]struct{}
}

func New(admin string, protectedContracts []string) (*AccessControl, error) {
	admin = normalize(admin)
	if isZero(admin) {
		return nil, ErrZeroAddress
	}

	ac := &AccessControl{
		admin:     admin,
		protected: make(map[string]struct{}, len(protectedContracts)),
	}
	for _, addr := range protectedContracts {
		addr = normalize(addr)
		if isZero(addr) {
			return nil, ErrZeroAddress
		}
		ac.protected[addr] = struct{}{}
	}
	return ac, nil
}

func (ac *AccessControl) Admin() string {
	ac.mutex.RLock()
	defer ac.mutex.RUnlock()
	return ac.admin
}

func (ac *AccessControl) IsAdmin(caller string) bool {
	ac.mutex.RLock()
	defer ac.mutex.RUnlock()
	return normalize(caller) == ac.admin
}

// RequireAdmin fails with ErrUnauthorized unless the caller is the admin.
func (ac *AccessControl) RequireAdmin(caller string) error {
	if !ac.IsAdmin(caller) {
		return ErrUnauthorized
	}
	return nil
}

// SetAdmin transfers the admin role. Admin-only; the zero address is
// rejected so the role cannot be burned by accident.
func (ac *AccessControl) SetAdmin(caller, newAdmin string) error {
	newAdmin = normalize(newAdmin)
	if isZero(newAdmin) {
		return ErrZeroAddress
	}

	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	if normalize(caller) != ac.admin {
		return ErrUnauthorized
	}
	ac.admin = newAdmin
	return nil
}

func (ac *AccessControl) IsProtectedContract(addr string) bool {
	ac.mutex.RLock()
	defer ac.mutex.RUnlock()

	_, ok := ac.protected[normalize(addr)]
	return ok
}

// RequireProtected fails with ErrUnauthorized unless the caller is on the
// protected-contract allow-list.
func (ac *AccessControl) RequireProtected(caller string) error {
	if !ac.IsProtectedContract(caller) {
		return ErrUnauthorized
	}
	return nil
}

// AddProtectedContracts adds addresses to the allow-list. Admin-only.
func (ac *AccessControl) AddProtectedContracts(caller string, addrs []string) error {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	if normalize(caller) != ac.admin {
		return ErrUnauthorized
	}
	for _, addr := range addrs {
		addr = normalize(addr)
		if isZero(addr) {
			return ErrZeroAddress
		}
		ac.protected[addr] = struct{}{}
	}
	return nil
}

// RemoveProtectedContracts removes addresses from the allow-list.
// Admin-only. Removing an address that is not listed is a no-op.
func (ac *AccessControl) RemoveProtectedContracts(caller string, addrs []string) error {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	if normalize(caller) != ac.admin {
		return ErrUnauthorized
	}
	for _, addr := range addrs {
		delete(ac.protected, normalize(addr))
	}
	return nil
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func isZero(addr string) bool {
	return addr == "" || addr == zeroAddress
}
