package asset

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind discriminates between token assets and the chain's native currency.
type Kind string

const (
	KindToken  Kind = "token"
	KindNative Kind = "native"
)

// Asset identifies a fungible resource: either a token contract address or
// the native currency. The zero value is not a valid asset.
type Asset struct {
	kind    Kind
	address string
}

// Token returns the asset for a token contract address.
func Token(address string) (Asset, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Asset{}, fmt.Errorf("token asset requires a contract address")
	}
	return Asset{kind: KindToken, address: strings.ToLower(address)}, nil
}

// Native returns the native-currency asset.
func Native() Asset {
	return Asset{kind: KindNative}
}

func (a Asset) Kind() Kind { return a.kind }

// Address returns the token contract address. Empty for the native asset.
func (a Asset) Address() string { return a.address }

func (a Asset) IsNative() bool { return a.kind == KindNative }

func (a Asset) IsZero() bool { return a.kind == "" }

// Key returns a stable string form usable as a map key.
func (a Asset) Key() string {
	if a.kind == KindNative {
		return "native"
	}
	return "token:" + a.address
}

func (a Asset) String() string { return a.Key() }

type assetJSON struct {
	Type    Kind   `json:"type"`
	Address string `json:"address,omitempty"`
}

func (a Asset) MarshalJSON() ([]byte, error) {
	if a.IsZero() {
		return nil, fmt.Errorf("cannot marshal zero asset")
	}
	return json.Marshal(assetJSON{Type: a.kind, Address: a.address})
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	var raw assetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case KindNative:
		*a = Native()
		return nil
	case KindToken:
		parsed, err := Token(raw.Address)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	default:
		return fmt.Errorf("unknown asset type %q", raw.Type)
	}
}

// Parse reconstructs an Asset from its Key form.
func Parse(key string) (Asset, error) {
	if key == "native" {
		return Native(), nil
	}
	if addr, ok := strings.CutPrefix(key, "token:"); ok {
		return Token(addr)
	}
	return Asset{}, fmt.Errorf("invalid asset key %q", key)
}
