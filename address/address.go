// Package address defines the 32-byte account address used across the vault
// packages and its base58 text form.
package address

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58/base58"
)

// Size is the length of an address in bytes.
const Size = 32

var ErrInvalidAddress = errors.New("address: invalid address")

// Address identifies an account on the host ledger.
//
// For keyed accounts it is the ed25519 public key; for derived accounts it is
// the output of a derivation scheme with no corresponding private key.
type Address [Size]byte

// SystemProgram is the well-known system authority of the host ledger
// (base58 "11111111111111111111111111111111").
var SystemProgram Address

// FromBytes copies b into an Address. b must be exactly Size bytes.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, Size, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty string", ErrInvalidAddress)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return FromBytes(b)
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string { return base58.Encode(a[:]) }

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, a[:])
	return out
}

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
