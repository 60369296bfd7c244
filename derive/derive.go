package derive

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/sha3"

	"xdao.co/vault/address"
)

const (
	// MaxSeeds is the maximum number of seed segments, including a bump.
	MaxSeeds = 16
	// MaxSeedLen is the maximum length of a single seed segment.
	MaxSeedLen = 32

	marker = "ProgramDerivedAddress"
)

var (
	ErrInvalidSeeds    = errors.New("derive: invalid seeds")
	ErrOnCurve         = errors.New("derive: address lies on the ed25519 curve")
	ErrNoViableBump    = errors.New("derive: no viable bump seed")
	ErrUnsupportedHash = errors.New("derive: unsupported hash")
)

// Hash names the digest used by a Scheme.
type Hash string

const (
	SHA256   Hash = "sha256"
	SHA3_256 Hash = "sha3-256"
)

// Scheme is a deterministic address derivation.
//
// The zero value behaves like Default.
type Scheme struct {
	Hash Hash
}

// Default is the scheme used by the host ledger's native runtime.
var Default = Scheme{Hash: SHA256}

// Validate reports whether the scheme's hash is supported.
func (s Scheme) Validate() error {
	_, err := s.newHash()
	return err
}

func (s Scheme) newHash() (hash.Hash, error) {
	switch s.Hash {
	case "", SHA256:
		return sha256.New(), nil
	case SHA3_256:
		return sha3.New256(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedHash, s.Hash)
	}
}

// CreateAddress derives the address for seeds under authority.
//
// It fails with ErrOnCurve if the digest is a valid ed25519 point; callers
// searching for a usable address should use FindAddress.
func (s Scheme) CreateAddress(seeds [][]byte, authority address.Address) (address.Address, error) {
	if len(seeds) > MaxSeeds {
		return address.Address{}, fmt.Errorf("%w: %d seeds exceeds %d", ErrInvalidSeeds, len(seeds), MaxSeeds)
	}
	h, err := s.newHash()
	if err != nil {
		return address.Address{}, err
	}
	for i, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return address.Address{}, fmt.Errorf("%w: seed %d is %d bytes", ErrInvalidSeeds, i, len(seed))
		}
		_, _ = h.Write(seed)
	}
	_, _ = h.Write(authority[:])
	_, _ = h.Write([]byte(marker))
	sum := h.Sum(nil)

	if IsOnCurve(sum) {
		return address.Address{}, ErrOnCurve
	}
	return address.FromBytes(sum)
}

// FindAddress searches bumps from 255 down to 1 and returns the first
// off-curve address for seeds+[bump] along with the bump.
func (s Scheme) FindAddress(seeds [][]byte, authority address.Address) (address.Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return address.Address{}, 0, fmt.Errorf("%w: no room for a bump seed", ErrInvalidSeeds)
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := s.CreateAddress(withBump, authority)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return address.Address{}, 0, err
		}
	}
	return address.Address{}, 0, ErrNoViableBump
}

// IsOnCurve reports whether b is the compressed encoding of an ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
