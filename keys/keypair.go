package keys

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/gagliardetto/solana-go"

	"xdao.co/vault/address"
)

// SignatureSize is the length of a funder signature.
const SignatureSize = ed25519.SignatureSize

// Keypair is an ed25519 signing key whose public half is an address.
type Keypair struct {
	priv ed25519.PrivateKey
}

// KeypairFromSeed expands a 32-byte ed25519 seed.
func KeypairFromSeed(seed []byte) (Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return Keypair{}, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return Keypair{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Generate returns a fresh keypair drawn from rand.
func Generate(rand io.Reader) (Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{priv: priv}, nil
}

// Address returns the public key as an address.
func (k Keypair) Address() address.Address {
	var a address.Address
	copy(a[:], k.priv[ed25519.SeedSize:])
	return a
}

// Seed returns a copy of the 32-byte seed.
func (k Keypair) Seed() []byte {
	return append([]byte(nil), k.priv.Seed()...)
}

// Sign signs message with the keypair.
func (k Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// Solana returns the keypair in solana-go form for cluster submissions.
func (k Keypair) Solana() solana.PrivateKey {
	return solana.PrivateKey(append([]byte(nil), k.priv...))
}

// Verify reports whether sig is signer's signature over message.
func Verify(signer address.Address, message, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(signer[:]), message, sig)
}
