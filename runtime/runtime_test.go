package runtime

import (
	"context"
	"errors"
	"testing"

	"xdao.co/vault/address"
	"xdao.co/vault/keys"
	"xdao.co/vault/ledger/memledger"
	"xdao.co/vault/vault"
)

var program = address.Address{0x70, 0x72, 0x6f}

func mustKeypair(t *testing.T, b byte) keys.Keypair {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = b
	}
	kp, err := keys.KeypairFromSeed(seed)
	if err != nil {
		t.Fatalf("KeypairFromSeed: %v", err)
	}
	return kp
}

func newRuntime(t *testing.T) (*Runtime, *memledger.Ledger, vault.Config) {
	t.Helper()
	cfg := vault.DefaultConfig(program)
	l := memledger.New(memledger.Options{})
	p, err := vault.New(cfg, l, vault.Options{})
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	rt := New(Options{})
	if err := rt.Register(program, p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return rt, l, cfg
}

func invocationFor(t *testing.T, cfg vault.Config, funder address.Address, space uint64) Invocation {
	t.Helper()
	target, bump, err := cfg.FindTarget(funder)
	if err != nil {
		t.Fatalf("FindTarget: %v", err)
	}
	data, err := vault.Request{Bump: bump, Space: space}.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return Invocation{
		Program: program,
		Data:    data,
		Accounts: []AccountMeta{
			{Address: funder, IsSigner: true, IsWritable: true},
			{Address: target, IsWritable: true},
			{Address: address.SystemProgram},
		},
	}
}

func TestExecuteSignedInvocation(t *testing.T) {
	ctx := context.Background()
	rt, l, cfg := newRuntime(t)
	funder := mustKeypair(t, 1)
	if err := l.Airdrop(ctx, funder.Address(), 1_000_000_000); err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	inv := invocationFor(t, cfg, funder.Address(), 40)
	signed, err := Sign(inv, funder)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	wire, err := signed.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeSignedInvocation(wire)
	if err != nil {
		t.Fatalf("DecodeSignedInvocation: %v", err)
	}
	if err := rt.Execute(ctx, decoded); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, ok := l.Account(inv.Accounts[1].Address); !ok {
		t.Fatalf("target not created")
	}
}

func TestExecuteRejectsForgedSigner(t *testing.T) {
	ctx := context.Background()
	rt, l, cfg := newRuntime(t)
	funder := mustKeypair(t, 2)
	mallory := mustKeypair(t, 3)
	if err := l.Airdrop(ctx, funder.Address(), 1_000_000_000); err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	inv := invocationFor(t, cfg, funder.Address(), 8)
	signed, err := Sign(inv, mallory)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	// Claim mallory's signature belongs to the funder.
	signed.Signatures[0].Signer = funder.Address()
	if err := rt.Execute(ctx, signed); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("got %v want ErrMissingSignature", err)
	}
}

func TestExecuteUnsignedFunderReachesValidator(t *testing.T) {
	rt, _, cfg := newRuntime(t)
	funder := mustKeypair(t, 4)
	inv := invocationFor(t, cfg, funder.Address(), 8)
	inv.Accounts[0].IsSigner = false
	err := rt.Execute(context.Background(), SignedInvocation{Invocation: inv})
	if !vault.IsKind(err, vault.KindMissingFunderAuthorization) {
		t.Fatalf("got %v want MissingFunderAuthorization", err)
	}
}

func TestExecuteUnknownProgram(t *testing.T) {
	rt, _, cfg := newRuntime(t)
	inv := invocationFor(t, cfg, mustKeypair(t, 5).Address(), 8)
	inv.Program = address.Address{0x01}
	if err := rt.Execute(context.Background(), SignedInvocation{Invocation: inv}); !errors.Is(err, ErrUnknownProgram) {
		t.Fatalf("got %v want ErrUnknownProgram", err)
	}
}

func TestSignatureCoversData(t *testing.T) {
	ctx := context.Background()
	rt, l, cfg := newRuntime(t)
	funder := mustKeypair(t, 6)
	if err := l.Airdrop(ctx, funder.Address(), 1_000_000_000); err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	signed, err := Sign(invocationFor(t, cfg, funder.Address(), 8), funder)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	signed.Invocation.Data[1] = 0xFF
	if err := rt.Execute(ctx, signed); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("got %v want ErrMissingSignature after tampering", err)
	}
}

func TestRegisterTwice(t *testing.T) {
	rt, _, _ := newRuntime(t)
	if err := rt.Register(program, nopHandler{}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := rt.Register(address.Address{9}, nil); err == nil {
		t.Fatalf("expected nil handler to be rejected")
	}
}

type nopHandler struct{}

func (nopHandler) Process(context.Context, []byte, []vault.Participant) error { return nil }

func TestDecodeSignedInvocationGarbage(t *testing.T) {
	if _, err := DecodeSignedInvocation([]byte{1, 2}); !errors.Is(err, ErrInvalidInvocation) {
		t.Fatalf("got %v want ErrInvalidInvocation", err)
	}
}
