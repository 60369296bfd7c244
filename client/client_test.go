package client

import (
	"context"
	"errors"
	"testing"

	"xdao.co/vault/address"
	"xdao.co/vault/keys"
	"xdao.co/vault/ledger"
	"xdao.co/vault/ledger/memledger"
	"xdao.co/vault/runtime"
	"xdao.co/vault/vault"
)

var program = address.Address{0x10, 0x20, 0x30}

func newLocal(t *testing.T) (*Local, vault.Config) {
	t.Helper()
	cfg := vault.DefaultConfig(program)
	l := memledger.New(memledger.Options{})
	p, err := vault.New(cfg, l, vault.Options{})
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	rt := runtime.New(runtime.Options{})
	if err := rt.Register(program, p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return &Local{Runtime: rt, Ledger: l}, cfg
}

func keypair(t *testing.T, b byte) keys.Keypair {
	t.Helper()
	seed := make([]byte, 32)
	seed[0] = b
	kp, err := keys.KeypairFromSeed(seed)
	if err != nil {
		t.Fatalf("KeypairFromSeed: %v", err)
	}
	return kp
}

func TestBuildLayout(t *testing.T) {
	cfg := vault.DefaultConfig(program)
	funder := keypair(t, 1).Address()
	plan, err := Build(cfg, funder, 128)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want, bump, err := cfg.FindTarget(funder)
	if err != nil {
		t.Fatalf("FindTarget: %v", err)
	}
	if plan.Target != want || plan.Bump != bump {
		t.Fatalf("plan target %s/%d want %s/%d", plan.Target, plan.Bump, want, bump)
	}
	inv := plan.Invocation
	if inv.Program != program {
		t.Fatalf("program = %s", inv.Program)
	}
	req, err := vault.DecodeRequest(inv.Data)
	if err != nil || req != (vault.Request{Bump: bump, Space: 128}) {
		t.Fatalf("data decodes to %+v, %v", req, err)
	}
	metas := inv.Accounts
	if len(metas) != 3 {
		t.Fatalf("got %d metas", len(metas))
	}
	if metas[0] != (runtime.AccountMeta{Address: funder, IsSigner: true, IsWritable: true}) {
		t.Fatalf("funder meta = %+v", metas[0])
	}
	if metas[1] != (runtime.AccountMeta{Address: want, IsWritable: true}) {
		t.Fatalf("target meta = %+v", metas[1])
	}
	if metas[2] != (runtime.AccountMeta{Address: address.SystemProgram}) {
		t.Fatalf("authority meta = %+v", metas[2])
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := vault.DefaultConfig(program)
	cfg.Tag = nil
	if _, err := Build(cfg, keypair(t, 2).Address(), 1); err == nil {
		t.Fatalf("expected invalid config error")
	}
}

func TestCreateThroughLocal(t *testing.T) {
	ctx := context.Background()
	local, cfg := newLocal(t)
	funder := keypair(t, 3)
	if _, err := local.Airdrop(ctx, funder.Address(), 5_000_000); err != nil {
		t.Fatalf("Airdrop: %v", err)
	}

	res, err := Create(ctx, local, cfg, funder, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Lamports != 1_781_760 {
		t.Fatalf("lamports = %d", res.Lamports)
	}
	acct, err := local.Account(ctx, res.Plan.Target)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acct.Lamports != res.Lamports || acct.Space != 128 || acct.Owner != address.SystemProgram {
		t.Fatalf("account = %+v", acct)
	}
	payer, err := local.Account(ctx, funder.Address())
	if err != nil {
		t.Fatalf("Account(funder): %v", err)
	}
	if payer.Lamports != 5_000_000-1_781_760 {
		t.Fatalf("funder balance = %d", payer.Lamports)
	}

	if _, err := Create(ctx, local, cfg, funder, 128); !errors.Is(err, ledger.ErrAccountInUse) {
		t.Fatalf("second Create: got %v want ErrAccountInUse", err)
	}
}

func TestLocalAccountUnknown(t *testing.T) {
	local, _ := newLocal(t)
	if _, err := local.Account(context.Background(), address.Address{7}); !errors.Is(err, ledger.ErrUnknownAccount) {
		t.Fatalf("got %v want ErrUnknownAccount", err)
	}
}
