package client

import (
	"context"
	"fmt"

	"xdao.co/vault/address"
	"xdao.co/vault/keys"
	"xdao.co/vault/ledger"
	"xdao.co/vault/ledger/memledger"
	"xdao.co/vault/runtime"
)

// Local submits straight into an in-process runtime backed by a memledger.
type Local struct {
	Runtime *runtime.Runtime
	Ledger  *memledger.Ledger
}

func (l *Local) Submit(ctx context.Context, inv runtime.Invocation, funder keys.Keypair) (string, error) {
	signed, err := runtime.Sign(inv, funder)
	if err != nil {
		return "", err
	}
	if err := l.Runtime.Execute(ctx, signed); err != nil {
		return "", err
	}
	return l.head(), nil
}

func (l *Local) MinimumBalance(ctx context.Context, space uint64) (uint64, error) {
	return l.Ledger.MinimumBalance(ctx, space)
}

func (l *Local) Airdrop(ctx context.Context, to address.Address, lamports uint64) (string, error) {
	if err := l.Ledger.Airdrop(ctx, to, lamports); err != nil {
		return "", err
	}
	return l.head(), nil
}

// head is empty when the ledger runs without a journal.
func (l *Local) head() string {
	if h := l.Ledger.Head(); h.Defined() {
		return h.String()
	}
	return ""
}

func (l *Local) Account(_ context.Context, addr address.Address) (ledger.Account, error) {
	acct, ok := l.Ledger.Account(addr)
	if !ok {
		return ledger.Account{}, fmt.Errorf("%w: %s", ledger.ErrUnknownAccount, addr)
	}
	return acct, nil
}
