// Package solanarpc submits vault invocations to a Solana cluster where the
// vault program is deployed.
//
// Importing the package registers the "solana" backend with client/registry.
package solanarpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"xdao.co/vault/address"
	"xdao.co/vault/client"
	"xdao.co/vault/keys"
	"xdao.co/vault/ledger"
	"xdao.co/vault/runtime"
)

type Options struct {
	// Endpoint is the JSON-RPC URL, e.g. rpc.DevNet_RPC.
	Endpoint string
	// Commitment defaults to confirmed. Submit waits for it.
	Commitment    rpc.CommitmentType
	SkipPreflight bool
	// PollInterval is the pause between signature status queries.
	// Defaults to DefaultPollInterval.
	PollInterval time.Duration
}

const DefaultPollInterval = 500 * time.Millisecond

// Submitter implements client.Submitter over Solana JSON-RPC.
type Submitter struct {
	rpc  *rpc.Client
	opts Options
}

var (
	_ client.Submitter     = (*Submitter)(nil)
	_ client.Airdropper    = (*Submitter)(nil)
	_ client.AccountReader = (*Submitter)(nil)
)

func New(opts Options) (*Submitter, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("solanarpc: endpoint is required")
	}
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Submitter{rpc: rpc.New(opts.Endpoint), opts: opts}, nil
}

func (s *Submitter) Close() error { return s.rpc.Close() }

// Instruction converts inv to a Solana instruction.
func Instruction(inv runtime.Invocation) solana.Instruction {
	metas := make(solana.AccountMetaSlice, 0, len(inv.Accounts))
	for _, m := range inv.Accounts {
		metas = append(metas, solana.NewAccountMeta(publicKey(m.Address), m.IsWritable, m.IsSigner))
	}
	return solana.NewInstruction(publicKey(inv.Program), metas, inv.Data)
}

// Transaction builds and signs a transaction paid for by funder.
func (s *Submitter) Transaction(ctx context.Context, inv runtime.Invocation, funder keys.Keypair) (*solana.Transaction, error) {
	tx, _, err := s.transaction(ctx, inv, funder)
	return tx, err
}

// transaction also returns the last block height at which the transaction's
// blockhash is still valid.
func (s *Submitter) transaction(ctx context.Context, inv runtime.Invocation, funder keys.Keypair) (*solana.Transaction, uint64, error) {
	latest, err := s.rpc.GetLatestBlockhash(ctx, s.opts.Commitment)
	if err != nil {
		return nil, 0, fmt.Errorf("solanarpc: latest blockhash: %w", err)
	}
	payer := funder.Solana()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{Instruction(inv)},
		latest.Value.Blockhash,
		solana.TransactionPayer(payer.PublicKey()),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("solanarpc: build transaction: %w", err)
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("solanarpc: sign transaction: %w", err)
	}
	return tx, latest.Value.LastValidBlockHeight, nil
}

// Submit sends the invocation, waits until it reaches the configured
// commitment and returns the transaction signature. A transaction the
// cluster executed with an error wraps ledger.ErrTransactionFailed; one that
// never landed before its blockhash expired wraps ledger.ErrTransactionExpired.
func (s *Submitter) Submit(ctx context.Context, inv runtime.Invocation, funder keys.Keypair) (string, error) {
	tx, lastValid, err := s.transaction(ctx, inv, funder)
	if err != nil {
		return "", err
	}
	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       s.opts.SkipPreflight,
		PreflightCommitment: s.opts.Commitment,
	})
	if err != nil {
		return "", fmt.Errorf("solanarpc: send transaction: %w", err)
	}
	if err := s.confirm(ctx, sig, lastValid); err != nil {
		return "", err
	}
	return sig.String(), nil
}

func (s *Submitter) confirm(ctx context.Context, sig solana.Signature, lastValid uint64) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		out, err := s.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil && !errors.Is(err, rpc.ErrNotFound) {
			return fmt.Errorf("solanarpc: signature status %s: %w", sig, err)
		}
		var st *rpc.SignatureStatusesResult
		if out != nil && len(out.Value) > 0 {
			st = out.Value[0]
		}
		switch {
		case st != nil && st.Err != nil:
			return fmt.Errorf("%w: %s: %v", ledger.ErrTransactionFailed, sig, st.Err)
		case st != nil && reached(st.ConfirmationStatus, s.opts.Commitment):
			return nil
		case st == nil:
			height, err := s.rpc.GetBlockHeight(ctx, s.opts.Commitment)
			if err != nil {
				return fmt.Errorf("solanarpc: block height: %w", err)
			}
			if height > lastValid {
				return fmt.Errorf("%w: %s at block height %d", ledger.ErrTransactionExpired, sig, height)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// reached reports whether a signature at status satisfies want.
func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := map[string]int{
		string(rpc.ConfirmationStatusProcessed): 1,
		string(rpc.ConfirmationStatusConfirmed): 2,
		string(rpc.ConfirmationStatusFinalized): 3,
	}
	got, ok := rank[string(status)]
	return ok && got >= rank[string(want)]
}

func (s *Submitter) MinimumBalance(ctx context.Context, space uint64) (uint64, error) {
	lamports, err := s.rpc.GetMinimumBalanceForRentExemption(ctx, space, s.opts.Commitment)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ledger.ErrRentUnavailable, err)
	}
	return lamports, nil
}

// Airdrop requests test funds. Only devnet, testnet and local validators
// honor it.
func (s *Submitter) Airdrop(ctx context.Context, to address.Address, lamports uint64) (string, error) {
	sig, err := s.rpc.RequestAirdrop(ctx, publicKey(to), lamports, s.opts.Commitment)
	if err != nil {
		return "", fmt.Errorf("solanarpc: airdrop: %w", err)
	}
	return sig.String(), nil
}

func (s *Submitter) Account(ctx context.Context, addr address.Address) (ledger.Account, error) {
	out, err := s.rpc.GetAccountInfo(ctx, publicKey(addr))
	if errors.Is(err, rpc.ErrNotFound) {
		return ledger.Account{}, fmt.Errorf("%w: %s", ledger.ErrUnknownAccount, addr)
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("solanarpc: account: %w", err)
	}
	acct := ledger.Account{
		Address:  addr,
		Lamports: out.Value.Lamports,
		Owner:    address.Address(out.Value.Owner),
	}
	if out.Value.Data != nil {
		acct.Space = uint64(len(out.Value.Data.GetBinary()))
	}
	return acct, nil
}

func publicKey(a address.Address) solana.PublicKey { return solana.PublicKey(a) }
