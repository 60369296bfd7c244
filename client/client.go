// Package client builds vault invocations and submits them to a ledger.
//
// A Submitter is the transport: ledger/grpcledger talks to a vault-ledgerd
// daemon and ledger/solanarpc talks to a cluster where the vault program is
// deployed. Binaries select one through client/registry.
package client

import (
	"context"
	"fmt"

	"xdao.co/vault/address"
	"xdao.co/vault/keys"
	"xdao.co/vault/ledger"
	"xdao.co/vault/runtime"
	"xdao.co/vault/vault"
)

// Submitter delivers a signed invocation and reports the ledger's cost
// schedule. Submit returns a transport specific receipt (a journal CID or a
// transaction signature).
type Submitter interface {
	Submit(ctx context.Context, inv runtime.Invocation, funder keys.Keypair) (string, error)
	MinimumBalance(ctx context.Context, space uint64) (uint64, error)
}

// Airdropper is implemented by submitters whose ledger can mint test funds.
type Airdropper interface {
	Airdrop(ctx context.Context, to address.Address, lamports uint64) (string, error)
}

// AccountReader is implemented by submitters that can look up accounts.
type AccountReader interface {
	Account(ctx context.Context, addr address.Address) (ledger.Account, error)
}

// Plan is a ready-to-sign creation.
type Plan struct {
	Target     address.Address
	Bump       uint8
	Request    vault.Request
	Invocation runtime.Invocation
}

// Build finds the funder's vault address and canonical bump and lays out the
// invocation as [funder (signer, writable), target (writable), system
// authority].
func Build(cfg vault.Config, funder address.Address, space uint64) (Plan, error) {
	if err := cfg.Validate(); err != nil {
		return Plan{}, err
	}
	target, bump, err := cfg.FindTarget(funder)
	if err != nil {
		return Plan{}, fmt.Errorf("client: find vault address: %w", err)
	}
	return BuildWithBump(cfg, funder, target, bump, space)
}

// BuildWithBump lays out an invocation for an explicit target and bump
// without checking that they match. Useful for exercising the program's
// derivation check.
func BuildWithBump(cfg vault.Config, funder, target address.Address, bump uint8, space uint64) (Plan, error) {
	req := vault.Request{Bump: bump, Space: space}
	data, err := req.MarshalBinary()
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		Target:  target,
		Bump:    bump,
		Request: req,
		Invocation: runtime.Invocation{
			Program: cfg.Program,
			Data:    data,
			Accounts: []runtime.AccountMeta{
				{Address: funder, IsSigner: true, IsWritable: true},
				{Address: target, IsWritable: true},
				{Address: cfg.SystemAuthority},
			},
		},
	}, nil
}

// Result describes a submitted creation.
type Result struct {
	Plan     Plan
	Lamports uint64
	Receipt  string
}

// Create builds the invocation for funder and submits it through s.
func Create(ctx context.Context, s Submitter, cfg vault.Config, funder keys.Keypair, space uint64) (Result, error) {
	plan, err := Build(cfg, funder.Address(), space)
	if err != nil {
		return Result{}, err
	}
	lamports, err := s.MinimumBalance(ctx, space)
	if err != nil {
		return Result{}, fmt.Errorf("client: minimum balance: %w", err)
	}
	receipt, err := s.Submit(ctx, plan.Invocation, funder)
	if err != nil {
		return Result{Plan: plan, Lamports: lamports}, err
	}
	return Result{Plan: plan, Lamports: lamports, Receipt: receipt}, nil
}
