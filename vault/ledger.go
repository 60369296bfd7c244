package vault

import (
	"context"

	"xdao.co/vault/address"
)

// CreateAccount is a directive to the ledger's native account-creation
// mechanism.
type CreateAccount struct {
	From     address.Address
	To       address.Address
	Lamports uint64
	Space    uint64
	Owner    address.Address
}

// SignerSeeds authorizes a directive on behalf of a derived address.
// The ledger recomputes the address from Seeds under Program and accepts the
// directive only if it equals the directive's target.
type SignerSeeds struct {
	Program address.Address
	Seeds   [][]byte
}

// Ledger is the host ledger as seen by the issuer.
//
// CreateAccount must be atomic: the account is created and funded, or
// nothing changes.
type Ledger interface {
	MinimumBalance(ctx context.Context, space uint64) (uint64, error)
	CreateAccount(ctx context.Context, d CreateAccount, signer SignerSeeds) error
}
