// Package ledger holds the host-ledger vocabulary shared by the vault core and
// its ledger implementations: accounts, the storage-cost schedule and the
// reasons a ledger may reject a creation.
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"xdao.co/vault/address"
)

// MaxPermittedDataLength is the largest account size the ledger will allocate.
const MaxPermittedDataLength = 10 * 1024 * 1024

var (
	ErrAccountInUse       = errors.New("ledger: account already occupied")
	ErrInsufficientFunds  = errors.New("ledger: insufficient funds")
	ErrDerivationMismatch = errors.New("ledger: derived address does not match target")
	ErrOwnerMismatch      = errors.New("ledger: funding account not owned by system authority")
	ErrInvalidSpace       = errors.New("ledger: requested space exceeds permitted data length")
	ErrUnknownAccount     = errors.New("ledger: unknown account")
	ErrRentUnavailable    = errors.New("ledger: storage-cost schedule unavailable")

	// ErrTransactionFailed and ErrTransactionExpired report the outcome of a
	// transaction the ledger accepted for processing.
	ErrTransactionFailed  = errors.New("ledger: transaction failed")
	ErrTransactionExpired = errors.New("ledger: transaction expired before confirmation")
)

var reasons = []error{
	ErrAccountInUse,
	ErrInsufficientFunds,
	ErrDerivationMismatch,
	ErrOwnerMismatch,
	ErrInvalidSpace,
	ErrUnknownAccount,
	ErrRentUnavailable,
	ErrTransactionFailed,
	ErrTransactionExpired,
}

// Reason returns the ledger sentinel err wraps, or nil.
func Reason(err error) error {
	for _, r := range reasons {
		if errors.Is(err, r) {
			return r
		}
	}
	return nil
}

// Restore rebuilds an error from its text: when the text starts with a
// sentinel's text the result wraps that sentinel. Otherwise it is a plain error.
func Restore(text string) error {
	for _, r := range reasons {
		if strings.HasPrefix(text, r.Error()) {
			return fmt.Errorf("%w%s", r, text[len(r.Error()):])
		}
	}
	return errors.New(text)
}

// Account is the ledger's record of an address.
type Account struct {
	Address  address.Address
	Lamports uint64
	Space    uint64
	Owner    address.Address
}

// Occupied reports whether the account holds funds or storage.
func (a Account) Occupied() bool { return a.Lamports > 0 || a.Space > 0 }
