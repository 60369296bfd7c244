// Package memledger is an in-process host ledger implementing vault.Ledger.
//
// It plays the part a local test validator plays for a real chain: it keeps
// accounts in memory, enforces the ledger's creation rules atomically and
// checks derived-address signatures. With a journal.Store attached every
// committed change is recorded as a receipt, and Restore rebuilds the state.
package memledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/vault/address"
	"xdao.co/vault/derive"
	"xdao.co/vault/journal"
	"xdao.co/vault/ledger"
	"xdao.co/vault/vault"
)

// Options configures a Ledger. Zero values select the defaults.
type Options struct {
	Rent            ledger.Rent
	Scheme          derive.Scheme
	SystemAuthority address.Address
	// Journal, when set, receives a receipt for every committed change.
	Journal journal.Store
}

func (o Options) withDefaults() Options {
	if o.Rent == (ledger.Rent{}) {
		o.Rent = ledger.DefaultRent
	}
	if o.Scheme.Hash == "" {
		o.Scheme = derive.Default
	}
	return o
}

// Ledger is safe for concurrent use. Each change holds the lock from its
// checks through its commit, so racing creations of one address serialize:
// the first wins and the rest see ledger.ErrAccountInUse.
type Ledger struct {
	mu       sync.Mutex
	opts     Options
	rent     ledger.Rent
	accounts map[address.Address]ledger.Account
	head     cid.Cid
}

var _ vault.Ledger = (*Ledger)(nil)

func New(opts Options) *Ledger {
	opts = opts.withDefaults()
	return &Ledger{
		opts:     opts,
		rent:     opts.Rent,
		accounts: map[address.Address]ledger.Account{},
	}
}

// Restore builds a Ledger from the receipts in opts.Journal.
func Restore(opts Options) (*Ledger, error) {
	if opts.Journal == nil {
		return nil, errors.New("memledger: restore requires a journal")
	}
	l := New(opts)
	err := journal.Replay(opts.Journal, func(id cid.Cid, r journal.Receipt) error {
		switch r.Kind {
		case journal.KindAirdrop:
			l.applyAirdrop(r.To, r.Lamports)
		case journal.KindCreate:
			l.applyCreate(vault.CreateAccount{
				From: r.From, To: r.To, Lamports: r.Lamports, Space: r.Space, Owner: r.Owner,
			})
		}
		l.head = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("memledger: restore: %w", err)
	}
	return l, nil
}

// MinimumBalance reports the rent-exempt minimum under the current schedule.
func (l *Ledger) MinimumBalance(ctx context.Context, space uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rent.MinimumBalance(space)
}

// SetRent replaces the storage-cost schedule for later requests.
func (l *Ledger) SetRent(r ledger.Rent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rent = r
}

// CreateAccount creates and funds d.To if signer's seeds derive it.
func (l *Ledger) CreateAccount(ctx context.Context, d vault.CreateAccount, signer vault.SignerSeeds) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	derived, err := l.opts.Scheme.CreateAddress(signer.Seeds, signer.Program)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrDerivationMismatch, err)
	}
	if derived != d.To {
		return fmt.Errorf("%w: seeds derive %s, target is %s", ledger.ErrDerivationMismatch, derived, d.To)
	}
	if d.Space > ledger.MaxPermittedDataLength {
		return fmt.Errorf("%w: %d bytes", ledger.ErrInvalidSpace, d.Space)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	from, ok := l.accounts[d.From]
	if !ok {
		return fmt.Errorf("%w: funder %s", ledger.ErrUnknownAccount, d.From)
	}
	if from.Owner != l.opts.SystemAuthority || from.Space > 0 {
		return fmt.Errorf("%w: funder %s", ledger.ErrOwnerMismatch, d.From)
	}
	if to, ok := l.accounts[d.To]; ok && to.Occupied() {
		return fmt.Errorf("%w: %s", ledger.ErrAccountInUse, d.To)
	}
	if from.Lamports < d.Lamports {
		return fmt.Errorf("%w: funder has %d, need %d", ledger.ErrInsufficientFunds, from.Lamports, d.Lamports)
	}

	if err := l.record(journal.Receipt{
		Kind:     journal.KindCreate,
		From:     d.From,
		To:       d.To,
		Lamports: d.Lamports,
		Space:    d.Space,
		Owner:    d.Owner,
		Program:  signer.Program,
	}); err != nil {
		return err
	}
	l.applyCreate(d)
	return nil
}

// Airdrop credits lamports to addr, creating a system-owned account if needed.
func (l *Ledger) Airdrop(ctx context.Context, addr address.Address, lamports uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.accounts[addr]; ok && acct.Lamports+lamports < acct.Lamports {
		return fmt.Errorf("memledger: airdrop to %s overflows balance", addr)
	}
	if err := l.record(journal.Receipt{Kind: journal.KindAirdrop, To: addr, Lamports: lamports}); err != nil {
		return err
	}
	l.applyAirdrop(addr, lamports)
	return nil
}

// Account returns the account at addr.
func (l *Ledger) Account(addr address.Address) (ledger.Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[addr]
	return acct, ok
}

// Head returns the CID of the latest receipt, or cid.Undef without a journal.
func (l *Ledger) Head() cid.Cid {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head
}

// record appends r to the journal; callers hold l.mu and apply the change
// only after record succeeds.
func (l *Ledger) record(r journal.Receipt) error {
	if l.opts.Journal == nil {
		return nil
	}
	id, _, err := journal.Append(l.opts.Journal, r)
	if err != nil {
		return fmt.Errorf("memledger: journal: %w", err)
	}
	l.head = id
	return nil
}

func (l *Ledger) applyAirdrop(addr address.Address, lamports uint64) {
	acct, ok := l.accounts[addr]
	if !ok {
		acct = ledger.Account{Address: addr, Owner: l.opts.SystemAuthority}
	}
	acct.Lamports += lamports
	l.accounts[addr] = acct
}

func (l *Ledger) applyCreate(d vault.CreateAccount) {
	from := l.accounts[d.From]
	from.Lamports -= d.Lamports
	l.accounts[d.From] = from
	l.accounts[d.To] = ledger.Account{
		Address:  d.To,
		Lamports: d.Lamports,
		Space:    d.Space,
		Owner:    d.Owner,
	}
}
