// Package runtime is the host side of an invocation: it authenticates the
// caller's declared signers, turns account metas into vault participants and
// dispatches to the program registered under the invoked id.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/vault/address"
	"xdao.co/vault/keys"
	"xdao.co/vault/vault"
)

var (
	ErrUnknownProgram   = errors.New("runtime: unknown program")
	ErrMissingSignature = errors.New("runtime: missing required signature")
)

// Handler runs one program.
type Handler interface {
	Process(ctx context.Context, data []byte, accounts []vault.Participant) error
}

type Options struct {
	Logger *zerolog.Logger
}

// Runtime is safe for concurrent use.
type Runtime struct {
	mu       sync.RWMutex
	programs map[address.Address]Handler
	log      zerolog.Logger
}

// New returns a Runtime with no programs registered.
func New(opts Options) *Runtime {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "runtime").Logger()
	}
	return &Runtime{programs: map[address.Address]Handler{}, log: log}
}

// Register installs h as the program with the given id.
func (r *Runtime) Register(program address.Address, h Handler) error {
	if h == nil {
		return fmt.Errorf("runtime: nil handler for %s", program)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.programs[program]; exists {
		return fmt.Errorf("runtime: program %s already registered", program)
	}
	r.programs[program] = h
	return nil
}

// Execute verifies s and runs the invoked program.
//
// Every meta declared as a signer must carry a valid signature over the
// invocation message.
func (r *Runtime) Execute(ctx context.Context, s SignedInvocation) error {
	inv := s.Invocation
	r.mu.RLock()
	h, ok := r.programs[inv.Program]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, inv.Program)
	}

	msg, err := inv.Message()
	if err != nil {
		return err
	}
	accounts := make([]vault.Participant, len(inv.Accounts))
	for i, meta := range inv.Accounts {
		if meta.IsSigner && !signedBy(s.Signatures, meta.Address, msg) {
			return fmt.Errorf("%w: account %d (%s)", ErrMissingSignature, i, meta.Address)
		}
		accounts[i] = vault.Participant{
			Address:    meta.Address,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
	}

	start := time.Now()
	err = h.Process(ctx, inv.Data, accounts)
	ev := r.log.Info()
	if err != nil {
		ev = r.log.Warn().Err(err).Str("kind", string(vault.KindOf(err)))
	}
	ev.Str("program", inv.Program.String()).
		Int("accounts", len(accounts)).
		Dur("took", time.Since(start)).
		Msg("invocation processed")
	return err
}

func signedBy(sigs []Signature, signer address.Address, msg []byte) bool {
	for _, s := range sigs {
		if s.Signer == signer && keys.Verify(signer, msg, s.Sig) {
			return true
		}
	}
	return false
}
