package vault

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Options controls optional Processor behavior.
type Options struct {
	// Logger receives one debug event per stage. The zero value logs nothing.
	Logger *zerolog.Logger
}

// Processor creates derived vault accounts on a Ledger.
//
// A Processor holds no per-invocation state and is safe for concurrent use.
type Processor struct {
	cfg    Config
	ledger Ledger
	log    zerolog.Logger
}

// New returns a Processor for the authority domain cfg. It fails when l is
// nil or cfg does not validate.
func New(cfg Config, l Ledger, opts Options) (*Processor, error) {
	if l == nil {
		return nil, errors.New("vault: nil ledger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "vault").Str("program", cfg.Program.String()).Logger()
	}
	return &Processor{cfg: cfg, ledger: l, log: log}, nil
}

// Config returns the processor's authority domain.
func (p *Processor) Config() Config { return p.cfg }

// Process decodes data, binds accounts to their roles and issues the signed
// creation. It performs at most one ledger write.
func (p *Processor) Process(ctx context.Context, data []byte, accounts []Participant) error {
	req, err := DecodeRequest(data)
	if err != nil {
		p.log.Debug().Err(err).Msg("decode failed")
		return err
	}
	roles, err := ValidateRoles(accounts, p.cfg.SystemAuthority)
	if err != nil {
		p.log.Debug().Err(err).Msg("role validation failed")
		return err
	}
	return p.issue(ctx, req, roles)
}

// issue funds the target with the rent-exempt minimum for req.Space and asks
// the ledger to create it, signing with the target's derivation seeds.
// roles must come from ValidateRoles.
func (p *Processor) issue(ctx context.Context, req Request, roles Roles) error {
	lamports, err := p.ledger.MinimumBalance(ctx, req.Space)
	if err != nil {
		return wrapError(KindCostScheduleUnavailable, "query storage-cost schedule", err)
	}

	directive := CreateAccount{
		From:     roles.Funder.Address,
		To:       roles.Target.Address,
		Lamports: lamports,
		Space:    req.Space,
		Owner:    p.cfg.SystemAuthority,
	}
	signer := SignerSeeds{
		Program: p.cfg.Program,
		Seeds:   p.cfg.Seeds(roles.Funder.Address, req.Bump),
	}

	log := p.log.With().
		Str("funder", directive.From.String()).
		Str("target", directive.To.String()).
		Uint8("bump", req.Bump).
		Uint64("space", req.Space).
		Uint64("lamports", lamports).
		Logger()

	if err := p.ledger.CreateAccount(ctx, directive, signer); err != nil {
		log.Debug().Err(err).Msg("ledger rejected creation")
		return wrapError(KindCreationRejectedByLedger, "create account "+directive.To.String(), err)
	}
	log.Debug().Msg("account created")
	return nil
}
