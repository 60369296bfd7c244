package vault

import (
	"errors"
	"fmt"

	"xdao.co/vault/address"
	"xdao.co/vault/derive"
)

// DefaultTag is the literal first seed segment of every vault address.
const DefaultTag = "vault"

// Config is the immutable authority domain of a Processor.
type Config struct {
	// Tag is the literal first seed segment.
	Tag []byte
	// Program is the issuer's own id: the authority the seeds derive under.
	Program address.Address
	// SystemAuthority is the ledger's account-creation authority. It is both
	// the expected third participant and the owner of created accounts.
	SystemAuthority address.Address
	// Scheme is the address derivation the ledger uses to check seeds.
	Scheme derive.Scheme
}

// DefaultConfig returns the configuration of a vault program deployed as program.
func DefaultConfig(program address.Address) Config {
	return Config{
		Tag:             []byte(DefaultTag),
		Program:         program,
		SystemAuthority: address.SystemProgram,
		Scheme:          derive.Default,
	}
}

// Validate checks the tag length and the derivation scheme.
func (c Config) Validate() error {
	if len(c.Tag) == 0 {
		return errors.New("vault: empty tag")
	}
	if len(c.Tag) > derive.MaxSeedLen {
		return fmt.Errorf("vault: tag is %d bytes, max %d", len(c.Tag), derive.MaxSeedLen)
	}
	return c.Scheme.Validate()
}

// Seeds returns the derivation seeds {tag, funder, bump}.
func (c Config) Seeds(funder address.Address, bump uint8) [][]byte {
	tag := make([]byte, len(c.Tag))
	copy(tag, c.Tag)
	return [][]byte{tag, funder.Bytes(), {bump}}
}

// TargetFor derives the target address for funder and bump.
func (c Config) TargetFor(funder address.Address, bump uint8) (address.Address, error) {
	return c.Scheme.CreateAddress(c.Seeds(funder, bump), c.Program)
}

// FindTarget searches for the canonical bump of funder's target.
func (c Config) FindTarget(funder address.Address) (address.Address, uint8, error) {
	return c.Scheme.FindAddress([][]byte{c.Tag, funder[:]}, c.Program)
}
