package vault

import (
	"fmt"

	"xdao.co/vault/address"
)

// Participant is the runtime's view of an account passed to an invocation.
type Participant struct {
	Address    address.Address
	IsSigner   bool
	IsWritable bool
}

// Roles names the three positional participants of a creation.
type Roles struct {
	Funder    Participant
	Target    Participant
	Authority Participant
}

// ValidateRoles binds the first three participants to their roles and checks
// each one. Entries past the third are ignored.
//
// Checks run in order (funder, target, authority) and stop at the first
// failure.
func ValidateRoles(accounts []Participant, systemAuthority address.Address) (Roles, error) {
	if len(accounts) < 3 {
		return Roles{}, newError(KindParticipantListTooShort,
			fmt.Sprintf("got %d participants, need funder, target and system authority", len(accounts)))
	}
	roles := Roles{
		Funder:    accounts[0],
		Target:    accounts[1],
		Authority: accounts[2],
	}

	if !roles.Funder.IsSigner || !roles.Funder.IsWritable {
		return Roles{}, newError(KindMissingFunderAuthorization,
			fmt.Sprintf("funder %s must be a writable signer (signer=%t writable=%t)",
				roles.Funder.Address, roles.Funder.IsSigner, roles.Funder.IsWritable))
	}
	// The target never signs: the issuer signs for it through its seeds.
	if roles.Target.IsSigner || !roles.Target.IsWritable {
		return Roles{}, newError(KindInvalidTargetAccountState,
			fmt.Sprintf("target %s must be writable and not a signer (signer=%t writable=%t)",
				roles.Target.Address, roles.Target.IsSigner, roles.Target.IsWritable))
	}
	if roles.Authority.Address != systemAuthority {
		return Roles{}, newError(KindUnexpectedAuthorityAccount,
			fmt.Sprintf("third participant %s is not the system authority %s",
				roles.Authority.Address, systemAuthority))
	}
	return roles, nil
}
