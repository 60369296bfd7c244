// Package vault creates and funds accounts at program-derived addresses.
//
// A funder asks for an account at the address derived from
// {tag, funder, bump} under the vault program. The funder cannot sign for
// that address (no private key exists); the vault program authorizes the
// creation by handing the ledger the derivation seeds instead. The ledger
// recomputes the address and only accepts when it matches.
//
// Processor.Process makes a single linear pass: DecodeRequest, ValidateRoles,
// then the signed creation. Only Process reaches the ledger, so no creation is
// issued for participants that have not been validated. Failures are *Error
// values with a stable Kind.
package vault
