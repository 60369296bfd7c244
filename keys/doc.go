// Package keys manages funder keypairs.
//
// A funder address is an ed25519 public key, so the funder can sign
// invocations; vault target addresses are derived and have no keypair.
//
// API stability:
//
// Stable:
//   - Keypair, KeypairFromSeed, Verify.
//
// Experimental:
//   - Filesystem-backed key storage (KeyStore). A local-first convenience,
//     not part of the invocation wire contract.
package keys
