// Package derive computes program-derived addresses: addresses that are a
// pure function of (seeds, authority) and, by construction, have no private
// key. Only the authority whose id went into the derivation may authorize
// actions for such an address.
//
// API stability:
//
// Stable:
//   - Scheme.CreateAddress and Scheme.FindAddress with the SHA256 hash. Their
//     output must match the host ledger's own derivation byte for byte.
//
// Experimental:
//   - SHA3_256, intended for storage backends that are not the native ledger
//     and want a disjoint address space.
package derive
