// Package journal stores the reference ledger's committed changes as an
// immutable, content-addressed receipt chain.
//
// Receipts are keyed by CIDv1 (raw + sha2-256) of their canonical bytes. A
// Store adds a single mutable pointer, the head, naming the latest receipt;
// everything else is append-only. Replaying the chain from the first receipt
// reproduces the ledger state.
package journal
