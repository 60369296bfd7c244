// Package testkit holds a conformance suite every journal.Store must pass.
package testkit

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/vault/journal"
)

// NewStore constructs a fresh, empty Store for a test.
// The returned Store MUST be isolated from other tests.
type NewStore func(t *testing.T) journal.Store

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []byte("hello, vault journal")

		id, err := s.Put(want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := journal.CID(want)
		if err != nil {
			t.Fatalf("CID failed: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}

		got, err := s.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := []byte("same bytes")

		id1, err := s.Put(b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := s.Put(b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := []byte("missing")
		id, err := journal.CID(b)
		if err != nil {
			t.Fatalf("CID failed: %v", err)
		}
		if s.Has(id) {
			t.Fatalf("Has returned true for missing CID")
		}
		if _, err := s.Get(id); !journal.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}
		if _, err := s.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !s.Has(id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		s := newStore(t)
		var undef cid.Cid
		if s.Has(undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := s.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})

	t.Run("Head", func(t *testing.T) {
		s := newStore(t)
		head, err := s.Head()
		if err != nil {
			t.Fatalf("Head failed: %v", err)
		}
		if head.Defined() {
			t.Fatalf("empty store must have undefined head, got %s", head)
		}

		missing, err := journal.CID([]byte("never stored"))
		if err != nil {
			t.Fatalf("CID failed: %v", err)
		}
		if err := s.SetHead(missing); !journal.IsNotFound(err) {
			t.Fatalf("SetHead(missing): got %v want ErrNotFound", err)
		}

		id, err := s.Put([]byte("head object"))
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := s.SetHead(id); err != nil {
			t.Fatalf("SetHead failed: %v", err)
		}
		head, err = s.Head()
		if err != nil {
			t.Fatalf("Head failed: %v", err)
		}
		if head != id {
			t.Fatalf("Head mismatch: got %s want %s", head, id)
		}
	})

	t.Run("ChainReplay", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 3; i++ {
			r := journal.Receipt{Kind: journal.KindAirdrop, Lamports: uint64(100 * (i + 1))}
			r.To[0] = byte(i)
			if _, _, err := journal.Append(s, r); err != nil {
				t.Fatalf("Append(%d) failed: %v", i, err)
			}
		}
		var seen []uint64
		err := journal.Replay(s, func(_ cid.Cid, r journal.Receipt) error {
			seen = append(seen, r.Lamports)
			return nil
		})
		if err != nil {
			t.Fatalf("Replay failed: %v", err)
		}
		if len(seen) != 3 || seen[0] != 100 || seen[1] != 200 || seen[2] != 300 {
			t.Fatalf("unexpected replay order: %v", seen)
		}
	})
}
