package journal

import (
	"fmt"

	"github.com/ipfs/go-cid"
)

// Append links r to the current head, stores it and advances the head.
// It returns the new head and the receipt as stored (Seq and Prev filled in).
func Append(s Store, r Receipt) (cid.Cid, Receipt, error) {
	head, err := s.Head()
	if err != nil {
		return cid.Undef, Receipt{}, err
	}
	r.Seq = 0
	r.Prev = nil
	if head.Defined() {
		prevBytes, err := s.Get(head)
		if err != nil {
			return cid.Undef, Receipt{}, fmt.Errorf("journal: read head: %w", err)
		}
		prev, err := DecodeReceipt(prevBytes)
		if err != nil {
			return cid.Undef, Receipt{}, err
		}
		r.Seq = prev.Seq + 1
		r.Prev = head.Bytes()
	}

	b, err := r.Encode()
	if err != nil {
		return cid.Undef, Receipt{}, err
	}
	id, err := s.Put(b)
	if err != nil {
		return cid.Undef, Receipt{}, err
	}
	if err := s.SetHead(id); err != nil {
		return cid.Undef, Receipt{}, err
	}
	return id, r, nil
}

// Replay calls fn for every receipt from the first to the head.
//
// Each receipt is verified against its CID and its Seq against its position.
func Replay(s Store, fn func(id cid.Cid, r Receipt) error) error {
	head, err := s.Head()
	if err != nil {
		return err
	}

	type entry struct {
		id cid.Cid
		r  Receipt
	}
	var chain []entry
	for id := head; id.Defined(); {
		b, err := s.Get(id)
		if err != nil {
			return fmt.Errorf("journal: read %s: %w", id, err)
		}
		got, err := CID(b)
		if err != nil {
			return err
		}
		if !got.Equals(id) {
			return ErrCIDMismatch
		}
		r, err := DecodeReceipt(b)
		if err != nil {
			return err
		}
		chain = append(chain, entry{id: id, r: r})
		if id, err = r.PrevCID(); err != nil {
			return fmt.Errorf("journal: receipt %d: bad prev: %w", r.Seq, err)
		}
	}

	for i := len(chain) - 1; i >= 0; i-- {
		e := chain[i]
		if want := uint64(len(chain) - 1 - i); e.r.Seq != want {
			return fmt.Errorf("journal: receipt %s has seq %d, want %d", e.id, e.r.Seq, want)
		}
		if err := fn(e.id, e.r); err != nil {
			return err
		}
	}
	return nil
}
