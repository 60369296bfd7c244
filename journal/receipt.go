package journal

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/vault/address"
)

// ReceiptKind tags what a receipt records.
type ReceiptKind uint8

const (
	KindAirdrop ReceiptKind = iota + 1
	KindCreate
)

func (k ReceiptKind) String() string {
	switch k {
	case KindAirdrop:
		return "airdrop"
	case KindCreate:
		return "create"
	default:
		return fmt.Sprintf("ReceiptKind(%d)", uint8(k))
	}
}

// Receipt is one committed ledger change.
//
// Receipts form a hash chain: Prev is the CID bytes of the previous receipt
// (empty for the first one).
type Receipt struct {
	Seq      uint64
	Prev     []byte
	Kind     ReceiptKind
	From     address.Address
	To       address.Address
	Lamports uint64
	Space    uint64
	Owner    address.Address
	Program  address.Address
}

// PrevCID returns Prev as a CID, or cid.Undef for the first receipt.
func (r Receipt) PrevCID() (cid.Cid, error) {
	if len(r.Prev) == 0 {
		return cid.Undef, nil
	}
	return cid.Cast(r.Prev)
}

// Encode returns the canonical Borsh bytes of r.
func (r Receipt) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(&r); err != nil {
		return nil, fmt.Errorf("journal: encode receipt: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeReceipt parses canonical receipt bytes.
func DecodeReceipt(b []byte) (Receipt, error) {
	var r Receipt
	if err := bin.NewBorshDecoder(b).Decode(&r); err != nil {
		return Receipt{}, fmt.Errorf("journal: decode receipt: %w", err)
	}
	if r.Kind != KindAirdrop && r.Kind != KindCreate {
		return Receipt{}, fmt.Errorf("journal: unknown receipt kind %d", r.Kind)
	}
	return r, nil
}

// CID returns the CIDv1 (raw + sha2-256) of b.
func CID(b []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(b, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
