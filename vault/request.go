package vault

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// RequestSize is the encoded size of a Request: 1-byte bump, 8-byte space.
const RequestSize = 9

// Request is the decoded instruction payload.
type Request struct {
	// Bump is the caller-found bump seed that makes the target address valid.
	Bump uint8
	// Space is the number of bytes to allocate for the target account.
	Space uint64
}

// DecodeRequest parses the Borsh layout {u8 bump, u64 space}.
// Bytes past RequestSize are ignored.
func DecodeRequest(data []byte) (Request, error) {
	if len(data) < RequestSize {
		return Request{}, newError(KindMalformedRequest,
			fmt.Sprintf("instruction data is %d bytes, need %d", len(data), RequestSize))
	}
	var req Request
	if err := bin.NewBorshDecoder(data[:RequestSize]).Decode(&req); err != nil {
		return Request{}, wrapError(KindMalformedRequest, "decode instruction data", err)
	}
	return req, nil
}

// MarshalBinary returns the RequestSize-byte wire form of r.
func (r Request) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(RequestSize)
	if err := bin.NewBorshEncoder(&buf).Encode(&r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
