package runtime

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"xdao.co/vault/address"
	"xdao.co/vault/keys"
)

var ErrInvalidInvocation = errors.New("runtime: invalid invocation")

// messagePrefix separates invocation signatures from any other use of a
// funder key.
const messagePrefix = "xdao-vault-invocation-v1"

// AccountMeta is an account reference as the caller declares it.
type AccountMeta struct {
	Address    address.Address
	IsSigner   bool
	IsWritable bool
}

// Invocation asks the runtime to run Program with Data over Accounts.
type Invocation struct {
	Program  address.Address
	Data     []byte
	Accounts []AccountMeta
}

// Message returns the bytes signers sign.
func (inv Invocation) Message() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(messagePrefix)
	if err := bin.NewBorshEncoder(&buf).Encode(&inv); err != nil {
		return nil, fmt.Errorf("runtime: encode invocation: %w", err)
	}
	return buf.Bytes(), nil
}

// Signature is one signer's signature over an invocation message.
type Signature struct {
	Signer address.Address
	Sig    []byte
}

type SignedInvocation struct {
	Invocation Invocation
	Signatures []Signature
}

// Sign signs inv with every keypair.
func Sign(inv Invocation, signers ...keys.Keypair) (SignedInvocation, error) {
	msg, err := inv.Message()
	if err != nil {
		return SignedInvocation{}, err
	}
	out := SignedInvocation{Invocation: inv}
	for _, kp := range signers {
		out.Signatures = append(out.Signatures, Signature{Signer: kp.Address(), Sig: kp.Sign(msg)})
	}
	return out, nil
}

// Encode returns the Borsh wire form used by transports.
func (s SignedInvocation) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(&s); err != nil {
		return nil, fmt.Errorf("runtime: encode signed invocation: %w", err)
	}
	return buf.Bytes(), nil
}

func DecodeSignedInvocation(b []byte) (SignedInvocation, error) {
	var s SignedInvocation
	if err := bin.NewBorshDecoder(b).Decode(&s); err != nil {
		return SignedInvocation{}, fmt.Errorf("%w: %v", ErrInvalidInvocation, err)
	}
	return s, nil
}
