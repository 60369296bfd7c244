package vault

import (
	"encoding/binary"
	"testing"
)

func TestDecodeRequestLayout(t *testing.T) {
	data := make([]byte, RequestSize)
	data[0] = 7
	binary.LittleEndian.PutUint64(data[1:], 128)

	req, err := DecodeRequest(data)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if req.Bump != 7 || req.Space != 128 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeRequestIgnoresTrailingBytes(t *testing.T) {
	data := []byte{255, 1, 0, 0, 0, 0, 0, 0, 0, 0xde, 0xad}
	req, err := DecodeRequest(data)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if req.Bump != 255 || req.Space != 1 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeRequestShortInput(t *testing.T) {
	for n := 0; n < RequestSize; n++ {
		_, err := DecodeRequest(make([]byte, n))
		if !IsKind(err, KindMalformedRequest) {
			t.Fatalf("len %d: got %v want MalformedRequest", n, err)
		}
	}
}

func TestRequestRoundTrip(t *testing.T) {
	cases := []Request{
		{},
		{Bump: 7, Space: 128},
		{Bump: 255, Space: ^uint64(0)},
		{Bump: 1, Space: 10 << 20},
	}
	for _, want := range cases {
		b, err := want.MarshalBinary()
		if err != nil {
			t.Fatalf("MarshalBinary(%+v): %v", want, err)
		}
		if len(b) != RequestSize {
			t.Fatalf("encoded size: got %d want %d", len(b), RequestSize)
		}
		got, err := DecodeRequest(b)
		if err != nil {
			t.Fatalf("DecodeRequest: %v", err)
		}
		if got != want {
			t.Fatalf("round trip: got %+v want %+v", got, want)
		}
	}
}
