package grpcledger

import (
	"bytes"
	"context"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/ipfs/go-cid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/vault/address"
	"xdao.co/vault/ledger"
	"xdao.co/vault/runtime"
)

// Ledger is the host ledger a Server exposes. memledger.Ledger implements it.
type Ledger interface {
	MinimumBalance(ctx context.Context, space uint64) (uint64, error)
	Airdrop(ctx context.Context, to address.Address, lamports uint64) error
	Account(addr address.Address) (ledger.Account, bool)
	Head() cid.Cid
}

// Executor runs signed invocations. runtime.Runtime implements it.
type Executor interface {
	Execute(ctx context.Context, signed runtime.SignedInvocation) error
}

type airdropRequest struct {
	To       address.Address
	Lamports uint64
}

// Server exposes a runtime and its ledger over the ledger gRPC service.
type Server struct {
	UnimplementedLedgerServer
	Runtime Executor
	Ledger  Ledger

	// Observe, when set, is called after every Invoke with its outcome.
	Observe func(err error, took time.Duration)
}

func (s *Server) ready() error {
	if s == nil || s.Runtime == nil || s.Ledger == nil {
		return status.Error(codes.FailedPrecondition, "missing runtime or ledger")
	}
	return nil
}

func (s *Server) Invoke(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	start := time.Now()
	err := s.invoke(ctx, in.GetValue())
	if s.Observe != nil {
		s.Observe(err, time.Since(start))
	}
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return wrapperspb.String(headString(s.Ledger.Head())), nil
}

func (s *Server) invoke(ctx context.Context, b []byte) error {
	signed, err := runtime.DecodeSignedInvocation(b)
	if err != nil {
		return err
	}
	return s.Runtime.Execute(ctx, signed)
}

func (s *Server) MinimumBalance(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.UInt64Value, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	lamports, err := s.Ledger.MinimumBalance(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return wrapperspb.UInt64(lamports), nil
}

func (s *Server) GetAccount(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	addr, err := address.FromBytes(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	acct, ok := s.Ledger.Account(addr)
	if !ok {
		return nil, status.Error(codes.NotFound, ledger.ErrUnknownAccount.Error()+": "+addr.String())
	}
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(&acct); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

func (s *Server) Airdrop(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req airdropRequest
	if err := bin.NewBorshDecoder(in.GetValue()).Decode(&req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed airdrop request")
	}
	if err := s.Ledger.Airdrop(ctx, req.To, req.Lamports); err != nil {
		return nil, mapErr(ctx, err)
	}
	return wrapperspb.String(headString(s.Ledger.Head())), nil
}

func headString(c cid.Cid) string {
	if !c.Defined() {
		return ""
	}
	return c.String()
}
