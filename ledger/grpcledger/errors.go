package grpcledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"xdao.co/vault/ledger"
	"xdao.co/vault/runtime"
	"xdao.co/vault/vault"
)

const (
	trailerKind    = "vault-kind"
	trailerMessage = "vault-message"
)

var runtimeErrors = []error{
	runtime.ErrUnknownProgram,
	runtime.ErrMissingSignature,
	runtime.ErrInvalidInvocation,
}

func kindCode(k vault.Kind) codes.Code {
	switch k {
	case vault.KindMissingFunderAuthorization:
		return codes.PermissionDenied
	case vault.KindCostScheduleUnavailable:
		return codes.Unavailable
	case vault.KindCreationRejectedByLedger:
		return codes.FailedPrecondition
	default:
		return codes.InvalidArgument
	}
}

// mapErr converts a server-side error to a status. Structured vault errors
// also set trailers so the client can rebuild them.
func mapErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var ve *vault.Error
	if errors.As(err, &ve) {
		_ = grpc.SetTrailer(ctx, metadata.Pairs(trailerKind, string(ve.Kind), trailerMessage, ve.Message))
		return status.Error(kindCode(ve.Kind), err.Error())
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, runtime.ErrUnknownProgram), errors.Is(err, ledger.ErrUnknownAccount):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, runtime.ErrMissingSignature):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, runtime.ErrInvalidInvocation):
		return status.Error(codes.InvalidArgument, err.Error())
	case ledger.Reason(err) != nil:
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// mapRPC rebuilds the error a server reported, restoring *vault.Error and the
// runtime and ledger sentinels so callers can keep using errors.Is/As.
// Anything else is returned as the gRPC status error.
func mapRPC(err error, trailer metadata.MD) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}

	msg := st.Message()
	if k, ok := vault.ParseKind(first(trailer.Get(trailerKind))); ok {
		vm := first(trailer.Get(trailerMessage))
		out := &vault.Error{Kind: k, Message: vm}
		if rest, found := strings.CutPrefix(msg, string(k)+": "+vm+": "); found {
			out.Cause = restore(rest)
		}
		return out
	}
	if restored := restore(msg); isSentinel(restored) {
		return restored
	}
	return err
}

func restore(text string) error {
	for _, r := range runtimeErrors {
		if rest, found := strings.CutPrefix(text, r.Error()); found {
			return fmt.Errorf("%w%s", r, rest)
		}
	}
	return ledger.Restore(text)
}

func isSentinel(err error) bool {
	if ledger.Reason(err) != nil {
		return true
	}
	for _, r := range runtimeErrors {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
