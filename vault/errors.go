package vault

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind rather than matching error strings.
// Use errors.As to extract *Error, or IsKind / KindOf.
type Kind string

const (
	KindMalformedRequest           Kind = "MalformedRequest"
	KindParticipantListTooShort    Kind = "ParticipantListTooShort"
	KindMissingFunderAuthorization Kind = "MissingFunderAuthorization"
	KindInvalidTargetAccountState  Kind = "InvalidTargetAccountState"
	KindUnexpectedAuthorityAccount Kind = "UnexpectedAuthorityAccount"
	KindCostScheduleUnavailable    Kind = "CostScheduleUnavailable"
	KindCreationRejectedByLedger   Kind = "CreationRejectedByLedger"
)

// Kinds lists every Kind in pipeline order.
var Kinds = []Kind{
	KindMalformedRequest,
	KindParticipantListTooShort,
	KindMissingFunderAuthorization,
	KindInvalidTargetAccountState,
	KindUnexpectedAuthorityAccount,
	KindCostScheduleUnavailable,
	KindCreationRejectedByLedger,
}

// Error is the structured failure of a vault operation.
//
// Cause carries the underlying detail when there is one, e.g. the ledger's
// rejection reason for KindCreationRejectedByLedger.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind Kind, msg string, cause error) error {
	if cause == nil {
		return newError(kind, msg)
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// ParseKind returns the Kind named by s, or false.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}
