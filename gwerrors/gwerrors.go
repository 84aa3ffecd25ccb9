// Package gwerrors defines the error taxonomy shared by every component of
// the gateway core: codec, sigverify, epoch, proof, approval, and executor
// all report failures as a *gwerrors.Error carrying one of the Kind values
// below, so callers can switch on the failure class instead of matching
// strings.
package gwerrors

import "fmt"

// Kind classifies a gateway error into the taxonomy the core components
// agree on. Each Kind is fatal to the call that produced it unless the
// caller is explicitly documented as catching and swallowing it (only
// executor's per-command dispatch loop does this, for any Kind).
type Kind string

const (
	KindDecodeError            Kind = "DecodeError"
	KindInvalidOperators       Kind = "InvalidOperators"
	KindInvalidWeights         Kind = "InvalidWeights"
	KindInvalidThreshold       Kind = "InvalidThreshold"
	KindDuplicateOperators     Kind = "DuplicateOperators"
	KindUnknownOperators       Kind = "UnknownOperators"
	KindExpiredOperators       Kind = "ExpiredOperators"
	KindMalformedSigners       Kind = "MalformedSigners"
	KindLowSignatureWeight     Kind = "LowSignatureWeight"
	KindInvalidChainID         Kind = "InvalidChainId"
	KindInvalidCommands        Kind = "InvalidCommands"
	KindUnauthorized           Kind = "Unauthorized"
	KindInvalidSignatureLength Kind = "InvalidSignatureLength"
)

// Error is the error type the core packages construct for their own
// failures; errors from an injected store or sink are passed through as
// they are.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, target) report true when target is an *Error of
// the same Kind, e.g. errors.Is(err, gwerrors.UnknownOperators()); Message
// and cause are not compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func DecodeError(cause error) *Error {
	return New(KindDecodeError, "malformed ABI input", cause)
}

func InvalidOperators(message string) *Error {
	return New(KindInvalidOperators, message, nil)
}

func InvalidWeights(message string) *Error {
	return New(KindInvalidWeights, message, nil)
}

func InvalidThreshold(message string) *Error {
	return New(KindInvalidThreshold, message, nil)
}

func DuplicateOperators() *Error {
	return New(KindDuplicateOperators, "operator set hash already registered", nil)
}

func UnknownOperators() *Error {
	return New(KindUnknownOperators, "operator set hash not registered", nil)
}

func ExpiredOperators() *Error {
	return New(KindExpiredOperators, "operator set epoch older than retention window", nil)
}

func MalformedSigners() *Error {
	return New(KindMalformedSigners, "signature recovered to no operator in position", nil)
}

func LowSignatureWeight() *Error {
	return New(KindLowSignatureWeight, "accumulated weight never reached threshold", nil)
}

func InvalidChainID(got, want uint64) *Error {
	return New(KindInvalidChainID, fmt.Sprintf("batch chain id %d does not match deployment chain id %d", got, want), nil)
}

func InvalidCommands(message string) *Error {
	return New(KindInvalidCommands, message, nil)
}

func Unauthorized() *Error {
	return New(KindUnauthorized, "caller is not the owner", nil)
}

func InvalidSignatureLength(got int) *Error {
	return New(KindInvalidSignatureLength, fmt.Sprintf("signature must be 65 bytes, got %d", got), nil)
}
