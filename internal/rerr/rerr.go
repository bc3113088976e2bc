// Package rerr defines the domain-tagged error taxonomy shared by every
// core component: the node facade and the transaction pipeline return
// errors wrapped in *rerr.Error, and the device session reports an
// unexpected status word as one, so subscribers can branch on Kind
// without parsing messages.
package rerr

import "fmt"

// Kind identifies the domain a failure belongs to. Names mirror the
// node operation or pipeline phase that produced the failure.
type Kind string

const (
	KindNetworkID           Kind = "NetworkId"
	KindTokenBalances       Kind = "TokenBalances"
	KindTransactionHistory  Kind = "TransactionHistory"
	KindNativeToken         Kind = "NativeToken"
	KindTokenInfo           Kind = "TokenInfo"
	KindStakesForAddress    Kind = "StakesForAddress"
	KindUnstakesForAddress  Kind = "UnstakesForAddress"
	KindValidators          Kind = "Validators"
	KindLookupValidator     Kind = "LookupValidator"
	KindLookupTransaction   Kind = "LookupTransaction"
	KindTransactionStatus   Kind = "TransactionStatus"
	KindNetworkTxThroughput Kind = "NetworkTxThroughput"
	KindNetworkTxDemand     Kind = "NetworkTxDemand"

	KindBuildTxFromIntent Kind = "BuildTxFromIntent"
	KindFinalizeTx        Kind = "FinalizeTx"
	KindSubmitSignedTx    Kind = "SubmitSignedTx"

	KindGetNode      Kind = "GetNode"
	KindLoadKeystore Kind = "LoadKeystore"

	KindDeviceStatus         Kind = "DeviceStatus"
	KindInvalidHDPath        Kind = "InvalidHDPath"
	KindMultipleNonNativeRRI Kind = "MultipleNonNativeRRIs"
	KindHrpTooLong           Kind = "HrpTooLong"
)

// Error is the concrete error type returned across the core's public
// surface. It wraps the underlying cause verbatim (Unwrap exposes it)
// rather than fabricating a new message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// StatusCode and Ins are populated only for KindDeviceStatus.
	StatusCode uint16
	Ins        byte
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Wrap tags an underlying error with a domain Kind without losing its
// message, per the node facade's wrapping contract in the spec.
func Wrap(kind Kind, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: cause.Error(), Cause: cause}
}

// New constructs a Kind-tagged error from a plain message, for failures
// that originate locally (no underlying collaborator error to wrap).
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// DeviceStatus builds the DeviceError(status_code, ins) error named in
// spec.md §4.3: any APDU response status outside expected_status_codes.
func DeviceStatus(status uint16, ins byte) *Error {
	return &Error{
		Kind:       KindDeviceStatus,
		Message:    fmt.Sprintf("unexpected device status 0x%04X for ins 0x%02X", status, ins),
		StatusCode: status,
		Ins:        ins,
	}
}

// Of reports whether err (or something it wraps) is an *Error of the
// given Kind.
func Of(err error, kind Kind) bool {
	for err != nil {
		if rerr, ok := err.(*Error); ok && rerr.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return false
}
