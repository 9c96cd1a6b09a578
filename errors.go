package wabisabi

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode distinguishes protocol failures so the round logic can decide
// whether to drop a participant or the whole round.
type ErrorCode int

const (
	InvalidNumberOfRequestedCredentials ErrorCode = iota + 1
	InvalidNumberOfPresentedCredentials
	NegativeBalance
	InvalidBitCommitment
	SerialNumberDuplicated
	SerialNumberAlreadyUsed
	CoordinatorReceivedInvalidProofs

	NotEnoughZeroCredentialToFillTheRequest
	CredentialToPresentDuplicated
	IssuedCredentialNumberMismatch
	ClientReceivedInvalidProofs
)

var errorCodeNames = map[ErrorCode]string{
	InvalidNumberOfRequestedCredentials:     "InvalidNumberOfRequestedCredentials",
	InvalidNumberOfPresentedCredentials:     "InvalidNumberOfPresentedCredentials",
	NegativeBalance:                         "NegativeBalance",
	InvalidBitCommitment:                    "InvalidBitCommitment",
	SerialNumberDuplicated:                  "SerialNumberDuplicated",
	SerialNumberAlreadyUsed:                 "SerialNumberAlreadyUsed",
	CoordinatorReceivedInvalidProofs:        "CoordinatorReceivedInvalidProofs",
	NotEnoughZeroCredentialToFillTheRequest: "NotEnoughZeroCredentialToFillTheRequest",
	CredentialToPresentDuplicated:           "CredentialToPresentDuplicated",
	IssuedCredentialNumberMismatch:          "IssuedCredentialNumberMismatch",
	ClientReceivedInvalidProofs:             "ClientReceivedInvalidProofs",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

func ParseErrorCode(name string) (ErrorCode, bool) {
	for c, n := range errorCodeNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// ProtocolError is the only error type HandleRequest and HandleResponse
// return for a rejected message.
type ProtocolError struct {
	Code    ErrorCode
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any ProtocolError with the same code.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	return ok && t.Code == e.Code
}

func newProtocolError(code ErrorCode, format string, args ...interface{}) error {
	return &ProtocolError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCodeOf extracts the protocol error code from err, if any.
func ErrorCodeOf(err error) (ErrorCode, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return 0, false
}

var (
	ErrInvalidNumberOfRequestedCredentials     = &ProtocolError{Code: InvalidNumberOfRequestedCredentials}
	ErrInvalidNumberOfPresentedCredentials     = &ProtocolError{Code: InvalidNumberOfPresentedCredentials}
	ErrNegativeBalance                         = &ProtocolError{Code: NegativeBalance}
	ErrInvalidBitCommitment                    = &ProtocolError{Code: InvalidBitCommitment}
	ErrSerialNumberDuplicated                  = &ProtocolError{Code: SerialNumberDuplicated}
	ErrSerialNumberAlreadyUsed                 = &ProtocolError{Code: SerialNumberAlreadyUsed}
	ErrCoordinatorReceivedInvalidProofs        = &ProtocolError{Code: CoordinatorReceivedInvalidProofs}
	ErrNotEnoughZeroCredentialToFillTheRequest = &ProtocolError{Code: NotEnoughZeroCredentialToFillTheRequest}
	ErrCredentialToPresentDuplicated           = &ProtocolError{Code: CredentialToPresentDuplicated}
	ErrIssuedCredentialNumberMismatch          = &ProtocolError{Code: IssuedCredentialNumberMismatch}
	ErrClientReceivedInvalidProofs             = &ProtocolError{Code: ClientReceivedInvalidProofs}
)
