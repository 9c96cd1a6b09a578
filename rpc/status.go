package rpc

import (
	"github.com/pkg/errors"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	wabisabi "github.com/MixinNetwork/wabisabi-go"
	"github.com/MixinNetwork/wabisabi-go/round"
)

const (
	errorDomain        = "wabisabi"
	unknownRoundReason = "UnknownRound"
)

func grpcCode(code wabisabi.ErrorCode) codes.Code {
	switch code {
	case wabisabi.SerialNumberAlreadyUsed:
		return codes.AlreadyExists
	case wabisabi.CoordinatorReceivedInvalidProofs:
		return codes.PermissionDenied
	case wabisabi.NegativeBalance:
		return codes.FailedPrecondition
	default:
		return codes.InvalidArgument
	}
}

// toStatus turns issuer errors into a gRPC status carrying the error code as
// an ErrorInfo detail.
func toStatus(err error) error {
	var pe *wabisabi.ProtocolError
	switch {
	case errors.As(err, &pe):
		return withInfo(status.New(grpcCode(pe.Code), err.Error()), pe.Code.String(), pe.Message)
	case errors.Is(err, round.ErrUnknownRound):
		return withInfo(status.New(codes.NotFound, err.Error()), unknownRoundReason, "")
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func withInfo(st *status.Status, reason, message string) error {
	info := &errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   errorDomain,
		Metadata: map[string]string{"message": message},
	}
	if detailed, err := st.WithDetails(info); err == nil {
		st = detailed
	}
	return st.Err()
}

// fromStatus reverses toStatus so callers can match errors with ErrorCodeOf
// and errors.Is.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.Domain != errorDomain {
			continue
		}
		if info.Reason == unknownRoundReason {
			return errors.Wrap(round.ErrUnknownRound, st.Message())
		}
		if code, ok := wabisabi.ParseErrorCode(info.Reason); ok {
			return &wabisabi.ProtocolError{Code: code, Message: info.Metadata["message"]}
		}
	}
	return err
}
