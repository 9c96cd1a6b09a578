// Package rpc exposes a round coordinator over gRPC. Messages travel in their
// own protobuf compatible encoding through the "wabisabi" codec.
package rpc

import (
	"encoding"

	"github.com/pkg/errors"
	grpcencoding "google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protowire"

	wabisabi "github.com/MixinNetwork/wabisabi-go"
)

const codecName = "wabisabi"

func init() {
	grpcencoding.RegisterCodec(codec{})
}

type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(encoding.BinaryMarshaler)
	if !ok {
		return nil, errors.Errorf("rpc: cannot marshal %T", v)
	}
	return m.MarshalBinary()
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(encoding.BinaryUnmarshaler)
	if !ok {
		return errors.Errorf("rpc: cannot unmarshal %T", v)
	}
	return m.UnmarshalBinary(data)
}

func (codec) Name() string {
	return codecName
}

// RegisterRequest carries a registration request for the round RoundID.
type RegisterRequest struct {
	RoundID string
	Request *wabisabi.RegistrationRequestMessage
}

func (r *RegisterRequest) MarshalBinary() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, r.RoundID)
	if r.Request != nil {
		req, err := r.Request.MarshalBinary()
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, req)
	}
	return b, nil
}

func (r *RegisterRequest) UnmarshalBinary(b []byte) error {
	*r = RegisterRequest{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "register request")
		}
		b = b[n:]
		if typ != protowire.BytesType || (num != 1 && num != 2) {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "register request")
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "register request")
		}
		b = b[n:]
		if num == 1 {
			r.RoundID = string(v)
			continue
		}
		r.Request = new(wabisabi.RegistrationRequestMessage)
		if err := r.Request.UnmarshalBinary(v); err != nil {
			return err
		}
	}
	return nil
}

// AnnouncementRequest asks for the announcement of the current round.
type AnnouncementRequest struct{}

func (*AnnouncementRequest) MarshalBinary() ([]byte, error) {
	return nil, nil
}

func (*AnnouncementRequest) UnmarshalBinary([]byte) error {
	return nil
}
