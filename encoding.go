package wabisabi

import (
	"github.com/bwesterb/go-ristretto"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Wire layout, protobuf compatible:
//
//	RegistrationRequestMessage  { sint64 delta = 1; repeated Presentation presented = 2; repeated IssuanceRequest requested = 3; repeated Proof proofs = 4; }
//	Presentation                { bytes ca = 1; bytes cx0 = 2; bytes cx1 = 3; bytes cv = 4; bytes s = 5; }
//	IssuanceRequest             { bytes ma = 1; repeated bytes bit_commitments = 2; }
//	Proof                       { repeated bytes public_nonces = 1; repeated bytes responses = 2; }
//	RegistrationResponseMessage { repeated MAC issued = 1; repeated Proof proofs = 2; }
//	MAC                         { bytes t = 1; bytes v = 2; }
//	CredentialIssuerParameters  { bytes cw = 1; bytes i = 2; }

var errInvalidEncoding = errors.New("invalid encoding")

func appendPointField(b []byte, num protowire.Number, p *ristretto.Point) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, p.Bytes())
}

func appendScalarField(b []byte, num protowire.Number, s *ristretto.Scalar) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, s.Bytes())
}

func appendMessageField(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

func decodePoint(b []byte) (*ristretto.Point, error) {
	if len(b) != 32 {
		return nil, errors.Wrapf(errInvalidEncoding, "point length %d", len(b))
	}
	var buf [32]byte
	copy(buf[:], b)
	var p ristretto.Point
	if !p.SetBytes(&buf) {
		return nil, errors.Wrap(errInvalidEncoding, "point not on the group")
	}
	return &p, nil
}

func decodeScalar(b []byte) (*ristretto.Scalar, error) {
	if len(b) != 32 {
		return nil, errors.Wrapf(errInvalidEncoding, "scalar length %d", len(b))
	}
	var buf [32]byte
	copy(buf[:], b)
	var s ristretto.Scalar
	return s.SetBytes(&buf), nil
}

// consumeFields walks a protobuf message, calling fn for each length delimited
// or varint field. Unknown fields are skipped.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "consume tag")
		}
		b = b[n:]
		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "consume bytes")
			}
			if err := fn(num, typ, v, 0); err != nil {
				return err
			}
			b = b[n:]
		case protowire.VarintType:
			x, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "consume varint")
			}
			if err := fn(num, typ, nil, x); err != nil {
				return err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "consume field")
			}
			b = b[n:]
		}
	}
	return nil
}

func (p *Proof) marshal() []byte {
	var b []byte
	for _, n := range p.PublicNonces {
		b = appendPointField(b, 1, n)
	}
	for _, r := range p.Responses {
		b = appendScalarField(b, 2, r)
	}
	return b
}

func unmarshalProof(b []byte) (*Proof, error) {
	p := &Proof{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		switch num {
		case 1:
			n, err := decodePoint(v)
			if err != nil {
				return err
			}
			p.PublicNonces = append(p.PublicNonces, n)
		case 2:
			r, err := decodeScalar(v)
			if err != nil {
				return err
			}
			p.Responses = append(p.Responses, r)
		}
		return nil
	})
	return p, err
}

func (p *CredentialPresentation) marshal() []byte {
	var b []byte
	b = appendPointField(b, 1, p.Ca)
	b = appendPointField(b, 2, p.Cx0)
	b = appendPointField(b, 3, p.Cx1)
	b = appendPointField(b, 4, p.CV)
	b = appendPointField(b, 5, p.S)
	return b
}

func unmarshalPresentation(b []byte) (*CredentialPresentation, error) {
	p := &CredentialPresentation{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		var dst **ristretto.Point
		switch num {
		case 1:
			dst = &p.Ca
		case 2:
			dst = &p.Cx0
		case 3:
			dst = &p.Cx1
		case 4:
			dst = &p.CV
		case 5:
			dst = &p.S
		default:
			return nil
		}
		point, err := decodePoint(v)
		if err != nil {
			return err
		}
		*dst = point
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !p.wellFormed() {
		return nil, errors.Wrap(errInvalidEncoding, "incomplete presentation")
	}
	return p, nil
}

func (r *IssuanceRequest) marshal() []byte {
	var b []byte
	b = appendPointField(b, 1, r.Ma)
	for _, c := range r.BitCommitments {
		b = appendPointField(b, 2, c)
	}
	return b
}

func unmarshalIssuanceRequest(b []byte) (*IssuanceRequest, error) {
	r := &IssuanceRequest{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		switch num {
		case 1:
			ma, err := decodePoint(v)
			if err != nil {
				return err
			}
			r.Ma = ma
		case 2:
			c, err := decodePoint(v)
			if err != nil {
				return err
			}
			r.BitCommitments = append(r.BitCommitments, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if r.Ma == nil {
		return nil, errors.Wrap(errInvalidEncoding, "missing Ma")
	}
	return r, nil
}

func (m *RegistrationRequestMessage) MarshalBinary() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.DeltaAmount))
	for _, p := range m.Presented {
		b = appendMessageField(b, 2, p.marshal())
	}
	for _, r := range m.Requested {
		b = appendMessageField(b, 3, r.marshal())
	}
	for _, p := range m.Proofs {
		b = appendMessageField(b, 4, p.marshal())
	}
	return b, nil
}

func (m *RegistrationRequestMessage) UnmarshalBinary(b []byte) error {
	*m = RegistrationRequestMessage{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch num {
		case 1:
			m.DeltaAmount = protowire.DecodeZigZag(x)
		case 2:
			p, err := unmarshalPresentation(v)
			if err != nil {
				return errors.Wrap(err, "presented")
			}
			m.Presented = append(m.Presented, p)
		case 3:
			r, err := unmarshalIssuanceRequest(v)
			if err != nil {
				return errors.Wrap(err, "requested")
			}
			m.Requested = append(m.Requested, r)
		case 4:
			p, err := unmarshalProof(v)
			if err != nil {
				return errors.Wrap(err, "proof")
			}
			m.Proofs = append(m.Proofs, p)
		}
		return nil
	})
}

func (m *MAC) marshal() []byte {
	var b []byte
	b = appendScalarField(b, 1, m.T)
	b = appendPointField(b, 2, m.V)
	return b
}

func unmarshalMAC(b []byte) (*MAC, error) {
	m := &MAC{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		var err error
		switch num {
		case 1:
			m.T, err = decodeScalar(v)
		case 2:
			m.V, err = decodePoint(v)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if m.T == nil || m.V == nil {
		return nil, errors.Wrap(errInvalidEncoding, "incomplete MAC")
	}
	return m, nil
}

func (m *RegistrationResponseMessage) MarshalBinary() ([]byte, error) {
	var b []byte
	for _, mac := range m.IssuedCredentials {
		b = appendMessageField(b, 1, mac.marshal())
	}
	for _, p := range m.Proofs {
		b = appendMessageField(b, 2, p.marshal())
	}
	return b, nil
}

func (m *RegistrationResponseMessage) UnmarshalBinary(b []byte) error {
	*m = RegistrationResponseMessage{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		switch num {
		case 1:
			mac, err := unmarshalMAC(v)
			if err != nil {
				return errors.Wrap(err, "issued credential")
			}
			m.IssuedCredentials = append(m.IssuedCredentials, mac)
		case 2:
			p, err := unmarshalProof(v)
			if err != nil {
				return errors.Wrap(err, "proof")
			}
			m.Proofs = append(m.Proofs, p)
		}
		return nil
	})
}

func (p *CredentialIssuerParameters) MarshalBinary() ([]byte, error) {
	var b []byte
	b = appendPointField(b, 1, p.Cw)
	b = appendPointField(b, 2, p.I)
	return b, nil
}

func (p *CredentialIssuerParameters) UnmarshalBinary(b []byte) error {
	*p = CredentialIssuerParameters{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		var err error
		switch num {
		case 1:
			p.Cw, err = decodePoint(v)
		case 2:
			p.I, err = decodePoint(v)
		}
		return err
	})
	if err != nil {
		return err
	}
	if p.Cw == nil || p.I == nil {
		return errors.Wrap(errInvalidEncoding, "incomplete issuer parameters")
	}
	return nil
}
