// Package wabisabi implements keyed-verification anonymous credentials for
// WabiSabi coordinators and clients.
package wabisabi

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/bwesterb/go-ristretto"
	"github.com/dchest/blake2b"
	"github.com/pkg/errors"
)

const (
	WABISABI_DOMAIN_TAG   = "WabiSabi_v1.0"
	GENERATORS_DOMAIN_TAG = "wabisabi_generators"
	MAC_U_DOMAIN_TAG      = "wabisabi_mac_u"
)

func hashToPoint(tag string, data ...[]byte) *ristretto.Point {
	hash := blake2b.New512()
	hash.Write([]byte(tag))
	for _, d := range data {
		hash.Write(d)
	}
	return pointFromUniformBytes(hash.Sum(nil))
}

func uint64ToScalar(i uint64) *ristretto.Scalar {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[:], i)
	var s ristretto.Scalar
	return s.SetBytes(&buf)
}

// int64ToScalar maps negative values to their additive inverse mod the group order.
func int64ToScalar(i int64) *ristretto.Scalar {
	if i >= 0 {
		return uint64ToScalar(uint64(i))
	}
	abs := uint64(^i) + 1
	var s ristretto.Scalar
	return s.Neg(uint64ToScalar(abs))
}

func multiscalarMul(scalars []*ristretto.Scalar, points []*ristretto.Point) *ristretto.Point {
	var p ristretto.Point
	p.SetZero()
	for i := range scalars {
		if scalars[i] == nil || points[i] == nil {
			continue
		}
		var t ristretto.Point
		t.ScalarMult(points[i], scalars[i])
		p.Add(&p, &t)
	}
	return &p
}

func fromBytesModOrderWide(data []byte) *ristretto.Scalar {
	var data64 [64]byte
	copy(data64[:], data)
	var hs ristretto.Scalar
	return hs.SetReduced(&data64)
}

func randomScalar(rng io.Reader) (*ristretto.Scalar, error) {
	if rng == nil {
		rng = rand.Reader
	}
	var buf [64]byte
	if _, err := io.ReadFull(rng, buf[:]); err != nil {
		return nil, errors.Wrap(err, "read randomness")
	}
	return fromBytesModOrderWide(buf[:]), nil
}

func randomScalars(rng io.Reader, n int) ([]*ristretto.Scalar, error) {
	out := make([]*ristretto.Scalar, n)
	for i := range out {
		s, err := randomScalar(rng)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func zeroScalar() *ristretto.Scalar {
	var s ristretto.Scalar
	return s.SetZero()
}

func identityPoint() *ristretto.Point {
	var p ristretto.Point
	return p.SetZero()
}

func cloneScalar(s *ristretto.Scalar) *ristretto.Scalar {
	var r ristretto.Scalar
	r.SetZero()
	return r.Add(&r, s)
}

func sumPoints(points []*ristretto.Point) *ristretto.Point {
	sum := identityPoint()
	for _, p := range points {
		sum.Add(sum, p)
	}
	return sum
}

func sumScalars(scalars []*ristretto.Scalar) *ristretto.Scalar {
	sum := zeroScalar()
	for _, s := range scalars {
		sum.Add(sum, s)
	}
	return sum
}

type pointKey [32]byte

func keyOfPoint(p *ristretto.Point) pointKey {
	var k pointKey
	copy(k[:], p.Bytes())
	return k
}
