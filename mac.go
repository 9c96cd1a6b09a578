package wabisabi

import (
	"github.com/bwesterb/go-ristretto"
)

// MAC is the algebraic MAC (t, V) over a single attribute Ma.
type MAC struct {
	T *ristretto.Scalar
	V *ristretto.Point
}

// ComputeMAC returns V = w*Gw + (x0 + x1*t)*U + ya*Ma with U = HashToGroup(t).
func ComputeMAC(sk *CredentialIssuerSecretKey, ma *ristretto.Point, t *ristretto.Scalar) *MAC {
	g := DefaultGenerators()
	var x ristretto.Scalar
	x.Mul(sk.x1, t)
	x.Add(sk.x0, &x)
	v := multiscalarMul(
		[]*ristretto.Scalar{sk.w, &x, sk.ya},
		[]*ristretto.Point{g.Gw, generateU(t), ma},
	)
	return &MAC{T: cloneScalar(t), V: v}
}

func generateU(t *ristretto.Scalar) *ristretto.Point {
	return hashToPoint(MAC_U_DOMAIN_TAG, t.Bytes())
}

func (m *MAC) U() *ristretto.Point {
	return generateU(m.T)
}

func (m *MAC) Equals(o *MAC) bool {
	return m.T.Equals(o.T) && m.V.Equals(o.V)
}

type macKey [64]byte

func (m *MAC) key() macKey {
	var k macKey
	copy(k[:32], m.T.Bytes())
	copy(k[32:], m.V.Bytes())
	return k
}
