package wabisabi

import (
	"github.com/bwesterb/go-ristretto"
)

// Credential is an attribute Ma = Value*Gg + Randomness*Gh together with the
// issuer MAC over it. Only the holder knows Value and Randomness.
type Credential struct {
	Value      int64
	Randomness *ristretto.Scalar
	Mac        *MAC
}

// Amount is Value as a scalar.
func (c *Credential) Amount() *ristretto.Scalar {
	return int64ToScalar(c.Value)
}

func (c *Credential) Ma() *ristretto.Point {
	return DefaultGenerators().Commit(c.Amount(), c.Randomness)
}

func (c *Credential) IsZero() bool {
	return c.Value == 0
}

// SerialNumber is Randomness*Gs, identical for every presentation of the credential.
func (c *Credential) SerialNumber() *ristretto.Point {
	var s ristretto.Point
	return s.ScalarMult(DefaultGenerators().Gs, c.Randomness)
}

// Present rerandomizes the credential with z.
func (c *Credential) Present(z *ristretto.Scalar) *CredentialPresentation {
	g := DefaultGenerators()
	u := c.Mac.U()

	var tu ristretto.Point
	tu.ScalarMult(u, c.Mac.T)

	var ca, cx0, cx1, cv ristretto.Point
	ca.Add(multiscalarMul([]*ristretto.Scalar{z}, []*ristretto.Point{g.Ga}), c.Ma())
	cx0.Add(multiscalarMul([]*ristretto.Scalar{z}, []*ristretto.Point{g.Gx0}), u)
	cx1.Add(multiscalarMul([]*ristretto.Scalar{z}, []*ristretto.Point{g.Gx1}), &tu)
	cv.Add(multiscalarMul([]*ristretto.Scalar{z}, []*ristretto.Point{g.GV}), c.Mac.V)

	return &CredentialPresentation{
		Ca:  &ca,
		Cx0: &cx0,
		Cx1: &cx1,
		CV:  &cv,
		S:   c.SerialNumber(),
	}
}

// CredentialPresentation is the unlinkable one-time view of a Credential.
type CredentialPresentation struct {
	Ca  *ristretto.Point
	Cx0 *ristretto.Point
	Cx1 *ristretto.Point
	CV  *ristretto.Point
	S   *ristretto.Point
}

// ComputeZ returns CV - (W + x0*Cx0 + x1*Cx1 + ya*Ca), which equals z*I for
// a presentation of a credential issued under sk.
func (p *CredentialPresentation) ComputeZ(sk *CredentialIssuerSecretKey) *ristretto.Point {
	g := DefaultGenerators()
	var z ristretto.Point
	return z.Sub(p.CV, multiscalarMul(
		[]*ristretto.Scalar{sk.w, sk.x0, sk.x1, sk.ya},
		[]*ristretto.Point{g.Gw, p.Cx0, p.Cx1, p.Ca},
	))
}

func (p *CredentialPresentation) wellFormed() bool {
	return p != nil && p.Ca != nil && p.Cx0 != nil && p.Cx1 != nil && p.CV != nil && p.S != nil
}

// IssuanceRequest is a candidate attribute and, outside null requests, its bit commitments.
type IssuanceRequest struct {
	Ma             *ristretto.Point
	BitCommitments []*ristretto.Point
}

func (r *IssuanceRequest) wellFormed() bool {
	if r == nil || r.Ma == nil {
		return false
	}
	for _, b := range r.BitCommitments {
		if b == nil {
			return false
		}
	}
	return true
}
