package wabisabi

import (
	"io"

	"github.com/bwesterb/go-ristretto"
)

// CredentialIssuerSecretKey is generated once per round and never leaves the coordinator.
type CredentialIssuerSecretKey struct {
	w, wp, x0, x1, ya *ristretto.Scalar
}

// CredentialIssuerParameters are the public counterpart of a CredentialIssuerSecretKey.
type CredentialIssuerParameters struct {
	Cw *ristretto.Point
	I  *ristretto.Point
}

func NewCredentialIssuerSecretKey(rng io.Reader) (*CredentialIssuerSecretKey, error) {
	s, err := randomScalars(rng, 5)
	if err != nil {
		return nil, err
	}
	return &CredentialIssuerSecretKey{w: s[0], wp: s[1], x0: s[2], x1: s[3], ya: s[4]}, nil
}

// Cw = w*Gw + wp*Gwp
// I  = GV - (x0*Gx0 + x1*Gx1 + ya*Ga)
func (sk *CredentialIssuerSecretKey) ComputeCredentialIssuerParameters() *CredentialIssuerParameters {
	g := DefaultGenerators()
	cw := multiscalarMul([]*ristretto.Scalar{sk.w, sk.wp}, []*ristretto.Point{g.Gw, g.Gwp})
	var i ristretto.Point
	i.Sub(g.GV, multiscalarMul(
		[]*ristretto.Scalar{sk.x0, sk.x1, sk.ya},
		[]*ristretto.Point{g.Gx0, g.Gx1, g.Ga},
	))
	return &CredentialIssuerParameters{Cw: cw, I: &i}
}

func (sk *CredentialIssuerSecretKey) witness() []*ristretto.Scalar {
	return []*ristretto.Scalar{sk.w, sk.wp, sk.x0, sk.x1, sk.ya}
}

func (p *CredentialIssuerParameters) Equals(o *CredentialIssuerParameters) bool {
	return p.Cw.Equals(o.Cw) && p.I.Equals(o.I)
}
