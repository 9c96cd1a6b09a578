package wabisabi

import (
	"fmt"
	"io"

	"github.com/bwesterb/go-ristretto"
)

type StatementKind uint8

const (
	StatementZero StatementKind = iota + 1
	StatementRange
	StatementShowCredential
	StatementBalance
	StatementIssuerParameters
)

func (k StatementKind) String() string {
	switch k {
	case StatementZero:
		return "zero"
	case StatementRange:
		return "range"
	case StatementShowCredential:
		return "show-credential"
	case StatementBalance:
		return "balance"
	case StatementIssuerParameters:
		return "issuer-parameters"
	}
	return fmt.Sprintf("statement(%d)", uint8(k))
}

// Equation is the linear relation Public = sum(Generators[j] * witness[j]).
// A nil generator means witness j does not take part in the equation.
type Equation struct {
	Public     *ristretto.Point
	Generators []*ristretto.Point
}

// Statement is a set of equations over one shared witness vector.
type Statement struct {
	Kind      StatementKind
	Equations []*Equation
}

func (s *Statement) WitnessLength() int {
	if len(s.Equations) == 0 {
		return 0
	}
	return len(s.Equations[0].Generators)
}

func newStatement(kind StatementKind, witnessLength int, publics ...*ristretto.Point) *Statement {
	s := &Statement{Kind: kind, Equations: make([]*Equation, len(publics))}
	for i, p := range publics {
		s.Equations[i] = &Equation{Public: p, Generators: make([]*ristretto.Point, witnessLength)}
	}
	return s
}

// NewZeroStatement: Ma = r*Gh
// witness: [r]
func NewZeroStatement(ma *ristretto.Point) *Statement {
	s := newStatement(StatementZero, 1, ma)
	s.Equations[0].Generators[0] = DefaultGenerators().Gh
	return s
}

// NewRangeStatement proves the amount in Ma is sum(b_i * 2^i) with every b_i a bit.
// witness: [r, b_0..b_n-1, r_0..r_n-1, -b_0*r_0..-b_n-1*r_n-1]
//
//	Ma  = r*Gh + sum(b_i * 2^i*Gg)
//	B_i = b_i*Gg + r_i*Gh
//	O   = b_i*(B_i - Gg) + (-b_i*r_i)*Gh
func NewRangeStatement(ma *ristretto.Point, bitCommitments []*ristretto.Point) *Statement {
	g := DefaultGenerators()
	n := len(bitCommitments)

	publics := make([]*ristretto.Point, 0, 1+2*n)
	publics = append(publics, ma)
	publics = append(publics, bitCommitments...)
	for i := 0; i < n; i++ {
		publics = append(publics, identityPoint())
	}
	s := newStatement(StatementRange, 1+3*n, publics...)

	s.Equations[0].Generators[0] = g.Gh
	for i := 0; i < n; i++ {
		s.Equations[0].Generators[1+i] = g.Pow2Gg(i)

		bit := s.Equations[1+i]
		bit.Generators[1+i] = g.Gg
		bit.Generators[1+n+i] = g.Gh

		var bMinusGg ristretto.Point
		bMinusGg.Sub(bitCommitments[i], g.Gg)
		product := s.Equations[1+n+i]
		product.Generators[1+i] = &bMinusGg
		product.Generators[1+2*n+i] = g.Gh
	}
	return s
}

// NewShowCredentialStatement
// witness: [z, z0, t, a, r]
//
//	Z   = z*I
//	Cx1 = z*Gx1 + z0*Gx0 + t*Cx0
//	Ca  = z*Ga + a*Gg + r*Gh
//	S   = r*Gs
func NewShowCredentialStatement(p *CredentialPresentation, z *ristretto.Point, parameters *CredentialIssuerParameters) *Statement {
	g := DefaultGenerators()
	s := newStatement(StatementShowCredential, 5, z, p.Cx1, p.Ca, p.S)

	s.Equations[0].Generators[0] = parameters.I

	s.Equations[1].Generators[0] = g.Gx1
	s.Equations[1].Generators[1] = g.Gx0
	s.Equations[1].Generators[2] = p.Cx0

	s.Equations[2].Generators[0] = g.Ga
	s.Equations[2].Generators[3] = g.Gg
	s.Equations[2].Generators[4] = g.Gh

	s.Equations[3].Generators[4] = g.Gs
	return s
}

// NewBalanceStatement: delta*Gg + sum(Ca) - sum(Ma) = z*Ga + dr*Gh
// witness: [z, dr]
func NewBalanceStatement(delta int64, presented, requested []*ristretto.Point) *Statement {
	g := DefaultGenerators()
	var public ristretto.Point
	public.Sub(sumPoints(presented), sumPoints(requested))
	public.Add(&public, multiscalarMul([]*ristretto.Scalar{int64ToScalar(delta)}, []*ristretto.Point{g.Gg}))

	s := newStatement(StatementBalance, 2, &public)
	s.Equations[0].Generators[0] = g.Ga
	s.Equations[0].Generators[1] = g.Gh
	return s
}

// NewIssuerParametersStatement proves mac was computed with the key behind parameters.
// witness: [w, wp, x0, x1, ya]
//
//	Cw     = w*Gw + wp*Gwp
//	GV - I = x0*Gx0 + x1*Gx1 + ya*Ga
//	V      = w*Gw + x0*U + x1*t*U + ya*Ma
func NewIssuerParametersStatement(parameters *CredentialIssuerParameters, mac *MAC, ma *ristretto.Point) *Statement {
	g := DefaultGenerators()
	var gvMinusI ristretto.Point
	gvMinusI.Sub(g.GV, parameters.I)
	s := newStatement(StatementIssuerParameters, 5, parameters.Cw, &gvMinusI, mac.V)

	s.Equations[0].Generators[0] = g.Gw
	s.Equations[0].Generators[1] = g.Gwp

	s.Equations[1].Generators[2] = g.Gx0
	s.Equations[1].Generators[3] = g.Gx1
	s.Equations[1].Generators[4] = g.Ga

	u := mac.U()
	var tu ristretto.Point
	tu.ScalarMult(u, mac.T)
	s.Equations[2].Generators[0] = g.Gw
	s.Equations[2].Generators[2] = u
	s.Equations[2].Generators[3] = &tu
	s.Equations[2].Generators[4] = ma
	return s
}

// Knowledge is a statement together with the witness the prover claims satisfies it.
type Knowledge struct {
	Statement *Statement
	Witness   []*ristretto.Scalar
}

func NewZeroKnowledge(ma *ristretto.Point, r *ristretto.Scalar) *Knowledge {
	return &Knowledge{Statement: NewZeroStatement(ma), Witness: []*ristretto.Scalar{r}}
}

// NewRangeKnowledge decomposes the low width bits of value. Values outside
// [0, 2^width) yield a witness that does not satisfy the statement.
func NewRangeKnowledge(ma *ristretto.Point, value int64, r *ristretto.Scalar, width int, rng io.Reader) (*Knowledge, []*ristretto.Point, error) {
	g := DefaultGenerators()
	bitRandomness, err := randomScalars(rng, width)
	if err != nil {
		return nil, nil, err
	}

	bits := make([]*ristretto.Scalar, width)
	products := make([]*ristretto.Scalar, width)
	commitments := make([]*ristretto.Point, width)
	for i := 0; i < width; i++ {
		bits[i] = uint64ToScalar((uint64(value) >> uint(i)) & 1)
		commitments[i] = g.Commit(bits[i], bitRandomness[i])
		var p ristretto.Scalar
		p.Mul(bits[i], bitRandomness[i])
		products[i] = p.Neg(&p)
	}

	witness := make([]*ristretto.Scalar, 0, 1+3*width)
	witness = append(witness, r)
	witness = append(witness, bits...)
	witness = append(witness, bitRandomness...)
	witness = append(witness, products...)

	return &Knowledge{Statement: NewRangeStatement(ma, commitments), Witness: witness}, commitments, nil
}

func NewShowCredentialKnowledge(p *CredentialPresentation, z *ristretto.Scalar, c *Credential, parameters *CredentialIssuerParameters) *Knowledge {
	var bigZ ristretto.Point
	bigZ.ScalarMult(parameters.I, z)

	var z0 ristretto.Scalar
	z0.Mul(z, c.Mac.T)
	z0.Neg(&z0)

	return &Knowledge{
		Statement: NewShowCredentialStatement(p, &bigZ, parameters),
		Witness:   []*ristretto.Scalar{z, &z0, c.Mac.T, c.Amount(), c.Randomness},
	}
}

func NewBalanceKnowledge(delta int64, presented, requested []*ristretto.Point, z, dr *ristretto.Scalar) *Knowledge {
	return &Knowledge{
		Statement: NewBalanceStatement(delta, presented, requested),
		Witness:   []*ristretto.Scalar{z, dr},
	}
}

func NewIssuerParametersKnowledge(mac *MAC, ma *ristretto.Point, sk *CredentialIssuerSecretKey, parameters *CredentialIssuerParameters) *Knowledge {
	return &Knowledge{
		Statement: NewIssuerParametersStatement(parameters, mac, ma),
		Witness:   sk.witness(),
	}
}
