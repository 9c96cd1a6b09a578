package wabisabi

import (
	"fmt"
	"io"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// Proof is the non-interactive proof of one statement: one public nonce per
// equation and one response per witness element.
type Proof struct {
	PublicNonces []*ristretto.Point
	Responses    []*ristretto.Scalar
}

// Prove builds one proof per knowledge. All statements share a single challenge
// so the batch is only valid as a whole.
func Prove(transcript *merlin.Transcript, knowledge []*Knowledge, rng io.Reader) ([]*Proof, error) {
	for _, k := range knowledge {
		if len(k.Witness) != k.Statement.WitnessLength() {
			panic(fmt.Errorf("Prove %s witness length %d, expected %d", k.Statement.Kind, len(k.Witness), k.Statement.WitnessLength()))
		}
		commitStatement(k.Statement, transcript)
	}

	nonces := make([][]*ristretto.Scalar, len(knowledge))
	proofs := make([]*Proof, len(knowledge))
	for i, k := range knowledge {
		ns, err := randomScalars(rng, len(k.Witness))
		if err != nil {
			return nil, err
		}
		nonces[i] = ns

		proofs[i] = &Proof{PublicNonces: make([]*ristretto.Point, len(k.Statement.Equations))}
		for j, eq := range k.Statement.Equations {
			proofs[i].PublicNonces[j] = multiscalarMul(ns, eq.Generators)
		}
	}
	commitNonces(proofs, transcript)

	c := ChallengeScalar("challenge", transcript)
	for i, k := range knowledge {
		responses := make([]*ristretto.Scalar, len(k.Witness))
		for j := range k.Witness {
			var r ristretto.Scalar
			r.Mul(c, k.Witness[j])
			responses[j] = r.Add(&r, nonces[i][j])
		}
		proofs[i].Responses = responses
	}
	return proofs, nil
}

// Verify checks every equation of every statement against its proof.
func Verify(transcript *merlin.Transcript, statements []*Statement, proofs []*Proof) bool {
	if len(statements) != len(proofs) {
		return false
	}
	for i, s := range statements {
		p := proofs[i]
		if p == nil || len(p.PublicNonces) != len(s.Equations) || len(p.Responses) != s.WitnessLength() {
			return false
		}
		for _, n := range p.PublicNonces {
			if n == nil {
				return false
			}
		}
		for _, r := range p.Responses {
			if r == nil {
				return false
			}
		}
	}

	for _, s := range statements {
		commitStatement(s, transcript)
	}
	commitNonces(proofs, transcript)

	c := ChallengeScalar("challenge", transcript)
	valid := true
	for i, s := range statements {
		for j, eq := range s.Equations {
			lhs := multiscalarMul(proofs[i].Responses, eq.Generators)
			var rhs ristretto.Point
			rhs.ScalarMult(eq.Public, c)
			rhs.Add(&rhs, proofs[i].PublicNonces[j])
			if !lhs.Equals(&rhs) {
				valid = false
			}
		}
	}
	return valid
}

func commitStatement(s *Statement, t *merlin.Transcript) {
	StatementDomainSep(s.Kind, len(s.Equations), t)
	for _, eq := range s.Equations {
		AppendPoint("public", eq.Public, t)
		for _, g := range eq.Generators {
			AppendPoint("generator", g, t)
		}
	}
}

func commitNonces(proofs []*Proof, t *merlin.Transcript) {
	for _, p := range proofs {
		for _, n := range p.PublicNonces {
			AppendPoint("nonce", n, t)
		}
	}
}
