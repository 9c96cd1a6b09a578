package wabisabi

import (
	"github.com/bwesterb/go-ristretto"
	"golang.org/x/crypto/sha3"
)

// Generators are the fixed public group elements shared by every issuer and client.
// They are derived from a hash chain so nobody knows a discrete log relation between them.
type Generators struct {
	Gw  *ristretto.Point
	Gwp *ristretto.Point
	Gx0 *ristretto.Point
	Gx1 *ristretto.Point
	GV  *ristretto.Point
	Gg  *ristretto.Point
	Gh  *ristretto.Point
	Ga  *ristretto.Point
	Gs  *ristretto.Point

	pow2Gg []*ristretto.Point
}

// MaxRangeProofWidth bounds the bit width of range proofs, amounts are uint64 at most.
const MaxRangeProofWidth = 64

// MaxNumberOfCredentials bounds K, clients size every request by it.
const MaxNumberOfCredentials = 64

func NewGenerators() *Generators {
	chain := NewGeneratorsChain([]byte(GENERATORS_DOMAIN_TAG))
	g := &Generators{
		Gw:  chain.Next(),
		Gwp: chain.Next(),
		Gx0: chain.Next(),
		Gx1: chain.Next(),
		GV:  chain.Next(),
		Gg:  chain.Next(),
		Gh:  chain.Next(),
		Ga:  chain.Next(),
		Gs:  chain.Next(),
	}

	g.pow2Gg = make([]*ristretto.Point, MaxRangeProofWidth)
	g.pow2Gg[0] = g.Gg
	for i := 1; i < MaxRangeProofWidth; i++ {
		var p ristretto.Point
		g.pow2Gg[i] = p.Add(g.pow2Gg[i-1], g.pow2Gg[i-1])
	}
	return g
}

// Pow2Gg returns 2^i * Gg.
func (g *Generators) Pow2Gg(i int) *ristretto.Point {
	return g.pow2Gg[i]
}

// Commit is the attribute commitment amount*Gg + randomness*Gh.
func (g *Generators) Commit(amount, randomness *ristretto.Scalar) *ristretto.Point {
	return multiscalarMul([]*ristretto.Scalar{amount, randomness}, []*ristretto.Point{g.Gg, g.Gh})
}

// points returned by DefaultGenerators must never be used as a receiver
var defaultGenerators = NewGenerators()

func DefaultGenerators() *Generators {
	return defaultGenerators
}

type GeneratorsChain struct {
	sha3.ShakeHash
}

func NewGeneratorsChain(label []byte) *GeneratorsChain {
	h := sha3.NewShake256()
	h.Write([]byte("GeneratorsChain"))
	h.Write(label)
	return &GeneratorsChain{h}
}

func (c *GeneratorsChain) Next() *ristretto.Point {
	var data [64]byte
	c.Read(data[:])
	return pointFromUniformBytes(data[:])
}

func pointFromUniformBytes(key []byte) *ristretto.Point {
	var r1Bytes, r2Bytes [32]byte
	copy(r1Bytes[:], key[:32])
	copy(r2Bytes[:], key[32:])
	var r, r1, r2 ristretto.Point
	return r.Add(r1.SetElligator(&r1Bytes), r2.SetElligator(&r2Bytes))
}
