package wabisabi

import (
	"testing"

	"github.com/bwesterb/go-ristretto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentation(t *testing.T) {
	assert := assert.New(t)

	sk, err := NewCredentialIssuerSecretKey(nil)
	require.NoError(t, err)
	params := sk.ComputeCredentialIssuerParameters()

	rs, err := randomScalars(nil, 4)
	require.NoError(t, err)
	c := &Credential{Value: 42, Randomness: rs[0]}
	c.Mac = ComputeMAC(sk, c.Ma(), rs[1])
	assert.False(c.IsZero())

	p1 := c.Present(rs[2])
	p2 := c.Present(rs[3])

	var expected ristretto.Point
	expected.ScalarMult(params.I, rs[2])
	assert.True(p1.ComputeZ(sk).Equals(&expected))

	// presentations are unlinkable except for the serial number
	assert.False(p1.Ca.Equals(p2.Ca))
	assert.False(p1.CV.Equals(p2.CV))
	assert.True(p1.S.Equals(p2.S))
	assert.True(p1.S.Equals(c.SerialNumber()))

	other, err := NewCredentialIssuerSecretKey(nil)
	require.NoError(t, err)
	assert.False(p1.ComputeZ(other).Equals(&expected))

	forged := &Credential{Value: 43, Randomness: rs[0], Mac: c.Mac}
	assert.False(forged.Present(rs[2]).ComputeZ(sk).Equals(&expected))
}

func TestMAC(t *testing.T) {
	assert := assert.New(t)

	sk, err := NewCredentialIssuerSecretKey(nil)
	require.NoError(t, err)
	rs, err := randomScalars(nil, 2)
	require.NoError(t, err)
	ma := DefaultGenerators().Commit(zeroScalar(), rs[0])

	m1 := ComputeMAC(sk, ma, rs[1])
	m2 := ComputeMAC(sk, ma, rs[1])
	assert.True(m1.Equals(m2))
	assert.Equal(m1.key(), m2.key())
	assert.True(m1.U().Equals(generateU(rs[1])))

	m3 := ComputeMAC(sk, ma, rs[0])
	assert.False(m1.Equals(m3))
	assert.NotEqual(m1.key(), m3.key())
}
