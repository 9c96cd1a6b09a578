package wabisabi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscript(t *testing.T) {
	assert := assert.New(t)

	t1 := InitialTranscript(WABISABI_DOMAIN_TAG)
	t2 := InitialTranscript(WABISABI_DOMAIN_TAG)
	StatementDomainSep(StatementZero, 1, t1)
	StatementDomainSep(StatementZero, 1, t2)
	assert.True(ChallengeScalar("c", t1).Equals(ChallengeScalar("c", t2)))

	t1 = InitialTranscript(WABISABI_DOMAIN_TAG)
	t2 = InitialTranscript(WABISABI_DOMAIN_TAG)
	StatementDomainSep(StatementZero, 1, t1)
	StatementDomainSep(StatementRange, 1, t2)
	assert.False(ChallengeScalar("c", t1).Equals(ChallengeScalar("c", t2)))

	// a nil point is committed as the identity
	t1 = InitialTranscript(WABISABI_DOMAIN_TAG)
	t2 = InitialTranscript(WABISABI_DOMAIN_TAG)
	AppendPoint("p", nil, t1)
	AppendPoint("p", identityPoint(), t2)
	assert.True(ChallengeScalar("c", t1).Equals(ChallengeScalar("c", t2)))
}

func TestRegistrationTranscript(t *testing.T) {
	sk1, err := NewCredentialIssuerSecretKey(nil)
	require.NoError(t, err)
	sk2, err := NewCredentialIssuerSecretKey(nil)
	require.NoError(t, err)

	p1 := sk1.ComputeCredentialIssuerParameters()
	p2 := sk2.ComputeCredentialIssuerParameters()
	assert.False(t, p1.Equals(p2))
	assert.True(t, p1.Equals(sk1.ComputeCredentialIssuerParameters()))

	c1 := ChallengeScalar("c", RegistrationTranscript(p1))
	assert.True(t, c1.Equals(ChallengeScalar("c", RegistrationTranscript(p1))))
	assert.False(t, c1.Equals(ChallengeScalar("c", RegistrationTranscript(p2))))
}
