package wabisabi

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials(t *testing.T, values ...int64) []*Credential {
	sk, err := NewCredentialIssuerSecretKey(nil)
	require.NoError(t, err)
	credentials := make([]*Credential, len(values))
	for i, v := range values {
		rs, err := randomScalars(nil, 2)
		require.NoError(t, err)
		c := &Credential{Value: v, Randomness: rs[0]}
		c.Mac = ComputeMAC(sk, c.Ma(), rs[1])
		credentials[i] = c
	}
	return credentials
}

func TestCredentialPool(t *testing.T) {
	assert := assert.New(t)

	pool := NewCredentialPool()
	assert.Len(pool.Credentials(), 0)
	assert.Equal(int64(0), pool.Balance())

	first := testCredentials(t, 0, 0, 500)
	pool.UpdateCredentials(first, nil)
	assert.Len(pool.Credentials(), 3)
	assert.Len(pool.ZeroValueCredentials(), 2)
	assert.Equal([]*Credential{first[2]}, pool.ValuableCredentials())
	assert.Equal(int64(500), pool.Balance())

	second := testCredentials(t, 200, 300)
	pool.UpdateCredentials(second, first[1:])
	assert.ElementsMatch([]*Credential{first[0], second[0], second[1]}, pool.Credentials())
	assert.Equal(int64(500), pool.Balance())

	// removing unknown credentials is a no-op
	pool.UpdateCredentials(nil, testCredentials(t, 1))
	assert.Len(pool.Credentials(), 3)
}

func TestCredentialPoolConcurrentUpdates(t *testing.T) {
	pool := NewCredentialPool()
	initial := testCredentials(t, 1, 1, 1, 1)
	pool.UpdateCredentials(initial, nil)

	replacements := testCredentials(t, 2, 2, 2, 2)
	var wg sync.WaitGroup
	for i := range initial {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pool.UpdateCredentials(replacements[i:i+1], initial[i:i+1])
			assert.Len(t, pool.Credentials(), len(initial))
		}(i)
	}
	wg.Wait()

	assert.ElementsMatch(t, replacements, pool.Credentials())
	assert.Equal(t, int64(8), pool.Balance())
}
