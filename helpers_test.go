package wabisabi

import (
	"testing"

	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/require"
)

const testRangeProofWidth = 51

func newTestIssuer(t *testing.T, k, width int, opts ...IssuerOption) *CredentialIssuer {
	sk, err := NewCredentialIssuerSecretKey(nil)
	require.NoError(t, err)
	issuer, err := NewCredentialIssuer(sk, k, width, opts...)
	require.NoError(t, err)
	return issuer
}

func newTestClient(t *testing.T, issuer *CredentialIssuer, opts ...ClientOption) *WabiSabiClient {
	client, err := NewWabiSabiClient(issuer.Parameters(), issuer.NumberOfCredentials(), issuer.RangeProofWidth(), opts...)
	require.NoError(t, err)
	return client
}

func bootstrap(t *testing.T, issuer *CredentialIssuer, client *WabiSabiClient) []*Credential {
	req, vc, err := client.CreateRequestForZeroAmount()
	require.NoError(t, err)
	resp, err := issuer.HandleRequest(req)
	require.NoError(t, err)
	credentials, err := client.HandleResponse(resp, vc)
	require.NoError(t, err)
	return credentials
}

func register(t *testing.T, issuer *CredentialIssuer, client *WabiSabiClient, amounts []btcutil.Amount, present []*Credential) []*Credential {
	req, vc, err := client.CreateRequest(amounts, present)
	require.NoError(t, err)
	resp, err := issuer.HandleRequest(req)
	require.NoError(t, err)
	credentials, err := client.HandleResponse(resp, vc)
	require.NoError(t, err)
	return credentials
}

func requireCode(t *testing.T, code ErrorCode, err error) {
	t.Helper()
	require.Error(t, err)
	got, ok := ErrorCodeOf(err)
	require.True(t, ok, "not a protocol error: %v", err)
	require.Equal(t, code, got, err.Error())
}
