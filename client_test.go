package wabisabi

import (
	"testing"

	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequestWithoutZeroCredentials(t *testing.T) {
	issuer := newTestIssuer(t, 2, testRangeProofWidth)
	client := newTestClient(t, issuer)

	_, _, err := client.CreateRequest([]btcutil.Amount{1000}, nil)
	requireCode(t, NotEnoughZeroCredentialToFillTheRequest, err)

	credentials := bootstrap(t, issuer, client)
	_, _, err = client.CreateRequest(nil, credentials[:1])
	require.NoError(t, err)
	_, _, err = client.CreateRequest(nil, credentials)
	require.NoError(t, err)

	register(t, issuer, client, []btcutil.Amount{1000}, nil)
	_, _, err = client.CreateRequest(nil, nil)
	requireCode(t, NotEnoughZeroCredentialToFillTheRequest, err)
}

func TestCreateRequestDuplicatedCredential(t *testing.T) {
	issuer := newTestIssuer(t, 2, testRangeProofWidth)
	client := newTestClient(t, issuer)
	credentials := bootstrap(t, issuer, client)

	_, _, err := client.CreateRequest(nil, []*Credential{credentials[0], credentials[0]})
	requireCode(t, CredentialToPresentDuplicated, err)
	assert.ErrorIs(t, err, ErrCredentialToPresentDuplicated)
}

func TestCreateRequestTooMany(t *testing.T) {
	issuer := newTestIssuer(t, 2, testRangeProofWidth)
	client := newTestClient(t, issuer)
	credentials := bootstrap(t, issuer, client)

	_, _, err := client.CreateRequest([]btcutil.Amount{1, 2, 3}, nil)
	assert.Error(t, err)
	_, _, err = client.CreateRequest(nil, append(credentials, credentials[0]))
	assert.Error(t, err)
}

func TestCreateRequestPadding(t *testing.T) {
	assert := assert.New(t)

	issuer := newTestIssuer(t, 3, testRangeProofWidth)
	client := newTestClient(t, issuer)
	bootstrap(t, issuer, client)
	assert.Len(client.Credentials.ZeroValueCredentials(), 3)

	req, vc, err := client.CreateRequest([]btcutil.Amount{700}, nil)
	require.NoError(t, err)
	assert.Len(req.Presented, 3)
	assert.Len(req.Requested, 3)
	assert.Len(vc.Presented(), 3)
	assert.Equal(int64(700), req.DeltaAmount)
	for _, r := range req.Requested {
		assert.Len(r.BitCommitments, testRangeProofWidth)
	}

	resp, err := issuer.HandleRequest(req)
	require.NoError(t, err)
	credentials, err := client.HandleResponse(resp, vc)
	require.NoError(t, err)
	assert.Equal(int64(700), credentials[0].Value)
	assert.True(credentials[1].IsZero())
	assert.True(credentials[2].IsZero())
	assert.Len(client.Credentials.ZeroValueCredentials(), 2)
	assert.Equal(int64(700), client.Credentials.Balance())
}

func TestHandleResponseConsumesContext(t *testing.T) {
	issuer := newTestIssuer(t, 2, testRangeProofWidth)
	client := newTestClient(t, issuer)

	req, vc, err := client.CreateRequestForZeroAmount()
	require.NoError(t, err)
	resp, err := issuer.HandleRequest(req)
	require.NoError(t, err)

	_, err = client.HandleResponse(resp, vc)
	require.NoError(t, err)
	_, err = client.HandleResponse(resp, vc)
	assert.ErrorIs(t, err, ErrValidationContextConsumed)
	assert.Len(t, client.Credentials.Credentials(), 2)
}

func TestHandleResponseMismatch(t *testing.T) {
	issuer := newTestIssuer(t, 2, testRangeProofWidth)
	client := newTestClient(t, issuer)

	req, vc, err := client.CreateRequestForZeroAmount()
	require.NoError(t, err)
	resp, err := issuer.HandleRequest(req)
	require.NoError(t, err)

	resp.IssuedCredentials = resp.IssuedCredentials[:1]
	_, err = client.HandleResponse(resp, vc)
	requireCode(t, IssuedCredentialNumberMismatch, err)
	assert.Len(t, client.Credentials.Credentials(), 0)

	_, vc, err = client.CreateRequestForZeroAmount()
	require.NoError(t, err)
	_, err = client.HandleResponse(nil, vc)
	requireCode(t, IssuedCredentialNumberMismatch, err)
}

func TestHandleResponseInvalidProofs(t *testing.T) {
	issuer := newTestIssuer(t, 2, testRangeProofWidth)
	client := newTestClient(t, issuer)
	bootstrap(t, issuer, client)
	before := client.Credentials.Credentials()

	req, vc, err := client.CreateRequest([]btcutil.Amount{100}, nil)
	require.NoError(t, err)
	resp, err := issuer.HandleRequest(req)
	require.NoError(t, err)

	// swap the MACs, each is valid but not for the attribute it is paired with
	resp.IssuedCredentials[0], resp.IssuedCredentials[1] = resp.IssuedCredentials[1], resp.IssuedCredentials[0]
	_, err = client.HandleResponse(resp, vc)
	requireCode(t, ClientReceivedInvalidProofs, err)
	assert.ElementsMatch(t, before, client.Credentials.Credentials())

	// the issuer already spent the presented serial numbers, only a null request is left
	req, vc, err = client.CreateRequestForZeroAmount()
	require.NoError(t, err)
	resp, err = issuer.HandleRequest(req)
	require.NoError(t, err)
	resp.IssuedCredentials[1] = nil
	_, err = client.HandleResponse(resp, vc)
	requireCode(t, ClientReceivedInvalidProofs, err)
}

func TestHandleResponseFromOtherIssuer(t *testing.T) {
	issuerA := newTestIssuer(t, 2, testRangeProofWidth)
	issuerB := newTestIssuer(t, 2, testRangeProofWidth)
	client := newTestClient(t, issuerA)

	req, vc, err := client.CreateRequestForZeroAmount()
	require.NoError(t, err)

	// B rejects a request bound to A's parameters
	_, err = issuerB.HandleRequest(req)
	requireCode(t, CoordinatorReceivedInvalidProofs, err)

	clientB := newTestClient(t, issuerB)
	reqB, _, err := clientB.CreateRequestForZeroAmount()
	require.NoError(t, err)
	respB, err := issuerB.HandleRequest(reqB)
	require.NoError(t, err)

	_, err = client.HandleResponse(respB, vc)
	requireCode(t, ClientReceivedInvalidProofs, err)
	assert.Len(t, client.Credentials.Credentials(), 0)
}

func TestNewWabiSabiClient(t *testing.T) {
	issuer := newTestIssuer(t, 2, testRangeProofWidth)

	_, err := NewWabiSabiClient(nil, 2, testRangeProofWidth)
	assert.Error(t, err)
	_, err = NewWabiSabiClient(issuer.Parameters(), 0, testRangeProofWidth)
	assert.Error(t, err)
	_, err = NewWabiSabiClient(issuer.Parameters(), MaxNumberOfCredentials+1, testRangeProofWidth)
	assert.Error(t, err)

	pool := NewCredentialPool()
	client, err := NewWabiSabiClient(issuer.Parameters(), 2, testRangeProofWidth, WithCredentialPool(pool))
	require.NoError(t, err)
	bootstrap(t, issuer, client)
	assert.Len(t, pool.Credentials(), 2)
}
