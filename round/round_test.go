package round

import (
	"testing"

	"github.com/btcsuite/btcutil"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wabisabi "github.com/MixinNetwork/wabisabi-go"
)

func TestAnnouncement(t *testing.T) {
	assert := assert.New(t)

	signer, err := GenerateSigner()
	require.NoError(t, err)
	r, err := NewRound(signer, 2, 32)
	require.NoError(t, err)

	a := r.Announcement()
	key := signer.PublicKey()
	assert.NoError(a.Verify(nil))
	assert.NoError(a.Verify(&key))
	assert.NotEmpty(r.ID())
	assert.Equal(a.ID(), r.ID())

	data, err := a.MarshalBinary()
	require.NoError(t, err)
	var decoded Announcement
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(r.ID(), decoded.ID())
	assert.Equal(2, decoded.NumberOfCredentials)
	assert.Equal(32, decoded.RangeProofWidth)
	assert.True(decoded.Parameters.Equals(r.Issuer().Parameters()))
	assert.NoError(decoded.Verify(&key))

	other, err := GenerateSigner()
	require.NoError(t, err)
	otherKey := other.PublicKey()
	assert.ErrorIs(a.Verify(&otherKey), ErrInvalidAnnouncement)

	decoded.RangeProofWidth = 64
	assert.ErrorIs(decoded.Verify(nil), ErrInvalidAnnouncement)
	assert.NotEqual(r.ID(), decoded.ID())

	// parameters swapped for a key the coordinator never announced
	forged, err := NewRound(other, 2, 32)
	require.NoError(t, err)
	decoded = *a
	decoded.Parameters = forged.Issuer().Parameters()
	assert.ErrorIs(decoded.Verify(nil), ErrInvalidAnnouncement)
}

func TestAnnouncementNumberOfCredentialsBound(t *testing.T) {
	assert := assert.New(t)

	signer, err := GenerateSigner()
	require.NoError(t, err)
	r, err := NewRound(signer, 2, 32)
	require.NoError(t, err)

	a := *r.Announcement()
	a.NumberOfCredentials = wabisabi.MaxNumberOfCredentials + 1
	require.NoError(t, a.sign(signer))
	assert.NoError(a.Verify(nil))
	_, err = a.NewClient(nil)
	assert.Error(err)

	data, err := a.MarshalBinary()
	require.NoError(t, err)
	var decoded Announcement
	assert.ErrorIs(decoded.UnmarshalBinary(data), ErrInvalidAnnouncement)

	a.NumberOfCredentials = 2
	a.RangeProofWidth = wabisabi.MaxRangeProofWidth + 1
	require.NoError(t, a.sign(signer))
	data, err = a.MarshalBinary()
	require.NoError(t, err)
	assert.ErrorIs(decoded.UnmarshalBinary(data), ErrInvalidAnnouncement)
}

func TestLoadSigner(t *testing.T) {
	signer, err := GenerateSigner()
	require.NoError(t, err)

	loaded, err := LoadSigner(signer.String())
	require.NoError(t, err)
	assert.Equal(t, signer.PublicKey(), loaded.PublicKey())

	_, err = LoadSigner("00ff")
	assert.Error(t, err)
	_, err = LoadSigner("not hex")
	assert.Error(t, err)
}

func TestCoordinator(t *testing.T) {
	assert := assert.New(t)

	signer, err := GenerateSigner()
	require.NoError(t, err)
	metrics := wabisabi.NewMetrics(nil)
	c, err := NewCoordinator(signer, 2, 51, nil, metrics)
	require.NoError(t, err)

	first := c.Current()
	key := signer.PublicKey()
	client, err := first.Announcement().NewClient(&key)
	require.NoError(t, err)

	req, vc, err := client.CreateRequestForZeroAmount()
	require.NoError(t, err)
	resp, err := c.HandleRequest(first.ID(), req)
	require.NoError(t, err)
	_, err = client.HandleResponse(resp, vc)
	require.NoError(t, err)

	req, vc, err = client.CreateRequest([]btcutil.Amount{1500}, nil)
	require.NoError(t, err)
	resp, err = c.HandleRequest(first.ID(), req)
	require.NoError(t, err)
	_, err = client.HandleResponse(resp, vc)
	require.NoError(t, err)
	assert.Equal(int64(1500), first.Issuer().Balance())
	assert.Equal(1500.0, testutil.ToFloat64(metrics.Balance))

	// issued by the closing round after the rotation
	inflight, inflightVC, err := client.CreateRequest([]btcutil.Amount{500}, client.Credentials.Credentials())
	require.NoError(t, err)

	second, err := c.Rotate()
	require.NoError(t, err)
	assert.NotEqual(first.ID(), second.ID())
	assert.False(first.Issuer().Parameters().Equals(second.Issuer().Parameters()))

	resp, err = first.Issuer().HandleRequest(inflight)
	require.NoError(t, err)
	_, err = client.HandleResponse(resp, inflightVC)
	require.NoError(t, err)
	assert.Equal(int64(500), first.Issuer().Balance())
	assert.Equal(0.0, testutil.ToFloat64(metrics.Balance))
	assert.Equal(0.0, testutil.ToFloat64(metrics.SerialNumbers))

	req, _, err = client.CreateRequest([]btcutil.Amount{1500}, client.Credentials.Credentials())
	require.NoError(t, err)
	_, err = c.HandleRequest(first.ID(), req)
	assert.ErrorIs(err, ErrUnknownRound)

	// credentials of the closed round are worthless in the new one
	_, err = c.HandleRequest(second.ID(), req)
	code, ok := wabisabi.ErrorCodeOf(err)
	require.True(t, ok)
	assert.Equal(wabisabi.CoordinatorReceivedInvalidProofs, code)
}
