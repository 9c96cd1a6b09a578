package wabisabi

import (
	"crypto/rand"
	"io"
	"sync/atomic"

	"github.com/btcsuite/btcutil"
	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrValidationContextConsumed is returned when a ValidationContext is handed
// to HandleResponse a second time.
var ErrValidationContextConsumed = errors.New("validation context already consumed")

// WabiSabiClient builds registration requests for one issuer and turns the
// issuer responses into credentials stored in its pool.
type WabiSabiClient struct {
	parameters          *CredentialIssuerParameters
	numberOfCredentials int
	rangeProofWidth     int
	rng                 io.Reader
	logger              *zap.Logger

	Credentials *CredentialPool
}

type ClientOption func(*WabiSabiClient)

func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *WabiSabiClient) { c.logger = l }
}

func WithClientRandom(rng io.Reader) ClientOption {
	return func(c *WabiSabiClient) { c.rng = rng }
}

func WithCredentialPool(pool *CredentialPool) ClientOption {
	return func(c *WabiSabiClient) { c.Credentials = pool }
}

func NewWabiSabiClient(parameters *CredentialIssuerParameters, numberOfCredentials, rangeProofWidth int, opts ...ClientOption) (*WabiSabiClient, error) {
	if parameters == nil || parameters.Cw == nil || parameters.I == nil {
		return nil, errors.New("missing issuer parameters")
	}
	if err := validateRoundParameters(numberOfCredentials, rangeProofWidth); err != nil {
		return nil, err
	}
	c := &WabiSabiClient{
		parameters:          parameters,
		numberOfCredentials: numberOfCredentials,
		rangeProofWidth:     rangeProofWidth,
		rng:                 rand.Reader,
		logger:              zap.NewNop(),
		Credentials:         NewCredentialPool(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// noCopy makes go vet complain about copies of a ValidationContext.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

type requestedCredential struct {
	value      int64
	randomness *ristretto.Scalar
	ma         *ristretto.Point
}

// ValidationContext is the client state needed to process the response to one
// request. It can be consumed once.
type ValidationContext struct {
	_ noCopy

	transcript *merlin.Transcript
	presented  []*Credential
	requested  []*requestedCredential
	consumed   atomic.Bool
}

func (v *ValidationContext) Presented() []*Credential {
	return v.presented
}

// CreateRequestForZeroAmount builds the null request bootstrapping K zero-value credentials.
func (c *WabiSabiClient) CreateRequestForZeroAmount() (*RegistrationRequestMessage, *ValidationContext, error) {
	requested := make([]*IssuanceRequest, c.numberOfCredentials)
	validation := make([]*requestedCredential, c.numberOfCredentials)
	knowledge := make([]*Knowledge, c.numberOfCredentials)

	g := DefaultGenerators()
	for i := range requested {
		r, err := randomScalar(c.rng)
		if err != nil {
			return nil, nil, err
		}
		ma := g.Commit(zeroScalar(), r)
		knowledge[i] = NewZeroKnowledge(ma, r)
		requested[i] = &IssuanceRequest{Ma: ma}
		validation[i] = &requestedCredential{value: 0, randomness: r, ma: ma}
	}

	transcript := RegistrationTranscript(c.parameters)
	proofs, err := Prove(transcript, knowledge, c.rng)
	if err != nil {
		return nil, nil, err
	}

	msg := &RegistrationRequestMessage{
		DeltaAmount: 0,
		Requested:   requested,
		Proofs:      proofs,
	}
	return msg, &ValidationContext{transcript: transcript, requested: validation}, nil
}

// CreateRequest presents credentialsToPresent, padded with zero-value credentials
// from the pool, and requests amountsToRequest, padded with zero amounts.
func (c *WabiSabiClient) CreateRequest(amountsToRequest []btcutil.Amount, credentialsToPresent []*Credential) (*RegistrationRequestMessage, *ValidationContext, error) {
	k := c.numberOfCredentials
	if len(amountsToRequest) > k {
		return nil, nil, errors.Errorf("cannot request %d credentials, at most %d", len(amountsToRequest), k)
	}
	if len(credentialsToPresent) > k {
		return nil, nil, errors.Errorf("cannot present %d credentials, at most %d", len(credentialsToPresent), k)
	}

	amounts := make([]int64, k)
	for i, a := range amountsToRequest {
		amounts[i] = int64(a)
	}

	presented, err := c.fillPresented(credentialsToPresent)
	if err != nil {
		return nil, nil, err
	}

	knowledge := make([]*Knowledge, 0, 2*k+1)

	presentations := make([]*CredentialPresentation, k)
	presentedCa := make([]*ristretto.Point, k)
	zs := make([]*ristretto.Scalar, k)
	presentedRandomness := make([]*ristretto.Scalar, k)
	var presentedSum int64
	for i, cred := range presented {
		z, err := randomScalar(c.rng)
		if err != nil {
			return nil, nil, err
		}
		presentations[i] = cred.Present(z)
		presentedCa[i] = presentations[i].Ca
		zs[i] = z
		presentedRandomness[i] = cred.Randomness
		presentedSum += cred.Value
		knowledge = append(knowledge, NewShowCredentialKnowledge(presentations[i], z, cred, c.parameters))
	}

	g := DefaultGenerators()
	requested := make([]*IssuanceRequest, k)
	validation := make([]*requestedCredential, k)
	requestedMa := make([]*ristretto.Point, k)
	requestedRandomness := make([]*ristretto.Scalar, k)
	var requestedSum int64
	for i, value := range amounts {
		r, err := randomScalar(c.rng)
		if err != nil {
			return nil, nil, err
		}
		ma := g.Commit(int64ToScalar(value), r)
		rk, bits, err := NewRangeKnowledge(ma, value, r, c.rangeProofWidth, c.rng)
		if err != nil {
			return nil, nil, err
		}
		knowledge = append(knowledge, rk)
		requested[i] = &IssuanceRequest{Ma: ma, BitCommitments: bits}
		validation[i] = &requestedCredential{value: value, randomness: r, ma: ma}
		requestedMa[i] = ma
		requestedRandomness[i] = r
		requestedSum += value
	}

	delta := requestedSum - presentedSum
	var dr ristretto.Scalar
	dr.Sub(sumScalars(presentedRandomness), sumScalars(requestedRandomness))
	knowledge = append(knowledge, NewBalanceKnowledge(delta, presentedCa, requestedMa, sumScalars(zs), &dr))

	transcript := RegistrationTranscript(c.parameters)
	proofs, err := Prove(transcript, knowledge, c.rng)
	if err != nil {
		return nil, nil, err
	}

	msg := &RegistrationRequestMessage{
		DeltaAmount: delta,
		Presented:   presentations,
		Requested:   requested,
		Proofs:      proofs,
	}
	vc := &ValidationContext{transcript: transcript, presented: presented, requested: validation}
	return msg, vc, nil
}

func (c *WabiSabiClient) fillPresented(credentialsToPresent []*Credential) ([]*Credential, error) {
	chosen := make(map[macKey]struct{}, len(credentialsToPresent))
	for _, cred := range credentialsToPresent {
		chosen[cred.Mac.key()] = struct{}{}
	}

	presented := append([]*Credential(nil), credentialsToPresent...)
	missing := c.numberOfCredentials - len(presented)
	for _, cred := range c.Credentials.ZeroValueCredentials() {
		if missing == 0 {
			break
		}
		if _, found := chosen[cred.Mac.key()]; found {
			continue
		}
		presented = append(presented, cred)
		missing--
	}
	if missing > 0 {
		return nil, newProtocolError(NotEnoughZeroCredentialToFillTheRequest, "missing %d zero-value credentials", missing)
	}

	seen := make(map[macKey]struct{}, len(presented))
	for _, cred := range presented {
		key := cred.Mac.key()
		if _, found := seen[key]; found {
			return nil, newProtocolError(CredentialToPresentDuplicated, "")
		}
		seen[key] = struct{}{}
	}
	return presented, nil
}

// HandleResponse verifies the issuer proofs and, only if they hold, swaps the
// presented credentials for the issued ones in the pool. A failed verification
// means the coordinator misbehaved; the request must not be retried as is.
func (c *WabiSabiClient) HandleResponse(resp *RegistrationResponseMessage, vc *ValidationContext) ([]*Credential, error) {
	if !vc.consumed.CompareAndSwap(false, true) {
		return nil, ErrValidationContextConsumed
	}
	if resp == nil || len(resp.IssuedCredentials) != len(vc.requested) {
		got := 0
		if resp != nil {
			got = len(resp.IssuedCredentials)
		}
		return nil, newProtocolError(IssuedCredentialNumberMismatch, "expected %d, got %d", len(vc.requested), got)
	}

	statements := make([]*Statement, len(vc.requested))
	for i, mac := range resp.IssuedCredentials {
		if mac == nil || mac.T == nil || mac.V == nil {
			return nil, newProtocolError(ClientReceivedInvalidProofs, "malformed credential %d", i)
		}
		statements[i] = NewIssuerParametersStatement(c.parameters, mac, vc.requested[i].ma)
	}
	if !Verify(vc.transcript, statements, resp.Proofs) {
		c.logger.Warn("issuer proofs rejected")
		return nil, newProtocolError(ClientReceivedInvalidProofs, "")
	}

	credentials := make([]*Credential, len(vc.requested))
	for i, r := range vc.requested {
		credentials[i] = &Credential{
			Value:      r.value,
			Randomness: r.randomness,
			Mac:        resp.IssuedCredentials[i],
		}
	}
	c.Credentials.UpdateCredentials(credentials, vc.presented)
	c.logger.Debug("credentials received", zap.Int("issued", len(credentials)), zap.Int("spent", len(vc.presented)))
	return credentials, nil
}
