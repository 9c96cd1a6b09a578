package wabisabi

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CredentialIssuer is the coordinator side of one round. It must be discarded
// with its secret key when the round ends.
type CredentialIssuer struct {
	sk                  *CredentialIssuerSecretKey
	parameters          *CredentialIssuerParameters
	numberOfCredentials int
	rangeProofWidth     int
	rng                 io.Reader
	logger              *zap.Logger
	metrics             *Metrics

	mu            sync.Mutex
	serialNumbers map[pointKey]struct{}
	balance       int64
	retired       bool
}

type IssuerOption func(*CredentialIssuer)

func WithIssuerLogger(l *zap.Logger) IssuerOption {
	return func(i *CredentialIssuer) { i.logger = l }
}

func WithIssuerMetrics(m *Metrics) IssuerOption {
	return func(i *CredentialIssuer) { i.metrics = m }
}

// WithIssuerRandom replaces crypto/rand. Concurrent requests read rng without
// locking, so it must be safe for concurrent use.
func WithIssuerRandom(rng io.Reader) IssuerOption {
	return func(i *CredentialIssuer) { i.rng = rng }
}

func NewCredentialIssuer(sk *CredentialIssuerSecretKey, numberOfCredentials, rangeProofWidth int, opts ...IssuerOption) (*CredentialIssuer, error) {
	if sk == nil {
		return nil, errors.New("nil issuer secret key")
	}
	if err := validateRoundParameters(numberOfCredentials, rangeProofWidth); err != nil {
		return nil, err
	}
	i := &CredentialIssuer{
		sk:                  sk,
		parameters:          sk.ComputeCredentialIssuerParameters(),
		numberOfCredentials: numberOfCredentials,
		rangeProofWidth:     rangeProofWidth,
		rng:                 rand.Reader,
		logger:              zap.NewNop(),
		serialNumbers:       make(map[pointKey]struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

func validateRoundParameters(numberOfCredentials, rangeProofWidth int) error {
	if numberOfCredentials < 1 || numberOfCredentials > MaxNumberOfCredentials {
		return errors.Errorf("invalid number of credentials %d", numberOfCredentials)
	}
	if rangeProofWidth < 1 || rangeProofWidth > MaxRangeProofWidth {
		return errors.Errorf("invalid range proof width %d", rangeProofWidth)
	}
	return nil
}

func (i *CredentialIssuer) Parameters() *CredentialIssuerParameters {
	return i.parameters
}

func (i *CredentialIssuer) NumberOfCredentials() int {
	return i.numberOfCredentials
}

func (i *CredentialIssuer) RangeProofWidth() int {
	return i.rangeProofWidth
}

func (i *CredentialIssuer) Balance() int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.balance
}

func (i *CredentialIssuer) SerialNumberCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.serialNumbers)
}

// Retire stops the issuer from updating the shared gauges of its Metrics.
// Requests still in flight are served, their commits are only logged.
func (i *CredentialIssuer) Retire() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.retired = true
}

// HandleRequest verifies a registration request and issues the requested
// credentials. Any failure rejects the whole request and leaves the issuer
// state untouched. It is safe for concurrent use.
func (i *CredentialIssuer) HandleRequest(req *RegistrationRequestMessage) (*RegistrationResponseMessage, error) {
	resp, err := i.handleRequest(req)
	if i.metrics != nil {
		kind := "regular"
		if req != nil && req.IsNullRequest() {
			kind = "null"
		}
		result := "ok"
		if code, ok := ErrorCodeOf(err); ok {
			result = code.String()
		} else if err != nil {
			result = "error"
		}
		i.metrics.Requests.WithLabelValues(kind, result).Inc()
	}
	if err != nil {
		i.logger.Debug("registration request rejected", zap.Error(err))
	}
	return resp, err
}

func (i *CredentialIssuer) handleRequest(req *RegistrationRequestMessage) (*RegistrationResponseMessage, error) {
	if req == nil {
		return nil, newProtocolError(InvalidNumberOfRequestedCredentials, "empty request")
	}
	if len(req.Requested) != i.numberOfCredentials {
		return nil, newProtocolError(InvalidNumberOfRequestedCredentials, "expected %d, got %d", i.numberOfCredentials, len(req.Requested))
	}

	null := req.IsNullRequest()
	presentedCount := i.numberOfCredentials
	if null {
		presentedCount = 0
	}
	if len(req.Presented) != presentedCount {
		return nil, newProtocolError(InvalidNumberOfPresentedCredentials, "expected %d, got %d", presentedCount, len(req.Presented))
	}

	if balance := i.Balance(); balance+req.DeltaAmount < 0 {
		return nil, newProtocolError(NegativeBalance, "balance %d, delta %d", balance, req.DeltaAmount)
	}

	width := i.rangeProofWidth
	if null {
		width = 0
	}
	for j, r := range req.Requested {
		if !r.wellFormed() || len(r.BitCommitments) != width {
			return nil, newProtocolError(InvalidBitCommitment, "requested credential %d", j)
		}
	}

	serials := make([]pointKey, len(req.Presented))
	seen := make(map[pointKey]struct{}, len(req.Presented))
	for j, p := range req.Presented {
		if !p.wellFormed() {
			return nil, newProtocolError(CoordinatorReceivedInvalidProofs, "malformed presentation %d", j)
		}
		serials[j] = keyOfPoint(p.S)
		if _, found := seen[serials[j]]; found {
			return nil, newProtocolError(SerialNumberDuplicated, "presentation %d", j)
		}
		seen[serials[j]] = struct{}{}
	}

	statements := make([]*Statement, 0, len(req.Presented)+len(req.Requested)+1)
	for _, p := range req.Presented {
		statements = append(statements, NewShowCredentialStatement(p, p.ComputeZ(i.sk), i.parameters))
	}
	for _, r := range req.Requested {
		if null {
			statements = append(statements, NewZeroStatement(r.Ma))
		} else {
			statements = append(statements, NewRangeStatement(r.Ma, r.BitCommitments))
		}
	}
	if !null {
		statements = append(statements, NewBalanceStatement(req.DeltaAmount, req.presentedCa(), req.requestedMa()))
	}

	i.mu.Lock()
	err := i.checkSerialNumbers(serials)
	i.mu.Unlock()
	if err != nil {
		return nil, err
	}

	transcript := RegistrationTranscript(i.parameters)
	start := time.Now()
	valid := Verify(transcript, statements, req.Proofs)
	if i.metrics != nil {
		i.metrics.VerificationDuration.Observe(time.Since(start).Seconds())
	}
	if !valid {
		return nil, newProtocolError(CoordinatorReceivedInvalidProofs, "")
	}

	macs := make([]*MAC, len(req.Requested))
	knowledge := make([]*Knowledge, len(req.Requested))
	for j, r := range req.Requested {
		t, err := randomScalar(i.rng)
		if err != nil {
			return nil, err
		}
		macs[j] = ComputeMAC(i.sk, r.Ma, t)
		knowledge[j] = NewIssuerParametersKnowledge(macs[j], r.Ma, i.sk, i.parameters)
	}
	proofs, err := Prove(transcript, knowledge, i.rng)
	if err != nil {
		return nil, err
	}

	if err := i.commit(serials, req.DeltaAmount); err != nil {
		return nil, err
	}
	return &RegistrationResponseMessage{IssuedCredentials: macs, Proofs: proofs}, nil
}

func (i *CredentialIssuer) checkSerialNumbers(serials []pointKey) error {
	for j, s := range serials {
		if _, used := i.serialNumbers[s]; used {
			return newProtocolError(SerialNumberAlreadyUsed, "presentation %d", j)
		}
	}
	return nil
}

// commit repeats the reuse and balance checks under the lock, a concurrent
// request may have spent the same serial numbers since they were first checked.
func (i *CredentialIssuer) commit(serials []pointKey, delta int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.checkSerialNumbers(serials); err != nil {
		return err
	}
	if i.balance+delta < 0 {
		return newProtocolError(NegativeBalance, "balance %d, delta %d", i.balance, delta)
	}
	for _, s := range serials {
		i.serialNumbers[s] = struct{}{}
	}
	i.balance += delta

	if i.metrics != nil && !i.retired {
		i.metrics.Balance.Set(float64(i.balance))
		i.metrics.SerialNumbers.Set(float64(len(i.serialNumbers)))
	}
	i.logger.Info("credentials issued",
		zap.Int64("delta", delta),
		zap.Int64("balance", i.balance),
		zap.Int("presented", len(serials)))
	return nil
}
