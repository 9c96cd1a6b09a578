// Package round runs WabiSabi rounds: one issuer key per round, announced
// under a long lived coordinator key.
package round

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	wabisabi "github.com/MixinNetwork/wabisabi-go"
)

var ErrUnknownRound = errors.New("unknown round")

// Round owns the issuer of a single round. Its secret key is dropped with it.
type Round struct {
	announcement *Announcement
	id           string
	issuer       *wabisabi.CredentialIssuer
}

func NewRound(signer *Signer, numberOfCredentials, rangeProofWidth int, opts ...wabisabi.IssuerOption) (*Round, error) {
	sk, err := wabisabi.NewCredentialIssuerSecretKey(nil)
	if err != nil {
		return nil, err
	}
	issuer, err := wabisabi.NewCredentialIssuer(sk, numberOfCredentials, rangeProofWidth, opts...)
	if err != nil {
		return nil, err
	}
	a := &Announcement{
		NumberOfCredentials: numberOfCredentials,
		RangeProofWidth:     rangeProofWidth,
		Parameters:          issuer.Parameters(),
	}
	if err := a.sign(signer); err != nil {
		return nil, err
	}
	return &Round{announcement: a, id: a.ID(), issuer: issuer}, nil
}

func (r *Round) ID() string {
	return r.id
}

func (r *Round) Announcement() *Announcement {
	return r.announcement
}

func (r *Round) Issuer() *wabisabi.CredentialIssuer {
	return r.issuer
}

// Coordinator serves the current round and replaces it on Rotate.
type Coordinator struct {
	signer              *Signer
	numberOfCredentials int
	rangeProofWidth     int
	logger              *zap.Logger
	metrics             *wabisabi.Metrics

	mu      sync.RWMutex
	current *Round
}

func NewCoordinator(signer *Signer, numberOfCredentials, rangeProofWidth int, logger *zap.Logger, metrics *wabisabi.Metrics) (*Coordinator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		signer:              signer,
		numberOfCredentials: numberOfCredentials,
		rangeProofWidth:     rangeProofWidth,
		logger:              logger,
		metrics:             metrics,
	}
	if _, err := c.Rotate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Rotate starts a new round. Requests for the previous round fail with ErrUnknownRound.
func (c *Coordinator) Rotate() (*Round, error) {
	logger := c.logger.Named("round")
	opts := []wabisabi.IssuerOption{wabisabi.WithIssuerLogger(logger)}
	if c.metrics != nil {
		opts = append(opts, wabisabi.WithIssuerMetrics(c.metrics))
	}
	r, err := NewRound(c.signer, c.numberOfCredentials, c.rangeProofWidth, opts...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	previous := c.current
	c.current = r
	c.mu.Unlock()

	if previous != nil {
		previous.issuer.Retire()
	}
	if c.metrics != nil {
		c.metrics.Balance.Set(0)
		c.metrics.SerialNumbers.Set(0)
	}
	if previous != nil {
		c.logger.Info("round closed",
			zap.String("id", previous.ID()),
			zap.Int64("balance", previous.issuer.Balance()),
			zap.Int("serials", previous.issuer.SerialNumberCount()))
	}
	c.logger.Info("round opened", zap.String("id", r.ID()))
	return r, nil
}

func (c *Coordinator) Current() *Round {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Coordinator) Round(id string) (*Round, error) {
	r := c.Current()
	if r.ID() != id {
		return nil, errors.Wrap(ErrUnknownRound, id)
	}
	return r, nil
}

// HandleRequest routes req to the issuer of round id.
func (c *Coordinator) HandleRequest(id string, req *wabisabi.RegistrationRequestMessage) (*wabisabi.RegistrationResponseMessage, error) {
	r, err := c.Round(id)
	if err != nil {
		return nil, err
	}
	return r.issuer.HandleRequest(req)
}
