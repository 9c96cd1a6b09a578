package wabisabi

import "github.com/bwesterb/go-ristretto"

// RegistrationRequestMessage presents credentials and requests new ones.
// sum(Presented) + DeltaAmount == sum(Requested) is proven, never revealed.
type RegistrationRequestMessage struct {
	DeltaAmount int64
	Presented   []*CredentialPresentation
	Requested   []*IssuanceRequest
	Proofs      []*Proof
}

// IsNullRequest reports a bootstrap request for zero-value credentials.
func (r *RegistrationRequestMessage) IsNullRequest() bool {
	return r.DeltaAmount == 0 && len(r.Presented) == 0
}

func (r *RegistrationRequestMessage) presentedCa() []*ristretto.Point {
	out := make([]*ristretto.Point, len(r.Presented))
	for i, p := range r.Presented {
		out[i] = p.Ca
	}
	return out
}

func (r *RegistrationRequestMessage) requestedMa() []*ristretto.Point {
	out := make([]*ristretto.Point, len(r.Requested))
	for i, req := range r.Requested {
		out[i] = req.Ma
	}
	return out
}

type RegistrationResponseMessage struct {
	IssuedCredentials []*MAC
	Proofs            []*Proof
}
