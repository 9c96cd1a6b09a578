package wabisabi

import (
	"encoding/binary"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

func InitialTranscript(label string) *merlin.Transcript {
	return merlin.NewTranscript(label)
}

// RegistrationTranscript starts the transcript shared by a registration request and its response.
// Both sides bind the issuer parameters before any statement.
func RegistrationTranscript(parameters *CredentialIssuerParameters) *merlin.Transcript {
	t := InitialTranscript(WABISABI_DOMAIN_TAG)
	appendBytes([]byte("dom-sep"), []byte("registration v1"), t)
	AppendPoint("Cw", parameters.Cw, t)
	AppendPoint("I", parameters.I, t)
	return t
}

func StatementDomainSep(kind StatementKind, equations int, t *merlin.Transcript) {
	appendBytes([]byte("statement"), []byte(kind.String()), t)
	appendInt64("equations", uint64(equations), t)
}

func appendInt64(label string, i uint64, t *merlin.Transcript) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, i)
	appendBytes([]byte(label), buf, t)
}

func appendBytes(field, data []byte, t *merlin.Transcript) {
	t.AppendMessage(field, data)
}

func ChallengeScalar(label string, t *merlin.Transcript) *ristretto.Scalar {
	data := t.ExtractBytes([]byte(label), 64)
	return fromBytesModOrderWide(data)
}

// AppendPoint treats a nil point as the identity.
func AppendPoint(label string, p *ristretto.Point, t *merlin.Transcript) {
	if p == nil {
		p = identityPoint()
	}
	appendBytes([]byte(label), p.Bytes(), t)
}
