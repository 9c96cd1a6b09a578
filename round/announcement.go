package round

import (
	"encoding/hex"

	"github.com/ChainSafe/go-schnorrkel"
	"github.com/btcsuite/btcutil/base58"
	"github.com/dchest/blake2b"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	wabisabi "github.com/MixinNetwork/wabisabi-go"
)

const (
	ANNOUNCEMENT_CONTEXT = "WabiSabi round announcement"
)

var ErrInvalidAnnouncement = errors.New("invalid round announcement")

// Signer is the long lived coordinator key announcing rounds.
type Signer struct {
	mini   *schnorrkel.MiniSecretKey
	secret *schnorrkel.SecretKey
	public *schnorrkel.PublicKey
}

func GenerateSigner() (*Signer, error) {
	mini, err := schnorrkel.GenerateMiniSecretKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate coordinator key")
	}
	return newSigner(mini), nil
}

// LoadSigner parses a hex encoded 32 bytes mini secret key.
func LoadSigner(s string) (*Signer, error) {
	buf, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "decode coordinator key")
	}
	if len(buf) != 32 {
		return nil, errors.Errorf("coordinator key length %d", len(buf))
	}
	var raw [32]byte
	copy(raw[:], buf)
	mini, err := schnorrkel.NewMiniSecretKeyFromRaw(raw)
	if err != nil {
		return nil, errors.Wrap(err, "coordinator key")
	}
	return newSigner(mini), nil
}

func newSigner(mini *schnorrkel.MiniSecretKey) *Signer {
	return &Signer{
		mini:   mini,
		secret: mini.ExpandEd25519(),
		public: mini.Public(),
	}
}

func (s *Signer) String() string {
	raw := s.mini.Encode()
	return hex.EncodeToString(raw[:])
}

func (s *Signer) PublicKey() [32]byte {
	return s.public.Encode()
}

// Announcement is what a coordinator publishes before a round opens. Clients
// only build requests for parameters carried by a valid announcement.
type Announcement struct {
	NumberOfCredentials int
	RangeProofWidth     int
	Parameters          *wabisabi.CredentialIssuerParameters
	CoordinatorKey      [32]byte
	Signature           [64]byte
}

// message is the signed part of the announcement.
func (a *Announcement) message() ([]byte, error) {
	params, err := a.Parameters.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.NumberOfCredentials))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.RangeProofWidth))
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, params)
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, a.CoordinatorKey[:])
	return b, nil
}

// ID is the base58 blake2b-256 digest of the signed part.
func (a *Announcement) ID() string {
	msg, err := a.message()
	if err != nil {
		return ""
	}
	id := blake2b.Sum256(msg)
	return base58.Encode(id[:])
}

func (a *Announcement) sign(s *Signer) error {
	a.CoordinatorKey = s.PublicKey()
	msg, err := a.message()
	if err != nil {
		return err
	}
	sig, err := s.secret.Sign(schnorrkel.NewSigningContext([]byte(ANNOUNCEMENT_CONTEXT), msg))
	if err != nil {
		return errors.Wrap(err, "sign announcement")
	}
	a.Signature = sig.Encode()
	return nil
}

// Verify checks the announcement signature. A non nil coordinator pins the
// expected signing key.
func (a *Announcement) Verify(coordinator *[32]byte) error {
	if a.Parameters == nil || a.Parameters.Cw == nil || a.Parameters.I == nil {
		return errors.Wrap(ErrInvalidAnnouncement, "missing parameters")
	}
	if coordinator != nil && *coordinator != a.CoordinatorKey {
		return errors.Wrap(ErrInvalidAnnouncement, "unexpected coordinator key")
	}
	msg, err := a.message()
	if err != nil {
		return err
	}
	signature := schnorrkel.Signature{}
	if err := signature.Decode(a.Signature); err != nil {
		return errors.Wrap(ErrInvalidAnnouncement, err.Error())
	}
	public := schnorrkel.NewPublicKey(a.CoordinatorKey)
	if !public.Verify(&signature, schnorrkel.NewSigningContext([]byte(ANNOUNCEMENT_CONTEXT), msg)) {
		return errors.Wrap(ErrInvalidAnnouncement, "bad signature")
	}
	return nil
}

// NewClient verifies the announcement and returns a client for its round.
func (a *Announcement) NewClient(coordinator *[32]byte, opts ...wabisabi.ClientOption) (*wabisabi.WabiSabiClient, error) {
	if err := a.Verify(coordinator); err != nil {
		return nil, err
	}
	return wabisabi.NewWabiSabiClient(a.Parameters, a.NumberOfCredentials, a.RangeProofWidth, opts...)
}

func (a *Announcement) MarshalBinary() ([]byte, error) {
	b, err := a.message()
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, 5, protowire.BytesType)
	return protowire.AppendBytes(b, a.Signature[:]), nil
}

func (a *Announcement) UnmarshalBinary(b []byte) error {
	*a = Announcement{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "announcement")
		}
		b = b[n:]
		switch {
		case typ == protowire.VarintType && (num == 1 || num == 2):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "announcement")
			}
			if num == 1 {
				if v < 1 || v > wabisabi.MaxNumberOfCredentials {
					return errors.Wrapf(ErrInvalidAnnouncement, "number of credentials %d", v)
				}
				a.NumberOfCredentials = int(v)
			} else {
				if v < 1 || v > wabisabi.MaxRangeProofWidth {
					return errors.Wrapf(ErrInvalidAnnouncement, "range proof width %d", v)
				}
				a.RangeProofWidth = int(v)
			}
			b = b[n:]
		case typ == protowire.BytesType && num >= 3 && num <= 5:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "announcement")
			}
			switch num {
			case 3:
				a.Parameters = new(wabisabi.CredentialIssuerParameters)
				if err := a.Parameters.UnmarshalBinary(v); err != nil {
					return err
				}
			case 4:
				if len(v) != len(a.CoordinatorKey) {
					return errors.Wrap(ErrInvalidAnnouncement, "coordinator key length")
				}
				copy(a.CoordinatorKey[:], v)
			case 5:
				if len(v) != len(a.Signature) {
					return errors.Wrap(ErrInvalidAnnouncement, "signature length")
				}
				copy(a.Signature[:], v)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return errors.Wrap(protowire.ParseError(n), "announcement")
			}
			b = b[n:]
		}
	}
	if a.Parameters == nil {
		return errors.Wrap(ErrInvalidAnnouncement, "missing parameters")
	}
	return nil
}
