package tokens

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose scopes a credential to exactly one operation. A token issued for
// one purpose never verifies under another.
type Purpose string

const (
	// PurposeConfirm marks account-confirmation credentials.
	PurposeConfirm Purpose = "confirm"
	// PurposeReset marks password-reset credentials.
	PurposeReset Purpose = "reset"
	// PurposeAccess marks session access credentials.
	PurposeAccess Purpose = "access"
)

// DefaultTokenTTL defines the fallback validity period for issued credentials.
const DefaultTokenTTL = 15 * time.Minute

// Verification failures are reported through these sentinels so callers can
// translate them without string matching.
var (
	ErrMalformed        = errors.New("tokens: malformed credential")
	ErrSignatureInvalid = errors.New("tokens: signature verification failed")
	ErrPurposeMismatch  = errors.New("tokens: credential purpose mismatch")
	ErrExpired          = errors.New("tokens: credential expired")
)

// Claims represents the payload embedded in issued credentials.
type Claims struct {
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// CodecConfig bundles the configuration required to build a Codec.
type CodecConfig struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
	Issuer     string
	Clock      func() time.Time
}

// Codec issues and verifies purpose-bound Ed25519-signed credentials.
type Codec struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	issuer  string
	now     func() time.Time
}

// NewCodec constructs a Codec. The public key may be omitted when a private
// key is supplied; it is derived in that case.
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if len(cfg.PrivateKey) == 0 && len(cfg.PublicKey) == 0 {
		return nil, errors.New("tokens: a signing or verification key must be provided")
	}
	if len(cfg.PrivateKey) != 0 && len(cfg.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("tokens: private key must be %d bytes", ed25519.PrivateKeySize)
	}

	public := cfg.PublicKey
	if len(public) == 0 {
		public = cfg.PrivateKey.Public().(ed25519.PublicKey)
	}
	if len(public) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("tokens: public key must be %d bytes", ed25519.PublicKeySize)
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &Codec{
		private: cfg.PrivateKey,
		public:  public,
		issuer:  cfg.Issuer,
		now:     now,
	}, nil
}

// Issue signs a new credential bound to the supplied purpose and subject.
// The returned token ID uniquely identifies this issuance and doubles as the
// single-use record key.
func (c *Codec) Issue(purpose Purpose, subjectID string, ttl time.Duration) (string, string, error) {
	if len(c.private) == 0 {
		return "", "", errors.New("tokens: codec has no signing key")
	}
	if subjectID == "" {
		return "", "", errors.New("tokens: subject id is required")
	}
	if purpose == "" {
		return "", "", errors.New("tokens: purpose is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := c.now()
	tokenID := uuid.NewString()

	claims := &Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   subjectID,
			Issuer:    c.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(c.private)
	if err != nil {
		return "", "", fmt.Errorf("tokens: sign credential: %w", err)
	}

	return signed, tokenID, nil
}

// Verify parses a credential, checks its signature and validity window, and
// confirms it was issued for the expected purpose.
func (c *Codec) Verify(tokenString string, expected Purpose) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithTimeFunc(c.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return c.public, nil
	})
	if err != nil {
		return nil, translateParseError(err)
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, ErrSignatureInvalid
	}
	if claims.Purpose != expected {
		return nil, ErrPurposeMismatch
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrMalformed
	}

	return &claims, nil
}

func translateParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrSignatureInvalid
	default:
		return ErrMalformed
	}
}
