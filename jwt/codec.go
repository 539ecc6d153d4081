package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the signature algorithm for issued tokens.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

// TokenType distinguishes access tokens from refresh tokens. A token of
// one type is never accepted where the other is expected.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Verification failures collapse into exactly one of these three.
var (
	// ErrExpired means the token was well formed and correctly signed
	// but its expiry has passed.
	ErrExpired = errors.New("jwt: token expired")
	// ErrBadSignature means the signature did not verify under any
	// configured key.
	ErrBadSignature = errors.New("jwt: bad signature")
	// ErrMalformed covers everything else: undecodable input, claim
	// validation failures, wrong token type, and tokens missing a
	// subject. A token without a subject is malformed even when its
	// signature is valid.
	ErrMalformed = errors.New("jwt: malformed token")
)

// Config holds the codec's key material and validation settings.
// Instances are treated as immutable after NewCodec.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	SigningMethod SigningMethod
	// PrivateKey is the HS256 secret or the Ed25519 private key
	// (raw or PEM).
	PrivateKey []byte
	// PublicKey is the Ed25519 public key (raw or PEM); unused for HS256.
	PublicKey []byte

	Issuer   string
	Audience string
	Leeway   time.Duration

	// KeyID, when set, is stamped into the "kid" header of issued
	// tokens. VerifyKeys maps kid values to verification keys and
	// enables rotation: tokens signed under a retired key keep
	// verifying until they expire.
	KeyID      string
	VerifyKeys map[string][]byte
}

// Codec signs and verifies the bearer tokens for this system. The set
// of claims is closed: callers cannot inject arbitrary claims into
// issued tokens.
type Codec struct {
	config Config
}

// Claims is the complete claim set of an issued token.
type Claims struct {
	TokenType      TokenType `json:"typ"`
	ActiveTenantID string    `json:"act,omitempty"`
	jwt.RegisteredClaims
}

// NewCodec validates the configuration and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("jwt: invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("jwt: hs256 requires a secret key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("jwt: ed25519 requires a public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("jwt: verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("jwt: invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("jwt: unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("jwt: KeyID is not present in VerifyKeys")
		}
	}

	return &Codec{config: cfg}, nil
}

// IssueAccess signs an access token for the identity. activeTenantID
// may be empty; platform admins and identities that have not selected
// a tenant carry no active-tenant claim.
func (c *Codec) IssueAccess(identityID, activeTenantID string) (string, error) {
	return c.issue(TypeAccess, identityID, activeTenantID, "", c.config.AccessTTL)
}

// IssueRefresh signs a refresh token. tokenID is the ledger row id of
// the stored credential and becomes the jti claim, so a presented
// refresh token can be tied back to exactly one ledger row.
func (c *Codec) IssueRefresh(identityID, activeTenantID, tokenID string) (string, error) {
	return c.issue(TypeRefresh, identityID, activeTenantID, tokenID, c.config.RefreshTTL)
}

func (c *Codec) issue(typ TokenType, identityID, activeTenantID, tokenID string, ttl time.Duration) (string, error) {
	if identityID == "" {
		return "", errors.New("jwt: empty identity id")
	}

	now := time.Now()
	claims := Claims{
		TokenType:      typ,
		ActiveTenantID: activeTenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.config.Issuer,
		},
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	token := jwt.NewWithClaims(c.getMethod(), claims)
	if c.config.KeyID != "" {
		token.Header["kid"] = c.config.KeyID
	}

	signKey, err := c.getSignKey()
	if err != nil {
		return "", err
	}

	return token.SignedString(signKey)
}

// Verify parses and validates a token of the expected type and returns
// its claims. Every failure is one of ErrExpired, ErrBadSignature, or
// ErrMalformed.
func (c *Codec) Verify(tokenStr string, expected TokenType) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.getMethod().Alg()}),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, jwt.WithAudience(c.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}

		if len(c.config.VerifyKeys) > 0 {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			key, ok := c.config.VerifyKeys[kid]
			if !ok {
				return nil, errors.New("unknown kid")
			}
			return c.keyBytesToVerifyKey(key)
		}

		if c.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			if kid != c.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}

		return c.getVerifyKey()
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if claims.Subject == "" {
		return nil, ErrMalformed
	}
	if claims.TokenType != expected {
		return nil, ErrMalformed
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	default:
		return ErrMalformed
	}
}

func (c *Codec) getMethod() jwt.SigningMethod {
	switch c.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (c *Codec) getSignKey() (interface{}, error) {
	switch c.config.SigningMethod {
	case MethodHS256:
		return c.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(c.config.PrivateKey)
	}
}

func (c *Codec) getVerifyKey() (interface{}, error) {
	switch c.config.SigningMethod {
	case MethodHS256:
		return c.config.PrivateKey, nil
	default:
		return parseEdPublicKey(c.config.PublicKey)
	}
}

func (c *Codec) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	switch c.config.SigningMethod {
	case MethodHS256:
		return key, nil
	default:
		return parseEdPublicKey(key)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("jwt: invalid ed25519 public key type")
	}
	return edKey, nil
}
