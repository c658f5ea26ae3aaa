package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/Nakkasenp65/register-item-delivery/config"
)

// Issuer of LINE Login ID tokens
const Issuer = "https://access.line.me"

var (
	ErrTokenExpired  = errors.New("id token expired")
	ErrTokenInvalid  = errors.New("id token invalid")
	ErrNotConfigured = errors.New("liff channel not configured")
)

// Claims the LINE ID token payload. Subject is the LINE user ID.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwtv5.RegisteredClaims
}

// Verifier checks ID tokens issued to the LIFF app's LINE Login channel.
// Tokens from liff.getIDToken are ES256 and checked against LINE's JWKS;
// web LINE Login tokens are HS256 signed with the channel secret.
type Verifier struct {
	channelID string
	secret    []byte
	es256Keys jwtv5.Keyfunc
	leeway    time.Duration
}

// NewVerifier creates a Verifier. es256Keys may be nil (HS256 only) and the
// channel secret may be empty (ES256 only). It returns nil when neither
// algorithm can be checked so callers can treat verification as disabled.
func NewVerifier(cfg *config.LIFFConfig, es256Keys jwtv5.Keyfunc) *Verifier {
	if cfg.ChannelID == "" || (cfg.ChannelSecret == "" && es256Keys == nil) {
		return nil
	}
	return &Verifier{
		channelID: cfg.ChannelID,
		secret:    []byte(cfg.ChannelSecret),
		es256Keys: es256Keys,
		leeway:    30 * time.Second,
	}
}

// NewLINEKeys loads LINE's ES256 signing keys from jwksURL and keeps them
// refreshed in the background until ctx is done.
func NewLINEKeys(ctx context.Context, jwksURL string) (jwtv5.Keyfunc, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("load line jwks: %w", err)
	}
	return k.Keyfunc, nil
}

// Verify parses and validates an ID token, returning its claims
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if v == nil {
		return nil, ErrNotConfigured
	}

	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, v.key,
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg(), jwtv5.SigningMethodES256.Alg()}),
		jwtv5.WithIssuer(Issuer),
		jwtv5.WithAudience(v.channelID),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithLeeway(v.leeway),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// key picks the verification key for the token's algorithm
func (v *Verifier) key(t *jwtv5.Token) (interface{}, error) {
	switch t.Method.(type) {
	case *jwtv5.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, ErrTokenInvalid
		}
		return v.secret, nil
	case *jwtv5.SigningMethodECDSA:
		if v.es256Keys == nil {
			return nil, ErrTokenInvalid
		}
		return v.es256Keys(t)
	default:
		return nil, ErrTokenInvalid
	}
}
