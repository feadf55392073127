package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-cellar-auth/token/keys"
	"github.com/jrsteele09/go-cellar-auth/users"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Creator signs access tokens the way the storefront backend issues them.
// It backs the development auth stub and the tests; the storefront itself never signs.
type Creator struct {
	signer keys.Signer
	issuer string
	ttl    time.Duration
}

// CreatorOption configures a Creator
type CreatorOption func(*Creator)

func WithIssuer(issuer string) CreatorOption {
	return func(c *Creator) {
		c.issuer = issuer
	}
}

// WithSigner replaces the default HS256 signer, e.g. with an RS256 key pair
func WithSigner(signer keys.Signer) CreatorOption {
	return func(c *Creator) {
		c.signer = signer
	}
}

func WithTTL(ttl time.Duration) CreatorOption {
	return func(c *Creator) {
		c.ttl = ttl
	}
}

// NewCreator creates a new JWT creator
func NewCreator(secret string, options ...CreatorOption) *Creator {
	c := &Creator{
		signer: keys.NewHMACSigner(secret),
		issuer: "cellar",
	}
	for _, opt := range options {
		opt(c)
	}
	if c.ttl == 0 {
		c.ttl = DefaultExpiry
	}
	return c
}

// TTL is the lifetime given to every access token
func (c *Creator) TTL() time.Duration {
	return c.ttl
}

// CreateAccessToken creates a signed access token for user
func (c *Creator) CreateAccessToken(user users.User) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"iss":     c.issuer,
		"sub":     user.ID,
		"user_id": user.ID,
		"email":   user.Email,
		"name":    user.Name,
		"roles":   user.Roles,
		"iat":     now.Unix(),
		"exp":     now.Add(c.ttl).Unix(),
		"jti":     uuid.New().String(),
	}
	return c.Sign(claims)
}

// Sign signs arbitrary claims
func (c *Creator) Sign(claims jwtlib.MapClaims) (string, error) {
	signedToken, err := c.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign JWT token")
	}
	return signedToken, nil
}

// Verify checks the signature and expiry of a token issued by this creator
func (c *Creator) Verify(rawToken string) (jwtlib.MapClaims, error) {
	token, err := jwtlib.ParseWithClaims(rawToken, jwtlib.MapClaims{}, c.signer.GetVerificationKey,
		jwtlib.WithTimeFunc(NowTimeFunc),
		jwtlib.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[Creator Verify]")
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("error extracting claims from token")
	}
	return claims, nil
}
