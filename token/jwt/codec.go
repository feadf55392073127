package jwt

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-cellar-auth/internal/utils"
	"github.com/jrsteele09/go-cellar-auth/users"
)

// DefaultExpiry is assumed when a token carries no readable exp claim
const DefaultExpiry = 15 * time.Minute

// ISOLayout renders timestamps as ISO-8601 UTC with millisecond precision
const ISOLayout = "2006-01-02T15:04:05.000Z"

const (
	placeholderEmail = "unknown@cellar.local"
	placeholderName  = "Member"
)

// Decoded holds the header and payload segments of a bearer token.
// Nothing in here has been verified: claims are for UX and routing decisions only.
type Decoded struct {
	Header map[string]any
	Claims jwtlib.MapClaims
}

var segmentParser = jwtlib.NewParser()

// Decode splits a compact token and decodes its header and payload.
// It returns nil when the claims cannot be determined.
func Decode(token string) *Decoded {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil
	}

	header := map[string]any{}
	if !decodeSegment(parts[0], &header) {
		return nil
	}
	claims := jwtlib.MapClaims{}
	if !decodeSegment(parts[1], &claims) {
		return nil
	}
	return &Decoded{Header: header, Claims: claims}
}

func decodeSegment(segment string, into any) bool {
	raw, err := segmentParser.DecodeSegment(segment)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, into) == nil
}

// ExpiresAt returns the token's exp claim, or now plus DefaultExpiry
func ExpiresAt(token string) time.Time {
	return ExpiresAtFrom(token, NowTimeFunc())
}

// ExpiresAtFrom is ExpiresAt with an explicit current time for the default
func ExpiresAtFrom(token string, now time.Time) time.Time {
	if decoded := Decode(token); decoded != nil {
		if exp, err := decoded.Claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time.UTC()
		}
	}
	return now.Add(DefaultExpiry).UTC()
}

// ExpiryISO renders ExpiresAt as an ISO-8601 string
func ExpiryISO(token string) string {
	return FormatISO(ExpiresAt(token))
}

// FormatISO renders t the way stored token records carry expiresAt
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// IsExpired reports whether token is empty, undecodable or not valid beyond now
func IsExpired(token string) bool {
	return IsExpiredAt(token, NowTimeFunc())
}

// IsExpiredAt is IsExpired evaluated at now. An undecodable token counts as expired.
func IsExpiredAt(token string, now time.Time) bool {
	if Decode(token) == nil {
		return true
	}
	return !ExpiresAtFrom(token, now).After(now)
}

// Roles reads roles, role or groups (first present wins) and normalises to a list.
// An empty list means the token carries no roles.
func Roles(token string) []string {
	decoded := Decode(token)
	if decoded == nil {
		return []string{}
	}
	for _, key := range []string{"roles", "role", "groups"} {
		value, ok := decoded.Claims[key]
		if !ok || value == nil {
			continue
		}
		return claimList(value)
	}
	return []string{}
}

func claimList(value any) []string {
	switch v := value.(type) {
	case string:
		return utils.NonEmpty([]string{v})
	case []any:
		return utils.NonEmpty(utils.ToStringSlice(v))
	case []string:
		return utils.NonEmpty(v)
	default:
		return []string{}
	}
}

// DeriveUser projects an identity from whatever claims the token carries
func DeriveUser(token string) users.User {
	claims := jwtlib.MapClaims{}
	if decoded := Decode(token); decoded != nil {
		claims = decoded.Claims
	}

	email := utils.FirstNonEmpty(stringClaim(claims, "email"), stringClaim(claims, "username"), stringClaim(claims, "sub"), placeholderEmail)
	id := utils.FirstNonEmpty(stringClaim(claims, "user_id"), stringClaim(claims, "id"), stringClaim(claims, "sub"), email)
	name := utils.FirstNonEmpty(
		stringClaim(claims, "name"),
		stringClaim(claims, "full_name"),
		stringClaim(claims, "display_name"),
		emailLocalPart(email),
		placeholderName,
	)

	roles := Roles(token)
	if len(roles) == 0 {
		roles = []string{string(users.DefaultRole)}
	}

	return users.User{
		ID:    id,
		Name:  name,
		Email: email,
		Roles: roles,
	}
}

// stringClaim reads a claim as a string; numeric ids are rendered without exponent
func stringClaim(claims jwtlib.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func emailLocalPart(email string) string {
	if email == placeholderEmail {
		return ""
	}
	local, _, found := strings.Cut(email, "@")
	if !found {
		return ""
	}
	return local
}
