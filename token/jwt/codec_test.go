package jwt_test

import (
	"encoding/base64"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-cellar-auth/token/jwt"
	"github.com/stretchr/testify/require"
)

const testSecret = "cellar-test-secret"

func signClaims(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	token, err := jwt.NewCreator(testSecret).Sign(claims)
	require.NoError(t, err)
	return token
}

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestDecode(t *testing.T) {
	t.Run("well formed token", func(t *testing.T) {
		token := signClaims(t, jwtlib.MapClaims{"sub": "u-1", "roles": []string{"staff"}})
		decoded := jwt.Decode(token)
		require.NotNil(t, decoded)
		require.Equal(t, "HS256", decoded.Header["alg"])
		require.Equal(t, "u-1", decoded.Claims["sub"])
	})

	t.Run("two segments are enough", func(t *testing.T) {
		token := segment(`{"alg":"none"}`) + "." + segment(`{"sub":"u-2"}`)
		decoded := jwt.Decode(token)
		require.NotNil(t, decoded)
		require.Equal(t, "u-2", decoded.Claims["sub"])
	})

	for name, token := range map[string]string{
		"empty":                 "",
		"single segment":        "not-a-jwt",
		"payload not base64url": segment(`{"alg":"none"}`) + ".b",
		"payload not json":      segment(`{"alg":"none"}`) + "." + segment("plain text"),
		"header not json":       segment("nope") + "." + segment(`{"sub":"x"}`),
	} {
		t.Run(name+" decodes to nil and counts as expired", func(t *testing.T) {
			require.Nil(t, jwt.Decode(token))
			require.True(t, jwt.IsExpired(token))
		})
	}

	t.Run("a.b is undecodable", func(t *testing.T) {
		require.Nil(t, jwt.Decode("a.b"))
		require.True(t, jwt.IsExpired("a.b"))
	})
}

func TestExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	restore := jwt.NowTimeFunc
	jwt.NowTimeFunc = func() time.Time { return now }
	defer func() { jwt.NowTimeFunc = restore }()

	t.Run("future exp round trips", func(t *testing.T) {
		exp := now.Add(900 * time.Second).Unix()
		token := signClaims(t, jwtlib.MapClaims{"exp": exp})

		require.False(t, jwt.IsExpired(token))
		require.Equal(t, time.Unix(exp, 0).UTC().Format("2006-01-02T15:04:05.000Z"), jwt.ExpiryISO(token))
		require.Equal(t, "2026-03-01T12:15:00.000Z", jwt.ExpiryISO(token))
	})

	t.Run("past exp is expired", func(t *testing.T) {
		token := signClaims(t, jwtlib.MapClaims{"exp": now.Add(-time.Second).Unix()})
		require.True(t, jwt.IsExpired(token))
	})

	t.Run("exp equal to now is expired", func(t *testing.T) {
		token := signClaims(t, jwtlib.MapClaims{"exp": now.Unix()})
		require.True(t, jwt.IsExpired(token))
	})

	t.Run("missing exp defaults to fifteen minutes", func(t *testing.T) {
		token := signClaims(t, jwtlib.MapClaims{"sub": "u-1"})
		require.True(t, now.Add(15*time.Minute).Equal(jwt.ExpiresAt(token)))
		require.False(t, jwt.IsExpired(token))
	})

	t.Run("undecodable token defaults to fifteen minutes", func(t *testing.T) {
		require.Equal(t, "2026-03-01T12:15:00.000Z", jwt.ExpiryISO("garbage"))
	})

	t.Run("explicit now", func(t *testing.T) {
		token := signClaims(t, jwtlib.MapClaims{"exp": now.Add(time.Minute).Unix()})
		require.False(t, jwt.IsExpiredAt(token, now))
		require.True(t, jwt.IsExpiredAt(token, now.Add(2*time.Minute)))
	})
}

func TestRoles(t *testing.T) {
	testCases := []struct {
		name     string
		claims   jwtlib.MapClaims
		expected []string
	}{
		{"roles list", jwtlib.MapClaims{"roles": []string{"admin", "staff"}}, []string{"admin", "staff"}},
		{"roles wins over role", jwtlib.MapClaims{"roles": []string{"staff"}, "role": "admin"}, []string{"staff"}},
		{"single role string", jwtlib.MapClaims{"role": "admin"}, []string{"admin"}},
		{"groups fallback", jwtlib.MapClaims{"groups": []string{"sommelier"}}, []string{"sommelier"}},
		{"roles as string", jwtlib.MapClaims{"roles": "staff"}, []string{"staff"}},
		{"blank entries dropped", jwtlib.MapClaims{"roles": []any{"", "staff", 7, "  "}}, []string{"staff"}},
		{"no role claims", jwtlib.MapClaims{"sub": "u-1"}, []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, jwt.Roles(signClaims(t, tc.claims)))
		})
	}

	t.Run("undecodable token", func(t *testing.T) {
		require.Empty(t, jwt.Roles("not-a-jwt"))
	})
}

func TestDeriveUser(t *testing.T) {
	t.Run("all claims present", func(t *testing.T) {
		user := jwt.DeriveUser(signClaims(t, jwtlib.MapClaims{
			"user_id": "42",
			"sub":     "sub-42",
			"email":   "ana@cellar.test",
			"name":    "Ana Pinot",
			"roles":   []string{"staff"},
		}))
		require.Equal(t, "42", user.ID)
		require.Equal(t, "ana@cellar.test", user.Email)
		require.Equal(t, "Ana Pinot", user.Name)
		require.Equal(t, []string{"staff"}, user.Roles)
	})

	t.Run("fallback chains", func(t *testing.T) {
		user := jwt.DeriveUser(signClaims(t, jwtlib.MapClaims{"username": "bruno@cellar.test"}))
		require.Equal(t, "bruno@cellar.test", user.Email)
		require.Equal(t, "bruno@cellar.test", user.ID)
		require.Equal(t, "bruno", user.Name)
		require.Equal(t, []string{"customer"}, user.Roles)
	})

	t.Run("numeric id", func(t *testing.T) {
		user := jwt.DeriveUser(signClaims(t, jwtlib.MapClaims{"id": 1234567, "full_name": "Carla"}))
		require.Equal(t, "1234567", user.ID)
		require.Equal(t, "Carla", user.Name)
	})

	t.Run("display name", func(t *testing.T) {
		user := jwt.DeriveUser(signClaims(t, jwtlib.MapClaims{"sub": "s-1", "display_name": "Dario"}))
		require.Equal(t, "s-1", user.ID)
		require.Equal(t, "s-1", user.Email)
		require.Equal(t, "Dario", user.Name)
	})

	t.Run("undecodable token still yields a user", func(t *testing.T) {
		user := jwt.DeriveUser("")
		require.NotEmpty(t, user.ID)
		require.NotEmpty(t, user.Email)
		require.Equal(t, "Member", user.Name)
		require.Equal(t, []string{"customer"}, user.Roles)
	})

	t.Run("roles never empty", func(t *testing.T) {
		for _, token := range []string{
			"",
			"a.b",
			signClaims(t, jwtlib.MapClaims{}),
			signClaims(t, jwtlib.MapClaims{"roles": []string{}}),
			signClaims(t, jwtlib.MapClaims{"role": ""}),
			signClaims(t, jwtlib.MapClaims{"roles": []string{"admin"}}),
		} {
			require.NotEmpty(t, jwt.DeriveUser(token).Roles)
		}
	})
}
