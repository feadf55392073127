package jwt_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-cellar-auth/token/jwt"
	"github.com/jrsteele09/go-cellar-auth/token/keys"
	"github.com/jrsteele09/go-cellar-auth/users"
	"github.com/stretchr/testify/require"
)

func TestCreator_CreateAccessToken(t *testing.T) {
	creator := jwt.NewCreator(testSecret, jwt.WithTTL(10*time.Minute), jwt.WithIssuer("cellar-test"))
	user := users.User{ID: "u-7", Name: "Elena", Email: "elena@cellar.test", Roles: []string{"admin"}}

	token, err := creator.CreateAccessToken(user)
	require.NoError(t, err)

	t.Run("claims decode back to the user", func(t *testing.T) {
		require.Equal(t, user, jwt.DeriveUser(token))
		require.WithinDuration(t, time.Now().Add(10*time.Minute), jwt.ExpiresAt(token), 2*time.Second)
	})

	t.Run("signature verifies", func(t *testing.T) {
		claims, err := creator.Verify(token)
		require.NoError(t, err)
		require.Equal(t, "cellar-test", claims["iss"])
		require.NotEmpty(t, claims["jti"])
	})

	t.Run("other secret is rejected", func(t *testing.T) {
		_, err := jwt.NewCreator("another-secret").Verify(token)
		require.Error(t, err)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		restore := jwt.NowTimeFunc
		jwt.NowTimeFunc = func() time.Time { return time.Now().Add(-time.Hour) }
		stale, err := creator.CreateAccessToken(user)
		jwt.NowTimeFunc = restore
		require.NoError(t, err)

		_, err = creator.Verify(stale)
		require.Error(t, err)
		require.True(t, jwt.IsExpired(stale))
	})
}

func TestCreator_WithSigner(t *testing.T) {
	keyPair, err := keys.GenerateRSAKeyPair("stub-key", 2048)
	require.NoError(t, err)
	creator := jwt.NewCreator("", jwt.WithSigner(keys.NewKeyPairSigner(keyPair)))

	token, err := creator.CreateAccessToken(users.User{ID: "u-1", Email: "a@b.com", Roles: []string{"staff"}})
	require.NoError(t, err)
	require.Equal(t, "RS256", jwt.Decode(token).Header["alg"])
	require.Equal(t, "stub-key", jwt.Decode(token).Header["kid"])

	_, err = creator.Verify(token)
	require.NoError(t, err)

	_, err = jwt.NewCreator("stub-secret").Verify(token)
	require.Error(t, err, "an HS256 creator must not accept RS256 tokens")
}
