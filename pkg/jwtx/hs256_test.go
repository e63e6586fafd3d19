package jwtx_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/notes/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestHS256SignAndVerify(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	require.Equal(t, "HS256", signer.Alg())

	now := time.Now().UTC().Truncate(time.Second)
	token, err := signer.Sign(jwtx.NewSessionClaims("user-123", []string{jwtx.AMROTP}, time.Hour, "notes-api", now))
	require.NoError(t, err)

	got, err := jwtx.NewVerifierHS256(testSecret, "notes-api").Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", got.Subject)
	require.Equal(t, []string{"otp"}, got.AMR)
}

func TestNewSignerHS256RejectsShortSecret(t *testing.T) {
	_, err := jwtx.NewSignerHS256([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}

func TestHS256VerifyFailures(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	token, err := signer.Sign(jwtx.NewSessionClaims("user-123", nil, time.Hour, "notes-api", now))
	require.NoError(t, err)

	at := func(ts time.Time) *jwtx.HS256Verifier {
		v := jwtx.NewVerifierHS256(testSecret, "notes-api")
		v.Now = func() time.Time { return ts }
		return v
	}

	t.Run("within validity", func(t *testing.T) {
		_, err := at(now.Add(59 * time.Minute)).Verify(token)
		require.NoError(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := at(now.Add(time.Hour)).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		v := jwtx.NewVerifierHS256(testSecret, "other")
		v.Now = func() time.Time { return now }
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("wrong secret", func(t *testing.T) {
		v := jwtx.NewVerifierHS256([]byte("ffffffffffffffffffffffffffffffff"), "notes-api")
		v.Now = func() time.Time { return now }
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"someone-else","iss":"notes-api","exp":9999999999}`))
		_, err := at(now).Verify(strings.Join(parts, "."))
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := at(now).Verify("not-a-jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwtx.NewSessionClaims("user-123", nil, time.Hour, "notes-api", now))
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = at(now).Verify(raw)
		require.Error(t, err)
	})
}
