package googleid_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/notes/pkg/googleid"
	"github.com/aussiebroadwan/notes/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const clientID = "client-123.apps.googleusercontent.com"

// fakeGoogle serves a JWKS for its current keys and mints ID tokens.
type fakeGoogle struct {
	t      *testing.T
	mu     sync.Mutex
	keys   map[string]*rsa.PrivateKey
	hits   atomic.Int32
	server *httptest.Server
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	g := &fakeGoogle{t: t, keys: map[string]*rsa.PrivateKey{}}
	g.addKey("k1")
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.hits.Add(1)
		g.mu.Lock()
		defer g.mu.Unlock()
		var set jwtx.JWKS
		for kid, k := range g.keys {
			set.Keys = append(set.Keys, jwtx.NewRSAJWK(kid, "sig", "RS256", &k.PublicKey))
		}
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGoogle) addKey(kid string) {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(g.t, err)
	g.mu.Lock()
	g.keys[kid] = k
	g.mu.Unlock()
}

func (g *fakeGoogle) mint(kid string, claims jwt.MapClaims) string {
	g.mu.Lock()
	key := g.keys[kid]
	g.mu.Unlock()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	raw, err := tok.SignedString(key)
	require.NoError(g.t, err)
	return raw
}

func baseClaims(now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            clientID,
		"sub":            "1100042",
		"email":          "alice@example.com",
		"email_verified": true,
		"name":           "Alice",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func newVerifier(g *fakeGoogle, now time.Time) *googleid.Verifier {
	return googleid.NewVerifier(googleid.Config{
		ClientID:           clientID,
		JWKSURL:            g.server.URL,
		HTTPClient:         g.server.Client(),
		MinRefreshInterval: -1,
		Now:                func() time.Time { return now },
	})
}

func TestVerifyValidToken(t *testing.T) {
	now := time.Now()
	g := newFakeGoogle(t)
	v := newVerifier(g, now)
	require.False(t, v.Ready())

	id, err := v.Verify(context.Background(), g.mint("k1", baseClaims(now)))
	require.NoError(t, err)
	require.Equal(t, googleid.Identity{
		Subject:       "1100042",
		Email:         "alice@example.com",
		EmailVerified: true,
		Name:          "Alice",
	}, id)
	require.True(t, v.Ready())
}

func TestVerifyAcceptsBareIssuerAndStringEmailVerified(t *testing.T) {
	now := time.Now()
	g := newFakeGoogle(t)
	v := newVerifier(g, now)

	c := baseClaims(now)
	c["iss"] = "accounts.google.com"
	c["email_verified"] = "false"

	id, err := v.Verify(context.Background(), g.mint("k1", c))
	require.NoError(t, err)
	require.False(t, id.EmailVerified)
}

func TestVerifyRejects(t *testing.T) {
	now := time.Now()
	g := newFakeGoogle(t)
	v := newVerifier(g, now)

	cases := map[string]func(jwt.MapClaims){
		"wrong audience": func(c jwt.MapClaims) { c["aud"] = "someone-else" },
		"wrong issuer":   func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" },
		"expired":        func(c jwt.MapClaims) { c["exp"] = now.Add(-time.Hour).Unix() },
		"missing sub":    func(c jwt.MapClaims) { delete(c, "sub") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := baseClaims(now)
			mutate(c)
			_, err := v.Verify(context.Background(), g.mint("k1", c))
			require.ErrorIs(t, err, googleid.ErrInvalidToken)
		})
	}

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "abc.def.ghi")
		require.ErrorIs(t, err, googleid.ErrInvalidToken)
	})

	t.Run("signed by a stranger", func(t *testing.T) {
		stranger, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, baseClaims(now))
		tok.Header["kid"] = "k1"
		raw, err := tok.SignedString(stranger)
		require.NoError(t, err)

		_, err = v.Verify(context.Background(), raw)
		require.ErrorIs(t, err, googleid.ErrInvalidToken)
	})

	t.Run("hmac with public key confusion", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims(now))
		tok.Header["kid"] = "k1"
		raw, err := tok.SignedString([]byte("whatever"))
		require.NoError(t, err)

		_, err = v.Verify(context.Background(), raw)
		require.ErrorIs(t, err, googleid.ErrInvalidToken)
	})
}

func TestVerifyRefetchesOnUnknownKid(t *testing.T) {
	now := time.Now()
	g := newFakeGoogle(t)
	v := newVerifier(g, now)

	_, err := v.Verify(context.Background(), g.mint("k1", baseClaims(now)))
	require.NoError(t, err)
	require.EqualValues(t, 1, g.hits.Load())

	g.addKey("k2")
	_, err = v.Verify(context.Background(), g.mint("k2", baseClaims(now)))
	require.NoError(t, err)
	require.EqualValues(t, 2, g.hits.Load())
}

func TestVerifyThrottlesUnknownKidRefetch(t *testing.T) {
	now := time.Now()
	g := newFakeGoogle(t)
	v := googleid.NewVerifier(googleid.Config{
		ClientID:   clientID,
		JWKSURL:    g.server.URL,
		HTTPClient: g.server.Client(),
		Now:        func() time.Time { return now },
	})

	require.NoError(t, v.Refresh(context.Background()))
	g.addKey("k2")

	_, err := v.Verify(context.Background(), g.mint("k2", baseClaims(now)))
	require.ErrorIs(t, err, googleid.ErrInvalidToken)
	require.EqualValues(t, 1, g.hits.Load())
}

func TestVerifyWithoutClientID(t *testing.T) {
	v := googleid.NewVerifier(googleid.Config{})
	_, err := v.Verify(context.Background(), "x")
	require.ErrorIs(t, err, googleid.ErrNoAudience)
}

func TestRefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	v := googleid.NewVerifier(googleid.Config{ClientID: clientID, JWKSURL: srv.URL})
	require.ErrorIs(t, v.Refresh(context.Background()), googleid.ErrFetchKeys)

	_, err := v.Verify(context.Background(), "a.b.c")
	require.ErrorIs(t, err, googleid.ErrFetchKeys)
}

func TestKeyRefresherLoadsKeys(t *testing.T) {
	g := newFakeGoogle(t)
	v := newVerifier(g, time.Now())

	r := googleid.NewKeyRefresher(v, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	r.Start()
	require.Eventually(t, v.Ready, 5*time.Second, 10*time.Millisecond)
	r.Stop()
}
