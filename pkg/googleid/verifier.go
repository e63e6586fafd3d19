package googleid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aussiebroadwan/notes/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultJWKSURL is where Google publishes its ID token signing keys.
const DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// Issuers are the iss values Google uses for ID tokens.
var Issuers = []string{"accounts.google.com", "https://accounts.google.com"}

var (
	ErrInvalidToken = errors.New("googleid: invalid id token")
	ErrNoAudience   = errors.New("googleid: client id not configured")
	ErrFetchKeys    = errors.New("googleid: fetch signing keys")
)

// Identity is the verified subset of an ID token.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// idClaims are the ID token claims we read.
type idClaims struct {
	jwtx.Claims

	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	Name          string   `json:"name"`
}

// flexBool accepts both true and "true"; older Google tokens sent the
// string form.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b = flexBool(v)
	return nil
}

// Config configures a Verifier.
type Config struct {
	// ClientID is the expected audience.
	ClientID string
	// JWKSURL defaults to DefaultJWKSURL.
	JWKSURL string
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
	// Leeway tolerates clock skew on exp and nbf. Defaults to 30s.
	Leeway time.Duration
	// MinRefreshInterval throttles refetches triggered by unknown kids.
	// Defaults to one minute; negative disables throttling.
	MinRefreshInterval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Verifier verifies Google ID tokens.
type Verifier struct {
	cfg  Config
	keys *jwtx.KeySet

	mu        sync.Mutex
	lastFetch time.Time
}

// NewVerifier returns a Verifier. No keys are fetched until the first
// Verify or Refresh.
func NewVerifier(cfg Config) *Verifier {
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = DefaultJWKSURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = 30 * time.Second
	}
	if cfg.MinRefreshInterval == 0 {
		cfg.MinRefreshInterval = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg, keys: jwtx.NewKeySet()}
}

// Ready reports whether signing keys are loaded.
func (v *Verifier) Ready() bool { return v.keys.IsReady() }

// Verify validates raw and returns the identity it asserts.
func (v *Verifier) Verify(ctx context.Context, raw string) (Identity, error) {
	if v.cfg.ClientID == "" {
		return Identity{}, ErrNoAudience
	}
	if !v.keys.IsReady() {
		if err := v.refresh(ctx, false); err != nil {
			return Identity{}, err
		}
	}

	claims, err := v.parse(raw)
	if errors.Is(err, jwtx.ErrUnknownKID) {
		if rerr := v.refresh(ctx, true); rerr != nil {
			return Identity{}, rerr
		}
		claims, err = v.parse(raw)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if err := claims.ValidateIssuer(Issuers...); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err := claims.ValidateAudience([]string{v.cfg.ClientID}); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err := claims.ValidateExpiryAt(v.cfg.Now(), v.cfg.Leeway); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}

	return Identity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
		Name:          claims.Name,
	}, nil
}

func (v *Verifier) parse(raw string) (*idClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	var claims idClaims
	if _, err := parser.ParseWithClaims(raw, &claims, v.keys.Keyfunc); err != nil {
		return nil, err
	}
	return &claims, nil
}

// Refresh fetches the current key set unconditionally.
func (v *Verifier) Refresh(ctx context.Context) error {
	return v.refresh(ctx, false)
}

// refresh fetches keys. When throttled, a fetch within MinRefreshInterval of
// the previous one is skipped so a stream of forged kids cannot hammer the
// JWKS endpoint.
func (v *Verifier) refresh(ctx context.Context, throttled bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.cfg.Now()
	if throttled && v.cfg.MinRefreshInterval > 0 && !v.lastFetch.IsZero() &&
		now.Sub(v.lastFetch) < v.cfg.MinRefreshInterval {
		return nil
	}

	jwks, err := v.fetch(ctx)
	if err != nil {
		return err
	}
	if err := v.keys.ResetFromJWKS(jwks); err != nil {
		return fmt.Errorf("%w: %w", ErrFetchKeys, err)
	}
	v.lastFetch = now
	return nil
}

func (v *Verifier) fetch(ctx context.Context) (jwtx.JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSURL, nil)
	if err != nil {
		return jwtx.JWKS{}, fmt.Errorf("%w: %w", ErrFetchKeys, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.cfg.HTTPClient.Do(req)
	if err != nil {
		return jwtx.JWKS{}, fmt.Errorf("%w: %w", ErrFetchKeys, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return jwtx.JWKS{}, fmt.Errorf("%w: status %d", ErrFetchKeys, resp.StatusCode)
	}

	var jwks jwtx.JWKS
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&jwks); err != nil {
		return jwtx.JWKS{}, fmt.Errorf("%w: decode: %w", ErrFetchKeys, err)
	}
	return jwks, nil
}
