// Package notestest wires a complete in-process notes API for tests: sqlite
// in memory, a recording mailer and a stub Google verifier.
package notestest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpapi "github.com/aussiebroadwan/notes/internal/notes/http"
	"github.com/aussiebroadwan/notes/internal/notes/service"
	"github.com/aussiebroadwan/notes/internal/notes/store"
	"github.com/aussiebroadwan/notes/internal/notes/store/drivers/sqlite"
	"github.com/aussiebroadwan/notes/pkg/cryptox"
	"github.com/aussiebroadwan/notes/pkg/googleid"
	"github.com/aussiebroadwan/notes/pkg/httpx"
	"github.com/aussiebroadwan/notes/pkg/jwtx"
)

const Issuer = "notes-test"

// Secret signs session tokens in the harness.
var Secret = []byte("notestest-secret-notestest-secret")

// Harness is a running router and the collaborators tests inspect.
type Harness struct {
	Router *httpapi.Router
	Store  store.Store
	Mailer *RecordingMailer
	Google *StubGoogle
	Signer *jwtx.HS256Signer
}

// Option adjusts the router before routes are applied.
type Option func(*httpapi.Router)

// WithLimits replaces the rate limit profiles.
func WithLimits(l httpapi.Limits) Option {
	return func(r *httpapi.Router) { r.Limits = l }
}

// Generous limits keep ordinary tests clear of 429s.
var generous = httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}

func New(t *testing.T, opts ...Option) *Harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations(context.Background()))

	signer, err := jwtx.NewSignerHS256(Secret)
	require.NoError(t, err)
	sealer, err := cryptox.NewSealer(Secret, "notes/totp")
	require.NoError(t, err)

	h := &Harness{
		Store:  st,
		Mailer: &RecordingMailer{},
		Google: &StubGoogle{ids: map[string]googleid.Identity{}},
		Signer: signer,
	}
	sessions := &service.SessionService{Signer: signer, Issuer: Issuer, TTL: time.Hour}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := httpapi.NewRouter(jwtx.NewVerifierHS256(Secret, Issuer), "test", st, logger, nil)
	r.Limits = httpapi.Limits{Auth: generous, Notes: generous, Health: generous}
	r.OTPService = &service.OTPService{Store: st, Mailer: h.Mailer, Sessions: sessions}
	r.FederatedService = &service.FederatedService{Store: st, Verifier: h.Google, Sessions: sessions}
	r.UserService = &service.UserService{Store: st}
	r.NoteService = &service.NoteService{Store: st}
	r.AuthenticatorService = &service.AuthenticatorService{Store: st, Sealer: sealer, Sessions: sessions}
	for _, opt := range opts {
		opt(r)
	}
	r.ApplyRoutes()

	h.Router = r
	return h
}

// Token signs a session token for userID valid from issuedAt for ttl.
func (h *Harness) Token(t *testing.T, userID string, issuedAt time.Time, ttl time.Duration) string {
	t.Helper()
	tok, err := h.Signer.Sign(jwtx.NewSessionClaims(userID, []string{jwtx.AMROTP}, ttl, Issuer, issuedAt))
	require.NoError(t, err)
	return tok
}

// RecordingMailer keeps every code it is asked to send.
type RecordingMailer struct {
	mu   sync.Mutex
	sent map[string][]string
	err  error
}

func (m *RecordingMailer) SendOTP(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.sent == nil {
		m.sent = map[string][]string{}
	}
	m.sent[to] = append(m.sent[to], code)
	return nil
}

// Fail makes later sends return err. nil restores delivery.
func (m *RecordingMailer) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// LastCode returns the most recent code sent to addr.
func (m *RecordingMailer) LastCode(t *testing.T, addr string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := m.sent[addr]
	require.NotEmpty(t, codes, "no code sent to %s", addr)
	return codes[len(codes)-1]
}

// StubGoogle accepts the tokens registered with Add.
type StubGoogle struct {
	mu  sync.Mutex
	ids map[string]googleid.Identity
}

func (g *StubGoogle) Add(token string, id googleid.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ids[token] = id
}

func (g *StubGoogle) Verify(_ context.Context, raw string) (googleid.Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.ids[raw]
	if !ok {
		return googleid.Identity{}, errors.New("unknown token")
	}
	return id, nil
}
