package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/notes/internal/notes/store"
	"github.com/aussiebroadwan/notes/internal/notes/store/drivers/sqlite"
	"github.com/aussiebroadwan/notes/pkg/jwtx"
)

var testSecret = []byte("test-secret-test-secret-test-secret!")

const testIssuer = "notes-test"

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations(context.Background()))
	return s
}

// newFileStore opens a file database, which pools connections the way a
// deployment does.
func newFileStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations(context.Background()))
	return s
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentCode struct {
	To   string
	Code string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (m *recordingMailer) SendOTP(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentCode{To: to, Code: code})
	return nil
}

// last returns the most recent code sent to addr.
func (m *recordingMailer) last(t *testing.T, addr string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == addr {
			return m.sent[i].Code
		}
	}
	t.Fatalf("no code sent to %s", addr)
	return ""
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func newSessions(t *testing.T, clk *fakeClock) *SessionService {
	t.Helper()
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	return &SessionService{Signer: signer, Issuer: testIssuer, TTL: time.Hour, Now: clk.Now}
}

// verifySession checks tok is a session for userID at the clock's time.
func verifySession(t *testing.T, clk *fakeClock, tok, userID string) jwtx.Claims {
	t.Helper()
	v := jwtx.NewVerifierHS256(testSecret, testIssuer)
	v.Now = clk.Now
	claims, err := v.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, userID, claims.Subject)
	return claims
}

// counter hands out predictable codes so reissued codes always differ.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) next() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return []string{"111111", "222222", "333333", "444444", "555555", "666666"}[(c.n-1)%6], nil
}

type env struct {
	store    store.Store
	clock    *fakeClock
	mailer   *recordingMailer
	sessions *SessionService
	otp      *OTPService
	notes    *NoteService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithStore(t, newStore(t))
}

func newEnvWithStore(t *testing.T, st store.Store) *env {
	t.Helper()
	e := &env{
		store:  st,
		clock:  newClock(),
		mailer: &recordingMailer{},
	}
	e.sessions = newSessions(t, e.clock)
	codes := &counter{}
	e.otp = &OTPService{Store: e.store, Mailer: e.mailer, Sessions: e.sessions, Now: e.clock.Now, NewCode: codes.next}
	e.notes = &NoteService{Store: e.store, Now: e.clock.Now}
	return e
}

// signup registers a user and verifies the signup code. It returns the
// user id.
func (e *env) signup(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()
	id, err := e.otp.IssueSignup(ctx, SignupInput{Email: email, Name: "Ada", DOB: "1990-01-01"})
	require.NoError(t, err)
	_, err = e.otp.Verify(ctx, email, e.mailer.last(t, email))
	require.NoError(t, err)
	return id
}
