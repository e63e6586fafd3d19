// Package storetest is a conformance suite run against every store driver.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/internal/notes/store"
	"github.com/aussiebroadwan/notes/pkg/idx"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Run exercises a driver. open must return an empty, migrated store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	cases := map[string]func(*testing.T, store.Store){
		"migrations idempotent":   testApplyMigrationsIsIdempotent,
		"users create and get":    testUsersCreateAndGet,
		"users duplicate email":   testUsersDuplicateEmail,
		"users duplicate subject": testUsersDuplicateGoogleSubject,
		"otp set and consume":     testOTPSetAndConsume,
		"totp lifecycle":          testTOTPLifecycle,
		"notes owner scoped":      testNotesOwnerScopedAndOrdered,
		"with tx rolls back":      testWithTxRollsBack,
		"note ref removal":        testNoteRefRemoval,
		"concurrent writers":      testConcurrentCreateDelete,
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func seedUser(t *testing.T, s store.Store, email string) domain.User {
	t.Helper()
	u := domain.User{
		ID:        idx.New().String(),
		Email:     email,
		Name:      "Alice",
		DOB:       "1990-01-01",
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func testApplyMigrationsIsIdempotent(t *testing.T, s store.Store) {
	require.NoError(t, s.ApplyMigrations(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func testUsersCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "alice@example.com")

	got, err := s.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "Alice", got.Name)
	require.Equal(t, "1990-01-01", got.DOB)
	require.Nil(t, got.OTPCode)
	require.Nil(t, got.GoogleSubject)
	require.Empty(t, got.NoteIDs)
	require.True(t, t0.Equal(got.CreatedAt))

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Users().GetUserByEmail(ctx, "ALICE@example.com")
	require.ErrorIs(t, err, store.ErrNotFound, "email lookup is exact")
}

func testUsersDuplicateEmail(t *testing.T, s store.Store) {
	seedUser(t, s, "alice@example.com")

	err := s.Users().CreateUser(context.Background(), domain.User{
		ID: idx.New().String(), Email: "alice@example.com", CreatedAt: t0, UpdatedAt: t0,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func testUsersDuplicateGoogleSubject(t *testing.T, s store.Store) {
	sub := "google-1"
	for i, email := range []string{"a@example.com", "b@example.com"} {
		err := s.Users().CreateUser(context.Background(), domain.User{
			ID: idx.New().String(), Email: email, GoogleSubject: &sub, CreatedAt: t0, UpdatedAt: t0,
		})
		if i == 0 {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, store.ErrAlreadyExists)
		}
	}
}

func testOTPSetAndConsume(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "alice@example.com")

	require.NoError(t, s.Users().SetOTP(ctx, u.ID, "111111", t0.Add(10*time.Minute), t0))
	require.NoError(t, s.Users().SetOTP(ctx, u.ID, "222222", t0.Add(11*time.Minute), t0.Add(time.Minute)))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "222222", *got.OTPCode, "last write wins")
	require.True(t, t0.Add(11*time.Minute).Equal(*got.OTPExpiresAt))

	ok, err := s.Users().ConsumeOTP(ctx, u.ID, "111111", t0)
	require.NoError(t, err)
	require.False(t, ok, "superseded code")

	ok, err = s.Users().ConsumeOTP(ctx, u.ID, "222222", t0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Users().ConsumeOTP(ctx, u.ID, "222222", t0)
	require.NoError(t, err)
	require.False(t, ok, "single use")

	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.OTPCode)
	require.Nil(t, got.OTPExpiresAt)

	require.ErrorIs(t, s.Users().SetOTP(ctx, "missing", "1", t0, t0), store.ErrNotFound)
}

func testTOTPLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "alice@example.com")

	require.ErrorIs(t, s.Users().EnableTOTP(ctx, u.ID, t0), store.ErrNotFound, "nothing to enable")

	require.NoError(t, s.Users().SetTOTPSecret(ctx, u.ID, "v1.sealed", t0))
	require.NoError(t, s.Users().EnableTOTP(ctx, u.ID, t0))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.AuthenticatorEnabled())
	require.Equal(t, "v1.sealed", *got.TOTPSecret)

	require.NoError(t, s.Users().DisableTOTP(ctx, u.ID, t0))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.AuthenticatorEnabled())
	require.Nil(t, got.TOTPSecret)
}

func testNotesOwnerScopedAndOrdered(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	bob := seedUser(t, s, "bob@example.com")

	var ids []string
	for i, content := range []string{"first", "second", "third"} {
		n := domain.Note{
			ID: idx.New().String(), OwnerID: alice.ID, Content: content,
			CreatedAt: t0.Add(time.Duration(i) * time.Second), UpdatedAt: t0,
		}
		require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Notes().CreateNote(ctx, n); err != nil {
				return err
			}
			return tx.Notes().AppendNoteRef(ctx, alice.ID, n.ID)
		}))
		ids = append(ids, n.ID)
	}

	list, err := s.Notes().ListNotes(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "first", list[0].Content)
	require.Equal(t, "third", list[2].Content)

	u, err := s.Users().GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, ids, u.NoteIDs)

	empty, err := s.Notes().ListNotes(ctx, bob.ID)
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = s.Notes().GetNote(ctx, bob.ID, ids[0])
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Notes().UpdateNoteContent(ctx, bob.ID, ids[0], "hijack", t0)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.Notes().DeleteNote(ctx, bob.ID, ids[0]), store.ErrNotFound)

	updated, err := s.Notes().UpdateNoteContent(ctx, alice.ID, ids[1], "edited", t0.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, "edited", updated.Content)
	require.True(t, t0.Add(time.Hour).Equal(updated.UpdatedAt))
}

func testWithTxRollsBack(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")

	n := domain.Note{ID: idx.New().String(), OwnerID: alice.ID, Content: "x", CreatedAt: t0, UpdatedAt: t0}
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Notes().CreateNote(ctx, n); err != nil {
			return err
		}
		return tx.Notes().AppendNoteRef(ctx, "no-such-user", n.ID)
	})
	require.Error(t, err)

	_, err = s.Notes().GetNote(ctx, alice.ID, n.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testNoteRefRemoval(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")

	n := domain.Note{ID: idx.New().String(), OwnerID: alice.ID, Content: "x", CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, s.Notes().CreateNote(ctx, n))
	require.NoError(t, s.Notes().AppendNoteRef(ctx, alice.ID, n.ID))

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Notes().RemoveNoteRef(ctx, alice.ID, n.ID); err != nil {
			return err
		}
		return tx.Notes().DeleteNote(ctx, alice.ID, n.ID)
	}))

	u, err := s.Users().GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Empty(t, u.NoteIDs)
	require.ErrorIs(t, s.Notes().RemoveNoteRef(ctx, alice.ID, n.ID), store.ErrNotFound)
}

// testConcurrentCreateDelete races note creation against deletion for one
// owner. Every transaction must succeed; none may surface a lock error.
func testConcurrentCreateDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")

	create := func(content string) (string, error) {
		n := domain.Note{ID: idx.New().String(), OwnerID: alice.ID, Content: content, CreatedAt: t0, UpdatedAt: t0}
		return n.ID, s.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Notes().CreateNote(ctx, n); err != nil {
				return err
			}
			return tx.Notes().AppendNoteRef(ctx, alice.ID, n.ID)
		})
	}

	const workers = 20
	seeded := make([]string, 0, workers)
	for i := range workers {
		id, err := create(fmt.Sprintf("seed %d", i))
		require.NoError(t, err)
		seeded = append(seeded, id)
	}

	errs := make(chan error, 2*workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			// Reads before it writes.
			errs <- s.WithTx(ctx, func(tx store.Tx) error {
				if _, err := tx.Notes().GetNote(ctx, alice.ID, seeded[i]); err != nil {
					return err
				}
				if err := tx.Notes().RemoveNoteRef(ctx, alice.ID, seeded[i]); err != nil {
					return err
				}
				return tx.Notes().DeleteNote(ctx, alice.ID, seeded[i])
			})
		}()
		go func() {
			defer wg.Done()
			_, err := create(fmt.Sprintf("new %d", i))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, err := s.Notes().ListNotes(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, workers)
	for _, n := range list {
		require.Contains(t, n.Content, "new ")
	}

	u, err := s.Users().GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, u.NoteIDs, workers)
}
