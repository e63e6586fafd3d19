package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement it and expose sub-repositories. Sub-repositories of a
// Tx share that transaction.
type Store interface {
	Users() Users
	Notes() Notes

	ApplyMigrations(ctx context.Context) error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing if fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Nested transactions are not supported.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user with NoteIDs populated.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up by exact email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a user. A duplicate email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// SetOTP writes a pending code and its expiry, replacing any earlier one.
	SetOTP(ctx context.Context, userID, code string, expiresAt, now time.Time) error

	// ConsumeOTP clears the pending code only if it still equals code.
	// It reports whether this call consumed it.
	ConsumeOTP(ctx context.Context, userID, code string, now time.Time) (bool, error)

	// SetTOTPSecret stores a sealed authenticator secret awaiting
	// confirmation and clears any earlier enablement.
	SetTOTPSecret(ctx context.Context, userID, sealed string, now time.Time) error

	// EnableTOTP marks the stored secret confirmed.
	EnableTOTP(ctx context.Context, userID string, now time.Time) error

	// DisableTOTP clears the secret and the enablement.
	DisableTOTP(ctx context.Context, userID string, now time.Time) error
}

type Notes interface {
	// CreateNote inserts a note.
	CreateNote(ctx context.Context, n domain.Note) error

	// GetNote returns the note only if ownerID owns it.
	GetNote(ctx context.Context, ownerID, noteID string) (domain.Note, error)

	// ListNotes returns the owner's notes in the order they were created.
	ListNotes(ctx context.Context, ownerID string) ([]domain.Note, error)

	// UpdateNoteContent rewrites the content of an owned note.
	UpdateNoteContent(ctx context.Context, ownerID, noteID, content string, now time.Time) (domain.Note, error)

	// DeleteNote removes an owned note.
	DeleteNote(ctx context.Context, ownerID, noteID string) error

	// AppendNoteRef adds noteID to the end of the user's reference list.
	AppendNoteRef(ctx context.Context, userID, noteID string) error

	// RemoveNoteRef drops noteID from the user's reference list.
	RemoveNoteRef(ctx context.Context, userID, noteID string) error
}

// DBTX is the subset of *sql.DB and *sql.Tx the drivers query through, so
// the same repositories serve both.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
