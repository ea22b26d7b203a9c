package ports

import (
	"context"
	"errors"
	"time"

	"securequiz/internal/quiz/domain"
)

// ErrDuplicateSubmission is returned by InsertSubmission when the email already
// has a stored submission. Stores must detect this atomically.
var ErrDuplicateSubmission = errors.New("submission already exists for email")

// ListOptions controls submission listing.
type ListOptions struct {
	SortByCompletedAtDesc bool
}

// SubmissionRepository persists finalized quiz submissions keyed by email.
type SubmissionRepository interface {
	FindSubmissionByEmail(ctx context.Context, email string) (domain.Submission, error)
	InsertSubmission(ctx context.Context, submission domain.Submission) error
	DeleteSubmission(ctx context.Context, email string) error
	ListSubmissions(ctx context.Context, opts ListOptions) ([]domain.Submission, error)
}

// SessionRepository stores in-progress quiz state keyed by email.
type SessionRepository interface {
	UpsertSession(ctx context.Context, session domain.Session) error
	FindSession(ctx context.Context, email string) (domain.Session, error)
	DeleteSession(ctx context.Context, email string) error
	PurgeSessions(ctx context.Context, before time.Time) (int64, error)
}

// AdminRepository manages operator accounts.
type AdminRepository interface {
	FindAdminByIdentifier(ctx context.Context, identifier string) (domain.AdminAccount, error)
	UpsertAdmin(ctx context.Context, admin domain.AdminAccount) error
}

// Store bundles every repository behind one backend handle.
type Store interface {
	SubmissionRepository
	SessionRepository
	AdminRepository
	Ping(ctx context.Context) error
	Close() error
}

// TokenManager issues and validates admin credentials.
type TokenManager interface {
	Issue(ctx context.Context, admin domain.AdminAccount) (domain.Token, error)
	Parse(ctx context.Context, token string) (domain.AdminClaims, error)
}

// PasswordHasher hashes and verifies admin passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}
