package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"securequiz/internal/quiz/domain"
	"securequiz/internal/quiz/ports"
)

const pgUniqueViolation = "23505"

// PostgresStore persists quiz state in Postgres through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ ports.Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an existing pool. The caller owns the pool unless Close is called.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the quiz tables and their unique keys if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres store not initialized")
	}
	statements := []string{
		`CREATE TABLE IF NOT EXISTS quiz_submissions (
    email TEXT PRIMARY KEY,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    answers JSONB NOT NULL DEFAULT '{}'::jsonb,
    archetype TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    scores JSONB NOT NULL DEFAULT '{}'::jsonb,
    confidence TEXT NOT NULL,
    completion_time TEXT NOT NULL DEFAULT '',
    completed_at TIMESTAMPTZ NOT NULL,
    ip_address TEXT NOT NULL DEFAULT ''
);`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_submissions_completed_at ON quiz_submissions (completed_at DESC);`,
		`CREATE TABLE IF NOT EXISTS quiz_sessions (
    email TEXT PRIMARY KEY,
    progress INTEGER NOT NULL DEFAULT 0,
    answers JSONB NOT NULL DEFAULT '{}'::jsonb,
    last_updated TIMESTAMPTZ NOT NULL,
    ip_address TEXT NOT NULL DEFAULT ''
);`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_sessions_last_updated ON quiz_sessions (last_updated);`,
		`CREATE TABLE IF NOT EXISTS quiz_admins (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_admins_email ON quiz_admins (lower(email));`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure quiz schema: %w", err)
		}
	}
	return nil
}

const submissionColumns = `id, email, name, answers, archetype, description, scores, confidence, completion_time, completed_at, ip_address`

func scanSubmission(row pgx.Row) (domain.Submission, error) {
	var rec submissionRecord
	if err := row.Scan(
		&rec.id,
		&rec.email,
		&rec.name,
		&rec.answers,
		&rec.archetype,
		&rec.description,
		&rec.scores,
		&rec.confidence,
		&rec.completionTime,
		&rec.completedAt,
		&rec.ipAddress,
	); err != nil {
		return domain.Submission{}, err
	}
	return rec.toSubmission()
}

func (s *PostgresStore) FindSubmissionByEmail(ctx context.Context, email string) (domain.Submission, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM quiz_submissions WHERE email = $1`, email)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Submission{}, domain.ErrNotFound
		}
		return domain.Submission{}, domain.WrapStorage("find submission", err)
	}
	return sub, nil
}

func (s *PostgresStore) InsertSubmission(ctx context.Context, submission domain.Submission) error {
	rec, err := recordFromSubmission(submission)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO quiz_submissions (`+submissionColumns+`)
VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7::jsonb, $8, $9, $10, $11)`,
		rec.id,
		rec.email,
		rec.name,
		string(rec.answers),
		rec.archetype,
		rec.description,
		string(rec.scores),
		rec.confidence,
		rec.completionTime,
		rec.completedAt,
		rec.ipAddress,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ports.ErrDuplicateSubmission
		}
		return domain.WrapStorage("insert submission", err)
	}
	return nil
}

func (s *PostgresStore) DeleteSubmission(ctx context.Context, email string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_submissions WHERE email = $1`, email); err != nil {
		return domain.WrapStorage("delete submission", err)
	}
	return nil
}

func (s *PostgresStore) ListSubmissions(ctx context.Context, opts ports.ListOptions) ([]domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM quiz_submissions`
	if opts.SortByCompletedAtDesc {
		query += ` ORDER BY completed_at DESC, email ASC`
	} else {
		query += ` ORDER BY email ASC`
	}
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, domain.WrapStorage("list submissions", err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, domain.WrapStorage("scan submission", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapStorage("list submissions", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertSession(ctx context.Context, session domain.Session) error {
	answers, err := encodeAnswers(session.Answers)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO quiz_sessions (email, progress, answers, last_updated, ip_address)
VALUES ($1, $2, $3::jsonb, $4, $5)
ON CONFLICT (email) DO UPDATE SET
    progress = EXCLUDED.progress,
    answers = EXCLUDED.answers,
    last_updated = EXCLUDED.last_updated,
    ip_address = EXCLUDED.ip_address`,
		session.Email,
		session.Progress,
		string(answers),
		session.LastUpdated.UTC(),
		session.IPAddress,
	)
	if err != nil {
		return domain.WrapStorage("upsert session", err)
	}
	return nil
}

func (s *PostgresStore) FindSession(ctx context.Context, email string) (domain.Session, error) {
	var (
		session domain.Session
		answers []byte
	)
	err := s.pool.QueryRow(ctx, `
SELECT email, progress, answers, last_updated, ip_address
FROM quiz_sessions
WHERE email = $1`, email).Scan(
		&session.Email,
		&session.Progress,
		&answers,
		&session.LastUpdated,
		&session.IPAddress,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, domain.WrapStorage("find session", err)
	}
	session.Answers, err = decodeAnswers(answers)
	if err != nil {
		return domain.Session{}, err
	}
	session.LastUpdated = session.LastUpdated.UTC()
	return session, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, email string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_sessions WHERE email = $1`, email); err != nil {
		return domain.WrapStorage("delete session", err)
	}
	return nil
}

func (s *PostgresStore) PurgeSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quiz_sessions WHERE last_updated < $1`, before.UTC())
	if err != nil {
		return 0, domain.WrapStorage("purge sessions", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) FindAdminByIdentifier(ctx context.Context, identifier string) (domain.AdminAccount, error) {
	var admin domain.AdminAccount
	err := s.pool.QueryRow(ctx, `
SELECT id, username, email, password_hash, created_at
FROM quiz_admins
WHERE username = $1 OR (email <> '' AND lower(email) = lower($1))
ORDER BY (username = $1) DESC
LIMIT 1`, identifier).Scan(
		&admin.ID,
		&admin.Username,
		&admin.Email,
		&admin.PasswordHash,
		&admin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AdminAccount{}, domain.ErrNotFound
		}
		return domain.AdminAccount{}, domain.WrapStorage("find admin", err)
	}
	return admin, nil
}

func (s *PostgresStore) UpsertAdmin(ctx context.Context, admin domain.AdminAccount) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO quiz_admins (id, username, email, password_hash, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (username) DO UPDATE SET
    email = EXCLUDED.email,
    password_hash = EXCLUDED.password_hash`,
		admin.ID,
		admin.Username,
		admin.Email,
		admin.PasswordHash,
		admin.CreatedAt.UTC(),
	)
	if err != nil {
		return domain.WrapStorage("upsert admin", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return domain.WrapStorage("ping", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
