package adapters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"securequiz/internal/quiz/domain"
	"securequiz/internal/quiz/ports"
)

// SQLiteStore persists quiz state in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path, applies pragmas and
// creates the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps pragmas and :memory: databases consistent and
	// serialises writers.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	store := &SQLiteStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// EnsureSchema creates the quiz tables if needed.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS quiz_submissions (
    email TEXT PRIMARY KEY,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    answers TEXT NOT NULL DEFAULT '{}',
    archetype TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    scores TEXT NOT NULL DEFAULT '{}',
    confidence TEXT NOT NULL,
    completion_time TEXT NOT NULL DEFAULT '',
    completed_at INTEGER NOT NULL,
    ip_address TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_submissions_completed_at ON quiz_submissions (completed_at DESC)`,
		`CREATE TABLE IF NOT EXISTS quiz_sessions (
    email TEXT PRIMARY KEY,
    progress INTEGER NOT NULL DEFAULT 0,
    answers TEXT NOT NULL DEFAULT '{}',
    last_updated INTEGER NOT NULL,
    ip_address TEXT NOT NULL DEFAULT ''
)`,
		`CREATE TABLE IF NOT EXISTS quiz_admins (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure quiz schema: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSubmission(row rowScanner) (domain.Submission, error) {
	var (
		rec         submissionRecord
		answers     string
		scores      string
		completedAt int64
	)
	if err := row.Scan(
		&rec.id,
		&rec.email,
		&rec.name,
		&answers,
		&rec.archetype,
		&rec.description,
		&scores,
		&rec.confidence,
		&rec.completionTime,
		&completedAt,
		&rec.ipAddress,
	); err != nil {
		return domain.Submission{}, err
	}
	rec.answers = []byte(answers)
	rec.scores = []byte(scores)
	rec.completedAt = time.Unix(0, completedAt)
	return rec.toSubmission()
}

func (s *SQLiteStore) FindSubmissionByEmail(ctx context.Context, email string) (domain.Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM quiz_submissions WHERE email = ?`, email)
	sub, err := scanSQLiteSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Submission{}, domain.ErrNotFound
		}
		return domain.Submission{}, domain.WrapStorage("find submission", err)
	}
	return sub, nil
}

// InsertSubmission relies on ON CONFLICT DO NOTHING so the primary key decides
// duplicates atomically without driver-specific error codes.
func (s *SQLiteStore) InsertSubmission(ctx context.Context, submission domain.Submission) error {
	rec, err := recordFromSubmission(submission)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO quiz_submissions (`+submissionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (email) DO NOTHING`,
		rec.id,
		rec.email,
		rec.name,
		string(rec.answers),
		rec.archetype,
		rec.description,
		string(rec.scores),
		rec.confidence,
		rec.completionTime,
		rec.completedAt.UnixNano(),
		rec.ipAddress,
	)
	if err != nil {
		return domain.WrapStorage("insert submission", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WrapStorage("insert submission", err)
	}
	if affected == 0 {
		return ports.ErrDuplicateSubmission
	}
	return nil
}

func (s *SQLiteStore) DeleteSubmission(ctx context.Context, email string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quiz_submissions WHERE email = ?`, email); err != nil {
		return domain.WrapStorage("delete submission", err)
	}
	return nil
}

func (s *SQLiteStore) ListSubmissions(ctx context.Context, opts ports.ListOptions) ([]domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM quiz_submissions`
	if opts.SortByCompletedAtDesc {
		query += ` ORDER BY completed_at DESC, email ASC`
	} else {
		query += ` ORDER BY email ASC`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.WrapStorage("list submissions", err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		sub, err := scanSQLiteSubmission(rows)
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

func (s *SQLiteStore) UpsertSession(ctx context.Context, session domain.Session) error {
	answers, err := encodeAnswers(session.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO quiz_sessions (email, progress, answers, last_updated, ip_address)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (email) DO UPDATE SET
    progress = excluded.progress,
    answers = excluded.answers,
    last_updated = excluded.last_updated,
    ip_address = excluded.ip_address`,
		session.Email,
		session.Progress,
		string(answers),
		session.LastUpdated.UnixNano(),
		session.IPAddress,
	)
	if err != nil {
		return domain.WrapStorage("upsert session", err)
	}
	return nil
}

func (s *SQLiteStore) FindSession(ctx context.Context, email string) (domain.Session, error) {
	var (
		session     domain.Session
		answers     string
		lastUpdated int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT email, progress, answers, last_updated, ip_address
FROM quiz_sessions
WHERE email = ?`, email).Scan(
		&session.Email,
		&session.Progress,
		&answers,
		&lastUpdated,
		&session.IPAddress,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, domain.WrapStorage("find session", err)
	}
	session.Answers, err = decodeAnswers([]byte(answers))
	if err != nil {
		return domain.Session{}, err
	}
	session.LastUpdated = time.Unix(0, lastUpdated).UTC()
	return session, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, email string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quiz_sessions WHERE email = ?`, email); err != nil {
		return domain.WrapStorage("delete session", err)
	}
	return nil
}

func (s *SQLiteStore) PurgeSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quiz_sessions WHERE last_updated < ?`, before.UnixNano())
	if err != nil {
		return 0, domain.WrapStorage("purge sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.WrapStorage("purge sessions", err)
	}
	return n, nil
}

func (s *SQLiteStore) FindAdminByIdentifier(ctx context.Context, identifier string) (domain.AdminAccount, error) {
	var (
		admin     domain.AdminAccount
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, username, email, password_hash, created_at
FROM quiz_admins
WHERE username = ?1 OR (email <> '' AND lower(email) = lower(?1))
ORDER BY (username = ?1) DESC
LIMIT 1`, identifier).Scan(
		&admin.ID,
		&admin.Username,
		&admin.Email,
		&admin.PasswordHash,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AdminAccount{}, domain.ErrNotFound
		}
		return domain.AdminAccount{}, domain.WrapStorage("find admin", err)
	}
	admin.CreatedAt = time.Unix(0, createdAt).UTC()
	return admin, nil
}

func (s *SQLiteStore) UpsertAdmin(ctx context.Context, admin domain.AdminAccount) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO quiz_admins (id, username, email, password_hash, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (username) DO UPDATE SET
    email = excluded.email,
    password_hash = excluded.password_hash`,
		admin.ID,
		admin.Username,
		admin.Email,
		admin.PasswordHash,
		admin.CreatedAt.UnixNano(),
	)
	if err != nil {
		return domain.WrapStorage("upsert admin", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.WrapStorage("ping", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
