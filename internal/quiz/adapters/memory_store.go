package adapters

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"securequiz/internal/quiz/domain"
	"securequiz/internal/quiz/ports"
)

// MemoryStore keeps submissions, sessions and admins in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	submissions map[string]domain.Submission
	sessions    map[string]domain.Session
	admins      map[string]domain.AdminAccount
}

var _ ports.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions: map[string]domain.Submission{},
		sessions:    map[string]domain.Session{},
		admins:      map[string]domain.AdminAccount{},
	}
}

func (s *MemoryStore) FindSubmissionByEmail(_ context.Context, email string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[email]
	if !ok {
		return domain.Submission{}, domain.ErrNotFound
	}
	return cloneSubmission(sub), nil
}

func (s *MemoryStore) InsertSubmission(_ context.Context, submission domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.submissions[submission.Email]; exists {
		return ports.ErrDuplicateSubmission
	}
	s.submissions[submission.Email] = cloneSubmission(submission)
	return nil
}

func (s *MemoryStore) DeleteSubmission(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.submissions, email)
	return nil
}

func (s *MemoryStore) ListSubmissions(_ context.Context, opts ports.ListOptions) ([]domain.Submission, error) {
	s.mu.RLock()
	out := make([]domain.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		out = append(out, cloneSubmission(sub))
	}
	s.mu.RUnlock()

	if opts.SortByCompletedAtDesc {
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
				return out[i].CompletedAt.After(out[j].CompletedAt)
			}
			return out[i].Email < out[j].Email
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	}
	return out, nil
}

func (s *MemoryStore) UpsertSession(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.Answers = session.Answers.Clone()
	s.sessions[session.Email] = session
	return nil
}

func (s *MemoryStore) FindSession(_ context.Context, email string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[email]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	session.Answers = session.Answers.Clone()
	return session, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, email)
	return nil
}

func (s *MemoryStore) PurgeSessions(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for email, session := range s.sessions {
		if session.LastUpdated.Before(before) {
			delete(s.sessions, email)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) FindAdminByIdentifier(_ context.Context, identifier string) (domain.AdminAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if admin, ok := s.admins[identifier]; ok {
		return admin, nil
	}
	for _, admin := range s.admins {
		if admin.Email != "" && strings.EqualFold(admin.Email, identifier) {
			return admin, nil
		}
	}
	return domain.AdminAccount{}, domain.ErrNotFound
}

func (s *MemoryStore) UpsertAdmin(_ context.Context, admin domain.AdminAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.admins[admin.Username]; ok {
		admin.ID = existing.ID
		admin.CreatedAt = existing.CreatedAt
	}
	s.admins[admin.Username] = admin
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func cloneSubmission(sub domain.Submission) domain.Submission {
	sub.Answers = sub.Answers.Clone()
	if sub.Result.Scores != nil {
		scores := make(map[domain.Archetype]int, len(sub.Result.Scores))
		for k, v := range sub.Result.Scores {
			scores[k] = v
		}
		sub.Result.Scores = scores
	}
	return sub
}
