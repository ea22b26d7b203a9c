package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"securequiz/internal/quiz/adapters"
	"securequiz/internal/quiz/domain"
	"securequiz/internal/quiz/ports"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingLogger) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *recordingLogger) Debug(format string, args ...any) { r.record(format, args...) }
func (r *recordingLogger) Info(format string, args ...any)  { r.record(format, args...) }
func (r *recordingLogger) Warn(format string, args ...any)  { r.record(format, args...) }
func (r *recordingLogger) Error(format string, args ...any) { r.record(format, args...) }

func (r *recordingLogger) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testStart = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestService(t *testing.T, store ports.Store, opts ...Option) (*Service, *testClock) {
	t.Helper()
	clock := newTestClock(testStart)
	tokens := adapters.NewJWTTokenManager("test-secret", "quiz-test", time.Hour)
	hasher := adapters.NewPasswordHasher(adapters.Argon2idParams{Memory: 1024, Threads: 1})
	all := append([]Option{WithClock(clock.Now)}, opts...)
	svc, err := NewService(store, tokens, hasher, Config{RateLimit: DefaultRateLimitConfig()}, all...)
	require.NoError(t, err)
	return svc, clock
}

func mixedAnswers() domain.AnswerSet {
	return domain.AnswerSet{
		"1": "Leader", "2": "Scholar", "3": "Leader", "4": "Achiever", "5": "Leader",
		"6": "Leader", "7": "Scholar", "8": "Achiever", "9": "Leader", "10": "Achiever",
	}
}

// failingStore wraps a MemoryStore and injects errors into selected calls.
type failingStore struct {
	*adapters.MemoryStore
	findErr          error
	deleteSessionErr error
	listErr          error
}

func (s *failingStore) FindSubmissionByEmail(ctx context.Context, email string) (domain.Submission, error) {
	if s.findErr != nil {
		return domain.Submission{}, s.findErr
	}
	return s.MemoryStore.FindSubmissionByEmail(ctx, email)
}

func (s *failingStore) DeleteSession(ctx context.Context, email string) error {
	if s.deleteSessionErr != nil {
		return s.deleteSessionErr
	}
	return s.MemoryStore.DeleteSession(ctx, email)
}

func (s *failingStore) ListSubmissions(ctx context.Context, opts ports.ListOptions) ([]domain.Submission, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MemoryStore.ListSubmissions(ctx, opts)
}

var errBackendDown = errors.New("connection refused")
