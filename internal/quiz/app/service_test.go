package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securequiz/internal/quiz/adapters"
	"securequiz/internal/quiz/domain"
	"securequiz/internal/utils/id"
)

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := NewService(nil, nil, nil, Config{})
	assert.Error(t, err)
}

func TestSubmitScoresPersistsAndClearsSession(t *testing.T) {
	ctx := context.Background()
	store := adapters.NewMemoryStore()
	svc, _ := newTestService(t, store, WithIDGenerator(func() string { return "sub-fixed" }))

	require.NoError(t, svc.SaveSession(ctx, SaveSessionRequest{
		Email:    "Ada@Example.com",
		Progress: 4,
		Answers:  domain.AnswerSet{"1": "Leader"},
	}))

	result, err := svc.Submit(ctx, SubmitRequest{
		Answers:  mixedAnswers(),
		Email:    "  ADA@example.com ",
		Name:     " Ada Lovelace ",
		ClientID: "203.0.113.9",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ArchetypeLeader, result.Archetype)
	assert.Equal(t, domain.ConfidenceMedium, result.Confidence)
	assert.Equal(t, 60, result.Scores[domain.ArchetypeLeader])
	assert.Regexp(t, `^[0-9]+:[0-5][0-9]$`, result.CompletionTime)

	stored, err := svc.FindSubmission(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sub-fixed", stored.ID)
	assert.Equal(t, "ada@example.com", stored.Email)
	assert.Equal(t, "Ada Lovelace", stored.Name)
	assert.Equal(t, "203.0.113.9", stored.IPAddress)
	assert.Equal(t, testStart, stored.CompletedAt)
	assert.Equal(t, result, stored.Result)
	assert.Equal(t, mixedAnswers(), stored.Answers)

	_, err = svc.GetSession(ctx, "ada@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newTestService(t, adapters.NewMemoryStore())
	cases := map[string]SubmitRequest{
		"nil answers": {Email: "a@example.com", Name: "A"},
		"no email":    {Answers: domain.AnswerSet{}, Email: "  ", Name: "A"},
		"no name":     {Answers: domain.AnswerSet{}, Email: "a@example.com"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			req.ClientID = name
			_, err := svc.Submit(context.Background(), req)
			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, "Missing required fields", err.Error())
		})
	}
}

func TestSubmitEmptyAnswersIsAccepted(t *testing.T) {
	svc, _ := newTestService(t, adapters.NewMemoryStore())
	result, err := svc.Submit(context.Background(), SubmitRequest{
		Answers: domain.AnswerSet{}, Email: "empty@example.com", Name: "Empty",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ArchetypeAchiever, result.Archetype)
	assert.Equal(t, domain.ConfidenceLow, result.Confidence)
}

func TestSubmitDuplicateEmailConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, adapters.NewMemoryStore())

	_, err := svc.Submit(ctx, SubmitRequest{Answers: mixedAnswers(), Email: "dup@example.com", Name: "First", ClientID: "a"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, SubmitRequest{Answers: domain.AnswerSet{}, Email: "DUP@example.com", Name: "Second", ClientID: "b"})
	require.ErrorIs(t, err, domain.ErrConflict)

	stored, err := svc.FindSubmission(ctx, "dup@example.com")
	require.NoError(t, err)
	assert.Equal(t, "First", stored.Name)
}

func TestSubmitConcurrentSameEmailStoresOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, adapters.NewMemoryStore())

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Submit(ctx, SubmitRequest{
				Answers:  mixedAnswers(),
				Email:    "race@example.com",
				Name:     fmt.Sprintf("Racer %d", i),
				ClientID: fmt.Sprintf("10.0.0.%d", i),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	subs, err := svc.ListSubmissions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestSubmitRateLimitedPerClient(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t, adapters.NewMemoryStore())

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(ctx, SubmitRequest{
			Answers: mixedAnswers(), Email: fmt.Sprintf("user%d@example.com", i), Name: "User", ClientID: "198.51.100.7",
		})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	_, err := svc.Submit(ctx, SubmitRequest{
		Answers: mixedAnswers(), Email: "user9@example.com", Name: "User", ClientID: "198.51.100.7",
	})
	var rateErr *domain.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, testStart.Add(time.Hour), rateErr.ResetAt)

	// Rejected attempts still consume the allowance.
	_, err = svc.Submit(ctx, SubmitRequest{ClientID: "192.0.2.1"})
	require.ErrorIs(t, err, domain.ErrValidation)

	clock.Advance(time.Hour)
	_, err = svc.Submit(ctx, SubmitRequest{
		Answers: mixedAnswers(), Email: "user9@example.com", Name: "User", ClientID: "198.51.100.7",
	})
	assert.NoError(t, err)
}

func TestSubmitSucceedsWhenSessionCleanupFails(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: adapters.NewMemoryStore(), deleteSessionErr: errBackendDown}
	svc, _ := newTestService(t, store)

	_, err := svc.Submit(ctx, SubmitRequest{Answers: mixedAnswers(), Email: "keep@example.com", Name: "Keep"})
	require.NoError(t, err)
	_, err = svc.FindSubmission(ctx, "keep@example.com")
	assert.NoError(t, err)
}

func TestSubmitMapsStorageFailures(t *testing.T) {
	store := &failingStore{MemoryStore: adapters.NewMemoryStore(), findErr: errBackendDown}
	svc, _ := newTestService(t, store)

	_, err := svc.Submit(context.Background(), SubmitRequest{Answers: mixedAnswers(), Email: "x@example.com", Name: "X"})
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, err, errBackendDown)
}

func TestSessionSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t, adapters.NewMemoryStore())

	err := svc.SaveSession(ctx, SaveSessionRequest{Email: ""})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Missing email", err.Error())

	require.NoError(t, svc.SaveSession(ctx, SaveSessionRequest{Email: "s@example.com", ClientID: "1.1.1.1"}))
	session, err := svc.GetSession(ctx, "S@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, session.Progress)
	assert.Equal(t, domain.AnswerSet{}, session.Answers)
	assert.Equal(t, testStart, session.LastUpdated)

	clock.Advance(time.Minute)
	require.NoError(t, svc.SaveSession(ctx, SaveSessionRequest{
		Email: "s@example.com", Progress: 3, Answers: domain.AnswerSet{"1": "Mentor", "2": "Mentor", "3": "Mentor"},
	}))
	session, err = svc.GetSession(ctx, "s@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, session.Progress)
	assert.Len(t, session.Answers, 3)
	assert.Equal(t, testStart.Add(time.Minute), session.LastUpdated)
}

func TestResetUserAllowsResubmission(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, adapters.NewMemoryStore())

	_, err := svc.Submit(ctx, SubmitRequest{Answers: mixedAnswers(), Email: "again@example.com", Name: "Again", ClientID: "a"})
	require.NoError(t, err)
	require.NoError(t, svc.SaveSession(ctx, SaveSessionRequest{Email: "again@example.com", Progress: 1}))

	require.ErrorIs(t, svc.ResetUser(ctx, " "), domain.ErrValidation)
	require.NoError(t, svc.ResetUser(ctx, "Again@example.com"))
	require.NoError(t, svc.ResetUser(ctx, "nobody@example.com"))

	_, err = svc.FindSubmission(ctx, "again@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetSession(ctx, "again@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Submit(ctx, SubmitRequest{Answers: mixedAnswers(), Email: "again@example.com", Name: "Again", ClientID: "b"})
	assert.NoError(t, err)
}

func TestPurgeStaleSessions(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t, adapters.NewMemoryStore())

	require.NoError(t, svc.SaveSession(ctx, SaveSessionRequest{Email: "old@example.com"}))
	clock.Advance(48 * time.Hour)
	require.NoError(t, svc.SaveSession(ctx, SaveSessionRequest{Email: "new@example.com"}))
	clock.Advance(25 * time.Hour)

	removed, err := svc.PurgeStaleSessions(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = svc.GetSession(ctx, "old@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetSession(ctx, "new@example.com")
	assert.NoError(t, err)

	removed, err = svc.PurgeStaleSessions(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestPurgeStaleSessionsLogsWithRequestLogID(t *testing.T) {
	logger := &recordingLogger{}
	svc, clock := newTestService(t, adapters.NewMemoryStore(), WithLogger(logger))

	require.NoError(t, svc.SaveSession(context.Background(), SaveSessionRequest{Email: "idle@example.com"}))
	clock.Advance(73 * time.Hour)

	ctx := id.WithLogID(context.Background(), "sweep-42")
	removed, err := svc.PurgeStaleSessions(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	var purgeLine string
	for _, line := range logger.Lines() {
		if strings.Contains(line, "Purged 1 sessions") {
			purgeLine = line
		}
	}
	require.NotEmpty(t, purgeLine, "purge log line: %v", logger.Lines())
	assert.True(t, strings.HasPrefix(purgeLine, "logid=sweep-42 "), purgeLine)
}

func TestListSubmissionsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t, adapters.NewMemoryStore())
	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := svc.Submit(ctx, SubmitRequest{Answers: mixedAnswers(), Email: email, Name: "N", ClientID: fmt.Sprint(i)})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	subs, err := svc.ListSubmissions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "c@example.com", subs[0].Email)
	assert.Equal(t, "a@example.com", subs[2].Email)

	store := &failingStore{MemoryStore: adapters.NewMemoryStore(), listErr: errBackendDown}
	broken, _ := newTestService(t, store)
	_, err = broken.ListSubmissions(ctx)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}
