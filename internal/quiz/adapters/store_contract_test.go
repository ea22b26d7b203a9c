package adapters

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securequiz/internal/quiz/domain"
	"securequiz/internal/quiz/ports"
)

var contractStart = time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

func contractSubmission(email string, at time.Time) domain.Submission {
	return domain.Submission{
		ID:      "sub-" + email,
		Email:   email,
		Name:    "Tester",
		Answers: domain.AnswerSet{"1": "Leader", "2": "Scholar"},
		Result: domain.ScoreResult{
			Archetype:      domain.ArchetypeLeader,
			Description:    domain.ArchetypeLeader.Description(),
			Scores:         map[domain.Archetype]int{domain.ArchetypeLeader: 15, domain.ArchetypeScholar: 9},
			Confidence:     domain.ConfidenceLow,
			CompletionTime: "7:05",
		},
		CompletedAt: at,
		IPAddress:   "192.0.2.10",
	}
}

// runStoreContract exercises behaviour every ports.Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Run("submission round trip", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		want := contractSubmission("round@example.com", contractStart)
		require.NoError(t, store.InsertSubmission(ctx, want))

		got, err := store.FindSubmissionByEmail(ctx, "round@example.com")
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Answers, got.Answers)
		assert.Equal(t, want.Result, got.Result)
		assert.True(t, want.CompletedAt.Equal(got.CompletedAt))
		assert.Equal(t, want.IPAddress, got.IPAddress)

		_, err = store.FindSubmissionByEmail(ctx, "missing@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("duplicate insert rejected", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		require.NoError(t, store.InsertSubmission(ctx, contractSubmission("dup@example.com", contractStart)))

		second := contractSubmission("dup@example.com", contractStart.Add(time.Minute))
		second.Name = "Other"
		assert.ErrorIs(t, store.InsertSubmission(ctx, second), ports.ErrDuplicateSubmission)

		got, err := store.FindSubmissionByEmail(ctx, "dup@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Tester", got.Name)
	})

	t.Run("concurrent inserts store exactly one", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		var (
			wg        sync.WaitGroup
			successes atomic.Int32
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := store.InsertSubmission(ctx, contractSubmission("race@example.com", contractStart)); err == nil {
					successes.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), successes.Load())
	})

	t.Run("list and delete", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		for i, email := range []string{"b@example.com", "a@example.com", "c@example.com"} {
			require.NoError(t, store.InsertSubmission(ctx, contractSubmission(email, contractStart.Add(time.Duration(i)*time.Hour))))
		}

		byEmail, err := store.ListSubmissions(ctx, ports.ListOptions{})
		require.NoError(t, err)
		require.Len(t, byEmail, 3)
		assert.Equal(t, "a@example.com", byEmail[0].Email)

		recent, err := store.ListSubmissions(ctx, ports.ListOptions{SortByCompletedAtDesc: true})
		require.NoError(t, err)
		require.Len(t, recent, 3)
		assert.Equal(t, "c@example.com", recent[0].Email)
		assert.Equal(t, "a@example.com", recent[1].Email)
		assert.Equal(t, "b@example.com", recent[2].Email)

		require.NoError(t, store.DeleteSubmission(ctx, "a@example.com"))
		require.NoError(t, store.DeleteSubmission(ctx, "a@example.com"))
		_, err = store.FindSubmissionByEmail(ctx, "a@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("sessions upsert and purge", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		session := domain.Session{
			Email:       "s@example.com",
			Progress:    2,
			Answers:     domain.AnswerSet{"1": "Mentor"},
			LastUpdated: contractStart,
			IPAddress:   "198.51.100.1",
		}
		require.NoError(t, store.UpsertSession(ctx, session))

		session.Progress = 5
		session.Answers = domain.AnswerSet{"1": "Mentor", "2": "Creator"}
		session.LastUpdated = contractStart.Add(time.Hour)
		require.NoError(t, store.UpsertSession(ctx, session))

		got, err := store.FindSession(ctx, "s@example.com")
		require.NoError(t, err)
		assert.Equal(t, 5, got.Progress)
		assert.Equal(t, session.Answers, got.Answers)
		assert.True(t, session.LastUpdated.Equal(got.LastUpdated))

		require.NoError(t, store.UpsertSession(ctx, domain.Session{Email: "old@example.com", Answers: domain.AnswerSet{}, LastUpdated: contractStart.Add(-time.Hour)}))
		removed, err := store.PurgeSessions(ctx, contractStart)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		_, err = store.FindSession(ctx, "old@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, store.DeleteSession(ctx, "s@example.com"))
		_, err = store.FindSession(ctx, "s@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("admins", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		admin := domain.AdminAccount{
			ID:           "adm-1",
			Username:     "root",
			Email:        "ops@example.com",
			PasswordHash: "hash-1",
			CreatedAt:    contractStart,
		}
		require.NoError(t, store.UpsertAdmin(ctx, admin))

		byName, err := store.FindAdminByIdentifier(ctx, "root")
		require.NoError(t, err)
		assert.Equal(t, "adm-1", byName.ID)

		byEmail, err := store.FindAdminByIdentifier(ctx, "OPS@example.com")
		require.NoError(t, err)
		assert.Equal(t, "root", byEmail.Username)

		admin.ID = "adm-2"
		admin.PasswordHash = "hash-2"
		require.NoError(t, store.UpsertAdmin(ctx, admin))
		updated, err := store.FindAdminByIdentifier(ctx, "root")
		require.NoError(t, err)
		assert.Equal(t, "adm-1", updated.ID)
		assert.Equal(t, "hash-2", updated.PasswordHash)

		_, err = store.FindAdminByIdentifier(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ports.Store {
		return NewMemoryStore()
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sub := contractSubmission("copy@example.com", contractStart)
	require.NoError(t, store.InsertSubmission(ctx, sub))

	sub.Answers["1"] = "Creator"
	got, err := store.FindSubmissionByEmail(ctx, "copy@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Leader", got.Answers["1"])

	got.Result.Scores[domain.ArchetypeLeader] = 0
	again, err := store.FindSubmissionByEmail(ctx, "copy@example.com")
	require.NoError(t, err)
	assert.Equal(t, 15, again.Result.Scores[domain.ArchetypeLeader])
}
