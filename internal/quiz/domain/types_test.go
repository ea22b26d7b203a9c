package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidenceForBoundaries(t *testing.T) {
	cases := map[int]Confidence{
		100: ConfidenceHigh,
		81:  ConfidenceHigh,
		80:  ConfidenceMedium,
		56:  ConfidenceMedium,
		55:  ConfidenceLow,
		0:   ConfidenceLow,
	}
	for pct, want := range cases {
		assert.Equal(t, want, ConfidenceFor(pct), "percentage %d", pct)
	}
}

func TestAnswerSetUnmarshalDropsNonStringValues(t *testing.T) {
	var answers AnswerSet
	require.NoError(t, json.Unmarshal([]byte(`{"1":"Leader","2":7,"3":null,"4":{"x":1},"5":"Analyst"}`), &answers))
	assert.Equal(t, AnswerSet{"1": "Leader", "5": "Analyst"}, answers)

	got, ok := answers.Answer(1)
	assert.True(t, ok)
	assert.Equal(t, ArchetypeLeader, got)
	_, ok = answers.Answer(2)
	assert.False(t, ok)
}

func TestAnswerSetDistinguishesNullFromEmpty(t *testing.T) {
	var payload struct {
		Answers AnswerSet `json:"answers"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"answers":null}`), &payload))
	assert.Nil(t, payload.Answers)

	payload.Answers = nil
	require.NoError(t, json.Unmarshal([]byte(`{"answers":{}}`), &payload))
	assert.NotNil(t, payload.Answers)
	assert.Empty(t, payload.Answers)

	payload.Answers = nil
	require.NoError(t, json.Unmarshal([]byte(`{}`), &payload))
	assert.Nil(t, payload.Answers)
}

func TestAnswerSetRejectsNonObject(t *testing.T) {
	var answers AnswerSet
	assert.Error(t, json.Unmarshal([]byte(`["Leader"]`), &answers))
}

func TestArchetypesSortedAndDescribed(t *testing.T) {
	list := Archetypes()
	require.Len(t, list, 8)
	assert.Equal(t, ArchetypeAchiever, list[0])
	assert.Equal(t, ArchetypeVisionary, list[7])
	for _, a := range list {
		assert.True(t, a.IsValid())
		assert.NotEmpty(t, a.Description())
	}
	assert.False(t, Archetype("Wizard").IsValid())
	assert.Empty(t, Archetype("Wizard").Description())
}

func TestDefaultWeightsValid(t *testing.T) {
	weights := DefaultWeights()
	require.NoError(t, weights.Validate())
	assert.Equal(t, 20, weights.MaxPossible(ArchetypeLeader))
	assert.Equal(t, 23, weights.MaxPossible(ArchetypeAnalyst))
	assert.Equal(t, 14, weights.MaxPossible(ArchetypeCreator))

	weights[ArchetypeLeader][3] = 4
	assert.Error(t, weights.Validate())
	assert.NoError(t, DefaultWeights().Validate(), "DefaultWeights must return a fresh copy")
}

func TestQuestionsCatalogue(t *testing.T) {
	questions := Questions()
	require.Len(t, questions, QuestionCount)
	for i, q := range questions {
		assert.Equal(t, QuestionID(i+1), q.ID)
		require.Len(t, q.Options, 4)
		for j, opt := range q.Options {
			assert.Equal(t, j+1, opt.Value)
			assert.True(t, opt.Archetype.IsValid(), "question %d option %d", q.ID, j)
		}
	}
}

func TestErrorWrappersMatchSentinels(t *testing.T) {
	assert.True(t, errors.Is(NewValidationError("email", ""), ErrValidation))
	assert.Equal(t, "email is required", NewValidationError("email", "").Error())

	rl := &RateLimitError{ResetAt: time.Now().Add(time.Hour)}
	assert.True(t, errors.Is(rl, ErrRateLimited))

	cause := errors.New("connection refused")
	wrapped := WrapStorage("insert submission", cause)
	assert.True(t, errors.Is(wrapped, ErrStorageUnavailable))
	assert.True(t, errors.Is(wrapped, cause))
	assert.Same(t, wrapped, WrapStorage("outer", wrapped))
	assert.NoError(t, WrapStorage("noop", nil))
}
