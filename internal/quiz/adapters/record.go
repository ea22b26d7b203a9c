package adapters

import (
	"encoding/json"
	"fmt"
	"time"

	"securequiz/internal/quiz/domain"
)

// submissionRecord is the flattened row shape shared by the SQL stores.
type submissionRecord struct {
	id             string
	email          string
	name           string
	answers        []byte
	archetype      string
	description    string
	scores         []byte
	confidence     string
	completionTime string
	completedAt    time.Time
	ipAddress      string
}

func recordFromSubmission(sub domain.Submission) (submissionRecord, error) {
	answers, err := encodeAnswers(sub.Answers)
	if err != nil {
		return submissionRecord{}, err
	}
	scores := sub.Result.Scores
	if scores == nil {
		scores = map[domain.Archetype]int{}
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return submissionRecord{}, fmt.Errorf("encode scores: %w", err)
	}
	return submissionRecord{
		id:             sub.ID,
		email:          sub.Email,
		name:           sub.Name,
		answers:        answers,
		archetype:      string(sub.Result.Archetype),
		description:    sub.Result.Description,
		scores:         scoresJSON,
		confidence:     string(sub.Result.Confidence),
		completionTime: sub.Result.CompletionTime,
		completedAt:    sub.CompletedAt.UTC(),
		ipAddress:      sub.IPAddress,
	}, nil
}

func (r submissionRecord) toSubmission() (domain.Submission, error) {
	answers, err := decodeAnswers(r.answers)
	if err != nil {
		return domain.Submission{}, err
	}
	scores := map[domain.Archetype]int{}
	if len(r.scores) > 0 {
		if err := json.Unmarshal(r.scores, &scores); err != nil {
			return domain.Submission{}, fmt.Errorf("decode scores: %w", err)
		}
	}
	return domain.Submission{
		ID:      r.id,
		Email:   r.email,
		Name:    r.name,
		Answers: answers,
		Result: domain.ScoreResult{
			Archetype:      domain.Archetype(r.archetype),
			Description:    r.description,
			Scores:         scores,
			Confidence:     domain.Confidence(r.confidence),
			CompletionTime: r.completionTime,
		},
		CompletedAt: r.completedAt.UTC(),
		IPAddress:   r.ipAddress,
	}, nil
}

func encodeAnswers(answers domain.AnswerSet) ([]byte, error) {
	if answers == nil {
		answers = domain.AnswerSet{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	return data, nil
}

func decodeAnswers(data []byte) (domain.AnswerSet, error) {
	answers := domain.AnswerSet{}
	if len(data) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if answers == nil {
		answers = domain.AnswerSet{}
	}
	return answers, nil
}
