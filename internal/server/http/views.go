package http

import (
	"time"

	"securequiz/internal/quiz/app"
	"securequiz/internal/quiz/domain"
)

// submissionView is the flat admin representation of a stored submission.
type submissionView struct {
	ID             string                   `json:"id"`
	Archetype      domain.Archetype         `json:"archetype"`
	Description    string                   `json:"description"`
	Scores         map[domain.Archetype]int `json:"scores"`
	Confidence     domain.Confidence        `json:"confidence"`
	CompletionTime string                   `json:"completionTime"`
	Answers        domain.AnswerSet         `json:"answers"`
	Name           string                   `json:"name"`
	Email          string                   `json:"email"`
	CompletedAt    string                   `json:"completedAt"`
	IPAddress      string                   `json:"ip_address"`
}

func newSubmissionView(sub domain.Submission) submissionView {
	answers := sub.Answers
	if answers == nil {
		answers = domain.AnswerSet{}
	}
	return submissionView{
		ID:             sub.ID,
		Archetype:      sub.Result.Archetype,
		Description:    sub.Result.Description,
		Scores:         sub.Result.Scores,
		Confidence:     sub.Result.Confidence,
		CompletionTime: sub.Result.CompletionTime,
		Answers:        answers,
		Name:           sub.Name,
		Email:          sub.Email,
		CompletedAt:    sub.CompletedAt.UTC().Format(app.ISOTimestamp),
		IPAddress:      sub.IPAddress,
	}
}

func newSubmissionViews(subs []domain.Submission) []submissionView {
	out := make([]submissionView, 0, len(subs))
	for _, sub := range subs {
		out = append(out, newSubmissionView(sub))
	}
	return out
}

type analyticsView struct {
	TotalSubmissions      int                  `json:"totalSubmissions"`
	ArchetypeDistribution []app.ArchetypeCount `json:"archetypeDistribution"`
	RecentSubmissions     []submissionView     `json:"recentSubmissions"`
	GeneratedAt           time.Time            `json:"generatedAt"`
}

func newAnalyticsView(a app.Analytics) analyticsView {
	distribution := a.ArchetypeDistribution
	if distribution == nil {
		distribution = []app.ArchetypeCount{}
	}
	return analyticsView{
		TotalSubmissions:      a.TotalSubmissions,
		ArchetypeDistribution: distribution,
		RecentSubmissions:     newSubmissionViews(a.RecentSubmissions),
		GeneratedAt:           a.GeneratedAt,
	}
}

type sessionView struct {
	Email       string           `json:"email"`
	Progress    int              `json:"progress"`
	Answers     domain.AnswerSet `json:"answers"`
	LastUpdated string           `json:"lastUpdated"`
}

func newSessionView(s domain.Session) sessionView {
	answers := s.Answers
	if answers == nil {
		answers = domain.AnswerSet{}
	}
	return sessionView{
		Email:       s.Email,
		Progress:    s.Progress,
		Answers:     answers,
		LastUpdated: s.LastUpdated.UTC().Format(app.ISOTimestamp),
	}
}
