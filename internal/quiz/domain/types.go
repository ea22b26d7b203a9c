package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Archetype identifies one of the eight personality categories.
type Archetype string

const (
	ArchetypeLeader       Archetype = "Leader"
	ArchetypeAnalyst      Archetype = "Analyst"
	ArchetypeCollaborator Archetype = "Collaborator"
	ArchetypeVisionary    Archetype = "Visionary"
	ArchetypeAchiever     Archetype = "Achiever"
	ArchetypeScholar      Archetype = "Scholar"
	ArchetypeMentor       Archetype = "Mentor"
	ArchetypeCreator      Archetype = "Creator"
)

var archetypeDescriptions = map[Archetype]string{
	ArchetypeLeader:       "Natural born leader who inspires and guides others toward common goals",
	ArchetypeAnalyst:      "Strategic thinker who excels at breaking down complex problems",
	ArchetypeCollaborator: "Team player who brings people together and fosters cooperation",
	ArchetypeVisionary:    "Innovative thinker who sees possibilities others miss",
	ArchetypeAchiever:     "Results-driven individual focused on accomplishing objectives",
	ArchetypeScholar:      "Lifelong learner passionate about knowledge and understanding",
	ArchetypeMentor:       "Supportive guide who helps others develop and grow",
	ArchetypeCreator:      "Artistic soul who brings new ideas into reality",
}

// Archetypes returns the eight archetypes sorted by name.
func Archetypes() []Archetype {
	out := make([]Archetype, 0, len(archetypeDescriptions))
	for a := range archetypeDescriptions {
		out = append(out, a)
	}
	sortArchetypes(out)
	return out
}

func sortArchetypes(list []Archetype) {
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
}

// IsValid reports whether the archetype is one of the eight known names.
func (a Archetype) IsValid() bool {
	_, ok := archetypeDescriptions[a]
	return ok
}

// Description returns the static description text. Unknown archetypes resolve to "".
func (a Archetype) Description() string {
	return archetypeDescriptions[a]
}

// QuestionID identifies a quiz question (1..QuestionCount).
type QuestionID int

// QuestionCount is the fixed number of questions in the quiz.
const QuestionCount = 10

// Key returns the answer-set key for the question.
func (q QuestionID) Key() string {
	return strconv.Itoa(int(q))
}

// Confidence bands the winning archetype's percentage.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// ConfidenceFor returns High above 80, Medium above 55 and Low otherwise.
func ConfidenceFor(percentage int) Confidence {
	switch {
	case percentage > 80:
		return ConfidenceHigh
	case percentage > 55:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// AnswerSet maps a question id ("1".."10") to the chosen archetype name.
//
// A nil AnswerSet means no answers were supplied at all; an empty, non-nil
// set means the client sent an empty object.
type AnswerSet map[string]string

// Answer returns the archetype chosen for q, if any.
func (a AnswerSet) Answer(q QuestionID) (Archetype, bool) {
	if a == nil {
		return "", false
	}
	value, ok := a[q.Key()]
	if !ok || value == "" {
		return "", false
	}
	return Archetype(value), true
}

// Clone returns a copy that shares no state with a.
func (a AnswerSet) Clone() AnswerSet {
	if a == nil {
		return nil
	}
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// UnmarshalJSON keeps string-valued entries and silently drops the rest so
// malformed answers score as "no match" instead of failing the request.
func (a *AnswerSet) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*a = nil
		return nil
	}
	out := make(AnswerSet, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	*a = out
	return nil
}

// ArchetypeScore is one row of the ranked scoring output.
type ArchetypeScore struct {
	Archetype   Archetype `json:"archetype"`
	Raw         int       `json:"raw"`
	MaxPossible int       `json:"max_possible"`
	Percentage  int       `json:"percentage"`
}

// ScoreResult is the outcome of scoring one answer set.
type ScoreResult struct {
	Archetype   Archetype         `json:"archetype"`
	Description string            `json:"description"`
	Scores      map[Archetype]int `json:"scores"`
	Confidence  Confidence        `json:"confidence"`
	// CompletionTime is display-only and never used for ranking or equality.
	CompletionTime string `json:"completionTime"`
}

// Submission is a finalized quiz result, unique per email.
type Submission struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Answers     AnswerSet   `json:"answers"`
	Result      ScoreResult `json:"result"`
	CompletedAt time.Time   `json:"completedAt"`
	IPAddress   string      `json:"ip_address"`
}

// Session is the transient, in-progress state of a quiz keyed by email.
type Session struct {
	Email       string    `json:"email"`
	Progress    int       `json:"progress"`
	Answers     AnswerSet `json:"answers"`
	LastUpdated time.Time `json:"lastUpdated"`
	IPAddress   string    `json:"ip_address"`
}

// AdminAccount is an operator allowed to use the admin endpoints.
type AdminAccount struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AdminClaims is the verified content of an admin credential.
type AdminClaims struct {
	Subject   string
	Username  string
	Admin     bool
	ExpiresAt time.Time
}

// Token is an issued admin credential.
type Token struct {
	Value     string
	ExpiresAt time.Time
}
