// Package scoring turns an answer set into a ranked archetype result.
package scoring

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"securequiz/internal/quiz/domain"
)

// Engine scores answer sets against a fixed weight table. It is safe for
// concurrent use; the table is never mutated after construction.
type Engine struct {
	weights     domain.WeightTable
	archetypes  []domain.Archetype
	maxPossible map[domain.Archetype]int
	intn        func(n int) int
}

// Option customises an Engine.
type Option func(*Engine)

// WithRandom overrides the source used for the display-only completion time.
func WithRandom(intn func(n int) int) Option {
	return func(e *Engine) {
		if intn != nil {
			e.intn = intn
		}
	}
}

// New builds an engine over weights. The table is copied.
func New(weights domain.WeightTable, opts ...Option) *Engine {
	copied := make(domain.WeightTable, len(weights))
	for a, row := range weights {
		r := make(map[domain.QuestionID]int, len(row))
		for q, w := range row {
			r[q] = w
		}
		copied[a] = r
	}
	e := &Engine{
		weights:     copied,
		archetypes:  copied.Archetypes(),
		maxPossible: make(map[domain.Archetype]int, len(copied)),
		intn:        rand.IntN,
	}
	for _, a := range e.archetypes {
		e.maxPossible[a] = copied.MaxPossible(a)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDefault builds an engine over the production weight table.
func NewDefault(opts ...Option) *Engine {
	return New(domain.DefaultWeights(), opts...)
}

// Rank returns every archetype ordered by percentage desc, raw desc, then name asc.
func (e *Engine) Rank(answers domain.AnswerSet) []domain.ArchetypeScore {
	ranked := make([]domain.ArchetypeScore, 0, len(e.archetypes))
	for _, a := range e.archetypes {
		raw := 0
		for q := domain.QuestionID(1); q <= domain.QuestionCount; q++ {
			if chosen, ok := answers.Answer(q); ok && chosen == a {
				raw += e.weights[a][q]
			}
		}
		maxPossible := e.maxPossible[a]
		ranked = append(ranked, domain.ArchetypeScore{
			Archetype:   a,
			Raw:         raw,
			MaxPossible: maxPossible,
			Percentage:  Percentage(raw, maxPossible),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		left, right := ranked[i], ranked[j]
		if left.Percentage != right.Percentage {
			return left.Percentage > right.Percentage
		}
		if left.Raw != right.Raw {
			return left.Raw > right.Raw
		}
		return left.Archetype < right.Archetype
	})
	return ranked
}

// Score evaluates answers and returns the winning archetype with all percentages.
// Unknown question ids and archetype names contribute nothing.
func (e *Engine) Score(answers domain.AnswerSet) domain.ScoreResult {
	ranked := e.Rank(answers)
	scores := make(map[domain.Archetype]int, len(ranked))
	for _, row := range ranked {
		scores[row.Archetype] = row.Percentage
	}
	result := domain.ScoreResult{
		Scores:         scores,
		Confidence:     domain.ConfidenceLow,
		CompletionTime: e.completionTime(),
	}
	if len(ranked) == 0 {
		return result
	}
	winner := ranked[0]
	result.Archetype = winner.Archetype
	result.Description = winner.Archetype.Description()
	result.Confidence = domain.ConfidenceFor(winner.Percentage)
	return result
}

// Percentage rounds raw/maxPossible*100 half away from zero. A zero maximum yields 0.
func Percentage(raw, maxPossible int) int {
	if maxPossible <= 0 {
		return 0
	}
	return int(math.Round(float64(raw) / float64(maxPossible) * 100))
}

func (e *Engine) completionTime() string {
	return fmt.Sprintf("%d:%02d", e.intn(3), e.intn(60))
}
