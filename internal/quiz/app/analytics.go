package app

import (
	"context"
	"sort"
	"time"

	"securequiz/internal/observability"
	"securequiz/internal/quiz/domain"
	"securequiz/internal/quiz/scoring"
)

// RecentSubmissionLimit caps Analytics.RecentSubmissions.
const RecentSubmissionLimit = 10

// ArchetypeCount is one row of the archetype distribution.
type ArchetypeCount struct {
	Archetype  domain.Archetype `json:"archetype"`
	Count      int              `json:"count"`
	Percentage int              `json:"percentage"`
}

// Analytics is the admin dashboard aggregate.
type Analytics struct {
	TotalSubmissions      int                 `json:"totalSubmissions"`
	ArchetypeDistribution []ArchetypeCount    `json:"archetypeDistribution"`
	RecentSubmissions     []domain.Submission `json:"recentSubmissions"`
	GeneratedAt           time.Time           `json:"generatedAt"`
}

// Analytics aggregates every stored submission.
func (s *Service) Analytics(ctx context.Context) (out Analytics, err error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanAnalytics)
	defer func() { observability.EndSpan(span, err) }()

	subs, err := s.ListSubmissions(ctx)
	if err != nil {
		return Analytics{}, err
	}
	return BuildAnalytics(subs, s.now().UTC()), nil
}

// BuildAnalytics computes the distribution and the first RecentSubmissionLimit
// submissions after sorting by CompletedAt descending. Percentages are 0 when
// there are no submissions.
func BuildAnalytics(subs []domain.Submission, generatedAt time.Time) Analytics {
	counts := map[domain.Archetype]int{}
	for _, sub := range subs {
		counts[sub.Result.Archetype]++
	}
	total := len(subs)

	distribution := make([]ArchetypeCount, 0, len(counts))
	for archetype, count := range counts {
		distribution = append(distribution, ArchetypeCount{
			Archetype:  archetype,
			Count:      count,
			Percentage: scoring.Percentage(count, total),
		})
	}
	sort.Slice(distribution, func(i, j int) bool {
		if distribution[i].Count != distribution[j].Count {
			return distribution[i].Count > distribution[j].Count
		}
		return distribution[i].Archetype < distribution[j].Archetype
	})

	recent := make([]domain.Submission, len(subs))
	copy(recent, subs)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CompletedAt.After(recent[j].CompletedAt)
	})
	if len(recent) > RecentSubmissionLimit {
		recent = recent[:RecentSubmissionLimit]
	}

	return Analytics{
		TotalSubmissions:      total,
		ArchetypeDistribution: distribution,
		RecentSubmissions:     recent,
		GeneratedAt:           generatedAt,
	}
}
