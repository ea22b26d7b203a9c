package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"securequiz/internal/logging"
	"securequiz/internal/observability"
	"securequiz/internal/quiz/domain"
	"securequiz/internal/quiz/ports"
	"securequiz/internal/quiz/scoring"
	"securequiz/internal/utils/id"
)

// Submission outcomes reported to metrics.
const (
	OutcomeSuccess     = "success"
	OutcomeValidation  = "validation"
	OutcomeConflict    = "conflict"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Config controls lifecycle policies.
type Config struct {
	RateLimit     RateLimitConfig
	SessionMaxAge time.Duration
}

// Service is the submission lifecycle manager. It orchestrates the limiter,
// the scoring engine and the store; it holds no persistent state of its own.
type Service struct {
	store   ports.Store
	tokens  ports.TokenManager
	hasher  ports.PasswordHasher
	scorer  *scoring.Engine
	limiter *RateLimiter
	config  Config
	logger  logging.Logger
	metrics *observability.MetricsCollector
	tracer  *observability.TracerProvider
	now     func() time.Time
	newID   func() string
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(logger) }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(metrics *observability.MetricsCollector) Option {
	return func(s *Service) { s.metrics = metrics }
}

// WithTracer attaches a tracer provider.
func WithTracer(tracer *observability.TracerProvider) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithClock overrides the time source for the service and its limiter.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithScorer overrides the scoring engine.
func WithScorer(engine *scoring.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.scorer = engine
		}
	}
}

// WithIDGenerator overrides submission and admin id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService wires the lifecycle manager.
func NewService(store ports.Store, tokens ports.TokenManager, hasher ports.PasswordHasher, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("quiz service requires a store")
	}
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = 72 * time.Hour
	}
	s := &Service{
		store:  store,
		tokens: tokens,
		hasher: hasher,
		scorer: scoring.NewDefault(),
		config: cfg,
		logger: logging.NewComponentLogger("QuizService"),
		now:    time.Now,
		newID:  id.NewSubmissionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	limiter, err := NewRateLimiter(cfg.RateLimit, func() time.Time { return s.now() })
	if err != nil {
		return nil, err
	}
	s.limiter = limiter
	return s, nil
}

// NormalizeEmail trims and lower-cases an email used as a storage key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SubmitRequest carries one quiz completion.
type SubmitRequest struct {
	Answers  domain.AnswerSet
	Email    string
	Name     string
	ClientID string
}

// Submit rate-limits, validates, scores and persists a submission. The store's
// unique key on email is authoritative; the lookup beforehand only returns
// the conflict early.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (result domain.ScoreResult, err error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanSubmit)
	defer func() {
		span.SetAttributes(attribute.String(observability.AttrOutcome, submitOutcome(err)))
		observability.EndSpan(span, err)
		s.metrics.RecordSubmission(submitOutcome(err))
	}()
	logger := logging.FromContext(ctx, s.logger)

	decision := s.limiter.Allow(req.ClientID)
	if !decision.Allowed {
		s.metrics.RecordRateLimitDenial()
		logger.Warn("Submission rate limited for client %s until %s", req.ClientID, decision.ResetAt.Format(time.RFC3339))
		return domain.ScoreResult{}, &domain.RateLimitError{ResetAt: decision.ResetAt, Remaining: decision.Remaining}
	}

	email := NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	switch {
	case req.Answers == nil:
		return domain.ScoreResult{}, domain.NewValidationError("answers", "Missing required fields")
	case email == "":
		return domain.ScoreResult{}, domain.NewValidationError("email", "Missing required fields")
	case name == "":
		return domain.ScoreResult{}, domain.NewValidationError("name", "Missing required fields")
	}

	if _, findErr := s.store.FindSubmissionByEmail(ctx, email); findErr == nil {
		return domain.ScoreResult{}, domain.ErrConflict
	} else if !errors.Is(findErr, domain.ErrNotFound) {
		logger.Error("Duplicate check failed for %s: %v", email, findErr)
		return domain.ScoreResult{}, domain.WrapStorage("find submission", findErr)
	}

	result = s.score(ctx, req.Answers)
	span.SetAttributes(
		attribute.String(observability.AttrArchetype, string(result.Archetype)),
		attribute.String(observability.AttrConfidence, string(result.Confidence)),
	)

	submission := domain.Submission{
		ID:          s.newID(),
		Email:       email,
		Name:        name,
		Answers:     req.Answers.Clone(),
		Result:      result,
		CompletedAt: s.now().UTC(),
		IPAddress:   req.ClientID,
	}
	if insertErr := s.store.InsertSubmission(ctx, submission); insertErr != nil {
		if errors.Is(insertErr, ports.ErrDuplicateSubmission) {
			logger.Info("Concurrent duplicate submission rejected for %s", email)
			return domain.ScoreResult{}, domain.ErrConflict
		}
		logger.Error("Persist submission failed for %s: %v", email, insertErr)
		return domain.ScoreResult{}, domain.WrapStorage("insert submission", insertErr)
	}

	if delErr := s.store.DeleteSession(ctx, email); delErr != nil {
		logger.Warn("Session cleanup failed for %s: %v", email, delErr)
	}
	logger.Info("Submission stored for %s: archetype=%s confidence=%s", email, result.Archetype, result.Confidence)
	return result, nil
}

func (s *Service) score(ctx context.Context, answers domain.AnswerSet) domain.ScoreResult {
	_, span := s.tracer.StartSpan(ctx, observability.SpanScore)
	defer span.End()
	started := time.Now()
	result := s.scorer.Score(answers)
	s.metrics.ObserveScoring(time.Since(started))
	return result
}

func submitOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrRateLimited):
		return OutcomeRateLimited
	case errors.Is(err, domain.ErrValidation):
		return OutcomeValidation
	case errors.Is(err, domain.ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}

// Score evaluates answers without persisting anything.
func (s *Service) Score(answers domain.AnswerSet) domain.ScoreResult {
	return s.scorer.Score(answers)
}

// Rank exposes the full ranking for answers.
func (s *Service) Rank(answers domain.AnswerSet) []domain.ArchetypeScore {
	return s.scorer.Rank(answers)
}

// SaveSessionRequest carries in-progress quiz state.
type SaveSessionRequest struct {
	Email    string
	Progress int
	Answers  domain.AnswerSet
	ClientID string
}

// SaveSession upserts progress for an email, last write wins. Missing progress
// and answers default to 0 and {}.
func (s *Service) SaveSession(ctx context.Context, req SaveSessionRequest) (err error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanSaveSession)
	defer func() { observability.EndSpan(span, err) }()

	email := NormalizeEmail(req.Email)
	if email == "" {
		return domain.NewValidationError("email", "Missing email")
	}
	answers := req.Answers.Clone()
	if answers == nil {
		answers = domain.AnswerSet{}
	}
	session := domain.Session{
		Email:       email,
		Progress:    req.Progress,
		Answers:     answers,
		LastUpdated: s.now().UTC(),
		IPAddress:   req.ClientID,
	}
	if err := s.store.UpsertSession(ctx, session); err != nil {
		logging.FromContext(ctx, s.logger).Error("Save session failed for %s: %v", email, err)
		return domain.WrapStorage("upsert session", err)
	}
	return nil
}

// GetSession returns the saved progress for email.
func (s *Service) GetSession(ctx context.Context, email string) (domain.Session, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return domain.Session{}, domain.NewValidationError("email", "Missing email")
	}
	session, err := s.store.FindSession(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, err
		}
		return domain.Session{}, domain.WrapStorage("find session", err)
	}
	return session, nil
}

// ResetUser removes the submission and session for email. Absent records are not an error.
func (s *Service) ResetUser(ctx context.Context, email string) (err error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanReset)
	defer func() { observability.EndSpan(span, err) }()

	email = NormalizeEmail(email)
	if email == "" {
		return domain.NewValidationError("email", "Missing email")
	}
	if err := s.store.DeleteSubmission(ctx, email); err != nil {
		return domain.WrapStorage("delete submission", err)
	}
	if err := s.store.DeleteSession(ctx, email); err != nil {
		return domain.WrapStorage("delete session", err)
	}
	logging.FromContext(ctx, s.logger).Info("Reset quiz state for %s by %s", email, id.AdminFromContext(ctx))
	return nil
}

// ListSubmissions returns every submission, most recent first.
func (s *Service) ListSubmissions(ctx context.Context) ([]domain.Submission, error) {
	subs, err := s.store.ListSubmissions(ctx, ports.ListOptions{SortByCompletedAtDesc: true})
	if err != nil {
		return nil, domain.WrapStorage("list submissions", err)
	}
	return subs, nil
}

// FindSubmission returns the submission stored for email.
func (s *Service) FindSubmission(ctx context.Context, email string) (domain.Submission, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return domain.Submission{}, domain.NewValidationError("email", "Missing email")
	}
	sub, err := s.store.FindSubmissionByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Submission{}, err
		}
		return domain.Submission{}, domain.WrapStorage("find submission", err)
	}
	return sub, nil
}

// PurgeStaleSessions deletes sessions not updated within olderThan. A zero
// olderThan uses the configured session max age.
func (s *Service) PurgeStaleSessions(ctx context.Context, olderThan time.Duration) (removed int64, err error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanSessionSweep)
	defer func() {
		span.SetAttributes(attribute.Int64(observability.AttrPurgedSession, removed))
		observability.EndSpan(span, err)
	}()

	if olderThan <= 0 {
		olderThan = s.config.SessionMaxAge
	}
	cutoff := s.now().Add(-olderThan)
	removed, err = s.store.PurgeSessions(ctx, cutoff)
	if err != nil {
		return 0, domain.WrapStorage("purge sessions", err)
	}
	s.metrics.RecordSessionsPurged(removed)
	if removed > 0 {
		logging.FromContext(ctx, s.logger).Info("Purged %d sessions idle since %s", removed, cutoff.Format(time.RFC3339))
	}
	return removed, nil
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return domain.WrapStorage("ping", err)
	}
	return nil
}

func (s *Service) requireAuth() error {
	if s.tokens == nil || s.hasher == nil {
		return fmt.Errorf("%w: admin authentication not configured", domain.ErrUnauthorized)
	}
	return nil
}
