package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"securequiz/internal/logging"
	"securequiz/internal/observability"
	"securequiz/internal/quiz/domain"
	"securequiz/internal/utils/id"
)

// Login verifies admin credentials and issues a token. Every failure,
// including an unknown account, reports domain.ErrUnauthorized.
func (s *Service) Login(ctx context.Context, identifier, password string) (token domain.Token, err error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanLogin)
	defer func() {
		observability.EndSpan(span, err)
		if err != nil {
			s.metrics.RecordAdminLogin("failure")
		} else {
			s.metrics.RecordAdminLogin("success")
		}
	}()
	logger := logging.FromContext(ctx, s.logger)

	if err := s.requireAuth(); err != nil {
		return domain.Token{}, err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return domain.Token{}, domain.ErrUnauthorized
	}

	admin, err := s.store.FindAdminByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Admin login rejected: unknown account %q", identifier)
			return domain.Token{}, domain.ErrUnauthorized
		}
		return domain.Token{}, domain.WrapStorage("find admin", err)
	}
	ok, verr := s.hasher.Verify(password, admin.PasswordHash)
	if verr != nil {
		logger.Error("Admin password verification failed for %q: %v", identifier, verr)
		return domain.Token{}, domain.ErrUnauthorized
	}
	if !ok {
		logger.Warn("Admin login rejected: bad password for %q", identifier)
		return domain.Token{}, domain.ErrUnauthorized
	}

	token, err = s.tokens.Issue(ctx, admin)
	if err != nil {
		return domain.Token{}, fmt.Errorf("issue admin token: %w", err)
	}
	logger.Info("Admin %s logged in", admin.Username)
	return token, nil
}

// VerifyAdmin parses a bearer credential and requires the admin claim.
func (s *Service) VerifyAdmin(ctx context.Context, credential string) (domain.AdminClaims, error) {
	if err := s.requireAuth(); err != nil {
		return domain.AdminClaims{}, err
	}
	claims, err := s.tokens.Parse(ctx, credential)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return domain.AdminClaims{}, err
		}
		return domain.AdminClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !claims.Admin {
		return domain.AdminClaims{}, fmt.Errorf("%w: missing admin claim", domain.ErrUnauthorized)
	}
	return claims, nil
}

// SeedAdmin creates or updates an admin account with a freshly hashed password.
func (s *Service) SeedAdmin(ctx context.Context, username, email, password string) (domain.AdminAccount, error) {
	if err := s.requireAuth(); err != nil {
		return domain.AdminAccount{}, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.AdminAccount{}, domain.NewValidationError("username", "Missing username")
	}
	if password == "" {
		return domain.AdminAccount{}, domain.NewValidationError("password", "Missing password")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.AdminAccount{}, fmt.Errorf("hash admin password: %w", err)
	}

	admin := domain.AdminAccount{
		ID:           id.NewAdminID(),
		Username:     username,
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if existing, err := s.store.FindAdminByIdentifier(ctx, username); err == nil && existing.Username == username {
		admin.ID = existing.ID
		admin.CreatedAt = existing.CreatedAt
	}
	if err := s.store.UpsertAdmin(ctx, admin); err != nil {
		return domain.AdminAccount{}, domain.WrapStorage("upsert admin", err)
	}
	s.logger.Info("Admin account %s seeded", username)
	return admin, nil
}
