package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"securequiz/internal/quiz/domain"
	"securequiz/internal/quiz/ports"
)

// JWTTokenManager issues HS256 admin tokens carrying admin=true.
type JWTTokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

var _ ports.TokenManager = (*JWTTokenManager)(nil)

// NewJWTTokenManager creates a token manager. A zero ttl defaults to 24h.
func NewJWTTokenManager(secret, issuer string, ttl time.Duration) *JWTTokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTTokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

type adminTokenClaims struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Issue implements ports.TokenManager.
func (m *JWTTokenManager) Issue(_ context.Context, admin domain.AdminAccount) (domain.Token, error) {
	if len(m.secret) == 0 {
		return domain.Token{}, errors.New("jwt secret not configured")
	}
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := adminTokenClaims{
		Username: admin.Username,
		Admin:    true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return domain.Token{}, fmt.Errorf("sign admin token: %w", err)
	}
	return domain.Token{Value: signed, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

// Parse implements ports.TokenManager. Every failure unwraps to domain.ErrUnauthorized.
func (m *JWTTokenManager) Parse(_ context.Context, token string) (domain.AdminClaims, error) {
	if token == "" || len(m.secret) == 0 {
		return domain.AdminClaims{}, domain.ErrUnauthorized
	}
	var claims adminTokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return domain.AdminClaims{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if m.issuer != "" && claims.Issuer != m.issuer {
		return domain.AdminClaims{}, fmt.Errorf("%w: unexpected issuer", domain.ErrUnauthorized)
	}
	out := domain.AdminClaims{
		Subject:  claims.Subject,
		Username: claims.Username,
		Admin:    claims.Admin,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}
