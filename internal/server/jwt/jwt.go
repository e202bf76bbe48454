// Package jwt выпускает и проверяет bearer токены доступа.
// Токен несет tenant_id (область видимости лога и сущностей) и subject (устройство или оператор).
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

const issuer = "fieldsync"

// ErrInvalidToken токен не прошел проверку
var ErrInvalidToken = errors.New("invalid token")

// Claims represents JWT claims
type Claims struct {
	TenantID string `json:"tenant_id"`
	gojwt.RegisteredClaims
}

// Service provides JWT token generation and validation
type Service struct {
	now    func() time.Time
	secret []byte
}

// NewService creates a new JWT service
// secret should be a cryptographically secure random string
func NewService(secret string) *Service {
	return &Service{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue создает токен для тенанта и субъекта со сроком жизни ttl
func (s *Service) Issue(tenantID, subject string, ttl time.Duration) (string, time.Time, error) {
	if tenantID == "" {
		return "", time.Time{}, fmt.Errorf("tenant id is required")
	}

	now := s.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		TenantID: tenantID,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: gojwt.NewNumericDate(expiresAt),
			IssuedAt:  gojwt.NewNumericDate(now),
			NotBefore: gojwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate валидирует и парсит токен доступа
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := gojwt.ParseWithClaims(tokenString, &Claims{}, func(token *gojwt.Token) (any, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, gojwt.WithIssuer(issuer), gojwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TenantID == "" {
		return nil, fmt.Errorf("%w: missing tenant_id", ErrInvalidToken)
	}

	return claims, nil
}
