package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_IssueAndValidate(t *testing.T) {
	s := NewService("test-secret")

	token, expiresAt, err := s.Issue("tenant-1", "device-a", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "device-a", claims.Subject)
}

func TestService_Validate_Errors(t *testing.T) {
	s := NewService("test-secret")

	expired := NewService("test-secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.Issue("tenant-1", "device-a", time.Hour)
	require.NoError(t, err)

	otherToken, _, err := NewService("other-secret").Issue("tenant-1", "device-a", time.Hour)
	require.NoError(t, err)

	// Токен без tenant_id подписан правильным ключом
	noTenant := gojwt.NewWithClaims(gojwt.SigningMethodHS256, Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Issuer: issuer, Subject: "x"},
	})
	noTenantToken, err := noTenant.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "expired", token: expiredToken},
		{name: "wrong secret", token: otherToken},
		{name: "missing tenant", token: noTenantToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Validate(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, _, err = s.Issue("", "device-a", time.Hour)
	assert.Error(t, err)
}
