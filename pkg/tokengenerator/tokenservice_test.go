package tokengenerator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
)

func TestIssueAndVerifySession(t *testing.T) {
	generator := NewJwtTokenGenerator("test-secret", "wafra", "wafra-app")
	service := NewTokenService(generator)
	profileID := uuid.New()

	session, err := service.IssueSession(profileID, "shop")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.WithinDuration(t, time.Now().Add(DefaultSessionExpiry), session.ExpiresAt, time.Minute)

	verifiedID, err := service.VerifySession(session.Token)
	require.NoError(t, err)
	assert.Equal(t, profileID, verifiedID)

	t.Run("kind claim rides along", func(t *testing.T) {
		token, err := generator.ParseToken(session.Token)
		require.NoError(t, err)
		claims, ok := token.Claims.(*Claims)
		require.True(t, ok)
		assert.Equal(t, "shop", claims.Kind)
		assert.Equal(t, "wafra", claims.Issuer)
	})
}

func TestVerifySessionFailures(t *testing.T) {
	generator := NewJwtTokenGenerator("test-secret", "wafra", "wafra-app")
	service := NewTokenService(generator)

	t.Run("expired token", func(t *testing.T) {
		shortLived := NewTokenService(generator, WithSessionExpiry(-time.Minute))
		session, err := shortLived.IssueSession(uuid.New(), "customer")
		require.NoError(t, err)

		_, err = service.VerifySession(session.Token)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeTokenExpired, apperrors.GetCode(err))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := service.VerifySession("not.a.jwt")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeTokenInvalid, apperrors.GetCode(err))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewTokenService(NewJwtTokenGenerator("other-secret", "wafra", "wafra-app"))
		session, err := other.IssueSession(uuid.New(), "customer")
		require.NoError(t, err)

		_, err = service.VerifySession(session.Token)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeTokenInvalid, apperrors.GetCode(err))
	})

	t.Run("subject is not a profile id", func(t *testing.T) {
		token, _, err := generator.GenerateToken("not-a-uuid", time.Hour, nil)
		require.NoError(t, err)

		_, err = service.VerifySession(token)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeTokenInvalid, apperrors.GetCode(err))
	})
}
