package tokengenerator

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
)

const DefaultSessionExpiry = 24 * time.Hour

// Session represents an issued session token
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenService issues and verifies stateless session tokens for profiles.
// Logout is a client-side token discard; there is no revocation list.
type TokenService struct {
	generator     TokenGenerator
	sessionExpiry time.Duration
}

// TokenServiceOption is a functional option for configuring TokenService
type TokenServiceOption func(*TokenService)

// WithSessionExpiry sets the session token lifetime
func WithSessionExpiry(expiry time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		s.sessionExpiry = expiry
	}
}

// NewTokenService creates a new TokenService
func NewTokenService(generator TokenGenerator, opts ...TokenServiceOption) *TokenService {
	s := &TokenService{
		generator:     generator,
		sessionExpiry: DefaultSessionExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueSession mints a session token whose subject is the profile id.
// The profile kind rides along as a claim for the role middleware.
func (s *TokenService) IssueSession(profileID uuid.UUID, kind string) (Session, error) {
	token, expiresAt, err := s.generator.GenerateToken(profileID.String(), s.sessionExpiry, map[string]interface{}{
		"kind": kind,
	})
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt}, nil
}

// VerifySession parses a session token and returns the subject profile id.
// Expired tokens are distinguished from malformed or tampered ones.
func (s *TokenService) VerifySession(tokenStr string) (uuid.UUID, error) {
	token, err := s.generator.ParseToken(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, apperrors.New(apperrors.ErrCodeTokenExpired, "session has expired")
		}
		return uuid.Nil, apperrors.Wrap(err, apperrors.ErrCodeTokenInvalid, "invalid session token")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return uuid.Nil, apperrors.New(apperrors.ErrCodeTokenInvalid, "session token has no subject")
	}

	profileID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, apperrors.New(apperrors.ErrCodeTokenInvalid, "session token subject is not a profile id")
	}
	return profileID, nil
}
