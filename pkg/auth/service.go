package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
	"github.com/wafra-app/wafra-backend/pkg/notification"
	"github.com/wafra-app/wafra-backend/pkg/profile"
	"github.com/wafra-app/wafra-backend/pkg/tokengenerator"
	"github.com/wafra-app/wafra-backend/pkg/utils"
)

const (
	resetTokenBytes  = 32
	resetTokenExpiry = 10 * time.Minute
)

// EmailVerifier issues and persists a verification token for a freshly
// registered profile and sends the verification notice.
type EmailVerifier interface {
	SendVerification(ctx context.Context, p profile.Profile) error
}

type AuthService struct {
	repo                profile.Repository
	tokenService        *tokengenerator.TokenService
	emailVerifier       EmailVerifier
	notificationManager *notification.NotificationManager
	resetTokenExpiry    time.Duration
	baseURL             string
}

type Option func(*AuthService)

func WithEmailVerifier(v EmailVerifier) Option {
	return func(s *AuthService) {
		s.emailVerifier = v
	}
}

func WithNotificationManager(m *notification.NotificationManager) Option {
	return func(s *AuthService) {
		s.notificationManager = m
	}
}

func WithResetTokenExpiry(d time.Duration) Option {
	return func(s *AuthService) {
		s.resetTokenExpiry = d
	}
}

// WithBaseURL sets the frontend base URL used in emailed links.
func WithBaseURL(baseURL string) Option {
	return func(s *AuthService) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func NewAuthService(repo profile.Repository, tokenService *tokengenerator.TokenService, opts ...Option) *AuthService {
	s := &AuthService{
		repo:             repo,
		tokenService:     tokenService,
		resetTokenExpiry: resetTokenExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams carries a normalized registration request for any kind.
type RegisterParams struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Kind     profile.Kind
	Location profile.Location
	Business *profile.BusinessInfo
	Family   *profile.FamilyInfo
}

type AuthResult struct {
	Profile profile.PublicProfile
	Session tokengenerator.Session
}

// Register creates a profile of the requested kind, issues an email
// verification token and returns a logged-in session.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (AuthResult, error) {
	params.Name = trimName(params.Name)
	params.Email = utils.NormalizeEmail(params.Email)
	params.Phone = utils.NormalizePhone(params.Phone)

	if fieldErrors := validateRegister(params); fieldErrors != nil {
		return AuthResult{}, apperrors.ValidationFailed(fieldErrors)
	}

	commercialReg := ""
	if params.Business != nil {
		commercialReg = params.Business.CommercialRegistration
	}
	conflict, err := s.repo.FindConflictingField(ctx, params.Email, params.Phone, commercialReg)
	if err != nil {
		return AuthResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to check for existing profiles")
	}
	if conflict != profile.ConflictNone {
		return AuthResult{}, apperrors.DuplicateField(string(conflict))
	}

	passwordHash, err := HashPassword(params.Password)
	if err != nil {
		return AuthResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to hash password")
	}

	now := time.Now().UTC()
	p := profile.Profile{
		ID:           uuid.New(),
		Name:         params.Name,
		Email:        params.Email,
		Phone:        params.Phone,
		Kind:         params.Kind,
		PasswordHash: passwordHash,
		PasswordSet:  true,
		IsActive:     true,
		Location:     params.Location,
		Business:     params.Business,
		Family:       params.Family,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, p); err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeDuplicateField) {
			return AuthResult{}, err
		}
		return AuthResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create profile")
	}

	if s.emailVerifier != nil {
		if err := s.emailVerifier.SendVerification(ctx, p); err != nil {
			// Token persistence failed, roll back the half-created profile.
			if delErr := s.repo.Delete(ctx, p.ID); delErr != nil {
				slog.Error("failed to roll back profile after verification token failure",
					"profileId", p.ID, "err", delErr)
			}
			return AuthResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to issue verification token")
		}
	}

	session, err := s.tokenService.IssueSession(p.ID, string(p.Kind))
	if err != nil {
		return AuthResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to issue session")
	}

	slog.Info("profile registered", "profileId", p.ID, "kind", p.Kind)
	return AuthResult{Profile: p.ToPublic(), Session: session}, nil
}

// Login authenticates by email and password. Bad email and bad password are
// indistinguishable to the caller; deactivated accounts are reported as such
// only after the credentials check out.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, apperrors.InvalidCredentials()
	}

	p, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return AuthResult{}, apperrors.InvalidCredentials()
		}
		return AuthResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to look up profile")
	}

	if !p.PasswordSet {
		return AuthResult{}, apperrors.InvalidCredentials()
	}
	match, err := CheckPasswordHash(password, p.PasswordHash)
	if err != nil || !match {
		return AuthResult{}, apperrors.InvalidCredentials()
	}

	if !p.IsActive {
		return AuthResult{}, apperrors.AccountDeactivated()
	}

	session, err := s.tokenService.IssueSession(p.ID, string(p.Kind))
	if err != nil {
		return AuthResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to issue session")
	}

	slog.Info("profile logged in", "profileId", p.ID)
	return AuthResult{Profile: p.ToPublic(), Session: session}, nil
}

// GetMe returns the public projection of the authenticated profile.
func (s *AuthService) GetMe(ctx context.Context, profileID uuid.UUID) (profile.PublicProfile, error) {
	p, err := s.repo.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return profile.PublicProfile{}, apperrors.New(apperrors.ErrCodeProfileNotFound, "profile not found")
		}
		return profile.PublicProfile{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to look up profile")
	}
	return p.ToPublic(), nil
}

// SetPassword sets the initial password for a federated profile that has none
// yet. Profiles with a password must go through the reset flow instead.
func (s *AuthService) SetPassword(ctx context.Context, profileID uuid.UUID, password string) error {
	if msg := validatePassword(password); msg != "" {
		return apperrors.ValidationFailed(map[string]string{"password": msg})
	}

	p, err := s.repo.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return apperrors.New(apperrors.ErrCodeProfileNotFound, "profile not found")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to look up profile")
	}
	if p.PasswordSet {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "password is already set, use password reset")
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, profileID, passwordHash); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to set password")
	}

	slog.Info("initial password set", "profileId", profileID)
	return nil
}

// InitPasswordReset issues a single-use reset token for the given email and
// mails it. Only the SHA-256 hash of the token is stored.
func (s *AuthService) InitPasswordReset(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)

	p, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return apperrors.New(apperrors.ErrCodeProfileNotFound, "no account with that email")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to look up profile")
	}

	token, err := utils.GenerateRandomToken(resetTokenBytes)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to generate reset token")
	}
	expiresAt := time.Now().UTC().Add(s.resetTokenExpiry)
	if err := s.repo.SetResetToken(ctx, p.ID, utils.HashToken(token), expiresAt); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to store reset token")
	}

	if s.notificationManager != nil {
		err = s.notificationManager.Send(notification.PasswordResetNotice, notification.NotificationData{
			To: p.Email,
			Data: map[string]string{
				"Name":  p.Name,
				"Token": token,
				"Link":  s.baseURL + "/reset-password?token=" + token,
			},
		})
		if err != nil {
			slog.Error("failed to send password reset email", "profileId", p.ID, "err", err)
		}
	}

	slog.Info("password reset initiated", "profileId", p.ID)
	return nil
}

// ResetPassword redeems a reset token. The token is cleared in the same
// operation that writes the new password, so it cannot be replayed. A fresh
// session is returned so the frontend can log the user straight in.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (AuthResult, error) {
	if msg := validatePassword(newPassword); msg != "" {
		return AuthResult{}, apperrors.ValidationFailed(map[string]string{"newPassword": msg})
	}

	// An expired token and an unknown token fail the same way, so a caller
	// cannot probe which one it was.
	p, err := s.repo.FindByResetTokenHash(ctx, utils.HashToken(token))
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return AuthResult{}, apperrors.New(apperrors.ErrCodeTokenInvalid, "invalid or expired token")
		}
		return AuthResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to look up reset token")
	}
	if p.ResetTokenExpiresAt == nil || time.Now().UTC().After(*p.ResetTokenExpiresAt) {
		return AuthResult{}, apperrors.New(apperrors.ErrCodeTokenInvalid, "invalid or expired token")
	}
	if !p.IsActive {
		return AuthResult{}, apperrors.AccountDeactivated()
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return AuthResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to hash password")
	}
	if err := s.repo.RedeemResetToken(ctx, p.ID, passwordHash); err != nil {
		return AuthResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update password")
	}

	session, err := s.tokenService.IssueSession(p.ID, string(p.Kind))
	if err != nil {
		return AuthResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to issue session")
	}

	slog.Info("password reset completed", "profileId", p.ID)
	p.PasswordSet = true
	return AuthResult{Profile: p.ToPublic(), Session: session}, nil
}

func trimName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
