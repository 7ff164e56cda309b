package emailverification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
	"github.com/wafra-app/wafra-backend/pkg/notification"
	"github.com/wafra-app/wafra-backend/pkg/profile"
	"github.com/wafra-app/wafra-backend/pkg/utils"
)

const verificationTokenBytes = 32

// EmailVerificationService issues verification tokens and flips profiles to
// verified when a token comes back.
type EmailVerificationService struct {
	repo                profile.Repository
	notificationManager *notification.NotificationManager
	baseURL             string
}

type EmailVerificationServiceOption func(*EmailVerificationService)

// WithNotificationManager sets the manager used to mail verification links.
func WithNotificationManager(nm *notification.NotificationManager) EmailVerificationServiceOption {
	return func(s *EmailVerificationService) {
		s.notificationManager = nm
	}
}

func NewEmailVerificationService(repo profile.Repository, baseURL string, opts ...EmailVerificationServiceOption) *EmailVerificationService {
	service := &EmailVerificationService{
		repo:    repo,
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// SendVerification generates a token, stores it on the profile and mails the
// verification link. Token persistence failures are returned so the caller
// can roll back; email delivery is best effort.
func (s *EmailVerificationService) SendVerification(ctx context.Context, p profile.Profile) error {
	if p.IsVerified {
		return apperrors.New(apperrors.ErrCodeAlreadyVerified, "email is already verified")
	}

	token, err := utils.GenerateRandomToken(verificationTokenBytes)
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}

	if err := s.repo.SetVerificationToken(ctx, p.ID, token); err != nil {
		slog.Error("Failed to store verification token", "profileId", p.ID, "err", err)
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	if err := s.sendVerificationEmail(p.Email, p.Name, token); err != nil {
		slog.Error("Failed to send verification email", "profileId", p.ID, "err", err)
	}

	slog.Info("Verification token created", "profileId", p.ID)
	return nil
}

// VerifyEmail redeems a verification token. The token is cleared when the
// profile is marked verified, so a second redemption reports an invalid token.
func (s *EmailVerificationService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.New(apperrors.ErrCodeTokenInvalid, "verification token is invalid")
	}

	p, err := s.repo.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return apperrors.New(apperrors.ErrCodeTokenInvalid, "verification token is invalid")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to look up verification token")
	}

	if err := s.repo.MarkEmailVerified(ctx, p.ID); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to mark email verified")
	}

	slog.Info("Email verified successfully", "profileId", p.ID)
	return nil
}

// Resend issues a fresh token for an unverified profile, replacing any
// outstanding one.
func (s *EmailVerificationService) Resend(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)

	p, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return apperrors.New(apperrors.ErrCodeProfileNotFound, "no account with that email")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to look up profile")
	}

	return s.SendVerification(ctx, p)
}

func (s *EmailVerificationService) sendVerificationEmail(email, name, token string) error {
	if s.notificationManager == nil {
		slog.Warn("Notification manager not configured, skipping email send")
		return nil
	}

	verificationLink := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, token)
	return s.notificationManager.Send(notification.EmailVerificationNotice, notification.NotificationData{
		To: email,
		Data: map[string]string{
			"Name": name,
			"Link": verificationLink,
		},
	})
}
