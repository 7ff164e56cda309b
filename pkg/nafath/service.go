package nafath

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
	"github.com/wafra-app/wafra-backend/pkg/notification"
	"github.com/wafra-app/wafra-backend/pkg/profile"
	"github.com/wafra-app/wafra-backend/pkg/tokengenerator"
	"github.com/wafra-app/wafra-backend/pkg/utils"
)

const (
	defaultCity              = "Riyadh"
	defaultTransactionExpiry = 10 * time.Minute
)

// NafathService runs the identity-federation state machine:
// initiated -> pending -> verified | failed.
type NafathService struct {
	repo                profile.Repository
	transactions        *TransactionRepository
	client              Client
	tokenService        *tokengenerator.TokenService
	notificationManager *notification.NotificationManager
	baseURL             string
	transactionExpiry   time.Duration
}

type Option func(*NafathService)

func WithNotificationManager(nm *notification.NotificationManager) Option {
	return func(s *NafathService) {
		s.notificationManager = nm
	}
}

func WithBaseURL(baseURL string) Option {
	return func(s *NafathService) {
		s.baseURL = baseURL
	}
}

func WithTransactionExpiry(d time.Duration) Option {
	return func(s *NafathService) {
		s.transactionExpiry = d
	}
}

func NewNafathService(
	repo profile.Repository,
	transactions *TransactionRepository,
	client Client,
	tokenService *tokengenerator.TokenService,
	opts ...Option,
) *NafathService {
	s := &NafathService{
		repo:              repo,
		transactions:      transactions,
		client:            client,
		tokenService:      tokenService,
		transactionExpiry: defaultTransactionExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitiateResult is handed back to the app so it can poll and tell the user
// which random number to confirm on their Nafath device.
type InitiateResult struct {
	Status      TransactionStatus `json:"status"`
	Random      string            `json:"random,omitempty"`
	RedirectURL string            `json:"redirectUrl"`
}

// UserData is the identity payload Nafath delivers on a verified callback.
type UserData struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	City  string `json:"city"`
}

// Result is a verified-identity login: the profile plus a fresh session.
type Result struct {
	Profile profile.PublicProfile
	Session tokengenerator.Session
}

// Initiate starts a verification for the given national ID. No profile is
// touched here; the transaction waits for the provider callback.
func (s *NafathService) Initiate(ctx context.Context, nafathID, transactionID string) (InitiateResult, error) {
	fieldErrors := make(map[string]string)
	if nafathID == "" {
		fieldErrors["nafathId"] = "nafathId is required"
	}
	if transactionID == "" {
		fieldErrors["transactionId"] = "transactionId is required"
	}
	if len(fieldErrors) > 0 {
		return InitiateResult{}, apperrors.ValidationFailed(fieldErrors)
	}

	vr, err := s.client.RequestVerification(ctx, nafathID, transactionID)
	if err != nil {
		return InitiateResult{}, apperrors.ExternalService(err, "nafath")
	}

	now := time.Now().UTC()
	s.transactions.Put(Transaction{
		NafathID:      nafathID,
		TransactionID: transactionID,
		Status:        StatusPending,
		Random:        vr.Random,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.transactionExpiry),
	})

	// Known identity or first-time federation, informational only.
	if _, err := s.repo.FindByNafathID(ctx, nafathID); err == nil {
		slog.Info("nafath verification initiated for existing profile", "transactionId", transactionID)
	} else if errors.Is(err, profile.ErrNotFound) {
		slog.Info("nafath verification initiated for new identity", "transactionId", transactionID)
	}

	return InitiateResult{
		Status:      StatusPending,
		Random:      vr.Random,
		RedirectURL: fmt.Sprintf("%s/api/auth/nafath/callback", s.baseURL),
	}, nil
}

// Callback finishes a verification. A rejected check marks the transaction
// failed and mutates nothing. A verified check either marks the existing
// profile identity-verified or creates a fresh customer profile, then logs
// the user in.
func (s *NafathService) Callback(ctx context.Context, nafathID string, verified bool, userData UserData) (Result, error) {
	if nafathID == "" {
		return Result{}, apperrors.ValidationFailed(map[string]string{"nafathId": "nafathId is required"})
	}

	tx, err := s.transactions.Get(nafathID)
	if err != nil {
		// The store is in-memory, a restart between initiate and callback
		// loses the transaction. Proceed on the provider's word.
		slog.Warn("nafath callback without known transaction", "verified", verified)
	}

	if !verified {
		if err == nil {
			tx.Status = StatusFailed
			s.transactions.Put(tx)
		}
		return Result{}, apperrors.New(apperrors.ErrCodeIdentityRejected, "identity verification was rejected")
	}

	p, err := s.repo.FindByNafathID(ctx, nafathID)
	switch {
	case err == nil:
		if !p.IsActive {
			return Result{}, apperrors.AccountDeactivated()
		}
		if err := s.repo.MarkNafathVerified(ctx, p.ID, nafathID); err != nil {
			return Result{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to mark identity verified")
		}
		p.IsIdentityVerified = true
		p.IsVerified = true
	case errors.Is(err, profile.ErrNotFound):
		p, err = s.createFederatedProfile(ctx, nafathID, userData)
		if err != nil {
			if stErr := s.transactions.SetStatus(nafathID, StatusFailed); stErr != nil {
				slog.Warn("failed to mark nafath transaction failed", "err", stErr)
			}
			return Result{}, err
		}
	default:
		return Result{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to look up profile")
	}

	if err := s.transactions.SetStatus(nafathID, StatusVerified); err != nil {
		slog.Warn("failed to mark nafath transaction verified", "err", err)
	}

	session, err := s.tokenService.IssueSession(p.ID, string(p.Kind))
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to issue session")
	}

	slog.Info("nafath verification completed", "profileId", p.ID)
	return Result{Profile: p.ToPublic(), Session: session}, nil
}

// createFederatedProfile builds a customer profile from the identity payload.
// No password is set; the user must claim one explicitly before password
// login works.
func (s *NafathService) createFederatedProfile(ctx context.Context, nafathID string, userData UserData) (profile.Profile, error) {
	city := userData.City
	if city == "" {
		city = defaultCity
	}

	now := time.Now().UTC()
	p := profile.Profile{
		ID:                 uuid.New(),
		Name:               userData.Name,
		Email:              utils.NormalizeEmail(userData.Email),
		Phone:              utils.NormalizePhone(userData.Phone),
		Kind:               profile.KindCustomer,
		PasswordSet:        false,
		IsActive:           true,
		IsVerified:         true,
		IsIdentityVerified: true,
		NafathID:           nafathID,
		Location:           profile.Location{City: city},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Insert(ctx, p); err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeDuplicateField) {
			return profile.Profile{}, err
		}
		return profile.Profile{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create federated profile")
	}

	if s.notificationManager != nil && p.Email != "" {
		err := s.notificationManager.Send(notification.IdentityVerifiedNotice, notification.NotificationData{
			To:   p.Email,
			Data: map[string]string{"Name": p.Name},
		})
		if err != nil {
			slog.Error("failed to send identity verified email", "profileId", p.ID, "err", err)
		}
	}

	slog.Info("federated customer profile created", "profileId", p.ID)
	return p, nil
}
