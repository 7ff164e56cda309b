package nafath

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
	"github.com/wafra-app/wafra-backend/pkg/profile"
	"github.com/wafra-app/wafra-backend/pkg/tokengenerator"
)

func newTestService(t *testing.T, client Client) (*NafathService, *profile.InMemoryRepository, *TransactionRepository) {
	t.Helper()
	repo := profile.NewInMemoryRepository()
	transactions := NewTransactionRepository()
	tokenService := tokengenerator.NewTokenService(
		tokengenerator.NewJwtTokenGenerator("test-secret", "wafra", "wafra-app"),
	)
	svc := NewNafathService(repo, transactions, client, tokenService,
		WithBaseURL("http://localhost:4000"))
	return svc, repo, transactions
}

func testUserData() UserData {
	return UserData{
		Name:  "Khalid Alotaibi",
		Email: "khalid@example.com",
		Phone: "+966501234567",
		City:  "Jeddah",
	}
}

func TestInitiate(t *testing.T) {
	ctx := context.Background()

	t.Run("starts a pending transaction", func(t *testing.T) {
		client := &MockClient{}
		svc, _, transactions := newTestService(t, client)

		result, err := svc.Initiate(ctx, "1012345678", "tx-1")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, result.Status)
		assert.Equal(t, "42", result.Random)
		assert.Equal(t, "http://localhost:4000/api/auth/nafath/callback", result.RedirectURL)
		assert.Len(t, client.Requests, 1)

		tx, err := transactions.Get("1012345678")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, tx.Status)
		assert.Equal(t, "tx-1", tx.TransactionID)
		assert.True(t, tx.ExpiresAt.After(tx.CreatedAt))
	})

	t.Run("missing fields", func(t *testing.T) {
		svc, _, _ := newTestService(t, &MockClient{})

		_, err := svc.Initiate(ctx, "", "")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.GetCode(err))
		fields := apperrors.GetDetails(err)["fields"].(map[string]interface{})
		assert.Contains(t, fields, "nafathId")
		assert.Contains(t, fields, "transactionId")
	})

	t.Run("provider outage", func(t *testing.T) {
		svc, _, transactions := newTestService(t, &MockClient{Fail: true})

		_, err := svc.Initiate(ctx, "1012345678", "tx-1")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeExternalService, apperrors.GetCode(err))

		_, err = transactions.Get("1012345678")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected identity touches no profile", func(t *testing.T) {
		svc, repo, transactions := newTestService(t, &MockClient{})
		_, err := svc.Initiate(ctx, "1012345678", "tx-1")
		require.NoError(t, err)

		_, err = svc.Callback(ctx, "1012345678", false, testUserData())
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeIdentityRejected, apperrors.GetCode(err))

		tx, err := transactions.Get("1012345678")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, tx.Status)

		_, err = repo.FindByNafathID(ctx, "1012345678")
		assert.ErrorIs(t, err, profile.ErrNotFound)
		_, err = repo.FindByEmail(ctx, "khalid@example.com")
		assert.ErrorIs(t, err, profile.ErrNotFound)
	})

	t.Run("verified identity creates a customer profile", func(t *testing.T) {
		svc, repo, transactions := newTestService(t, &MockClient{})
		_, err := svc.Initiate(ctx, "1012345678", "tx-1")
		require.NoError(t, err)

		result, err := svc.Callback(ctx, "1012345678", true, testUserData())
		require.NoError(t, err)
		assert.Equal(t, profile.KindCustomer, result.Profile.Kind)
		assert.Equal(t, "Khalid Alotaibi", result.Profile.Name)
		assert.Equal(t, "Jeddah", result.Profile.Location.City)
		assert.True(t, result.Profile.IsVerified)
		assert.True(t, result.Profile.IsIdentityVerified)
		assert.NotEmpty(t, result.Session.Token)

		stored, err := repo.FindByNafathID(ctx, "1012345678")
		require.NoError(t, err)
		assert.False(t, stored.PasswordSet, "federated profile starts without a password")
		assert.Empty(t, stored.PasswordHash)

		tx, err := transactions.Get("1012345678")
		require.NoError(t, err)
		assert.Equal(t, StatusVerified, tx.Status)
	})

	t.Run("missing city falls back to default", func(t *testing.T) {
		svc, repo, _ := newTestService(t, &MockClient{})
		userData := testUserData()
		userData.City = ""

		_, err := svc.Callback(ctx, "1012345678", true, userData)
		require.NoError(t, err)

		stored, err := repo.FindByNafathID(ctx, "1012345678")
		require.NoError(t, err)
		assert.Equal(t, "Riyadh", stored.Location.City)
	})

	t.Run("repeat callback reuses the profile", func(t *testing.T) {
		svc, repo, _ := newTestService(t, &MockClient{})

		first, err := svc.Callback(ctx, "1012345678", true, testUserData())
		require.NoError(t, err)
		second, err := svc.Callback(ctx, "1012345678", true, testUserData())
		require.NoError(t, err)
		assert.Equal(t, first.Profile.ID, second.Profile.ID)

		// Still exactly one profile behind the email.
		stored, err := repo.FindByEmail(ctx, "khalid@example.com")
		require.NoError(t, err)
		assert.Equal(t, first.Profile.ID, stored.ID)
	})

	t.Run("existing profile gets identity verified", func(t *testing.T) {
		svc, repo, _ := newTestService(t, &MockClient{})

		registered := profile.Profile{
			ID:          uuid.New(),
			Name:        "Khalid Alotaibi",
			Email:       "khalid@example.com",
			Phone:       "+966501234567",
			Kind:        profile.KindCustomer,
			PasswordSet: true,
			IsActive:    true,
			Location:    profile.Location{City: "Jeddah"},
		}
		require.NoError(t, repo.Insert(ctx, registered))
		require.NoError(t, repo.MarkNafathVerified(ctx, registered.ID, "1012345678"))

		result, err := svc.Callback(ctx, "1012345678", true, testUserData())
		require.NoError(t, err)
		assert.Equal(t, registered.ID, result.Profile.ID)
		assert.True(t, result.Profile.IsIdentityVerified)
	})

	t.Run("deactivated profile gets no session", func(t *testing.T) {
		svc, repo, _ := newTestService(t, &MockClient{})

		registered := profile.Profile{
			ID:          uuid.New(),
			Name:        "Khalid Alotaibi",
			Email:       "khalid@example.com",
			Phone:       "+966501234567",
			Kind:        profile.KindCustomer,
			PasswordSet: true,
			IsActive:    true,
			Location:    profile.Location{City: "Jeddah"},
		}
		require.NoError(t, repo.Insert(ctx, registered))
		require.NoError(t, repo.MarkNafathVerified(ctx, registered.ID, "1012345678"))
		require.NoError(t, repo.SetActive(ctx, registered.ID, false))

		result, err := svc.Callback(ctx, "1012345678", true, testUserData())
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeAccountDeactivated, apperrors.GetCode(err))
		assert.Empty(t, result.Session.Token)
	})

	t.Run("callback without a known transaction still verifies", func(t *testing.T) {
		svc, repo, _ := newTestService(t, &MockClient{})

		result, err := svc.Callback(ctx, "1012345678", true, testUserData())
		require.NoError(t, err)

		stored, err := repo.FindByNafathID(ctx, "1012345678")
		require.NoError(t, err)
		assert.Equal(t, result.Profile.ID, stored.ID)
	})

	t.Run("missing nafath id", func(t *testing.T) {
		svc, _, _ := newTestService(t, &MockClient{})

		_, err := svc.Callback(ctx, "", true, testUserData())
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.GetCode(err))
	})
}

func TestTransactionRepository_PurgeExpired(t *testing.T) {
	repo := NewTransactionRepository()
	now := time.Now().UTC()

	repo.Put(Transaction{NafathID: "1", Status: StatusPending, ExpiresAt: now.Add(-time.Minute)})
	repo.Put(Transaction{NafathID: "2", Status: StatusPending, ExpiresAt: now.Add(time.Minute)})

	removed := repo.PurgeExpired(now)
	assert.Equal(t, 1, removed)

	_, err := repo.Get("1")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	_, err = repo.Get("2")
	assert.NoError(t, err)
}
