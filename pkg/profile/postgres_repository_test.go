package profile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
)

func setupTestDatabase(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	dbName := "wafra_db"
	dbUser := "wafra"
	dbPassword := "pwd"

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("../../migrations", "wafra_db.sql")),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

func testShopProfile() Profile {
	now := time.Now().UTC().Truncate(time.Second)
	return Profile{
		ID:           uuid.New(),
		Name:         "Dates Corner",
		Email:        "shop@example.com",
		Phone:        "+966501234567",
		Kind:         KindShop,
		PasswordHash: "$2a$12$fakehash",
		PasswordSet:  true,
		IsActive:     true,
		Location: Location{
			City:        "Riyadh",
			District:    "Al Olaya",
			Coordinates: &Coordinates{Lat: 24.7136, Lon: 46.6753},
		},
		Business: &BusinessInfo{
			BusinessName:           "Dates Corner",
			CommercialRegistration: "1010101010",
			BusinessType:           "retail",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgresRepository_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPostgresRepository(pool)
	p := testShopProfile()

	require.NoError(t, repo.Insert(ctx, p))

	t.Run("FindByID", func(t *testing.T) {
		got, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Email, got.Email)
		assert.Equal(t, KindShop, got.Kind)
		require.NotNil(t, got.Business)
		assert.Equal(t, "1010101010", got.Business.CommercialRegistration)
		require.NotNil(t, got.Location.Coordinates)
		assert.InDelta(t, 24.7136, got.Location.Coordinates.Lat, 0.0001)
	})

	t.Run("FindByEmailCaseInsensitive", func(t *testing.T) {
		got, err := repo.FindByEmail(ctx, "SHOP@example.com")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
	})

	t.Run("FindByIDNotFound", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresRepository_UniqueViolations(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPostgresRepository(pool)
	p := testShopProfile()
	require.NoError(t, repo.Insert(ctx, p))

	t.Run("DuplicateEmail", func(t *testing.T) {
		dup := testShopProfile()
		dup.ID = uuid.New()
		dup.Phone = "+966501111111"
		dup.Business.CommercialRegistration = "2020202020"

		err := repo.Insert(ctx, dup)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDuplicateField))
		assert.Equal(t, "email", apperrors.GetDetails(err)["field"])
	})

	t.Run("DuplicatePhone", func(t *testing.T) {
		dup := testShopProfile()
		dup.ID = uuid.New()
		dup.Email = "other@example.com"
		dup.Business.CommercialRegistration = "3030303030"

		err := repo.Insert(ctx, dup)
		require.Error(t, err)
		assert.Equal(t, "phone", apperrors.GetDetails(err)["field"])
	})

	t.Run("DuplicateCommercialRegistration", func(t *testing.T) {
		dup := testShopProfile()
		dup.ID = uuid.New()
		dup.Email = "another@example.com"
		dup.Phone = "+966502222222"

		err := repo.Insert(ctx, dup)
		require.Error(t, err)
		assert.Equal(t, "commercialRegistration", apperrors.GetDetails(err)["field"])
	})

	t.Run("FindConflictingField", func(t *testing.T) {
		field, err := repo.FindConflictingField(ctx, "shop@example.com", "+966509999999", "")
		require.NoError(t, err)
		assert.Equal(t, ConflictEmail, field)

		field, err = repo.FindConflictingField(ctx, "nobody@example.com", "+966509999999", "")
		require.NoError(t, err)
		assert.Equal(t, ConflictNone, field)
	})
}

func TestPostgresRepository_TokenLifecycle(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPostgresRepository(pool)
	p := testShopProfile()
	require.NoError(t, repo.Insert(ctx, p))

	t.Run("VerificationToken", func(t *testing.T) {
		require.NoError(t, repo.SetVerificationToken(ctx, p.ID, "tok-123"))

		got, err := repo.FindByVerificationToken(ctx, "tok-123")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)

		require.NoError(t, repo.MarkEmailVerified(ctx, p.ID))

		got, err = repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.IsVerified)
		assert.Empty(t, got.VerificationToken)

		_, err = repo.FindByVerificationToken(ctx, "tok-123")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ResetTokenRedemption", func(t *testing.T) {
		expiresAt := time.Now().UTC().Add(10 * time.Minute)
		require.NoError(t, repo.SetResetToken(ctx, p.ID, "hash-abc", expiresAt))

		got, err := repo.FindByResetTokenHash(ctx, "hash-abc")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)

		require.NoError(t, repo.RedeemResetToken(ctx, p.ID, "$2a$12$newhash"))

		got, err = repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "$2a$12$newhash", got.PasswordHash)
		assert.True(t, got.PasswordSet)
		assert.Empty(t, got.ResetTokenHash)
		assert.Nil(t, got.ResetTokenExpiresAt)

		// Cleared on redemption, a second lookup fails.
		_, err = repo.FindByResetTokenHash(ctx, "hash-abc")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("NafathVerification", func(t *testing.T) {
		require.NoError(t, repo.MarkNafathVerified(ctx, p.ID, "1012345678"))

		got, err := repo.FindByNafathID(ctx, "1012345678")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.True(t, got.IsIdentityVerified)
		assert.True(t, got.IsVerified)
	})
}

func TestPostgresRepository_Updates(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPostgresRepository(pool)
	p := testShopProfile()
	require.NoError(t, repo.Insert(ctx, p))

	t.Run("UpdateContact", func(t *testing.T) {
		loc := Location{City: "Jeddah", District: "Al Balad"}
		require.NoError(t, repo.UpdateContact(ctx, p.ID, "New Name", "+966503333333", loc))

		got, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "New Name", got.Name)
		assert.Equal(t, "+966503333333", got.Phone)
		assert.Equal(t, "Jeddah", got.Location.City)
		assert.Nil(t, got.Location.Coordinates)
	})

	t.Run("SetActive", func(t *testing.T) {
		require.NoError(t, repo.SetActive(ctx, p.ID, false))

		got, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, p.ID))
		_, err := repo.FindByID(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
