package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors for profile repositories
var (
	ErrNotFound = errors.New("profile not found")
)

// ConflictField names which unique field an insert collided on
type ConflictField string

const (
	ConflictNone                   ConflictField = ""
	ConflictEmail                  ConflictField = "email"
	ConflictPhone                  ConflictField = "phone"
	ConflictCommercialRegistration ConflictField = "commercialRegistration"
	ConflictNafathID               ConflictField = "nafathId"
)

// Repository is the profile store. A single instance is constructed at
// process start and passed into every flow; there is no ambient global.
//
// The store enforces the uniqueness of email, phone, commercial registration
// number and nafath id. Concurrent check-then-insert races are resolved by
// the store rejecting the duplicate insert, surfaced as a conflict.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (Profile, error)
	FindByEmail(ctx context.Context, email string) (Profile, error)
	FindByVerificationToken(ctx context.Context, token string) (Profile, error)
	FindByResetTokenHash(ctx context.Context, tokenHash string) (Profile, error)
	FindByNafathID(ctx context.Context, nafathID string) (Profile, error)

	// FindConflictingField checks email, phone and commercial registration
	// uniqueness in one query. commercialReg may be empty.
	FindConflictingField(ctx context.Context, email, phone, commercialReg string) (ConflictField, error)

	Insert(ctx context.Context, p Profile) error

	// Delete removes a profile outright. Used only as rollback compensation
	// for partially created registrations; account removal elsewhere is a
	// deactivation.
	Delete(ctx context.Context, id uuid.UUID) error

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetVerificationToken(ctx context.Context, id uuid.UUID, token string) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error

	// RedeemResetToken sets the new password hash and clears both reset
	// token fields in one operation.
	RedeemResetToken(ctx context.Context, id uuid.UUID, passwordHash string) error

	// MarkNafathVerified links the nafath id and sets both verification
	// flags. Idempotent.
	MarkNafathVerified(ctx context.Context, id uuid.UUID, nafathID string) error

	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateContact(ctx context.Context, id uuid.UUID, name, phone string, location Location) error
	UpdateBusinessInfo(ctx context.Context, id uuid.UUID, info BusinessInfo) error
	UpdateFamilyInfo(ctx context.Context, id uuid.UUID, info FamilyInfo) error
}
