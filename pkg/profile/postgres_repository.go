package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
)

const profileColumns = `
	id, name, email, phone, kind,
	password_hash, password_set,
	is_active, is_verified, is_identity_verified,
	verification_token, reset_token_hash, reset_token_expires_at,
	city, district, lat, lon,
	business_name, commercial_registration, business_type, business_description,
	family_size, specialties, years_of_experience,
	nafath_id, created_at, updated_at`

// PostgresRepository implements Repository backed by a pgx connection pool
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new Postgres-backed profile repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var (
		p                   Profile
		passwordHash        sql.NullString
		verificationToken   sql.NullString
		resetTokenHash      sql.NullString
		resetTokenExpiresAt *time.Time
		district            sql.NullString
		lat, lon            *float64
		businessName        sql.NullString
		commercialReg       sql.NullString
		businessType        sql.NullString
		businessDesc        sql.NullString
		familySize          *int32
		specialties         []string
		yearsOfExperience   *int32
		nafathID            sql.NullString
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.Kind,
		&passwordHash, &p.PasswordSet,
		&p.IsActive, &p.IsVerified, &p.IsIdentityVerified,
		&verificationToken, &resetTokenHash, &resetTokenExpiresAt,
		&p.Location.City, &district, &lat, &lon,
		&businessName, &commercialReg, &businessType, &businessDesc,
		&familySize, &specialties, &yearsOfExperience,
		&nafathID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}

	p.PasswordHash = passwordHash.String
	p.VerificationToken = verificationToken.String
	p.ResetTokenHash = resetTokenHash.String
	p.ResetTokenExpiresAt = resetTokenExpiresAt
	p.Location.District = district.String
	if lat != nil && lon != nil {
		p.Location.Coordinates = &Coordinates{Lat: *lat, Lon: *lon}
	}
	p.NafathID = nafathID.String

	if businessName.Valid || commercialReg.Valid {
		p.Business = &BusinessInfo{
			BusinessName:           businessName.String,
			CommercialRegistration: commercialReg.String,
			BusinessType:           businessType.String,
			Description:            businessDesc.String,
		}
	}
	if familySize != nil {
		fi := &FamilyInfo{FamilySize: int(*familySize)}
		for _, s := range specialties {
			fi.Specialties = append(fi.Specialties, Specialty(s))
		}
		if yearsOfExperience != nil {
			fi.YearsOfExperience = int(*yearsOfExperience)
		}
		p.Family = fi
	}

	return p, nil
}

func (r *PostgresRepository) findBy(ctx context.Context, where string, arg any) (Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` + where
	return scanProfile(r.db.QueryRow(ctx, query, arg))
}

// FindByID retrieves a profile by id
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	return r.findBy(ctx, `id = $1`, id)
}

// FindByEmail retrieves a profile by email, case-insensitively
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Profile, error) {
	return r.findBy(ctx, `lower(email) = lower($1)`, email)
}

// FindByVerificationToken retrieves the profile holding exactly this token
func (r *PostgresRepository) FindByVerificationToken(ctx context.Context, token string) (Profile, error) {
	return r.findBy(ctx, `verification_token = $1`, token)
}

// FindByResetTokenHash retrieves the profile whose stored reset token hash matches
func (r *PostgresRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (Profile, error) {
	return r.findBy(ctx, `reset_token_hash = $1`, tokenHash)
}

// FindByNafathID retrieves the profile linked to a nafath identity
func (r *PostgresRepository) FindByNafathID(ctx context.Context, nafathID string) (Profile, error) {
	return r.findBy(ctx, `nafath_id = $1`, nafathID)
}

// FindConflictingField checks email, phone and commercial registration
// uniqueness in a single query and names the first conflicting field.
func (r *PostgresRepository) FindConflictingField(ctx context.Context, email, phone, commercialReg string) (ConflictField, error) {
	query := `
		SELECT
			bool_or(lower(email) = lower($1)) AS email_taken,
			bool_or(phone = $2) AS phone_taken,
			bool_or($3 <> '' AND commercial_registration = $3) AS reg_taken
		FROM profiles
		WHERE lower(email) = lower($1)
		   OR phone = $2
		   OR ($3 <> '' AND commercial_registration = $3)
	`

	var emailTaken, phoneTaken, regTaken sql.NullBool
	err := r.db.QueryRow(ctx, query, email, phone, commercialReg).Scan(&emailTaken, &phoneTaken, &regTaken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ConflictNone, nil
		}
		return ConflictNone, err
	}

	switch {
	case emailTaken.Valid && emailTaken.Bool:
		return ConflictEmail, nil
	case phoneTaken.Valid && phoneTaken.Bool:
		return ConflictPhone, nil
	case regTaken.Valid && regTaken.Bool:
		return ConflictCommercialRegistration, nil
	}
	return ConflictNone, nil
}

// Insert stores a new profile. Unique-index violations from concurrent
// registrations come back as the same conflict error the pre-check yields.
func (r *PostgresRepository) Insert(ctx context.Context, p Profile) error {
	query := `
		INSERT INTO profiles (
			id, name, email, phone, kind,
			password_hash, password_set,
			is_active, is_verified, is_identity_verified,
			verification_token,
			city, district, lat, lon,
			business_name, commercial_registration, business_type, business_description,
			family_size, specialties, years_of_experience,
			nafath_id, created_at, updated_at
		) VALUES (
			$1, $2, lower($3), $4, $5,
			NULLIF($6, ''), $7,
			$8, $9, $10,
			NULLIF($11, ''),
			$12, NULLIF($13, ''), $14, $15,
			$16, $17, $18, $19,
			$20, $21, $22,
			NULLIF($23, ''), $24, $25
		)
	`

	var lat, lon *float64
	if p.Location.Coordinates != nil {
		lat = &p.Location.Coordinates.Lat
		lon = &p.Location.Coordinates.Lon
	}

	var businessName, commercialReg, businessType, businessDesc *string
	if p.Business != nil {
		businessName = nullable(p.Business.BusinessName)
		commercialReg = nullable(p.Business.CommercialRegistration)
		businessType = nullable(p.Business.BusinessType)
		businessDesc = nullable(p.Business.Description)
	}

	var familySize, yearsOfExperience *int32
	var specialties []string
	if p.Family != nil {
		fs := int32(p.Family.FamilySize)
		familySize = &fs
		if p.Family.YearsOfExperience > 0 {
			ye := int32(p.Family.YearsOfExperience)
			yearsOfExperience = &ye
		}
		for _, s := range p.Family.Specialties {
			specialties = append(specialties, string(s))
		}
	}

	_, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Email, p.Phone, p.Kind,
		p.PasswordHash, p.PasswordSet,
		p.IsActive, p.IsVerified, p.IsIdentityVerified,
		p.VerificationToken,
		p.Location.City, p.Location.District, lat, lon,
		businessName, commercialReg, businessType, businessDesc,
		familySize, specialties, yearsOfExperience,
		p.NafathID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

// Delete removes a profile row
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword sets a new password hash and enables password login
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.exec(ctx, `
		UPDATE profiles
		SET password_hash = $2, password_set = TRUE, updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
	`, id, passwordHash)
}

// SetVerificationToken stores a fresh email verification token
func (r *PostgresRepository) SetVerificationToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.exec(ctx, `
		UPDATE profiles
		SET verification_token = $2, updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
	`, id, token)
}

// MarkEmailVerified flips the verified flag and clears the token
func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `
		UPDATE profiles
		SET is_verified = TRUE, verification_token = NULL, updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
	`, id)
}

// SetResetToken stores the reset token hash and its expiry together
func (r *PostgresRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return r.exec(ctx, `
		UPDATE profiles
		SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
	`, id, tokenHash, expiresAt)
}

// RedeemResetToken updates the password and clears both reset fields in one
// statement, which makes the token single-use.
func (r *PostgresRepository) RedeemResetToken(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.exec(ctx, `
		UPDATE profiles
		SET password_hash = $2, password_set = TRUE,
		    reset_token_hash = NULL, reset_token_expires_at = NULL,
		    updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
	`, id, passwordHash)
}

// MarkNafathVerified links the nafath identity and sets both flags
func (r *PostgresRepository) MarkNafathVerified(ctx context.Context, id uuid.UUID, nafathID string) error {
	return r.exec(ctx, `
		UPDATE profiles
		SET nafath_id = $2, is_identity_verified = TRUE, is_verified = TRUE,
		    updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
	`, id, nafathID)
}

// SetActive toggles the account-active flag
func (r *PostgresRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.exec(ctx, `
		UPDATE profiles
		SET is_active = $2, updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
	`, id, active)
}

// UpdateContact updates name, phone and location
func (r *PostgresRepository) UpdateContact(ctx context.Context, id uuid.UUID, name, phone string, location Location) error {
	var lat, lon *float64
	if location.Coordinates != nil {
		lat = &location.Coordinates.Lat
		lon = &location.Coordinates.Lon
	}
	return r.exec(ctx, `
		UPDATE profiles
		SET name = $2, phone = $3, city = $4, district = NULLIF($5, ''), lat = $6, lon = $7,
		    updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
	`, id, name, phone, location.City, location.District, lat, lon)
}

// UpdateBusinessInfo updates the business attribute group
func (r *PostgresRepository) UpdateBusinessInfo(ctx context.Context, id uuid.UUID, info BusinessInfo) error {
	return r.exec(ctx, `
		UPDATE profiles
		SET business_name = NULLIF($2, ''), commercial_registration = NULLIF($3, ''),
		    business_type = NULLIF($4, ''), business_description = NULLIF($5, ''),
		    updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
	`, id, info.BusinessName, info.CommercialRegistration, info.BusinessType, info.Description)
}

// UpdateFamilyInfo updates the family attribute group
func (r *PostgresRepository) UpdateFamilyInfo(ctx context.Context, id uuid.UUID, info FamilyInfo) error {
	var specialties []string
	for _, s := range info.Specialties {
		specialties = append(specialties, string(s))
	}
	var years *int32
	if info.YearsOfExperience > 0 {
		y := int32(info.YearsOfExperience)
		years = &y
	}
	return r.exec(ctx, `
		UPDATE profiles
		SET family_size = $2, specialties = $3, years_of_experience = $4,
		    updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE id = $1
	`, id, int32(info.FamilySize), specialties, years)
}

// mapUniqueViolation turns a 23505 unique violation into a conflict error
// naming the field from the constraint name.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}

	switch pgErr.ConstraintName {
	case "profiles_email_key":
		return apperrors.DuplicateField(string(ConflictEmail))
	case "profiles_phone_key":
		return apperrors.DuplicateField(string(ConflictPhone))
	case "profiles_commercial_registration_key":
		return apperrors.DuplicateField(string(ConflictCommercialRegistration))
	case "profiles_nafath_id_key":
		return apperrors.DuplicateField(string(ConflictNafathID))
	default:
		return apperrors.DuplicateField("profile")
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
