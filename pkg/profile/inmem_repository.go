package profile

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
)

// InMemoryRepository implements Repository using in-memory storage. It
// enforces the same uniqueness constraints as the Postgres store so the
// flows behave identically under test.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]Profile
	byEmail  map[string]uuid.UUID // lower(email) -> id
	byPhone  map[string]uuid.UUID
	byReg    map[string]uuid.UUID // commercial registration -> id
	byNafath map[string]uuid.UUID
}

// NewInMemoryRepository creates a new in-memory profile repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		profiles: make(map[uuid.UUID]Profile),
		byEmail:  make(map[string]uuid.UUID),
		byPhone:  make(map[string]uuid.UUID),
		byReg:    make(map[string]uuid.UUID),
		byNafath: make(map[string]uuid.UUID),
	}
}

// FindByID finds a profile by id
func (r *InMemoryRepository) FindByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

// FindByEmail finds a profile by email, case-insensitively
func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return r.profiles[id], nil
}

// FindByVerificationToken finds the profile holding exactly this token
func (r *InMemoryRepository) FindByVerificationToken(ctx context.Context, token string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if token == "" {
		return Profile{}, ErrNotFound
	}
	for _, p := range r.profiles {
		if p.VerificationToken == token {
			return p, nil
		}
	}
	return Profile{}, ErrNotFound
}

// FindByResetTokenHash finds the profile whose stored reset token hash matches
func (r *InMemoryRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if tokenHash == "" {
		return Profile{}, ErrNotFound
	}
	for _, p := range r.profiles {
		if p.ResetTokenHash == tokenHash {
			return p, nil
		}
	}
	return Profile{}, ErrNotFound
}

// FindByNafathID finds the profile linked to a nafath identity
func (r *InMemoryRepository) FindByNafathID(ctx context.Context, nafathID string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byNafath[nafathID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return r.profiles[id], nil
}

// FindConflictingField checks email, phone and commercial registration uniqueness
func (r *InMemoryRepository) FindConflictingField(ctx context.Context, email, phone, commercialReg string) (ConflictField, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.byEmail[strings.ToLower(email)]; ok {
		return ConflictEmail, nil
	}
	if _, ok := r.byPhone[phone]; ok {
		return ConflictPhone, nil
	}
	if commercialReg != "" {
		if _, ok := r.byReg[commercialReg]; ok {
			return ConflictCommercialRegistration, nil
		}
	}
	return ConflictNone, nil
}

// Insert stores a new profile, rejecting duplicates on any unique field
func (r *InMemoryRepository) Insert(ctx context.Context, p Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	emailKey := strings.ToLower(p.Email)
	if _, ok := r.byEmail[emailKey]; ok {
		return apperrors.DuplicateField(string(ConflictEmail))
	}
	if _, ok := r.byPhone[p.Phone]; ok {
		return apperrors.DuplicateField(string(ConflictPhone))
	}
	if p.Business != nil && p.Business.CommercialRegistration != "" {
		if _, ok := r.byReg[p.Business.CommercialRegistration]; ok {
			return apperrors.DuplicateField(string(ConflictCommercialRegistration))
		}
	}
	if p.NafathID != "" {
		if _, ok := r.byNafath[p.NafathID]; ok {
			return apperrors.DuplicateField(string(ConflictNafathID))
		}
	}

	p.Email = emailKey
	r.profiles[p.ID] = p
	r.byEmail[emailKey] = p.ID
	r.byPhone[p.Phone] = p.ID
	if p.Business != nil && p.Business.CommercialRegistration != "" {
		r.byReg[p.Business.CommercialRegistration] = p.ID
	}
	if p.NafathID != "" {
		r.byNafath[p.NafathID] = p.ID
	}
	return nil
}

// Delete removes a profile and its index entries
func (r *InMemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil
	}
	delete(r.profiles, id)
	delete(r.byEmail, strings.ToLower(p.Email))
	delete(r.byPhone, p.Phone)
	if p.Business != nil && p.Business.CommercialRegistration != "" {
		delete(r.byReg, p.Business.CommercialRegistration)
	}
	if p.NafathID != "" {
		delete(r.byNafath, p.NafathID)
	}
	return nil
}

func (r *InMemoryRepository) update(id uuid.UUID, fn func(*Profile)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return ErrNotFound
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	r.profiles[id] = p
	return nil
}

// UpdatePassword sets a new password hash and enables password login
func (r *InMemoryRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.update(id, func(p *Profile) {
		p.PasswordHash = passwordHash
		p.PasswordSet = true
	})
}

// SetVerificationToken stores a fresh email verification token
func (r *InMemoryRepository) SetVerificationToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.update(id, func(p *Profile) {
		p.VerificationToken = token
	})
}

// MarkEmailVerified flips the verified flag and clears the token
func (r *InMemoryRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(p *Profile) {
		p.IsVerified = true
		p.VerificationToken = ""
	})
}

// SetResetToken stores the reset token hash and its expiry together
func (r *InMemoryRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return r.update(id, func(p *Profile) {
		p.ResetTokenHash = tokenHash
		expiry := expiresAt
		p.ResetTokenExpiresAt = &expiry
	})
}

// RedeemResetToken updates the password and clears both reset fields
func (r *InMemoryRepository) RedeemResetToken(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.update(id, func(p *Profile) {
		p.PasswordHash = passwordHash
		p.PasswordSet = true
		p.ResetTokenHash = ""
		p.ResetTokenExpiresAt = nil
	})
}

// MarkNafathVerified links the nafath identity and sets both flags
func (r *InMemoryRepository) MarkNafathVerified(ctx context.Context, id uuid.UUID, nafathID string) error {
	err := r.update(id, func(p *Profile) {
		p.NafathID = nafathID
		p.IsIdentityVerified = true
		p.IsVerified = true
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.byNafath[nafathID] = id
	r.mu.Unlock()
	return nil
}

// SetActive toggles the account-active flag
func (r *InMemoryRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.update(id, func(p *Profile) {
		p.IsActive = active
	})
}

// UpdateContact updates name, phone and location
func (r *InMemoryRepository) UpdateContact(ctx context.Context, id uuid.UUID, name, phone string, location Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return ErrNotFound
	}
	if other, taken := r.byPhone[phone]; taken && other != id {
		return apperrors.DuplicateField(string(ConflictPhone))
	}

	delete(r.byPhone, p.Phone)
	p.Name = name
	p.Phone = phone
	p.Location = location
	p.UpdatedAt = time.Now().UTC()
	r.byPhone[phone] = id
	r.profiles[id] = p
	return nil
}

// UpdateBusinessInfo updates the business attribute group
func (r *InMemoryRepository) UpdateBusinessInfo(ctx context.Context, id uuid.UUID, info BusinessInfo) error {
	r.mu.Lock()
	p, ok := r.profiles[id]
	if ok && p.Business != nil && p.Business.CommercialRegistration != "" {
		delete(r.byReg, p.Business.CommercialRegistration)
	}
	r.mu.Unlock()

	err := r.update(id, func(p *Profile) {
		infoCopy := info
		p.Business = &infoCopy
	})
	if err != nil {
		return err
	}

	if info.CommercialRegistration != "" {
		r.mu.Lock()
		r.byReg[info.CommercialRegistration] = id
		r.mu.Unlock()
	}
	return nil
}

// UpdateFamilyInfo updates the family attribute group
func (r *InMemoryRepository) UpdateFamilyInfo(ctx context.Context, id uuid.UUID, info FamilyInfo) error {
	return r.update(id, func(p *Profile) {
		infoCopy := info
		p.Family = &infoCopy
	})
}
