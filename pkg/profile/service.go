package profile

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
	"github.com/wafra-app/wafra-backend/pkg/utils"
)

// ProfileService serves the profile self-management surface.
type ProfileService struct {
	repo Repository
}

func NewProfileService(repo Repository) *ProfileService {
	return &ProfileService{repo: repo}
}

// ContactUpdate carries the mutable contact fields. Zero values mean "keep".
type ContactUpdate struct {
	Name     string
	Phone    string
	Location *Location
}

func (s *ProfileService) Get(ctx context.Context, profileID uuid.UUID) (PublicProfile, error) {
	p, err := s.findProfile(ctx, profileID)
	if err != nil {
		return PublicProfile{}, err
	}
	return p.ToPublic(), nil
}

// UpdateContact changes name, phone and location. Email and kind are
// immutable through this surface.
func (s *ProfileService) UpdateContact(ctx context.Context, profileID uuid.UUID, update ContactUpdate) (PublicProfile, error) {
	p, err := s.findProfile(ctx, profileID)
	if err != nil {
		return PublicProfile{}, err
	}

	if update.Name != "" {
		p.Name = strings.Join(strings.Fields(update.Name), " ")
	}
	if update.Phone != "" {
		p.Phone = utils.NormalizePhone(update.Phone)
	}
	if update.Location != nil {
		if strings.TrimSpace(update.Location.City) == "" {
			return PublicProfile{}, apperrors.ValidationFailed(map[string]string{"location.city": "city is required"})
		}
		if c := update.Location.Coordinates; c != nil {
			if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
				return PublicProfile{}, apperrors.ValidationFailed(map[string]string{"location.coordinates": "coordinates are out of range"})
			}
		}
		p.Location = *update.Location
	}

	if err := s.repo.UpdateContact(ctx, p.ID, p.Name, p.Phone, p.Location); err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeDuplicateField) {
			return PublicProfile{}, err
		}
		return PublicProfile{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update profile")
	}

	slog.Info("profile contact updated", "profileId", p.ID)
	return p.ToPublic(), nil
}

// UpdateBusiness replaces the business attributes of a shop or productive
// family profile.
func (s *ProfileService) UpdateBusiness(ctx context.Context, profileID uuid.UUID, info BusinessInfo) (PublicProfile, error) {
	p, err := s.findProfile(ctx, profileID)
	if err != nil {
		return PublicProfile{}, err
	}
	if p.Kind != KindShop && p.Kind != KindProductiveFamily {
		return PublicProfile{}, apperrors.New(apperrors.ErrCodeForbidden, "profile kind has no business attributes")
	}
	if strings.TrimSpace(info.BusinessName) == "" {
		return PublicProfile{}, apperrors.ValidationFailed(map[string]string{"businessInfo.businessName": "businessName is required"})
	}
	if p.Kind == KindShop && info.CommercialRegistration == "" {
		return PublicProfile{}, apperrors.ValidationFailed(map[string]string{"businessInfo.commercialRegistration": "commercialRegistration is required"})
	}

	if err := s.repo.UpdateBusinessInfo(ctx, p.ID, info); err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeDuplicateField) {
			return PublicProfile{}, err
		}
		return PublicProfile{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update business info")
	}

	p.Business = &info
	slog.Info("business info updated", "profileId", p.ID)
	return p.ToPublic(), nil
}

// UpdateFamily replaces the family attributes of a productive family profile.
func (s *ProfileService) UpdateFamily(ctx context.Context, profileID uuid.UUID, info FamilyInfo) (PublicProfile, error) {
	p, err := s.findProfile(ctx, profileID)
	if err != nil {
		return PublicProfile{}, err
	}
	if p.Kind != KindProductiveFamily {
		return PublicProfile{}, apperrors.New(apperrors.ErrCodeForbidden, "profile kind has no family attributes")
	}
	if info.FamilySize < 1 || info.FamilySize > 20 {
		return PublicProfile{}, apperrors.ValidationFailed(map[string]string{"familyInfo.familySize": "familySize must be between 1 and 20"})
	}
	for _, specialty := range info.Specialties {
		if !specialty.IsValid() {
			return PublicProfile{}, apperrors.ValidationFailed(map[string]string{"familyInfo.specialties": "specialties contains an unknown value: " + string(specialty)})
		}
	}

	if err := s.repo.UpdateFamilyInfo(ctx, p.ID, info); err != nil {
		return PublicProfile{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update family info")
	}

	p.Family = &info
	slog.Info("family info updated", "profileId", p.ID)
	return p.ToPublic(), nil
}

// Deactivate soft-deletes the profile. Login is refused until reactivation.
func (s *ProfileService) Deactivate(ctx context.Context, profileID uuid.UUID) error {
	if err := s.repo.SetActive(ctx, profileID, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperrors.New(apperrors.ErrCodeProfileNotFound, "profile not found")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to deactivate profile")
	}
	slog.Info("profile deactivated", "profileId", profileID)
	return nil
}

func (s *ProfileService) findProfile(ctx context.Context, profileID uuid.UUID) (Profile, error) {
	p, err := s.repo.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, apperrors.New(apperrors.ErrCodeProfileNotFound, "profile not found")
		}
		return Profile{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to look up profile")
	}
	return p, nil
}
