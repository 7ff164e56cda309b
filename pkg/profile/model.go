package profile

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a profile. It is immutable after creation and decides
// which optional attribute group is populated.
type Kind string

const (
	KindCustomer         Kind = "customer"
	KindShop             Kind = "shop"
	KindProductiveFamily Kind = "productive_family"
)

// ValidKinds is the closed set of profile kinds
var ValidKinds = []Kind{KindCustomer, KindShop, KindProductiveFamily}

// IsValid reports whether k is a known profile kind
func (k Kind) IsValid() bool {
	for _, v := range ValidKinds {
		if k == v {
			return true
		}
	}
	return false
}

// Specialty is a productive-family craft category
type Specialty string

const (
	SpecialtyFood        Specialty = "food"
	SpecialtyBakery      Specialty = "bakery"
	SpecialtyHandicrafts Specialty = "handicrafts"
	SpecialtyTailoring   Specialty = "tailoring"
	SpecialtyPerfumes    Specialty = "perfumes"
	SpecialtyAccessories Specialty = "accessories"
	SpecialtyOther       Specialty = "other"
)

var validSpecialties = map[Specialty]bool{
	SpecialtyFood:        true,
	SpecialtyBakery:      true,
	SpecialtyHandicrafts: true,
	SpecialtyTailoring:   true,
	SpecialtyPerfumes:    true,
	SpecialtyAccessories: true,
	SpecialtyOther:       true,
}

// IsValid reports whether s is a known specialty
func (s Specialty) IsValid() bool {
	return validSpecialties[s]
}

// Coordinates is an optional lat/lon pair, each independently validated
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location describes where a profile operates. City is required.
type Location struct {
	City        string       `json:"city"`
	District    string       `json:"district,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// BusinessInfo is populated for shop and productive_family profiles.
// CommercialRegistration is required for shops and unique when present.
type BusinessInfo struct {
	BusinessName           string `json:"businessName"`
	CommercialRegistration string `json:"commercialRegistration,omitempty"`
	BusinessType           string `json:"businessType,omitempty"`
	Description            string `json:"description,omitempty"`
}

// FamilyInfo is populated for productive_family profiles
type FamilyInfo struct {
	FamilySize        int         `json:"familySize"`
	Specialties       []Specialty `json:"specialties,omitempty"`
	YearsOfExperience int         `json:"yearsOfExperience,omitempty"`
}

// Profile is the authoritative user record
type Profile struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
	Kind  Kind

	// PasswordHash is empty for profiles created via identity federation
	// until an explicit set-password step enables password login.
	PasswordHash string
	PasswordSet  bool

	IsActive           bool
	IsVerified         bool
	IsIdentityVerified bool

	// Single-use tokens. VerificationToken is stored raw; the reset token is
	// stored only as a hash. ResetTokenHash and ResetTokenExpiresAt are set
	// and cleared together.
	VerificationToken   string
	ResetTokenHash      string
	ResetTokenExpiresAt *time.Time

	Location Location
	Business *BusinessInfo
	Family   *FamilyInfo

	// NafathID links the profile to a verified national digital identity.
	// Unique when present.
	NafathID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicProfile is the outward projection of a Profile. Credential and token
// fields have no counterpart here, so they can never be serialized.
type PublicProfile struct {
	ID                 uuid.UUID     `json:"id"`
	Name               string        `json:"name"`
	Email              string        `json:"email"`
	Phone              string        `json:"phone"`
	Kind               Kind          `json:"kind"`
	IsActive           bool          `json:"isActive"`
	IsVerified         bool          `json:"isVerified"`
	IsIdentityVerified bool          `json:"isIdentityVerified"`
	Location           Location      `json:"location"`
	Business           *BusinessInfo `json:"businessInfo,omitempty"`
	Family             *FamilyInfo   `json:"familyInfo,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
}

// ToPublic projects a Profile for responses. Every profile that leaves the
// service goes through this function.
func (p *Profile) ToPublic() PublicProfile {
	return PublicProfile{
		ID:                 p.ID,
		Name:               p.Name,
		Email:              p.Email,
		Phone:              p.Phone,
		Kind:               p.Kind,
		IsActive:           p.IsActive,
		IsVerified:         p.IsVerified,
		IsIdentityVerified: p.IsIdentityVerified,
		Location:           p.Location,
		Business:           p.Business,
		Family:             p.Family,
		CreatedAt:          p.CreatedAt,
	}
}
