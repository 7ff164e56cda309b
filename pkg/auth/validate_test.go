package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wafra-app/wafra-backend/pkg/profile"
)

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*RegisterParams)
		wantFields []string
	}{
		{
			name:   "valid customer",
			mutate: func(p *RegisterParams) {},
		},
		{
			name: "missing everything",
			mutate: func(p *RegisterParams) {
				*p = RegisterParams{Kind: profile.KindCustomer}
			},
			wantFields: []string{"name", "email", "phone", "password", "location.city"},
		},
		{
			name:       "malformed email",
			mutate:     func(p *RegisterParams) { p.Email = "not-an-email" },
			wantFields: []string{"email"},
		},
		{
			name:       "phone without country code",
			mutate:     func(p *RegisterParams) { p.Phone = "0501112222" },
			wantFields: []string{"phone"},
		},
		{
			name:       "short password",
			mutate:     func(p *RegisterParams) { p.Password = "seven77" },
			wantFields: []string{"password"},
		},
		{
			name:       "unknown kind",
			mutate:     func(p *RegisterParams) { p.Kind = "admin" },
			wantFields: []string{"kind"},
		},
		{
			name: "latitude out of range",
			mutate: func(p *RegisterParams) {
				p.Location.Coordinates = &profile.Coordinates{Lat: 91, Lon: 46.7}
			},
			wantFields: []string{"location.coordinates.lat"},
		},
		{
			name: "customer with business info",
			mutate: func(p *RegisterParams) {
				p.Business = &profile.BusinessInfo{
					BusinessName:           "Dates Corner",
					CommercialRegistration: "1010101010",
				}
			},
			wantFields: []string{"businessInfo"},
		},
		{
			name: "customer with family info",
			mutate: func(p *RegisterParams) {
				p.Family = &profile.FamilyInfo{FamilySize: 3}
			},
			wantFields: []string{"familyInfo"},
		},
		{
			name: "shop with family info",
			mutate: func(p *RegisterParams) {
				p.Kind = profile.KindShop
				p.Business = &profile.BusinessInfo{
					BusinessName:           "Dates Corner",
					CommercialRegistration: "1010101010",
				}
				p.Family = &profile.FamilyInfo{FamilySize: 3}
			},
			wantFields: []string{"familyInfo"},
		},
		{
			name: "shop without business info",
			mutate: func(p *RegisterParams) {
				p.Kind = profile.KindShop
			},
			wantFields: []string{"businessInfo"},
		},
		{
			name: "shop with non numeric registration",
			mutate: func(p *RegisterParams) {
				p.Kind = profile.KindShop
				p.Business = &profile.BusinessInfo{
					BusinessName:           "Dates Corner",
					CommercialRegistration: "10101-1010",
				}
			},
			wantFields: []string{"businessInfo.commercialRegistration"},
		},
		{
			name: "family size out of range",
			mutate: func(p *RegisterParams) {
				p.Kind = profile.KindProductiveFamily
				p.Business = &profile.BusinessInfo{BusinessName: "Umm Khalid Kitchen"}
				p.Family = &profile.FamilyInfo{FamilySize: 0}
			},
			wantFields: []string{"familyInfo.familySize"},
		},
		{
			name: "family with unknown specialty",
			mutate: func(p *RegisterParams) {
				p.Kind = profile.KindProductiveFamily
				p.Business = &profile.BusinessInfo{BusinessName: "Umm Khalid Kitchen"}
				p.Family = &profile.FamilyInfo{FamilySize: 3, Specialties: []profile.Specialty{"plumbing"}}
			},
			wantFields: []string{"familyInfo.specialties"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := RegisterParams{
				Name:     "Sara Alqahtani",
				Email:    "sara@example.com",
				Phone:    "+966501112222",
				Password: "s3cretpass",
				Kind:     profile.KindCustomer,
				Location: profile.Location{City: "Riyadh"},
			}
			tc.mutate(&params)

			fieldErrors := validateRegister(params)
			if len(tc.wantFields) == 0 {
				assert.Nil(t, fieldErrors)
				return
			}
			for _, f := range tc.wantFields {
				assert.Contains(t, fieldErrors, f)
			}
		})
	}
}
