package auth

import (
	"regexp"
	"strings"

	"github.com/wafra-app/wafra-backend/pkg/profile"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+\d{9,14}$`)
	regPattern   = regexp.MustCompile(`^\d{10}$`)
)

// kindValidators dispatches kind-specific validation on the profile kind tag
var kindValidators = map[profile.Kind]func(RegisterParams, map[string]string){
	profile.KindCustomer:         validateCustomer,
	profile.KindShop:             validateShop,
	profile.KindProductiveFamily: validateFamily,
}

// validateRegister checks and reports all field errors at once. Params are
// expected to be normalized already.
func validateRegister(params RegisterParams) map[string]string {
	fieldErrors := make(map[string]string)

	if strings.TrimSpace(params.Name) == "" {
		fieldErrors["name"] = "name is required"
	}
	if params.Email == "" {
		fieldErrors["email"] = "email is required"
	} else if !emailPattern.MatchString(params.Email) {
		fieldErrors["email"] = "email is not a valid address"
	}
	if params.Phone == "" {
		fieldErrors["phone"] = "phone is required"
	} else if !phonePattern.MatchString(params.Phone) {
		fieldErrors["phone"] = "phone is not a valid number"
	}
	if err := validatePassword(params.Password); err != "" {
		fieldErrors["password"] = err
	}

	validateLocation(params.Location, fieldErrors)

	validator, ok := kindValidators[params.Kind]
	if !ok {
		fieldErrors["kind"] = "kind must be one of customer, shop, productive_family"
		return fieldErrors
	}
	validator(params, fieldErrors)

	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}

func validatePassword(password string) string {
	if password == "" {
		return "password is required"
	}
	if len(password) < 8 {
		return "password must be at least 8 characters"
	}
	return ""
}

func validateLocation(loc profile.Location, fieldErrors map[string]string) {
	if strings.TrimSpace(loc.City) == "" {
		fieldErrors["location.city"] = "city is required"
	}
	if loc.Coordinates != nil {
		if loc.Coordinates.Lat < -90 || loc.Coordinates.Lat > 90 {
			fieldErrors["location.coordinates.lat"] = "latitude must be between -90 and 90"
		}
		if loc.Coordinates.Lon < -180 || loc.Coordinates.Lon > 180 {
			fieldErrors["location.coordinates.lon"] = "longitude must be between -180 and 180"
		}
	}
}

// validateCustomer rejects the attribute groups that belong to the other
// kinds. Letting them through would persist a commercialRegistration under a
// customer profile and occupy the unique index for it.
func validateCustomer(params RegisterParams, fieldErrors map[string]string) {
	if params.Business != nil {
		fieldErrors["businessInfo"] = "businessInfo is not allowed for customer accounts"
	}
	if params.Family != nil {
		fieldErrors["familyInfo"] = "familyInfo is not allowed for customer accounts"
	}
}

func validateShop(params RegisterParams, fieldErrors map[string]string) {
	if params.Family != nil {
		fieldErrors["familyInfo"] = "familyInfo is not allowed for shop accounts"
	}
	if params.Business == nil {
		fieldErrors["businessInfo"] = "businessInfo is required for shop accounts"
		return
	}
	if strings.TrimSpace(params.Business.BusinessName) == "" {
		fieldErrors["businessInfo.businessName"] = "businessName is required"
	}
	if params.Business.CommercialRegistration == "" {
		fieldErrors["businessInfo.commercialRegistration"] = "commercialRegistration is required"
	} else if !regPattern.MatchString(params.Business.CommercialRegistration) {
		fieldErrors["businessInfo.commercialRegistration"] = "commercialRegistration must be a 10-digit number"
	}
}

func validateFamily(params RegisterParams, fieldErrors map[string]string) {
	if params.Family == nil {
		fieldErrors["familyInfo"] = "familyInfo is required for productive family accounts"
		return
	}
	if params.Family.FamilySize < 1 || params.Family.FamilySize > 20 {
		fieldErrors["familyInfo.familySize"] = "familySize must be between 1 and 20"
	}
	for _, s := range params.Family.Specialties {
		if !s.IsValid() {
			fieldErrors["familyInfo.specialties"] = "specialties contains an unknown value: " + string(s)
			break
		}
	}
	if params.Family.YearsOfExperience < 0 {
		fieldErrors["familyInfo.yearsOfExperience"] = "yearsOfExperience cannot be negative"
	}
}
