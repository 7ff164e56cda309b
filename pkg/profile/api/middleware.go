package api

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	authapi "github.com/wafra-app/wafra-backend/pkg/auth/api"
	apperrors "github.com/wafra-app/wafra-backend/pkg/errors"
	"github.com/wafra-app/wafra-backend/pkg/profile"
)

// RequireKinds returns middleware that rejects requests whose session was
// issued for a profile kind outside the allowed set.
func RequireKinds(kinds ...profile.Kind) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		allowed[string(k)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				authapi.RenderError(w, r, apperrors.New(apperrors.ErrCodeUnauthorized, "missing or invalid token"))
				return
			}
			kind, _ := claims["kind"].(string)
			if !allowed[kind] {
				authapi.RenderError(w, r, apperrors.New(apperrors.ErrCodeForbidden, "this account type cannot perform this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
