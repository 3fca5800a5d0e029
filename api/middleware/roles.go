package middleware

import (
	"net/http"

	"github.com/courierloop/courierloop-backend/api/responses"
	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
	"github.com/courierloop/courierloop-backend/pkg/logger"
)

func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				err := pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role").
					WithDetails(map[string]any{"required_role": role})
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
