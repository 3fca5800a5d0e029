package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/courierloop/courierloop-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Inbound ids are honored only when they are well formed;
			// anything else gets replaced rather than logged verbatim.
			reqID := r.Header.Get(requestIDHeader)
			if _, err := uuid.Parse(reqID); err != nil {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
