package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type contextKey string

const correlationIDKey contextKey = "correlationId"

// correlationMiddleware tags every HTTP request with an X-Correlation-ID,
// generating one when the caller didn't supply it, so a request and the
// log lines it produced can be tied together.
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set("X-Correlation-ID", correlationID)

		logger := log.With().Str("correlation_id", correlationID).Logger()
		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)
		ctx = logger.WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func correlationID(ctx context.Context) string {
	if v, ok := ctx.Value(correlationIDKey).(string); ok {
		return v
	}
	return ""
}
