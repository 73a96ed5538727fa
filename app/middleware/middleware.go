package appMiddleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/FACorreiaa/go-trip-fusion/internal/api"
)

// RateLimitByIP limits each client address to requestsPerMinute requests.
// A non-positive limit disables the middleware.
func RateLimitByIP(requestsPerMinute int, logger *slog.Logger) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.WarnContext(r.Context(), "Rate limit exceeded",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("path", r.URL.Path))
			api.ErrorResponse(w, r, http.StatusTooManyRequests, "Too many planning requests, please slow down")
		}),
	)
}
