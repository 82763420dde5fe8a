package middlewares

import (
	"net/http"

	"github.com/didip/tollbooth/v6"
	"github.com/estateplan/apiv1/utils"
	"github.com/gorilla/mux"
)

// RateLimit applies a per-IP request limit to every route it wraps.
func RateLimit(requestsPerSecond float64) mux.MiddlewareFunc {
	lmt := tollbooth.NewLimiter(requestsPerSecond, nil)
	lmt.SetIPLookups([]string{"X-Forwarded-For", "RemoteAddr", "X-Real-IP"})
	lmt.SetMessageContentType("application/json")
	lmt.SetMessage(utils.RATE_LIMIT_ERROR)
	return func(next http.Handler) http.Handler {
		return tollbooth.LimitHandler(lmt, next)
	}
}
