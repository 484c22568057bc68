package httpapi

import (
	"net/http"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"

	keeper "github.com/fmitra/otpkeeper"
)

// ThrottleEveryOneSec allows a single request per second.
const ThrottleEveryOneSec float64 = 1

// RateLimitMiddleware rejects requests exceeding the limiter's rate.
func RateLimitMiddleware(jsonHandler JSONAPIHandler, lmt *limiter.Limiter) JSONAPIHandler {
	return func(w http.ResponseWriter, r *http.Request) (interface{}, error) {
		if httpErr := tollbooth.LimitByRequest(lmt, w, r); httpErr != nil {
			return nil, keeper.ErrThrottle("requests are throttled, try again later")
		}

		return jsonHandler(w, r)
	}
}
