package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/didip/tollbooth/v6"

	keeper "github.com/fmitra/otpkeeper"
)

func TestHTTPAPI_RateLimitMiddleware(t *testing.T) {
	var calls int
	handler := func(w http.ResponseWriter, r *http.Request) (interface{}, error) {
		calls++
		return nil, nil
	}

	lmt := tollbooth.NewLimiter(ThrottleEveryOneSec, nil)
	h := RateLimitMiddleware(handler, lmt)

	r := httptest.NewRequest("POST", "/api/v1/unlock", nil)
	if _, err := h(httptest.NewRecorder(), r); err != nil {
		t.Fatal("expected first request to pass:", err)
	}

	r = httptest.NewRequest("POST", "/api/v1/unlock", nil)
	_, err := h(httptest.NewRecorder(), r)
	if keeper.ErrorCode(err) != keeper.EThrottle {
		t.Errorf("incorrect error code, want '%s' got '%s'",
			keeper.EThrottle, keeper.ErrorCode(err))
	}
	if calls != 1 {
		t.Errorf("incorrect handler call count, want 1 got %v", calls)
	}
}
