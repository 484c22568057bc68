package lockapi

import (
	"net/http"

	"github.com/didip/tollbooth/v6"
	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/httpapi"
)

// SetupHTTPHandler converts a service's public methods
// to http handlers.
func SetupHTTPHandler(svc keeper.LockAPI, router *mux.Router, store keeper.SecretStore, tokenSvc keeper.TokenService, logger log.Logger) {
	var handler httpapi.JSONAPIHandler
	{
		handler = httpapi.RateLimitMiddleware(svc.Unlock, tollbooth.NewLimiter(httpapi.ThrottleEveryOneSec, nil))
		handler = httpapi.ErrorLoggingMiddleware(handler, "lockapi.Unlock", logger)
		httpHandler := httpapi.ToHandlerFunc(handler, http.StatusOK)
		router.HandleFunc("/api/v1/unlock", httpHandler).Methods("Post")
	}
	{
		handler = httpapi.LockMiddleware(svc.SetPassword, store, tokenSvc)
		handler = httpapi.ErrorLoggingMiddleware(handler, "lockapi.SetPassword", logger)
		httpHandler := httpapi.ToHandlerFunc(handler, http.StatusOK)
		router.HandleFunc("/api/v1/password", httpHandler).Methods("Put")
	}
	{
		handler = httpapi.LockMiddleware(svc.RemovePassword, store, tokenSvc)
		handler = httpapi.ErrorLoggingMiddleware(handler, "lockapi.RemovePassword", logger)
		httpHandler := httpapi.ToHandlerFunc(handler, http.StatusOK)
		router.HandleFunc("/api/v1/password", httpHandler).Methods("Delete")
	}
	{
		handler = httpapi.LockMiddleware(svc.SetLocking, store, tokenSvc)
		handler = httpapi.ErrorLoggingMiddleware(handler, "lockapi.SetLocking", logger)
		httpHandler := httpapi.ToHandlerFunc(handler, http.StatusOK)
		router.HandleFunc("/api/v1/locking", httpHandler).Methods("Put")
	}
	{
		handler = httpapi.ErrorLoggingMiddleware(svc.Locking, "lockapi.Locking", logger)
		httpHandler := httpapi.ToHandlerFunc(handler, http.StatusOK)
		router.HandleFunc("/api/v1/locking", httpHandler).Methods("Get")
	}
}
