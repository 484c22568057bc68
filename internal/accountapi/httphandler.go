package accountapi

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/httpapi"
)

// SetupHTTPHandler converts a service's public methods
// to http handlers.
func SetupHTTPHandler(svc keeper.AccountAPI, router *mux.Router, store keeper.SecretStore, tokenSvc keeper.TokenService, logger log.Logger) {
	routes := []struct {
		handler    httpapi.JSONAPIHandler
		source     string
		path       string
		method     string
		statusCode int
	}{
		{svc.List, "accountapi.List", "/api/v1/accounts", "Get", http.StatusOK},
		{svc.Create, "accountapi.Create", "/api/v1/accounts", "Post", http.StatusCreated},
		{svc.CreateFromURI, "accountapi.CreateFromURI", "/api/v1/accounts/uri", "Post", http.StatusCreated},
		{svc.Search, "accountapi.Search", "/api/v1/accounts/search", "Get", http.StatusOK},
		{svc.Update, "accountapi.Update", "/api/v1/accounts/{id:[0-9]+}", "Put", http.StatusOK},
		{svc.Remove, "accountapi.Remove", "/api/v1/accounts/{id:[0-9]+}", "Delete", http.StatusOK},
		{svc.QRCode, "accountapi.QRCode", "/api/v1/accounts/{id:[0-9]+}/qr", "Get", http.StatusOK},
		{svc.Countdown, "accountapi.Countdown", "/api/v1/countdown", "Get", http.StatusOK},
		{svc.Providers, "accountapi.Providers", "/api/v1/providers", "Get", http.StatusOK},
		{svc.Import, "accountapi.Import", "/api/v1/backup", "Post", http.StatusCreated},
		{svc.Export, "accountapi.Export", "/api/v1/backup", "Get", http.StatusOK},
	}

	for _, route := range routes {
		var handler httpapi.JSONAPIHandler
		{
			handler = httpapi.LockMiddleware(route.handler, store, tokenSvc)
			handler = httpapi.ErrorLoggingMiddleware(handler, route.source, logger)
			httpHandler := httpapi.ToHandlerFunc(handler, route.statusCode)
			router.HandleFunc(route.path, httpHandler).Methods(route.method)
		}
	}
}
