package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	keeper "github.com/fmitra/otpkeeper"
)

type contextKey string

const authorizationHeader = "AUTHORIZATION"

const tokenContextKey contextKey = "token"

// LockMiddleware requires a valid unlock token while the application
// can be locked. Requests pass through untouched otherwise.
func LockMiddleware(jsonHandler JSONAPIHandler, store keeper.SecretStore, tokenSvc keeper.TokenService) JSONAPIHandler {
	return func(w http.ResponseWriter, r *http.Request) (interface{}, error) {
		if !store.CanBeLocked() {
			return jsonHandler(w, r)
		}

		ctx := r.Context()
		jwtToken := r.Header.Get(authorizationHeader)
		if jwtToken == "" {
			return nil, keeper.ErrLocked("application is locked")
		}

		token, err := tokenSvc.Validate(ctx, jwtToken)
		if err != nil {
			return nil, err
		}

		ctxWithToken := context.WithValue(ctx, tokenContextKey, token)
		r = r.WithContext(ctxWithToken)

		return jsonHandler(w, r)
	}
}

// ErrorLoggingMiddleware logs any errors that are returned before
// being parsed to an HTTP response.
func ErrorLoggingMiddleware(jsonHandler JSONAPIHandler, source string, logger log.Logger) JSONAPIHandler {
	return func(w http.ResponseWriter, r *http.Request) (interface{}, error) {
		response, err := jsonHandler(w, r)
		if err != nil {
			leveled := level.Info(logger)
			if keeper.DomainError(err) == nil {
				leveled = level.Error(logger)
			}
			leveled.Log(
				"source", source,
				"error", err.Error(),
				"stack_trace", fmt.Sprintf("%+v", err),
			)
		}

		return response, err
	}
}

// GetToken retrieves the unlock Token from context.
func GetToken(r *http.Request) *keeper.Token {
	token, ok := r.Context().Value(tokenContextKey).(*keeper.Token)
	if !ok {
		return nil
	}

	return token
}
