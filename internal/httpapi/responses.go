// Package httpapi provides common encoding and middleware for an HTTP API.
package httpapi

import (
	"encoding/json"
	"net/http"

	keeper "github.com/fmitra/otpkeeper"
)

// JSONAPIHandler is an HTTP handler for a JSON API.
type JSONAPIHandler func(w http.ResponseWriter, r *http.Request) (interface{}, error)

// Blob is a non JSON response body.
type Blob struct {
	ContentType string
	Body        []byte
}

// ToHandlerFunc adapts a JSONAPIHandler into net/http's HandlerFunc.
func ToHandlerFunc(jsonHandler JSONAPIHandler, successCode int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response, err := jsonHandler(w, r)
		if err != nil {
			ErrorResponse(w, err)
			return
		}

		JSONResponse(w, response, successCode)
	}
}

// JSONResponse writes a response body. If a struct is provided
// and we are unable to marshal it, we return an internal error.
func JSONResponse(w http.ResponseWriter, v interface{}, statusCode int) {
	if v == nil {
		response(w, []byte("{}"), statusCode)
		return
	}

	if blob, ok := v.(*Blob); ok {
		w.Header().Set("Content-Type", blob.ContentType)
		w.WriteHeader(statusCode)
		_, _ = w.Write(blob.Body)
		return
	}

	b, ok := v.([]byte)
	if ok {
		response(w, b, statusCode)
		return
	}

	b, err := json.Marshal(v)
	if err != nil {
		internalErrorResponse(w)
		return
	}

	response(w, b, statusCode)
}

// ErrorResponse writes an error response. Domain errors
// are returned to the client. Any other errors, will resolve
// to 500 error response.
func ErrorResponse(w http.ResponseWriter, err error) {
	domainErr := keeper.DomainError(err)
	if domainErr == nil {
		internalErrorResponse(w)
		return
	}

	var statusCode int
	switch domainErr.Code() {
	case keeper.EInvalidToken:
		statusCode = http.StatusUnauthorized
	case keeper.ENotFound:
		statusCode = http.StatusNotFound
	case keeper.ELocked:
		statusCode = http.StatusLocked
	case keeper.EThrottle:
		statusCode = http.StatusTooManyRequests
	default:
		statusCode = http.StatusBadRequest
	}

	content := errorMessage(string(domainErr.Code()), domainErr.Message())
	response(w, content, statusCode)
}

func errorMessage(code, message string) []byte {
	content := map[string]map[string]string{
		"error": {
			"code":    code,
			"message": message,
		},
	}
	b, _ := json.Marshal(content)
	return b
}

func response(w http.ResponseWriter, content []byte, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(content)
}

func internalErrorResponse(w http.ResponseWriter) {
	code := "internal"
	message := "An internal error occurred"
	content := errorMessage(code, message)
	response(w, content, http.StatusInternalServerError)
}
