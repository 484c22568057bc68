package lockapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/httpapi"
)

type passwordRequest struct {
	Password string `json:"password"`
}

type lockingRequest struct {
	Enabled *bool `json:"enabled"`
}

func decodePasswordRequest(r *http.Request) (*passwordRequest, error) {
	var req passwordRequest

	if r == nil || r.Body == nil {
		return nil, keeper.ErrBadRequest("no request body received")
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, keeper.ErrBadRequest("invalid JSON request"))
	}

	if req.Password == "" {
		return nil, keeper.ErrBadRequest("password must be provided")
	}

	return &req, nil
}

func decodeLockingRequest(r *http.Request) (*lockingRequest, error) {
	var req lockingRequest

	if r == nil || r.Body == nil {
		return nil, keeper.ErrBadRequest("no request body received")
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, keeper.ErrBadRequest("invalid JSON request"))
	}

	if req.Enabled == nil {
		return nil, keeper.ErrBadRequest("enabled must be provided")
	}

	return &req, nil
}

// sessionID returns the ID of the unlock session authorizing a request,
// or an empty string when the application is not locked.
func sessionID(r *http.Request) string {
	token := httpapi.GetToken(r)
	if token == nil {
		return ""
	}
	return token.Id
}
