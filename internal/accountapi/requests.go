package accountapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/otp"
)

type accountRequest struct {
	Username string `json:"username"`
	Provider string `json:"provider"`
	Secret   string `json:"secret"`
}

type uriRequest struct {
	URI string `json:"uri"`
}

type updateRequest struct {
	Username string `json:"username"`
	Provider string `json:"provider"`
}

func decodeAccountRequest(r *http.Request) (*accountRequest, error) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Provider = providerName(req.Provider)
	req.Secret = strings.TrimSpace(req.Secret)

	if req.Username == "" {
		return nil, keeper.ErrInvalidField("username must be provided")
	}

	if !otp.IsValidSecret(req.Secret) {
		return nil, keeper.ErrInvalidField("secret is not valid")
	}

	return &req, nil
}

func decodeURIRequest(r *http.Request) (*otp.Payload, error) {
	var req uriRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.URI) == "" {
		return nil, keeper.ErrBadRequest("uri must be provided")
	}

	payload, err := otp.ParseURI(req.URI)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, keeper.ErrBadRequest("uri is not a valid otpauth URI"))
	}

	payload.Username = strings.TrimSpace(payload.Username)
	payload.Provider = providerName(payload.Provider)
	if payload.Username == "" {
		return nil, keeper.ErrInvalidField("username must be provided")
	}

	return payload, nil
}

func decodeUpdateRequest(r *http.Request) (*updateRequest, error) {
	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Provider = providerName(req.Provider)

	if req.Username == "" {
		return nil, keeper.ErrInvalidField("username must be provided")
	}

	return &req, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r == nil || r.Body == nil {
		return keeper.ErrBadRequest("no request body received")
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%v: %w", err, keeper.ErrBadRequest("invalid JSON request"))
	}

	return nil
}

func accountID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, keeper.ErrBadRequest("account id is not valid")
	}
	return id, nil
}

func searchTerms(r *http.Request) []string {
	return strings.Fields(r.URL.Query().Get("q"))
}

func onlyUsed(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("only_used"))
	return err == nil && v
}

func providerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return keeper.DefaultProviderName
	}
	return name
}
