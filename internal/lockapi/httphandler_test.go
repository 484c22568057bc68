package lockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/fmitra/otpkeeper/internal/password"
	"github.com/fmitra/otpkeeper/internal/secretstore"
	"github.com/fmitra/otpkeeper/internal/test"
	"github.com/fmitra/otpkeeper/internal/token"
)

type step struct {
	name       string
	method     string
	path       string
	reqBody    []byte
	withToken  bool
	statusCode int
	errMessage string
	locking    *LockingResponse
}

func newRouter(t *testing.T) (*mux.Router, *secretstore.Store) {
	passwordSvc := password.NewPassword(password.WithCost(bcrypt.MinCost))
	store := secretstore.NewStore(secretstore.WithPassword(passwordSvc))
	tokenSvc, err := token.NewService(token.WithSecret("test-secret"))
	if err != nil {
		t.Fatal("failed to create token service:", err)
	}

	svc := NewService(
		WithSecretStore(store),
		WithPasswordService(passwordSvc),
		WithTokenService(tokenSvc),
	)

	router := mux.NewRouter()
	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	SetupHTTPHandler(svc, router, store, tokenSvc, logger)

	return router, store
}

func serve(router *mux.Router, method, path string, body []byte, remoteAddr, jwt string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBuffer(body))
	}
	req.RemoteAddr = remoteAddr
	if jwt != "" {
		req.Header.Set("AUTHORIZATION", fmt.Sprintf("Bearer %s", jwt))
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func unlock(t *testing.T, router *mux.Router, pass, remoteAddr string) string {
	body := []byte(fmt.Sprintf(`{"password":"%s"}`, pass))
	rr := serve(router, "POST", "/api/v1/unlock", body, remoteAddr, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("failed to unlock, want %v got %v: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var resp TokenResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal("failed to decode response:", err)
	}
	return resp.Token
}

func TestLockAPI_Lifecycle(t *testing.T) {
	router, _ := newRouter(t)

	steps := []step{
		{
			name:       "Initially unlocked",
			method:     "GET",
			path:       "/api/v1/locking",
			statusCode: http.StatusOK,
			locking:    &LockingResponse{},
		},
		{
			name:       "Locking requires password",
			method:     "PUT",
			path:       "/api/v1/locking",
			reqBody:    []byte(`{"enabled":true}`),
			statusCode: http.StatusBadRequest,
			errMessage: "A password must be set before enabling locking",
		},
		{
			name:       "Short password rejected",
			method:     "PUT",
			path:       "/api/v1/password",
			reqBody:    []byte(`{"password":"abc"}`),
			statusCode: http.StatusBadRequest,
			errMessage: "Password must be at least 4 characters long",
		},
		{
			name:       "Password enables locking",
			method:     "PUT",
			path:       "/api/v1/password",
			reqBody:    []byte(`{"password":"swordfish"}`),
			statusCode: http.StatusOK,
			locking:    &LockingResponse{Enabled: true, HasPassword: true, Locked: true},
		},
		{
			name:       "Locked request without token",
			method:     "PUT",
			path:       "/api/v1/password",
			reqBody:    []byte(`{"password":"marlin"}`),
			statusCode: http.StatusLocked,
			errMessage: "Application is locked",
		},
		{
			name:       "Unlocked request with token",
			method:     "PUT",
			path:       "/api/v1/locking",
			reqBody:    []byte(`{"enabled":false}`),
			withToken:  true,
			statusCode: http.StatusOK,
			locking:    &LockingResponse{Enabled: false, HasPassword: true, Locked: false},
		},
		{
			name:       "Password removed",
			method:     "DELETE",
			path:       "/api/v1/password",
			statusCode: http.StatusOK,
			locking:    &LockingResponse{},
		},
		{
			name:       "Missing password not removed",
			method:     "DELETE",
			path:       "/api/v1/password",
			statusCode: http.StatusNotFound,
			errMessage: "No password is set",
		},
	}

	var jwt string
	for i, s := range steps {
		if s.withToken && jwt == "" {
			jwt = unlock(t, router, "swordfish", "192.0.2.10:1234")
		}

		tokenHeader := ""
		if s.withToken {
			tokenHeader = jwt
		}

		remoteAddr := fmt.Sprintf("192.0.2.%d:1234", 100+i)
		rr := serve(router, s.method, s.path, s.reqBody, remoteAddr, tokenHeader)
		if rr.Code != s.statusCode {
			t.Fatalf("%s: incorrect status code, want %v got %v: %s",
				s.name, s.statusCode, rr.Code, rr.Body.String())
		}

		if s.errMessage != "" {
			if err := test.ValidateErrMessage(s.errMessage, rr.Body); err != nil {
				t.Errorf("%s: %v", s.name, err)
			}
		}

		if s.locking != nil {
			var resp LockingResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("%s: failed to decode response: %v", s.name, err)
			}
			if !cmp.Equal(resp, *s.locking) {
				t.Errorf("%s: %s", s.name, cmp.Diff(resp, *s.locking))
			}
		}
	}
}

func TestLockAPI_Unlock(t *testing.T) {
	tt := []struct {
		name       string
		hasPass    bool
		reqBody    []byte
		statusCode int
		errMessage string
	}{
		{
			name:       "No password set",
			hasPass:    false,
			reqBody:    []byte(`{"password":"swordfish"}`),
			statusCode: http.StatusBadRequest,
			errMessage: "No password is set",
		},
		{
			name:       "Wrong password",
			hasPass:    true,
			reqBody:    []byte(`{"password":"marlin"}`),
			statusCode: http.StatusUnauthorized,
			errMessage: "Password is incorrect",
		},
		{
			name:       "Empty password",
			hasPass:    true,
			reqBody:    []byte(`{"password":""}`),
			statusCode: http.StatusBadRequest,
			errMessage: "Password must be provided",
		},
		{
			name:       "Correct password",
			hasPass:    true,
			reqBody:    []byte(`{"password":"swordfish"}`),
			statusCode: http.StatusOK,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			router, store := newRouter(t)
			if tc.hasPass {
				if err := store.SetPassword("swordfish"); err != nil {
					t.Fatal("failed to set password:", err)
				}
			}

			rr := serve(router, "POST", "/api/v1/unlock", tc.reqBody, "192.0.2.1:1234", "")
			if rr.Code != tc.statusCode {
				t.Fatal(cmp.Diff(rr.Code, tc.statusCode), rr.Body.String())
			}

			if tc.errMessage != "" {
				if err := test.ValidateErrMessage(tc.errMessage, rr.Body); err != nil {
					t.Error(err)
				}
				return
			}

			var resp TokenResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatal("failed to decode response:", err)
			}
			if resp.Token == "" {
				t.Error("expected signed token")
			}
		})
	}
}

func TestLockAPI_UnlockIsThrottled(t *testing.T) {
	router, store := newRouter(t)
	if err := store.SetPassword("swordfish"); err != nil {
		t.Fatal("failed to set password:", err)
	}

	body := []byte(`{"password":"marlin"}`)
	rr := serve(router, "POST", "/api/v1/unlock", body, "192.0.2.1:1234", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatal(cmp.Diff(rr.Code, http.StatusUnauthorized))
	}

	rr = serve(router, "POST", "/api/v1/unlock", body, "192.0.2.1:1234", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Error(cmp.Diff(rr.Code, http.StatusTooManyRequests))
	}
}

func TestLockAPI_LogsUnlockSession(t *testing.T) {
	passwordSvc := password.NewPassword(password.WithCost(bcrypt.MinCost))
	store := secretstore.NewStore(secretstore.WithPassword(passwordSvc))
	tokenSvc, err := token.NewService(token.WithSecret("test-secret"))
	if err != nil {
		t.Fatal("failed to create token service:", err)
	}

	var buf bytes.Buffer
	svc := NewService(
		WithLogger(log.NewJSONLogger(log.NewSyncWriter(&buf))),
		WithSecretStore(store),
		WithPasswordService(passwordSvc),
		WithTokenService(tokenSvc),
	)
	router := mux.NewRouter()
	SetupHTTPHandler(svc, router, store, tokenSvc, log.NewNopLogger())

	if err = store.SetPassword("swordfish"); err != nil {
		t.Fatal("failed to set password:", err)
	}
	jwt := unlock(t, router, "swordfish", "192.0.2.20:1234")
	session, err := tokenSvc.Validate(context.Background(), "Bearer "+jwt)
	if err != nil {
		t.Fatal("failed to validate token:", err)
	}

	rr := serve(router, "PUT", "/api/v1/locking", []byte(`{"enabled":false}`), "192.0.2.21:1234", jwt)
	if rr.Code != http.StatusOK {
		t.Fatal(cmp.Diff(rr.Code, http.StatusOK), rr.Body.String())
	}

	var entry map[string]interface{}
	if err = json.NewDecoder(&buf).Decode(&entry); err != nil {
		t.Fatal("failed to decode log entry:", err)
	}
	if entry["session_id"] != session.Id {
		t.Errorf("incorrect session ID, want %s got %v", session.Id, entry["session_id"])
	}
	if entry["source"] != "lockapi.SetLocking" {
		t.Errorf("incorrect source, want lockapi.SetLocking got %v", entry["source"])
	}
}
