package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimerz/portal-service/internal/principal"
)

func newAuthMux(t *testing.T, limiter Limiter) (*http.ServeMux, *AuthService) {
	t.Helper()
	svc, _, _, _ := newAuth(t)
	h := NewHandler(svc, limiter, zap.NewNop().Sugar())
	signedIn := Require(svc)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/verify-2fa", h.Verify2FA)
	mux.Handle("POST /auth/2fa/setup", signedIn(http.HandlerFunc(h.Setup2FA)))
	mux.Handle("POST /auth/2fa/enable", signedIn(http.HandlerFunc(h.Enable2FA)))
	mux.Handle("GET /auth/verify", signedIn(http.HandlerFunc(h.Verify)))
	mux.Handle("POST /auth/logout", signedIn(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /admin/only", Require(svc, AdminOnlyRoles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := principal.FromContext(r.Context())
		_, _ = w.Write([]byte(p.Role))
	})))
	return mux, svc
}

func call(mux http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, mux http.Handler, code string) string {
	t.Helper()
	rec := call(mux, http.MethodPost, "/auth/login", "", `{"national_code":"`+code+`","insurance_code":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.AccessToken
}

func TestHandlerLoginVerifyLogout(t *testing.T) {
	mux, _ := newAuthMux(t, nil)
	assert.Equal(t, http.StatusUnauthorized,
		call(mux, http.MethodPost, "/auth/login", "", `{"national_code":"0012345678","insurance_code":"nope"}`).Code)

	tok := login(t, mux, "0012345678")
	rec := call(mux, http.MethodGet, "/auth/verify", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true,"customer_id":2,"role":"customer"}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, call(mux, http.MethodPost, "/auth/logout", tok, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(mux, http.MethodGet, "/auth/verify", tok, "").Code)
}

func TestRequireRoles(t *testing.T) {
	mux, _ := newAuthMux(t, nil)
	assert.Equal(t, http.StatusUnauthorized, call(mux, http.MethodGet, "/admin/only", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(mux, http.MethodGet, "/admin/only", "garbage", "").Code)
	assert.Equal(t, http.StatusForbidden, call(mux, http.MethodGet, "/admin/only", login(t, mux, "0012345678"), "").Code)

	rec := call(mux, http.MethodGet, "/admin/only", login(t, mux, "0000000001"), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())
}

func TestHandlerSetup2FA(t *testing.T) {
	mux, _ := newAuthMux(t, nil)
	tok := login(t, mux, "0012345678")
	rec := call(mux, http.MethodPost, "/auth/2fa/setup", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "otpauth://")

	rec = call(mux, http.MethodPost, "/auth/2fa/enable", tok, `{"code":"12"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(mux, http.MethodPost, "/auth/verify-2fa", "", `{"pending_token":"x","code":"123456"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	mux, _ := newAuthMux(t, denyAll{})
	rec := call(mux, http.MethodPost, "/auth/login", "", `{"national_code":"0012345678","insurance_code":"secret"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(req))
	req.Header.Set("Authorization", "bearer abc ")
	assert.Equal(t, "abc", BearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, BearerToken(req))
}
