package auth

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/bimerz/portal-service/internal/customer"
	"github.com/bimerz/portal-service/internal/httpx"
	"github.com/bimerz/portal-service/internal/jalali"
	"github.com/bimerz/portal-service/internal/principal"
)

// Limiter throttles login attempts; *cache.RateLimiter implements it.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type Handler struct {
	svc     *AuthService
	limiter Limiter
	logger  *zap.SugaredLogger
}

func NewHandler(svc *AuthService, limiter Limiter, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, limiter: limiter, logger: logger}
}

type loginRequest struct {
	NationalCode  string `json:"national_code"`
	InsuranceCode string `json:"insurance_code"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if h.limiter != nil && !h.limiter.Allow(r.Context(), "login:"+clientIP(r)+":"+jalali.ToLatinDigits(in.NationalCode)) {
		httpx.WriteError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}
	res, err := h.svc.Login(r.Context(), in.NationalCode, in.InsuranceCode)
	if err != nil {
		h.writeErr(w, "login", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type verifyRequest struct {
	PendingToken string `json:"pending_token"`
	Code         string `json:"code"`
}

func (h *Handler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	var in verifyRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	res, err := h.svc.VerifyTOTP(r.Context(), in.PendingToken, in.Code)
	if err != nil {
		h.writeErr(w, "verify 2fa", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// Setup2FA needs a signed-in caller.
func (h *Handler) Setup2FA(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	secret, url, err := h.svc.SetupTOTP(r.Context(), p.CustomerID)
	if err != nil {
		h.writeErr(w, "setup 2fa", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"secret": secret, "otpauth_url": url})
}

func (h *Handler) Enable2FA(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	var in struct {
		Code string `json:"code"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.svc.EnableTOTP(r.Context(), p.CustomerID, in.Code); err != nil {
		h.writeErr(w, "enable 2fa", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": true})
}

// Verify reports who the token belongs to.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"valid": true, "customer_id": p.CustomerID, "role": p.Role})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	if err := h.svc.Logout(r.Context(), p.SessionID); err != nil {
		h.writeErr(w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, customer.ErrBadCredentials), errors.Is(err, ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, customer.ErrLocked):
		httpx.WriteError(w, http.StatusLocked, "account locked, try again later")
	case errors.Is(err, customer.ErrDisabled):
		httpx.WriteError(w, http.StatusForbidden, "account disabled")
	case errors.Is(err, ErrInvalidCode):
		httpx.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrTOTPNotSetUp), errors.Is(err, ErrTOTPEnabled):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, customer.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Warnw(op+" failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, op+" failed")
	}
}
