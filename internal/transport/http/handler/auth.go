package handler

import (
	"net/http"

	"github.com/currency-exchange-api/internal/application/auth"
	"github.com/currency-exchange-api/internal/domain"
)

// AuthHandler handles registration, login and one-time code endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) sendCode(channel domain.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.SendCodeRequest
		if !decode(w, r, &req) {
			return
		}
		out, err := h.svc.SendCode(r.Context(), channel, req)
		if err != nil {
			httpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (h *AuthHandler) SendEmailCode(w http.ResponseWriter, r *http.Request) {
	h.sendCode(domain.ChannelEmail)(w, r)
}

func (h *AuthHandler) SendSMSCode(w http.ResponseWriter, r *http.Request) {
	h.sendCode(domain.ChannelSMS)(w, r)
}

func (h *AuthHandler) EmailLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.EmailLoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.EmailLogin(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.IsNewUser {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (h *AuthHandler) RegisterWithPhone(w http.ResponseWriter, r *http.Request) {
	var req domain.PhoneRegisterRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.RegisterWithPhone(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) LoginWithPhone(w http.ResponseWriter, r *http.Request) {
	var req domain.PhoneLoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.LoginWithPhone(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
}

// VerificationStats is admin only.
func (h *AuthHandler) VerificationStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.VerificationStats(r.Context())
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
