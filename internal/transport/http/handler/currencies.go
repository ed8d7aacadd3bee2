package handler

import (
	"net/http"

	"github.com/currency-exchange-api/internal/application/currency"
	"github.com/currency-exchange-api/internal/domain"
	"github.com/currency-exchange-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// CurrencyHandler serves the currency catalogue. Writes are admin only.
type CurrencyHandler struct {
	svc currency.Service
}

func NewCurrencyHandler(svc currency.Service) *CurrencyHandler { return &CurrencyHandler{svc: svc} }

// List hides inactive currencies unless an admin asks for ?all=true.
func (h *CurrencyHandler) List(w http.ResponseWriter, r *http.Request) {
	all := false
	if r.URL.Query().Get("all") == "true" {
		if claims, ok := middleware.ClaimsFromContext(r.Context()); ok && claims.Role == domain.RoleAdmin {
			all = true
		}
	}
	list, err := h.svc.List(r.Context(), all)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope{Data: list, Count: len(list)})
}

func (h *CurrencyHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CurrencyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCurrencyRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CurrencyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateCurrencyRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.Update(r.Context(), chi.URLParam(r, "code"), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CurrencyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "currency deactivated"})
}
