package handler

import (
	"net/http"
	"strconv"

	"github.com/currency-exchange-api/internal/application/exchange"
	"github.com/currency-exchange-api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ExchangeHandler records exchanges and serves their history.
type ExchangeHandler struct {
	svc exchange.Service
}

func NewExchangeHandler(svc exchange.Service) *ExchangeHandler { return &ExchangeHandler{svc: svc} }

func (h *ExchangeHandler) Perform(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req domain.ExchangeRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := h.svc.Perform(r.Context(), userID, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *ExchangeHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := h.svc.History(r.Context(), userID, limit)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope{Data: txs, Count: len(txs)})
}

func (h *ExchangeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	tx, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type receiptResponse struct {
	URL string `json:"url"`
}

func (h *ExchangeHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	url, err := h.svc.ReceiptURL(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{URL: url})
}
