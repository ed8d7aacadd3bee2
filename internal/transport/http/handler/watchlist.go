package handler

import (
	"net/http"

	"github.com/currency-exchange-api/internal/application/watchlist"
	"github.com/currency-exchange-api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// WatchlistHandler serves the user's watched pairs and rate alerts.
type WatchlistHandler struct {
	svc watchlist.Service
}

func NewWatchlistHandler(svc watchlist.Service) *WatchlistHandler {
	return &WatchlistHandler{svc: svc}
}

func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := h.svc.List(r.Context(), userID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope{Data: items, Count: len(items)})
}

func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req domain.AddWatchlistRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := h.svc.Add(r.Context(), userID, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.Remove(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "removed from watchlist"})
}

func (h *WatchlistHandler) SetAlert(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req domain.SetAlertRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.svc.SetAlert(r.Context(), userID, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *WatchlistHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	alerts, err := h.svc.ListAlerts(r.Context(), userID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope{Data: alerts, Count: len(alerts)})
}

func (h *WatchlistHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAlert(r.Context(), userID, chi.URLParam(r, "from"), chi.URLParam(r, "to")); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "alert deleted"})
}
