package handler

import (
	"net/http"
	"time"

	"github.com/currency-exchange-api/internal/application/calculator"
	"github.com/currency-exchange-api/internal/domain"
)

// CalculateHandler prices exchanges without recording them.
type CalculateHandler struct {
	svc calculator.Service
}

func NewCalculateHandler(svc calculator.Service) *CalculateHandler {
	return &CalculateHandler{svc: svc}
}

func (h *CalculateHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req domain.CalculateRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Calculate(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CalculateHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	var req domain.ReverseRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.CalculateReverse(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Monitoring prices the request at the current rate and at both edges of
// the spread band.
func (h *CalculateHandler) Monitoring(w http.ResponseWriter, r *http.Request) {
	var req domain.SpreadRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.CalculateWithSpread(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type batchError struct {
	Error string `json:"error"`
}

type batchResponse struct {
	Results      map[string]interface{} `json:"batch_results"`
	CalculatedAt time.Time              `json:"calculated_at"`
}

// Batch answers with one entry per FROM_TO key; a failed pair carries an
// error object in place of its calculation.
func (h *CalculateHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchRequest
	if !decode(w, r, &req) {
		return
	}
	items, err := h.svc.CalculateBatch(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	out := batchResponse{Results: make(map[string]interface{}, len(items)), CalculatedAt: time.Now().UTC()}
	for _, it := range items {
		if it.Err != nil {
			out.Results[it.Pair.Key()] = batchError{Error: it.Err.Error()}
			continue
		}
		out.Results[it.Pair.Key()] = it.Result
	}
	writeJSON(w, http.StatusOK, out)
}
