package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/currency-exchange-api/internal/domain"
	"github.com/currency-exchange-api/internal/pkg/validate"
	"github.com/currency-exchange-api/internal/transport/http/middleware"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`
	Field             string `json:"field,omitempty"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
	RetryAfter        int    `json:"retry_after,omitempty"`
}

// DataEnvelope wraps list responses.
type DataEnvelope struct {
	Data  interface{} `json:"data"`
	Count int         `json:"count"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps a service error onto a status code. Unknown errors are
// logged and reported generically.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *domain.ValidationError
		ic *domain.InvalidCodeError
		rl *domain.RateLimitedError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, MessageEnvelope{Error: ve.Reason, Field: ve.Field})
	case errors.As(err, &ic):
		remaining := ic.Remaining
		writeJSON(w, http.StatusBadRequest, MessageEnvelope{Error: "invalid verification code", RemainingAttempts: &remaining})
	case errors.As(err, &rl):
		wait := domain.RateLimitStatus{TimeLeft: rl.Wait}.Seconds()
		w.Header().Set("Retry-After", strconv.Itoa(wait))
		writeJSON(w, http.StatusTooManyRequests, MessageEnvelope{Error: rl.Error(), RetryAfter: wait})
	case errors.Is(err, domain.ErrRateUnavailable):
		writeError(w, http.StatusServiceUnavailable, "exchange rate service unavailable")
	case errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrTooManyAttempts),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decode reads a JSON body into dst and runs its validate tags. On failure
// the response has been written and false is returned.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		httpError(w, r, err)
		return false
	}
	return true
}

// currentUser returns the authenticated user id, writing a 401 when the
// request carries no claims.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return claims.UserID, true
}
