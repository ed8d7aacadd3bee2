package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/currency-exchange-api/internal/application/rate"
	"github.com/currency-exchange-api/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	maxStreamPairs  = 10
	streamWriteWait = 10 * time.Second
)

// RateHandler serves quotes, reservations and the live quote stream.
type RateHandler struct {
	svc      rate.Service
	tick     time.Duration
	upgrader websocket.Upgrader
}

func NewRateHandler(svc rate.Service, tick time.Duration) *RateHandler {
	if tick <= 0 {
		tick = 10 * time.Second
	}
	return &RateHandler{
		svc:      svc,
		tick:     tick,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (h *RateHandler) List(w http.ResponseWriter, r *http.Request) {
	table, err := h.svc.GetAllRates(r.Context(), r.URL.Query().Get("base"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (h *RateHandler) Get(w http.ResponseWriter, r *http.Request) {
	pair, err := domain.NewPair(chi.URLParam(r, "from"), chi.URLParam(r, "to"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	q, err := h.svc.GetRate(r.Context(), pair)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *RateHandler) Historical(w http.ResponseWriter, r *http.Request) {
	table, err := h.svc.Historical(r.Context(), r.URL.Query().Get("date"), r.URL.Query().Get("base"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (h *RateHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	st := h.svc.TestConnection(r.Context())
	status := http.StatusOK
	if !st.Connected {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, st)
}

func (h *RateHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req domain.ReserveRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Reserve(r.Context(), userID, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *RateHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	res, err := h.svc.GetReservation(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parseStreamPairs reads ?pairs=USD_EUR,GBP_JPY.
func parseStreamPairs(raw string) ([]domain.Pair, error) {
	var pairs []domain.Pair
	for _, key := range strings.Split(raw, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		p, err := domain.ParsePairKey(key)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		return nil, domain.NewValidationError("pairs", "at least one FROM_TO pair is required")
	}
	if len(pairs) > maxStreamPairs {
		return nil, domain.NewValidationError("pairs", "too many pairs")
	}
	return pairs, nil
}

type streamFrame struct {
	Quotes []domain.RateQuote `json:"quotes"`
	Errors map[string]string  `json:"errors,omitempty"`
	SentAt time.Time          `json:"sent_at"`
}

func (h *RateHandler) frame(r *http.Request, pairs []domain.Pair) streamFrame {
	f := streamFrame{Quotes: make([]domain.RateQuote, 0, len(pairs)), SentAt: time.Now().UTC()}
	for _, p := range pairs {
		q, err := h.svc.GetRate(r.Context(), p)
		if err != nil {
			if f.Errors == nil {
				f.Errors = map[string]string{}
			}
			f.Errors[p.Key()] = err.Error()
			continue
		}
		f.Quotes = append(f.Quotes, q)
	}
	return f
}

// Stream upgrades to a websocket and pushes a frame of quotes for the
// requested pairs on every tick until the client goes away.
func (h *RateHandler) Stream(w http.ResponseWriter, r *http.Request) {
	pairs, err := parseStreamPairs(r.URL.Query().Get("pairs"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	t := time.NewTicker(h.tick)
	defer t.Stop()
	for {
		msg, err := json.Marshal(h.frame(r, pairs))
		if err != nil {
			slog.Error("encoding rate frame", "err", err)
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-t.C:
		}
	}
}
