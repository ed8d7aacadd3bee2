package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/currency-exchange-api/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRateSvc struct{ mock.Mock }

func (m *mockRateSvc) GetRate(ctx context.Context, pair domain.Pair) (domain.RateQuote, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(domain.RateQuote), args.Error(1)
}
func (m *mockRateSvc) GetAllRates(ctx context.Context, base string) (domain.RateTable, error) {
	args := m.Called(ctx, base)
	return args.Get(0).(domain.RateTable), args.Error(1)
}
func (m *mockRateSvc) Historical(ctx context.Context, date, base string) (domain.RateTable, error) {
	args := m.Called(ctx, date, base)
	return args.Get(0).(domain.RateTable), args.Error(1)
}
func (m *mockRateSvc) TestConnection(ctx context.Context) domain.ConnectionStatus {
	return m.Called(ctx).Get(0).(domain.ConnectionStatus)
}
func (m *mockRateSvc) Reserve(ctx context.Context, userID string, req domain.ReserveRequest) (*domain.RateReservation, error) {
	args := m.Called(ctx, userID, req)
	if r, _ := args.Get(0).(*domain.RateReservation); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRateSvc) GetReservation(ctx context.Context, userID, reservationID string) (*domain.RateReservation, error) {
	args := m.Called(ctx, userID, reservationID)
	if r, _ := args.Get(0).(*domain.RateReservation); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRateSvc) Redeem(ctx context.Context, userID, reservationID string, pair domain.Pair) (*domain.RateReservation, error) {
	args := m.Called(ctx, userID, reservationID, pair)
	if r, _ := args.Get(0).(*domain.RateReservation); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

var usdEur = domain.Pair{From: "USD", To: "EUR"}

func eurQuote() domain.RateQuote {
	return domain.RateQuote{From: "USD", To: "EUR", Rate: decimal.RequireFromString("0.91"), Source: domain.SourceLive}
}

func TestRateGet(t *testing.T) {
	svc := &mockRateSvc{}
	svc.On("GetRate", mock.Anything, usdEur).Return(eurQuote(), nil)
	h := NewRateHandler(svc, time.Second)

	rr := httptest.NewRecorder()
	h.Get(rr, withURLParams(httptest.NewRequest(http.MethodGet, "/api/rates/usd/eur", nil), "from", "usd", "to", "eur"))
	require.Equal(t, http.StatusOK, rr.Code)
	var q domain.RateQuote
	decodeBody(t, rr, &q)
	assert.Equal(t, "0.91", q.Rate.String())
}

func TestRateGet_BadCodeAndUnavailable(t *testing.T) {
	svc := &mockRateSvc{}
	svc.On("GetRate", mock.Anything, usdEur).Return(domain.RateQuote{}, &domain.RateUnavailableError{Pair: usdEur})
	h := NewRateHandler(svc, time.Second)

	rr := httptest.NewRecorder()
	h.Get(rr, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), "from", "US", "to", "EUR"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.Get(rr, withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), "from", "USD", "to", "EUR"))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRateTestConnection(t *testing.T) {
	svc := &mockRateSvc{}
	svc.On("TestConnection", mock.Anything).Return(domain.ConnectionStatus{Connected: false, Error: "timeout"}).Once()
	h := NewRateHandler(svc, time.Second)

	rr := httptest.NewRecorder()
	h.TestConnection(rr, httptest.NewRequest(http.MethodGet, "/api/rates/test", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRateHistorical_PassesQuery(t *testing.T) {
	svc := &mockRateSvc{}
	svc.On("Historical", mock.Anything, "2024-01-31", "EUR").Return(domain.RateTable{Base: "EUR", Date: "2024-01-31", Source: domain.SourceFallback}, nil)
	h := NewRateHandler(svc, time.Second)

	rr := httptest.NewRecorder()
	h.Historical(rr, httptest.NewRequest(http.MethodGet, "/api/rates/historical?date=2024-01-31&base=EUR", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestReserve_RequiresAuth(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockRateSvc{}
	svc.On("Reserve", mock.Anything, "u1", mock.AnythingOfType("domain.ReserveRequest")).
		Return(&domain.RateReservation{ReservationID: "RES-1", UserID: "u1", Rate: decimal.RequireFromString("0.91")}, nil)
	h := NewRateHandler(svc, time.Second)
	body := []byte(`{"from":"USD","to":"EUR","amount":"250"}`)

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Reserve), rr, httptest.NewRequest(http.MethodPost, "/api/rates/reserve", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Reserve), rr, bearerReq(t, p, http.MethodPost, "/api/rates/reserve", "u1", domain.RoleUser, body))
	require.Equal(t, http.StatusCreated, rr.Code)
	var res domain.RateReservation
	decodeBody(t, rr, &res)
	assert.Equal(t, "RES-1", res.ReservationID)
}

func TestParseStreamPairs(t *testing.T) {
	pairs, err := parseStreamPairs("usd_eur, GBP_JPY,")
	require.NoError(t, err)
	assert.Equal(t, []domain.Pair{usdEur, {From: "GBP", To: "JPY"}}, pairs)

	_, err = parseStreamPairs("")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = parseStreamPairs("USDEUR")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = parseStreamPairs(strings.Repeat("USD_EUR,", maxStreamPairs+1))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStream_PushesFrames(t *testing.T) {
	svc := &mockRateSvc{}
	svc.On("GetRate", mock.Anything, usdEur).Return(eurQuote(), nil)
	svc.On("GetRate", mock.Anything, domain.Pair{From: "USD", To: "XXX"}).
		Return(domain.RateQuote{}, &domain.RateUnavailableError{Pair: domain.Pair{From: "USD", To: "XXX"}})
	h := NewRateHandler(svc, 20*time.Millisecond)

	r := chi.NewRouter()
	r.Get("/stream", h.Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream?pairs=USD_EUR,USD_XXX"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var f streamFrame
		require.NoError(t, json.Unmarshal(msg, &f))
		require.Len(t, f.Quotes, 1)
		assert.Equal(t, "0.91", f.Quotes[0].Rate.String())
		assert.Contains(t, f.Errors, "USD_XXX")
	}
}

func TestStream_RejectsBadPairsBeforeUpgrade(t *testing.T) {
	h := NewRateHandler(&mockRateSvc{}, time.Second)
	rr := httptest.NewRecorder()
	h.Stream(rr, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
