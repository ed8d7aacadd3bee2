package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestLimit_RejectsOverBurstPerIP(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 2)
	defer rl.Stop()
	h := rl.Limit(http.HandlerFunc(okHandler))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}
	assert.Equal(t, http.StatusOK, send("1.1.1.1:1000").Code)
	assert.Equal(t, http.StatusOK, send("1.1.1.1:1001").Code)
	rr := send("1.1.1.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests","retry_after":1}`, rr.Body.String())
	assert.Equal(t, http.StatusOK, send("2.2.2.2:1000").Code)
}

func TestLimit_IgnoresForwardingHeadersFromPeer(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	defer rl.Stop()
	h := rl.Limit(http.HandlerFunc(okHandler))

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-Ip", fmt.Sprintf("10.0.1.%d", i))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestLimit_BehindTrustedProxyKeysOnForwardedClient(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	defer rl.Stop()
	h := chimiddleware.RealIP(rl.Limit(http.HandlerFunc(okHandler)))

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:443"
		req.Header.Set("X-Forwarded-For", client)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusOK, send("198.51.100.7"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.7"))
	assert.Equal(t, http.StatusOK, send("198.51.100.8"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.168.1.1:54321", "192.168.1.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"198.51.100.7", "198.51.100.7"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		req.Header.Set("X-Forwarded-For", "1.2.3.4")
		assert.Equal(t, tt.want, clientIP(req), tt.remote)
	}
}
