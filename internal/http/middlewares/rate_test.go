package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/keywarden/internal/rate"
)

func TestWithRateLimit_BlocksAfterMax(t *testing.T) {
	t.Parallel()
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		WithRateLimit(RateLimitConfig{
			Limiter: rate.NewMemoryLimiter(2, time.Minute),
			KeyFunc: ValidateRateKey,
		}),
	)

	do := func(clientID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/keys/validate",
			strings.NewReader(`{"client_id":"`+clientID+`","secret_key":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.0.0.1:5000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, do("MLM_PROD").Code)
	require.Equal(t, http.StatusOK, do("MLM_PROD").Code)

	blocked := do("MLM_PROD")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	require.NotEmpty(t, blocked.Header().Get("Retry-After"))

	// otro client_id desde la misma IP tiene su propia ventana
	require.Equal(t, http.StatusOK, do("MLCES_PROD").Code)
}

func TestWithRateLimit_NilLimiterPassesThrough(t *testing.T) {
	t.Parallel()
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		WithRateLimit(RateLimitConfig{}),
	)

	req := httptest.NewRequest(http.MethodGet, "/keys/validate", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
}
