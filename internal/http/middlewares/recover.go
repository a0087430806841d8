package middlewares

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/keywarden/internal/observability/logger"
)

// WithRecover captura panics y devuelve un error 500 en lugar de crashear.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log := logger.From(r.Context())
					log.Error("panic recovered",
						logger.Operation("recover"),
						logger.Any("panic", rec),
					)

					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"error":             "internal_server_error",
						"error_description": "panic recovered",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
