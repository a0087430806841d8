package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/keywarden/internal/http"
)

// HealthHandler: liveness trivial, readiness contra el store.
type HealthHandler struct {
	Version string
	// Ready consulta el store; nil significa "siempre listo".
	Ready func(ctx context.Context) error
}

func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/", h.Root)
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"service": "keywarden",
		"version": h.Version,
		"status":  "operational",
		"endpoints": map[string]string{
			"health":  "/healthz",
			"metrics": "/metrics",
		},
	})
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r.Context()); err != nil {
			httpx.WriteError(w, http.StatusServiceUnavailable, "not_ready", err.Error(), 1503)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
