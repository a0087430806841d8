package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/keywarden/internal/http"
	"github.com/dropDatabas3/keywarden/internal/validation"
)

// ValidateHandler expone el endpoint que los clientes usan en cada request
// entrante. Un secreto incorrecto es un 200 con valid=false, no un error
// HTTP: el resultado de la validación es dato, no excepción.
type ValidateHandler struct {
	Validator *validation.Validator
}

func NewValidateHandler(v *validation.Validator) *ValidateHandler {
	return &ValidateHandler{Validator: v}
}

func (h *ValidateHandler) Register(r chi.Router) {
	r.Post("/keys/validate", h.Validate)
}

type validateKeyRequest struct {
	ClientID  string `json:"client_id"`
	SecretKey string `json:"secret_key"`
}

func (h *ValidateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateKeyRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}

	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.ClientID == "" || req.SecretKey == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"client_id y secret_key son obligatorios", 1101)
		return
	}

	res := h.Validator.Validate(r.Context(), req.ClientID, req.SecretKey)
	httpx.RecordKeyValidation(res.Valid)
	httpx.WriteJSON(w, http.StatusOK, res)
}
