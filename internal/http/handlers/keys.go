package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/keywarden/internal/http"
	"github.com/dropDatabas3/keywarden/internal/keys"
	"github.com/dropDatabas3/keywarden/internal/observability/logger"
	"github.com/dropDatabas3/keywarden/internal/store/core"
)

// KeysHandler expone la gestión de claves: creación con rotación automática,
// listado, consulta de estado y desactivación manual.
type KeysHandler struct {
	Service *keys.Service
}

func NewKeysHandler(svc *keys.Service) *KeysHandler {
	return &KeysHandler{Service: svc}
}

// Register monta las rutas. El segmento variable después de /keys/ es un
// client_id en los GET y un key_id en el deactivate; chi exige un solo
// nombre de wildcard por posición, de ahí el "id" genérico.
func (h *KeysHandler) Register(r chi.Router) {
	r.Post("/keys/generate", h.Generate)
	r.Get("/keys/status/{keyID}", h.Status)
	r.Post("/keys/{id}/deactivate", h.Deactivate)
	r.Get("/keys/{id}", h.ListForClient)
	r.Get("/keys/{id}/active-count", h.ActiveCount)
}

// ===== Requests / Responses =====

type createKeyRequest struct {
	ClientID       string     `json:"client_id"`
	KeyAlias       string     `json:"key_alias"`
	CreatedBy      string     `json:"created_by"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

type createKeyResponse struct {
	ID              string         `json:"id"`
	ClientID        string         `json:"client_id"`
	KeyAlias        string         `json:"key_alias"`
	PlaintextSecret string         `json:"plaintext_secret"`
	Status          core.KeyStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	Message         string         `json:"message"`
}

type keyStatusResponse struct {
	ID             string         `json:"id"`
	ClientID       string         `json:"client_id"`
	KeyAlias       string         `json:"key_alias"`
	Status         core.KeyStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpirationDate *time.Time     `json:"expiration_date"`
	DeactivatedAt  *time.Time     `json:"deactivated_at"`
}

type deactivateKeyResponse struct {
	ID            string         `json:"id"`
	Status        core.KeyStatus `json:"status"`
	DeactivatedAt *time.Time     `json:"deactivated_at"`
	Message       string         `json:"message"`
}

func toKeyStatusResponse(k core.KeyRecord) keyStatusResponse {
	// el secreto cifrado no sale por la API
	return keyStatusResponse{
		ID:             k.ID,
		ClientID:       k.ClientID,
		KeyAlias:       k.KeyAlias,
		Status:         k.Status,
		CreatedAt:      k.CreatedAt,
		ExpirationDate: k.ExpirationDate,
		DeactivatedAt:  k.DeactivatedAt,
	}
}

// ===== Handlers =====

// Generate crea una key nueva. El plaintext_secret se devuelve UNA sola vez.
func (h *KeysHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}

	req.ClientID = strings.TrimSpace(req.ClientID)
	req.KeyAlias = strings.TrimSpace(req.KeyAlias)
	req.CreatedBy = strings.TrimSpace(req.CreatedBy)
	if req.ClientID == "" || req.KeyAlias == "" || req.CreatedBy == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"client_id, key_alias y created_by son obligatorios", 1101)
		return
	}

	created, err := h.Service.CreateKey(r.Context(), req.ClientID, req.KeyAlias, req.CreatedBy, req.ExpirationDate)
	if err != nil {
		logger.From(r.Context()).Error("key creation failed",
			logger.ClientID(req.ClientID), logger.Err(err))
		httpx.RecordKeyOperation("create", "error")
		httpx.WriteError(w, http.StatusInternalServerError, "storage_error",
			fmt.Sprintf("Failed to create key: %v", err), 1500)
		return
	}

	httpx.RecordKeyOperation("create", "ok")
	httpx.WriteJSON(w, http.StatusCreated, createKeyResponse{
		ID:              created.ID,
		ClientID:        created.ClientID,
		KeyAlias:        created.KeyAlias,
		PlaintextSecret: created.PlaintextSecret,
		Status:          created.Status,
		CreatedAt:       created.CreatedAt,
		Message:         "Key created successfully. Store the plaintext_secret securely - it cannot be retrieved again.",
	})
}

func (h *KeysHandler) ListForClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")

	recs, err := h.Service.ListKeysForClient(r.Context(), clientID)
	if err != nil {
		httpx.RecordKeyOperation("list", "error")
		httpx.WriteError(w, http.StatusInternalServerError, "storage_error",
			fmt.Sprintf("Failed to retrieve keys: %v", err), 1500)
		return
	}

	out := make([]keyStatusResponse, 0, len(recs))
	for _, k := range recs {
		out = append(out, toKeyStatusResponse(k))
	}
	httpx.RecordKeyOperation("list", "ok")
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *KeysHandler) ActiveCount(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")

	count, err := h.Service.GetActiveKeyCount(r.Context(), clientID)
	if err != nil {
		httpx.RecordKeyOperation("active_count", "error")
		httpx.WriteError(w, http.StatusInternalServerError, "storage_error",
			fmt.Sprintf("Failed to get active key count: %v", err), 1500)
		return
	}

	httpx.RecordKeyOperation("active_count", "ok")
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"client_id":        clientID,
		"active_key_count": count,
		"max_allowed":      h.Service.MaxActivePerClient(),
	})
}

func (h *KeysHandler) Status(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "keyID")

	rec, err := h.Service.GetKeyStatus(r.Context(), keyID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			httpx.RecordKeyOperation("status", "not_found")
			httpx.WriteError(w, http.StatusNotFound, "not_found",
				fmt.Sprintf("Key with ID %s not found", keyID), 1404)
			return
		}
		httpx.RecordKeyOperation("status", "error")
		httpx.WriteError(w, http.StatusInternalServerError, "storage_error",
			"Failed to get key status", 1500)
		return
	}

	httpx.RecordKeyOperation("status", "ok")
	httpx.WriteJSON(w, http.StatusOK, toKeyStatusResponse(*rec))
}

func (h *KeysHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "id")

	rec, err := h.Service.DeactivateKey(r.Context(), keyID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			httpx.RecordKeyOperation("deactivate", "not_found")
			httpx.WriteError(w, http.StatusNotFound, "not_found",
				fmt.Sprintf("Key with ID %s not found", keyID), 1404)
			return
		}
		httpx.RecordKeyOperation("deactivate", "error")
		httpx.WriteError(w, http.StatusInternalServerError, "storage_error",
			"Failed to deactivate key", 1500)
		return
	}

	httpx.RecordKeyOperation("deactivate", "ok")
	httpx.WriteJSON(w, http.StatusOK, deactivateKeyResponse{
		ID:            rec.ID,
		Status:        rec.Status,
		DeactivatedAt: rec.DeactivatedAt,
		Message:       fmt.Sprintf("Key %s has been deactivated", keyID),
	})
}
