package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/keywarden/internal/keys"
	"github.com/dropDatabas3/keywarden/internal/security/secretbox"
	"github.com/dropDatabas3/keywarden/internal/store/fs"
	"github.com/dropDatabas3/keywarden/internal/validation"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	st, err := fs.New(filepath.Join(t.TempDir(), "keys.json"))
	require.NoError(t, err)
	box, err := secretbox.New("test-master-password")
	require.NoError(t, err)

	r := chi.NewRouter()
	NewKeysHandler(keys.New(st, box, 2)).Register(r)
	NewValidateHandler(validation.New(st, box)).Register(r)
	(&HealthHandler{Version: "test"}).Register(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func generateKey(t *testing.T, r http.Handler, clientID, alias string) map[string]any {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/keys/generate", map[string]any{
		"client_id":  clientID,
		"key_alias":  alias,
		"created_by": "admin",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var out map[string]any
	decodeBody(t, w, &out)
	return out
}

func TestGenerate_ReturnsPlaintextOnce(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	out := generateKey(t, r, "MLM_PROD", "MLM Prod Key 2025-Q3")
	require.NotEmpty(t, out["id"])
	require.Equal(t, "MLM_PROD", out["client_id"])
	require.Equal(t, "Active", out["status"])
	secret, _ := out["plaintext_secret"].(string)
	require.NotEmpty(t, secret)

	// el listado no devuelve ni el plaintext ni el cifrado
	w := doJSON(t, r, http.MethodGet, "/keys/MLM_PROD", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), secret)
	require.NotContains(t, w.Body.String(), "encrypted_secret")
}

func TestGenerate_MissingFields(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/keys/generate", map[string]any{
		"client_id": "MLM_PROD",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerate_RotationCapsActiveCount(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	generateKey(t, r, "ROT_PROD", "Key 1")
	generateKey(t, r, "ROT_PROD", "Key 2")
	generateKey(t, r, "ROT_PROD", "Key 3")

	w := doJSON(t, r, http.MethodGet, "/keys/ROT_PROD/active-count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var count map[string]any
	decodeBody(t, w, &count)
	require.Equal(t, float64(2), count["active_key_count"])
	require.Equal(t, float64(2), count["max_allowed"])

	w = doJSON(t, r, http.MethodGet, "/keys/ROT_PROD", nil)
	var list []map[string]any
	decodeBody(t, w, &list)
	require.Len(t, list, 3)
	require.Equal(t, "Inactive", list[0]["status"])
}

func TestStatus_NotFound(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/keys/status/no-such-key", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "no-such-key")
}

func TestDeactivate_Flow(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	out := generateKey(t, r, "DEACT_PROD", "Key 1")
	id, _ := out["id"].(string)

	w := doJSON(t, r, http.MethodPost, "/keys/"+id+"/deactivate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var deact map[string]any
	decodeBody(t, w, &deact)
	require.Equal(t, "Inactive", deact["status"])
	require.NotEmpty(t, deact["deactivated_at"])

	w = doJSON(t, r, http.MethodGet, "/keys/status/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]any
	decodeBody(t, w, &status)
	require.Equal(t, "Inactive", status["status"])
}

func TestDeactivate_NotFound(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/keys/missing-id/deactivate", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "keywarden")

	w = doJSON(t, r, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
