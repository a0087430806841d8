package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_HappyPath(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	out := generateKey(t, r, "MLM_PROD", "Key 1")
	secret, _ := out["plaintext_secret"].(string)

	w := doJSON(t, r, http.MethodPost, "/keys/validate", map[string]any{
		"client_id":  "MLM_PROD",
		"secret_key": secret,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var res map[string]any
	decodeBody(t, w, &res)
	require.Equal(t, true, res["valid"])
	require.Equal(t, "Key validation successful", res["message"])
}

func TestValidate_WrongSecretIs200Invalid(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	generateKey(t, r, "MLM_PROD", "Key 1")

	// secreto incorrecto: 200 con valid=false, no un 401/403
	w := doJSON(t, r, http.MethodPost, "/keys/validate", map[string]any{
		"client_id":  "MLM_PROD",
		"secret_key": "not-the-secret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var res map[string]any
	decodeBody(t, w, &res)
	require.Equal(t, false, res["valid"])
	require.Equal(t, "Key validation failed", res["message"])
}

func TestValidate_UnknownClient(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/keys/validate", map[string]any{
		"client_id":  "UNKNOWN_CLIENT",
		"secret_key": "anything",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var res map[string]any
	decodeBody(t, w, &res)
	require.Equal(t, false, res["valid"])
}

func TestValidate_CrossClientSecretFails(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	out := generateKey(t, r, "CLIENT_A", "Key A")
	secret, _ := out["plaintext_secret"].(string)
	generateKey(t, r, "CLIENT_B", "Key B")

	w := doJSON(t, r, http.MethodPost, "/keys/validate", map[string]any{
		"client_id":  "CLIENT_B",
		"secret_key": secret,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var res map[string]any
	decodeBody(t, w, &res)
	require.Equal(t, false, res["valid"])
}

func TestValidate_MissingFields(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/keys/validate", map[string]any{
		"client_id": "MLM_PROD",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidate_DeactivatedKeyFails(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	out := generateKey(t, r, "MLCWS_PROD", "Key 1")
	id, _ := out["id"].(string)
	secret, _ := out["plaintext_secret"].(string)

	w := doJSON(t, r, http.MethodPost, "/keys/"+id+"/deactivate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/keys/validate", map[string]any{
		"client_id":  "MLCWS_PROD",
		"secret_key": secret,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var res map[string]any
	decodeBody(t, w, &res)
	require.Equal(t, false, res["valid"])
	require.Contains(t, res["error"], "Inactive")
}
