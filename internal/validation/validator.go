// Package validation decide si un secreto presentado por un cliente entrante
// corresponde a una key vigente (Active y no expirada) de ese cliente.
package validation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/keywarden/internal/audit"
	"github.com/dropDatabas3/keywarden/internal/observability/logger"
	"github.com/dropDatabas3/keywarden/internal/security/secretbox"
	"github.com/dropDatabas3/keywarden/internal/store/core"
)

// Result es el resultado de una validación. Los rechazos de negocio
// ("no existe", "no activa", "expirada") son datos, no errores: siempre se
// devuelven, nunca se lanzan.
//
// DebugInfo lleva el secreto cifrado como canal de diagnóstico interno;
// jamás va a una respuesta externa.
type Result struct {
	Valid     bool   `json:"valid"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
	DebugInfo string `json:"debug_info,omitempty"`
}

const (
	msgOK     = "Key validation successful"
	msgFailed = "Key validation failed"
)

// Validator valida secretos entrantes contra el store. Store y Box se
// inyectan en la construcción.
type Validator struct {
	store core.KeyStore
	box   *secretbox.Box
	log   *zap.Logger
}

func New(store core.KeyStore, box *secretbox.Box) *Validator {
	return &Validator{store: store, box: box, log: logger.Named("validation")}
}

// Validate chequea el secreto presentado para el cliente dado:
//
//  1. Scan lineal de las keys del cliente comparando el plaintext contra
//     cada ciphertext (el cifrado es no determinístico, así que no sirve
//     buscar por ciphertext); corta en el primer match.
//  2. Sin match => inválido, "not found for this client".
//  3. Match con status != Active => inválido; el reason lleva el status real.
//     Pending Deactivation cuenta para el tope de rotación pero NO autentica
//     tráfico: son dos significados distintos de "activa".
//  4. Match Active con expiration_date estrictamente antes de ahora =>
//     inválido, "expired". Ambos timestamps en UTC.
//  5. Si no, válido.
//
// Los fallos internos (store caído, etc.) se devuelven como
// {valid:false, internal error} en vez de reventar al caller.
func (v *Validator) Validate(ctx context.Context, clientID, secret string) Result {
	res := v.validate(ctx, clientID, secret)

	outcome := audit.OutcomeDenied
	if res.Valid {
		outcome = audit.OutcomeOK
	}
	audit.Event(ctx, audit.OpValidate, outcome, logger.ClientID(clientID))
	return res
}

func (v *Validator) validate(ctx context.Context, clientID, secret string) Result {
	records, err := v.store.GetByClient(ctx, clientID)
	if err != nil {
		v.log.Error("validate: store failure", logger.ClientID(clientID), logger.Err(err))
		return Result{
			Valid:   false,
			Message: msgFailed,
			Error:   fmt.Sprintf("Internal error: %v", err),
		}
	}

	var match *core.KeyRecord
	for i := range records {
		if v.box.CompareToEncrypted(secret, records[i].EncryptedSecret) {
			match = &records[i]
			break
		}
	}

	if match == nil {
		return Result{
			Valid:   false,
			Message: msgFailed,
			Error:   "Key not found for this client",
		}
	}

	if !match.Status.IsValidForInboundTraffic() {
		return Result{
			Valid:     false,
			Message:   msgFailed,
			Error:     fmt.Sprintf("Key is %s", match.Status),
			DebugInfo: fmt.Sprintf("Key: %s", match.EncryptedSecret),
		}
	}

	if match.ExpirationDate != nil && match.ExpirationDate.UTC().Before(time.Now().UTC()) {
		return Result{
			Valid:   false,
			Message: msgFailed,
			Error:   "Key has expired",
		}
	}

	return Result{
		Valid:     true,
		Message:   msgOK,
		DebugInfo: fmt.Sprintf("Key: %s", match.EncryptedSecret),
	}
}

// ValidateSecure es la variante que no filtra nada: sólo el booleano.
func (v *Validator) ValidateSecure(ctx context.Context, clientID, secret string) bool {
	return v.Validate(ctx, clientID, secret).Valid
}
