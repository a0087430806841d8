// Package audit emite eventos estructurados por cada transición de ciclo de
// vida de una key (creación, rotación, desactivación, validación).
//
// Invariante: un evento de auditoría jamás lleva un secreto en plaintext;
// sólo ids de registro y, a lo sumo, la forma cifrada.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/keywarden/internal/observability/logger"
)

// Operaciones auditadas.
const (
	OpCreate     = "key.create"
	OpRotate     = "key.rotate"
	OpDeactivate = "key.deactivate"
	OpValidate   = "key.validate"
)

// Resultados.
const (
	OutcomeOK     = "ok"
	OutcomeDenied = "denied"
	OutcomeError  = "error"
)

// Event registra un evento de ciclo de vida. fields se agrega tal cual;
// el caller es responsable de no pasar secretos en claro.
func Event(ctx context.Context, operation, outcome string, fields ...zap.Field) {
	base := []zap.Field{
		logger.Operation(operation),
		logger.Outcome(outcome),
	}
	logger.From(ctx).Named("audit").Info("key lifecycle event", append(base, fields...)...)
}
