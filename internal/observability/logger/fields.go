package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar del servicio. Centralizarlos acá mantiene los nombres
// consistentes entre handlers, services y auditoría.

// ===== HTTP =====

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }

func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

// ===== Dominio =====

func ClientID(v string) zap.Field { return zap.String("client_id", v) }
func KeyID(v string) zap.Field    { return zap.String("key_id", v) }
func KeyAlias(v string) zap.Field { return zap.String("key_alias", v) }
func KeyStatus(v string) zap.Field {
	return zap.String("key_status", v)
}
func Operation(v string) zap.Field  { return zap.String("operation", v) }
func Outcome(v string) zap.Field    { return zap.String("outcome", v) }
func CreatedBy(v string) zap.Field  { return zap.String("created_by", v) }
func ActiveCount(v int) zap.Field   { return zap.Int("active_key_count", v) }
func CreatedAt(v time.Time) zap.Field {
	return zap.Time("created_at", v)
}

// Err es el campo de error estándar.
func Err(err error) zap.Field { return zap.Error(err) }

// Any es el escape genérico para valores sin helper propio.
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
