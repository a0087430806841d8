package core

import "time"

// KeyStatus es el estado de ciclo de vida de una key.
// Las transiciones son sólo hacia adelante:
// Active -> (Pending Deactivation ->) Inactive. Inactive es terminal.
type KeyStatus string

const (
	StatusActive              KeyStatus = "Active"
	StatusPendingDeactivation KeyStatus = "Pending Deactivation"
	StatusInactive            KeyStatus = "Inactive"
)

// CountsTowardRotationCap indica si la key cuenta para el tope de rotación.
// Ojo: "activa" tiene dos significados distintos en este dominio. Para la
// rotación, Pending Deactivation sigue contando; para validar tráfico
// entrante (IsValidForInboundTraffic) sólo Active sirve.
func (s KeyStatus) CountsTowardRotationCap() bool {
	return s == StatusActive || s == StatusPendingDeactivation
}

// IsValidForInboundTraffic indica si la key autentica tráfico entrante.
func (s KeyStatus) IsValidForInboundTraffic() bool {
	return s == StatusActive
}

// KeyRecord es la única entidad persistida: una secret key emitida para un
// cliente. encrypted_secret se fija en la creación y nunca se recalcula;
// el plaintext no se guarda jamás.
type KeyRecord struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"client_id"`
	KeyAlias        string     `json:"key_alias"`
	EncryptedSecret string     `json:"encrypted_secret"`
	Status          KeyStatus  `json:"status"`
	ExpirationDate  *time.Time `json:"expiration_date"`
	CreatedBy       string     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	DeactivatedAt   *time.Time `json:"deactivated_at"`
}

// KeyUpdate describe una actualización parcial de un KeyRecord.
// Sólo status y deactivated_at son mutables; el resto
// de los campos es inmutable después de la creación.
type KeyUpdate struct {
	Status        *KeyStatus
	DeactivatedAt *time.Time
}
