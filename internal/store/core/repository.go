package core

import "context"

// KeyStore es el contrato de persistencia de KeyRecord. El core no sabe ni
// le importa si atrás hay un archivo plano o una base de datos: las lecturas
// devuelven lo último commiteado y una escritura o se completa entera o deja
// el estado previo intacto.
//
// Los métodos de lectura devuelven (nil, ErrNotFound) / slice vacío como
// señal de ausencia; ErrStorage (wrapped) ante fallas del medio.
type KeyStore interface {
	// Add agrega un registro nuevo. No pisa registros existentes.
	Add(ctx context.Context, rec *KeyRecord) error

	// GetByID devuelve el registro con ese id, o ErrNotFound.
	GetByID(ctx context.Context, id string) (*KeyRecord, error)

	// GetByClient devuelve los registros del cliente en orden de inserción.
	GetByClient(ctx context.Context, clientID string) ([]KeyRecord, error)

	// GetActive devuelve el subconjunto de GetByClient con status
	// Active o Pending Deactivation (el sentido "rotación" de activa).
	GetActive(ctx context.Context, clientID string) ([]KeyRecord, error)

	// FindByEncryptedSecret busca match exacto de ciphertext entre las keys
	// del cliente. Uso incidental: el Validator NO depende de esto porque el
	// cifrado es no determinístico (compara plaintext contra cada ciphertext).
	FindByEncryptedSecret(ctx context.Context, clientID, encryptedSecret string) (*KeyRecord, error)

	// Update aplica cambios parciales y devuelve el registro resultante.
	Update(ctx context.Context, id string, upd KeyUpdate) (*KeyRecord, error)

	// Deactivate es el wrapper de conveniencia: status=Inactive y
	// deactivated_at=now.
	Deactivate(ctx context.Context, id string) (*KeyRecord, error)

	// GetAll devuelve todos los registros.
	GetAll(ctx context.Context) ([]KeyRecord, error)
}
