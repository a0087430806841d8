// Package keys implementa el ciclo de vida de las secret keys por cliente:
// creación bajo política de rotación, desactivación manual y consultas.
package keys

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/keywarden/internal/audit"
	"github.com/dropDatabas3/keywarden/internal/observability/logger"
	"github.com/dropDatabas3/keywarden/internal/security/secretbox"
	"github.com/dropDatabas3/keywarden/internal/store/core"
)

// DefaultMaxActivePerClient es el tope de rotación por defecto.
const DefaultMaxActivePerClient = 2

// Service maneja creación, rotación y desactivación de keys. Tanto el store
// como el Box se inyectan en la construcción: nada de singletons de paquete.
type Service struct {
	store     core.KeyStore
	box       *secretbox.Box
	maxActive int
	log       *zap.Logger

	// mu protege el mapa de locks; cada entrada serializa las mutaciones
	// de un cliente. El ciclo de rotación (contar -> desactivar -> agregar)
	// son tres llamadas al store: sin este lock, dos creaciones concurrentes
	// ven el mismo conteo pre-rotación y el cliente termina con más keys
	// activas que maxActive.
	mu      sync.Mutex
	clients map[string]*sync.Mutex
}

// New construye el Service. maxActive <= 0 usa el default (2).
func New(store core.KeyStore, box *secretbox.Box, maxActive int) *Service {
	if maxActive <= 0 {
		maxActive = DefaultMaxActivePerClient
	}
	return &Service{
		store:     store,
		box:       box,
		maxActive: maxActive,
		log:       logger.Named("keys"),
		clients:   make(map[string]*sync.Mutex),
	}
}

// clientLock devuelve el mutex del cliente, creándolo la primera vez.
// Los locks no se recolectan: un mutex por cliente visto es barato frente
// al registro de keys que igual crece por cliente.
func (s *Service) clientLock(clientID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.clients[clientID]
	if !ok {
		m = &sync.Mutex{}
		s.clients[clientID] = m
	}
	return m
}

// CreatedKey es el resultado de CreateKey. PlaintextSecret se devuelve acá
// una única vez: no se persiste nunca en claro y no hay otra operación que
// lo recupere.
type CreatedKey struct {
	ID              string         `json:"id"`
	ClientID        string         `json:"client_id"`
	KeyAlias        string         `json:"key_alias"`
	PlaintextSecret string         `json:"plaintext_secret"`
	Status          core.KeyStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
}

// CreateKey crea una key nueva para el cliente aplicando la política de
// rotación: si ya hay maxActive keys activas-o-pendientes, se desactiva la
// más vieja (por created_at) antes de crear la nueva, así el conteo nunca
// supera maxActive.
//
// El trigger es "mayor o igual": comparar con "mayor que" dejaría convivir
// maxActive+1 keys activas por un rato. Ver DESIGN.md.
//
// Cualquier fallo de generación, cifrado o persistencia aborta la operación
// sin registro parcial: Add es el único punto de escritura del registro nuevo.
//
// El ciclo completo corre bajo el lock del cliente: el conteo observado en
// GetActive sigue siendo cierto cuando llega el Add. El lock serializa dentro
// del proceso; correr varias réplicas contra el mismo Postgres necesita un
// lock externo (p.ej. advisory lock).
func (s *Service) CreateKey(ctx context.Context, clientID, keyAlias, createdBy string, expirationDate *time.Time) (*CreatedKey, error) {
	s.log.Info("creating new key for client",
		logger.ClientID(clientID),
		logger.KeyAlias(keyAlias),
		logger.CreatedBy(createdBy),
	)

	lock := s.clientLock(clientID)
	lock.Lock()
	defer lock.Unlock()

	active, err := s.store.GetActive(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get active keys: %w", err)
	}
	s.log.Debug("retrieved active keys for client",
		logger.ClientID(clientID),
		logger.ActiveCount(len(active)),
	)

	if len(active) >= s.maxActive {
		oldest := oldestByCreatedAt(active)
		s.log.Warn("too many active keys, deactivating oldest",
			logger.ClientID(clientID),
			logger.ActiveCount(len(active)),
			logger.KeyID(oldest.ID),
			logger.KeyAlias(oldest.KeyAlias),
			logger.CreatedAt(oldest.CreatedAt),
		)
		if _, err := s.store.Deactivate(ctx, oldest.ID); err != nil {
			audit.Event(ctx, audit.OpRotate, audit.OutcomeError,
				logger.ClientID(clientID), logger.KeyID(oldest.ID))
			return nil, fmt.Errorf("deactivate oldest key %s: %w", oldest.ID, err)
		}
		audit.Event(ctx, audit.OpRotate, audit.OutcomeOK,
			logger.ClientID(clientID), logger.KeyID(oldest.ID))
	}

	plaintext, err := s.box.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	encrypted, err := s.box.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt secret: %w", err)
	}

	rec := &core.KeyRecord{
		ID:              uuid.NewString(),
		ClientID:        clientID,
		KeyAlias:        keyAlias,
		EncryptedSecret: encrypted,
		Status:          core.StatusActive,
		ExpirationDate:  expirationDate,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.store.Add(ctx, rec); err != nil {
		audit.Event(ctx, audit.OpCreate, audit.OutcomeError,
			logger.ClientID(clientID), logger.KeyAlias(keyAlias))
		return nil, fmt.Errorf("persist key: %w", err)
	}

	s.log.Info("key created",
		logger.KeyID(rec.ID),
		logger.ClientID(clientID),
		logger.KeyAlias(keyAlias),
	)
	audit.Event(ctx, audit.OpCreate, audit.OutcomeOK,
		logger.ClientID(clientID), logger.KeyID(rec.ID))

	return &CreatedKey{
		ID:              rec.ID,
		ClientID:        rec.ClientID,
		KeyAlias:        rec.KeyAlias,
		PlaintextSecret: plaintext,
		Status:          rec.Status,
		CreatedAt:       rec.CreatedAt,
	}, nil
}

// DeactivateKey desactiva manualmente una key: status=Inactive,
// deactivated_at=now. Devuelve core.ErrNotFound si el id no existe.
// Re-desactivar una key ya Inactive simplemente re-estampa deactivated_at;
// no es un error.
//
// La escritura toma el mismo lock de cliente que CreateKey, así una
// desactivación manual no se cruza con una rotación en curso.
func (s *Service) DeactivateKey(ctx context.Context, keyID string) (*core.KeyRecord, error) {
	existing, err := s.store.GetByID(ctx, keyID)
	if err != nil {
		s.log.Warn("deactivate failed", logger.KeyID(keyID), logger.Err(err))
		audit.Event(ctx, audit.OpDeactivate, audit.OutcomeError, logger.KeyID(keyID))
		return nil, err
	}

	lock := s.clientLock(existing.ClientID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.store.Deactivate(ctx, keyID)
	if err != nil {
		s.log.Warn("deactivate failed", logger.KeyID(keyID), logger.Err(err))
		audit.Event(ctx, audit.OpDeactivate, audit.OutcomeError, logger.KeyID(keyID))
		return nil, err
	}
	s.log.Info("key deactivated",
		logger.KeyID(keyID),
		logger.KeyStatus(string(rec.Status)),
	)
	audit.Event(ctx, audit.OpDeactivate, audit.OutcomeOK,
		logger.ClientID(rec.ClientID), logger.KeyID(keyID))
	return rec, nil
}

// GetKeyStatus devuelve el registro completo, o core.ErrNotFound.
func (s *Service) GetKeyStatus(ctx context.Context, keyID string) (*core.KeyRecord, error) {
	return s.store.GetByID(ctx, keyID)
}

// ListKeysForClient lista todos los registros del cliente.
func (s *Service) ListKeysForClient(ctx context.Context, clientID string) ([]core.KeyRecord, error) {
	return s.store.GetByClient(ctx, clientID)
}

// GetActiveKeyCount cuenta las keys activas-o-pendientes del cliente.
func (s *Service) GetActiveKeyCount(ctx context.Context, clientID string) (int, error) {
	active, err := s.store.GetActive(ctx, clientID)
	if err != nil {
		return 0, err
	}
	return len(active), nil
}

// MaxActivePerClient expone el tope de rotación configurado.
func (s *Service) MaxActivePerClient() int { return s.maxActive }

// oldestByCreatedAt devuelve el registro con menor created_at. Empates se
// resuelven de forma estable: gana el primero en orden de inserción.
func oldestByCreatedAt(recs []core.KeyRecord) *core.KeyRecord {
	oldest := &recs[0]
	for i := 1; i < len(recs); i++ {
		if recs[i].CreatedAt.Before(oldest.CreatedAt) {
			oldest = &recs[i]
		}
	}
	return oldest
}
