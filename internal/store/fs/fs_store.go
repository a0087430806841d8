// Package fs implementa core.KeyStore sobre un único archivo JSON.
//
// Modelo de durabilidad: cada mutación es read-modify-write del archivo
// completo (leer todo → mutar en memoria → reescribir todo). El write es
// atómico (tmp+fsync+rename) y un RWMutex por instancia serializa a los
// escritores, así dos CreateKey concurrentes no se pisan el conteo de
// rotación. Las lecturas toman RLock: observan el estado pre o post de
// cualquier escritura, nunca uno a medias.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dropDatabas3/keywarden/internal/store/core"
	"github.com/dropDatabas3/keywarden/internal/util/atomicwrite"
)

// fileLayout es el layout persistido: {"keys": [...]}.
type fileLayout struct {
	Keys []core.KeyRecord `json:"keys"`
}

// Store implementa core.KeyStore sobre un archivo JSON en disco.
type Store struct {
	path string

	mu sync.RWMutex // serializa el ciclo read-modify-write
}

// New abre (o inicializa) el store en path. Si el archivo no existe o está
// vacío se crea con la colección vacía.
func New(path string) (*Store, error) {
	s := &Store{path: filepath.Clean(path)}
	if err := s.ensureExists(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path devuelve la ruta del archivo de datos.
func (s *Store) Path() string { return s.path }

func (s *Store) ensureExists() error {
	st, err := os.Stat(s.path)
	if os.IsNotExist(err) || (err == nil && st.Size() == 0) {
		return s.write(&fileLayout{Keys: []core.KeyRecord{}})
	}
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", core.ErrStorage, s.path, err)
	}
	return nil
}

// read carga el archivo completo. Llamar con mu tomado (R o W).
func (s *Store) read() (*fileLayout, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", core.ErrStorage, s.path, err)
	}
	var data fileLayout
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", core.ErrStorage, s.path, err)
	}
	return &data, nil
}

// write persiste el archivo completo de forma atómica. Llamar con mu (W).
func (s *Store) write(data *fileLayout) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", core.ErrStorage, err)
	}
	if err := atomicwrite.AtomicWriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %v", core.ErrStorage, s.path, err)
	}
	return nil
}

// ===== core.KeyStore =====

func (s *Store) Add(ctx context.Context, rec *core.KeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	data.Keys = append(data.Keys, *rec)
	return s.write(data)
}

func (s *Store) GetByID(ctx context.Context, id string) (*core.KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.read()
	if err != nil {
		return nil, err
	}
	for i := range data.Keys {
		if data.Keys[i].ID == id {
			rec := data.Keys[i]
			return &rec, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetByClient(ctx context.Context, clientID string) ([]core.KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.read()
	if err != nil {
		return nil, err
	}
	// scan lineal en orden de inserción; no hay índices secundarios
	var out []core.KeyRecord
	for i := range data.Keys {
		if data.Keys[i].ClientID == clientID {
			out = append(out, data.Keys[i])
		}
	}
	return out, nil
}

func (s *Store) GetActive(ctx context.Context, clientID string) ([]core.KeyRecord, error) {
	all, err := s.GetByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	var out []core.KeyRecord
	for i := range all {
		if all[i].Status.CountsTowardRotationCap() {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *Store) FindByEncryptedSecret(ctx context.Context, clientID, encryptedSecret string) (*core.KeyRecord, error) {
	all, err := s.GetByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].EncryptedSecret == encryptedSecret {
			rec := all[i]
			return &rec, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) Update(ctx context.Context, id string, upd core.KeyUpdate) (*core.KeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return nil, err
	}
	for i := range data.Keys {
		if data.Keys[i].ID != id {
			continue
		}
		if upd.Status != nil {
			data.Keys[i].Status = *upd.Status
		}
		if upd.DeactivatedAt != nil {
			data.Keys[i].DeactivatedAt = upd.DeactivatedAt
		}
		if err := s.write(data); err != nil {
			return nil, err
		}
		rec := data.Keys[i]
		return &rec, nil
	}
	return nil, core.ErrNotFound
}

func (s *Store) Deactivate(ctx context.Context, id string) (*core.KeyRecord, error) {
	now := time.Now().UTC()
	st := core.StatusInactive
	return s.Update(ctx, id, core.KeyUpdate{Status: &st, DeactivatedAt: &now})
}

func (s *Store) GetAll(ctx context.Context) ([]core.KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]core.KeyRecord, len(data.Keys))
	copy(out, data.Keys)
	return out, nil
}
