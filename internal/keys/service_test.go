package keys

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/keywarden/internal/security/secretbox"
	"github.com/dropDatabas3/keywarden/internal/store/core"
	"github.com/dropDatabas3/keywarden/internal/store/fs"
)

func newTestService(t *testing.T) (*Service, core.KeyStore) {
	t.Helper()
	st, err := fs.New(filepath.Join(t.TempDir(), "keys.json"))
	require.NoError(t, err)
	box, err := secretbox.New("test-master-password")
	require.NoError(t, err)
	return New(st, box, 2), st
}

func TestCreateKey_ReturnsPlaintextOnce(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateKey(ctx, "MLM_PROD", "MLM Prod Key 2025-Q3", "admin", nil)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.NotEmpty(t, created.PlaintextSecret)
	require.Equal(t, core.StatusActive, created.Status)

	// el registro persistido lleva sólo el ciphertext
	rec, err := st.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotEmpty(t, rec.EncryptedSecret)
	require.NotEqual(t, created.PlaintextSecret, rec.EncryptedSecret)
	require.NotContains(t, rec.EncryptedSecret, created.PlaintextSecret)
	require.Equal(t, "admin", rec.CreatedBy)
	require.False(t, rec.CreatedAt.IsZero())
}

func TestCreateKey_RotationScenario(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	// crear 3 keys en secuencia para C1: tras la 3ra, la 1ra (más vieja)
	// queda Inactive y las otras dos Active
	k1, err := svc.CreateKey(ctx, "C1", "key 1", "admin", nil)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond) // created_at estrictamente creciente
	k2, err := svc.CreateKey(ctx, "C1", "key 2", "admin", nil)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	k3, err := svc.CreateKey(ctx, "C1", "key 3", "admin", nil)
	require.NoError(t, err)

	r1, err := svc.GetKeyStatus(ctx, k1.ID)
	require.NoError(t, err)
	require.Equal(t, core.StatusInactive, r1.Status)
	require.NotNil(t, r1.DeactivatedAt)

	for _, id := range []string{k2.ID, k3.ID} {
		rec, err := svc.GetKeyStatus(ctx, id)
		require.NoError(t, err)
		require.Equal(t, core.StatusActive, rec.Status)
		require.Nil(t, rec.DeactivatedAt)
	}

	count, err := svc.GetActiveKeyCount(ctx, "C1")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestCreateKey_RotationDeactivatesExactlyOne(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := svc.CreateKey(ctx, "C1", "key", "admin", nil)
		require.NoError(t, err)
		time.Sleep(3 * time.Millisecond)

		count, err := svc.GetActiveKeyCount(ctx, "C1")
		require.NoError(t, err)
		require.LessOrEqual(t, count, 2, "rotation cap exceeded after creation %d", i+1)
	}

	all, err := svc.ListKeysForClient(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, all, 6)

	inactive := 0
	for _, rec := range all {
		if rec.Status == core.StatusInactive {
			inactive++
		}
	}
	require.Equal(t, 4, inactive)
}

func TestCreateKey_RotationEvictsOldest(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)
	ctx := context.Background()

	// sembrar dos keys con created_at invertido respecto al orden de
	// inserción: la elegida tiene que ser la de menor created_at, no la
	// primera insertada
	now := time.Now().UTC()
	newer := core.KeyRecord{
		ID: "newer", ClientID: "C1", KeyAlias: "newer", EncryptedSecret: "enc-newer",
		Status: core.StatusActive, CreatedBy: "admin", CreatedAt: now,
	}
	older := core.KeyRecord{
		ID: "older", ClientID: "C1", KeyAlias: "older", EncryptedSecret: "enc-older",
		Status: core.StatusActive, CreatedBy: "admin", CreatedAt: now.Add(-time.Hour),
	}
	require.NoError(t, st.Add(ctx, &newer))
	require.NoError(t, st.Add(ctx, &older))

	_, err := svc.CreateKey(ctx, "C1", "key 3", "admin", nil)
	require.NoError(t, err)

	evicted, err := st.GetByID(ctx, "older")
	require.NoError(t, err)
	require.Equal(t, core.StatusInactive, evicted.Status)

	kept, err := st.GetByID(ctx, "newer")
	require.NoError(t, err)
	require.Equal(t, core.StatusActive, kept.Status)
}

func TestCreateKey_PendingDeactivationCountsTowardCap(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	pending := core.KeyRecord{
		ID: "pending", ClientID: "C1", KeyAlias: "pending", EncryptedSecret: "enc-p",
		Status: core.StatusPendingDeactivation, CreatedBy: "admin", CreatedAt: now.Add(-time.Hour),
	}
	active := core.KeyRecord{
		ID: "active", ClientID: "C1", KeyAlias: "active", EncryptedSecret: "enc-a",
		Status: core.StatusActive, CreatedBy: "admin", CreatedAt: now,
	}
	require.NoError(t, st.Add(ctx, &pending))
	require.NoError(t, st.Add(ctx, &active))

	// pending + active = 2 => la creación rota y desactiva la pending (más vieja)
	_, err := svc.CreateKey(ctx, "C1", "key 3", "admin", nil)
	require.NoError(t, err)

	rec, err := st.GetByID(ctx, "pending")
	require.NoError(t, err)
	require.Equal(t, core.StatusInactive, rec.Status)
}

// slowStore agranda la ventana entre el conteo y la escritura: GetActive
// tarda, así varias creaciones concurrentes llegan a observar el mismo
// conteo si el servicio no las serializa.
type slowStore struct {
	core.KeyStore
	delay time.Duration
}

func (s *slowStore) GetActive(ctx context.Context, clientID string) ([]core.KeyRecord, error) {
	time.Sleep(s.delay)
	return s.KeyStore.GetActive(ctx, clientID)
}

func TestCreateKey_ConcurrentCreatesRespectCap(t *testing.T) {
	t.Parallel()
	fsStore, err := fs.New(filepath.Join(t.TempDir(), "keys.json"))
	require.NoError(t, err)
	box, err := secretbox.New("test-master-password")
	require.NoError(t, err)
	svc := New(&slowStore{KeyStore: fsStore, delay: 50 * time.Millisecond}, box, 2)
	ctx := context.Background()

	// arrancar con el cliente ya en el tope
	for i := 0; i < 2; i++ {
		_, err := svc.CreateKey(ctx, "C1", "seed", "admin", nil)
		require.NoError(t, err)
		time.Sleep(3 * time.Millisecond)
	}

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateKey(ctx, "C1", "concurrent", "admin", nil)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	// cada creación rotó exactamente una key distinta: el conteo activo
	// nunca supera el tope
	count, err := svc.GetActiveKeyCount(ctx, "C1")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	all, err := svc.ListKeysForClient(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, all, 5)

	inactive := 0
	for _, rec := range all {
		if rec.Status == core.StatusInactive {
			require.NotNil(t, rec.DeactivatedAt)
			inactive++
		}
	}
	require.Equal(t, 3, inactive)
}

func TestCreateKey_ClientsAreIndependent(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.CreateKey(ctx, "A", "key", "admin", nil)
		require.NoError(t, err)
		_, err = svc.CreateKey(ctx, "B", "key", "admin", nil)
		require.NoError(t, err)
	}

	countA, err := svc.GetActiveKeyCount(ctx, "A")
	require.NoError(t, err)
	countB, err := svc.GetActiveKeyCount(ctx, "B")
	require.NoError(t, err)
	require.Equal(t, 2, countA)
	require.Equal(t, 2, countB)
}

func TestDeactivateKey(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateKey(ctx, "C3", "key", "admin", nil)
	require.NoError(t, err)

	rec, err := svc.DeactivateKey(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, core.StatusInactive, rec.Status)
	require.NotNil(t, rec.DeactivatedAt)

	// ausencia explícita para ids desconocidos
	_, err = svc.DeactivateKey(ctx, "no-such-id")
	require.ErrorIs(t, err, core.ErrNotFound)

	// re-desactivar no es error: re-estampa deactivated_at
	again, err := svc.DeactivateKey(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, core.StatusInactive, again.Status)
}

func TestGetKeyStatus_NotFound(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.GetKeyStatus(context.Background(), "missing")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateKey_WithExpiration(t *testing.T) {
	t.Parallel()
	svc, st := newTestService(t)
	ctx := context.Background()

	exp := time.Now().UTC().Add(90 * 24 * time.Hour).Truncate(time.Second)
	created, err := svc.CreateKey(ctx, "C2", "expiring key", "admin", &exp)
	require.NoError(t, err)

	rec, err := st.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.ExpirationDate)
	require.True(t, rec.ExpirationDate.Equal(exp))
}
