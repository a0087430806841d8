package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/keywarden/internal/store/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.json")
	s, err := New(path)
	require.NoError(t, err)
	return s
}

func rec(id, clientID string, status core.KeyStatus, createdAt time.Time) *core.KeyRecord {
	return &core.KeyRecord{
		ID:              id,
		ClientID:        clientID,
		KeyAlias:        "alias " + id,
		EncryptedSecret: "enc-" + id,
		Status:          status,
		CreatedBy:       "admin",
		CreatedAt:       createdAt,
	}
}

func TestNew_InitializesEmptyFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	all, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)

	// el archivo queda con la estructura {"keys": []}
	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Contains(t, raw, "keys")
}

func TestAddAndGetByID(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	exp := now.Add(90 * 24 * time.Hour)
	r := rec("k1", "MLM_PROD", core.StatusActive, now)
	r.ExpirationDate = &exp
	require.NoError(t, s.Add(ctx, r))

	got, err := s.GetByID(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, "MLM_PROD", got.ClientID)
	require.Equal(t, core.StatusActive, got.Status)
	// las fechas tienen que hacer round-trip al mismo instante
	require.True(t, got.CreatedAt.Equal(now))
	require.NotNil(t, got.ExpirationDate)
	require.True(t, got.ExpirationDate.Equal(exp))
	require.Nil(t, got.DeactivatedAt)

	_, err = s.GetByID(ctx, "nope")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetByClient_InsertionOrderAndIsolation(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, s.Add(ctx, rec("a1", "A", core.StatusActive, base)))
	require.NoError(t, s.Add(ctx, rec("b1", "B", core.StatusActive, base)))
	require.NoError(t, s.Add(ctx, rec("a2", "A", core.StatusInactive, base)))

	as, err := s.GetByClient(ctx, "A")
	require.NoError(t, err)
	require.Len(t, as, 2)
	require.Equal(t, "a1", as[0].ID)
	require.Equal(t, "a2", as[1].ID)

	none, err := s.GetByClient(ctx, "C")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestGetActive_CountsPendingDeactivation(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, s.Add(ctx, rec("k1", "C", core.StatusActive, base)))
	require.NoError(t, s.Add(ctx, rec("k2", "C", core.StatusPendingDeactivation, base)))
	require.NoError(t, s.Add(ctx, rec("k3", "C", core.StatusInactive, base)))

	active, err := s.GetActive(ctx, "C")
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, k := range active {
		require.NotEqual(t, core.StatusInactive, k.Status)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, rec("k1", "C", core.StatusActive, time.Now().UTC())))

	st := core.StatusPendingDeactivation
	got, err := s.Update(ctx, "k1", core.KeyUpdate{Status: &st})
	require.NoError(t, err)
	require.Equal(t, core.StatusPendingDeactivation, got.Status)
	require.Nil(t, got.DeactivatedAt)

	// el merge persiste
	again, err := s.GetByID(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, core.StatusPendingDeactivation, again.Status)

	_, err = s.Update(ctx, "missing", core.KeyUpdate{Status: &st})
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeactivate_SetsStatusAndTimestamp(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, rec("k1", "C", core.StatusActive, time.Now().UTC())))

	got, err := s.Deactivate(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, core.StatusInactive, got.Status)
	require.NotNil(t, got.DeactivatedAt)

	_, err = s.Deactivate(ctx, "missing")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestFindByEncryptedSecret(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, rec("k1", "C", core.StatusActive, time.Now().UTC())))

	got, err := s.FindByEncryptedSecret(ctx, "C", "enc-k1")
	require.NoError(t, err)
	require.Equal(t, "k1", got.ID)

	// mismo ciphertext, otro cliente => ausencia
	_, err = s.FindByEncryptedSecret(ctx, "D", "enc-k1")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestConcurrentAdds_NoLostWrites(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	const n = 20
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			done <- s.Add(ctx, rec(string(rune('a'+i)), "C", core.StatusActive, time.Now().UTC()))
		}(i)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-done)
	}

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, n)
}
