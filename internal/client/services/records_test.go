package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/store"
	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

var now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeSyncer struct {
	mu       sync.Mutex
	triggers int
}

func (f *fakeSyncer) Trigger(context.Context) {
	f.mu.Lock()
	f.triggers++
	f.mu.Unlock()
}

func (f *fakeSyncer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triggers
}

type fakeLink bool

func (l fakeLink) Online() bool { return bool(l) }

func setup(t *testing.T, online bool) (*store.Store, RecordService, *fakeSyncer) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:", store.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sy := &fakeSyncer{}
	svc := NewRecordService(st, "owner-1",
		WithClock(func() time.Time { return now }),
		WithSync(sy, fakeLink(online)),
	)
	return st, svc, sy
}

// putSynced stores a clean confirmed record.
func putSynced(t *testing.T, st *store.Store, id int64, e models.Entity) {
	t.Helper()
	rec := &cmodels.Record{OwnerID: "owner-1"}
	rec.ApplyCanonical(models.Canonical{ID: id, ClientRef: uuid.NewString(), UpdatedAt: now, Entity: e}, now)
	require.NoError(t, st.Put(context.Background(), rec))
}

func TestAdd(t *testing.T) {
	st, svc, sy := setup(t, false)
	ctx := context.Background()

	rec, err := svc.Add(ctx, models.Client{Name: "Ama", Phone: "0244123456"})
	require.NoError(t, err)

	assert.Less(t, rec.ID, int64(0))
	assert.Equal(t, "owner-1", rec.OwnerID)
	_, err = uuid.Parse(rec.ClientRef)
	assert.NoError(t, err)
	assert.True(t, rec.PendingSync)
	assert.False(t, rec.Conflict)
	assert.Equal(t, now, rec.UpdatedAt)

	stored, err := st.Get(ctx, models.Clients, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Entity, stored.Entity)

	assert.Equal(t, 0, sy.count(), "offline writes do not trigger a sync")
}

func TestAdd_TriggersSyncWhenOnline(t *testing.T) {
	_, svc, sy := setup(t, true)

	_, err := svc.Add(context.Background(), models.InventoryItem{Name: "Kente", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, sy.count())
}

func TestAdd_Rejects(t *testing.T) {
	_, svc, sy := setup(t, true)
	ctx := context.Background()

	tests := []struct {
		name string
		e    models.Entity
		want error
	}{
		{"invalid client", models.Client{Email: "not-an-email"}, common.ErrValidation},
		{"order without client", models.Order{ClientID: 42, Status: "new"}, common.ErrInvalidReference},
		{"payment without order", models.Payment{OrderID: 7, Amount: 100, Method: "cash"}, common.ErrInvalidReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, tt.e)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, sy.count())
}

func TestAdd_ChildOfLocalParent(t *testing.T) {
	_, svc, _ := setup(t, false)
	ctx := context.Background()

	client, err := svc.Add(ctx, models.Client{Name: "Ama"})
	require.NoError(t, err)
	order, err := svc.Add(ctx, models.Order{ClientID: client.ID, Status: "new"})
	require.NoError(t, err)
	assert.Equal(t, client.ID, order.Entity.ParentID())
}

func TestEdit(t *testing.T) {
	st, svc, sy := setup(t, true)
	ctx := context.Background()
	putSynced(t, st, 10, models.Client{Name: "Ama"})

	rec, err := svc.Edit(ctx, models.Clients, 10, models.Client{Name: "Ama", Phone: "0244123456"})
	require.NoError(t, err)
	assert.True(t, rec.PendingSync)
	assert.Equal(t, "0244123456", rec.Entity.(models.Client).Phone)
	assert.Equal(t, 1, sy.count())

	stored, err := st.Get(ctx, models.Clients, 10)
	require.NoError(t, err)
	assert.Equal(t, now, stored.BaseVersion, "edits keep the base version")
}

func TestEdit_Rejects(t *testing.T) {
	st, svc, _ := setup(t, false)
	ctx := context.Background()
	putSynced(t, st, 10, models.Client{Name: "Ama"})

	_, err := st.Update(ctx, models.Clients, 10, func(r *cmodels.Record) error {
		r.PendingSync = true
		r.MarkConflict(cmodels.Snapshot{Entity: models.Client{Name: "Ama M."}, UpdatedAt: now.Add(time.Hour)}, now)
		return nil
	})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, models.Clients, 10, models.Client{Name: "Ama"})
	require.ErrorIs(t, err, common.ErrConflictPending)

	_, err = svc.Edit(ctx, models.Clients, 99, models.Client{Name: "Kofi"})
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.Edit(ctx, models.Clients, 10, models.InventoryItem{Name: "Lace"})
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Edit(ctx, models.Clients, 10, models.Client{})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestRemove_Unconfirmed(t *testing.T) {
	st, svc, _ := setup(t, false)
	ctx := context.Background()

	rec, err := svc.Add(ctx, models.Client{Name: "Ama"})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, models.Clients, rec.ID))

	_, err = st.Get(ctx, models.Clients, rec.ID)
	require.ErrorIs(t, err, common.ErrNotFound)

	n, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRemove_ConfirmedLeavesTombstone(t *testing.T) {
	st, svc, _ := setup(t, false)
	ctx := context.Background()
	putSynced(t, st, 10, models.Client{Name: "Ama"})

	require.NoError(t, svc.Remove(ctx, models.Clients, 10))

	rec, err := st.Get(ctx, models.Clients, 10)
	require.NoError(t, err)
	assert.True(t, rec.Deleted)
	assert.True(t, rec.PendingSync)

	_, err = svc.Get(ctx, models.Clients, 10)
	require.ErrorIs(t, err, common.ErrNotFound)

	list, err := svc.List(ctx, models.Clients)
	require.NoError(t, err)
	assert.Empty(t, list)

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Deleted)

	err = svc.Remove(ctx, models.Clients, 10)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRemove_HasDependents(t *testing.T) {
	st, svc, _ := setup(t, false)
	ctx := context.Background()
	putSynced(t, st, 10, models.Client{Name: "Ama"})
	putSynced(t, st, 20, models.Order{ClientID: 10, Status: "new"})

	err := svc.Remove(ctx, models.Clients, 10)
	require.ErrorIs(t, err, common.ErrHasDependents)

	require.NoError(t, svc.Remove(ctx, models.Orders, 20))
	require.NoError(t, svc.Remove(ctx, models.Clients, 10))
}

func TestBulkRemove(t *testing.T) {
	st, svc, sy := setup(t, true)
	ctx := context.Background()
	putSynced(t, st, 1, models.InventoryItem{Name: "Lace"})
	putSynced(t, st, 2, models.InventoryItem{Name: "Silk"})

	n, err := svc.BulkRemove(ctx, models.Inventory, []int64{1, 2, 3})
	assert.Equal(t, 2, n)
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, 1, sy.count())

	count, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestConflicted(t *testing.T) {
	st, svc, _ := setup(t, false)
	ctx := context.Background()
	putSynced(t, st, 10, models.Client{Name: "Ama"})
	putSynced(t, st, 11, models.Client{Name: "Kofi"})

	_, err := st.Update(ctx, models.Clients, 11, func(r *cmodels.Record) error {
		r.PendingSync = true
		r.MarkConflict(cmodels.Snapshot{Entity: models.Client{Name: "Kofi A."}, UpdatedAt: now}, now)
		return nil
	})
	require.NoError(t, err)

	got, err := svc.Conflicted(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(11), got[0].ID)
}
