package syncer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/remote"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/store"
	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var localNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type summaries struct {
	mu  sync.Mutex
	got []Summary
}

func (s *summaries) SyncFinished(sum Summary) {
	s.mu.Lock()
	s.got = append(s.got, sum)
	s.mu.Unlock()
}

func (s *summaries) all() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Summary(nil), s.got...)
}

type fixture struct {
	store  *store.Store
	remote *fakeRemote
	engine *Engine
	notes  *summaries
}

func setup(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:", store.WithClock(func() time.Time { return localNow }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{store: st, remote: newFakeRemote(), notes: &summaries{}}
	opts = append([]Option{
		WithNotifier(f.notes),
		WithClock(func() time.Time { return localNow }),
		WithCallTimeout(time.Second),
		WithOwner("owner-1"),
	}, opts...)
	f.engine = New(st, f.remote, opts...)
	return f
}

var refSeq int

// addLocal stores e as a new pending record, as an offline add would.
func (f *fixture) addLocal(t *testing.T, e models.Entity) *cmodels.Record {
	t.Helper()
	refSeq++
	rec := &cmodels.Record{
		ClientRef:   fmt.Sprintf("ref-%d", refSeq),
		OwnerID:     "owner-1",
		Entity:      e,
		PendingSync: true,
		UpdatedAt:   localNow,
	}
	require.NoError(t, f.store.Put(context.Background(), rec))
	return rec
}

// addSynced stores a confirmed clean copy of c.
func (f *fixture) addSynced(t *testing.T, c models.Canonical) *cmodels.Record {
	t.Helper()
	rec := &cmodels.Record{OwnerID: "owner-1"}
	rec.ApplyCanonical(c, localNow)
	require.NoError(t, f.store.Put(context.Background(), rec))
	return rec
}

func (f *fixture) editLocal(t *testing.T, typ models.EntityType, id int64, e models.Entity) {
	t.Helper()
	ok, err := f.store.Update(context.Background(), typ, id, func(r *cmodels.Record) error {
		r.Entity = e
		r.MarkPending(localNow.Add(time.Minute))
		return nil
	})
	require.NoError(t, err)
	require.True(t, ok)
}

func (f *fixture) get(t *testing.T, typ models.EntityType, id int64) *cmodels.Record {
	t.Helper()
	rec, err := f.store.Get(context.Background(), typ, id)
	require.NoError(t, err)
	return rec
}

func (f *fixture) only(t *testing.T, typ models.EntityType) *cmodels.Record {
	t.Helper()
	all, err := f.store.GetAll(context.Background(), typ)
	require.NoError(t, err)
	require.Len(t, all, 1)
	return all[0]
}

func TestSyncAll_DrainsPending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.addLocal(t, models.Client{Name: "Ama", Phone: "0244123456"})
	f.addLocal(t, models.Client{Name: "Kofi"})
	f.addLocal(t, models.InventoryItem{Name: "Kente", Quantity: 4, Unit: "yards"})

	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)

	assert.True(t, sum.AllSynced())
	assert.Equal(t, "All synced", sum.Message())
	assert.Equal(t, TypeSummary{Attempted: 2, Synced: 2}, sum.Types[models.Clients])
	assert.Equal(t, TypeSummary{Attempted: 1, Synced: 1}, sum.Types[models.Inventory])

	for _, typ := range []models.EntityType{models.Clients, models.Inventory} {
		all, err := f.store.GetAll(ctx, typ)
		require.NoError(t, err)
		for _, rec := range all {
			assert.True(t, rec.Confirmed())
			assert.False(t, rec.PendingSync)
			assert.False(t, rec.Conflict)

			server, ok := f.remote.get(typ, rec.ID)
			require.True(t, ok)
			assert.Equal(t, server.Entity, rec.Entity)
			assert.Equal(t, server.UpdatedAt, rec.BaseVersion)
		}
	}

	pending, err := f.store.GetPending(ctx, models.Clients)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.Len(t, f.notes.all(), 1)
}

func TestSyncAll_NothingPending(t *testing.T) {
	f := setup(t)

	sum, err := f.engine.SyncAll(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.AllSynced())
	assert.Equal(t, "Nothing to sync", sum.Message())
	assert.Equal(t, 0, f.remote.creates)
}

func TestSyncAll_ConflictDetection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	orig := f.remote.seed(models.Client{Name: "Ama", Phone: "0244123456"})
	f.addSynced(t, orig)

	serverCopy := f.remote.edit(orig.ID, models.Client{Name: "Ama", Phone: "0200000000"})
	f.editLocal(t, models.Clients, orig.ID, models.Client{Name: "Ama", Phone: "0555555555"})

	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, TypeSummary{Attempted: 1, Conflicts: 1}, sum.Types[models.Clients])
	assert.False(t, sum.AllSynced())
	assert.Equal(t, "Some changes could not be synced", sum.Message())

	rec := f.get(t, models.Clients, orig.ID)
	assert.True(t, rec.Conflict)
	assert.True(t, rec.PendingSync)
	require.NotNil(t, rec.ServerVersion)
	assert.Equal(t, serverCopy.Entity, rec.ServerVersion.Entity)
	assert.Equal(t, serverCopy.UpdatedAt, rec.ServerVersion.UpdatedAt)
	assert.Equal(t, models.Client{Name: "Ama", Phone: "0555555555"}, rec.Entity)

	// the server copy is untouched
	got, _ := f.remote.get(models.Clients, orig.ID)
	assert.Equal(t, serverCopy.Entity, got.Entity)

	// conflicted records are not replayed again
	updates := f.remote.updates
	sum, err = f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, TypeSummary{Blocked: 1}, sum.Types[models.Clients])
	assert.Equal(t, updates, f.remote.updates)
}

func TestSyncAll_UpdateOfRecordDeletedOnServer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	orig := f.remote.seed(models.Client{Name: "Adjoa"})
	f.addSynced(t, orig)
	f.editLocal(t, models.Clients, orig.ID, models.Client{Name: "Adjoa", Phone: "0501112222"})
	require.NoError(t, f.remote.Delete(ctx, models.Clients, orig.ID))

	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, TypeSummary{Attempted: 1, Conflicts: 1}, sum.Types[models.Clients])

	rec := f.get(t, models.Clients, orig.ID)
	assert.True(t, rec.Conflict)
	assert.True(t, rec.PendingSync)
	require.NotNil(t, rec.ServerVersion)
	assert.True(t, rec.ServerVersion.Deleted)

	// keeping the local copy sends it as a new record
	_, err = f.store.Update(ctx, models.Clients, orig.ID, func(r *cmodels.Record) error {
		r.BaseVersion = time.Time{}
		r.MarkPending(localNow.Add(time.Hour))
		return nil
	})
	require.NoError(t, err)

	sum, err = f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.True(t, sum.AllSynced(), sum.String())

	got := f.only(t, models.Clients)
	assert.NotEqual(t, orig.ID, got.ID)
	assert.True(t, got.Clean())
	assert.Equal(t, models.Client{Name: "Adjoa", Phone: "0501112222"}, got.Entity)
	assert.Equal(t, 1, f.remote.count(models.Clients))
}

func TestSyncAll_TransientFailureLeavesPending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rec := f.addLocal(t, models.Client{Name: "Ama"})

	f.remote.err = fmt.Errorf("%w: no route to host", remote.ErrUnavailable)
	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, TypeSummary{Attempted: 1, Failed: 1}, sum.Types[models.Clients])
	assert.Equal(t, "Some changes could not be synced", sum.Message())

	got := f.get(t, models.Clients, rec.ID)
	assert.True(t, got.PendingSync)
	assert.False(t, got.Conflict)
	assert.False(t, got.Confirmed())
}

func TestSyncAll_IdempotentRetry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.addLocal(t, models.Client{Name: "Ama", Phone: "0244123456"})

	// the first create reaches the server but its response is lost
	f.remote.dropResponses = 1
	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Types[models.Clients].Failed)
	assert.True(t, f.only(t, models.Clients).PendingSync)

	sum, err = f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.True(t, sum.AllSynced())

	assert.Equal(t, 1, f.remote.count(models.Clients))
	assert.Equal(t, 2, f.remote.creates)

	rec := f.only(t, models.Clients)
	assert.False(t, rec.PendingSync)
	_, ok := f.remote.get(models.Clients, rec.ID)
	assert.True(t, ok)
}

func TestSyncAll_ParentsBeforeChildren(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	client := f.addLocal(t, models.Client{Name: "Ama"})
	order := f.addLocal(t, models.Order{ClientID: client.ID, Status: "new"})
	f.addLocal(t, models.Payment{OrderID: order.ID, Amount: 5000, Method: "cash"})

	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.True(t, sum.AllSynced(), sum.String())

	c := f.only(t, models.Clients)
	o := f.only(t, models.Orders)
	p := f.only(t, models.Payments)

	assert.True(t, c.Confirmed())
	assert.Equal(t, c.ID, o.Entity.ParentID())
	assert.Equal(t, o.ID, p.Entity.ParentID())

	serverPayment, ok := f.remote.get(models.Payments, p.ID)
	require.True(t, ok)
	assert.Equal(t, o.ID, serverPayment.Entity.ParentID())
}

func TestSyncAll_DefersChildrenOfUnsyncedParent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	client := f.addLocal(t, models.Client{Name: "Ama"})
	order := f.addLocal(t, models.Order{ClientID: client.ID, Status: "new"})

	f.remote.rejectType = models.Clients
	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, TypeSummary{Attempted: 1, Failed: 1}, sum.Types[models.Clients])
	assert.Equal(t, TypeSummary{Deferred: 1}, sum.Types[models.Orders])

	got := f.get(t, models.Orders, order.ID)
	assert.True(t, got.PendingSync)
	assert.Equal(t, 0, f.remote.count(models.Orders))

	f.remote.rejectType = ""
	sum, err = f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.True(t, sum.AllSynced(), sum.String())
	assert.Equal(t, 1, f.remote.count(models.Orders))
}

func TestSyncAll_ReplaysTombstones(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := f.addSynced(t, f.remote.seed(models.InventoryItem{Name: "Lace"}))
	b := f.addSynced(t, f.remote.seed(models.InventoryItem{Name: "Silk"}))
	gone := f.addSynced(t, models.Canonical{ID: 999, UpdatedAt: localNow, Entity: models.Order{ClientID: 1, Status: "x"}})
	for _, r := range []*cmodels.Record{a, b, gone} {
		_, err := f.store.Update(ctx, r.Type(), r.ID, func(r *cmodels.Record) error {
			r.Deleted = true
			r.MarkPending(localNow)
			return nil
		})
		require.NoError(t, err)
	}

	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.True(t, sum.AllSynced(), sum.String())
	assert.Equal(t, TypeSummary{Attempted: 2, Synced: 2}, sum.Types[models.Inventory])
	assert.Equal(t, TypeSummary{Attempted: 1, Synced: 1}, sum.Types[models.Orders])

	assert.Equal(t, 1, f.remote.bulkDeletes)
	assert.Equal(t, 1, f.remote.deletes, "single tombstone uses Delete; not found counts as done")
	assert.Equal(t, 0, f.remote.count(models.Inventory))

	for _, r := range []*cmodels.Record{a, b, gone} {
		_, err := f.store.Get(ctx, r.Type(), r.ID)
		require.ErrorIs(t, err, common.ErrNotFound)
	}
}

func TestSyncAll_DeletesChildrenBeforeParents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	client := f.addSynced(t, f.remote.seed(models.Client{Name: "Kojo"}))
	order := f.addSynced(t, f.remote.seed(models.Order{ClientID: client.ID, Status: "new"}))
	payment := f.addSynced(t, f.remote.seed(models.Payment{OrderID: order.ID, Amount: 1000, Method: "cash"}))

	// parent first, as a user clearing a client's history might
	for _, r := range []*cmodels.Record{client, order, payment} {
		_, err := f.store.Update(ctx, r.Type(), r.ID, func(r *cmodels.Record) error {
			r.Deleted = true
			r.MarkPending(localNow)
			return nil
		})
		require.NoError(t, err)
	}

	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.True(t, sum.AllSynced(), sum.String())
	assert.Zero(t, sum.Total().Failed)
	for _, typ := range []models.EntityType{models.Clients, models.Orders, models.Payments} {
		assert.Equal(t, TypeSummary{Attempted: 1, Synced: 1}, sum.Types[typ], typ)
		assert.Zero(t, f.remote.count(typ), typ)
	}
}

func TestSyncAll_FailedDeleteKeepsTombstone(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := f.addSynced(t, f.remote.seed(models.InventoryItem{Name: "Lace"}))
	_, err := f.store.Update(ctx, models.Inventory, a.ID, func(r *cmodels.Record) error {
		r.Deleted = true
		r.MarkPending(localNow)
		return nil
	})
	require.NoError(t, err)

	f.remote.err = remote.ErrUnavailable
	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, TypeSummary{Attempted: 1, Failed: 1}, sum.Types[models.Inventory])

	got := f.get(t, models.Inventory, a.ID)
	assert.True(t, got.Deleted)
	assert.True(t, got.PendingSync)
}

func TestSyncAll_CallTimeout(t *testing.T) {
	f := setup(t, WithCallTimeout(20*time.Millisecond))
	f.addLocal(t, models.Client{Name: "Ama"})
	f.remote.block = true

	done := make(chan Summary, 1)
	go func() {
		sum, _ := f.engine.SyncAll(context.Background())
		done <- sum
	}()

	select {
	case sum := <-done:
		assert.Equal(t, 1, sum.Types[models.Clients].Failed)
	case <-time.After(5 * time.Second):
		t.Fatal("a hung call blocked the pass")
	}
}

func TestSyncAll_ConcurrentCallersSharePass(t *testing.T) {
	f := setup(t)
	f.addLocal(t, models.Client{Name: "Ama"})
	f.remote.gate = make(chan struct{})
	f.remote.entered = make(chan struct{}, 1)

	results := make(chan Summary, 2)
	go func() {
		sum, _ := f.engine.SyncAll(context.Background())
		results <- sum
	}()
	<-f.remote.entered

	go func() {
		sum, _ := f.engine.SyncAll(context.Background())
		results <- sum
	}()
	// let the second caller join the pass in flight
	time.Sleep(50 * time.Millisecond)
	close(f.remote.gate)

	first, second := <-results, <-results
	assert.Equal(t, first.Total(), second.Total())
	assert.Equal(t, 1, first.Total().Synced)
	assert.Len(t, f.notes.all(), 1)
}

func TestTrigger_RunsInBackground(t *testing.T) {
	f := setup(t)
	f.addLocal(t, models.Client{Name: "Ama"})

	f.engine.Trigger(context.Background())
	f.engine.Trigger(context.Background())
	f.engine.Wait()

	assert.False(t, f.only(t, models.Clients).PendingSync)
	assert.Equal(t, 1, f.remote.count(models.Clients))
}

type fakeSubscriber struct {
	fn func(bool)
}

func (s *fakeSubscriber) Subscribe(fn func(bool)) func() {
	s.fn = fn
	return func() { s.fn = nil }
}

func TestAttach_SyncsOnReconnect(t *testing.T) {
	f := setup(t)
	sub := &fakeSubscriber{}
	detach := f.engine.Attach(context.Background(), sub)

	f.addLocal(t, models.Client{Name: "Ama"})

	sub.fn(false)
	f.engine.Wait()
	assert.Equal(t, 0, f.remote.creates)

	sub.fn(true)
	f.engine.Wait()
	assert.False(t, f.only(t, models.Clients).PendingSync)

	detach()
	assert.Nil(t, sub.fn)
}

func TestConfirmCreate_KeepsEditMadeDuringCall(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rec := f.addLocal(t, models.Client{Name: "Ama"})

	f.remote.onCreate = func() {
		_, err := f.store.Update(ctx, models.Clients, rec.ID, func(r *cmodels.Record) error {
			r.Entity = models.Client{Name: "Ama", Phone: "0244123456"}
			r.MarkPending(localNow.Add(time.Minute))
			return nil
		})
		assert.NoError(t, err)
	}

	_, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)

	got := f.only(t, models.Clients)
	assert.True(t, got.Confirmed())
	assert.True(t, got.PendingSync)
	assert.Equal(t, "0244123456", got.Entity.(models.Client).Phone)

	server, ok := f.remote.get(models.Clients, got.ID)
	require.True(t, ok)
	assert.Equal(t, server.UpdatedAt, got.BaseVersion)

	f.remote.onCreate = nil
	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.True(t, sum.AllSynced())
	server, _ = f.remote.get(models.Clients, got.ID)
	assert.Equal(t, "0244123456", server.Entity.(models.Client).Phone)
}

func TestConfirmCreate_RecordRemovedDuringCall(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rec := f.addLocal(t, models.Client{Name: "Ama"})

	f.remote.onCreate = func() {
		assert.NoError(t, f.store.Delete(ctx, models.Clients, rec.ID))
	}
	_, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)

	pending, err := f.store.GetPending(ctx, models.Clients)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Deleted)

	f.remote.onCreate = nil
	_, err = f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, f.remote.count(models.Clients))
}

func TestSyncAll_RefreshMergesServerState(t *testing.T) {
	f := setup(t, WithRefresh(true))
	ctx := context.Background()

	fresh := f.remote.seed(models.Client{Name: "Efua"})
	changed := f.remote.seed(models.Client{Name: "Yaw"})
	f.addSynced(t, changed)
	changed = f.remote.edit(changed.ID, models.Client{Name: "Yaw", Phone: "0277000000"})

	dirty := f.remote.seed(models.Client{Name: "Akua"})
	f.addSynced(t, dirty)
	f.remote.edit(dirty.ID, models.Client{Name: "Akua", Email: "akua@example.com"})
	f.editLocal(t, models.Clients, dirty.ID, models.Client{Name: "Akua B."})

	removed := f.addSynced(t, models.Canonical{ID: 7, UpdatedAt: localNow, Entity: models.Client{Name: "Gone"}})

	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.False(t, sum.RefreshFailed)
	assert.Equal(t, 1, sum.Types[models.Clients].Conflicts)
	assert.Equal(t, 3, sum.Types[models.Clients].Pulled)
	assert.Equal(t, 4, f.remote.lists)

	got := f.get(t, models.Clients, fresh.ID)
	assert.Equal(t, fresh.Entity, got.Entity)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.False(t, got.PendingSync)

	got = f.get(t, models.Clients, changed.ID)
	assert.Equal(t, changed.Entity, got.Entity)
	assert.Equal(t, changed.UpdatedAt, got.BaseVersion)

	got = f.get(t, models.Clients, dirty.ID)
	assert.True(t, got.Conflict)
	assert.Equal(t, models.Client{Name: "Akua B."}, got.Entity)

	_, err = f.store.Get(ctx, models.Clients, removed.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSyncAll_RefreshKeepsReferencedParent(t *testing.T) {
	f := setup(t, WithRefresh(true))
	ctx := context.Background()

	// neither side of either pair exists on the server any more
	kept := f.addSynced(t, models.Canonical{ID: 7, UpdatedAt: localNow, Entity: models.Client{Name: "Esi"}})
	f.addLocal(t, models.Order{ClientID: kept.ID, Status: "new"})

	parent := f.addSynced(t, models.Canonical{ID: 8, UpdatedAt: localNow, Entity: models.Client{Name: "Fiifi"}})
	child := f.addSynced(t, models.Canonical{ID: 9, UpdatedAt: localNow, Entity: models.Order{ClientID: parent.ID, Status: "new"}})

	sum, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.False(t, sum.RefreshFailed)

	assert.Equal(t, kept.Entity, f.get(t, models.Clients, kept.ID).Entity, "a pending order still points at it")

	_, err = f.store.Get(ctx, models.Orders, child.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.store.Get(ctx, models.Clients, parent.ID)
	assert.ErrorIs(t, err, common.ErrNotFound, "removed in the same pass once its order is gone")
}

func TestSyncAll_RefreshFailureIsReported(t *testing.T) {
	f := setup(t, WithRefresh(true))
	f.remote.err = remote.ErrUnavailable

	sum, err := f.engine.SyncAll(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.RefreshFailed)
	assert.Len(t, f.notes.all(), 1)
}

func TestNew_DefaultCallTimeout(t *testing.T) {
	e := New(nil, nil)
	assert.Equal(t, 10*time.Second, e.callTimeout)
}
