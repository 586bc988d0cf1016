package syncer

import (
	"context"
	"errors"
	"fmt"

	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// pushType replays the creates and updates queued for one entity type.
// Tombstones are left to deleteType. Only local store failures are returned.
func (e *Engine) pushType(ctx context.Context, t models.EntityType) (TypeSummary, error) {
	var ts TypeSummary

	pending, err := e.store.GetPending(ctx, t)
	if err != nil {
		return ts, fmt.Errorf("read pending %s: %w", t, err)
	}

	for _, rec := range pending {
		switch {
		case rec.Deleted:
			continue
		case rec.Conflict:
			ts.Blocked++
			continue
		case rec.Entity.ParentID() < 0:
			ts.Deferred++
			continue
		}

		ts.Attempted++
		ok, err := e.replay(ctx, rec, &ts)
		if err != nil {
			return ts, err
		}
		if ok {
			ts.Synced++
		}
	}
	return ts, nil
}

// deleteType replays the tombstones of one entity type.
func (e *Engine) deleteType(ctx context.Context, t models.EntityType) (TypeSummary, error) {
	var ts TypeSummary

	pending, err := e.store.GetPending(ctx, t)
	if err != nil {
		return ts, fmt.Errorf("read pending %s: %w", t, err)
	}

	var tombstones []*cmodels.Record
	for _, rec := range pending {
		if rec.Deleted {
			tombstones = append(tombstones, rec)
		}
	}
	if len(tombstones) == 0 {
		return ts, nil
	}
	return ts, e.replayDeletes(ctx, t, tombstones, &ts)
}

// replay sends one create or update. It reports whether the record is now
// clean.
func (e *Engine) replay(ctx context.Context, rec *cmodels.Record, ts *TypeSummary) (bool, error) {
	log := e.log.With("entity", rec.Type(), "id", rec.ID)

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	var (
		c   models.Canonical
		err error
	)
	if rec.Synced() {
		c, err = e.remote.Update(callCtx, rec.ID, rec.BaseVersion, rec.Entity)
	} else {
		c, err = e.remote.Create(callCtx, rec.ClientRef, rec.Entity)
	}
	cancel()

	if err != nil {
		var ce *models.ConflictError
		if errors.As(err, &ce) {
			ts.Conflicts++
			log.Info(ctx, "version conflict", "server_updated_at", ce.Current.UpdatedAt)
			return false, e.markConflict(ctx, rec, cmodels.Snapshot{Entity: ce.Current.Entity, UpdatedAt: ce.Current.UpdatedAt})
		}
		if rec.Synced() && errors.Is(err, common.ErrNotFound) {
			ts.Conflicts++
			log.Info(ctx, "record deleted on server")
			return false, e.markConflict(ctx, rec, cmodels.Snapshot{Deleted: true})
		}
		ts.Failed++
		log.Warn(ctx, "replay failed", "error", err)
		return false, nil
	}

	if rec.Synced() {
		return true, e.confirmUpdate(ctx, rec, c)
	}
	return true, e.confirmCreate(ctx, rec, c)
}

func (e *Engine) markConflict(ctx context.Context, sent *cmodels.Record, server cmodels.Snapshot) error {
	_, err := e.store.Update(ctx, sent.Type(), sent.ID, func(r *cmodels.Record) error {
		if r.Deleted {
			// deleted locally meanwhile; the tombstone replay decides
			return nil
		}
		r.PendingSync = true
		r.MarkConflict(server, e.now())
		return nil
	})
	return err
}

// confirmUpdate stores the server copy unless the record was edited locally
// while the call was in flight; then the newer local edit stays pending on
// top of the new base version.
func (e *Engine) confirmUpdate(ctx context.Context, sent *cmodels.Record, c models.Canonical) error {
	_, err := e.store.Update(ctx, sent.Type(), sent.ID, func(r *cmodels.Record) error {
		if r.Conflict {
			return nil
		}
		if !r.UpdatedAt.Equal(sent.UpdatedAt) {
			r.BaseVersion = c.UpdatedAt
			return nil
		}
		r.ApplyCanonical(c, e.now())
		return nil
	})
	return err
}

// confirmCreate moves the record from its temporary id to the server id.
func (e *Engine) confirmCreate(ctx context.Context, sent *cmodels.Record, c models.Canonical) error {
	cur, err := e.store.Get(ctx, sent.Type(), sent.ID)
	if errors.Is(err, common.ErrNotFound) {
		// removed locally while the create was in flight: delete it remotely
		// on the next pass
		tomb := &cmodels.Record{
			ID:          c.ID,
			ClientRef:   c.ClientRef,
			OwnerID:     sent.OwnerID,
			Entity:      c.Entity,
			PendingSync: true,
			Deleted:     true,
			BaseVersion: c.UpdatedAt,
			UpdatedAt:   e.now(),
		}
		return e.store.Put(ctx, tomb)
	}
	if err != nil {
		return err
	}

	next := cur.Clone()
	if cur.UpdatedAt.Equal(sent.UpdatedAt) {
		next.ApplyCanonical(c, e.now())
	} else {
		next.ID = c.ID
		next.BaseVersion = c.UpdatedAt
	}
	return e.store.Rekey(ctx, sent.ID, next)
}

// replayDeletes removes tombstoned records remotely, one call per type.
// A record the server no longer has counts as deleted.
func (e *Engine) replayDeletes(ctx context.Context, t models.EntityType, tombs []*cmodels.Record, ts *TypeSummary) error {
	ts.Attempted += len(tombs)

	ids := make([]int64, len(tombs))
	for i, r := range tombs {
		ids[i] = r.ID
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	var err error
	if len(ids) == 1 {
		err = e.remote.Delete(callCtx, t, ids[0])
	} else {
		_, err = e.remote.BulkDelete(callCtx, t, ids)
	}
	cancel()

	if err != nil && !errors.Is(err, common.ErrNotFound) {
		ts.Failed += len(tombs)
		e.log.Warn(ctx, "delete replay failed", "entity", t, "ids", ids, "error", err)
		return nil
	}

	for _, id := range ids {
		if err := e.store.Delete(ctx, t, id); err != nil {
			return err
		}
	}
	ts.Synced += len(tombs)
	return nil
}
