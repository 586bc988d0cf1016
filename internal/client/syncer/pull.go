package syncer

import (
	"context"
	"errors"
	"fmt"

	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// pull merges the server's records into the local store. Local rows with
// unsynced changes are left alone; everything else follows the server.
// Rows the server no longer has are removed children first, and a row that
// local records still reference is kept.
func (e *Engine) pull(ctx context.Context, col *collector) error {
	stale := make(map[models.EntityType][]*cmodels.Record, len(models.All()))
	for _, t := range models.All() {
		n, gone, err := e.pullType(ctx, t)
		col.add(t, TypeSummary{Pulled: n})
		if err != nil {
			return err
		}
		stale[t] = gone
	}

	all := models.All()
	for i := len(all) - 1; i >= 0; i-- {
		t := all[i]
		n, err := e.dropStale(ctx, t, stale[t])
		col.add(t, TypeSummary{Pulled: n})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) dropStale(ctx context.Context, t models.EntityType, recs []*cmodels.Record) (int, error) {
	n := 0
	for _, r := range recs {
		cur, err := e.store.Get(ctx, t, r.ID)
		if errors.Is(err, common.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		if !cur.Clean() {
			// edited locally since the list; the next push decides
			continue
		}
		has, err := e.store.HasDependents(ctx, t, r.ID)
		if err != nil {
			return n, err
		}
		if has {
			e.log.Debug(ctx, "keeping record gone from server", "entity", t, "id", r.ID)
			continue
		}
		if err := e.store.Delete(ctx, t, r.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// pullType applies the server copy of type t and returns the confirmed clean
// local rows the server no longer has.
func (e *Engine) pullType(ctx context.Context, t models.EntityType) (int, []*cmodels.Record, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	remoteRecs, err := e.remote.List(callCtx, t)
	cancel()
	if err != nil {
		return 0, nil, fmt.Errorf("list %s: %w", t, err)
	}

	local, err := e.store.GetAll(ctx, t)
	if err != nil {
		return 0, nil, err
	}
	pending, err := e.store.GetPending(ctx, t)
	if err != nil {
		return 0, nil, err
	}

	byID := make(map[int64]*cmodels.Record, len(local)+len(pending))
	refs := make(map[string]int64, len(local)+len(pending))
	for _, set := range [][]*cmodels.Record{local, pending} {
		for _, r := range set {
			byID[r.ID] = r
			if r.ClientRef != "" {
				refs[r.ClientRef] = r.ID
			}
		}
	}

	changed := 0
	seen := make(map[int64]bool, len(remoteRecs))
	for _, c := range remoteRecs {
		seen[c.ID] = true

		// a local record created under this ref still waits for its create
		// response; the next push reconciles it
		if id, ok := refs[c.ClientRef]; ok && c.ClientRef != "" && id != c.ID {
			continue
		}

		cur, ok := byID[c.ID]
		switch {
		case !ok:
			rec := &cmodels.Record{OwnerID: e.owner}
			rec.ApplyCanonical(c, e.now())
			if err := e.store.Put(ctx, rec); err != nil {
				return changed, nil, err
			}
			changed++
		case cur.Clean() && !cur.Deleted && !cur.BaseVersion.Equal(c.UpdatedAt):
			cur.ApplyCanonical(c, e.now())
			if err := e.store.Put(ctx, cur); err != nil {
				return changed, nil, err
			}
			changed++
		}
	}

	// confirmed clean rows the server no longer has were deleted elsewhere
	var stale []*cmodels.Record
	for _, r := range local {
		if r.Confirmed() && r.Clean() && !seen[r.ID] {
			stale = append(stale, r)
		}
	}
	return changed, stale, nil
}
