// Package services contains the client's application services: the write
// and read surface the CLI uses for records. Writes land in the local store
// and never wait for the network.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/logging"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// Store is the part of the local record store the service needs.
type Store interface {
	Put(ctx context.Context, rec *cmodels.Record) error
	Get(ctx context.Context, t models.EntityType, id int64) (*cmodels.Record, error)
	GetAll(ctx context.Context, t models.EntityType) ([]*cmodels.Record, error)
	GetPending(ctx context.Context, t models.EntityType) ([]*cmodels.Record, error)
	GetConflicted(ctx context.Context, t models.EntityType) ([]*cmodels.Record, error)
	PendingCount(ctx context.Context, t models.EntityType) (int, error)
	HasDependents(ctx context.Context, t models.EntityType, id int64) (bool, error)
	Update(ctx context.Context, t models.EntityType, id int64, fn func(*cmodels.Record) error) (bool, error)
	Delete(ctx context.Context, t models.EntityType, id int64) error
}

// Syncer is implemented by syncer.Engine.
type Syncer interface {
	Trigger(ctx context.Context)
}

// Link reports whether the server is reachable; implemented by
// connectivity.Monitor.
type Link interface {
	Online() bool
}

// RecordService is the record surface of the client.
//
// Contract:
//   - Add/Edit/Remove/BulkRemove validate, write locally and mark the records
//     pending; they succeed offline. When online, a background sync pass is
//     requested after the write.
//   - Removing a record other live records reference fails with
//     common.ErrHasDependents.
//   - Editing a conflicted record fails with common.ErrConflictPending.
//   - Reads never return tombstones, except Pending.
type RecordService interface {
	Add(ctx context.Context, e models.Entity) (*cmodels.Record, error)
	Edit(ctx context.Context, t models.EntityType, id int64, e models.Entity) (*cmodels.Record, error)
	Remove(ctx context.Context, t models.EntityType, id int64) error
	BulkRemove(ctx context.Context, t models.EntityType, ids []int64) (int, error)
	Get(ctx context.Context, t models.EntityType, id int64) (*cmodels.Record, error)
	List(ctx context.Context, t models.EntityType) ([]*cmodels.Record, error)
	Pending(ctx context.Context) ([]*cmodels.Record, error)
	Conflicted(ctx context.Context) ([]*cmodels.Record, error)
	PendingCount(ctx context.Context) (int, error)
}

type Option func(*recordService)

func WithClock(now func() time.Time) Option {
	return func(s *recordService) { s.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(s *recordService) { s.log = l }
}

// WithSync makes writes request a sync pass while link reports online.
func WithSync(sy Syncer, link Link) Option {
	return func(s *recordService) {
		s.syncer = sy
		s.link = link
	}
}

type recordService struct {
	store  Store
	owner  string
	syncer Syncer
	link   Link
	log    logging.Logger
	now    func() time.Time
}

// NewRecordService returns a service writing records owned by owner.
func NewRecordService(st Store, owner string, opts ...Option) RecordService {
	s := &recordService{store: st, owner: owner, log: logging.Nop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("module", "services")
	return s
}

func (s *recordService) Add(ctx context.Context, e models.Entity) (*cmodels.Record, error) {
	if err := models.Validate(e); err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, e); err != nil {
		return nil, err
	}

	rec := &cmodels.Record{
		ClientRef:   uuid.NewString(),
		OwnerID:     s.owner,
		Entity:      e,
		PendingSync: true,
		UpdatedAt:   s.now(),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}

	s.log.Debug(ctx, "record added", "entity", rec.Type(), "id", rec.ID)
	s.requestSync(ctx)
	return rec, nil
}

func (s *recordService) Edit(ctx context.Context, t models.EntityType, id int64, e models.Entity) (*cmodels.Record, error) {
	if e == nil || e.Type() != t {
		return nil, fmt.Errorf("%w: expected a %s", common.ErrValidation, t.Singular())
	}
	if err := models.Validate(e); err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, e); err != nil {
		return nil, err
	}

	var out *cmodels.Record
	found, err := s.store.Update(ctx, t, id, func(rec *cmodels.Record) error {
		switch {
		case rec.Deleted:
			return common.ErrNotFound
		case rec.Conflict:
			return common.ErrConflictPending
		}
		rec.Entity = e
		rec.MarkPending(s.now())
		out = rec
		return nil
	})
	if err == nil && !found {
		err = common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("edit %s %d: %w", t.Singular(), id, err)
	}

	s.requestSync(ctx)
	return out, nil
}

func (s *recordService) Remove(ctx context.Context, t models.EntityType, id int64) error {
	if err := s.remove(ctx, t, id); err != nil {
		return err
	}
	s.requestSync(ctx)
	return nil
}

// BulkRemove removes each id in turn and returns how many were removed. It
// keeps going past failures and returns them joined.
func (s *recordService) BulkRemove(ctx context.Context, t models.EntityType, ids []int64) (int, error) {
	var (
		n    int
		errs []error
	)
	for _, id := range ids {
		if err := s.remove(ctx, t, id); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	if n > 0 {
		s.requestSync(ctx)
	}
	return n, errors.Join(errs...)
}

// remove hard-deletes records the server has never seen and tombstones the
// rest.
func (s *recordService) remove(ctx context.Context, t models.EntityType, id int64) error {
	rec, err := s.Get(ctx, t, id)
	if err != nil {
		return err
	}

	has, err := s.store.HasDependents(ctx, t, id)
	if err != nil {
		return fmt.Errorf("remove %s %d: %w", t.Singular(), id, err)
	}
	if has {
		return fmt.Errorf("remove %s %d: %w", t.Singular(), id, common.ErrHasDependents)
	}

	if !rec.Confirmed() {
		if err := s.store.Delete(ctx, t, id); err != nil {
			return fmt.Errorf("remove %s %d: %w", t.Singular(), id, err)
		}
		return nil
	}

	found, err := s.store.Update(ctx, t, id, func(r *cmodels.Record) error {
		r.Deleted = true
		r.MarkPending(s.now())
		return nil
	})
	if err == nil && !found {
		err = common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("remove %s %d: %w", t.Singular(), id, err)
	}
	return nil
}

// Get returns a live record or common.ErrNotFound.
func (s *recordService) Get(ctx context.Context, t models.EntityType, id int64) (*cmodels.Record, error) {
	rec, err := s.store.Get(ctx, t, id)
	if err != nil {
		return nil, fmt.Errorf("%s %d: %w", t.Singular(), id, err)
	}
	if rec.Deleted {
		return nil, fmt.Errorf("%s %d: %w", t.Singular(), id, common.ErrNotFound)
	}
	return rec, nil
}

func (s *recordService) List(ctx context.Context, t models.EntityType) ([]*cmodels.Record, error) {
	recs, err := s.store.GetAll(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t, err)
	}
	return recs, nil
}

func (s *recordService) Pending(ctx context.Context) ([]*cmodels.Record, error) {
	return s.collect(ctx, s.store.GetPending)
}

func (s *recordService) Conflicted(ctx context.Context) ([]*cmodels.Record, error) {
	return s.collect(ctx, s.store.GetConflicted)
}

func (s *recordService) PendingCount(ctx context.Context) (int, error) {
	total := 0
	for _, t := range models.All() {
		n, err := s.store.PendingCount(ctx, t)
		if err != nil {
			return 0, fmt.Errorf("count pending %s: %w", t, err)
		}
		total += n
	}
	return total, nil
}

func (s *recordService) collect(ctx context.Context, get func(context.Context, models.EntityType) ([]*cmodels.Record, error)) ([]*cmodels.Record, error) {
	var out []*cmodels.Record
	for _, t := range models.All() {
		recs, err := get(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

// checkParent requires an order's client or a payment's order to exist
// locally and not be removed.
func (s *recordService) checkParent(ctx context.Context, e models.Entity) error {
	p, ok := e.Type().Parent()
	if !ok {
		return nil
	}
	rec, err := s.store.Get(ctx, p, e.ParentID())
	if errors.Is(err, common.ErrNotFound) || (err == nil && rec.Deleted) {
		return fmt.Errorf("%w: %s %d does not exist", common.ErrInvalidReference, p.Singular(), e.ParentID())
	}
	return err
}

func (s *recordService) requestSync(ctx context.Context) {
	if s.syncer == nil || s.link == nil || !s.link.Online() {
		return
	}
	s.syncer.Trigger(context.WithoutCancel(ctx))
}
