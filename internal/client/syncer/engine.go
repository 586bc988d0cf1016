package syncer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	cmodels "github.com/dmitrijs2005/tailorkeeper/internal/client/models"
	"github.com/dmitrijs2005/tailorkeeper/internal/client/remote"
	"github.com/dmitrijs2005/tailorkeeper/internal/logging"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

const DefaultCallTimeout = 10 * time.Second

// Store is the part of the local record store the engine needs.
type Store interface {
	Get(ctx context.Context, t models.EntityType, id int64) (*cmodels.Record, error)
	GetAll(ctx context.Context, t models.EntityType) ([]*cmodels.Record, error)
	GetPending(ctx context.Context, t models.EntityType) ([]*cmodels.Record, error)
	Put(ctx context.Context, rec *cmodels.Record) error
	Update(ctx context.Context, t models.EntityType, id int64, fn func(*cmodels.Record) error) (bool, error)
	Delete(ctx context.Context, t models.EntityType, id int64) error
	Rekey(ctx context.Context, oldID int64, rec *cmodels.Record) error
	HasDependents(ctx context.Context, t models.EntityType, id int64) (bool, error)
}

// Notifier receives the summary of every finished pass.
type Notifier interface {
	SyncFinished(Summary)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Summary)

func (f NotifierFunc) SyncFinished(s Summary) { f(s) }

type Option func(*Engine)

// WithCallTimeout bounds every remote call of a pass.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.callTimeout = d
		}
	}
}

// WithRefresh enables the pull phase after the push phase.
func WithRefresh(on bool) Option {
	return func(e *Engine) { e.refresh = on }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithOwner stamps records pulled from the server.
func WithOwner(owner string) Option {
	return func(e *Engine) { e.owner = owner }
}

// Engine drains the pending-mutation queue.
type Engine struct {
	store       Store
	remote      remote.Remote
	callTimeout time.Duration
	refresh     bool
	notifier    Notifier
	log         logging.Logger
	now         func() time.Time
	owner       string

	sf singleflight.Group

	mu      sync.Mutex
	running bool
	again   bool
	wg      sync.WaitGroup
}

func New(st Store, r remote.Remote, opts ...Option) *Engine {
	e := &Engine{
		store:       st,
		remote:      r,
		callTimeout: DefaultCallTimeout,
		log:         logging.Nop(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("module", "syncer")
	return e
}

// SyncAll runs one pass. Concurrent callers share the pass already in
// flight and receive its summary. The error is non-nil only when the local
// store failed; remote failures are counted in the summary.
func (e *Engine) SyncAll(ctx context.Context) (Summary, error) {
	v, err, _ := e.sf.Do("sync", func() (any, error) {
		return e.pass(ctx)
	})
	sum, _ := v.(Summary)
	return sum, err
}

// Trigger starts a pass in the background. A trigger that arrives while a
// background pass runs schedules one more pass after it, so records written
// during a pass are not left waiting for the next reconnect.
func (e *Engine) Trigger(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.again = true
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			if _, err := e.SyncAll(ctx); err != nil {
				e.log.Error(ctx, "sync pass failed", "error", err)
			}

			e.mu.Lock()
			if !e.again || ctx.Err() != nil {
				e.running = false
				e.again = false
				e.mu.Unlock()
				return
			}
			e.again = false
			e.mu.Unlock()
		}
	}()
}

// Wait blocks until background passes started by Trigger have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Subscriber is implemented by connectivity.Monitor.
type Subscriber interface {
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Attach starts a background pass on every transition to online reported
// by s. The returned func detaches the engine.
func (e *Engine) Attach(ctx context.Context, s Subscriber) (detach func()) {
	return s.Subscribe(func(online bool) {
		if online {
			e.log.Info(ctx, "back online, syncing")
			e.Trigger(ctx)
		}
	})
}

func (e *Engine) pass(ctx context.Context) (Summary, error) {
	sum := Summary{StartedAt: e.now()}
	col := newCollector()

	// creates and updates go parents first so children see server ids;
	// deletes go children first so no parent still has dependents
	err := e.staged(ctx, col, parentOf, e.pushType)
	if err == nil {
		err = e.staged(ctx, col, models.EntityType.Children, e.deleteType)
	}

	if err == nil && e.refresh {
		if rerr := e.pull(ctx, col); rerr != nil {
			if !remote.IsTransient(rerr) {
				e.log.Warn(ctx, "refresh failed", "error", rerr)
			}
			sum.RefreshFailed = true
		}
	}

	sum.Types = col.snapshot()
	sum.FinishedAt = e.now()
	if err != nil {
		return sum, err
	}

	total := sum.Total()
	e.log.Info(ctx, "sync pass finished",
		"attempted", total.Attempted, "synced", total.Synced, "failed", total.Failed,
		"conflicts", total.Conflicts, "deferred", total.Deferred, "blocked", total.Blocked)

	if e.notifier != nil {
		e.notifier.SyncFinished(sum)
	}
	return sum, nil
}

func parentOf(t models.EntityType) []models.EntityType {
	if p, ok := t.Parent(); ok {
		return []models.EntityType{p}
	}
	return nil
}

// staged runs step for every entity type in parallel, except that a type
// starts only once the types named by after have finished.
func (e *Engine) staged(
	ctx context.Context,
	col *collector,
	after func(models.EntityType) []models.EntityType,
	step func(context.Context, models.EntityType) (TypeSummary, error),
) error {
	done := make(map[models.EntityType]chan struct{}, len(models.All()))
	for _, t := range models.All() {
		done[t] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range models.All() {
		g.Go(func() error {
			defer close(done[t])
			for _, dep := range after(t) {
				select {
				case <-done[dep]:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			ts, err := step(gctx, t)
			col.add(t, ts)
			return err
		})
	}
	return g.Wait()
}
