package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/tailorkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
)

// Store persists records in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time

	locks map[models.EntityType]*sync.Mutex

	watchMu  sync.Mutex
	watchers map[int]func(models.EntityType)
	nextID   int
}

type Option func(*Store)

// WithClock overrides the source of local write timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps an open database. The schema must already be migrated.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		now:      time.Now,
		locks:    make(map[models.EntityType]*sync.Mutex, len(models.All())),
		watchers: make(map[int]func(models.EntityType)),
	}
	for _, t := range models.All() {
		s.locks[t] = &sync.Mutex{}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open opens (creating if needed) the SQLite database at dsn, applies the
// migrations, and returns a Store over it.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}
	// one connection: SQLite allows a single writer and :memory: databases
	// are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure local database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db, opts...), nil
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate local database: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Watch registers fn to be called with the entity type after every committed
// write to that type's table. fn runs on the writer's goroutine and must not
// block. The returned func unregisters it.
func (s *Store) Watch(fn func(models.EntityType)) (unsubscribe func()) {
	s.watchMu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.watchMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.watchMu.Lock()
			delete(s.watchers, id)
			s.watchMu.Unlock()
		})
	}
}

func (s *Store) notify(types ...models.EntityType) {
	s.watchMu.Lock()
	fns := make([]func(models.EntityType), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()

	for _, t := range types {
		for _, fn := range fns {
			fn(t)
		}
	}
}

// lock acquires the table locks of types in models.All order and returns the
// matching unlock.
func (s *Store) lock(types ...models.EntityType) func() {
	want := make(map[models.EntityType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}

	var held []*sync.Mutex
	for _, t := range models.All() {
		if want[t] {
			m := s.locks[t]
			m.Lock()
			held = append(held, m)
		}
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func table(t models.EntityType) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", common.ErrUnknownEntity, string(t))
	}
	return string(t), nil
}
